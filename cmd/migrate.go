package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sumicowork/HOYODB/internal/database"
	"github.com/sumicowork/HOYODB/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "执行数据库迁移",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := database.Init(cfg.Database, true); err != nil {
			return err
		}
		logger.Info("数据库迁移完成")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
