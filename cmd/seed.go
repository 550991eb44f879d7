package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sumicowork/HOYODB/internal/auth"
	"github.com/sumicowork/HOYODB/internal/database"
	"github.com/sumicowork/HOYODB/internal/logger"
)

var (
	seedAdminUsername string
	seedAdminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "写入默认管理员、游戏、分类与标签",
	Long: `写入默认数据，已存在的记录会被跳过，可重复执行。
管理员已存在时不会修改其密码，请使用 hoyodb admin create。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.Init(cfg.Database, true)
		if err != nil {
			return err
		}

		opts := database.SeedOptions{AdminUsername: seedAdminUsername}
		if seedAdminUsername != "" && seedAdminPassword != "" {
			hash, err := auth.HashPassword(seedAdminPassword)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			opts.AdminPasswordHash = hash
		}

		if err := database.Seed(db, opts); err != nil {
			return err
		}
		logger.Info("种子数据初始化完成")
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminUsername, "admin-username", "admin", "默认管理员用户名，为空时跳过")
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "admin123", "默认管理员密码")
	rootCmd.AddCommand(seedCmd)
}
