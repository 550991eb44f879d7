package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sumicowork/HOYODB/internal/auth"
	"github.com/sumicowork/HOYODB/internal/database"
	"github.com/sumicowork/HOYODB/internal/service/account"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "管理后台账号",
}

var adminCreateCmd = &cobra.Command{
	Use:     "create <username> <password>",
	Aliases: []string{"set-password"},
	Short:   "创建管理员，已存在时重置其密码",
	Example: `  hoyodb admin create admin 'new-password'`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.Init(cfg.Database, true)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
		admin, created, err := account.NewService(db, tokens).SetPassword(ctx, args[0], args[1])
		if err != nil {
			return err
		}

		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "已创建管理员 %s (id=%d)\n", admin.Username, admin.ID)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "已重置管理员 %s 的密码\n", admin.Username)
		}
		return nil
	},
}

func init() {
	adminCmd.AddCommand(adminCreateCmd)
	rootCmd.AddCommand(adminCmd)
}
