// Package cmd 命令行入口
// serve 启动HTTP服务，migrate 与 seed 维护数据库，admin 管理后台账号
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sumicowork/HOYODB/config"
	"github.com/sumicowork/HOYODB/internal/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "hoyodb",
	Short: "HOYODB 素材库服务",
	Long: `HOYODB 米哈游游戏素材库的后端服务。
不带子命令运行时等同于 hoyodb serve。`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径，默认搜索 ./config.yaml")
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 加载配置并初始化日志
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(&cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, nil
}
