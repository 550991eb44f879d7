package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"

	"github.com/sumicowork/HOYODB/internal/database"
	"github.com/sumicowork/HOYODB/internal/logger"
	"github.com/sumicowork/HOYODB/internal/middleware"
	"github.com/sumicowork/HOYODB/internal/router"
	"github.com/sumicowork/HOYODB/internal/storage"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动HTTP服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Init(cfg.Database, true)
	if err != nil {
		return err
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	if err := store.Ping(context.Background()); err != nil {
		// 存储暂不可用时仍然启动，/api/upload/status 会反映连接状态
		logger.WithField("provider", store.Provider()).WithError(err).Warn("存储连接测试失败")
	}

	loggerMiddleware := middleware.NewLoggerMiddleware(logger.GetLogger())
	r := router.NewRouter(loggerMiddleware, db, store, cfg)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      r.GetEngine(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	if cfg.Server.EnableHTTPS {
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			NextProtos: []string{"http/1.1"},
		}
		if cfg.Server.EnableHTTP2 {
			if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
				return fmt.Errorf("配置HTTP/2失败: %w", err)
			}
		} else {
			srv.TLSNextProto = map[string]func(*http.Server, *tls.Conn, http.Handler){}
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("服务启动在端口 %d (HTTPS: %v, HTTP/2: %v)", cfg.Server.Port, cfg.Server.EnableHTTPS, cfg.Server.EnableHTTP2)
		var err error
		if cfg.Server.EnableHTTPS {
			err = srv.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("服务启动失败: %w", err)
		}
		return nil
	case <-quit:
	}

	logger.Info("正在关闭服务器...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务器强制关闭: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("服务器已退出")
	return nil
}
