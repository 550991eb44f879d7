// Package logger 提供全局日志实例
// 基于logrus，文件输出通过lumberjack按大小滚动
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sumicowork/HOYODB/config"
)

// Logger 全局日志实例
var Logger *logrus.Logger

const timestampFormat = "2006-01-02 15:04:05"

// DefaultConfig 返回默认日志配置
func DefaultConfig() *config.LogConfig {
	return &config.LogConfig{
		Level:      "info",
		Format:     "text",
		Output:     "console",
		FilePath:   "logs/app.log",
		MaxSize:    100,
		MaxAge:     30,
		MaxBackups: 10,
		Compress:   true,
	}
}

// Init 初始化日志系统
// 参数:
//   - cfg: 日志配置，为nil时使用默认配置
//
// 返回值:
//   - error: 日志目录无法创建时返回错误
func Init(cfg *config.LogConfig) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	Logger = New(cfg)

	out, err := buildOutput(cfg)
	if err != nil {
		return err
	}
	Logger.SetOutput(out)

	ginWriter := &GinLogWriter{logger: Logger}
	gin.DefaultWriter = ginWriter
	gin.DefaultErrorWriter = ginWriter

	Logger.Info("日志系统初始化完成")
	return nil
}

// New 按配置创建logrus实例，输出默认为标准输出
func New(cfg *config.LogConfig) *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		l.Warnf("无效的日志级别 '%s'，使用默认级别 'info'", cfg.Level)
	}
	l.SetLevel(level)

	switch cfg.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat})
	}
	l.SetOutput(os.Stdout)
	return l
}

// buildOutput 根据输出方式构造writer
func buildOutput(cfg *config.LogConfig) (io.Writer, error) {
	switch cfg.Output {
	case "file":
		return rotatingFile(cfg)
	case "both":
		fw, err := rotatingFile(cfg)
		if err != nil {
			return nil, err
		}
		return io.MultiWriter(os.Stdout, fw), nil
	default:
		return os.Stdout, nil
	}
}

func rotatingFile(cfg *config.LogConfig) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}, nil
}

// GinLogWriter 将gin的输出转交给logrus
type GinLogWriter struct {
	logger *logrus.Logger
}

// Write 实现io.Writer接口
func (w *GinLogWriter) Write(p []byte) (n int, err error) {
	w.logger.Info(string(p))
	return len(p), nil
}

// GetLogger 获取日志实例，未初始化时使用默认配置
func GetLogger() *logrus.Logger {
	if Logger == nil {
		if err := Init(nil); err != nil {
			logrus.Error("日志初始化失败，使用默认日志")
			return logrus.StandardLogger()
		}
	}
	return Logger
}

func Info(args ...interface{}) {
	GetLogger().Info(args...)
}

func Infof(format string, args ...interface{}) {
	GetLogger().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	GetLogger().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	GetLogger().Errorf(format, args...)
}

// WithField 添加字段到日志条目
func WithField(key string, value interface{}) *logrus.Entry {
	return GetLogger().WithField(key, value)
}

// WithFields 添加多个字段到日志条目
func WithFields(fields logrus.Fields) *logrus.Entry {
	return GetLogger().WithFields(fields)
}
