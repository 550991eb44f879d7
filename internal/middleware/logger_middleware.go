package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader 请求ID请求头
const RequestIDHeader = "X-Request-ID"

// RequestID 透传或生成请求ID，写入上下文与响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// LoggerMiddleware 访问日志中间件
type LoggerMiddleware struct {
	logger *logrus.Logger
}

// NewLoggerMiddleware 创建日志中间件实例
func NewLoggerMiddleware(logger *logrus.Logger) *LoggerMiddleware {
	return &LoggerMiddleware{
		logger: logger,
	}
}

// Logger 每个请求记录一行结构化日志
func (m *LoggerMiddleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		entry := m.logger.WithFields(logrus.Fields{
			"status":     status,
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"path":       path,
			"raw_query":  raw,
			"size":       c.Writer.Size(),
			"request_id": c.GetString("request_id"),
		})
		if admin, ok := c.Get(ContextAdminUsername); ok {
			entry = entry.WithField("admin", admin)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("error", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("HTTP Request")
		case status >= 400:
			entry.Warn("HTTP Request")
		default:
			entry.Info("HTTP Request")
		}
	}
}
