package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sumicowork/HOYODB/internal/logger"
)

// 日志中替换敏感请求头的占位符
const redacted = "[REDACTED]"

// RequestLoggerConfig 请求详情日志配置
type RequestLoggerConfig struct {
	SkipPaths       []string // 跳过记录的路径
	MaxBodySize     int      // 记录的请求体上限（字节）
	IncludeHeaders  bool     // 是否记录请求头
	IncludeBody     bool     // 是否记录请求体，multipart 请求始终跳过
	IncludeResponse bool     // 是否记录响应体
}

// DefaultRequestLoggerConfig 默认配置
func DefaultRequestLoggerConfig() *RequestLoggerConfig {
	return &RequestLoggerConfig{
		SkipPaths:       []string{"/health", "/favicon.ico"},
		MaxBodySize:     64 * 1024,
		IncludeHeaders:  true,
		IncludeBody:     true,
		IncludeResponse: true,
	}
}

// bodyCaptureWriter 捕获响应体
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body  *bytes.Buffer
	limit int
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	if remain := w.limit - w.body.Len(); remain > 0 {
		if len(b) > remain {
			w.body.Write(b[:remain])
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// RequestLogger 开发调试用的请求详情日志
// Authorization 与 Cookie 请求头会被脱敏，上传文件的请求体不记录
func RequestLogger(cfg *RequestLoggerConfig) gin.HandlerFunc {
	if cfg == nil {
		cfg = DefaultRequestLoggerConfig()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"query":      c.Request.URL.RawQuery,
			"request_id": c.GetString("request_id"),
		}
		if cfg.IncludeHeaders {
			fields["headers"] = extractHeaders(c.Request.Header)
		}
		if cfg.IncludeBody && !isMultipart(c.ContentType()) {
			if body := readRequestBody(c, cfg.MaxBodySize); body != nil {
				fields["body"] = body
			}
		}

		var writer *bodyCaptureWriter
		if cfg.IncludeResponse {
			writer = &bodyCaptureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}, limit: cfg.MaxBodySize}
			c.Writer = writer
		}

		c.Next()

		fields["status_code"] = c.Writer.Status()
		fields["duration_ms"] = time.Since(start).Milliseconds()
		if writer != nil && writer.body.Len() > 0 {
			fields["response_body"] = parseBody(writer.body.Bytes())
		}
		logger.WithFields(fields).Debug("[REQUEST_LOG]")
	}
}

func isMultipart(contentType string) bool {
	return strings.HasPrefix(contentType, "multipart/")
}

// readRequestBody 读取请求体后重置，供后续处理器使用
func readRequestBody(c *gin.Context, maxSize int) interface{} {
	if c.Request.Body == nil {
		return nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return map[string]string{"error": "failed to read request body"}
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	if len(body) == 0 {
		return nil
	}
	if len(body) > maxSize {
		body = body[:maxSize]
	}
	return redactBody(parseBody(body))
}

// redactBody 隐藏请求体中的密码字段
func redactBody(body interface{}) interface{} {
	if m, ok := body.(map[string]interface{}); ok {
		for _, key := range []string{"password", "Password"} {
			if _, exists := m[key]; exists {
				m[key] = redacted
			}
		}
	}
	return body
}

func extractHeaders(headers map[string][]string) map[string]string {
	headerMap := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			continue
		}
		switch strings.ToLower(key) {
		case "authorization", "cookie":
			headerMap[key] = redacted
		default:
			headerMap[key] = values[0]
		}
	}
	return headerMap
}

func parseBody(body []byte) interface{} {
	var jsonBody interface{}
	if err := json.Unmarshal(body, &jsonBody); err == nil {
		return jsonBody
	}
	return string(body)
}
