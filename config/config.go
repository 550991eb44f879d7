// Package config 负责加载应用配置
// 配置来源优先级：环境变量 > .env.local > .env > config.yaml > 默认值
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用总配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Upload   UploadConfig   `mapstructure:"upload"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	Mode         string   `mapstructure:"mode"`          // debug, release, test
	ReadTimeout  int      `mapstructure:"read_timeout"`  // 秒
	WriteTimeout int      `mapstructure:"write_timeout"` // 秒
	EnableHTTPS  bool     `mapstructure:"enable_https"`
	EnableHTTP2  bool     `mapstructure:"enable_http2"`
	TLSCertFile  string   `mapstructure:"tls_cert_file"`
	TLSKeyFile   string   `mapstructure:"tls_key_file"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
	VerboseLog   bool     `mapstructure:"verbose_log"` // 是否记录完整请求/响应
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // sqlite, mysql, postgres
	DSN             string `mapstructure:"dsn"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	LogLevel        string `mapstructure:"log_level"`         // silent, error, warn, info
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// JWTConfig 令牌配置
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// StorageConfig 对象存储配置
// Provider 决定使用哪种后端，其余字段按后端取用
type StorageConfig struct {
	Provider  string `mapstructure:"provider"` // webdav, local, aliyun, tencent, qiniu, s3
	URL       string `mapstructure:"url"`      // WebDAV 地址 / 对象存储 endpoint
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	BasePath  string `mapstructure:"base_path"`
	PublicURL string `mapstructure:"public_url"`
	Timeout   int    `mapstructure:"timeout"` // 秒

	LocalRoot string `mapstructure:"local_root"`

	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
}

// UploadConfig 上传限制配置
type UploadConfig struct {
	MaxFileSize  int64    `mapstructure:"max_file_size"` // 字节
	MaxBatch     int      `mapstructure:"max_batch"`
	AllowedMimes []string `mapstructure:"allowed_mimes"`
}

// DefaultAllowedMimes 默认允许上传的MIME类型
var DefaultAllowedMimes = []string{
	"image/jpeg", "image/png", "image/gif", "image/webp", "image/svg+xml",
	"audio/mpeg", "audio/wav", "audio/ogg", "audio/flac", "audio/aac",
	"video/mp4", "video/webm", "video/ogg",
	"application/pdf", "application/zip", "application/x-rar-compressed",
}

// envBindings 部署时使用的短环境变量名
var envBindings = map[string]string{
	"server.port":        "PORT",
	"database.dsn":       "DATABASE_URL",
	"jwt.secret":         "JWT_SECRET",
	"storage.url":        "WEBDAV_URL",
	"storage.username":   "WEBDAV_USERNAME",
	"storage.password":   "WEBDAV_PASSWORD",
	"storage.base_path":  "WEBDAV_BASE_PATH",
	"storage.public_url": "OPENLIST_PUBLIC_URL",
}

// Load 加载配置
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom 从指定配置文件加载，path为空时按默认目录搜索config.yaml
func LoadFrom(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/hoyodb")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret must not be empty")
	}
	if c.JWT.Expiry <= 0 {
		return fmt.Errorf("jwt expiry must be positive")
	}
	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload max_file_size must be positive")
	}
	if c.Server.EnableHTTPS && (c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "") {
		return fmt.Errorf("https enabled but tls cert/key not configured")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 60)
	v.SetDefault("server.write_timeout", 300)
	v.SetDefault("server.enable_https", false)
	v.SetDefault("server.enable_http2", false)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.verbose_log", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/hoyodb.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 3600)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.file_path", "logs/app.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.compress", true)

	v.SetDefault("jwt.secret", "default-secret")
	v.SetDefault("jwt.expiry", 7*24*time.Hour)
	v.SetDefault("jwt.issuer", "hoyodb")

	v.SetDefault("storage.provider", "webdav")
	v.SetDefault("storage.url", "http://localhost:5244/dav")
	v.SetDefault("storage.username", "admin")
	v.SetDefault("storage.password", "admin")
	v.SetDefault("storage.base_path", "/hoyodb")
	v.SetDefault("storage.public_url", "http://localhost:5244/d")
	v.SetDefault("storage.timeout", 60)
	v.SetDefault("storage.local_root", "data/storage")

	v.SetDefault("upload.max_file_size", 100*1024*1024)
	v.SetDefault("upload.max_batch", 20)
	v.SetDefault("upload.allowed_mimes", DefaultAllowedMimes)
}

// loadDotEnv 加载 .env.local 与 .env，已存在的环境变量不会被覆盖
func loadDotEnv() []string {
	var loaded []string
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	if len(loaded) > 0 {
		_ = godotenv.Load(loaded...)
	}
	return loaded
}
