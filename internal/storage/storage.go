// Package storage 封装素材文件的对象存储
// 默认后端为 WebDAV（OpenList），也支持本地磁盘、阿里云OSS、腾讯云COS、七牛云Kodo与S3兼容存储
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/sumicowork/HOYODB/config"
)

var (
	// ErrUnsupportedProvider 配置了未知的存储后端
	ErrUnsupportedProvider = errors.New("storage: unsupported provider")
	// ErrQuotaUnsupported 后端不提供容量查询
	ErrQuotaUnsupported = errors.New("storage: quota not supported")
	// ErrNotFound 对象不存在
	ErrNotFound = errors.New("storage: object not found")
)

// ObjectStore 对象存储客户端
// dir 为相对 BasePath 的目录（如 starrail/character-art），name 为文件名
type ObjectStore interface {
	// Upload 写入对象，目录不存在时递归创建，返回公开访问地址
	Upload(ctx context.Context, dir, name string, r io.Reader, size int64, contentType string) (string, error)

	// Delete 删除对象，对象不存在时不报错
	Delete(ctx context.Context, dir, name string) error

	// Exists 检查对象是否存在
	Exists(ctx context.Context, dir, name string) (bool, error)

	// Stat 获取对象信息，对象不存在时返回 ErrNotFound
	Stat(ctx context.Context, dir, name string) (*ObjectInfo, error)

	// List 列出目录下的文件与子目录，目录不存在时返回空列表
	List(ctx context.Context, dir string) ([]ObjectInfo, error)

	// Open 读取对象内容，调用方负责关闭
	Open(ctx context.Context, dir, name string) (io.ReadCloser, error)

	// Quota 查询已用与可用空间，不支持时返回 ErrQuotaUnsupported
	Quota(ctx context.Context) (*QuotaInfo, error)

	// Ping 测试连接
	Ping(ctx context.Context) error

	// URL 对象的公开访问地址
	URL(dir, name string) string

	// Provider 后端名称
	Provider() string

	// Endpoint 后端地址，用于状态展示
	Endpoint() string
}

// ObjectInfo 对象或目录信息
type ObjectInfo struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"` // 相对 BasePath 的完整路径
	Size         int64     `json:"size"`
	IsDir        bool      `json:"isDir"`
	LastModified time.Time `json:"lastModified"`
	ETag         string    `json:"etag,omitempty"`
	ContentType  string    `json:"contentType,omitempty"`
}

// QuotaInfo 存储空间
type QuotaInfo struct {
	Used      int64 `json:"used"`
	Available int64 `json:"available"`
}

// New 根据配置创建对象存储客户端
func New(cfg config.StorageConfig) (ObjectStore, error) {
	switch strings.ToLower(cfg.Provider) {
	case "webdav", "":
		return NewWebDAVStore(cfg)
	case "local":
		return NewLocalStore(cfg)
	case "aliyun":
		return NewAliyunStore(cfg)
	case "tencent":
		return NewTencentStore(cfg)
	case "qiniu":
		return NewQiniuStore(cfg)
	case "s3":
		return NewS3Store(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}

// fullPath 拼接 BasePath、目录与文件名，结果以 / 开头
func fullPath(basePath string, elems ...string) string {
	return path.Join(append([]string{"/", basePath}, elems...)...)
}

// objectKey 桶类存储的对象键，不带前导 /
func objectKey(basePath string, elems ...string) string {
	return strings.TrimPrefix(fullPath(basePath, elems...), "/")
}

// dirPrefix 目录对应的列举前缀，根目录时为空
func dirPrefix(basePath, dir string) string {
	key := objectKey(basePath, dir)
	if key == "" {
		return ""
	}
	return key + "/"
}

// relPath 去掉 BasePath 后的相对路径
func relPath(basePath, p string) string {
	base := strings.TrimPrefix(path.Join("/", basePath), "/")
	p = strings.TrimPrefix(p, "/")
	if base != "" {
		p = strings.TrimPrefix(strings.TrimPrefix(p, base), "/")
	}
	return "/" + strings.TrimSuffix(p, "/")
}

// joinURL 拼接公开地址前缀与路径
func joinURL(base, p string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")
}

// timeout 配置的超时，未设置时为60秒
func timeout(cfg config.StorageConfig) time.Duration {
	if cfg.Timeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(cfg.Timeout) * time.Second
}
