package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/sumicowork/HOYODB/config"
)

// AliyunStore 阿里云OSS后端
type AliyunStore struct {
	client   *oss.Client
	bucket   *oss.Bucket
	endpoint string
	cfg      config.StorageConfig
}

// NewAliyunStore 创建阿里云OSS存储客户端
func NewAliyunStore(cfg config.StorageConfig) (*AliyunStore, error) {
	endpoint := cfg.URL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://oss-%s.aliyuncs.com", cfg.Region)
	}

	client, err := oss.New(endpoint, cfg.AccessKey, cfg.SecretKey, oss.Timeout(10, int64(timeout(cfg).Seconds())))
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun oss client: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", cfg.Bucket, err)
	}

	return &AliyunStore{client: client, bucket: bucket, endpoint: endpoint, cfg: cfg}, nil
}

func (s *AliyunStore) Upload(ctx context.Context, dir, name string, r io.Reader, size int64, contentType string) (string, error) {
	options := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		options = append(options, oss.ContentType(contentType))
	}
	if err := s.bucket.PutObject(objectKey(s.cfg.BasePath, dir, name), r, options...); err != nil {
		return "", fmt.Errorf("failed to upload file to aliyun oss: %w", err)
	}
	return s.URL(dir, name), nil
}

// Delete OSS 删除不存在的对象同样返回成功
func (s *AliyunStore) Delete(ctx context.Context, dir, name string) error {
	if err := s.bucket.DeleteObject(objectKey(s.cfg.BasePath, dir, name), oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete file from aliyun oss: %w", err)
	}
	return nil
}

func (s *AliyunStore) Exists(ctx context.Context, dir, name string) (bool, error) {
	exists, err := s.bucket.IsObjectExist(objectKey(s.cfg.BasePath, dir, name), oss.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check file existence in aliyun oss: %w", err)
	}
	return exists, nil
}

func (s *AliyunStore) Stat(ctx context.Context, dir, name string) (*ObjectInfo, error) {
	key := objectKey(s.cfg.BasePath, dir, name)
	meta, err := s.bucket.GetObjectDetailedMeta(key, oss.WithContext(ctx))
	if err != nil {
		if svcErr, ok := err.(oss.ServiceError); ok && svcErr.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file info from aliyun oss: %w", err)
	}

	size, _ := strconv.ParseInt(meta.Get("Content-Length"), 10, 64)
	modified, _ := http.ParseTime(meta.Get("Last-Modified"))
	return &ObjectInfo{
		Name:         name,
		Path:         relPath(s.cfg.BasePath, key),
		Size:         size,
		LastModified: modified,
		ETag:         strings.Trim(meta.Get("Etag"), "\""),
		ContentType:  meta.Get("Content-Type"),
	}, nil
}

// List 按 / 分隔列举，公共前缀作为子目录返回
func (s *AliyunStore) List(ctx context.Context, dir string) ([]ObjectInfo, error) {
	prefix := dirPrefix(s.cfg.BasePath, dir)
	items := []ObjectInfo{}
	marker := ""
	for {
		res, err := s.bucket.ListObjects(
			oss.Prefix(prefix),
			oss.Delimiter("/"),
			oss.Marker(marker),
			oss.MaxKeys(1000),
			oss.WithContext(ctx),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to list files from aliyun oss: %w", err)
		}

		for _, p := range res.CommonPrefixes {
			items = append(items, ObjectInfo{
				Name:  path.Base(strings.TrimSuffix(p, "/")),
				Path:  relPath(s.cfg.BasePath, p),
				IsDir: true,
			})
		}
		for _, obj := range res.Objects {
			if obj.Key == prefix {
				continue
			}
			items = append(items, ObjectInfo{
				Name:         path.Base(obj.Key),
				Path:         relPath(s.cfg.BasePath, obj.Key),
				Size:         obj.Size,
				LastModified: obj.LastModified,
				ETag:         strings.Trim(obj.ETag, "\""),
			})
		}

		if !res.IsTruncated {
			break
		}
		marker = res.NextMarker
	}
	return items, nil
}

func (s *AliyunStore) Open(ctx context.Context, dir, name string) (io.ReadCloser, error) {
	body, err := s.bucket.GetObject(objectKey(s.cfg.BasePath, dir, name), oss.WithContext(ctx))
	if err != nil {
		if svcErr, ok := err.(oss.ServiceError); ok && svcErr.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download file from aliyun oss: %w", err)
	}
	return body, nil
}

// Quota 返回桶已用容量，OSS 无容量上限，可用空间记为0
func (s *AliyunStore) Quota(ctx context.Context) (*QuotaInfo, error) {
	stat, err := s.client.GetBucketStat(s.cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get aliyun oss bucket stat: %w", err)
	}
	return &QuotaInfo{Used: stat.Storage}, nil
}

func (s *AliyunStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := s.client.GetBucketInfo(s.cfg.Bucket, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to test aliyun oss connection: %w", err)
	}
	return nil
}

func (s *AliyunStore) URL(dir, name string) string {
	key := objectKey(s.cfg.BasePath, dir, name)
	if s.cfg.PublicURL != "" {
		return joinURL(s.cfg.PublicURL, key)
	}
	host := strings.TrimPrefix(strings.TrimPrefix(s.endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.cfg.Bucket, host, key)
}

func (s *AliyunStore) Provider() string {
	return "aliyun"
}

func (s *AliyunStore) Endpoint() string {
	return s.endpoint
}
