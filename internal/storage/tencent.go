package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"

	"github.com/sumicowork/HOYODB/config"
)

// TencentStore 腾讯云COS后端
type TencentStore struct {
	client    *cos.Client
	bucketURL string
	cfg       config.StorageConfig
}

// NewTencentStore 创建腾讯云COS存储客户端
func NewTencentStore(cfg config.StorageConfig) (*TencentStore, error) {
	bucketURL := fmt.Sprintf("https://%s.cos.%s.myqcloud.com", cfg.Bucket, cfg.Region)
	if cfg.URL != "" {
		bucketURL = cfg.URL
	}

	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bucket URL: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Timeout: timeout(cfg),
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		},
	})

	return &TencentStore{client: client, bucketURL: bucketURL, cfg: cfg}, nil
}

func (s *TencentStore) Upload(ctx context.Context, dir, name string, r io.Reader, size int64, contentType string) (string, error) {
	options := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType: contentType,
		},
	}
	if size > 0 {
		options.ObjectPutHeaderOptions.ContentLength = size
	}

	if _, err := s.client.Object.Put(ctx, objectKey(s.cfg.BasePath, dir, name), r, options); err != nil {
		return "", fmt.Errorf("failed to upload file to tencent cos: %w", err)
	}
	return s.URL(dir, name), nil
}

func (s *TencentStore) Delete(ctx context.Context, dir, name string) error {
	if _, err := s.client.Object.Delete(ctx, objectKey(s.cfg.BasePath, dir, name)); err != nil {
		if cos.IsNotFoundError(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file from tencent cos: %w", err)
	}
	return nil
}

func (s *TencentStore) Exists(ctx context.Context, dir, name string) (bool, error) {
	if _, err := s.client.Object.Head(ctx, objectKey(s.cfg.BasePath, dir, name), nil); err != nil {
		if cos.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence in tencent cos: %w", err)
	}
	return true, nil
}

func (s *TencentStore) Stat(ctx context.Context, dir, name string) (*ObjectInfo, error) {
	key := objectKey(s.cfg.BasePath, dir, name)
	resp, err := s.client.Object.Head(ctx, key, nil)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file info from tencent cos: %w", err)
	}

	modified, _ := http.ParseTime(resp.Header.Get("Last-Modified"))
	return &ObjectInfo{
		Name:         name,
		Path:         relPath(s.cfg.BasePath, key),
		Size:         resp.ContentLength,
		LastModified: modified,
		ETag:         strings.Trim(resp.Header.Get("Etag"), "\""),
		ContentType:  resp.Header.Get("Content-Type"),
	}, nil
}

func (s *TencentStore) List(ctx context.Context, dir string) ([]ObjectInfo, error) {
	prefix := dirPrefix(s.cfg.BasePath, dir)
	items := []ObjectInfo{}
	marker := ""
	for {
		result, _, err := s.client.Bucket.Get(ctx, &cos.BucketGetOptions{
			Prefix:    prefix,
			Delimiter: "/",
			Marker:    marker,
			MaxKeys:   1000,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list files from tencent cos: %w", err)
		}

		for _, p := range result.CommonPrefixes {
			items = append(items, ObjectInfo{
				Name:  path.Base(strings.TrimSuffix(p, "/")),
				Path:  relPath(s.cfg.BasePath, p),
				IsDir: true,
			})
		}
		for _, obj := range result.Contents {
			if obj.Key == prefix {
				continue
			}
			modified, _ := time.Parse(time.RFC3339, obj.LastModified)
			items = append(items, ObjectInfo{
				Name:         path.Base(obj.Key),
				Path:         relPath(s.cfg.BasePath, obj.Key),
				Size:         int64(obj.Size),
				LastModified: modified,
				ETag:         strings.Trim(obj.ETag, "\""),
			})
		}

		if !result.IsTruncated {
			break
		}
		marker = result.NextMarker
	}
	return items, nil
}

func (s *TencentStore) Open(ctx context.Context, dir, name string) (io.ReadCloser, error) {
	resp, err := s.client.Object.Get(ctx, objectKey(s.cfg.BasePath, dir, name), nil)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download file from tencent cos: %w", err)
	}
	return resp.Body, nil
}

func (s *TencentStore) Quota(ctx context.Context) (*QuotaInfo, error) {
	return nil, ErrQuotaUnsupported
}

func (s *TencentStore) Ping(ctx context.Context) error {
	if _, err := s.client.Bucket.Head(ctx); err != nil {
		return fmt.Errorf("failed to test tencent cos connection: %w", err)
	}
	return nil
}

func (s *TencentStore) URL(dir, name string) string {
	key := objectKey(s.cfg.BasePath, dir, name)
	if s.cfg.PublicURL != "" {
		return joinURL(s.cfg.PublicURL, key)
	}
	return joinURL(s.bucketURL, key)
}

func (s *TencentStore) Provider() string {
	return "tencent"
}

func (s *TencentStore) Endpoint() string {
	return s.bucketURL
}
