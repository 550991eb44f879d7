package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/qiniu/go-sdk/v7/auth/qbox"
	kodo "github.com/qiniu/go-sdk/v7/storage"

	"github.com/sumicowork/HOYODB/config"
)

// QiniuStore 七牛云Kodo后端
// PublicURL 为桶绑定的访问域名
type QiniuStore struct {
	mac        *qbox.Mac
	region     *kodo.Region
	manager    *kodo.BucketManager
	httpClient *http.Client
	cfg        config.StorageConfig
}

// NewQiniuStore 创建七牛云Kodo存储客户端
func NewQiniuStore(cfg config.StorageConfig) (*QiniuStore, error) {
	if cfg.PublicURL == "" {
		return nil, fmt.Errorf("qiniu bucket domain (public_url) is required")
	}

	mac := qbox.NewMac(cfg.AccessKey, cfg.SecretKey)
	region, err := kodo.GetRegion(cfg.AccessKey, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get qiniu region: %w", err)
	}

	manager := kodo.NewBucketManager(mac, &kodo.Config{Region: region, UseHTTPS: true})

	return &QiniuStore{
		mac:        mac,
		region:     region,
		manager:    manager,
		httpClient: &http.Client{Timeout: timeout(cfg)},
		cfg:        cfg,
	}, nil
}

func (s *QiniuStore) Upload(ctx context.Context, dir, name string, r io.Reader, size int64, contentType string) (string, error) {
	key := objectKey(s.cfg.BasePath, dir, name)
	putPolicy := kodo.PutPolicy{Scope: fmt.Sprintf("%s:%s", s.cfg.Bucket, key)}
	upToken := putPolicy.UploadToken(s.mac)

	uploader := kodo.NewFormUploader(&kodo.Config{Region: s.region, UseHTTPS: true})
	ret := kodo.PutRet{}
	extra := kodo.PutExtra{MimeType: contentType}

	if size <= 0 {
		size = -1
	}
	if err := uploader.Put(ctx, &ret, upToken, key, r, size, &extra); err != nil {
		return "", fmt.Errorf("failed to upload file to qiniu kodo: %w", err)
	}
	return s.URL(dir, name), nil
}

func (s *QiniuStore) Delete(ctx context.Context, dir, name string) error {
	if err := s.manager.Delete(s.cfg.Bucket, objectKey(s.cfg.BasePath, dir, name)); err != nil {
		if isQiniuNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file from qiniu kodo: %w", err)
	}
	return nil
}

func (s *QiniuStore) Exists(ctx context.Context, dir, name string) (bool, error) {
	if _, err := s.manager.Stat(s.cfg.Bucket, objectKey(s.cfg.BasePath, dir, name)); err != nil {
		if isQiniuNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence in qiniu kodo: %w", err)
	}
	return true, nil
}

func (s *QiniuStore) Stat(ctx context.Context, dir, name string) (*ObjectInfo, error) {
	key := objectKey(s.cfg.BasePath, dir, name)
	fi, err := s.manager.Stat(s.cfg.Bucket, key)
	if err != nil {
		if isQiniuNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file info from qiniu kodo: %w", err)
	}
	return &ObjectInfo{
		Name:         name,
		Path:         relPath(s.cfg.BasePath, key),
		Size:         fi.Fsize,
		LastModified: putTime(fi.PutTime),
		ETag:         fi.Hash,
		ContentType:  fi.MimeType,
	}, nil
}

func (s *QiniuStore) List(ctx context.Context, dir string) ([]ObjectInfo, error) {
	prefix := dirPrefix(s.cfg.BasePath, dir)
	items := []ObjectInfo{}
	marker := ""
	for {
		entries, prefixes, nextMarker, hasNext, err := s.manager.ListFiles(s.cfg.Bucket, prefix, "/", marker, 1000)
		if err != nil {
			return nil, fmt.Errorf("failed to list files from qiniu kodo: %w", err)
		}

		for _, p := range prefixes {
			items = append(items, ObjectInfo{
				Name:  path.Base(strings.TrimSuffix(p, "/")),
				Path:  relPath(s.cfg.BasePath, p),
				IsDir: true,
			})
		}
		for _, entry := range entries {
			items = append(items, ObjectInfo{
				Name:         path.Base(entry.Key),
				Path:         relPath(s.cfg.BasePath, entry.Key),
				Size:         entry.Fsize,
				LastModified: putTime(entry.PutTime),
				ETag:         entry.Hash,
				ContentType:  entry.MimeType,
			})
		}

		if !hasNext {
			break
		}
		marker = nextMarker
	}
	return items, nil
}

// Open 通过私有下载链接读取
func (s *QiniuStore) Open(ctx context.Context, dir, name string) (io.ReadCloser, error) {
	deadline := time.Now().Add(time.Hour).Unix()
	privateURL := kodo.MakePrivateURL(s.mac, s.cfg.PublicURL, objectKey(s.cfg.BasePath, dir, name), deadline)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, privateURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file from qiniu kodo: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download file, status: %s", resp.Status)
	}
	return resp.Body, nil
}

func (s *QiniuStore) Quota(ctx context.Context) (*QuotaInfo, error) {
	return nil, ErrQuotaUnsupported
}

func (s *QiniuStore) Ping(ctx context.Context) error {
	if _, _, _, _, err := s.manager.ListFiles(s.cfg.Bucket, "", "", "", 1); err != nil {
		return fmt.Errorf("failed to test qiniu kodo connection: %w", err)
	}
	return nil
}

func (s *QiniuStore) URL(dir, name string) string {
	return joinURL(s.cfg.PublicURL, objectKey(s.cfg.BasePath, dir, name))
}

func (s *QiniuStore) Provider() string {
	return "qiniu"
}

func (s *QiniuStore) Endpoint() string {
	return s.cfg.PublicURL
}

func isQiniuNotFound(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

// putTime 七牛 PutTime 单位为100纳秒
func putTime(v int64) time.Time {
	return time.Unix(0, v*100)
}
