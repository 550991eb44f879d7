package storage

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/studio-b12/gowebdav"

	"github.com/sumicowork/HOYODB/config"
)

// WebDAVStore WebDAV后端，对接 OpenList 等网盘挂载
type WebDAVStore struct {
	client     *gowebdav.Client
	httpClient *http.Client
	cfg        config.StorageConfig
}

// NewWebDAVStore 创建WebDAV存储客户端
func NewWebDAVStore(cfg config.StorageConfig) (*WebDAVStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav url is required")
	}

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
	client.SetTimeout(timeout(cfg))

	return &WebDAVStore{
		client:     client,
		httpClient: &http.Client{Timeout: timeout(cfg)},
		cfg:        cfg,
	}, nil
}

// Upload 先递归创建目录再写入文件
func (s *WebDAVStore) Upload(ctx context.Context, dir, name string, r io.Reader, size int64, contentType string) (string, error) {
	dirPath := fullPath(s.cfg.BasePath, dir)
	if err := s.client.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create webdav directory %s: %w", dirPath, err)
	}

	filePath := path.Join(dirPath, name)
	if err := s.client.WriteStream(filePath, r, 0644); err != nil {
		return "", fmt.Errorf("failed to upload file to webdav: %w", err)
	}

	return s.URL(dir, name), nil
}

// Delete 删除文件，不存在时直接返回
func (s *WebDAVStore) Delete(ctx context.Context, dir, name string) error {
	filePath := fullPath(s.cfg.BasePath, dir, name)
	exists, err := s.exists(filePath)
	if err != nil {
		return fmt.Errorf("failed to check webdav file: %w", err)
	}
	if !exists {
		return nil
	}
	if err := s.client.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file from webdav: %w", err)
	}
	return nil
}

func (s *WebDAVStore) Exists(ctx context.Context, dir, name string) (bool, error) {
	return s.exists(fullPath(s.cfg.BasePath, dir, name))
}

func (s *WebDAVStore) exists(p string) (bool, error) {
	if _, err := s.client.Stat(p); err != nil {
		if gowebdav.IsErrNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *WebDAVStore) Stat(ctx context.Context, dir, name string) (*ObjectInfo, error) {
	filePath := fullPath(s.cfg.BasePath, dir, name)
	fi, err := s.client.Stat(filePath)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat webdav file: %w", err)
	}
	info := &ObjectInfo{
		Name:         fi.Name(),
		Path:         relPath(s.cfg.BasePath, filePath),
		Size:         fi.Size(),
		IsDir:        fi.IsDir(),
		LastModified: fi.ModTime(),
	}
	if f, ok := fi.(*gowebdav.File); ok {
		info.ETag = strings.Trim(f.ETag(), "\"")
		info.ContentType = f.ContentType()
	}
	return info, nil
}

// List 列出目录，目录不存在时返回空列表
func (s *WebDAVStore) List(ctx context.Context, dir string) ([]ObjectInfo, error) {
	dirPath := fullPath(s.cfg.BasePath, dir)
	entries, err := s.client.ReadDir(dirPath)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return []ObjectInfo{}, nil
		}
		return nil, fmt.Errorf("failed to list webdav directory: %w", err)
	}

	items := make([]ObjectInfo, 0, len(entries))
	for _, fi := range entries {
		items = append(items, ObjectInfo{
			Name:         fi.Name(),
			Path:         relPath(s.cfg.BasePath, path.Join(dirPath, fi.Name())),
			Size:         fi.Size(),
			IsDir:        fi.IsDir(),
			LastModified: fi.ModTime(),
		})
	}
	return items, nil
}

func (s *WebDAVStore) Open(ctx context.Context, dir, name string) (io.ReadCloser, error) {
	rc, err := s.client.ReadStream(fullPath(s.cfg.BasePath, dir, name))
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read webdav file: %w", err)
	}
	return rc, nil
}

// Quota 通过 PROPFIND 读取 RFC 4331 配额属性
func (s *WebDAVStore) Quota(ctx context.Context) (*QuotaInfo, error) {
	body := `<?xml version="1.0" encoding="utf-8"?>` +
		`<d:propfind xmlns:d="DAV:"><d:prop><d:quota-used-bytes/><d:quota-available-bytes/></d:prop></d:propfind>`

	req, err := http.NewRequestWithContext(ctx, "PROPFIND", joinURL(s.cfg.URL, "/"), strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.cfg.Username, s.cfg.Password)
	req.Header.Set("Depth", "0")
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query webdav quota: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMultiStatus && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to query webdav quota, status: %s", resp.Status)
	}
	return parseQuota(resp.Body)
}

type quotaMultistatus struct {
	Responses []struct {
		Propstat []struct {
			Prop struct {
				Used      string `xml:"quota-used-bytes"`
				Available string `xml:"quota-available-bytes"`
			} `xml:"prop"`
		} `xml:"propstat"`
	} `xml:"response"`
}

// parseQuota 解析 multistatus 响应，两项配额都缺失时视为不支持
func parseQuota(r io.Reader) (*QuotaInfo, error) {
	var ms quotaMultistatus
	if err := xml.NewDecoder(r).Decode(&ms); err != nil {
		return nil, fmt.Errorf("failed to decode webdav quota: %w", err)
	}

	var used, available string
	for _, resp := range ms.Responses {
		for _, ps := range resp.Propstat {
			if ps.Prop.Used != "" {
				used = ps.Prop.Used
			}
			if ps.Prop.Available != "" {
				available = ps.Prop.Available
			}
		}
	}
	if used == "" && available == "" {
		return nil, ErrQuotaUnsupported
	}

	u, err := quotaBytes("quota-used-bytes", used)
	if err != nil {
		return nil, err
	}
	a, err := quotaBytes("quota-available-bytes", available)
	if err != nil {
		return nil, err
	}
	return &QuotaInfo{Used: u, Available: a}, nil
}

// quotaBytes 缺失的属性记为0
func quotaBytes(prop, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid webdav %s: %q", prop, raw)
	}
	return n, nil
}

func (s *WebDAVStore) Ping(ctx context.Context) error {
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect webdav: %w", err)
	}
	return nil
}

// URL OpenList 公开地址格式：{publicURL}{basePath}/{dir}/{name}
func (s *WebDAVStore) URL(dir, name string) string {
	return joinURL(s.cfg.PublicURL, fullPath(s.cfg.BasePath, dir, name))
}

func (s *WebDAVStore) Provider() string {
	return "webdav"
}

func (s *WebDAVStore) Endpoint() string {
	return s.cfg.URL
}
