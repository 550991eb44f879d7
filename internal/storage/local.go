package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/sumicowork/HOYODB/config"
)

// LocalStore 本地磁盘后端，用于开发与单机部署
type LocalStore struct {
	root string
	cfg  config.StorageConfig
}

// NewLocalStore 创建本地存储，根目录不存在时自动创建
func NewLocalStore(cfg config.StorageConfig) (*LocalStore, error) {
	if cfg.LocalRoot == "" {
		return nil, fmt.Errorf("local storage root is required")
	}
	if err := os.MkdirAll(cfg.LocalRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{root: cfg.LocalRoot, cfg: cfg}, nil
}

// Root 本地根目录
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) abs(elems ...string) string {
	return filepath.Join(s.root, filepath.FromSlash(fullPath(s.cfg.BasePath, elems...)))
}

func (s *LocalStore) Upload(ctx context.Context, dir, name string, r io.Reader, size int64, contentType string) (string, error) {
	dirPath := s.abs(dir)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	filePath := filepath.Join(dirPath, name)
	dst, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(filePath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return s.URL(dir, name), nil
}

func (s *LocalStore) Delete(ctx context.Context, dir, name string) error {
	if err := os.Remove(s.abs(dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStore) Exists(ctx context.Context, dir, name string) (bool, error) {
	_, err := os.Stat(s.abs(dir, name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *LocalStore) Stat(ctx context.Context, dir, name string) (*ObjectInfo, error) {
	fi, err := os.Stat(s.abs(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ObjectInfo{
		Name:         fi.Name(),
		Path:         relPath(s.cfg.BasePath, fullPath(s.cfg.BasePath, dir, name)),
		Size:         fi.Size(),
		IsDir:        fi.IsDir(),
		LastModified: fi.ModTime(),
	}, nil
}

func (s *LocalStore) List(ctx context.Context, dir string) ([]ObjectInfo, error) {
	entries, err := os.ReadDir(s.abs(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return []ObjectInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	items := make([]ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		items = append(items, ObjectInfo{
			Name:         fi.Name(),
			Path:         path.Join(relPath(s.cfg.BasePath, fullPath(s.cfg.BasePath, dir)), fi.Name()),
			Size:         fi.Size(),
			IsDir:        fi.IsDir(),
			LastModified: fi.ModTime(),
		})
	}
	return items, nil
}

func (s *LocalStore) Open(ctx context.Context, dir, name string) (io.ReadCloser, error) {
	f, err := os.Open(s.abs(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *LocalStore) Quota(ctx context.Context) (*QuotaInfo, error) {
	return nil, ErrQuotaUnsupported
}

func (s *LocalStore) Ping(ctx context.Context) error {
	fi, err := os.Stat(s.root)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", s.root)
	}
	return nil
}

func (s *LocalStore) URL(dir, name string) string {
	return joinURL(s.cfg.PublicURL, fullPath(s.cfg.BasePath, dir, name))
}

func (s *LocalStore) Provider() string {
	return "local"
}

func (s *LocalStore) Endpoint() string {
	return s.root
}
