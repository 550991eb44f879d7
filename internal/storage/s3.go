package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sumicowork/HOYODB/config"
)

// S3Store S3兼容后端（AWS S3、MinIO、Cloudflare R2）
type S3Store struct {
	client *s3.Client
	cfg    config.StorageConfig
}

// NewS3Store 创建S3存储客户端，URL 非空时作为自定义 endpoint
func NewS3Store(cfg config.StorageConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	client := s3.New(s3.Options{
		HTTPClient: &http.Client{Timeout: timeout(cfg)},
	}, func(o *s3.Options) {
		o.Region = region
		o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		if cfg.URL != "" {
			o.BaseEndpoint = aws.String(cfg.URL)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &S3Store{client: client, cfg: cfg}, nil
}

func (s *S3Store) Upload(ctx context.Context, dir, name string, r io.Reader, size int64, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(objectKey(s.cfg.BasePath, dir, name)),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload file to s3: %w", err)
	}
	return s.URL(dir, name), nil
}

// Delete S3 删除不存在的对象同样返回成功
func (s *S3Store) Delete(ctx context.Context, dir, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(objectKey(s.cfg.BasePath, dir, name)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from s3: %w", err)
	}
	return nil
}

func (s *S3Store) Exists(ctx context.Context, dir, name string) (bool, error) {
	_, err := s.Stat(ctx, dir, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *S3Store) Stat(ctx context.Context, dir, name string) (*ObjectInfo, error) {
	key := objectKey(s.cfg.BasePath, dir, name)
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file info from s3: %w", err)
	}

	info := &ObjectInfo{
		Name:        name,
		Path:        relPath(s.cfg.BasePath, key),
		Size:        aws.ToInt64(out.ContentLength),
		ETag:        strings.Trim(aws.ToString(out.ETag), "\""),
		ContentType: aws.ToString(out.ContentType),
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return info, nil
}

func (s *S3Store) List(ctx context.Context, dir string) ([]ObjectInfo, error) {
	prefix := dirPrefix(s.cfg.BasePath, dir)
	items := []ObjectInfo{}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.cfg.Bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list files from s3: %w", err)
		}
		for _, cp := range page.CommonPrefixes {
			p := aws.ToString(cp.Prefix)
			items = append(items, ObjectInfo{
				Name:  path.Base(strings.TrimSuffix(p, "/")),
				Path:  relPath(s.cfg.BasePath, p),
				IsDir: true,
			})
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix {
				continue
			}
			item := ObjectInfo{
				Name: path.Base(key),
				Path: relPath(s.cfg.BasePath, key),
				Size: aws.ToInt64(obj.Size),
				ETag: strings.Trim(aws.ToString(obj.ETag), "\""),
			}
			if obj.LastModified != nil {
				item.LastModified = *obj.LastModified
			}
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *S3Store) Open(ctx context.Context, dir, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(objectKey(s.cfg.BasePath, dir, name)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download file from s3: %w", err)
	}
	return out.Body, nil
}

func (s *S3Store) Quota(ctx context.Context) (*QuotaInfo, error) {
	return nil, ErrQuotaUnsupported
}

func (s *S3Store) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)}); err != nil {
		return fmt.Errorf("failed to test s3 connection: %w", err)
	}
	return nil
}

func (s *S3Store) URL(dir, name string) string {
	key := objectKey(s.cfg.BasePath, dir, name)
	if s.cfg.PublicURL != "" {
		return joinURL(s.cfg.PublicURL, key)
	}
	if s.cfg.URL != "" {
		return joinURL(s.cfg.URL, path.Join(s.cfg.Bucket, key))
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

func (s *S3Store) Provider() string {
	return "s3"
}

func (s *S3Store) Endpoint() string {
	if s.cfg.URL != "" {
		return s.cfg.URL
	}
	return fmt.Sprintf("s3.%s.amazonaws.com", s.cfg.Region)
}

func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}
