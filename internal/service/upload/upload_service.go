// Package upload 负责素材文件的上传与存储维护
// 带文件创建素材时先写对象存储再写数据库，数据库写入失败则删除刚上传的文件
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sumicowork/HOYODB/internal/database"
	apperrors "github.com/sumicowork/HOYODB/internal/errors"
	"github.com/sumicowork/HOYODB/internal/logger"
	"github.com/sumicowork/HOYODB/internal/service/material"
	"github.com/sumicowork/HOYODB/internal/storage"
)

// MaterialCreator 创建素材记录
type MaterialCreator interface {
	CreateMaterial(ctx context.Context, req *material.CreateMaterialRequest) (*database.Material, error)
}

// UploadService 上传服务接口
type UploadService interface {
	// CreateMaterialWithUpload 上传文件并创建素材
	// 数据库写入失败时删除刚上传的文件，返回数据库错误
	CreateMaterialWithUpload(ctx context.Context, req *CreateWithUploadRequest) (*database.Material, error)

	// UploadFile 上传单个文件到 {gameSlug}[/{categorySlug}]
	UploadFile(ctx context.Context, gameSlug, categorySlug string, file *FilePayload) (*UploadResult, error)

	// UploadBatch 批量上传
	UploadBatch(ctx context.Context, gameSlug, categorySlug string, files []*FilePayload) (*BatchResult, error)

	// DeleteFile 删除文件
	DeleteFile(ctx context.Context, dir, filename string) error

	// List 列出目录
	List(ctx context.Context, dir string) ([]FileEntry, error)

	// StorageInfo 查询存储空间，不支持时返回nil
	StorageInfo(ctx context.Context) (*StorageInfo, error)

	// Status 检查存储连接
	Status(ctx context.Context) *Status
}

// FilePayload 待上传的文件
type FilePayload struct {
	Name        string    // 原始文件名，仅用于取扩展名
	Size        int64     // 字节数
	ContentType string    // MIME类型
	Body        io.Reader // 文件内容
}

// CreateWithUploadRequest 带文件创建素材请求
// 未携带文件时 FilePath、FileSize、FileType 必须全部提供
type CreateWithUploadRequest struct {
	GameID       uint
	GameSlug     string
	CategoryID   uint
	CategorySlug string
	Title        string
	Description  *string
	Duration     *int
	Resolution   *string
	Version      *string
	IsFeatured   bool
	Status       database.MaterialStatus
	TagIDs       []uint

	File *FilePayload

	FilePath string
	FileSize *int64
	FileType string
}

// UploadResult 单个文件上传结果
type UploadResult struct {
	URL          string `json:"url"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
	Path         string `json:"path"`
}

// FailedUpload 批量上传中失败的文件
type FailedUpload struct {
	OriginalName string `json:"originalName"`
	Error        string `json:"error"`
}

// BatchResult 批量上传结果
type BatchResult struct {
	Uploaded     []UploadResult `json:"uploaded"`
	Failed       []FailedUpload `json:"failed"`
	Total        int            `json:"total"`
	SuccessCount int            `json:"successCount"`
	FailedCount  int            `json:"failedCount"`
}

// FileEntry 目录列表项
type FileEntry struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"` // file 或 directory
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	Path         string    `json:"path"`
}

// StorageInfo 存储空间
type StorageInfo struct {
	Used               int64  `json:"used"`
	Available          int64  `json:"available"`
	UsedFormatted      string `json:"usedFormatted"`
	AvailableFormatted string `json:"availableFormatted"`
}

// Status 存储连接状态
type Status struct {
	Connected bool   `json:"connected"`
	Provider  string `json:"provider"`
	Endpoint  string `json:"endpoint"`
	Error     string `json:"error,omitempty"`
}

// Options 上传限制
type Options struct {
	MaxFileSize  int64
	MaxBatch     int
	AllowedMimes []string
}

// Service 上传服务
type Service struct {
	store     storage.ObjectStore
	materials MaterialCreator
	opts      Options
	allowed   map[string]struct{}
	now       func() time.Time
	token     func() string
}

// NewService 创建上传服务
// 参数:
//   store - 对象存储客户端
//   materials - 素材创建者
//   opts - 上传限制，AllowedMimes 为空时不限制类型
func NewService(store storage.ObjectStore, materials MaterialCreator, opts Options) *Service {
	allowed := make(map[string]struct{}, len(opts.AllowedMimes))
	for _, m := range opts.AllowedMimes {
		allowed[strings.ToLower(m)] = struct{}{}
	}
	return &Service{
		store:     store,
		materials: materials,
		opts:      opts,
		allowed:   allowed,
		now:       time.Now,
		token:     storage.RandomToken,
	}
}

// CreateMaterialWithUpload 上传文件并创建素材
// 参数:
//   req - 创建请求
// 返回:
//   *database.Material - 附带游戏、分类与标签的素材
//   error - 校验、上传或创建失败时的错误；创建失败时返回创建错误
func (s *Service) CreateMaterialWithUpload(ctx context.Context, req *CreateWithUploadRequest) (*database.Material, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	create := &material.CreateMaterialRequest{
		GameID:      req.GameID,
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		FilePath:    req.FilePath,
		FileType:    req.FileType,
		Duration:    req.Duration,
		Resolution:  req.Resolution,
		Version:     req.Version,
		Status:      req.Status,
		IsFeatured:  req.IsFeatured,
		TagIDs:      req.TagIDs,
	}
	if req.FileSize != nil {
		size := material.FileSize(*req.FileSize)
		create.FileSize = &size
	}

	if req.File == nil {
		return s.materials.CreateMaterial(ctx, create)
	}

	dir := storage.TargetDir(req.GameSlug, req.CategorySlug)
	name := storage.ObjectName(s.now(), s.token(), req.File.Name)
	url, err := s.store.Upload(ctx, dir, name, req.File.Body, req.File.Size, req.File.ContentType)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUploadFailed, "文件上传失败", err)
	}

	size := material.FileSize(req.File.Size)
	create.FilePath = url
	create.FileSize = &size
	create.FileType = req.File.ContentType

	created, err := s.materials.CreateMaterial(ctx, create)
	if err != nil {
		s.compensate(ctx, dir, name, err)
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"material_id": created.ID,
		"path":        path.Join(dir, name),
		"size":        req.File.Size,
	}).Info("素材文件上传完成")
	return created, nil
}

// compensate 删除已上传的孤儿文件，只尝试一次
func (s *Service) compensate(ctx context.Context, dir, name string, cause error) {
	entry := logger.WithFields(logrus.Fields{
		"path":  path.Join(dir, name),
		"cause": cause.Error(),
	})

	if err := s.store.Delete(context.WithoutCancel(ctx), dir, name); err != nil {
		entry.WithError(err).Error("素材创建失败，回滚删除已上传文件失败，需人工清理")
		return
	}
	entry.Warn("素材创建失败，已删除已上传文件")
}

func (s *Service) validate(req *CreateWithUploadRequest) error {
	if req.GameID == 0 || req.CategoryID == 0 || strings.TrimSpace(req.Title) == "" {
		return apperrors.New(apperrors.ErrInvalidParams, "游戏ID、分类ID和标题不能为空")
	}
	if req.Status != "" && !req.Status.Valid() {
		return apperrors.New(apperrors.ErrInvalidParams, "无效的素材状态")
	}

	if req.File == nil {
		if req.FilePath == "" || req.FileSize == nil || req.FileType == "" {
			return apperrors.New(apperrors.ErrFileMissing, "必须上传文件或提供文件路径、大小和类型")
		}
		if *req.FileSize < 0 {
			return apperrors.New(apperrors.ErrInvalidParams, "文件大小无效")
		}
		return nil
	}

	if err := validateTarget(req.GameSlug, req.CategorySlug); err != nil {
		return err
	}
	return s.validateFile(req.File)
}

func validateTarget(gameSlug, categorySlug string) error {
	if gameSlug == "" {
		return apperrors.New(apperrors.ErrInvalidParams, "缺少游戏标识")
	}
	if !storage.ValidSegment(gameSlug) || (categorySlug != "" && !storage.ValidSegment(categorySlug)) {
		return apperrors.New(apperrors.ErrInvalidParams, "游戏或分类标识不合法")
	}
	return nil
}

func (s *Service) validateFile(file *FilePayload) error {
	if file.Body == nil {
		return apperrors.New(apperrors.ErrFileMissing, "没有上传文件")
	}
	if s.opts.MaxFileSize > 0 && file.Size > s.opts.MaxFileSize {
		return apperrors.New(apperrors.ErrFileSizeTooLarge, fmt.Sprintf("文件大小超过限制: %s", FormatBytes(s.opts.MaxFileSize)))
	}
	if len(s.allowed) > 0 {
		if _, ok := s.allowed[strings.ToLower(file.ContentType)]; !ok {
			return apperrors.New(apperrors.ErrFileTypeNotAllowed, fmt.Sprintf("不支持的文件类型: %s", file.ContentType))
		}
	}
	return nil
}

// UploadFile 上传单个文件，不写数据库
func (s *Service) UploadFile(ctx context.Context, gameSlug, categorySlug string, file *FilePayload) (*UploadResult, error) {
	if file == nil {
		return nil, apperrors.New(apperrors.ErrFileMissing, "没有上传文件")
	}
	if err := validateTarget(gameSlug, categorySlug); err != nil {
		return nil, err
	}
	if err := s.validateFile(file); err != nil {
		return nil, err
	}
	return s.put(ctx, storage.TargetDir(gameSlug, categorySlug), file)
}

// UploadBatch 批量上传，单个文件失败不影响其他文件
func (s *Service) UploadBatch(ctx context.Context, gameSlug, categorySlug string, files []*FilePayload) (*BatchResult, error) {
	if len(files) == 0 {
		return nil, apperrors.New(apperrors.ErrFileMissing, "没有上传文件")
	}
	if s.opts.MaxBatch > 0 && len(files) > s.opts.MaxBatch {
		return nil, apperrors.New(apperrors.ErrTooManyFiles, fmt.Sprintf("单次最多上传 %d 个文件", s.opts.MaxBatch))
	}
	if err := validateTarget(gameSlug, categorySlug); err != nil {
		return nil, err
	}

	dir := storage.TargetDir(gameSlug, categorySlug)
	result := &BatchResult{
		Uploaded: make([]UploadResult, 0, len(files)),
		Failed:   make([]FailedUpload, 0),
		Total:    len(files),
	}
	for _, file := range files {
		err := s.validateFile(file)
		var uploaded *UploadResult
		if err == nil {
			uploaded, err = s.put(ctx, dir, file)
		}
		if err != nil {
			result.Failed = append(result.Failed, FailedUpload{OriginalName: file.Name, Error: errorMessage(err)})
			continue
		}
		result.Uploaded = append(result.Uploaded, *uploaded)
	}
	result.SuccessCount = len(result.Uploaded)
	result.FailedCount = len(result.Failed)
	return result, nil
}

func (s *Service) put(ctx context.Context, dir string, file *FilePayload) (*UploadResult, error) {
	name := storage.ObjectName(s.now(), s.token(), file.Name)
	url, err := s.store.Upload(ctx, dir, name, file.Body, file.Size, file.ContentType)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUploadFailed, "文件上传失败", err)
	}
	return &UploadResult{
		URL:          url,
		Filename:     name,
		OriginalName: file.Name,
		Size:         file.Size,
		MimeType:     file.ContentType,
		Path:         "/" + dir,
	}, nil
}

// DeleteFile 删除文件
// 参数:
//   dir - 目录，如 /starrail/character-art
//   filename - 文件名
func (s *Service) DeleteFile(ctx context.Context, dir, filename string) error {
	if strings.TrimSpace(dir) == "" || filename == "" {
		return apperrors.New(apperrors.ErrInvalidParams, "缺少路径或文件名")
	}
	cleaned, ok := storage.CleanDir(dir)
	if !ok || !storage.ValidSegment(filename) {
		return apperrors.New(apperrors.ErrInvalidParams, "路径或文件名不合法")
	}
	if err := s.store.Delete(ctx, cleaned, filename); err != nil {
		return apperrors.Wrap(apperrors.ErrStorageDeleteFailed, "删除文件失败", err)
	}
	return nil
}

// List 列出目录
func (s *Service) List(ctx context.Context, dir string) ([]FileEntry, error) {
	cleaned, ok := storage.CleanDir(dir)
	if !ok {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "路径不合法")
	}
	objects, err := s.store.List(ctx, cleaned)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageListFailed, "列出目录失败", err)
	}

	entries := make([]FileEntry, 0, len(objects))
	for _, obj := range objects {
		entryType := "file"
		if obj.IsDir {
			entryType = "directory"
		}
		entries = append(entries, FileEntry{
			Name:         obj.Name,
			Type:         entryType,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			Path:         "/" + obj.Path,
		})
	}
	return entries, nil
}

// StorageInfo 查询存储空间，后端不支持时返回nil
func (s *Service) StorageInfo(ctx context.Context) (*StorageInfo, error) {
	quota, err := s.store.Quota(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrQuotaUnsupported) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrStorageQuotaFailed, "获取存储信息失败", err)
	}
	return &StorageInfo{
		Used:               quota.Used,
		Available:          quota.Available,
		UsedFormatted:      FormatBytes(quota.Used),
		AvailableFormatted: FormatBytes(quota.Available),
	}, nil
}

// Status 检查存储连接
func (s *Service) Status(ctx context.Context) *Status {
	status := &Status{
		Provider: s.store.Provider(),
		Endpoint: s.store.Endpoint(),
	}
	if err := s.store.Ping(ctx); err != nil {
		status.Error = err.Error()
		return status
	}
	status.Connected = true
	return status
}

// FormatBytes 字节数格式化，如 1.5 MB
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	value := float64(n)
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", value), "0"), ".")
	return s + " " + units[i]
}

func errorMessage(err error) string {
	if appErr, ok := apperrors.GetAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
