// Package material 提供素材的查询、管理与下载记录
package material

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sumicowork/HOYODB/internal/database"
	apperrors "github.com/sumicowork/HOYODB/internal/errors"
)

// 列表排序方式
const (
	SortLatest  = "latest"  // 按上传时间倒序
	SortPopular = "popular" // 按下载次数倒序
)

// MaterialService 素材服务接口
type MaterialService interface {
	// ListPublic 前台素材列表，只返回已发布素材
	// 参数:
	//   filter - 筛选条件，其中的 Status 会被忽略
	// 返回:
	//   *PageResult - 分页结果
	//   error - 错误信息
	ListPublic(ctx context.Context, filter ListFilter) (*PageResult, error)

	// ListAdmin 管理端素材列表，支持按状态筛选，按创建时间倒序
	ListAdmin(ctx context.Context, filter ListFilter) (*PageResult, error)

	// GetPublic 获取已发布素材详情，未发布视为不存在
	GetPublic(ctx context.Context, id uint) (*database.Material, error)

	// Get 获取任意状态的素材详情
	Get(ctx context.Context, id uint) (*database.Material, error)

	// CreateMaterial 创建素材
	// 参数:
	//   req - 创建请求，tagIds 中的标签必须全部存在
	// 返回:
	//   *database.Material - 附带游戏、分类与标签的素材
	//   error - 错误信息
	CreateMaterial(ctx context.Context, req *CreateMaterialRequest) (*database.Material, error)

	// UpdateMaterial 部分更新素材
	// 参数:
	//   id - 素材ID
	//   req - 更新请求，提供 tagIds 时整体替换标签
	// 返回:
	//   *database.Material - 更新后的素材
	//   error - 错误信息
	UpdateMaterial(ctx context.Context, id uint, req *UpdateMaterialRequest) (*database.Material, error)

	// DeleteMaterial 删除素材及其标签关联，下载日志保留
	DeleteMaterial(ctx context.Context, id uint) error

	// RecordDownload 记录一次下载
	// 下载次数加一与写入下载日志在同一事务内完成
	// 参数:
	//   id - 素材ID
	//   ip - 请求方IP
	//   userAgent - 请求方UA
	// 返回:
	//   error - 素材不存在时返回未找到错误
	RecordDownload(ctx context.Context, id uint, ip, userAgent string) error
}

// ListFilter 素材列表筛选条件
type ListFilter struct {
	GameID     *uint
	CategoryID *uint
	TagID      *uint
	Search     string
	Featured   *bool
	Status     database.MaterialStatus
	Sort       string
	Page       int
	Limit      int
}

// Pagination 分页信息
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination 计算总页数
func NewPagination(page, limit int, total int64) Pagination {
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

// PageResult 分页查询结果
type PageResult struct {
	Materials  []database.Material
	Pagination Pagination
}

// FileSize 文件大小，JSON 中可以是数字或十进制字符串
type FileSize int64

// UnmarshalJSON 实现json.Unmarshaler
func (f *FileSize) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		if v < 0 || v != math.Trunc(v) {
			return fmt.Errorf("invalid fileSize: %v", v)
		}
		*f = FileSize(v)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid fileSize: %q", v)
		}
		*f = FileSize(n)
	default:
		return fmt.Errorf("invalid fileSize: %s", string(data))
	}
	return nil
}

// CreateMaterialRequest 创建素材请求
type CreateMaterialRequest struct {
	GameID      uint                    `json:"gameId"`
	CategoryID  uint                    `json:"categoryId"`
	Title       string                  `json:"title" binding:"max=200"`
	Description *string                 `json:"description"`
	FilePath    string                  `json:"filePath" binding:"max=1000"`
	FileSize    *FileSize               `json:"fileSize"`
	FileType    string                  `json:"fileType" binding:"max=100"`
	Duration    *int                    `json:"duration"`
	Resolution  *string                 `json:"resolution" binding:"omitempty,max=50"`
	Version     *string                 `json:"version" binding:"omitempty,max=50"`
	Status      database.MaterialStatus `json:"status"`
	IsFeatured  bool                    `json:"isFeatured"`
	TagIDs      []uint                  `json:"tagIds"`
}

// UpdateMaterialRequest 更新素材请求，未提供的字段保持不变
type UpdateMaterialRequest struct {
	Title       *string                  `json:"title" binding:"omitempty,max=200"`
	Description *string                  `json:"description"`
	Duration    *int                     `json:"duration"`
	Resolution  *string                  `json:"resolution" binding:"omitempty,max=50"`
	Version     *string                  `json:"version" binding:"omitempty,max=50"`
	Status      *database.MaterialStatus `json:"status"`
	IsFeatured  *bool                    `json:"isFeatured"`
	TagIDs      *[]uint                  `json:"tagIds"`
}

// Service 素材服务实现
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService 创建素材服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// ListPublic 前台素材列表
func (s *Service) ListPublic(ctx context.Context, filter ListFilter) (*PageResult, error) {
	filter.Status = database.StatusPublished
	order := "materials.upload_time DESC, materials.id DESC"
	if filter.Sort == SortPopular {
		order = "materials.download_count DESC, materials.id DESC"
	}
	return s.list(ctx, filter, order)
}

// ListAdmin 管理端素材列表
func (s *Service) ListAdmin(ctx context.Context, filter ListFilter) (*PageResult, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "无效的素材状态")
	}
	return s.list(ctx, filter, "materials.created_at DESC, materials.id DESC")
}

func (s *Service) list(ctx context.Context, filter ListFilter, order string) (*PageResult, error) {
	page, limit := database.NormalizePage(filter.Page, filter.Limit)
	q := applyFilter(s.db.WithContext(ctx).Model(&database.Material{}), filter).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取素材总数失败", err)
	}

	materials := make([]database.Material, 0)
	if err := withRelations(q).
		Order(order).
		Scopes(database.Paginate(page, limit)).
		Find(&materials).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取素材列表失败", err)
	}

	return &PageResult{
		Materials:  materials,
		Pagination: NewPagination(page, limit, total),
	}, nil
}

func applyFilter(q *gorm.DB, filter ListFilter) *gorm.DB {
	if filter.Status != "" {
		q = q.Where("materials.status = ?", filter.Status)
	}
	if filter.GameID != nil {
		q = q.Where("materials.game_id = ?", *filter.GameID)
	}
	if filter.CategoryID != nil {
		q = q.Where("materials.category_id = ?", *filter.CategoryID)
	}
	if filter.TagID != nil {
		q = q.Where("EXISTS (SELECT 1 FROM material_tags mt WHERE mt.material_id = materials.id AND mt.tag_id = ?)", *filter.TagID)
	}
	if filter.Featured != nil && *filter.Featured {
		q = q.Where("materials.is_featured = ?", true)
	}
	return q.Scopes(database.SearchTitleOrDescription(filter.Search))
}

// withRelations 预加载游戏、分类与标签
func withRelations(q *gorm.DB) *gorm.DB {
	return q.Preload("Game").
		Preload("Category").
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("material_tags.created_at ASC, material_tags.tag_id ASC")
		}).
		Preload("Tags.Tag")
}

// GetPublic 获取已发布素材
func (s *Service) GetPublic(ctx context.Context, id uint) (*database.Material, error) {
	material, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if material.Status != database.StatusPublished {
		return nil, apperrors.New(apperrors.ErrMaterialNotFound, "素材不存在")
	}
	return material, nil
}

// Get 获取素材详情
func (s *Service) Get(ctx context.Context, id uint) (*database.Material, error) {
	return s.get(s.db.WithContext(ctx), id)
}

func (s *Service) get(db *gorm.DB, id uint) (*database.Material, error) {
	var material database.Material
	if err := withRelations(db).First(&material, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrMaterialNotFound, "素材不存在")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取素材失败", err)
	}
	return &material, nil
}

// CreateMaterial 创建素材
func (s *Service) CreateMaterial(ctx context.Context, req *CreateMaterialRequest) (*database.Material, error) {
	title := strings.TrimSpace(req.Title)
	if req.GameID == 0 || req.CategoryID == 0 || title == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "游戏ID、分类ID和标题不能为空")
	}
	if req.FilePath == "" || req.FileSize == nil || req.FileType == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "文件路径、大小和类型不能为空")
	}

	status := req.Status
	if status == "" {
		status = database.StatusPublished
	}
	if !status.Valid() {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "无效的素材状态")
	}
	tagIDs := uniqueIDs(req.TagIDs)

	material := &database.Material{
		GameID:      req.GameID,
		CategoryID:  req.CategoryID,
		Title:       title,
		Description: req.Description,
		FilePath:    req.FilePath,
		FileSize:    int64(*req.FileSize),
		FileType:    req.FileType,
		Duration:    req.Duration,
		Resolution:  req.Resolution,
		Version:     req.Version,
		Status:      status,
		IsFeatured:  req.IsFeatured,
		UploadTime:  s.now(),
	}
	for _, tagID := range tagIDs {
		material.Tags = append(material.Tags, database.MaterialTag{TagID: tagID})
	}

	// 关联数据在事务内读取，读取失败时不留下已提交的记录
	var created *database.Material
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkGameCategory(tx, req.GameID, req.CategoryID); err != nil {
			return err
		}
		if err := checkTags(tx, tagIDs); err != nil {
			return err
		}
		if err := tx.Create(material).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrDatabaseInsert, "创建素材失败", err)
		}
		var err error
		created, err = s.get(tx, material.ID)
		return err
	})
	if err != nil {
		return nil, asAppError(err, apperrors.ErrDatabaseTransaction, "创建素材失败")
	}
	return created, nil
}

// UpdateMaterial 部分更新素材
func (s *Service) UpdateMaterial(ctx context.Context, id uint, req *UpdateMaterialRequest) (*database.Material, error) {
	updates := make(map[string]interface{})
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperrors.New(apperrors.ErrInvalidParams, "标题不能为空")
		}
		updates["title"] = title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Duration != nil {
		updates["duration"] = *req.Duration
	}
	if req.Resolution != nil {
		updates["resolution"] = *req.Resolution
	}
	if req.Version != nil {
		updates["version"] = *req.Version
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, apperrors.New(apperrors.ErrInvalidParams, "无效的素材状态")
		}
		updates["status"] = *req.Status
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var material database.Material
		if err := tx.First(&material, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.ErrMaterialNotFound, "素材不存在")
			}
			return apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取素材失败", err)
		}

		if len(updates) > 0 {
			if err := tx.Model(&material).Omit(clause.Associations).Updates(updates).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrDatabaseUpdate, "更新素材失败", err)
			}
		}

		if req.TagIDs != nil {
			return replaceTags(tx, id, uniqueIDs(*req.TagIDs))
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, apperrors.ErrDatabaseTransaction, "更新素材失败")
	}

	return s.Get(ctx, id)
}

// replaceTags 整体替换素材标签
func replaceTags(tx *gorm.DB, materialID uint, tagIDs []uint) error {
	if err := checkTags(tx, tagIDs); err != nil {
		return err
	}
	if err := tx.Where("material_id = ?", materialID).Delete(&database.MaterialTag{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseDelete, "清除素材标签失败", err)
	}
	if len(tagIDs) == 0 {
		return nil
	}

	links := make([]database.MaterialTag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		links = append(links, database.MaterialTag{MaterialID: materialID, TagID: tagID})
	}
	if err := tx.Omit(clause.Associations).Create(&links).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseInsert, "写入素材标签失败", err)
	}
	return nil
}

// DeleteMaterial 删除素材
func (s *Service) DeleteMaterial(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var material database.Material
		if err := tx.First(&material, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.ErrMaterialNotFound, "素材不存在")
			}
			return apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取素材失败", err)
		}
		if err := tx.Where("material_id = ?", id).Delete(&database.MaterialTag{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrDatabaseDelete, "删除素材标签失败", err)
		}
		if err := tx.Delete(&material).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrDatabaseDelete, "删除素材失败", err)
		}
		return nil
	})
	return asAppError(err, apperrors.ErrDatabaseTransaction, "删除素材失败")
}

// RecordDownload 记录下载
func (s *Service) RecordDownload(ctx context.Context, id uint, ip, userAgent string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&database.Material{}).
			Where("id = ?", id).
			UpdateColumn("download_count", gorm.Expr("download_count + ?", 1))
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrDatabaseUpdate, "更新下载次数失败", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.New(apperrors.ErrMaterialNotFound, "素材不存在")
		}

		log := &database.DownloadLog{
			MaterialID: id,
			IP:         truncate(ip, 64),
			UserAgent:  truncate(userAgent, 500),
		}
		if err := tx.Create(log).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrDatabaseInsert, "写入下载日志失败", err)
		}
		return nil
	})
	return asAppError(err, apperrors.ErrDatabaseTransaction, "记录下载失败")
}

// checkGameCategory 游戏与分类须存在，且分类属于该游戏
func checkGameCategory(tx *gorm.DB, gameID, categoryID uint) error {
	var gameCount int64
	if err := tx.Model(&database.Game{}).Where("id = ?", gameID).Count(&gameCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseQuery, "检查游戏失败", err)
	}
	if gameCount == 0 {
		return apperrors.New(apperrors.ErrGameNotFound, "游戏不存在")
	}

	var category database.Category
	if err := tx.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.ErrCategoryNotFound, "分类不存在")
		}
		return apperrors.Wrap(apperrors.ErrDatabaseQuery, "检查分类失败", err)
	}
	if category.GameID != gameID {
		return apperrors.New(apperrors.ErrCategoryGameMismatch, "分类不属于该游戏")
	}
	return nil
}

// checkTags 标签须全部存在
func checkTags(tx *gorm.DB, tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return nil
	}
	var count int64
	if err := tx.Model(&database.Tag{}).Where("id IN ?", tagIDs).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseQuery, "检查标签失败", err)
	}
	if count != int64(len(tagIDs)) {
		return apperrors.New(apperrors.ErrTagNotFound, "部分标签不存在")
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// asAppError 事务返回的非应用错误统一包装
func asAppError(err error, code apperrors.ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.GetAppError(err); ok {
		return err
	}
	return apperrors.Wrap(code, message, err)
}

// truncate 按字节截断，不拆开多字节字符
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
