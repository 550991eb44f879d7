// Package tag 提供标签的查询与管理
// 标签按类型分组，slug 全局唯一，通过 material_tags 与素材多对多关联
package tag

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sumicowork/HOYODB/internal/database"
	apperrors "github.com/sumicowork/HOYODB/internal/errors"
)

// 标签详情中返回的已发布素材上限
const detailMaterialLimit = 20

// TagService 标签服务接口
// 定义了标签查询与管理的所有业务操作方法
type TagService interface {
	// List 获取标签列表
	// 参数:
	//   tagType - 标签类型，为空时返回全部
	// 返回:
	//   []database.Tag - 按名称升序
	//   error - 错误信息
	List(ctx context.Context, tagType database.TagType) ([]database.Tag, error)

	// GetBySlug 根据slug获取标签详情
	// 参数:
	//   slug - 标签标识
	// 返回:
	//   *database.Tag - 标签及最多20个已发布素材
	//   error - 错误信息
	GetBySlug(ctx context.Context, slug string) (*database.Tag, error)

	// ListWithCount 管理端获取标签列表，附带关联素材数
	ListWithCount(ctx context.Context, tagType database.TagType) ([]database.Tag, error)

	// Create 创建标签
	// 参数:
	//   req - 创建标签请求
	// 返回:
	//   *database.Tag - 创建的标签
	//   error - 类型非法或名称、slug重复时返回错误
	Create(ctx context.Context, req *CreateTagRequest) (*database.Tag, error)

	// Update 更新标签
	// 参数:
	//   id - 标签ID
	//   req - 更新标签请求
	// 返回:
	//   *database.Tag - 更新后的标签
	//   error - 错误信息
	Update(ctx context.Context, id uint, req *UpdateTagRequest) (*database.Tag, error)

	// Delete 删除标签
	// 参数:
	//   id - 标签ID
	// 返回:
	//   error - 仍有素材引用时返回冲突错误
	Delete(ctx context.Context, id uint) error
}

// CreateTagRequest 创建标签请求
type CreateTagRequest struct {
	Name string           `json:"name" binding:"max=50"` // 标签名称
	Slug string           `json:"slug" binding:"max=50"` // URL标识
	Type database.TagType `json:"type"`                  // 标签类型
}

// UpdateTagRequest 更新标签请求
type UpdateTagRequest struct {
	Name *string           `json:"name" binding:"omitempty,max=50"`
	Slug *string           `json:"slug" binding:"omitempty,max=50"`
	Type *database.TagType `json:"type"`
}

// Service 标签服务实现
type Service struct {
	db *gorm.DB
}

// NewService 创建标签服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List 获取标签列表
func (s *Service) List(ctx context.Context, tagType database.TagType) ([]database.Tag, error) {
	q := s.db.WithContext(ctx).Order("name ASC")
	if tagType != "" {
		q = q.Where("type = ?", tagType)
	}

	var tags []database.Tag
	if err := q.Find(&tags).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取标签列表失败", err)
	}
	return tags, nil
}

// GetBySlug 获取标签详情
func (s *Service) GetBySlug(ctx context.Context, slug string) (*database.Tag, error) {
	db := s.db.WithContext(ctx)

	var tag database.Tag
	if err := db.Where("slug = ?", slug).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrTagNotFound, "标签不存在")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取标签失败", err)
	}

	var links []database.MaterialTag
	err := db.Select("material_tags.*").
		Joins("JOIN materials ON materials.id = material_tags.material_id").
		Where("material_tags.tag_id = ? AND materials.status = ?", tag.ID, database.StatusPublished).
		Preload("Material.Game").
		Preload("Material.Category").
		Order("material_tags.created_at DESC").
		Limit(detailMaterialLimit).
		Find(&links).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取标签素材失败", err)
	}
	tag.Materials = links
	return &tag, nil
}

// ListWithCount 获取标签列表及关联素材数
func (s *Service) ListWithCount(ctx context.Context, tagType database.TagType) ([]database.Tag, error) {
	tags, err := s.List(ctx, tagType)
	if err != nil {
		return nil, err
	}

	counts, err := database.CountGroupBy(s.db.WithContext(ctx), "material_tags", "tag_id")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "统计标签素材数失败", err)
	}
	for i := range tags {
		tags[i].Count = &database.TagCount{Materials: counts[tags[i].ID]}
	}
	return tags, nil
}

// Create 创建标签
func (s *Service) Create(ctx context.Context, req *CreateTagRequest) (*database.Tag, error) {
	name := strings.TrimSpace(req.Name)
	slug := strings.TrimSpace(req.Slug)
	if name == "" || slug == "" || req.Type == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "标签名称、slug和类型不能为空")
	}
	if !req.Type.Valid() {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "无效的标签类型")
	}

	db := s.db.WithContext(ctx)
	if err := s.checkUnique(db, 0, name, slug); err != nil {
		return nil, err
	}

	tag := &database.Tag{Name: name, Slug: slug, Type: req.Type}
	if err := db.Omit(clause.Associations).Create(tag).Error; err != nil {
		if database.IsDuplicateError(err) {
			return nil, apperrors.New(apperrors.ErrSlugConflict, "标签名称或slug已存在")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseInsert, "创建标签失败", err)
	}
	return tag, nil
}

// Update 更新标签
func (s *Service) Update(ctx context.Context, id uint, req *UpdateTagRequest) (*database.Tag, error) {
	db := s.db.WithContext(ctx)
	tag, err := s.getByID(db, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	name, slug := tag.Name, tag.Slug
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.New(apperrors.ErrInvalidParams, "标签名称不能为空")
		}
		updates["name"] = name
	}
	if req.Slug != nil {
		slug = strings.TrimSpace(*req.Slug)
		if slug == "" {
			return nil, apperrors.New(apperrors.ErrInvalidParams, "slug不能为空")
		}
		updates["slug"] = slug
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, apperrors.New(apperrors.ErrInvalidParams, "无效的标签类型")
		}
		updates["type"] = *req.Type
	}

	if len(updates) == 0 {
		return tag, nil
	}
	if err := s.checkUnique(db, id, name, slug); err != nil {
		return nil, err
	}

	if err := db.Model(tag).Omit(clause.Associations).Updates(updates).Error; err != nil {
		if database.IsDuplicateError(err) {
			return nil, apperrors.New(apperrors.ErrSlugConflict, "标签名称或slug已存在")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseUpdate, "更新标签失败", err)
	}
	return s.getByID(db, id)
}

// Delete 删除标签
func (s *Service) Delete(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)
	tag, err := s.getByID(db, id)
	if err != nil {
		return err
	}

	// 检查是否有关联的素材
	var linkCount int64
	if err := db.Model(&database.MaterialTag{}).Where("tag_id = ?", id).Count(&linkCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseQuery, "检查标签关联素材失败", err)
	}
	if linkCount > 0 {
		return apperrors.New(apperrors.ErrResourceInUse, "标签仍被素材使用，无法删除")
	}

	if err := db.Delete(tag).Error; err != nil {
		if database.IsForeignKeyError(err) {
			return apperrors.New(apperrors.ErrResourceInUse, "标签仍被素材使用，无法删除")
		}
		return apperrors.Wrap(apperrors.ErrDatabaseDelete, "删除标签失败", err)
	}
	return nil
}

func (s *Service) getByID(db *gorm.DB, id uint) (*database.Tag, error) {
	var tag database.Tag
	if err := db.First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrTagNotFound, "标签不存在")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取标签失败", err)
	}
	return &tag, nil
}

func (s *Service) checkUnique(db *gorm.DB, excludeID uint, name, slug string) error {
	var count int64
	q := db.Model(&database.Tag{}).Where("(name = ? OR slug = ?)", name, slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseQuery, "检查标签唯一性失败", err)
	}
	if count > 0 {
		return apperrors.New(apperrors.ErrSlugConflict, "标签名称或slug已存在")
	}
	return nil
}
