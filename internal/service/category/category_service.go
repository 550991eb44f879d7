// Package category 提供分类的管理
// 分类归属于游戏，可通过 parentId 形成层级，slug 在同一游戏内唯一
package category

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sumicowork/HOYODB/internal/database"
	apperrors "github.com/sumicowork/HOYODB/internal/errors"
)

// CategoryService 分类服务接口
type CategoryService interface {
	// List 管理端获取分类列表
	// 参数:
	//   gameID - 为空时返回全部游戏的分类
	// 返回:
	//   []database.Category - 附带所属游戏、父分类与素材数，按游戏、排序升序
	//   error - 错误信息
	List(ctx context.Context, gameID *uint) ([]database.Category, error)

	// Create 创建分类
	// 参数:
	//   req - 创建请求，父分类必须属于同一游戏
	// 返回:
	//   *database.Category - 创建的分类
	//   error - 错误信息
	Create(ctx context.Context, req *CreateCategoryRequest) (*database.Category, error)

	// Update 部分更新分类
	Update(ctx context.Context, id uint, req *UpdateCategoryRequest) (*database.Category, error)

	// Delete 删除分类，仍有素材或子分类时拒绝
	Delete(ctx context.Context, id uint) error
}

// CreateCategoryRequest 创建分类请求
type CreateCategoryRequest struct {
	GameID    uint   `json:"gameId"`
	Name      string `json:"name" binding:"max=100"`
	Slug      string `json:"slug" binding:"max=100"`
	ParentID  *uint  `json:"parentId"`
	SortOrder int    `json:"sortOrder"`
}

// UpdateCategoryRequest 更新分类请求
// ParentID 显式传 null 表示移动到顶层
type UpdateCategoryRequest struct {
	Name      *string    `json:"name" binding:"omitempty,max=100"`
	Slug      *string    `json:"slug" binding:"omitempty,max=100"`
	ParentID  OptionalID `json:"parentId"`
	SortOrder *int       `json:"sortOrder"`
}

// OptionalID 区分字段缺省与显式null
type OptionalID struct {
	Set   bool
	Value *uint
}

// UnmarshalJSON 实现json.Unmarshaler
func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v uint
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Service 分类服务实现
type Service struct {
	db *gorm.DB
}

// NewService 创建分类服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List 获取分类列表
func (s *Service) List(ctx context.Context, gameID *uint) ([]database.Category, error) {
	db := s.db.WithContext(ctx)

	q := db.Preload("Game").Preload("Parent").Order("game_id ASC, sort_order ASC, id ASC")
	if gameID != nil {
		q = q.Where("game_id = ?", *gameID)
	}

	var categories []database.Category
	if err := q.Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取分类列表失败", err)
	}

	counts, err := database.CountGroupBy(db, "materials", "category_id")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "统计素材数量失败", err)
	}
	for i := range categories {
		categories[i].Count = &database.CategoryCount{Materials: counts[categories[i].ID]}
	}
	return categories, nil
}

// Create 创建分类
func (s *Service) Create(ctx context.Context, req *CreateCategoryRequest) (*database.Category, error) {
	name := strings.TrimSpace(req.Name)
	slug := strings.TrimSpace(req.Slug)
	if req.GameID == 0 || name == "" || slug == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "游戏ID、分类名称和slug不能为空")
	}

	db := s.db.WithContext(ctx)

	var gameCount int64
	if err := db.Model(&database.Game{}).Where("id = ?", req.GameID).Count(&gameCount).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "检查游戏失败", err)
	}
	if gameCount == 0 {
		return nil, apperrors.New(apperrors.ErrGameNotFound, "游戏不存在")
	}

	if req.ParentID != nil {
		if err := s.checkParent(db, req.GameID, 0, *req.ParentID); err != nil {
			return nil, err
		}
	}
	if err := s.checkSlug(db, req.GameID, 0, slug); err != nil {
		return nil, err
	}

	category := &database.Category{
		GameID:    req.GameID,
		Name:      name,
		Slug:      slug,
		ParentID:  req.ParentID,
		SortOrder: req.SortOrder,
	}
	if err := db.Omit(clause.Associations).Create(category).Error; err != nil {
		if database.IsDuplicateError(err) {
			return nil, apperrors.New(apperrors.ErrSlugConflict, "该游戏下分类slug已存在")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseInsert, "创建分类失败", err)
	}
	return s.getByID(db, category.ID, true)
}

// Update 部分更新分类
func (s *Service) Update(ctx context.Context, id uint, req *UpdateCategoryRequest) (*database.Category, error) {
	db := s.db.WithContext(ctx)
	category, err := s.getByID(db, id, false)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.New(apperrors.ErrInvalidParams, "分类名称不能为空")
		}
		updates["name"] = name
	}
	if req.Slug != nil {
		slug := strings.TrimSpace(*req.Slug)
		if slug == "" {
			return nil, apperrors.New(apperrors.ErrInvalidParams, "slug不能为空")
		}
		if err := s.checkSlug(db, category.GameID, id, slug); err != nil {
			return nil, err
		}
		updates["slug"] = slug
	}
	if req.ParentID.Set {
		if req.ParentID.Value != nil {
			if err := s.checkParent(db, category.GameID, id, *req.ParentID.Value); err != nil {
				return nil, err
			}
			updates["parent_id"] = *req.ParentID.Value
		} else {
			updates["parent_id"] = nil
		}
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}

	if len(updates) > 0 {
		if err := db.Model(category).Omit(clause.Associations).Updates(updates).Error; err != nil {
			if database.IsDuplicateError(err) {
				return nil, apperrors.New(apperrors.ErrSlugConflict, "该游戏下分类slug已存在")
			}
			return nil, apperrors.Wrap(apperrors.ErrDatabaseUpdate, "更新分类失败", err)
		}
	}
	return s.getByID(db, id, true)
}

// Delete 删除分类
func (s *Service) Delete(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)
	category, err := s.getByID(db, id, false)
	if err != nil {
		return err
	}

	var materialCount, childCount int64
	if err := db.Model(&database.Material{}).Where("category_id = ?", id).Count(&materialCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseQuery, "检查分类素材失败", err)
	}
	if err := db.Model(&database.Category{}).Where("parent_id = ?", id).Count(&childCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseQuery, "检查子分类失败", err)
	}
	if materialCount > 0 || childCount > 0 {
		return apperrors.New(apperrors.ErrResourceInUse, "分类下仍有素材或子分类，无法删除")
	}

	if err := db.Delete(category).Error; err != nil {
		if database.IsForeignKeyError(err) {
			return apperrors.New(apperrors.ErrResourceInUse, "分类下仍有素材或子分类，无法删除")
		}
		return apperrors.Wrap(apperrors.ErrDatabaseDelete, "删除分类失败", err)
	}
	return nil
}

func (s *Service) getByID(db *gorm.DB, id uint, withRelations bool) (*database.Category, error) {
	q := db
	if withRelations {
		q = q.Preload("Game").Preload("Parent")
	}
	var category database.Category
	if err := q.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrCategoryNotFound, "分类不存在")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取分类失败", err)
	}
	return &category, nil
}

// checkParent 父分类须存在、属于同一游戏且不能是自身
func (s *Service) checkParent(db *gorm.DB, gameID, selfID, parentID uint) error {
	if selfID != 0 && parentID == selfID {
		return apperrors.New(apperrors.ErrInvalidParams, "父分类不能是自身")
	}
	var parent database.Category
	if err := db.First(&parent, parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.ErrCategoryNotFound, "父分类不存在")
		}
		return apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取父分类失败", err)
	}
	if parent.GameID != gameID {
		return apperrors.New(apperrors.ErrCategoryGameMismatch, "父分类不属于同一游戏")
	}
	return nil
}

func (s *Service) checkSlug(db *gorm.DB, gameID, excludeID uint, slug string) error {
	var count int64
	q := db.Model(&database.Category{}).Where("game_id = ? AND slug = ?", gameID, slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseQuery, "检查分类slug失败", err)
	}
	if count > 0 {
		return apperrors.New(apperrors.ErrSlugConflict, "该游戏下分类slug已存在")
	}
	return nil
}
