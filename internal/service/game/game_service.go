// Package game 提供游戏的查询与管理
package game

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sumicowork/HOYODB/internal/database"
	apperrors "github.com/sumicowork/HOYODB/internal/errors"
)

// GameService 游戏服务接口
type GameService interface {
	// ListActive 获取前台展示的游戏列表
	// 返回:
	//   []database.Game - 仅包含启用的游戏，按 sortOrder 升序
	//   error - 错误信息
	ListActive(ctx context.Context) ([]database.Game, error)

	// GetBySlug 根据slug获取游戏详情
	// 参数:
	//   slug - 游戏标识
	// 返回:
	//   *database.Game - 游戏及其顶层分类
	//   error - 错误信息
	GetBySlug(ctx context.Context, slug string) (*database.Game, error)

	// ListAll 管理端获取全部游戏，附带素材数与分类数
	ListAll(ctx context.Context) ([]database.Game, error)

	// Create 创建游戏
	// 参数:
	//   req - 创建请求
	// 返回:
	//   *database.Game - 创建的游戏
	//   error - 名称或slug重复时返回冲突错误
	Create(ctx context.Context, req *CreateGameRequest) (*database.Game, error)

	// Update 部分更新游戏
	Update(ctx context.Context, id uint, req *UpdateGameRequest) (*database.Game, error)

	// Delete 删除游戏
	// 仍有分类或素材引用时拒绝删除
	Delete(ctx context.Context, id uint) error
}

// CreateGameRequest 创建游戏请求
type CreateGameRequest struct {
	Name      string  `json:"name" binding:"max=100"`           // 游戏名称
	Slug      string  `json:"slug" binding:"max=100"`           // URL标识
	Icon      *string `json:"icon" binding:"omitempty,max=500"` // 图标地址
	SortOrder int     `json:"sortOrder"`                        // 排序
	IsActive  *bool   `json:"isActive"`                         // 是否启用，默认启用
}

// UpdateGameRequest 更新游戏请求，未提供的字段保持不变
type UpdateGameRequest struct {
	Name      *string `json:"name" binding:"omitempty,max=100"`
	Slug      *string `json:"slug" binding:"omitempty,max=100"`
	Icon      *string `json:"icon" binding:"omitempty,max=500"`
	SortOrder *int    `json:"sortOrder"`
	IsActive  *bool   `json:"isActive"`
}

// Service 游戏服务实现
type Service struct {
	db *gorm.DB
}

// NewService 创建游戏服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListActive 获取启用的游戏列表
func (s *Service) ListActive(ctx context.Context) ([]database.Game, error) {
	var games []database.Game
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&games).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取游戏列表失败", err)
	}
	return games, nil
}

// GetBySlug 根据slug获取游戏，附带顶层分类
func (s *Service) GetBySlug(ctx context.Context, slug string) (*database.Game, error) {
	var game database.Game
	err := s.db.WithContext(ctx).
		Preload("Categories", func(db *gorm.DB) *gorm.DB {
			return db.Where("parent_id IS NULL").Order("sort_order ASC, id ASC")
		}).
		Where("slug = ?", slug).
		First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrGameNotFound, "游戏不存在")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取游戏失败", err)
	}
	return &game, nil
}

// ListAll 获取全部游戏及关联计数
func (s *Service) ListAll(ctx context.Context) ([]database.Game, error) {
	db := s.db.WithContext(ctx)

	var games []database.Game
	if err := db.Order("sort_order ASC, id ASC").Find(&games).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取游戏列表失败", err)
	}

	materials, err := database.CountGroupBy(db, "materials", "game_id")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "统计素材数量失败", err)
	}
	categories, err := database.CountGroupBy(db, "categories", "game_id")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "统计分类数量失败", err)
	}

	for i := range games {
		games[i].Count = &database.GameCount{
			Materials:  materials[games[i].ID],
			Categories: categories[games[i].ID],
		}
	}
	return games, nil
}

// Create 创建游戏
func (s *Service) Create(ctx context.Context, req *CreateGameRequest) (*database.Game, error) {
	name := strings.TrimSpace(req.Name)
	slug := strings.TrimSpace(req.Slug)
	if name == "" || slug == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "游戏名称和slug不能为空")
	}

	db := s.db.WithContext(ctx)
	if err := s.checkUnique(db, 0, name, slug); err != nil {
		return nil, err
	}

	game := &database.Game{
		Name:      name,
		Slug:      slug,
		Icon:      req.Icon,
		SortOrder: req.SortOrder,
		IsActive:  true,
	}
	if req.IsActive != nil {
		game.IsActive = *req.IsActive
	}

	if err := db.Omit(clause.Associations).Create(game).Error; err != nil {
		if database.IsDuplicateError(err) {
			return nil, apperrors.New(apperrors.ErrSlugConflict, "游戏名称或slug已存在")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseInsert, "创建游戏失败", err)
	}
	return game, nil
}

// Update 部分更新游戏
func (s *Service) Update(ctx context.Context, id uint, req *UpdateGameRequest) (*database.Game, error) {
	db := s.db.WithContext(ctx)
	game, err := s.getByID(db, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	name, slug := game.Name, game.Slug
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.New(apperrors.ErrInvalidParams, "游戏名称不能为空")
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
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		return game, nil
	}
	if err := s.checkUnique(db, id, name, slug); err != nil {
		return nil, err
	}

	if err := db.Model(game).Omit(clause.Associations).Updates(updates).Error; err != nil {
		if database.IsDuplicateError(err) {
			return nil, apperrors.New(apperrors.ErrSlugConflict, "游戏名称或slug已存在")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseUpdate, "更新游戏失败", err)
	}
	return s.getByID(db, id)
}

// Delete 删除游戏
func (s *Service) Delete(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)
	game, err := s.getByID(db, id)
	if err != nil {
		return err
	}

	var categoryCount, materialCount int64
	if err := db.Model(&database.Category{}).Where("game_id = ?", id).Count(&categoryCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseQuery, "检查游戏分类失败", err)
	}
	if err := db.Model(&database.Material{}).Where("game_id = ?", id).Count(&materialCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseQuery, "检查游戏素材失败", err)
	}
	if categoryCount > 0 || materialCount > 0 {
		return apperrors.New(apperrors.ErrResourceInUse, "游戏下仍有分类或素材，无法删除")
	}

	if err := db.Delete(game).Error; err != nil {
		if database.IsForeignKeyError(err) {
			return apperrors.New(apperrors.ErrResourceInUse, "游戏下仍有分类或素材，无法删除")
		}
		return apperrors.Wrap(apperrors.ErrDatabaseDelete, "删除游戏失败", err)
	}
	return nil
}

func (s *Service) getByID(db *gorm.DB, id uint) (*database.Game, error) {
	var game database.Game
	if err := db.First(&game, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrGameNotFound, "游戏不存在")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取游戏失败", err)
	}
	return &game, nil
}

// checkUnique 名称与slug均不得与其他游戏重复
func (s *Service) checkUnique(db *gorm.DB, excludeID uint, name, slug string) error {
	var count int64
	q := db.Model(&database.Game{}).Where("(name = ? OR slug = ?)", name, slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseQuery, "检查游戏唯一性失败", err)
	}
	if count > 0 {
		return apperrors.New(apperrors.ErrSlugConflict, "游戏名称或slug已存在")
	}
	return nil
}
