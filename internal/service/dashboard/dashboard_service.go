// Package dashboard 提供管理后台首页统计
package dashboard

import (
	"context"

	"gorm.io/gorm"

	"github.com/sumicowork/HOYODB/internal/database"
	apperrors "github.com/sumicowork/HOYODB/internal/errors"
)

// 最近与热门素材各取的数量
const topN = 5

// Stats 汇总数字
type Stats struct {
	TotalMaterials  int64 `json:"totalMaterials"`
	TotalDownloads  int64 `json:"totalDownloads"`
	TotalGames      int64 `json:"totalGames"`
	TotalCategories int64 `json:"totalCategories"`
	TotalTags       int64 `json:"totalTags"`
}

// Overview 仪表盘数据
type Overview struct {
	Stats            Stats               `json:"stats"`
	RecentMaterials  []database.Material `json:"recentMaterials"`
	PopularMaterials []database.Material `json:"popularMaterials"`
}

// DashboardService 仪表盘服务接口
type DashboardService interface {
	// Overview 获取统计数字、最近创建与下载最多的素材
	Overview(ctx context.Context) (*Overview, error)
}

// Service 仪表盘服务实现
type Service struct {
	db *gorm.DB
}

// NewService 创建仪表盘服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Overview 获取仪表盘数据
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	db := s.db.WithContext(ctx)
	out := &Overview{
		RecentMaterials:  make([]database.Material, 0),
		PopularMaterials: make([]database.Material, 0),
	}

	counts := []struct {
		model interface{}
		dest  *int64
	}{
		{&database.Material{}, &out.Stats.TotalMaterials},
		{&database.Game{}, &out.Stats.TotalGames},
		{&database.Category{}, &out.Stats.TotalCategories},
		{&database.Tag{}, &out.Stats.TotalTags},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dest).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取统计数据失败", err)
		}
	}

	if err := db.Model(&database.Material{}).
		Select("COALESCE(SUM(download_count), 0)").
		Scan(&out.Stats.TotalDownloads).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取下载总数失败", err)
	}

	if err := db.Preload("Game").Preload("Category").
		Order("created_at DESC, id DESC").
		Limit(topN).
		Find(&out.RecentMaterials).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取最近素材失败", err)
	}
	if err := db.Preload("Game").Preload("Category").
		Order("download_count DESC, id DESC").
		Limit(topN).
		Find(&out.PopularMaterials).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "获取热门素材失败", err)
	}

	return out, nil
}
