package database

import (
	"gorm.io/gorm"

	"github.com/sumicowork/HOYODB/internal/logger"
)

// indexDef 额外的复合索引定义
type indexDef struct {
	table string
	name  string
	sql   string
}

// catalogIndexes 列表查询使用的复合索引
var catalogIndexes = []indexDef{
	// 前台列表：按状态过滤后按上传时间倒序
	{"materials", "idx_materials_status_upload_time", "CREATE INDEX idx_materials_status_upload_time ON materials(status, upload_time)"},
	// 前台热门：按状态过滤后按下载量倒序
	{"materials", "idx_materials_status_download_count", "CREATE INDEX idx_materials_status_download_count ON materials(status, download_count)"},
	{"materials", "idx_materials_created_at", "CREATE INDEX idx_materials_created_at ON materials(created_at)"},
	{"categories", "idx_categories_game_sort", "CREATE INDEX idx_categories_game_sort ON categories(game_id, sort_order)"},
	{"download_logs", "idx_download_logs_material_created", "CREATE INDEX idx_download_logs_material_created ON download_logs(material_id, created_at)"},
}

// Migrate 执行表结构迁移并创建复合索引
// 参数: db *gorm.DB - GORM数据库连接实例
// 返回值: error - 迁移失败时返回错误信息
func Migrate(db *gorm.DB) error {
	logger.Info("开始执行数据库迁移...")

	if err := db.AutoMigrate(AllModels()...); err != nil {
		return err
	}

	if err := createIndexes(db); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建复合索引，已存在的索引跳过
func createIndexes(db *gorm.DB) error {
	migrator := db.Migrator()
	for _, idx := range catalogIndexes {
		if migrator.HasIndex(idx.table, idx.name) {
			continue
		}
		if err := db.Exec(idx.sql).Error; err != nil {
			logger.Errorf("创建索引失败: %s, 错误: %v", idx.sql, err)
			return err
		}
	}
	return nil
}
