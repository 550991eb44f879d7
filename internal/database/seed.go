package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/sumicowork/HOYODB/internal/logger"
)

// SeedOptions 种子数据选项
type SeedOptions struct {
	AdminUsername     string
	AdminPasswordHash string // 已哈希的密码，为空时跳过管理员创建
}

type seedCategory struct {
	name string
	slug string
}

var seedGames = []Game{
	{Name: "崩坏：星穹铁道", Slug: "starrail", SortOrder: 1, IsActive: true},
	{Name: "原神", Slug: "genshin", SortOrder: 2, IsActive: false},
	{Name: "绝区零", Slug: "zzz", SortOrder: 3, IsActive: false},
}

var starrailCategories = []seedCategory{
	{"角色语音", "character-voice"},
	{"BGM音乐", "bgm"},
	{"战斗音效", "battle-sound"},
	{"角色立绘", "character-art"},
	{"场景原画", "scene-art"},
	{"UI素材", "ui-assets"},
	{"过场动画", "cutscene"},
	{"其他", "other"},
}

var seedTags = []Tag{
	{Name: "开拓者", Slug: "trailblazer", Type: TagTypeCharacter},
	{Name: "三月七", Slug: "march-7th", Type: TagTypeCharacter},
	{Name: "丹恒", Slug: "dan-heng", Type: TagTypeCharacter},
	{Name: "姬子", Slug: "himeko", Type: TagTypeCharacter},
	{Name: "瓦尔特", Slug: "welt", Type: TagTypeCharacter},
	{Name: "五星", Slug: "5-star", Type: TagTypeRarity},
	{Name: "四星", Slug: "4-star", Type: TagTypeRarity},
	{Name: "物理", Slug: "physical", Type: TagTypeElement},
	{Name: "火", Slug: "fire", Type: TagTypeElement},
	{Name: "冰", Slug: "ice", Type: TagTypeElement},
	{Name: "雷", Slug: "thunder", Type: TagTypeElement},
	{Name: "风", Slug: "wind", Type: TagTypeElement},
	{Name: "量子", Slug: "quantum", Type: TagTypeElement},
	{Name: "虚数", Slug: "imaginary", Type: TagTypeElement},
}

// Seed 写入默认管理员、游戏、分类与标签
// 已存在的记录按唯一键匹配后跳过，可重复执行
func Seed(db *gorm.DB, opts SeedOptions) error {
	logger.Info("开始初始化种子数据...")

	return db.Transaction(func(tx *gorm.DB) error {
		if opts.AdminUsername != "" && opts.AdminPasswordHash != "" {
			admin := Admin{Username: opts.AdminUsername, PasswordHash: opts.AdminPasswordHash}
			if err := tx.Where(Admin{Username: admin.Username}).FirstOrCreate(&admin).Error; err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
		}

		gameIDs := make(map[string]uint, len(seedGames))
		for _, g := range seedGames {
			game := g
			if err := tx.Where(Game{Slug: game.Slug}).FirstOrCreate(&game).Error; err != nil {
				return fmt.Errorf("seed game %s: %w", game.Slug, err)
			}
			gameIDs[game.Slug] = game.ID
		}

		for i, c := range starrailCategories {
			category := Category{
				GameID:    gameIDs["starrail"],
				Name:      c.name,
				Slug:      c.slug,
				SortOrder: i + 1,
			}
			if err := tx.Where(Category{GameID: category.GameID, Slug: category.Slug}).FirstOrCreate(&category).Error; err != nil {
				return fmt.Errorf("seed category %s: %w", c.slug, err)
			}
		}

		for _, t := range seedTags {
			tag := t
			if err := tx.Where(Tag{Slug: tag.Slug}).FirstOrCreate(&tag).Error; err != nil {
				return fmt.Errorf("seed tag %s: %w", tag.Slug, err)
			}
		}

		logger.Info("种子数据初始化完成")
		return nil
	})
}
