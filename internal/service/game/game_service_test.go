package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sumicowork/HOYODB/config"
	"github.com/sumicowork/HOYODB/internal/database"
	apperrors "github.com/sumicowork/HOYODB/internal/errors"
)

// setupTestDB 使用内存SQLite数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Init(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"}, true)
	require.NoError(t, err)
	return db
}

func boolPtr(b bool) *bool { return &b }

func TestGameService(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	starrail, err := svc.Create(ctx, &CreateGameRequest{Name: "崩坏：星穹铁道", Slug: "starrail", SortOrder: 1})
	require.NoError(t, err)
	assert.True(t, starrail.IsActive)

	genshin, err := svc.Create(ctx, &CreateGameRequest{Name: "原神", Slug: "genshin", SortOrder: 2, IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, genshin.IsActive)

	t.Run("名称与slug必填", func(t *testing.T) {
		_, err := svc.Create(ctx, &CreateGameRequest{Name: "绝区零"})
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParams))
	})

	t.Run("slug重复", func(t *testing.T) {
		_, err := svc.Create(ctx, &CreateGameRequest{Name: "另一个", Slug: "starrail"})
		assert.True(t, apperrors.Is(err, apperrors.ErrSlugConflict))

		slug := "genshin"
		_, err = svc.Update(ctx, starrail.ID, &UpdateGameRequest{Slug: &slug})
		assert.True(t, apperrors.Is(err, apperrors.ErrSlugConflict))
	})

	t.Run("前台只返回启用的游戏", func(t *testing.T) {
		games, err := svc.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, games, 1)
		assert.Equal(t, "starrail", games[0].Slug)
	})

	t.Run("详情只包含顶层分类", func(t *testing.T) {
		top := database.Category{GameID: starrail.ID, Name: "角色立绘", Slug: "character-art", SortOrder: 2}
		require.NoError(t, db.Create(&top).Error)
		first := database.Category{GameID: starrail.ID, Name: "角色语音", Slug: "character-voice", SortOrder: 1}
		require.NoError(t, db.Create(&first).Error)
		child := database.Category{GameID: starrail.ID, Name: "卡芙卡", Slug: "kafka", ParentID: &top.ID}
		require.NoError(t, db.Create(&child).Error)

		game, err := svc.GetBySlug(ctx, "starrail")
		require.NoError(t, err)
		require.Len(t, game.Categories, 2)
		assert.Equal(t, "character-voice", game.Categories[0].Slug)
		assert.Equal(t, "character-art", game.Categories[1].Slug)

		_, err = svc.GetBySlug(ctx, "unknown")
		assert.True(t, apperrors.Is(err, apperrors.ErrGameNotFound))
	})

	t.Run("管理端列表附带计数", func(t *testing.T) {
		games, err := svc.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, games, 2)
		require.NotNil(t, games[0].Count)
		assert.Equal(t, int64(3), games[0].Count.Categories)
		assert.Equal(t, int64(0), games[0].Count.Materials)
		assert.Equal(t, int64(0), games[1].Count.Categories)
	})

	t.Run("部分更新", func(t *testing.T) {
		active := true
		updated, err := svc.Update(ctx, genshin.ID, &UpdateGameRequest{IsActive: &active})
		require.NoError(t, err)
		assert.True(t, updated.IsActive)
		assert.Equal(t, "原神", updated.Name)

		_, err = svc.Update(ctx, 9999, &UpdateGameRequest{IsActive: &active})
		assert.True(t, apperrors.Is(err, apperrors.ErrGameNotFound))
	})

	t.Run("仍有分类时拒绝删除", func(t *testing.T) {
		err := svc.Delete(ctx, starrail.ID)
		assert.True(t, apperrors.Is(err, apperrors.ErrResourceInUse))
		assert.Equal(t, 409, apperrors.StatusOf(apperrors.ErrResourceInUse))
	})

	t.Run("删除没有引用的游戏", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, genshin.ID))
		err := svc.Delete(ctx, genshin.ID)
		assert.True(t, apperrors.Is(err, apperrors.ErrGameNotFound))
	})
}
