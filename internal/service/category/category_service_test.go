package category

import (
	"context"
	"encoding/json"
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

func TestCategoryService(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	starrail := database.Game{Name: "崩坏：星穹铁道", Slug: "starrail", IsActive: true}
	genshin := database.Game{Name: "原神", Slug: "genshin"}
	require.NoError(t, db.Create(&starrail).Error)
	require.NoError(t, db.Create(&genshin).Error)

	art, err := svc.Create(ctx, &CreateCategoryRequest{GameID: starrail.ID, Name: "角色立绘", Slug: "character-art", SortOrder: 4})
	require.NoError(t, err)
	require.NotNil(t, art.Game)
	assert.Equal(t, "starrail", art.Game.Slug)

	t.Run("同一游戏内slug唯一", func(t *testing.T) {
		_, err := svc.Create(ctx, &CreateCategoryRequest{GameID: starrail.ID, Name: "重复", Slug: "character-art"})
		assert.True(t, apperrors.Is(err, apperrors.ErrSlugConflict))

		other, err := svc.Create(ctx, &CreateCategoryRequest{GameID: genshin.ID, Name: "角色立绘", Slug: "character-art"})
		require.NoError(t, err)
		assert.Equal(t, genshin.ID, other.GameID)
	})

	t.Run("游戏不存在", func(t *testing.T) {
		_, err := svc.Create(ctx, &CreateCategoryRequest{GameID: 9999, Name: "x", Slug: "x"})
		assert.True(t, apperrors.Is(err, apperrors.ErrGameNotFound))
	})

	t.Run("父分类必须属于同一游戏", func(t *testing.T) {
		_, err := svc.Create(ctx, &CreateCategoryRequest{GameID: genshin.ID, Name: "子分类", Slug: "child", ParentID: &art.ID})
		assert.True(t, apperrors.Is(err, apperrors.ErrCategoryGameMismatch))
	})

	var child *database.Category
	t.Run("创建子分类", func(t *testing.T) {
		var err error
		child, err = svc.Create(ctx, &CreateCategoryRequest{GameID: starrail.ID, Name: "卡芙卡", Slug: "kafka", ParentID: &art.ID, SortOrder: 1})
		require.NoError(t, err)
		require.NotNil(t, child.Parent)
		assert.Equal(t, art.ID, child.Parent.ID)
	})

	t.Run("列表按游戏筛选并附带计数", func(t *testing.T) {
		categories, err := svc.List(ctx, &starrail.ID)
		require.NoError(t, err)
		require.Len(t, categories, 2)
		assert.Equal(t, "kafka", categories[0].Slug)
		assert.Equal(t, "character-art", categories[1].Slug)
		require.NotNil(t, categories[0].Count)
		assert.Zero(t, categories[0].Count.Materials)

		all, err := svc.List(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("显式null移动到顶层", func(t *testing.T) {
		var req UpdateCategoryRequest
		require.NoError(t, json.Unmarshal([]byte(`{"parentId":null}`), &req))
		assert.True(t, req.ParentID.Set)

		updated, err := svc.Update(ctx, child.ID, &req)
		require.NoError(t, err)
		assert.Nil(t, updated.ParentID)
	})

	t.Run("未提供parentId时保持不变", func(t *testing.T) {
		var req UpdateCategoryRequest
		require.NoError(t, json.Unmarshal([]byte(`{"parentId":`+jsonID(art.ID)+`}`), &req))
		_, err := svc.Update(ctx, child.ID, &req)
		require.NoError(t, err)

		var rename UpdateCategoryRequest
		require.NoError(t, json.Unmarshal([]byte(`{"name":"卡芙卡立绘"}`), &rename))
		assert.False(t, rename.ParentID.Set)
		updated, err := svc.Update(ctx, child.ID, &rename)
		require.NoError(t, err)
		require.NotNil(t, updated.ParentID)
		assert.Equal(t, art.ID, *updated.ParentID)
		assert.Equal(t, "卡芙卡立绘", updated.Name)
	})

	t.Run("不能以自身为父分类", func(t *testing.T) {
		req := UpdateCategoryRequest{ParentID: OptionalID{Set: true, Value: &child.ID}}
		_, err := svc.Update(ctx, child.ID, &req)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParams))
	})

	t.Run("仍有子分类或素材时拒绝删除", func(t *testing.T) {
		err := svc.Delete(ctx, art.ID)
		assert.True(t, apperrors.Is(err, apperrors.ErrResourceInUse))

		m := database.Material{
			GameID: starrail.ID, CategoryID: child.ID, Title: "kafka", FilePath: "/a.jpg",
			FileSize: 1, FileType: "image/jpeg", Status: database.StatusPublished,
		}
		require.NoError(t, db.Create(&m).Error)
		err = svc.Delete(ctx, child.ID)
		assert.True(t, apperrors.Is(err, apperrors.ErrResourceInUse))

		require.NoError(t, db.Delete(&m).Error)
		require.NoError(t, svc.Delete(ctx, child.ID))
		require.NoError(t, svc.Delete(ctx, art.ID))
	})
}

func jsonID(id uint) string {
	data, _ := json.Marshal(id)
	return string(data)
}
