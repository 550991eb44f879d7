package tag

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

func TestTagService(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	march, err := svc.Create(ctx, &CreateTagRequest{Name: "三月七", Slug: "march-7th", Type: database.TagTypeCharacter})
	require.NoError(t, err)
	ice, err := svc.Create(ctx, &CreateTagRequest{Name: "冰", Slug: "ice", Type: database.TagTypeElement})
	require.NoError(t, err)

	t.Run("类型校验", func(t *testing.T) {
		_, err := svc.Create(ctx, &CreateTagRequest{Name: "未知", Slug: "unknown", Type: "WEAPON"})
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParams))

		_, err = svc.Create(ctx, &CreateTagRequest{Name: "缺类型", Slug: "no-type"})
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParams))
	})

	t.Run("slug全局唯一", func(t *testing.T) {
		_, err := svc.Create(ctx, &CreateTagRequest{Name: "冰属性", Slug: "ice", Type: database.TagTypeElement})
		assert.True(t, apperrors.Is(err, apperrors.ErrSlugConflict))
	})

	t.Run("按类型筛选", func(t *testing.T) {
		tags, err := svc.List(ctx, database.TagTypeElement)
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, "ice", tags[0].Slug)

		all, err := svc.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	game := database.Game{Name: "崩坏：星穹铁道", Slug: "starrail", IsActive: true}
	require.NoError(t, db.Create(&game).Error)
	category := database.Category{GameID: game.ID, Name: "角色立绘", Slug: "character-art"}
	require.NoError(t, db.Create(&category).Error)
	for i, status := range []database.MaterialStatus{database.StatusPublished, database.StatusDraft, database.StatusPublished} {
		m := database.Material{
			GameID: game.ID, CategoryID: category.ID, Title: "march-" + string(rune('a'+i)),
			FilePath: "/a.jpg", FileSize: 1, FileType: "image/jpeg", Status: status,
			Tags: []database.MaterialTag{{TagID: march.ID}},
		}
		require.NoError(t, db.Create(&m).Error)
	}

	t.Run("详情只包含已发布素材", func(t *testing.T) {
		tag, err := svc.GetBySlug(ctx, "march-7th")
		require.NoError(t, err)
		require.Len(t, tag.Materials, 2)
		for _, link := range tag.Materials {
			require.NotNil(t, link.Material)
			assert.Equal(t, database.StatusPublished, link.Material.Status)
			require.NotNil(t, link.Material.Game)
			require.NotNil(t, link.Material.Category)
		}

		_, err = svc.GetBySlug(ctx, "nobody")
		assert.True(t, apperrors.Is(err, apperrors.ErrTagNotFound))
	})

	t.Run("管理端计数", func(t *testing.T) {
		tags, err := svc.ListWithCount(ctx, "")
		require.NoError(t, err)
		counts := map[string]int64{}
		for _, tg := range tags {
			require.NotNil(t, tg.Count)
			counts[tg.Slug] = tg.Count.Materials
		}
		assert.Equal(t, map[string]int64{"march-7th": 3, "ice": 0}, counts)
	})

	t.Run("更新", func(t *testing.T) {
		name := "冰元素"
		updated, err := svc.Update(ctx, ice.ID, &UpdateTagRequest{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "冰元素", updated.Name)

		bad := database.TagType("WEAPON")
		_, err = svc.Update(ctx, ice.ID, &UpdateTagRequest{Type: &bad})
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParams))

		slug := "march-7th"
		_, err = svc.Update(ctx, ice.ID, &UpdateTagRequest{Slug: &slug})
		assert.True(t, apperrors.Is(err, apperrors.ErrSlugConflict))
	})

	t.Run("仍被素材使用时拒绝删除", func(t *testing.T) {
		err := svc.Delete(ctx, march.ID)
		assert.True(t, apperrors.Is(err, apperrors.ErrResourceInUse))

		require.NoError(t, svc.Delete(ctx, ice.ID))
		_, err = svc.GetBySlug(ctx, "ice")
		assert.True(t, apperrors.Is(err, apperrors.ErrTagNotFound))
	})
}
