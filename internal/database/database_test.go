package database

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sumicowork/HOYODB/config"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Init(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"}, true)
	require.NoError(t, err)
	return db
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestMigrate(t *testing.T) {
	db := newTestDB(t)

	for _, idx := range catalogIndexes {
		assert.True(t, db.Migrator().HasIndex(idx.table, idx.name), idx.name)
	}

	t.Run("重复迁移不报错", func(t *testing.T) {
		require.NoError(t, Migrate(db))
	})

	t.Run("不支持的驱动", func(t *testing.T) {
		_, err := Dialector(config.DatabaseConfig{Driver: "oracle"})
		assert.Error(t, err)
	})
}

func TestSeed(t *testing.T) {
	db := newTestDB(t)
	opts := SeedOptions{AdminUsername: "admin", AdminPasswordHash: "hash"}

	require.NoError(t, Seed(db, opts))
	require.NoError(t, Seed(db, opts))

	assert.Equal(t, int64(3), count(t, db, &Game{}))
	assert.Equal(t, int64(8), count(t, db, &Category{}))
	assert.Equal(t, int64(14), count(t, db, &Tag{}))
	assert.Equal(t, int64(1), count(t, db, &Admin{}))

	var starrail Game
	require.NoError(t, db.Where("slug = ?", "starrail").First(&starrail).Error)
	assert.True(t, starrail.IsActive)

	var genshin Game
	require.NoError(t, db.Where("slug = ?", "genshin").First(&genshin).Error)
	assert.False(t, genshin.IsActive)

	t.Run("未提供密码时不创建管理员", func(t *testing.T) {
		db := newTestDB(t)
		require.NoError(t, Seed(db, SeedOptions{AdminUsername: "admin"}))
		assert.Equal(t, int64(0), count(t, db, &Admin{}))
	})
}

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		name                string
		page, limit         int
		wantPage, wantLimit int
	}{
		{"默认值", 0, 0, 1, 20},
		{"负数", -3, -1, 1, 20},
		{"超过上限", 2, 500, 2, 100},
		{"正常", 5, 30, 5, 30},
		{"页码过大", math.MaxInt, 100, MaxPage, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, limit := NormalizePage(tc.page, tc.limit)
			assert.Equal(t, tc.wantPage, page)
			assert.Equal(t, tc.wantLimit, limit)
			assert.GreaterOrEqual(t, (page-1)*limit, 0)
		})
	}
}

func TestCatalogConstraints(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Seed(db, SeedOptions{}))

	var starrail Game
	require.NoError(t, db.Where("slug = ?", "starrail").First(&starrail).Error)

	t.Run("同一游戏下分类slug唯一", func(t *testing.T) {
		err := db.Create(&Category{GameID: starrail.ID, Name: "重复", Slug: "bgm"}).Error
		assert.True(t, IsDuplicateError(err), "%v", err)
	})

	t.Run("不同游戏可以使用相同分类slug", func(t *testing.T) {
		var genshin Game
		require.NoError(t, db.Where("slug = ?", "genshin").First(&genshin).Error)
		assert.NoError(t, db.Create(&Category{GameID: genshin.ID, Name: "BGM音乐", Slug: "bgm"}).Error)
	})

	t.Run("标签slug全局唯一", func(t *testing.T) {
		err := db.Create(&Tag{Name: "另一个火", Slug: "fire", Type: TagTypeOther}).Error
		assert.True(t, IsDuplicateError(err), "%v", err)
	})

	t.Run("按列分组计数", func(t *testing.T) {
		counts, err := CountGroupBy(db, "categories", "game_id")
		require.NoError(t, err)
		assert.Equal(t, int64(8), counts[starrail.ID])
	})
}

func TestSearchTitleOrDescription(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Seed(db, SeedOptions{}))

	var category Category
	require.NoError(t, db.Where("slug = ?", "bgm").First(&category).Error)

	desc := "100% 原声"
	for _, title := range []string{"Welt Theme", "march_7th", "其他"} {
		m := Material{
			GameID:     category.GameID,
			CategoryID: category.ID,
			Title:      title,
			FilePath:   "/x",
			FileType:   "audio/mpeg",
			Status:     StatusPublished,
		}
		if title == "其他" {
			m.Description = &desc
		}
		require.NoError(t, db.Create(&m).Error)
	}

	search := func(keyword string) []string {
		var titles []string
		require.NoError(t, db.Model(&Material{}).Scopes(SearchTitleOrDescription(keyword)).Order("id").Pluck("title", &titles).Error)
		return titles
	}

	assert.Equal(t, []string{"Welt Theme"}, search("WELT"))
	assert.Equal(t, []string{"march_7th"}, search("h_7"))
	assert.Equal(t, []string{"其他"}, search("100%"))
	assert.Len(t, search("  "), 3)
}
