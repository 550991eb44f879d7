package dashboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumicowork/HOYODB/config"
	"github.com/sumicowork/HOYODB/internal/database"
)

func TestOverview(t *testing.T) {
	db, err := database.Init(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"}, true)
	require.NoError(t, err)
	svc := NewService(db)
	ctx := context.Background()

	t.Run("空库", func(t *testing.T) {
		overview, err := svc.Overview(ctx)
		require.NoError(t, err)
		assert.Equal(t, Stats{}, overview.Stats)
		assert.NotNil(t, overview.RecentMaterials)
		assert.Empty(t, overview.PopularMaterials)
	})

	game := database.Game{Name: "崩坏：星穹铁道", Slug: "starrail", IsActive: true}
	require.NoError(t, db.Create(&game).Error)
	category := database.Category{GameID: game.ID, Name: "BGM音乐", Slug: "bgm"}
	require.NoError(t, db.Create(&category).Error)
	require.NoError(t, db.Create(&database.Tag{Name: "火", Slug: "fire", Type: database.TagTypeElement}).Error)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		m := database.Material{
			GameID: game.ID, CategoryID: category.ID, Title: fmt.Sprintf("track-%d", i),
			FilePath: "/a.mp3", FileSize: 1, FileType: "audio/mpeg", Status: database.StatusPublished,
			DownloadCount: int64(i * 10), CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&m).Error)
	}

	t.Run("统计与排行", func(t *testing.T) {
		overview, err := svc.Overview(ctx)
		require.NoError(t, err)
		assert.Equal(t, Stats{
			TotalMaterials:  7,
			TotalDownloads:  210,
			TotalGames:      1,
			TotalCategories: 1,
			TotalTags:       1,
		}, overview.Stats)

		require.Len(t, overview.RecentMaterials, 5)
		assert.Equal(t, "track-6", overview.RecentMaterials[0].Title)
		require.NotNil(t, overview.RecentMaterials[0].Game)
		require.NotNil(t, overview.RecentMaterials[0].Category)

		require.Len(t, overview.PopularMaterials, 5)
		assert.Equal(t, int64(60), overview.PopularMaterials[0].DownloadCount)
		assert.Equal(t, int64(20), overview.PopularMaterials[4].DownloadCount)
	})
}
