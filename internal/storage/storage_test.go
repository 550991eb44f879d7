package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumicowork/HOYODB/config"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(config.StorageConfig{
		Provider:  "local",
		LocalRoot: t.TempDir(),
		BasePath:  "/hoyodb",
		PublicURL: "http://localhost:3000/d",
	})
	require.NoError(t, err)
	return store
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	t.Run("上传后可读取与统计", func(t *testing.T) {
		store := newTestLocalStore(t)
		content := []byte("hello hoyodb")

		url, err := store.Upload(ctx, "starrail/character-art", "1700000000000-abcd1234.jpg", bytes.NewReader(content), int64(len(content)), "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:3000/d/hoyodb/starrail/character-art/1700000000000-abcd1234.jpg", url)

		exists, err := store.Exists(ctx, "starrail/character-art", "1700000000000-abcd1234.jpg")
		require.NoError(t, err)
		assert.True(t, exists)

		info, err := store.Stat(ctx, "starrail/character-art", "1700000000000-abcd1234.jpg")
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), info.Size)
		assert.Equal(t, "/starrail/character-art/1700000000000-abcd1234.jpg", info.Path)

		rc, err := store.Open(ctx, "starrail/character-art", "1700000000000-abcd1234.jpg")
		require.NoError(t, err)
		defer rc.Close()
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("删除不存在的文件不报错", func(t *testing.T) {
		store := newTestLocalStore(t)
		assert.NoError(t, store.Delete(ctx, "starrail", "missing.png"))
	})

	t.Run("删除后不再存在", func(t *testing.T) {
		store := newTestLocalStore(t)
		_, err := store.Upload(ctx, "starrail", "a.png", strings.NewReader("x"), 1, "image/png")
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, "starrail", "a.png"))
		exists, err := store.Exists(ctx, "starrail", "a.png")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = store.Stat(ctx, "starrail", "a.png")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("列出目录包含文件与子目录", func(t *testing.T) {
		store := newTestLocalStore(t)
		_, err := store.Upload(ctx, "starrail", "root.png", strings.NewReader("x"), 1, "image/png")
		require.NoError(t, err)
		_, err = store.Upload(ctx, "starrail/bgm", "song.mp3", strings.NewReader("xy"), 2, "audio/mpeg")
		require.NoError(t, err)

		items, err := store.List(ctx, "starrail")
		require.NoError(t, err)
		require.Len(t, items, 2)

		byName := map[string]ObjectInfo{}
		for _, item := range items {
			byName[item.Name] = item
		}
		assert.True(t, byName["bgm"].IsDir)
		assert.Equal(t, "/starrail/bgm", byName["bgm"].Path)
		assert.False(t, byName["root.png"].IsDir)
		assert.Equal(t, "/starrail/root.png", byName["root.png"].Path)
	})

	t.Run("目录不存在时返回空列表", func(t *testing.T) {
		store := newTestLocalStore(t)
		items, err := store.List(ctx, "nothing-here")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("不支持容量查询", func(t *testing.T) {
		store := newTestLocalStore(t)
		_, err := store.Quota(ctx)
		assert.ErrorIs(t, err, ErrQuotaUnsupported)
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestNew(t *testing.T) {
	t.Run("未知后端", func(t *testing.T) {
		_, err := New(config.StorageConfig{Provider: "ftp"})
		assert.ErrorIs(t, err, ErrUnsupportedProvider)
	})

	t.Run("WebDAV为默认后端", func(t *testing.T) {
		store, err := New(config.StorageConfig{URL: "http://localhost:5244/dav", BasePath: "/hoyodb", PublicURL: "http://localhost:5244/d"})
		require.NoError(t, err)
		assert.Equal(t, "webdav", store.Provider())
		assert.Equal(t, "http://localhost:5244/d/hoyodb/starrail/bgm/1-a.mp3", store.URL("starrail/bgm", "1-a.mp3"))
	})
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, "/hoyodb/starrail/a.png", fullPath("/hoyodb", "starrail", "a.png"))
	assert.Equal(t, "/starrail/a.png", fullPath("", "starrail", "a.png"))
	assert.Equal(t, "hoyodb/starrail/a.png", objectKey("/hoyodb", "starrail", "a.png"))
	assert.Equal(t, "hoyodb/starrail/", dirPrefix("/hoyodb", "starrail"))
	assert.Equal(t, "hoyodb/", dirPrefix("/hoyodb", "/"))
	assert.Equal(t, "", dirPrefix("", "/"))
	assert.Equal(t, "/starrail/bgm", relPath("/hoyodb", "hoyodb/starrail/bgm/"))
	assert.Equal(t, "http://cdn.example.com/a/b.png", joinURL("http://cdn.example.com/", "/a/b.png"))
}

func TestObjectName(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	t.Run("时间戳与扩展名", func(t *testing.T) {
		assert.Equal(t, "1700000000123-deadbeef.jpg", ObjectName(now, "deadbeef", "Photo.JPG"))
		assert.Equal(t, "1700000000123-deadbeef", ObjectName(now, "deadbeef", "noext"))
		assert.Equal(t, "1700000000123-deadbeef", ObjectName(now, "deadbeef", "../../etc/passwd.$x"))
	})

	t.Run("同一毫秒内随机串不同", func(t *testing.T) {
		a := ObjectName(now, RandomToken(), "a.png")
		b := ObjectName(now, RandomToken(), "a.png")
		assert.NotEqual(t, a, b)
		assert.True(t, strings.HasPrefix(a, "1700000000123-"))
	})

	t.Run("路径片段校验", func(t *testing.T) {
		assert.True(t, ValidSegment("starrail"))
		assert.True(t, ValidSegment("5-star"))
		assert.False(t, ValidSegment(""))
		assert.False(t, ValidSegment(".."))
		assert.False(t, ValidSegment("a/b"))
		assert.False(t, ValidSegment("a\\b"))
	})

	assert.Equal(t, "starrail", TargetDir("starrail", ""))
	assert.Equal(t, "starrail/character-art", TargetDir("starrail", "character-art"))
}

func TestParseQuota(t *testing.T) {
	t.Run("解析配额属性", func(t *testing.T) {
		body := `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/dav/</d:href>
    <d:propstat>
      <d:prop>
        <d:quota-used-bytes>1024</d:quota-used-bytes>
        <d:quota-available-bytes>4096</d:quota-available-bytes>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`
		q, err := parseQuota(strings.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, int64(1024), q.Used)
		assert.Equal(t, int64(4096), q.Available)
	})

	t.Run("缺少配额属性", func(t *testing.T) {
		body := `<?xml version="1.0"?><d:multistatus xmlns:d="DAV:"><d:response><d:propstat><d:prop/></d:propstat></d:response></d:multistatus>`
		_, err := parseQuota(strings.NewReader(body))
		assert.ErrorIs(t, err, ErrQuotaUnsupported)
	})

	t.Run("配额格式错误", func(t *testing.T) {
		for _, prop := range []string{
			`<d:quota-used-bytes>12abc</d:quota-used-bytes>`,
			`<d:quota-used-bytes>10</d:quota-used-bytes><d:quota-available-bytes>-5</d:quota-available-bytes>`,
		} {
			body := `<?xml version="1.0"?><d:multistatus xmlns:d="DAV:"><d:response><d:propstat><d:prop>` + prop + `</d:prop></d:propstat></d:response></d:multistatus>`
			q, err := parseQuota(strings.NewReader(body))
			require.Error(t, err, prop)
			assert.NotErrorIs(t, err, ErrQuotaUnsupported)
			assert.Nil(t, q)
		}
	})

	t.Run("只有已用容量", func(t *testing.T) {
		body := `<?xml version="1.0"?><d:multistatus xmlns:d="DAV:"><d:response><d:propstat><d:prop><d:quota-used-bytes>2048</d:quota-used-bytes></d:prop></d:propstat></d:response></d:multistatus>`
		q, err := parseQuota(strings.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, int64(2048), q.Used)
		assert.Zero(t, q.Available)
	})
}
