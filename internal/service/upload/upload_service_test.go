package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sumicowork/HOYODB/config"
	"github.com/sumicowork/HOYODB/internal/database"
	apperrors "github.com/sumicowork/HOYODB/internal/errors"
	"github.com/sumicowork/HOYODB/internal/service/material"
	"github.com/sumicowork/HOYODB/internal/storage"
)

type objectRef struct {
	Dir  string
	Name string
}

// fakeStore 记录调用的内存对象存储
type fakeStore struct {
	mu        sync.Mutex
	uploads   []objectRef
	deletes   []objectRef
	objects   map[string][]byte
	uploadErr error
	deleteErr error
	deleteCtx context.Context
	quota     *storage.QuotaInfo
	quotaErr  error
	pingErr   error
	listing   []storage.ObjectInfo
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Upload(ctx context.Context, dir, name string, r io.Reader, size int64, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, objectRef{dir, name})
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.objects[dir+"/"+name] = data
	return f.URL(dir, name), nil
}

func (f *fakeStore) Delete(ctx context.Context, dir, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, objectRef{dir, name})
	f.deleteCtx = ctx
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, dir+"/"+name)
	return nil
}

func (f *fakeStore) Exists(ctx context.Context, dir, name string) (bool, error) {
	_, ok := f.objects[dir+"/"+name]
	return ok, nil
}

func (f *fakeStore) Stat(ctx context.Context, dir, name string) (*storage.ObjectInfo, error) {
	data, ok := f.objects[dir+"/"+name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.ObjectInfo{Name: name, Path: dir + "/" + name, Size: int64(len(data))}, nil
}

func (f *fakeStore) List(ctx context.Context, dir string) ([]storage.ObjectInfo, error) {
	return f.listing, nil
}

func (f *fakeStore) Open(ctx context.Context, dir, name string) (io.ReadCloser, error) {
	data, ok := f.objects[dir+"/"+name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStore) Quota(ctx context.Context) (*storage.QuotaInfo, error) {
	return f.quota, f.quotaErr
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) URL(dir, name string) string {
	return "http://files.test/d/hoyodb/" + dir + "/" + name
}

func (f *fakeStore) Provider() string { return "fake" }

func (f *fakeStore) Endpoint() string { return "http://files.test/dav" }

// fakeCreator 可配置失败的素材创建者
type fakeCreator struct {
	calls []*material.CreateMaterialRequest
	err   error
}

func (f *fakeCreator) CreateMaterial(ctx context.Context, req *material.CreateMaterialRequest) (*database.Material, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &database.Material{
		ID:         1,
		GameID:     req.GameID,
		CategoryID: req.CategoryID,
		Title:      req.Title,
		FilePath:   req.FilePath,
		FileSize:   int64(*req.FileSize),
		FileType:   req.FileType,
	}, nil
}

func newTestService(store *fakeStore, creator *fakeCreator) *Service {
	svc := NewService(store, creator, Options{
		MaxFileSize:  10 << 20,
		MaxBatch:     3,
		AllowedMimes: []string{"image/jpeg", "image/png", "video/mp4"},
	})
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc
}

func jpegPayload(size int) *FilePayload {
	return &FilePayload{
		Name:        "kafka.JPG",
		Size:        int64(size),
		ContentType: "image/jpeg",
		Body:        bytes.NewReader(make([]byte, size)),
	}
}

func uploadRequest(file *FilePayload) *CreateWithUploadRequest {
	return &CreateWithUploadRequest{
		GameID:       1,
		GameSlug:     "starrail",
		CategoryID:   2,
		CategorySlug: "character-art",
		Title:        "Kafka",
		TagIDs:       []uint{3},
		File:         file,
	}
}

func TestCreateMaterialWithUpload(t *testing.T) {
	t.Run("上传成功后创建素材", func(t *testing.T) {
		store := newFakeStore()
		creator := &fakeCreator{}
		svc := newTestService(store, creator)
		svc.token = func() string { return "abcd1234" }

		created, err := svc.CreateMaterialWithUpload(context.Background(), uploadRequest(jpegPayload(2048)))
		require.NoError(t, err)

		require.Len(t, store.uploads, 1)
		assert.Equal(t, objectRef{"starrail/character-art", "1700000000000-abcd1234.jpg"}, store.uploads[0])
		assert.Empty(t, store.deletes)

		require.Len(t, creator.calls, 1)
		req := creator.calls[0]
		assert.Equal(t, "http://files.test/d/hoyodb/starrail/character-art/1700000000000-abcd1234.jpg", req.FilePath)
		assert.Equal(t, material.FileSize(2048), *req.FileSize)
		assert.Equal(t, "image/jpeg", req.FileType)
		assert.Equal(t, []uint{3}, req.TagIDs)
		assert.Equal(t, req.FilePath, created.FilePath)
	})

	t.Run("创建失败时删除刚上传的文件且只删除一次", func(t *testing.T) {
		store := newFakeStore()
		dbErr := apperrors.New(apperrors.ErrTagNotFound, "部分标签不存在")
		creator := &fakeCreator{err: dbErr}
		svc := newTestService(store, creator)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_, err := svc.CreateMaterialWithUpload(ctx, uploadRequest(jpegPayload(16)))
		require.Error(t, err)
		assert.Same(t, dbErr, err)

		require.Len(t, store.uploads, 1)
		require.Len(t, store.deletes, 1)
		assert.Equal(t, store.uploads[0], store.deletes[0])
		assert.Empty(t, store.objects)
	})

	t.Run("请求取消后回滚删除仍然执行", func(t *testing.T) {
		store := newFakeStore()
		creator := &fakeCreator{err: errors.New("insert failed")}
		svc := newTestService(store, creator)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.CreateMaterialWithUpload(ctx, uploadRequest(jpegPayload(16)))
		require.Error(t, err)

		require.Len(t, store.deletes, 1)
		require.NotNil(t, store.deleteCtx)
		assert.NoError(t, store.deleteCtx.Err())
	})

	t.Run("回滚删除失败仍返回创建错误", func(t *testing.T) {
		store := newFakeStore()
		store.deleteErr = errors.New("webdav unavailable")
		dbErr := errors.New("insert failed")
		creator := &fakeCreator{err: dbErr}
		svc := newTestService(store, creator)

		_, err := svc.CreateMaterialWithUpload(context.Background(), uploadRequest(jpegPayload(16)))
		assert.Same(t, dbErr, err)
		assert.Len(t, store.deletes, 1)
	})

	t.Run("上传失败不写数据库", func(t *testing.T) {
		store := newFakeStore()
		store.uploadErr = errors.New("connection refused")
		creator := &fakeCreator{}
		svc := newTestService(store, creator)

		_, err := svc.CreateMaterialWithUpload(context.Background(), uploadRequest(jpegPayload(16)))
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrStorageUploadFailed))
		assert.Len(t, store.uploads, 1)
		assert.Empty(t, store.deletes)
		assert.Empty(t, creator.calls)
	})

	t.Run("无文件时使用提供的路径且不访问存储", func(t *testing.T) {
		store := newFakeStore()
		creator := &fakeCreator{}
		svc := newTestService(store, creator)

		size := int64(4096)
		req := uploadRequest(nil)
		req.FilePath = "http://cdn.test/a.png"
		req.FileSize = &size
		req.FileType = "image/png"

		_, err := svc.CreateMaterialWithUpload(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, store.uploads)
		assert.Empty(t, store.deletes)
		require.Len(t, creator.calls, 1)
		assert.Equal(t, "http://cdn.test/a.png", creator.calls[0].FilePath)
		assert.Equal(t, material.FileSize(4096), *creator.calls[0].FileSize)
	})

	t.Run("无文件时创建失败不删除任何对象", func(t *testing.T) {
		store := newFakeStore()
		creator := &fakeCreator{err: errors.New("insert failed")}
		svc := newTestService(store, creator)

		size := int64(1)
		req := uploadRequest(nil)
		req.FilePath = "http://cdn.test/a.png"
		req.FileSize = &size
		req.FileType = "image/png"

		_, err := svc.CreateMaterialWithUpload(context.Background(), req)
		require.Error(t, err)
		assert.Empty(t, store.uploads)
		assert.Empty(t, store.deletes)
	})

	t.Run("校验失败不产生任何IO", func(t *testing.T) {
		cases := map[string]func(*CreateWithUploadRequest){
			"缺少标题":      func(r *CreateWithUploadRequest) { r.Title = " " },
			"缺少游戏ID":    func(r *CreateWithUploadRequest) { r.GameID = 0 },
			"缺少分类ID":    func(r *CreateWithUploadRequest) { r.CategoryID = 0 },
			"缺少游戏标识":    func(r *CreateWithUploadRequest) { r.GameSlug = "" },
			"非法分类标识":    func(r *CreateWithUploadRequest) { r.CategorySlug = "../etc" },
			"不支持的类型":    func(r *CreateWithUploadRequest) { r.File.ContentType = "application/x-msdownload" },
			"文件过大":      func(r *CreateWithUploadRequest) { r.File.Size = 11 << 20 },
			"非法状态":      func(r *CreateWithUploadRequest) { r.Status = "DELETED" },
			"无文件也无路径信息": func(r *CreateWithUploadRequest) { r.File = nil },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				store := newFakeStore()
				creator := &fakeCreator{}
				svc := newTestService(store, creator)

				req := uploadRequest(jpegPayload(16))
				mutate(req)
				_, err := svc.CreateMaterialWithUpload(context.Background(), req)
				require.Error(t, err)
				assert.Empty(t, store.uploads)
				assert.Empty(t, store.deletes)
				assert.Empty(t, creator.calls)
			})
		}
	})

	t.Run("只有分类为空时上传到游戏目录", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store, &fakeCreator{})

		req := uploadRequest(jpegPayload(16))
		req.CategorySlug = ""
		_, err := svc.CreateMaterialWithUpload(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, store.uploads, 1)
		assert.Equal(t, "starrail", store.uploads[0].Dir)
	})
}

func TestCreateMaterialWithUploadOnDatabase(t *testing.T) {
	db, err := database.Init(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"}, true)
	require.NoError(t, err)

	game := database.Game{Name: "崩坏：星穹铁道", Slug: "starrail", IsActive: true}
	require.NoError(t, db.Create(&game).Error)
	category := database.Category{GameID: game.ID, Name: "角色立绘", Slug: "character-art"}
	require.NoError(t, db.Create(&category).Error)

	// 读取 materials 表时按开关返回错误
	var failReads atomic.Bool
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:fail_material_reads", func(tx *gorm.DB) {
		if failReads.Load() && tx.Statement.Table == "materials" {
			_ = tx.AddError(errors.New("read replica down"))
		}
	}))

	store := newFakeStore()
	svc := NewService(store, material.NewService(db), Options{
		MaxFileSize:  10 << 20,
		MaxBatch:     3,
		AllowedMimes: []string{"image/jpeg"},
	})
	req := func() *CreateWithUploadRequest {
		return &CreateWithUploadRequest{
			GameID:       game.ID,
			GameSlug:     game.Slug,
			CategoryID:   category.ID,
			CategorySlug: category.Slug,
			Title:        "Kafka",
			File:         jpegPayload(64),
		}
	}

	t.Run("写入后读取失败时不留下记录", func(t *testing.T) {
		failReads.Store(true)
		_, err := svc.CreateMaterialWithUpload(context.Background(), req())
		failReads.Store(false)
		require.Error(t, err)

		require.Len(t, store.uploads, 1)
		require.Len(t, store.deletes, 1)
		assert.Empty(t, store.objects)

		var count int64
		require.NoError(t, db.Model(&database.Material{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("读取正常时文件与记录一致", func(t *testing.T) {
		created, err := svc.CreateMaterialWithUpload(context.Background(), req())
		require.NoError(t, err)
		require.NotNil(t, created.Game)
		assert.Equal(t, "starrail", created.Game.Slug)

		ref := store.uploads[len(store.uploads)-1]
		assert.Equal(t, store.URL(ref.Dir, ref.Name), created.FilePath)
		assert.Contains(t, store.objects, ref.Dir+"/"+ref.Name)
		assert.Len(t, store.deletes, 1)
	})
}

func TestObjectNamesWithinSameMillisecond(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeCreator{})

	for i := 0; i < 50; i++ {
		_, err := svc.UploadFile(context.Background(), "starrail", "", jpegPayload(8))
		require.NoError(t, err)
	}

	seen := make(map[string]struct{})
	for _, ref := range store.uploads {
		assert.True(t, strings.HasPrefix(ref.Name, "1700000000000-"))
		assert.True(t, strings.HasSuffix(ref.Name, ".jpg"))
		seen[ref.Name] = struct{}{}
	}
	assert.Len(t, seen, 50)
}

func TestUploadFile(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeCreator{})
	svc.token = func() string { return "0f0f0f0f" }

	t.Run("返回访问地址与目录", func(t *testing.T) {
		result, err := svc.UploadFile(context.Background(), "starrail", "wallpaper", jpegPayload(32))
		require.NoError(t, err)
		assert.Equal(t, "1700000000000-0f0f0f0f.jpg", result.Filename)
		assert.Equal(t, "kafka.JPG", result.OriginalName)
		assert.Equal(t, "/starrail/wallpaper", result.Path)
		assert.Equal(t, int64(32), result.Size)
		assert.Equal(t, "image/jpeg", result.MimeType)
		assert.Equal(t, store.URL("starrail/wallpaper", result.Filename), result.URL)
	})

	t.Run("缺少游戏标识", func(t *testing.T) {
		_, err := svc.UploadFile(context.Background(), "", "", jpegPayload(1))
		require.Error(t, err)
		appErr, ok := apperrors.GetAppError(err)
		require.True(t, ok)
		assert.Equal(t, "缺少游戏标识", appErr.Message)
	})

	t.Run("没有文件", func(t *testing.T) {
		_, err := svc.UploadFile(context.Background(), "starrail", "", nil)
		assert.True(t, apperrors.Is(err, apperrors.ErrFileMissing))
	})
}

func TestUploadBatch(t *testing.T) {
	t.Run("部分失败", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store, &fakeCreator{})

		bad := jpegPayload(4)
		bad.Name = "virus.exe"
		bad.ContentType = "application/x-msdownload"

		result, err := svc.UploadBatch(context.Background(), "starrail", "", []*FilePayload{jpegPayload(4), bad})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Total)
		assert.Equal(t, 1, result.SuccessCount)
		assert.Equal(t, 1, result.FailedCount)
		assert.Equal(t, "virus.exe", result.Failed[0].OriginalName)
		assert.Equal(t, "不支持的文件类型: application/x-msdownload", result.Failed[0].Error)
		assert.Len(t, store.uploads, 1)
	})

	t.Run("超过单次上限", func(t *testing.T) {
		svc := newTestService(newFakeStore(), &fakeCreator{})
		files := []*FilePayload{jpegPayload(1), jpegPayload(1), jpegPayload(1), jpegPayload(1)}
		_, err := svc.UploadBatch(context.Background(), "starrail", "", files)
		assert.True(t, apperrors.Is(err, apperrors.ErrTooManyFiles))
	})
}

func TestMaintenance(t *testing.T) {
	t.Run("删除文件校验路径", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store, &fakeCreator{})

		require.NoError(t, svc.DeleteFile(context.Background(), "/starrail/wallpaper", "a.jpg"))
		assert.Equal(t, []objectRef{{"starrail/wallpaper", "a.jpg"}}, store.deletes)

		err := svc.DeleteFile(context.Background(), "/starrail/../..", "a.jpg")
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParams))
		err = svc.DeleteFile(context.Background(), "", "a.jpg")
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParams))
		assert.Len(t, store.deletes, 1)
	})

	t.Run("列出目录", func(t *testing.T) {
		store := newFakeStore()
		store.listing = []storage.ObjectInfo{
			{Name: "wallpaper", Path: "starrail/wallpaper", IsDir: true},
			{Name: "a.jpg", Path: "starrail/a.jpg", Size: 10},
		}
		svc := newTestService(store, &fakeCreator{})

		entries, err := svc.List(context.Background(), "/starrail")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "directory", entries[0].Type)
		assert.Equal(t, "/starrail/wallpaper", entries[0].Path)
		assert.Equal(t, "file", entries[1].Type)
	})

	t.Run("不支持容量查询时返回nil", func(t *testing.T) {
		store := newFakeStore()
		store.quotaErr = storage.ErrQuotaUnsupported
		svc := newTestService(store, &fakeCreator{})

		info, err := svc.StorageInfo(context.Background())
		require.NoError(t, err)
		assert.Nil(t, info)
	})

	t.Run("容量格式化", func(t *testing.T) {
		store := newFakeStore()
		store.quota = &storage.QuotaInfo{Used: 1536, Available: 1 << 30}
		svc := newTestService(store, &fakeCreator{})

		info, err := svc.StorageInfo(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "1.5 KB", info.UsedFormatted)
		assert.Equal(t, "1 GB", info.AvailableFormatted)
	})

	t.Run("连接状态", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store, &fakeCreator{})
		status := svc.Status(context.Background())
		assert.True(t, status.Connected)
		assert.Equal(t, "fake", status.Provider)

		store.pingErr = errors.New("dial tcp: refused")
		status = svc.Status(context.Background())
		assert.False(t, status.Connected)
		assert.Equal(t, "dial tcp: refused", status.Error)
	})
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", FormatBytes(0))
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "2 MB", FormatBytes(2<<20))
	assert.Equal(t, "1.23 KB", FormatBytes(1260))
}
