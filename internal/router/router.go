package router

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sumicowork/HOYODB/config"
	"github.com/sumicowork/HOYODB/internal/auth"
	"github.com/sumicowork/HOYODB/internal/handler"
	"github.com/sumicowork/HOYODB/internal/middleware"
	"github.com/sumicowork/HOYODB/internal/response"
	"github.com/sumicowork/HOYODB/internal/service/account"
	"github.com/sumicowork/HOYODB/internal/service/category"
	"github.com/sumicowork/HOYODB/internal/service/dashboard"
	"github.com/sumicowork/HOYODB/internal/service/game"
	"github.com/sumicowork/HOYODB/internal/service/material"
	"github.com/sumicowork/HOYODB/internal/service/tag"
	"github.com/sumicowork/HOYODB/internal/service/upload"
	"github.com/sumicowork/HOYODB/internal/storage"
)

// Version 服务版本
const Version = "1.0.0"

// Router 路由配置
type Router struct {
	engine *gin.Engine
	db     *gorm.DB
}

// localRooted 本地存储暴露根目录，用于挂载静态文件
type localRooted interface {
	Root() string
}

// NewRouter 创建路由实例
// 参数:
//   loggerMiddleware - 访问日志中间件
//   db - 数据库连接
//   store - 对象存储客户端
//   cfg - 应用配置
func NewRouter(loggerMiddleware *middleware.LoggerMiddleware, db *gorm.DB, store storage.ObjectStore, cfg *config.Config) *Router {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	engine := gin.New()

	// 初始化服务
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	accountService := account.NewService(db, tokens)
	gameService := game.NewService(db)
	categoryService := category.NewService(db)
	tagService := tag.NewService(db)
	materialService := material.NewService(db)
	dashboardService := dashboard.NewService(db)
	uploadService := upload.NewService(store, materialService, upload.Options{
		MaxFileSize:  cfg.Upload.MaxFileSize,
		MaxBatch:     cfg.Upload.MaxBatch,
		AllowedMimes: cfg.Upload.AllowedMimes,
	})

	// 初始化处理器
	authHandler := handler.NewAuthHandler(accountService)
	gameHandler := handler.NewGameHandler(gameService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	tagHandler := handler.NewTagHandler(tagService)
	materialHandler := handler.NewMaterialHandler(materialService, uploadService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	uploadHandler := handler.NewUploadHandler(uploadService)

	// 使用中间件
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(loggerMiddleware.Logger())
	if cfg.Server.VerboseLog {
		engine.Use(middleware.RequestLogger(middleware.DefaultRequestLoggerConfig()))
	}
	engine.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	// 文件大小由上传服务校验，这里只限制表单在内存中的部分
	engine.MaxMultipartMemory = 32 << 20

	// 健康检查
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "HOYODB API Server",
			"version": Version,
			"status":  "running",
		})
	})

	if rooted, ok := store.(localRooted); ok {
		if prefix := staticPrefix(cfg.Storage.PublicURL); prefix != "" {
			engine.StaticFS(prefix, gin.Dir(rooted.Root(), false))
		}
	}

	api := engine.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.GET("/verify", middleware.JWTAuth(tokens), authHandler.Verify)
		}

		games := api.Group("/games")
		{
			games.GET("", gameHandler.ListGames)
			games.GET("/:slug", gameHandler.GetGame)
		}

		materials := api.Group("/materials")
		{
			materials.GET("", materialHandler.ListMaterials)
			materials.GET("/:id", materialHandler.GetMaterial)
			materials.POST("/:id/download", materialHandler.RecordDownload)
		}

		tags := api.Group("/tags")
		{
			tags.GET("", tagHandler.ListTags)
			tags.GET("/:slug", tagHandler.GetTag)
		}

		// 管理端接口
		admin := api.Group("/admin", middleware.JWTAuth(tokens))
		{
			admin.GET("/dashboard/stats", dashboardHandler.Stats)

			admin.GET("/games", gameHandler.AdminListGames)
			admin.POST("/games", gameHandler.CreateGame)
			admin.PUT("/games/:id", gameHandler.UpdateGame)
			admin.DELETE("/games/:id", gameHandler.DeleteGame)

			admin.GET("/categories", categoryHandler.ListCategories)
			admin.POST("/categories", categoryHandler.CreateCategory)
			admin.PUT("/categories/:id", categoryHandler.UpdateCategory)
			admin.DELETE("/categories/:id", categoryHandler.DeleteCategory)

			admin.GET("/materials", materialHandler.AdminListMaterials)
			admin.POST("/materials", materialHandler.CreateMaterial)
			admin.POST("/materials/with-upload", materialHandler.CreateMaterialWithUpload)
			admin.GET("/materials/:id", materialHandler.AdminGetMaterial)
			admin.PUT("/materials/:id", materialHandler.UpdateMaterial)
			admin.DELETE("/materials/:id", materialHandler.DeleteMaterial)

			admin.GET("/tags", tagHandler.AdminListTags)
			admin.POST("/tags", tagHandler.CreateTag)
			admin.PUT("/tags/:id", tagHandler.UpdateTag)
			admin.DELETE("/tags/:id", tagHandler.DeleteTag)
		}

		// 存储维护接口
		files := api.Group("/upload", middleware.JWTAuth(tokens))
		{
			files.POST("/upload", uploadHandler.Upload)
			files.POST("/batch", uploadHandler.UploadBatch)
			files.DELETE("/delete", uploadHandler.DeleteFile)
			files.GET("/list", uploadHandler.ListFiles)
			files.GET("/storage", uploadHandler.StorageInfo)
			files.GET("/status", uploadHandler.Status)
		}
	}

	engine.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "路由不存在")
	})

	return &Router{
		engine: engine,
		db:     db,
	}
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// staticPrefix 公开地址的路径部分，根路径或 /api 下不挂载
func staticPrefix(publicURL string) string {
	u, err := url.Parse(publicURL)
	if err != nil {
		return ""
	}
	p := "/" + strings.Trim(u.Path, "/")
	if p == "/" || p == "/api" || strings.HasPrefix(p, "/api/") || p == "/health" {
		return ""
	}
	return p
}
