package server

import (
	"context"
	"net/http"

	"amico-server/app/config"
	"amico-server/app/database"
	"amico-server/app/filewatcher"
	"amico-server/app/handler"
	"amico-server/app/logger"
	"amico-server/app/middleware"
	"amico-server/app/service"
	"amico-server/app/utils/styleclient"
	"amico-server/app/utils/tripoclient"

	"github.com/gin-gonic/gin"
)

// Server 表示 HTTP 服务器
type Server struct {
	Config *config.Config
	Logger *logger.Logger
	gin    *gin.Engine
	http   *http.Server

	pipeline *service.PipelineService
	janitor  *service.CacheJanitor
	watcher  *filewatcher.InboxWatcher
}

// NewServer 创建一个新的 Server 实例
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	router := gin.Default()

	db := database.GetDB()
	sessions := service.NewSessionStore(db, log)
	gallery := service.NewGalleryStore(db, log)
	cache := service.NewAssetCache(db, log,
		int64(cfg.Cache.MaxAssetSize)*1024*1024,
		cfg.Cache.MemoryTTLDuration())

	tripo := tripoclient.New(&cfg.Tripo, log)
	style := styleclient.New(&cfg.Style, log)
	pipeline := service.NewPipelineService(cfg, log, tripo, style, sessions, gallery, cache)

	watcher, err := filewatcher.NewInboxWatcher(&cfg.Watcher, pipeline, log)
	if err != nil {
		return nil, err
	}

	s := &Server{
		gin: router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		Config:   cfg,
		Logger:   log,
		pipeline: pipeline,
		janitor:  service.NewCacheJanitor(cache, gallery, log),
		watcher:  watcher,
	}

	s.setupRoutes(gallery, cache)

	return s, nil
}

// Start 启动服务器
func (s *Server) Start() error {
	// 先从存档恢复上次的进度
	if err := s.pipeline.Resume(); err != nil {
		s.Logger.Errorf("恢复会话失败: %v", err)
	}

	if err := s.janitor.Start(s.Config.Cache.JanitorCron); err != nil {
		s.Logger.Errorf("启动缓存清理任务失败: %v", err)
	}

	if err := s.watcher.Start(); err != nil {
		s.Logger.Errorf("启动收件目录监控失败: %v", err)
	}

	s.Logger.Infof("在端口 %s 启动服务器", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.watcher.Stop(); err != nil {
		s.Logger.Errorf("停止收件目录监控失败: %v", err)
	}
	s.janitor.Stop()

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.Logger.Errorf("关闭数据库连接失败: %v", err)
	}
	return s.http.Shutdown(ctx)
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes(gallery *service.GalleryStore, cache *service.AssetCache) {
	authHandler := handler.NewAuthHandler(s.Config)
	pipelineHandler := handler.NewPipelineHandler(s.pipeline, s.Logger)
	galleryHandler := handler.NewGalleryHandler(gallery, s.pipeline, s.Logger)
	assetHandler := handler.NewAssetHandler(cache, s.Logger)

	// API路由组
	api := s.gin.Group("/api")

	// 认证相关路由（不需要JWT验证）
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	// 渲染器直连路由（不走登录态）
	api.GET("/assets/:entity/:variant", assetHandler.ServeAsset)
	api.GET("/proxy/glb", assetHandler.ProxyGLB)

	// 需要JWT验证的路由
	protected := api.Group("/")
	protected.Use(middleware.JWTAuth(s.Config))
	{
		// 用户相关
		protected.GET("/me", authHandler.Me)

		// 创建流水线
		pipeline := protected.Group("/pipeline")
		{
			pipeline.POST("/style", pipelineHandler.StylizeImage)
			pipeline.POST("/text-style", pipelineHandler.StylizeFromText)
			pipeline.POST("/model", pipelineHandler.GenerateModel)
			pipeline.POST("/rig", pipelineHandler.GenerateRig)
			pipeline.POST("/animate", pipelineHandler.GenerateAnimation)
			pipeline.POST("/animations/:preset", pipelineHandler.RequestPresetAnimation)
			pipeline.GET("/session", pipelineHandler.GetSession)
			pipeline.DELETE("/session", pipelineHandler.ClearSession)
		}

		// 角色图鉴
		galleryGroup := protected.Group("/gallery")
		{
			galleryGroup.GET("", galleryHandler.ListCharacters)
			galleryGroup.DELETE("/:id", galleryHandler.DeleteCharacter)
			galleryGroup.GET("/:id/model", galleryHandler.ResolveModel)
		}
	}
}
