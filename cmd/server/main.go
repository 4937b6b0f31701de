package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"shortlink-platform/internal/config"
	"shortlink-platform/internal/geoip"
	"shortlink-platform/internal/handler"
	"shortlink-platform/internal/middleware"
	"shortlink-platform/internal/repository"
	"shortlink-platform/internal/service"
	"shortlink-platform/pkg/database"
	auth "shortlink-platform/pkg/jwt"
	"shortlink-platform/pkg/logger"
	"shortlink-platform/pkg/redis"

	_ "shortlink-platform/docs"

	"github.com/gin-gonic/gin"
	redisClient "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title 短链接平台 API
// @version 1.0
// @description 短码分配、重定向与点击分析服务
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Println("配置加载失败:", err)
		return
	}

	logger.InitLogger(cfg.Log.Level, cfg.Log.File)
	defer func() {
		if err := logger.Logger.Sync(); err != nil {
			fmt.Println("日志同步失败:", err)
		}
	}()
	sugaredLogger := zap.S()

	db, err := database.InitMySQL(cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name)
	if err != nil {
		sugaredLogger.Fatalf("数据库初始化失败: %v", err)
	}
	sugaredLogger.Info("✅ 数据库连接成功")

	var rdb *redisClient.Client
	if cfg.Cache.Host != "" {
		rdb, err = redis.NewRedisClient(&redis.Options{
			Host: cfg.Cache.Host, Port: cfg.Cache.Port, Password: cfg.Cache.Password, DB: cfg.Cache.DB,
		})
		if err != nil {
			sugaredLogger.Warnf("缓存连接失败: %v", err)
		} else {
			defer func() {
				if err := rdb.Close(); err != nil {
					sugaredLogger.Errorf("关闭 Redis 连接失败: %v", err)
				}
			}()
			sugaredLogger.Info("✅ 缓存连接成功")
		}
	}

	// 地理位置查询是尽力而为的外部协作方，未配置时一律返回未知
	var geoResolver geoip.Resolver = geoip.NoopResolver{}
	if cfg.GeoIP.Endpoint != "" {
		timeout := time.Duration(cfg.GeoIP.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		geoResolver = geoip.NewHTTPResolver(cfg.GeoIP.Endpoint, timeout)
		sugaredLogger.Info("✅ 地理位置查询已启用")
	}

	linkRepo := repository.NewLinkRepository(db)
	clickRepo := repository.NewClickRepository(db)

	registry := service.NewRegistry(linkRepo, sugaredLogger)
	recorder := service.NewRecorder(clickRepo, geoResolver, sugaredLogger)
	aggregator := service.NewAggregator(linkRepo, clickRepo)

	dispatcher := service.NewDispatcher(registry, recorder, rdb, cfg.Analytics.QueueSize, sugaredLogger)
	dispatcher.Start(cfg.Analytics.Workers)
	defer dispatcher.Stop()
	sugaredLogger.Info("✅ 重定向分发器已启动")

	tokenManager := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.ExpirationHours)
	sugaredLogger.Info("✅ 认证管理器初始化成功")

	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapRecovery(logger.Logger, true))
	router.Use(middleware.GinZapLogger(logger.Logger))
	router.Use(middleware.RateLimit(&cfg.RateLimit))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	linkHandler := handler.NewShortLinkHandler(registry, dispatcher)
	analyticsHandler := handler.NewAnalyticsHandler(registry, aggregator, recorder)

	registerRoutes(router, linkHandler, analyticsHandler, tokenManager)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	sugaredLogger.Infof("🚀 服务启动成功, 访问 http://localhost:%d", cfg.Server.Port)
	sugaredLogger.Infof("📚 Swagger 文档地址: http://localhost:%d/swagger/index.html", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugaredLogger.Fatalf("服务启动失败: %v", err)
	}
}

func registerRoutes(
	router *gin.Engine,
	linkHandler *handler.ShortLinkHandler,
	analyticsHandler *handler.AnalyticsHandler,
	tokenManager *auth.TokenManager,
) {
	authMiddleware := middleware.AuthMiddleware(tokenManager)
	optionalAuth := middleware.OptionalAuthMiddleware(tokenManager)

	router.GET("/health", linkHandler.HealthCheck)
	router.GET("/:code", linkHandler.RedirectToOriginal)

	// 缩短接口对匿名用户开放，带令牌时链接归属到用户名下
	public := router.Group("/api")
	public.Use(optionalAuth)
	{
		public.POST("/shorten", linkHandler.CreateShortLink)
		public.POST("/shorten/bulk", linkHandler.BulkShorten)
		public.GET("/alias/:alias/available", linkHandler.AliasAvailable)
	}

	api := router.Group("/api")
	api.Use(authMiddleware)
	{
		api.GET("/links", linkHandler.GetLinks)
		api.PUT("/links/:id", linkHandler.UpdateLink)
		api.DELETE("/links/:id", linkHandler.DeleteLink)

		api.POST("/links/:id/clicks", analyticsHandler.RecordClick)
		api.GET("/analytics/summary", analyticsHandler.GetSummary)
		api.GET("/analytics/:id/trends", analyticsHandler.GetTrends)
		api.GET("/analytics/:id/geo", analyticsHandler.GetGeo)
		api.GET("/analytics/:id/devices", analyticsHandler.GetDevices)
		api.GET("/analytics/:id/referers", analyticsHandler.GetReferers)
	}
}
