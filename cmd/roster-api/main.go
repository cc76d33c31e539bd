package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-roster-api/api/swagger"
	"github.com/noah-isme/sma-roster-api/internal/handler"
	"github.com/noah-isme/sma-roster-api/internal/middleware"
	"github.com/noah-isme/sma-roster-api/internal/repository"
	"github.com/noah-isme/sma-roster-api/internal/service"
	"github.com/noah-isme/sma-roster-api/pkg/cache"
	"github.com/noah-isme/sma-roster-api/pkg/config"
	"github.com/noah-isme/sma-roster-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-roster-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-roster-api/pkg/middleware/requestid"
)

// @title Student Roster API
// @version 0.1.0
// @description In-memory student roster with search, filters and sorting
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()

	store := repository.NewRosterRepository()
	store.Subscribe(metrics.ObserveRosterEvent)

	session := service.NewSessionService(
		store,
		service.NewRosterValidator(validator.New()),
		service.NewQueryEngine(cfg.Roster.CollationLocale),
		metrics,
		logr.Named("session"),
	)

	var redisClient *redis.Client
	if cfg.Exports.CacheEnabled {
		redisClient, err = cache.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			logr.Warn("export cache unavailable, continuing without it", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}
	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, cfg.Exports.CachePrefix),
		metrics,
		cfg.Exports.CacheTTL,
		logr.Named("cache"),
		cfg.Exports.CacheEnabled && redisClient != nil,
	)
	exports := service.NewExportService(session, cacheSvc, metrics, service.ExportConfig{
		Enabled:  cfg.Exports.Enabled,
		Title:    cfg.Exports.Title,
		CacheTTL: cfg.Exports.CacheTTL,
	}, logr.Named("export"), nil, nil)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins, handler.HeaderCacheHit, handler.HeaderRosterRevision))

	handler.Register(r, cfg.APIPrefix, handler.Handlers{
		Roster:  handler.NewRosterHandler(session),
		Exports: handler.NewExportHandler(exports),
		Metrics: handler.NewMetricsHandler(metrics),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "prefix", cfg.APIPrefix)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
