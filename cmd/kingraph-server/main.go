package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/kingraph/kingraph/pkg/kingraph/cache"
	"github.com/kingraph/kingraph/pkg/kingraph/config"
	"github.com/kingraph/kingraph/pkg/kingraph/csvio"
	"github.com/kingraph/kingraph/pkg/kingraph/database"
	"github.com/kingraph/kingraph/pkg/kingraph/edges"
	"github.com/kingraph/kingraph/pkg/kingraph/engine"
	"github.com/kingraph/kingraph/pkg/kingraph/entities"
	"github.com/kingraph/kingraph/pkg/kingraph/graph"
	"github.com/kingraph/kingraph/pkg/kingraph/groups"
	"github.com/kingraph/kingraph/pkg/kingraph/logger"
	"github.com/kingraph/kingraph/pkg/kingraph/middleware"
	"github.com/kingraph/kingraph/pkg/kingraph/models"
	"github.com/kingraph/kingraph/pkg/kingraph/store"
	"github.com/kingraph/kingraph/pkg/kingraph/telemetry"
	"go.uber.org/zap"
)

// @title Kingraph API
// @version 1.0
// @description A relationship graph of people, groups and connections with a cached graph view.

// @host localhost:8080
// @BasePath /api

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()
	log := logger.Get()

	// Connect to database and run migrations
	if err := database.Connect(cfg.DBPath); err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := models.AutoMigrate(database.GetDB()); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database migrations completed", zap.String("path", cfg.DBPath))

	// Initialize the cache handle, once per process
	var cacheClient cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.NewRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		log.Info("Using redis cache", zap.String("url", cfg.RedisURL))
	} else {
		cacheClient = cache.NewMemory()
		log.Info("REDIS_URL not set - using in-memory cache")
	}
	defer func() {
		if err := cacheClient.Close(); err != nil {
			log.Warn("Failed to close cache", zap.Error(err))
		}
	}()

	st := store.New(database.GetDB())
	eng := engine.New(st, cacheClient, log)

	// Set up Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := r.Group("/api")
	if !cfg.DisableRateLimit {
		api.Use(middleware.RateLimitMiddleware(cacheClient, log))
	}
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "kingraph",
			})
		})

		entities.NewHandler(eng, st).RegisterRoutes(api)
		groups.NewHandler(eng, st).RegisterRoutes(api)
		edges.NewHandler(eng).RegisterRoutes(api)
		graph.NewHandler(eng, st, cacheClient, log).RegisterRoutes(api)
		csvio.NewHandler(eng, st, log).RegisterRoutes(api)
		telemetry.NewHandler(log).RegisterRoutes(api)
	}

	log.Info("Starting kingraph server", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
