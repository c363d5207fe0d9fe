package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DimensionDev/Flare-sub003/internal/api"
	"github.com/DimensionDev/Flare-sub003/internal/cache"
	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/engine"
	"github.com/DimensionDev/Flare-sub003/internal/store"
	"github.com/DimensionDev/Flare-sub003/pkg/config"
	"github.com/DimensionDev/Flare-sub003/pkg/logging"
	"github.com/DimensionDev/Flare-sub003/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Flare sync engine")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Open the cache database
	database, err := db.New(cfg.Database.Path, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to open cache database", zap.Error(err))
	}
	defer database.Close()

	// Optional Redis hot cache
	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	// Wire accounts into the sync engine
	cacheStore := store.New(database)
	eng, err := engine.New(cfg, cacheStore)
	if err != nil {
		logger.Fatal("Failed to set up accounts", zap.Error(err))
	}

	// Surface asynchronous mutation failures in the log
	go func() {
		for failure := range eng.Mutations().Failures() {
			logger.Warn("Mutation failed remotely",
				zap.String("account", failure.AccountKey.String()),
				zap.String("status", failure.StatusKey.String()),
				zap.String("mutation", failure.Name),
				zap.Error(failure.Err))
		}
	}()

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	apiRouter := api.NewRouter(eng, redisCache)
	apiRouter.SetupRoutes(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// Graceful shutdown: stop accepting requests, then wait for
	// in-flight remote mutations to settle.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	eng.Mutations().Wait()

	logger.Info("Engine exited")
}
