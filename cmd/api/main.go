package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"clipshare/internal/app"
	"clipshare/internal/config"
	"clipshare/internal/database"
	domain "clipshare/internal/domain/video"
	"clipshare/internal/media"
	"clipshare/internal/metrics"
	"clipshare/internal/modules/video"
	"clipshare/internal/pkg/cache"
	"clipshare/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewLogger(cfg.Server.Mode)
	defer func() { _ = appLogger.Sync() }()

	if err := os.MkdirAll(cfg.Storage.UploadDir, 0o755); err != nil {
		log.Fatalf("Failed to create upload dir: %v", err)
	}

	db, err := database.Connect(cfg.Database.URL, appLogger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := domain.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	var shareCache cache.Cache
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		shareCache = rdb
	} else {
		appLogger.Info("redis not configured, share links resolve from the database")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	repo := domain.NewRepository(db)
	tool := media.NewFFTool(cfg.Media.FFprobePath, cfg.Media.FFmpegPath, cfg.Media.Timeout)

	videoService := video.NewService(repo, tool, video.Config{
		UploadDir: cfg.Storage.UploadDir,
		Policy:    cfg.Policy,
	}, appLogger, m)
	shareService := video.NewShareService(repo, shareCache, video.ShareConfig{
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	}, appLogger, m)
	videoHandler := video.NewHandler(videoService, shareService, video.HandlerConfig{
		DefaultTTLHours:  cfg.Share.DefaultTTLHours,
		UploadLimitBytes: cfg.Storage.UploadLimitBytes,
	}, appLogger, m)

	r := app.SetupRouter(cfg, app.Deps{
		DB:       db,
		Videos:   videoHandler,
		Verifier: app.NewVerifier(cfg),
		Logger:   appLogger,
		Gatherer: reg,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopCleanup := video.NewShareCleaner(shareService, appLogger).Schedule(ctx, cfg.Share.CleanupInterval)
	defer close(stopCleanup)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port, "upload_dir", cfg.Storage.UploadDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to run server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
	}

	appLogger.Info("server exiting")
}
