package main

import (
	"context"
	"log"

	"clipshare/internal/config"
	"clipshare/internal/database"
	domain "clipshare/internal/domain/video"
	"clipshare/internal/modules/video"
	"clipshare/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	l := logger.NewLogger(cfg.Server.Mode)
	defer func() { _ = l.Sync() }()

	db, err := database.Connect(cfg.Database.URL, l)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	if err := domain.Migrate(db); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	shares := video.NewShareService(domain.NewRepository(db), nil, video.ShareConfig{
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	}, l, nil)

	if _, err := video.NewShareCleaner(shares, l).RunOnce(context.Background()); err != nil {
		log.Fatalf("share link cleanup failed: %v", err)
	}
}
