package video

import (
	"context"
	"time"

	domain "clipshare/internal/domain/video"
)

// VideoStore is the part of the record store the workflows use.
type VideoStore interface {
	CreateVideo(ctx context.Context, v *domain.Video) error
	GetVideo(ctx context.Context, id string) (*domain.Video, error)
	ListVideos(ctx context.Context) ([]domain.Video, error)
	DeleteVideo(ctx context.Context, id string) (bool, error)
}

// ShareStore is the part of the record store the share-link manager uses.
type ShareStore interface {
	GetVideo(ctx context.Context, id string) (*domain.Video, error)
	CreateShareLink(ctx context.Context, l *domain.ShareLink) error
	GetShareLinkByToken(ctx context.Context, token string) (*domain.ShareLink, error)
	DeleteExpiredShareLinks(ctx context.Context, now time.Time) (int64, error)
}

var (
	_ VideoStore = domain.Repository(nil)
	_ ShareStore = domain.Repository(nil)
)
