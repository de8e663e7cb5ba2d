package video

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Repository interface {
	CreateVideo(ctx context.Context, v *Video) error
	GetVideo(ctx context.Context, id string) (*Video, error)
	ListVideos(ctx context.Context) ([]Video, error)
	// DeleteVideo removes the row and its share links. It reports false when
	// no row was removed, e.g. a concurrent delete got there first.
	DeleteVideo(ctx context.Context, id string) (bool, error)

	CreateShareLink(ctx context.Context, l *ShareLink) error
	GetShareLinkByToken(ctx context.Context, token string) (*ShareLink, error)
	DeleteExpiredShareLinks(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Migrate creates or updates the videos and shared_links tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Video{}, &ShareLink{})
}

func (r *repository) CreateVideo(ctx context.Context, v *Video) error {
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *repository) GetVideo(ctx context.Context, id string) (*Video, error) {
	var v Video
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVideoNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repository) ListVideos(ctx context.Context) ([]Video, error) {
	var videos []Video
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&videos).Error
	return videos, err
}

func (r *repository) DeleteVideo(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_id = ?", id).Delete(&ShareLink{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Video{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

func (r *repository) CreateShareLink(ctx context.Context, l *ShareLink) error {
	if err := r.db.WithContext(ctx).Omit("Video").Create(l).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *repository) GetShareLinkByToken(ctx context.Context, token string) (*ShareLink, error) {
	var l ShareLink
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrShareLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repository) DeleteExpiredShareLinks(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&ShareLink{})
	return res.RowsAffected, res.Error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
