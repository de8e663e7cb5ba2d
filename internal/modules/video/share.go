package video

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "clipshare/internal/domain/video"
	"clipshare/internal/metrics"
	"clipshare/internal/pkg/cache"
	"clipshare/internal/pkg/logger"
)

const shareCachePrefix = "share:"

type ShareConfig struct {
	PublicBaseURL string
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

// ShareService issues and resolves time-limited public links. A link stops
// resolving at its expiry instant; rows are swept later.
type ShareService struct {
	store   ShareStore
	cache   cache.Cache
	baseURL string
	now     func() time.Time
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewShareService builds the manager. c may be nil, in which case every
// resolve goes to the store.
func NewShareService(store ShareStore, c cache.Cache, cfg ShareConfig, l logger.Logger, m *metrics.Metrics) *ShareService {
	if l == nil {
		l = logger.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &ShareService{
		store:   store,
		cache:   c,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		now:     now,
		log:     l,
		metrics: m,
	}
}

func (s *ShareService) Issue(ctx context.Context, videoID string, ttlHours int) (*domain.ShareLink, string, error) {
	if strings.TrimSpace(videoID) == "" || ttlHours <= 0 {
		return nil, "", ErrInvalidRequest
	}

	if _, err := s.store.GetVideo(ctx, videoID); err != nil {
		if errors.Is(err, domain.ErrVideoNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("get video %s: %w", videoID, err)
	}

	now := s.now()
	ttl := time.Duration(ttlHours) * time.Hour
	link := &domain.ShareLink{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.store.CreateShareLink(ctx, link); err != nil {
		return nil, "", fmt.Errorf("create share link: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, shareCachePrefix+link.Token, encodeShareEntry(link), ttl); err != nil {
			s.log.Warn("share link cache set failed", "video_id", videoID, "error", err)
		}
	}

	s.metrics.ShareIssued()
	return link, s.URL(link.Token), nil
}

// Resolve returns the video behind an active token. Unknown, empty and
// expired tokens are indistinguishable to the caller.
func (s *ShareService) Resolve(ctx context.Context, token string) (*domain.Video, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotFound
	}

	videoID, expiresAt, ok := s.cached(ctx, token)
	if !ok {
		link, err := s.store.GetShareLinkByToken(ctx, token)
		if errors.Is(err, domain.ErrShareLinkNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("get share link: %w", err)
		}
		videoID, expiresAt = link.VideoID, link.ExpiresAt
	}

	if !s.now().Before(expiresAt) {
		return nil, ErrNotFound
	}

	v, err := s.store.GetVideo(ctx, videoID)
	if errors.Is(err, domain.ErrVideoNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", videoID, err)
	}
	return v, nil
}

// Sweep deletes every link whose expiry has passed.
func (s *ShareService) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredShareLinks(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep share links: %w", err)
	}
	s.metrics.SharesSwept(n)
	return n, nil
}

func (s *ShareService) URL(token string) string {
	return s.baseURL + "/api/videos/shared/" + token
}

func (s *ShareService) cached(ctx context.Context, token string) (string, time.Time, bool) {
	if s.cache == nil {
		return "", time.Time{}, false
	}
	raw, err := s.cache.Get(ctx, shareCachePrefix+token)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn("share link cache get failed", "error", err)
		}
		return "", time.Time{}, false
	}
	videoID, expiresAt, ok := decodeShareEntry(raw)
	if !ok {
		s.log.Warn("share link cache entry malformed")
	}
	return videoID, expiresAt, ok
}

func encodeShareEntry(l *domain.ShareLink) string {
	return l.VideoID + "|" + l.ExpiresAt.UTC().Format(time.RFC3339Nano)
}

func decodeShareEntry(raw string) (string, time.Time, bool) {
	videoID, exp, ok := strings.Cut(raw, "|")
	if !ok || videoID == "" {
		return "", time.Time{}, false
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, exp)
	if err != nil {
		return "", time.Time{}, false
	}
	return videoID, expiresAt, true
}
