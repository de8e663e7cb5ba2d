package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	domain "clipshare/internal/domain/video"
	"clipshare/internal/media"
	"clipshare/internal/metrics"
	"clipshare/internal/pkg/logger"
	"clipshare/internal/pkg/validator"
)

const (
	opUpload = "upload"
	opTrim   = "trim"
	opMerge  = "merge"
	opDelete = "delete"

	defaultUploadName = "upload.mp4"
	defaultExt        = ".mp4"
	mergedName        = "merged-video.mp4"

	mergeLookupLimit = 8
)

var videoExts = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".webm": true,
	".mkv":  true,
}

type Config struct {
	UploadDir string
	Policy    media.Policy
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

// Service runs the upload, trim, merge and delete workflows. Every stored
// clip goes through probe and validation before a record is written, and a
// clip that fails either never stays on disk.
type Service struct {
	store     VideoStore
	tool      media.Tool
	policy    media.Policy
	uploadDir string
	now       func() time.Time
	log       logger.Logger
	metrics   *metrics.Metrics
}

func NewService(store VideoStore, tool media.Tool, cfg Config, l logger.Logger, m *metrics.Metrics) *Service {
	if l == nil {
		l = logger.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:     store,
		tool:      tool,
		policy:    cfg.Policy,
		uploadDir: cfg.UploadDir,
		now:       now,
		log:       l,
		metrics:   m,
	}
}

func (s *Service) Upload(ctx context.Context, in UploadInput) (*domain.Video, error) {
	if in.Content == nil {
		return nil, ErrInvalidRequest
	}

	name := cleanOriginalName(in.OriginalName)
	id := uuid.NewString()
	filename := id + storedExt(name)
	path := filepath.Join(s.uploadDir, filename)

	if err := writeFile(path, in.Content); err != nil {
		s.discard(path)
		s.metrics.Workflow(opUpload, metrics.OutcomeFailed)
		return nil, fmt.Errorf("save upload: %w", err)
	}

	return s.commit(ctx, opUpload, id, filename, name)
}

func (s *Service) Trim(ctx context.Context, req TrimRequest) (*domain.Video, error) {
	if errs := validator.Validate(req); errs != nil {
		return nil, ErrInvalidRequest
	}
	start, end := *req.StartTime, *req.EndTime
	if start < 0 || end <= start {
		return nil, ErrInvalidRequest
	}

	src, err := s.lookup(ctx, req.VideoID)
	if err != nil {
		return nil, err
	}
	srcPath, err := s.Path(src)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(src.Filename)
	if !videoExts[strings.ToLower(ext)] {
		ext = defaultExt
	}
	id := uuid.NewString()
	filename := "trim-" + id + ext
	out := filepath.Join(s.uploadDir, filename)

	if err := s.tool.Trim(ctx, srcPath, start, end, out); err != nil {
		s.discard(out)
		s.metrics.Workflow(opTrim, metrics.OutcomeFailed)
		return nil, fmt.Errorf("trim %s: %w", src.ID, err)
	}

	return s.commit(ctx, opTrim, id, filename, "trimmed_"+src.OriginalName)
}

// Merge concatenates the clips in request order. Duplicates are allowed as
// long as at least two distinct clips take part.
func (s *Service) Merge(ctx context.Context, req MergeRequest) (*domain.Video, error) {
	if errs := validator.Validate(req); errs != nil {
		return nil, ErrInvalidRequest
	}
	distinct := make(map[string]struct{}, len(req.VideoIDs))
	for _, id := range req.VideoIDs {
		distinct[id] = struct{}{}
	}
	if len(distinct) < 2 {
		return nil, ErrInvalidRequest
	}

	sources := make([]*domain.Video, len(req.VideoIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mergeLookupLimit)
	for i, id := range req.VideoIDs {
		g.Go(func() error {
			v, err := s.lookup(gctx, id)
			if err != nil {
				return err
			}
			sources[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	inputs := make([]string, 0, len(sources))
	for _, v := range sources {
		p, err := s.Path(v)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, p)
	}

	id := uuid.NewString()
	filename := "merge-" + id + defaultExt
	out := filepath.Join(s.uploadDir, filename)

	if err := s.tool.Merge(ctx, inputs, out); err != nil {
		s.discard(out)
		s.metrics.Workflow(opMerge, metrics.OutcomeFailed)
		return nil, fmt.Errorf("merge %d clips: %w", len(inputs), err)
	}

	return s.commit(ctx, opMerge, id, filename, mergedName)
}

// Delete removes the record (and its share links) first, then the file. Of
// two concurrent deletes only one sees the row; the other gets ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	v, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	path, err := s.Path(v)
	if err != nil {
		return err
	}

	deleted, err := s.store.DeleteVideo(ctx, id)
	if err != nil {
		s.metrics.Workflow(opDelete, metrics.OutcomeFailed)
		return fmt.Errorf("delete video %s: %w", id, err)
	}
	if !deleted {
		return ErrNotFound
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Error("video row deleted but file remains",
			"video_id", id, "path", path, "reconcile", "manual", "error", err)
		s.metrics.Workflow(opDelete, metrics.OutcomeFailed)
		return fmt.Errorf("remove file for %s: %w", id, err)
	}

	s.metrics.Workflow(opDelete, metrics.OutcomeCommitted)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Video, error) {
	return s.lookup(ctx, id)
}

// List returns every clip, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Video, error) {
	videos, err := s.store.ListVideos(ctx)
	if err != nil {
		return nil, err
	}
	if videos == nil {
		videos = []domain.Video{}
	}
	return videos, nil
}

// Path resolves the on-disk location of a stored clip.
func (s *Service) Path(v *domain.Video) (string, error) {
	name := v.Filename
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return filepath.Join(s.uploadDir, name), nil
}

// commit probes and validates the file that was just produced and records it.
func (s *Service) commit(ctx context.Context, op, id, filename, originalName string) (*domain.Video, error) {
	path := filepath.Join(s.uploadDir, filename)

	meta, err := s.tool.Probe(ctx, path)
	if err != nil {
		s.discard(path)
		s.metrics.Workflow(op, metrics.OutcomeFailed)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	verdict := media.Validate(meta, s.policy)
	if !verdict.Valid {
		s.discard(path)
		s.metrics.Workflow(op, metrics.OutcomeRejected)
		s.log.Info("clip rejected", "op", op, "size", verdict.SizeBytes,
			"duration", verdict.DurationSeconds, "reasons", verdict.Reasons())
		return nil, &ConstraintError{Verdict: verdict}
	}

	v := &domain.Video{
		ID:           id,
		Filename:     filename,
		OriginalName: originalName,
		Duration:     meta.DurationSeconds,
		Size:         meta.SizeBytes,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateVideo(ctx, v); err != nil {
		if rmErr := removeFile(path); rmErr != nil {
			s.log.Error("video file stored without record",
				"op", op, "path", path, "reconcile", "manual", "error", err, "remove_error", rmErr)
		} else {
			s.log.Error("persist video failed", "op", op, "video_id", id, "error", err)
		}
		s.metrics.Workflow(op, metrics.OutcomeFailed)
		return nil, fmt.Errorf("persist video: %w", err)
	}

	s.metrics.Workflow(op, metrics.OutcomeCommitted)
	return v, nil
}

func (s *Service) lookup(ctx context.Context, id string) (*domain.Video, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidRequest
	}
	v, err := s.store.GetVideo(ctx, id)
	if errors.Is(err, domain.ErrVideoNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, err)
	}
	return v, nil
}

// discard removes a produced artifact that must not stay addressable.
func (s *Service) discard(path string) {
	if err := removeFile(path); err != nil {
		s.log.Error("failed to remove artifact", "path", path, "reconcile", "manual", "error", err)
	}
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func cleanOriginalName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	name = filepath.Base(name)
	if name == "" || name == "." || name == "/" {
		return defaultUploadName
	}
	return name
}

func storedExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if videoExts[ext] {
		return ext
	}
	return defaultExt
}
