package video

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domain "clipshare/internal/domain/video"
	"clipshare/internal/metrics"
	"clipshare/internal/pkg/logger"
	"clipshare/internal/pkg/response"
	"clipshare/internal/stream"
)

const (
	streamSourceOwner  = "owner"
	streamSourceShared = "shared"
)

type HandlerConfig struct {
	DefaultTTLHours  int
	UploadLimitBytes int64
}

type Handler struct {
	svc    *Service
	shares *ShareService
	cfg    HandlerConfig
	log    logger.Logger
	m      *metrics.Metrics
}

func NewHandler(svc *Service, shares *ShareService, cfg HandlerConfig, l logger.Logger, m *metrics.Metrics) *Handler {
	if l == nil {
		l = logger.NewNop()
	}
	if cfg.DefaultTTLHours <= 0 {
		cfg.DefaultTTLHours = 24
	}
	return &Handler{svc: svc, shares: shares, cfg: cfg, log: l, m: m}
}

// RegisterRoutes mounts the video API. public must not carry auth middleware;
// protected must.
func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	if public != nil {
		public.GET("/shared/:token", h.StreamShared)
		public.HEAD("/shared/:token", h.StreamShared)
	}

	if protected != nil {
		protected.POST("/upload", h.Upload)
		protected.POST("/trim", h.Trim)
		protected.POST("/merge", h.Merge)
		protected.POST("/share", h.Share)
		protected.GET("", h.List)
		protected.GET("/:id", h.Get)
		protected.GET("/:id/stream", h.Stream)
		protected.HEAD("/:id/stream", h.Stream)
		protected.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) Upload(c *gin.Context) {
	if h.cfg.UploadLimitBytes > 0 {
		if c.Request.ContentLength > h.cfg.UploadLimitBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Upload exceeds the size limit")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.UploadLimitBytes)
	}

	fh, err := c.FormFile("video")
	if err != nil {
		if isBodyTooLarge(err) {
			response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Upload exceeds the size limit")
			return
		}
		response.Error(c, http.StatusBadRequest, "NO_FILE", "No video file uploaded")
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("open multipart file: %w", err))
		return
	}
	defer f.Close()

	v, err := h.svc.Upload(c.Request.Context(), UploadInput{OriginalName: fh.Filename, Content: f})
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, v)
}

func (h *Handler) Trim(c *gin.Context) {
	var req TrimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	v, err := h.svc.Trim(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, v)
}

func (h *Handler) Merge(c *gin.Context) {
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	v, err := h.svc.Merge(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, v)
}

func (h *Handler) Share(c *gin.Context) {
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	ttl := h.cfg.DefaultTTLHours
	if req.ExpiryHours != nil {
		ttl = *req.ExpiryHours
	}

	link, url, err := h.shares.Issue(c.Request.Context(), req.VideoID, ttl)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, ShareResponse{ShareURL: url, ExpiresAt: link.ExpiresAt})
}

func (h *Handler) List(c *gin.Context) {
	videos, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, videos)
}

func (h *Handler) Get(c *gin.Context) {
	v, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, MessageResponse{Message: "Video deleted successfully"})
}

func (h *Handler) Stream(c *gin.Context) {
	v, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.serve(c, v, streamSourceOwner)
}

// StreamShared serves a clip to anyone holding an active share token.
func (h *Handler) StreamShared(c *gin.Context) {
	v, err := h.shares.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Shared link not found or expired")
			return
		}
		h.fail(c, err)
		return
	}
	h.serve(c, v, streamSourceShared)
}

func (h *Handler) serve(c *gin.Context, v *domain.Video, source string) {
	path, err := h.svc.Path(v)
	if err != nil {
		h.fail(c, err)
		return
	}

	n, err := stream.Serve(c.Writer, c.Request, path)
	h.m.Streamed(source, n)
	if err == nil {
		return
	}

	var unsat *stream.UnsatisfiableError
	switch {
	case errors.Is(err, stream.ErrAborted):
		if errors.Is(err, context.Canceled) {
			h.log.Debug("stream closed by client", "video_id", v.ID, "written", n)
			return
		}
		h.log.Warn("stream interrupted", "video_id", v.ID, "written", n, "error", err)
	case errors.Is(err, stream.ErrFileNotFound):
		h.log.Error("video file missing", "video_id", v.ID, "path", path)
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Video file not found")
	case errors.Is(err, stream.ErrInvalidRange):
		response.Error(c, http.StatusBadRequest, "INVALID_RANGE", "Invalid Range header")
	case errors.As(err, &unsat):
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", unsat.Size))
		c.Status(http.StatusRequestedRangeNotSatisfiable)
	default:
		h.fail(c, err)
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	var cerr *ConstraintError
	switch {
	case errors.As(err, &cerr):
		response.ErrorWithDetails(c, http.StatusBadRequest, "CONSTRAINTS_NOT_MET", "Video does not meet constraints", ConstraintDetails{
			Reasons:    cerr.Verdict.Reasons(),
			Violations: cerr.Verdict.Violations,
			Size:       cerr.Verdict.SizeBytes,
			Duration:   cerr.Verdict.DurationSeconds,
		})
	case errors.Is(err, ErrInvalidRequest):
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid input")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Video not found")
	case isBodyTooLarge(err):
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Upload exceeds the size limit")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
	}
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
