package video

import (
	"io"
	"time"

	"clipshare/internal/media"
)

type UploadInput struct {
	OriginalName string
	Content      io.Reader
}

// TrimRequest cuts [StartTime, EndTime) seconds out of an existing clip.
// Pointers distinguish a missing field from zero.
type TrimRequest struct {
	VideoID   string   `json:"videoId" validate:"required"`
	StartTime *float64 `json:"startTime" validate:"required"`
	EndTime   *float64 `json:"endTime" validate:"required"`
}

type MergeRequest struct {
	VideoIDs []string `json:"videoIds" validate:"min=2,dive,required"`
}

type ShareRequest struct {
	VideoID     string `json:"videoId" validate:"required"`
	ExpiryHours *int   `json:"expiryHours"`
}

type ShareResponse struct {
	ShareURL  string    `json:"shareUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ConstraintDetails struct {
	Reasons    []string          `json:"reasons"`
	Violations []media.Violation `json:"violations"`
	Size       int64             `json:"size"`
	Duration   int64             `json:"duration"`
}
