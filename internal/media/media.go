// Package media wraps the external probing and transcoding tools and holds the
// size/duration policy applied to every stored clip.
package media

import (
	"context"
	"time"
)

// Metadata is what a probe measures on a file.
type Metadata struct {
	SizeBytes       int64
	DurationSeconds int64 // floored
	Format          string
}

// Prober inspects a media file without modifying it.
type Prober interface {
	Probe(ctx context.Context, path string) (Metadata, error)
}

// Runner produces derived files. Output paths are overwritten on re-run.
type Runner interface {
	Trim(ctx context.Context, inputPath string, startSeconds, endSeconds float64, outputPath string) error
	Merge(ctx context.Context, inputPaths []string, outputPath string) error
}

// Tool is the full capability set the workflows need.
type Tool interface {
	Prober
	Runner
}

// FFTool pairs ffprobe and ffmpeg into a Tool.
type FFTool struct {
	*FFprobe
	*FFmpeg
}

func NewFFTool(ffprobeBin, ffmpegBin string, timeout time.Duration) *FFTool {
	return &FFTool{
		FFprobe: NewFFprobe(ffprobeBin, timeout),
		FFmpeg:  NewFFmpeg(ffmpegBin, timeout),
	}
}
