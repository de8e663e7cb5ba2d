// Package mediatest provides a deterministic stand-in for the ffprobe/ffmpeg
// tool. Clips are plain files whose first line records their duration, so
// tests can reason about trim and merge results without real media.
package mediatest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"clipshare/internal/media"
)

const header = "MEDIATEST duration="

// Clip renders the bytes of a fake clip lasting durationSeconds, padded to at
// least padTo bytes.
func Clip(durationSeconds float64, padTo int) []byte {
	line := header + strconv.FormatFloat(durationSeconds, 'f', -1, 64) + "\n"
	if padTo <= len(line) {
		return []byte(line)
	}
	return append([]byte(line), []byte(strings.Repeat("x", padTo-len(line)))...)
}

// WriteClip writes a fake clip to path.
func WriteClip(path string, durationSeconds float64, padTo int) error {
	return os.WriteFile(path, Clip(durationSeconds, padTo), 0o644)
}

// Tool implements media.Tool over fake clips. Set the Fail* fields to force
// errors; when LeavePartial is true a failed operation leaves a stub output.
type Tool struct {
	mu sync.Mutex

	FailProbe    error
	FailTrim     error
	FailMerge    error
	LeavePartial bool

	ProbeCalls int
	TrimCalls  int
	MergeCalls int
}

var _ media.Tool = (*Tool)(nil)

func New() *Tool { return &Tool{} }

func (t *Tool) Probe(ctx context.Context, path string) (media.Metadata, error) {
	t.mu.Lock()
	t.ProbeCalls++
	fail := t.FailProbe
	t.mu.Unlock()

	if fail != nil {
		return media.Metadata{}, fmt.Errorf("%w: %v", media.ErrProbeFailed, fail)
	}

	dur, size, err := readClip(path)
	if err != nil {
		return media.Metadata{}, fmt.Errorf("%w: %v", media.ErrProbeFailed, err)
	}
	return media.Metadata{
		SizeBytes:       size,
		DurationSeconds: int64(math.Floor(dur)),
		Format:          "mediatest",
	}, nil
}

func (t *Tool) Trim(ctx context.Context, inputPath string, startSeconds, endSeconds float64, outputPath string) error {
	t.mu.Lock()
	t.TrimCalls++
	fail, partial := t.FailTrim, t.LeavePartial
	t.mu.Unlock()

	if endSeconds <= startSeconds {
		return fmt.Errorf("%w: end %v must be after start %v", media.ErrOperationFailed, endSeconds, startSeconds)
	}
	if fail != nil {
		if partial {
			_ = os.WriteFile(outputPath, []byte("partial"), 0o644)
		}
		return fmt.Errorf("%w: %v", media.ErrOperationFailed, fail)
	}

	dur, _, err := readClip(inputPath)
	if err != nil {
		return fmt.Errorf("%w: %v", media.ErrOperationFailed, err)
	}
	if startSeconds >= dur {
		return fmt.Errorf("%w: start %v beyond duration %v", media.ErrOperationFailed, startSeconds, dur)
	}
	return WriteClip(outputPath, math.Min(endSeconds, dur)-startSeconds, 0)
}

func (t *Tool) Merge(ctx context.Context, inputPaths []string, outputPath string) error {
	t.mu.Lock()
	t.MergeCalls++
	fail, partial := t.FailMerge, t.LeavePartial
	t.mu.Unlock()

	if len(inputPaths) < 2 {
		return fmt.Errorf("%w: need at least 2 inputs", media.ErrOperationFailed)
	}
	if fail != nil {
		if partial {
			_ = os.WriteFile(outputPath, []byte("partial"), 0o644)
		}
		return fmt.Errorf("%w: %v", media.ErrOperationFailed, fail)
	}

	var total float64
	for _, in := range inputPaths {
		dur, _, err := readClip(in)
		if err != nil {
			return fmt.Errorf("%w: %v", media.ErrOperationFailed, err)
		}
		total += dur
	}
	return WriteClip(outputPath, total, 0)
}

func (t *Tool) Calls() (probe, trim, merge int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ProbeCalls, t.TrimCalls, t.MergeCalls
}

func readClip(path string) (float64, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, 0, err
	}

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil || !strings.HasPrefix(line, header) {
		return 0, 0, errors.New("not a media container")
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, header)), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad duration: %w", err)
	}
	return dur, st.Size(), nil
}
