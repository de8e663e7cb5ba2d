package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FFmpeg trims and concatenates clips with the ffmpeg executable.
type FFmpeg struct {
	cmd command
}

func NewFFmpeg(bin string, timeout time.Duration) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{cmd: command{bin: bin, timeout: timeout}}
}

// Trim writes [start, end) of the input to outputPath.
func (f *FFmpeg) Trim(ctx context.Context, inputPath string, startSeconds, endSeconds float64, outputPath string) error {
	if startSeconds < 0 {
		return operationError("trim", inputPath, fmt.Errorf("negative start %v", startSeconds))
	}
	if endSeconds <= startSeconds {
		return operationError("trim", inputPath, fmt.Errorf("end %v must be after start %v", endSeconds, startSeconds))
	}
	if err := checkReadable(inputPath); err != nil {
		return operationError("trim", inputPath, err)
	}

	_, stderr, err := f.cmd.run(ctx,
		"-y",
		"-v", "error",
		"-ss", seconds(startSeconds),
		"-i", inputPath,
		"-t", seconds(endSeconds-startSeconds),
		outputPath,
	)
	if err != nil {
		return &ExecError{Kind: ErrOperationFailed, Op: "trim", Path: inputPath, Stderr: stderr, Err: err}
	}
	return nil
}

// Merge concatenates inputs in order through the concat demuxer. The list
// file lives next to the output and is always removed.
func (f *FFmpeg) Merge(ctx context.Context, inputPaths []string, outputPath string) error {
	if len(inputPaths) < 2 {
		return operationError("merge", outputPath, fmt.Errorf("need at least 2 inputs, got %d", len(inputPaths)))
	}
	for _, in := range inputPaths {
		if err := checkReadable(in); err != nil {
			return operationError("merge", in, err)
		}
	}

	listPath := filepath.Join(filepath.Dir(outputPath), ".concat-"+uuid.NewString()+".txt")
	if err := os.WriteFile(listPath, []byte(concatList(inputPaths)), 0o600); err != nil {
		return operationError("merge", outputPath, fmt.Errorf("write concat list: %w", err))
	}
	defer os.Remove(listPath)

	_, stderr, err := f.cmd.run(ctx,
		"-y",
		"-v", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		outputPath,
	)
	if err != nil {
		return &ExecError{Kind: ErrOperationFailed, Op: "merge", Path: outputPath, Stderr: stderr, Err: err}
	}
	return nil
}

// concatList renders the demuxer script. Single quotes inside paths are
// closed, escaped and reopened as the demuxer expects.
func concatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.IsDir() {
		return errors.New("is a directory")
	}
	return nil
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
