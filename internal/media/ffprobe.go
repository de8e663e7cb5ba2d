package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// FFprobe measures files with the ffprobe executable.
type FFprobe struct {
	cmd command
}

func NewFFprobe(bin string, timeout time.Duration) *FFprobe {
	if bin == "" {
		bin = "ffprobe"
	}
	return &FFprobe{cmd: command{bin: bin, timeout: timeout}}
}

func (p *FFprobe) Probe(ctx context.Context, path string) (Metadata, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Metadata{}, probeError(path, err)
	}
	if st.IsDir() {
		return Metadata{}, probeError(path, errors.New("is a directory"))
	}

	out, stderr, err := p.cmd.run(ctx,
		"-v", "error",
		"-show_entries", "format=size,duration,format_name",
		"-of", "json",
		path,
	)
	if err != nil {
		return Metadata{}, &ExecError{Kind: ErrProbeFailed, Op: "probe", Path: path, Stderr: stderr, Err: err}
	}

	m, err := parseProbeOutput(out)
	if err != nil {
		return Metadata{}, probeError(path, err)
	}
	if m.SizeBytes == 0 {
		m.SizeBytes = st.Size()
	}
	return m, nil
}

type probeOutput struct {
	Format *struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
	} `json:"format"`
}

// parseProbeOutput reads `-of json` output. Duration is floored to whole
// seconds; a missing size is left as zero for the caller to fill in.
func parseProbeOutput(raw []byte) (Metadata, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return Metadata{}, fmt.Errorf("decode ffprobe output: %w", err)
	}
	if out.Format == nil {
		return Metadata{}, errors.New("no format section: not a media container")
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)
	if err != nil || math.IsNaN(dur) || math.IsInf(dur, 0) || dur < 0 {
		return Metadata{}, fmt.Errorf("invalid duration %q", out.Format.Duration)
	}

	var size int64
	if s := strings.TrimSpace(out.Format.Size); s != "" {
		size, err = strconv.ParseInt(s, 10, 64)
		if err != nil || size < 0 {
			return Metadata{}, fmt.Errorf("invalid size %q", out.Format.Size)
		}
	}

	return Metadata{
		SizeBytes:       size,
		DurationSeconds: int64(math.Floor(dur)),
		Format:          out.Format.FormatName,
	}, nil
}
