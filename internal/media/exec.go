package media

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

type command struct {
	bin     string
	timeout time.Duration
}

// run executes the tool and returns stdout. On failure the stderr tail is
// returned alongside the error so callers can attach it.
func (c command) run(ctx context.Context, args ...string) ([]byte, string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, tail(stderr.String()), err
	}
	return stdout.Bytes(), "", nil
}
