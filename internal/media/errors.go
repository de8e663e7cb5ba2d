package media

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProbeFailed     = errors.New("probe failed")
	ErrOperationFailed = errors.New("media operation failed")
)

// ExecError describes a failed tool invocation. Stderr keeps only the tail of
// the tool output.
type ExecError struct {
	Kind   error // ErrProbeFailed or ErrOperationFailed
	Op     string
	Path   string
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %q", e.Kind, e.Op, e.Path)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, " (stderr: %s)", e.Stderr)
	}
	return b.String()
}

func (e *ExecError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func probeError(path string, err error) error {
	return &ExecError{Kind: ErrProbeFailed, Op: "probe", Path: path, Err: err}
}

func operationError(op, path string, err error) error {
	return &ExecError{Kind: ErrOperationFailed, Op: op, Path: path, Err: err}
}

const stderrTailBytes = 512

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= stderrTailBytes {
		return s
	}
	return "..." + s[len(s)-stderrTailBytes:]
}
