package video

import (
	"errors"
	"strings"

	"clipshare/internal/media"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrUnsafePath     = errors.New("unsafe_path")
)

// ConstraintError rejects a clip whose probe results break the policy. The
// offending file is already gone when this is returned.
type ConstraintError struct {
	Verdict media.Verdict
}

func (e *ConstraintError) Error() string {
	return "constraints not met: " + strings.Join(e.Verdict.Reasons(), "; ")
}
