package video

import "errors"

var (
	ErrVideoNotFound     = errors.New("video not found")
	ErrShareLinkNotFound = errors.New("share link not found")
	ErrDuplicate         = errors.New("duplicate key")
)
