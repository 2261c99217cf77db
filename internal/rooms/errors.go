package rooms

import "errors"

var (
	ErrNotFound          = errors.New("room not found")
	ErrInvalidStatus     = errors.New("invalid room status")
	ErrInvalidTransition = errors.New("room status transition not allowed")
)
