package api

import "errors"

var (
	// ErrTurnerRequired is returned when no conversation handler is provided.
	ErrTurnerRequired = errors.New("conversation handler required")
)
