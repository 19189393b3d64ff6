package repository

import "errors"

// Sentinel kinds for job store errors.
var (
	ErrNotFound          = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid job transition")
	ErrDuplicateID       = errors.New("duplicate job id")
)
