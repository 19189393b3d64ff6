package queue

import "errors"

// Sentinel enqueue failures.
var (
	ErrQueueFull = errors.New("job queue is full")
	ErrClosed    = errors.New("job queue is closed")
)
