package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxFinished caps how many finished jobs are retained. n <= 0 keeps all.
func WithMaxFinished(n int) Option {
	return func(s *MemoryStore) {
		s.maxFinished = n
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides job ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *MemoryStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithErrorCode sets how failure causes map to stable error codes.
func WithErrorCode(code func(error) string) Option {
	return func(s *MemoryStore) {
		if code != nil {
			s.errorCode = code
		}
	}
}
