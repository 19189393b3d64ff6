package service

import (
	"time"

	"github.com/okian/affinity/internal/domain/engine"
	"github.com/okian/affinity/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithEngine sets the engine used to build profiles and rank candidates.
func WithEngine(e *engine.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithWorkerCount sets the number of job workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithProfileCache sizes the profile cache. size <= 0 disables caching
// and ttl <= 0 disables expiry.
func WithProfileCache(size int, ttl time.Duration) Option {
	return func(s *Service) {
		s.cacheSize = size
		s.cacheTTL = ttl
	}
}

// WithCandidateLimit bounds the candidate pool fetched per request.
func WithCandidateLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.candidateLimit = limit
		}
	}
}

// WithMaxTopN caps the number of recommendations a caller may request.
func WithMaxTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTopN = n
		}
	}
}

// WithMaxTopK caps the profile top-K a caller may request.
func WithMaxTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.maxTopK = k
		}
	}
}

// WithFetchConcurrency bounds concurrent source calls per request.
func WithFetchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fetchConcurrency = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
