package service

import (
	"errors"

	"github.com/okian/affinity/internal/adapters/mq/queue"
	"github.com/okian/affinity/internal/adapters/repository"
	"github.com/okian/affinity/internal/adapters/sources"
	"github.com/okian/affinity/internal/domain/engine"
)

// Sentinel service errors.
var (
	ErrInvalidWallet = errors.New("wallet address is required")
	ErrInvalidTopN   = errors.New("top_n out of range")
	ErrInvalidTopK   = errors.New("top_k out of range")
	ErrNotStarted    = errors.New("service not started")
	ErrBackpressure  = errors.New("job queue is full, retry later")
	ErrJobNotFound   = errors.New("job not found")
)

// Stable error codes shared by the HTTP layer and stored failed jobs.
const (
	CodeInvalidRequest   = "invalid_request"
	CodeInsufficientData = "insufficient_data"
	CodeOwnershipLookup  = "ownership_lookup_failed"
	CodeCandidatePool    = "candidate_pool_unavailable"
	CodeBackpressure     = "backpressure"
	CodeNotFound         = "not_found"
	CodeUnavailable      = "unavailable"
	CodeInternal         = "internal_error"
)

// ErrorCode classifies err into one of the stable codes.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidWallet), errors.Is(err, ErrInvalidTopN),
		errors.Is(err, ErrInvalidTopK), errors.Is(err, sources.ErrInvalidHolder):
		return CodeInvalidRequest
	case errors.Is(err, engine.ErrInsufficientData):
		return CodeInsufficientData
	case errors.Is(err, sources.ErrOwnershipLookup):
		return CodeOwnershipLookup
	case errors.Is(err, sources.ErrCandidatePool):
		return CodeCandidatePool
	case errors.Is(err, ErrBackpressure), errors.Is(err, queue.ErrQueueFull):
		return CodeBackpressure
	case errors.Is(err, ErrJobNotFound), errors.Is(err, repository.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNotStarted), errors.Is(err, queue.ErrClosed):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}
