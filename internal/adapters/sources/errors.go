package sources

import "errors"

var (
	// ErrOwnershipLookup wraps any failure to fetch a holder's assets.
	ErrOwnershipLookup = errors.New("ownership lookup failed")
	// ErrCandidatePool wraps any failure to fetch the candidate pool.
	ErrCandidatePool = errors.New("candidate pool unavailable")
	// ErrInvalidHolder is returned for an empty holder identifier.
	ErrInvalidHolder = errors.New("invalid holder identifier")
)
