package model

import "time"

// JobStatus is the lifecycle state of an asynchronous recommendation job.
type JobStatus string

// Job states. Pending jobs are queued, running jobs are held by a worker.
const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// Recommendation is a finished ranking for one holder.
type Recommendation struct {
	HolderID        string            `json:"wallet_address"`
	Profile         Profile           `json:"taste_profile"`
	Recommendations []ScoredCandidate `json:"recommendations"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

// Job is a queued recommendation request and, once finished, its outcome.
type Job struct {
	ID          string          `json:"job_id"`
	HolderID    string          `json:"wallet_address"`
	TopN        int             `json:"top_n"`
	Status      JobStatus       `json:"status"`
	SubmittedAt time.Time       `json:"submitted_at"`
	StartedAt   time.Time       `json:"started_at,omitempty"`
	FinishedAt  time.Time       `json:"finished_at,omitempty"`
	Result      *Recommendation `json:"result,omitempty"`
	// Error and ErrorCode describe a failed job.
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}
