// Package repository stores asynchronous recommendation jobs and their
// outcomes in memory.
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/pkg/metrics"
)

const defaultMaxFinished = 10_000

// Store provides read/write access to job state.
type Store interface {
	// Create registers a pending job and returns it with a fresh ID.
	Create(ctx context.Context, holderID string, topN int) (model.Job, error)
	// Get returns a snapshot of the job. Returns ErrNotFound for unknown IDs.
	Get(ctx context.Context, id string) (model.Job, error)
	// Start moves a pending job to running.
	Start(ctx context.Context, id string) error
	// Complete stores the result of a running job.
	Complete(ctx context.Context, id string, rec model.Recommendation) error
	// Fail records why a job could not finish.
	Fail(ctx context.Context, id string, cause error) error
	// Delete drops a job, typically one that could not be queued.
	Delete(ctx context.Context, id string) error
	// Count returns the number of tracked jobs per status.
	Count(ctx context.Context) map[model.JobStatus]int
}

// MemoryStore implements Store with a map guarded by a mutex. Finished jobs
// beyond the retention limit are dropped oldest first.
type MemoryStore struct {
	mu       sync.RWMutex
	jobs     map[string]*model.Job
	finished []string

	maxFinished int
	now         func() time.Time
	newID       func() string
	errorCode   func(error) string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty job store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		jobs:        make(map[string]*model.Job),
		maxFinished: defaultMaxFinished,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
		errorCode:   func(error) string { return "" },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Create(ctx context.Context, holderID string, topN int) (model.Job, error) {
	if err := ctx.Err(); err != nil {
		return model.Job{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	if _, exists := s.jobs[id]; exists {
		return model.Job{}, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	j := &model.Job{
		ID:          id,
		HolderID:    holderID,
		TopN:        topN,
		Status:      model.JobPending,
		SubmittedAt: s.now().UTC(),
	}
	s.jobs[id] = j
	metrics.RecordJobSubmitted()
	return *j, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return model.Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *j, nil
}

func (s *MemoryStore) Start(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.transition(id, model.JobPending)
	if err != nil {
		return err
	}
	j.Status = model.JobRunning
	j.StartedAt = s.now().UTC()
	return nil
}

func (s *MemoryStore) Complete(_ context.Context, id string, rec model.Recommendation) error { //nolint:gocritic // hugeParam: stored by value
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.transition(id, model.JobRunning)
	if err != nil {
		return err
	}
	j.Status = model.JobDone
	j.Result = &rec
	s.finish(j)
	return nil
}

func (s *MemoryStore) Fail(_ context.Context, id string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, j.Status)
	}
	j.Status = model.JobFailed
	if cause != nil {
		j.Error = cause.Error()
		j.ErrorCode = s.errorCode(cause)
	}
	s.finish(j)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) Count(_ context.Context) map[model.JobStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[model.JobStatus]int{
		model.JobPending: 0,
		model.JobRunning: 0,
		model.JobDone:    0,
		model.JobFailed:  0,
	}
	for _, j := range s.jobs {
		out[j.Status]++
	}
	return out
}

// transition returns job id if it is in state from. Must be called with
// s.mu held.
func (s *MemoryStore) transition(id string, from model.JobStatus) (*model.Job, error) {
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if j.Status != from {
		return nil, fmt.Errorf("%w: %s is %s, want %s", ErrInvalidTransition, id, j.Status, from)
	}
	return j, nil
}

// finish stamps j and enforces retention. Must be called with s.mu held.
func (s *MemoryStore) finish(j *model.Job) {
	j.FinishedAt = s.now().UTC()
	s.finished = append(s.finished, j.ID)
	for s.maxFinished > 0 && len(s.finished) > s.maxFinished {
		delete(s.jobs, s.finished[0])
		s.finished = s.finished[1:]
	}
}
