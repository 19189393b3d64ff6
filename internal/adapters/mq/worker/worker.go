// Package worker runs queued recommendation jobs.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/affinity/internal/adapters/mq/queue"
	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/pkg/logger"
	"github.com/okian/affinity/pkg/metrics"
)

const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = queue.Job

// Recommender computes a recommendation for a holder.
type Recommender interface {
	Recommend(ctx context.Context, holderID string, topN int) (model.Recommendation, error)
}

// JobStore records job state transitions.
type JobStore interface {
	Start(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, rec model.Recommendation) error
	Fail(ctx context.Context, id string, cause error) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue       Queue
	recommender Recommender
	store       JobStore
	name        string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, r Recommender, s JobStore, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       q,
		recommender: r,
		store:       s,
		name:        "worker",
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "error processing job",
					logger.String("job_id", j.ID),
					logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one job. A recommendation failure marks the job failed and
// is not returned: only store errors are.
func (w *InMemoryWorker) process(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.store.Start(ctx, j.ID); err != nil {
		return fmt.Errorf("start job %s: %w", j.ID, err)
	}

	rec, err := w.recommender.Recommend(ctx, j.HolderID, j.TopN)
	if err != nil {
		metrics.RecordJobCompleted(string(model.JobFailed))
		w.logger.Warn(ctx, "job failed",
			logger.String("job_id", j.ID),
			logger.Wallet(j.HolderID),
			logger.Error(err))
		if ferr := w.store.Fail(ctx, j.ID, err); ferr != nil {
			return fmt.Errorf("fail job %s: %w", j.ID, ferr)
		}
		return nil
	}

	if err := w.store.Complete(ctx, j.ID, rec); err != nil {
		return fmt.Errorf("complete job %s: %w", j.ID, err)
	}
	metrics.RecordJobCompleted(string(model.JobDone))
	w.logger.Debug(ctx, "job done",
		logger.String("job_id", j.ID),
		logger.Int("recommendations", len(rec.Recommendations)))
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown chan struct{}
	stopped  atomic.Bool

	logger logger.Logger
}

// NewPool creates a new worker pool. workerCount < 1 uses one worker per CPU.
// opts apply to every worker; names are assigned by the pool.
func NewPool(workerCount int, q Queue, r Recommender, s JobStore, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	probe := &InMemoryWorker{}
	for _, opt := range opts {
		opt(probe)
	}
	base := probe.logger
	if base == nil {
		base = logger.Get()
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		logger:   base.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append(append([]Option{}, opts...),
			WithLogger(base.Named("worker")),
			WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q, r, s, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals every worker and waits briefly for each.
func (p *Pool) Stop() {
	if !p.stopped.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue, lets workers drain it and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	return nil
}
