// Package service wires the affinity engine to its collaborators: it fetches
// holdings and candidates, caches profiles, and runs asynchronous jobs.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/affinity/internal/adapters/cache"
	"github.com/okian/affinity/internal/adapters/mq/queue"
	"github.com/okian/affinity/internal/adapters/mq/worker"
	"github.com/okian/affinity/internal/adapters/repository"
	"github.com/okian/affinity/internal/adapters/sources"
	"github.com/okian/affinity/internal/domain/engine"
	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/pkg/logger"
	"github.com/okian/affinity/pkg/metrics"
)

const (
	defaultCandidateLimit   = 50
	defaultMaxTopN          = 100
	defaultMaxTopK          = 100
	defaultQueueSize        = 1000
	defaultCacheSize        = 10_000
	defaultCacheTTL         = time.Minute
	defaultFetchConcurrency = 2
)

// Service implements the API dependencies of the recommendation server.
type Service struct {
	mu sync.RWMutex

	owned      sources.OwnershipSource
	candidates sources.CandidateSource
	engine     *engine.Engine
	profiles   cache.ProfileCache
	jobs       repository.Store
	jobQueue   *queue.InMemoryQueue
	workerPool *worker.Pool

	workerCount      int
	queueSize        int
	cacheSize        int
	cacheTTL         time.Duration
	candidateLimit   int
	maxTopN          int
	maxTopK          int
	fetchConcurrency int

	started bool
	cancel  context.CancelFunc
	now     func() time.Time

	logger logger.Logger
}

// New constructs a Service over the given collaborators.
func New(owned sources.OwnershipSource, candidates sources.CandidateSource, opts ...Option) *Service {
	s := &Service{
		owned:            owned,
		candidates:       candidates,
		workerCount:      runtime.NumCPU(),
		queueSize:        defaultQueueSize,
		cacheSize:        defaultCacheSize,
		cacheTTL:         defaultCacheTTL,
		candidateLimit:   defaultCandidateLimit,
		maxTopN:          defaultMaxTopN,
		maxTopK:          defaultMaxTopK,
		fetchConcurrency: defaultFetchConcurrency,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = engine.New()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.profiles = cache.NewProfileCache(cache.WithMaxSize(s.cacheSize), cache.WithTTL(s.cacheTTL))
	return s
}

// Start creates the job queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.owned == nil || s.candidates == nil {
		return fmt.Errorf("%w: ownership and candidate sources are required", ErrNotStarted)
	}

	s.logger.Info(ctx, "starting recommendation service...")

	s.jobs = repository.NewMemoryStore(repository.WithErrorCode(ErrorCode))
	s.jobQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	// Workers outlive the request that started them.
	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.workerPool = worker.NewPool(s.workerCount, s.jobQueue, s, s.jobs, worker.WithLogger(s.logger))
	s.workerPool.Start(poolCtx)

	s.started = true
	w := s.engine.Weights()
	s.logger.Info(ctx, "recommendation service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("candidate_limit", s.candidateLimit),
		logger.Float64("tag_weight", w.TagWeight),
		logger.Float64("salience_bonus", w.SalienceBonus))
	return nil
}

// Stop drains the job queue and stops the workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping recommendation service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "recommendation service stopped")
}

// Profile returns the holder's profile, served from cache when fresh.
// topK <= 0 uses the engine default.
func (s *Service) Profile(ctx context.Context, holderID string, topK int) (model.Profile, error) {
	holderID, err := normalizeHolder(holderID)
	if err != nil {
		return model.Profile{}, err
	}
	if topK > s.maxTopK {
		return model.Profile{}, fmt.Errorf("%w: %d exceeds %d", ErrInvalidTopK, topK, s.maxTopK)
	}
	return s.profile(ctx, holderID, topK)
}

// profileKey resolves topK <= 0 to the engine default so the same profile
// is cached once however it was requested.
func (s *Service) profileKey(holderID string, topK int) (string, int) {
	if topK <= 0 {
		topK = s.engine.DefaultTopK()
	}
	return holderID + "|" + strconv.Itoa(topK), topK
}

func (s *Service) profile(ctx context.Context, holderID string, topK int) (model.Profile, error) {
	key, topK := s.profileKey(holderID, topK)
	if p, ok := s.profiles.Get(ctx, key); ok {
		return p, nil
	}

	start := s.now()
	owned, err := s.owned.OwnedAssets(ctx, holderID)
	if err != nil {
		return model.Profile{}, wrapSource(sources.ErrOwnershipLookup, err)
	}

	p := s.engine.BuildProfile(holderID, owned, topK)
	metrics.RecordProfileBuilt(p.TotalAssets, len(p.Tags))
	s.profiles.Put(ctx, key, p)

	s.logger.Debug(ctx, "profile built",
		logger.Wallet(holderID),
		logger.Int("assets", p.TotalAssets),
		logger.Int("distinct_tags", len(p.Tags)),
		logger.Duration("took", s.now().Sub(start)))
	return p, nil
}

// Recommend builds the holder's profile and ranks the candidate pool against
// it. Holdings and candidates are fetched concurrently. A holder with no
// assets yields engine.ErrInsufficientData. topN <= 0 uses the default.
func (s *Service) Recommend(ctx context.Context, holderID string, topN int) (model.Recommendation, error) {
	holderID, err := normalizeHolder(holderID)
	if err != nil {
		return model.Recommendation{}, err
	}
	if topN <= 0 {
		topN = s.engine.DefaultTopN()
	}
	if topN > s.maxTopN {
		return model.Recommendation{}, fmt.Errorf("%w: %d exceeds %d", ErrInvalidTopN, topN, s.maxTopN)
	}

	start := s.now()
	s.logger.Info(ctx, "generating recommendations", logger.Wallet(holderID))

	var (
		p    model.Profile
		pool []model.Asset
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency)
	g.Go(func() error {
		var err error
		p, err = s.profile(gCtx, holderID, 0)
		return err
	})
	g.Go(func() error {
		var err error
		pool, err = s.candidates.Candidates(gCtx, s.candidateLimit)
		if err != nil {
			return wrapSource(sources.ErrCandidatePool, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error(ctx, "recommendation inputs unavailable",
			logger.Wallet(holderID),
			logger.Error(err))
		return model.Recommendation{}, err
	}

	if p.Empty() {
		metrics.RecordInsufficientData()
		s.logger.Info(ctx, "holder owns no assets", logger.Wallet(holderID))
		return model.Recommendation{
			HolderID:        holderID,
			Profile:         p,
			Recommendations: []model.ScoredCandidate{},
			GeneratedAt:     s.now().UTC(),
		}, engine.ErrInsufficientData
	}

	ranked := s.engine.RankCandidates(&p, pool, topN)
	metrics.RecordCandidatesScored(len(pool))

	var topScore float64
	if len(ranked) > 0 {
		topScore = ranked[0].Score
	}
	latency := s.now().Sub(start)
	metrics.RecordRecommendations(len(ranked), topScore, float64(latency.Milliseconds()))

	s.logger.Info(ctx, "recommendations generated",
		logger.Wallet(holderID),
		logger.Int("owned", p.TotalAssets),
		logger.Int("candidates", len(pool)),
		logger.Int("returned", len(ranked)),
		logger.Duration("took", latency))

	return model.Recommendation{
		HolderID:        holderID,
		Profile:         p,
		Recommendations: ranked,
		GeneratedAt:     s.now().UTC(),
	}, nil
}

// SubmitJob queues an asynchronous recommendation. A full queue returns
// ErrBackpressure.
func (s *Service) SubmitJob(ctx context.Context, holderID string, topN int) (model.Job, error) {
	holderID, err := normalizeHolder(holderID)
	if err != nil {
		return model.Job{}, err
	}
	if topN <= 0 {
		topN = s.engine.DefaultTopN()
	}
	if topN > s.maxTopN {
		return model.Job{}, fmt.Errorf("%w: %d exceeds %d", ErrInvalidTopN, topN, s.maxTopN)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Job{}, ErrNotStarted
	}

	j, err := s.jobs.Create(ctx, holderID, topN)
	if err != nil {
		return model.Job{}, fmt.Errorf("create job: %w", err)
	}
	if err := s.jobQueue.Enqueue(ctx, j); err != nil {
		_ = s.jobs.Delete(ctx, j.ID)
		s.logger.Warn(ctx, "job rejected",
			logger.Wallet(holderID),
			logger.Error(err))
		if errors.Is(err, queue.ErrQueueFull) {
			return model.Job{}, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return model.Job{}, fmt.Errorf("enqueue job: %w", err)
	}

	s.logger.Debug(ctx, "job submitted",
		logger.String("job_id", j.ID),
		logger.Wallet(holderID))
	return j, nil
}

// Job returns the current state of a submitted job.
func (s *Service) Job(ctx context.Context, id string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Job{}, ErrNotStarted
	}

	j, err := s.jobs.Get(ctx, id)
	if err != nil {
		return model.Job{}, fmt.Errorf("%w: %w", ErrJobNotFound, err)
	}
	return j, nil
}

// InvalidateProfile drops the cached profile of holderID for the given topK.
// topK <= 0 names the engine default.
func (s *Service) InvalidateProfile(ctx context.Context, holderID string, topK int) {
	holderID, err := normalizeHolder(holderID)
	if err != nil {
		return
	}
	key, _ := s.profileKey(holderID, topK)
	s.profiles.Invalidate(ctx, key)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	w := s.engine.Weights()
	stats := map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"candidateLimit": s.candidateLimit,
		"defaultTopN":    s.engine.DefaultTopN(),
		"tagWeight":      w.TagWeight,
		"salienceBonus":  w.SalienceBonus,
		"cachedProfiles": s.profiles.Size(),
	}

	if s.started {
		queueLen := s.jobQueue.Len(ctx)
		stats["queueLength"] = queueLen
		counts := s.jobs.Count(ctx)
		jobs := make(map[string]int, len(counts))
		for status, n := range counts {
			jobs[string(status)] = n
		}
		stats["jobs"] = jobs

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerPool.Size())
	}
	return stats
}

func normalizeHolder(holderID string) (string, error) {
	holderID = strings.TrimSpace(holderID)
	if holderID == "" {
		return "", ErrInvalidWallet
	}
	return holderID, nil
}

// wrapSource makes sure err carries kind without wrapping it twice.
func wrapSource(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
