package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/affinity/internal/adapters/http/api"
	"github.com/okian/affinity/internal/adapters/http/site"
	"github.com/okian/affinity/internal/adapters/http/swagger"
	"github.com/okian/affinity/internal/adapters/sources"
	"github.com/okian/affinity/internal/adapters/sources/fixture"
	"github.com/okian/affinity/internal/adapters/sources/marketplace"
	"github.com/okian/affinity/internal/adapters/sources/sui"
	app "github.com/okian/affinity/internal/app"
	"github.com/okian/affinity/internal/config"
	"github.com/okian/affinity/internal/domain/engine"
	"github.com/okian/affinity/internal/domain/scoring"
	"github.com/okian/affinity/pkg/logger"
	"github.com/okian/affinity/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Drop the default Go collectors; system metrics are recorded below.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	initMetrics(cfg)

	owned, candidates, err := buildSources(cfg, log)
	if err != nil {
		return err
	}

	svc := newService(cfg, owned, candidates, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("ownership_source", cfg.OwnershipSource),
			logger.String("candidate_source", cfg.CandidateSource))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%w: %w", api.ErrServe, err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// initMetrics applies the configured metric naming to the global manager.
func initMetrics(cfg *config.Config) {
	metrics.Init(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.MetricsHTTPBuckets),
		metrics.WithConstLabels(cfg.MetricsConstLabels),
	)
}

// buildSources constructs the ownership and candidate collaborators named
// by the configuration. The fixture file is read at most once.
func buildSources(cfg *config.Config, log logger.Logger) (sources.OwnershipSource, sources.CandidateSource, error) {
	var store *fixture.Store
	if cfg.OwnershipSource == config.SourceFile || cfg.CandidateSource == config.SourceFile {
		s, err := fixture.Load(cfg.FixturePath)
		if err != nil {
			return nil, nil, err
		}
		store = s
	}

	var owned sources.OwnershipSource
	switch cfg.OwnershipSource {
	case config.SourceSui:
		owned = sui.New(cfg.SuiRPCURL,
			sui.WithTimeout(cfg.SuiTimeout()),
			sui.WithRateLimit(cfg.SuiRPS, cfg.SuiBurst),
			sui.WithPageLimit(cfg.SuiPageLimit),
			sui.WithBreaker(cfg.BreakerFailures, cfg.BreakerTimeout()),
			sui.WithLogger(log.Named("sui")),
		)
	case config.SourceFile:
		owned = store
	default:
		return nil, nil, fmt.Errorf("%w: unknown ownership_source %q", config.ErrInvalidConfig, cfg.OwnershipSource)
	}

	var candidates sources.CandidateSource
	switch cfg.CandidateSource {
	case config.SourceDemo:
		candidates = marketplace.NewGenerator(
			marketplace.WithSeed(cfg.DemoSeed),
			marketplace.WithLogger(log.Named("marketplace")),
		)
	case config.SourceFile:
		candidates = store
	default:
		return nil, nil, fmt.Errorf("%w: unknown candidate_source %q", config.ErrInvalidConfig, cfg.CandidateSource)
	}
	return owned, candidates, nil
}

// newService wires the engine and service from the configuration.
func newService(cfg *config.Config, owned sources.OwnershipSource, candidates sources.CandidateSource, log logger.Logger) *app.Service {
	eng := engine.New(
		engine.WithWeights(scoring.Weights{TagWeight: cfg.TagWeight, SalienceBonus: cfg.SalienceBonus}),
		engine.WithTopK(cfg.TopK),
		engine.WithTopN(cfg.TopN),
	)
	return app.New(owned, candidates,
		app.WithEngine(eng),
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.JobQueueSize),
		app.WithProfileCache(cfg.ProfileCacheSize, cfg.ProfileCacheTTL()),
		app.WithCandidateLimit(cfg.CandidateLimit),
		app.WithMaxTopN(cfg.MaxTopN),
		app.WithFetchConcurrency(cfg.FetchConcurrency),
	)
}

// newMux registers the landing page, API docs and business routes.
func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges that only change with service state.
// GetStats itself updates queue length and worker count.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if size, ok := stats["queueSize"].(int); ok {
		metrics.UpdateQueueCapacity(size)
	}
	if cached, ok := stats["cachedProfiles"].(int64); ok {
		metrics.UpdateProfileCacheSize(int(cached))
	}
}
