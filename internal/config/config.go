// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New(ctx) returns a Config populated with defaults.
//   - Load(ctx) layers an optional YAML file and AFFINITY_* env vars on top.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Source names accepted for ownership_source and candidate_source.
const (
	SourceSui     = "sui"
	SourceFile    = "file"
	SourceDemo    = "demo"
	defaultSuiRPC = "https://fullnode.testnet.sui.io:443"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// TopK is the size of a profile's salient-tag list.
	TopK int `koanf:"top_k"`
	// TopN is the default number of recommendations.
	TopN int `koanf:"top_n"`
	// MaxTopN caps top_n on incoming requests.
	MaxTopN int `koanf:"max_top_n"`
	// CandidateLimit bounds the candidate pool fetched per request.
	CandidateLimit int `koanf:"candidate_limit"`

	// TagWeight and SalienceBonus are the scoring weights.
	TagWeight     float64 `koanf:"tag_weight"`
	SalienceBonus float64 `koanf:"salience_bonus"`

	// ProfileCacheSize bounds cached profiles; 0 disables caching.
	ProfileCacheSize int `koanf:"profile_cache_size"`
	// ProfileCacheTTLMS expires cached profiles; 0 keeps them until evicted.
	ProfileCacheTTLMS int `koanf:"profile_cache_ttl_ms"`

	// Metric naming. MetricsHTTPBuckets are the HTTP latency buckets in
	// milliseconds and must be strictly increasing.
	MetricsNamespace   string            `koanf:"metrics_namespace"`
	MetricsSubsystem   string            `koanf:"metrics_subsystem"`
	MetricsHTTPBuckets []float64         `koanf:"metrics_http_buckets"`
	MetricsConstLabels map[string]string `koanf:"metrics_const_labels"`

	// OwnershipSource is "sui" or "file"; CandidateSource is "demo" or "file".
	OwnershipSource string `koanf:"ownership_source"`
	CandidateSource string `koanf:"candidate_source"`
	// FixturePath points at the YAML/JSON file used by the file sources.
	FixturePath string `koanf:"fixture_path"`
	// DemoSeed seeds the demo marketplace generator.
	DemoSeed int64 `koanf:"demo_seed"`

	// Sui full node JSON-RPC settings.
	SuiRPCURL        string  `koanf:"sui_rpc_url"`
	SuiRPS           float64 `koanf:"sui_rps"`
	SuiBurst         int     `koanf:"sui_burst"`
	SuiTimeoutMS     int     `koanf:"sui_timeout_ms"`
	SuiPageLimit     int     `koanf:"sui_page_limit"`
	BreakerFailures  int     `koanf:"breaker_failures"`
	BreakerTimeoutMS int     `koanf:"breaker_timeout_ms"`

	// JobQueueSize bounds the async recommendation job queue.
	JobQueueSize int `koanf:"job_queue_size"`
	// WorkerCount sets the number of job workers.
	WorkerCount int `koanf:"worker_count"`
	// FetchConcurrency bounds concurrent collaborator calls per request.
	FetchConcurrency int `koanf:"fetch_concurrency"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		TopK:              10,
		TopN:              5,
		MaxTopN:           100,
		CandidateLimit:    50,
		TagWeight:         5,
		SalienceBonus:     10,
		ProfileCacheSize:  10_000,
		ProfileCacheTTLMS: 60_000,
		MetricsNamespace:  "affinity",
		MetricsSubsystem:  "recommender",
		OwnershipSource:   SourceSui,
		CandidateSource:   SourceDemo,
		DemoSeed:          42,
		SuiRPCURL:         defaultSuiRPC,
		SuiRPS:            10,
		SuiBurst:          20,
		SuiTimeoutMS:      10_000,
		SuiPageLimit:      10,
		BreakerFailures:   5,
		BreakerTimeoutMS:  30_000,
		JobQueueSize:      1_000,
		WorkerCount:       runtime.NumCPU(),
		FetchConcurrency:  2,
	}
}

// ProfileCacheTTL returns the cache TTL as a duration.
func (c *Config) ProfileCacheTTL() time.Duration {
	return time.Duration(c.ProfileCacheTTLMS) * time.Millisecond
}

// SuiTimeout returns the RPC timeout as a duration.
func (c *Config) SuiTimeout() time.Duration {
	return time.Duration(c.SuiTimeoutMS) * time.Millisecond
}

// BreakerTimeout returns how long the breaker stays open.
func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutMS) * time.Millisecond
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TagWeight < 0 || c.SalienceBonus < 0:
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidConfig)
	case c.TopK < 1:
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidConfig)
	case c.TopN < 1 || c.TopN > c.MaxTopN:
		return fmt.Errorf("%w: top_n must be between 1 and max_top_n (%d)", ErrInvalidConfig, c.MaxTopN)
	case c.CandidateLimit < 1:
		return fmt.Errorf("%w: candidate_limit must be positive", ErrInvalidConfig)
	case c.ProfileCacheSize < 0:
		return fmt.Errorf("%w: profile_cache_size must not be negative (0 disables caching)", ErrInvalidConfig)
	case c.ProfileCacheTTLMS < 0:
		return fmt.Errorf("%w: profile_cache_ttl_ms must not be negative", ErrInvalidConfig)
	}

	for i := 1; i < len(c.MetricsHTTPBuckets); i++ {
		if c.MetricsHTTPBuckets[i] <= c.MetricsHTTPBuckets[i-1] {
			return fmt.Errorf("%w: metrics_http_buckets must be strictly increasing", ErrInvalidConfig)
		}
	}

	switch c.OwnershipSource {
	case SourceSui:
		if c.SuiRPCURL == "" {
			return fmt.Errorf("%w: sui_rpc_url must not be empty", ErrInvalidConfig)
		}
	case SourceFile:
	default:
		return fmt.Errorf("%w: unknown ownership_source %q", ErrInvalidConfig, c.OwnershipSource)
	}

	switch c.CandidateSource {
	case SourceDemo, SourceFile:
	default:
		return fmt.Errorf("%w: unknown candidate_source %q", ErrInvalidConfig, c.CandidateSource)
	}

	if (c.OwnershipSource == SourceFile || c.CandidateSource == SourceFile) && c.FixturePath == "" {
		return fmt.Errorf("%w: fixture_path is required by the file sources", ErrInvalidConfig)
	}
	return nil
}
