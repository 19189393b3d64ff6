package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/affinity/pkg/logger"
)

// loadStats tallies one load test run.
type loadStats struct {
	Submitted     int64         `json:"submitted"`
	Accepted      int64         `json:"accepted"`
	Backpressured int64         `json:"backpressured"`
	Rejected      int64         `json:"rejected"`
	Done          int64         `json:"done"`
	Failed        int64         `json:"failed"`
	TimedOut      int64         `json:"timed_out"`
	Duration      time.Duration `json:"duration_ns"`
	JobsPerSecond float64       `json:"jobs_per_second"`
}

type loadConfig struct {
	wallets      []string
	jobs         int
	workers      int
	topN         int
	pollInterval time.Duration
	jobTimeout   time.Duration
}

func loadtestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Submit recommendation jobs concurrently and wait for them",
		Long: `Submit recommendation jobs concurrently and wait for them.

Wallets are used round-robin. Every accepted job is polled until it is done
or failed; the command fails when any job does not finish in time.

Examples:
  affinity-cli loadtest --wallet 0xabc --wallet 0xdef --jobs 200 --workers 16`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, _ := cmd.Flags().GetString("url")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			cfg := loadConfig{}
			cfg.wallets, _ = cmd.Flags().GetStringSlice("wallet")
			cfg.jobs, _ = cmd.Flags().GetInt("jobs")
			cfg.workers, _ = cmd.Flags().GetInt("workers")
			cfg.topN, _ = cmd.Flags().GetInt("top-n")
			cfg.pollInterval, _ = cmd.Flags().GetDuration("poll-interval")
			cfg.jobTimeout, _ = cmd.Flags().GetDuration("job-timeout")

			if len(cfg.wallets) == 0 {
				return errors.New("at least one --wallet is required")
			}
			if cfg.jobs < 1 || cfg.workers < 1 {
				return errors.New("--jobs and --workers must be positive")
			}

			client := newAPIClient(url, timeout)
			if err := client.health(cmd.Context()); err != nil {
				return fmt.Errorf("service health check failed: %w", err)
			}

			stats, err := runLoad(cmd.Context(), client, cfg)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), stats); err != nil {
				return err
			}
			if stats.TimedOut > 0 {
				return fmt.Errorf("%d jobs did not finish within %s", stats.TimedOut, cfg.jobTimeout)
			}
			return nil
		},
	}
	cmd.Flags().String("url", defaultServerURL, "affinity server base URL")
	cmd.Flags().StringSlice("wallet", nil, "wallet address, repeatable")
	cmd.Flags().Int("jobs", 100, "number of jobs to submit")
	cmd.Flags().Int("workers", 8, "concurrent submitters")
	cmd.Flags().Int("top-n", 0, "recommendations per job, 0 uses the server default")
	cmd.Flags().Duration("timeout", 10*time.Second, "per-request timeout")
	cmd.Flags().Duration("poll-interval", 100*time.Millisecond, "delay between job polls")
	cmd.Flags().Duration("job-timeout", 30*time.Second, "how long to wait for one job")
	return cmd
}

// runLoad submits cfg.jobs jobs with at most cfg.workers in flight. A
// rejected submission is counted, not returned; only context cancellation
// aborts the run.
func runLoad(ctx context.Context, client *apiClient, cfg loadConfig) (loadStats, error) {
	var stats loadStats
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)
	for i := 0; i < cfg.jobs; i++ {
		wallet := cfg.wallets[i%len(cfg.wallets)]
		g.Go(func() error {
			atomic.AddInt64(&stats.Submitted, 1)
			j, err := client.submitJob(gctx, wallet, cfg.topN)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				var apiErr *apiError
				if errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests {
					atomic.AddInt64(&stats.Backpressured, 1)
				} else {
					atomic.AddInt64(&stats.Rejected, 1)
				}
				logger.Get().Debug(gctx, "job rejected", logger.Wallet(wallet), logger.Error(err))
				return nil
			}
			atomic.AddInt64(&stats.Accepted, 1)

			status, err := waitForJob(gctx, client, j.JobID, cfg.pollInterval, cfg.jobTimeout)
			switch {
			case err != nil && gctx.Err() != nil:
				return gctx.Err()
			case err != nil:
				atomic.AddInt64(&stats.TimedOut, 1)
			case status == "done":
				atomic.AddInt64(&stats.Done, 1)
			default:
				atomic.AddInt64(&stats.Failed, 1)
			}
			return nil
		})
	}
	err := g.Wait()

	stats.Duration = time.Since(start)
	if stats.Duration > 0 {
		stats.JobsPerSecond = float64(stats.Done+stats.Failed) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "load test finished",
		logger.Int("submitted", int(stats.Submitted)),
		logger.Int("accepted", int(stats.Accepted)),
		logger.Int("done", int(stats.Done)),
		logger.Int("failed", int(stats.Failed)),
		logger.Duration("duration", stats.Duration))
	return stats, err
}

// waitForJob polls until the job reaches done or failed.
func waitForJob(ctx context.Context, client *apiClient, id string, every, limit time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		j, err := client.job(ctx, id)
		if err == nil && (j.Status == "done" || j.Status == "failed") {
			return j.Status, nil
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return "", fmt.Errorf("job %s: %w", id, err)
			}
			return "", fmt.Errorf("job %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}
