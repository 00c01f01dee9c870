// Package worker contains the background birthday reminder scheduler. It is
// decoupled from the HTTP layer: the api package holds a worker.Triggerer
// interface and calls Trigger; it never imports the concrete Runner or Job
// types.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ─── TRIGGERER INTERFACE ──────────────────────────────────────────────────────

// Triggerer is the narrow interface the api package uses to request an
// immediate reminder scan.
//
// The concrete implementation is *Runner. In tests, any struct with a Trigger
// method satisfies the interface.
type Triggerer interface {
	Trigger() bool
}

// ─── RUNNER ───────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner. All fields have
// sensible defaults if zero-valued; call DefaultRunnerConfig() to get them.
type RunnerConfig struct {
	// Interval is how often the reminder scan runs. Default: 24h.
	Interval time.Duration

	// JobTimeout is the per-scan context deadline. Each due persona runs the
	// recommendation pipeline, so set this well above its p99. Default: 10m.
	JobTimeout time.Duration

	// MaxRetries is the number of attempts for a scan whose persona listing
	// fails. Default: 3.
	MaxRetries int
}

// DefaultRunnerConfig returns safe production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Interval:   24 * time.Hour,
		JobTimeout: 10 * time.Minute,
		MaxRetries: 3,
	}
}

// Runner scans for upcoming birthdays once at startup, then on every
// Interval tick and whenever Trigger is called.
type Runner struct {
	job    *Job
	cfg    RunnerConfig
	logger *slog.Logger

	trigger chan struct{}
	wg      sync.WaitGroup
}

// NewRunner constructs a Runner. Call Start() to begin processing.
func NewRunner(job *Job, cfg RunnerConfig, logger *slog.Logger) *Runner {
	def := DefaultRunnerConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}

	return &Runner{
		job:    job,
		cfg:    cfg,
		logger: logger,
		// One pending trigger is enough: a queued scan covers every persona.
		trigger: make(chan struct{}, 1),
	}
}

// Trigger requests an immediate scan. It never blocks and reports false when
// a scan is already pending.
func (r *Runner) Trigger() bool {
	select {
	case r.trigger <- struct{}{}:
		r.logger.Info("worker: reminder scan triggered")
		return true
	default:
		return false
	}
}

// Start launches the scan loop. It blocks until ctx is cancelled. Call it in
// a goroutine from main:
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("worker: starting", "interval", r.cfg.Interval)

	r.wg.Add(1)
	go r.poll(ctx)

	r.wg.Wait()
	r.logger.Info("worker: stopped")
}

// poll runs a scan immediately, then on every tick or trigger.
func (r *Runner) poll(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.runWithRetry(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runWithRetry(ctx)
		case <-r.trigger:
			r.runWithRetry(ctx)
		}
	}
}

// runWithRetry executes a scan up to MaxRetries times with exponential
// back-off. Only listing failures are retried here; per-persona failures are
// picked up by the next scan.
func (r *Runner) runWithRetry(ctx context.Context) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
		res, err := r.job.Run(jobCtx)
		cancel()
		lastErr = err

		if lastErr == nil {
			r.logger.Debug("worker: scan completed", "attempt", attempt, "sent", res.Sent, "failed", res.Failed)
			return
		}
		if ctx.Err() != nil {
			return
		}

		r.logger.Warn("worker: scan attempt failed",
			"attempt", attempt,
			"max", r.cfg.MaxRetries,
			"error", lastErr,
		)

		if attempt < r.cfg.MaxRetries {
			// Exponential back-off: 2s, 4s, 8s …
			backoff := time.Duration(1<<attempt) * time.Second
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}
	}

	r.logger.Error("worker: scan failed, waiting for next interval", "error", lastErr)
}
