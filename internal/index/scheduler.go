package index

import (
	"context"
	"log/slog"
	"time"
)

// RetryConfig bounds the rebuild retry loop.
type RetryConfig struct {
	MaxRetries      int           // retry attempts after the first failure
	InitialInterval time.Duration // first backoff delay
	MaxInterval     time.Duration // backoff ceiling
}

// DefaultRetryConfig returns sensible defaults for corpus-backed rebuilds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// Scheduler periodically rebuilds the thematic index. It is an explicit,
// stoppable task: Run blocks until ctx is canceled, and callers own the
// goroutine (track it with a WaitGroup).
type Scheduler struct {
	index    *Index
	interval time.Duration
	retry    RetryConfig
	logger   *slog.Logger
}

// NewScheduler creates a rebuild scheduler.
func NewScheduler(index *Index, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		index:    index,
		interval: interval,
		retry:    DefaultRetryConfig(),
		logger:   logger,
	}
}

// Run rebuilds once immediately, then on every tick, until ctx is
// canceled. Rebuild failures are retried with bounded exponential
// backoff; after the retries are exhausted the previous snapshot keeps
// serving until the next tick.
func (s *Scheduler) Run(ctx context.Context) {
	s.rebuildWithRetry(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.rebuildWithRetry(ctx)
		}
	}
}

// rebuildWithRetry executes one rebuild cycle with exponential backoff.
func (s *Scheduler) rebuildWithRetry(ctx context.Context) {
	delay := s.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		err := s.index.Rebuild(ctx)
		if err == nil {
			if attempt > 0 {
				s.logger.Info("index rebuild recovered",
					"attempts", attempt+1, "elapsed", time.Since(start))
			}
			return
		}

		if attempt == s.retry.MaxRetries {
			s.logger.Error("index rebuild failed, serving stale snapshot",
				"attempts", attempt+1,
				"built_at", s.index.BuiltAt(),
				"error", err)
			return
		}

		s.logger.Warn("index rebuild failed, retrying",
			"attempt", attempt+1, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
			delay = min(delay*2, s.retry.MaxInterval)
		}
	}
}
