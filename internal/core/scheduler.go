package core

// scheduler.go runs periodic maintenance of the match history.
//
// Entries older than the retention window are purged on startup and then on
// every interval. Failures are logged and retried on the next tick; they
// never stop the application.

import (
	"context"
	"log/slog"
	"time"
)

// PurgeConfig controls the history purge scheduler.
type PurgeConfig struct {
	RetentionDays int           // Days to keep history entries (default: 30)
	CheckInterval time.Duration // How often to run (default: 24h)
}

func (c PurgeConfig) withDefaults() PurgeConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartHistoryPurgeScheduler purges old history entries immediately and then
// every CheckInterval until ctx is cancelled.
func (s *Service) StartHistoryPurgeScheduler(ctx context.Context, cfg PurgeConfig) {
	cfg = cfg.withDefaults()

	slog.Info("history purge scheduler started",
		"retention_days", cfg.RetentionDays,
		"check_interval", cfg.CheckInterval,
	)

	s.runPurgeJob(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history purge scheduler stopped")
			return
		case <-ticker.C:
			s.runPurgeJob(ctx, cfg)
		}
	}
}

// runPurgeJob performs one purge cycle and returns the number of removed entries.
func (s *Service) runPurgeJob(ctx context.Context, cfg PurgeConfig) int64 {
	start := time.Now()
	cutoff := start.AddDate(0, 0, -cfg.RetentionDays)

	purged, err := s.history.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("history purge failed", "error", err)
		return 0
	}

	slog.Info("purged match history",
		"entries_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return purged
}
