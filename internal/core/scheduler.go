package core

// scheduler.go runs background maintenance on cron schedules:
//  1. Reload the indicator catalog and country table
//  2. Drop idle sessions and their memo caches
//
// Failures are logged and never stop the application.

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerConfig holds cron specs for background jobs. Empty specs disable
// the job.
type SchedulerConfig struct {
	ReloadSpec string // Reference data reload
	PruneSpec  string // Idle session removal
}

// StartScheduler registers the configured jobs and blocks until ctx is
// cancelled. It returns an error only for an invalid spec.
func (s *Service) StartScheduler(ctx context.Context, cfg SchedulerConfig) error {
	c := cron.New()

	if cfg.ReloadSpec != "" {
		if _, err := c.AddFunc(cfg.ReloadSpec, func() { s.runReloadJob(ctx) }); err != nil {
			return err
		}
	}
	if cfg.PruneSpec != "" {
		if _, err := c.AddFunc(cfg.PruneSpec, func() { s.runPruneJob(time.Now()) }); err != nil {
			return err
		}
	}

	slog.Info("scheduler started",
		"reload", cfg.ReloadSpec,
		"prune", cfg.PruneSpec,
		"jobs", len(c.Entries()),
	)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("scheduler stopped")
	return nil
}

// runReloadJob performs one reference reload.
func (s *Service) runReloadJob(ctx context.Context) {
	start := time.Now()
	if err := s.ReloadReference(ctx); err != nil {
		slog.Error("reference reload failed", "error", err)
		return
	}
	ref := s.Reference()
	slog.Info("reference reloaded",
		"indicators", len(ref.Indicators),
		"countries", len(ref.Countries),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// runPruneJob removes idle sessions.
func (s *Service) runPruneJob(now time.Time) {
	if removed := s.sessions.Prune(now); removed > 0 {
		slog.Info("pruned idle sessions", "removed", removed, "remaining", s.sessions.Len())
	}
}
