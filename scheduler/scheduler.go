// Package scheduler runs the periodic maintenance jobs of the TPN API:
// catalog integrity checks, rate limiter pruning and log retention.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/giygas/tpn-api/interfaces"
	"github.com/giygas/tpn-api/logging"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const (
	TagCatalogCheck = "catalog-check"
	TagPruneLimiter = "prune-rate-limiter"
	TagCleanupLogs  = "cleanup-logs"
)

// Pruner drops idle state and reports how many entries were removed.
type Pruner interface {
	Prune(idle time.Duration) int
}

// Options tunes job intervals. Zero values use the defaults.
type Options struct {
	CatalogCheckEvery time.Duration
	PruneEvery        time.Duration
	PruneIdle         time.Duration
	CleanupAt         string
}

func (o Options) withDefaults() Options {
	if o.CatalogCheckEvery <= 0 {
		o.CatalogCheckEvery = time.Hour
	}
	if o.PruneEvery <= 0 {
		o.PruneEvery = 30 * time.Minute
	}
	if o.PruneIdle <= 0 {
		o.PruneIdle = 10 * time.Minute
	}
	if o.CleanupAt == "" {
		o.CleanupAt = "03:00"
	}
	return o
}

// Scheduler owns the gocron scheduler and the injected job targets
type Scheduler struct {
	health    interfaces.HealthChecker
	limiter   Pruner
	cleanup   func() error
	opts      Options
	scheduler *gocron.Scheduler
}

// NewScheduler creates a scheduler. limiter and cleanup may be nil, in
// which case their jobs are not registered.
func NewScheduler(health interfaces.HealthChecker, limiter Pruner, cleanup func() error, opts Options) *Scheduler {
	return &Scheduler{
		health:    health,
		limiter:   limiter,
		cleanup:   cleanup,
		opts:      opts.withDefaults(),
		scheduler: gocron.NewScheduler(time.Local),
	}
}

// Start checks the catalog once, registers the jobs and starts them.
// An invalid catalog at startup is an error.
func (s *Scheduler) Start() error {
	if !s.checkCatalog() {
		return errors.New("initial catalog check failed")
	}

	s.scheduler.SingletonModeAll()

	_, err := s.scheduler.Every(s.opts.CatalogCheckEvery).
		WaitForSchedule().
		Tag(TagCatalogCheck).
		Do(func() { s.checkCatalog() })
	if err != nil {
		return fmt.Errorf("failed to schedule catalog check: %w", err)
	}

	if s.limiter != nil {
		_, err = s.scheduler.Every(s.opts.PruneEvery).
			WaitForSchedule().
			Tag(TagPruneLimiter).
			Do(s.pruneLimiter)
		if err != nil {
			return fmt.Errorf("failed to schedule rate limiter pruning: %w", err)
		}
	}

	if s.cleanup != nil {
		_, err = s.scheduler.Every(1).Days().At(s.opts.CleanupAt).
			Tag(TagCleanupLogs).
			Do(s.cleanupLogs)
		if err != nil {
			return fmt.Errorf("failed to schedule log cleanup: %w", err)
		}
	}

	s.scheduler.StartAsync()
	logging.Info("Scheduler started", "jobs", s.scheduler.Len())
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Tags lists the tags of the registered jobs
func (s *Scheduler) Tags() []string {
	var tags []string
	for _, job := range s.scheduler.Jobs() {
		tags = append(tags, job.Tags()...)
	}
	return tags
}

// checkCatalog refreshes the health checker's catalog report and reports
// whether the catalog is valid. Findings are logged by the validator.
func (s *Scheduler) checkCatalog() bool {
	start := time.Now()
	report := s.health.RefreshCatalog()
	if !report.Valid() {
		return false
	}

	logging.Debug("Catalog integrity check completed",
		"solutions", report.SolutionCount,
		"duration", time.Since(start).String(),
	)
	return true
}

func (s *Scheduler) pruneLimiter() {
	if removed := s.limiter.Prune(s.opts.PruneIdle); removed > 0 {
		logging.Debug("Pruned rate limiter buckets", "removed", removed)
	}
}

func (s *Scheduler) cleanupLogs() {
	if err := s.cleanup(); err != nil {
		logging.Error("Failed to clean up old logs", "error", err)
	}
}
