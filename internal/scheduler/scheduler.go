// internal/scheduler/scheduler.go
package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Default firing times: notification sweeps morning and evening,
// backup at midnight.
const (
	SpecMorningNotifications = "0 7 * * *"
	SpecEveningNotifications = "0 20 * * *"
	SpecNightlyBackup        = "0 0 * * *"
)

// Scheduler is the process-wide background cadence. It owns nothing
// but job identifiers; all idempotency lives in the jobs themselves,
// so a missed or duplicate tick is safe. Jobs never overlap their own
// previous run.
type Scheduler struct {
	cron   *cron.Cron
	jobs   map[string]cron.EntryID
	logger *zap.Logger
}

// New creates a stopped scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(cron.DiscardLogger),
		)),
		jobs:   make(map[string]cron.EntryID),
		logger: logger,
	}
}

// AddJob registers a named job at a cron spec. Registering the same
// name twice is a programming error.
func (s *Scheduler) AddJob(name, spec string, job func()) error {
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	id, err := s.cron.AddFunc(spec, func() {
		s.logger.Info("scheduled job starting", zap.String("job", name))
		job()
		s.logger.Info("scheduled job finished", zap.String("job", name))
	})
	if err != nil {
		return fmt.Errorf("failed to register job %q: %w", name, err)
	}
	s.jobs[name] = id
	return nil
}

// Jobs returns the registered job names.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// Start begins firing jobs in a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop halts the cadence and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
