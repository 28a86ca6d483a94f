// Package scheduler implements the Persistent Scheduler (spec §4.8): the
// durable job registry, the tick loop, the bounded worker pool, and the
// retry/backoff policy.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
	"github.com/r3e-collective/tsdata-scheduler/internal/eventbus"
	"github.com/r3e-collective/tsdata-scheduler/internal/ingestion"
	"github.com/r3e-collective/tsdata-scheduler/internal/logging"
	"github.com/r3e-collective/tsdata-scheduler/internal/metrics"
	"github.com/r3e-collective/tsdata-scheduler/internal/store"
	"github.com/r3e-collective/tsdata-scheduler/internal/trigger"
)

// Config controls the scheduler's tick loop and worker pool.
type Config struct {
	TickInterval   time.Duration
	WorkerPoolSize int
	ShutdownGrace  time.Duration
	DefaultTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = 8
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 30 * time.Second
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 300 * time.Second
	}
	return c
}

// Scheduler is the durable, single-leader job scheduler.
type Scheduler struct {
	store     store.Store
	engine    *ingestion.Engine
	evaluator *trigger.Evaluator
	metrics   *metrics.Metrics
	bus       *eventbus.Bus
	log       *logging.Logger
	cfg       Config

	workers chan struct{}

	mu         sync.Mutex
	inFlight   map[string]bool
	retryAttempt map[string]int
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	running    bool
}

// New wires a Scheduler from its collaborators.
func New(st store.Store, engine *ingestion.Engine, evaluator *trigger.Evaluator, m *metrics.Metrics, bus *eventbus.Bus, log *logging.Logger, cfg Config) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		store:        st,
		engine:       engine,
		evaluator:    evaluator,
		metrics:      m,
		bus:          bus,
		log:          log,
		cfg:          cfg,
		workers:      make(chan struct{}, cfg.WorkerPoolSize),
		inFlight:     make(map[string]bool),
		retryAttempt: make(map[string]int),
	}
}

// Start recovers abandoned executions, reloads active/pending/paused jobs
// and begins the tick loop, per spec §4.8 "Startup".
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	if err := s.recoverAbandoned(runCtx); err != nil {
		s.log.WithError(err).Warn("restart recovery failed")
	}
	if err := s.loadJobs(runCtx); err != nil {
		s.log.WithError(err).Warn("initial job load failed")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.tick(runCtx)
			}
		}
	}()

	s.log.Info("scheduler started")
	return nil
}

// Stop halts the tick loop, waits for in-flight workers up to the
// configured grace period, then abandons them — matching §4.8 "Shutdown":
// abandoned executions are left in `running` state for the next startup's
// recovery pass to finalize.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	graceCtx, graceCancel := context.WithTimeout(ctx, s.cfg.ShutdownGrace)
	defer graceCancel()

	select {
	case <-done:
		s.log.Info("scheduler stopped cleanly")
		return nil
	case <-graceCtx.Done():
		s.log.Warn("scheduler shutdown grace period elapsed; abandoning in-flight workers")
		return nil
	}
}

// loadJobs implements §4.8's startup reconciliation: for each non-paused
// job, next_run_at becomes max(stored_next_run_at, now) or
// evaluator.next_fire(now-ε) if unset, persisted if changed. Pending jobs
// are promoted to active, matching the ScheduledJob lifecycle.
func (s *Scheduler) loadJobs(ctx context.Context) error {
	jobs, err := s.store.ListJobsByStatus(ctx, domain.JobStatusActive, domain.JobStatusPending, domain.JobStatusPaused)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, job := range jobs {
		if job.Status == domain.JobStatusPaused {
			continue
		}
		changed := false
		if job.Status == domain.JobStatusPending {
			job.Status = domain.JobStatusActive
			changed = true
		}
		if job.NextRunAt != nil {
			if job.NextRunAt.Before(now) {
				next := now
				job.NextRunAt = &next
				changed = true
			}
		} else {
			next, ok, err := s.evaluator.NextFire(job, now.Add(-time.Nanosecond))
			if err != nil {
				s.log.WithError(err).WithField("job_id", job.JobID).Warn("failed to compute next_run_at on load")
				continue
			}
			if ok {
				job.NextRunAt = &next
				changed = true
			}
		}
		if changed {
			if _, err := s.store.UpdateJob(ctx, job); err != nil {
				s.log.WithError(err).WithField("job_id", job.JobID).Warn("failed to persist reconciled job")
			}
		}
	}
	return nil
}

// recoverAbandoned finalizes JobExecutions left `running` by a prior
// process that never returned, per spec §7 "Recovery on restart".
func (s *Scheduler) recoverAbandoned(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.cfg.DefaultTimeout)
	abandoned, err := s.store.ListRunningOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, exec := range abandoned {
		now := time.Now().UTC()
		exec.ExecutionStatus = domain.ExecutionStatusFailed
		exec.CompletedAt = &now
		exec.ErrorCategory = domain.ErrorCategoryUnknown
		exec.ErrorMessage = "abandoned at restart"

		job, err := s.store.GetJob(ctx, exec.JobID)
		if err != nil {
			s.log.WithError(err).WithField("job_id", exec.JobID).Warn("could not load job for abandoned execution")
			if _, uerr := s.store.UpdateExecution(ctx, exec); uerr != nil {
				s.log.WithError(uerr).Warn("failed to finalize abandoned execution")
			}
			continue
		}
		if job.Status != domain.JobStatusPaused && job.Status != domain.JobStatusCompleted && job.Status != domain.JobStatusFailed {
			next, ok, nerr := s.evaluator.NextFire(job, now)
			if nerr == nil && ok {
				job.NextRunAt = &next
				job.Status = domain.JobStatusActive
			}
		}
		if err := s.store.RecordAttemptOutcome(ctx, exec, job); err != nil {
			s.log.WithError(err).WithField("job_id", exec.JobID).Warn("failed to record abandoned execution recovery")
		}
	}
	return nil
}
