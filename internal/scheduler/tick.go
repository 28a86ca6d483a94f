package scheduler

import (
	"context"
	"math"
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// tick implements §4.8's main loop steps 1-2: pull due jobs and submit
// each to the worker pool, skipping any job already in flight. The tick
// loop itself never performs network I/O — submission is a non-blocking
// attempt to acquire a worker slot.
func (s *Scheduler) tick(ctx context.Context) {
	s.refreshGauges(ctx)

	due, err := s.store.ListDueJobs(ctx, time.Now().UTC())
	if err != nil {
		s.log.WithError(err).Warn("failed to list due jobs")
		return
	}

	for _, job := range due {
		s.mu.Lock()
		if s.inFlight[job.JobID] {
			s.mu.Unlock()
			continue
		}
		s.inFlight[job.JobID] = true
		attempt := s.retryAttempt[job.JobID]
		if attempt == 0 {
			attempt = 1
		}
		s.mu.Unlock()

		select {
		case s.workers <- struct{}{}:
		default:
			// Pool is saturated this tick; release the in-flight mark and
			// retry the job on the next tick rather than blocking the
			// single-threaded tick loop.
			s.mu.Lock()
			delete(s.inFlight, job.JobID)
			s.mu.Unlock()
			continue
		}

		s.wg.Add(1)
		go func(job domain.ScheduledJob, attempt int) {
			defer s.wg.Done()
			defer func() { <-s.workers }()
			defer func() {
				s.mu.Lock()
				delete(s.inFlight, job.JobID)
				s.mu.Unlock()
			}()
			s.runAttempt(ctx, job, attempt)
		}(job, attempt)
	}
}

// Trigger bypasses next_run_at but still honors in_flight exclusion
// (spec §4.8 "Manual trigger").
func (s *Scheduler) Trigger(ctx context.Context, jobID string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.inFlight[jobID] {
		s.mu.Unlock()
		return nil
	}
	s.inFlight[jobID] = true
	attempt := s.retryAttempt[jobID]
	if attempt == 0 {
		attempt = 1
	}
	s.mu.Unlock()

	s.workers <- struct{}{}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.workers }()
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, jobID)
			s.mu.Unlock()
		}()
		s.runAttempt(ctx, job, attempt)
	}()
	return nil
}

// runAttempt implements §4.8's worker path, steps a-e.
func (s *Scheduler) runAttempt(ctx context.Context, job domain.ScheduledJob, attempt int) {
	started := time.Now().UTC()

	execCtx, cancel := context.WithTimeout(ctx, s.timeoutFor(job))
	defer cancel()

	exec := domain.JobExecution{
		JobID:           job.JobID,
		ExecutionStatus: domain.ExecutionStatusRunning,
		StartedAt:       started,
		Attempt:         attempt,
		CreatedAt:       started,
	}
	exec, err := s.store.CreateExecution(ctx, exec)
	if err != nil {
		s.log.WithError(err).WithField("job_id", job.JobID).Warn("failed to insert job execution")
		return
	}
	s.broadcast(job.JobID, "running")

	end, start := endStart(job)
	outcome := s.engine.Ingest(execCtx, job.Symbol, job.AssetType, start, end, job.CollectorKwargs, job.AssetMetadata)

	now := time.Now().UTC()
	exec.CompletedAt = &now
	elapsedMs := outcome.ExecutionTimeMs
	exec.ExecutionTimeMs = &elapsedMs
	if outcome.CollectionLog != nil {
		exec.LogID = &outcome.CollectionLog.LogID
	}

	if !outcome.Failed() {
		s.onSuccess(ctx, &exec, &job, now)
		return
	}

	exec.ErrorCategory = outcome.ErrorCategory
	exec.ErrorMessage = outcome.ErrorMessage

	if outcome.ErrorCategory.Retriable() && attempt < job.MaxRetries+1 {
		s.onRetry(ctx, &exec, &job, attempt, now)
		return
	}
	s.onFinalFailure(ctx, &exec, &job, now)
}

func (s *Scheduler) timeoutFor(job domain.ScheduledJob) time.Duration {
	if s.cfg.DefaultTimeout > 0 {
		return s.cfg.DefaultTimeout
	}
	return 300 * time.Second
}

// endStart computes the job's explicit window override, if any. A nil
// return for either lets the ingestion engine compute it fresh at fire
// time, per spec §4.6 step 3.
func endStart(job domain.ScheduledJob) (end, start *time.Time) {
	return job.EndDate, job.StartDate
}

func (s *Scheduler) onSuccess(ctx context.Context, exec *domain.JobExecution, job *domain.ScheduledJob, now time.Time) {
	exec.ExecutionStatus = domain.ExecutionStatusCompleted

	job.LastRunAt = &now
	next, ok, err := s.evaluator.NextFire(*job, now)
	if err != nil {
		s.log.WithError(err).WithField("job_id", job.JobID).Warn("failed to compute next fire after success")
	}
	if ok {
		job.NextRunAt = &next
	} else {
		job.NextRunAt = nil
		job.Status = domain.JobStatusCompleted
		s.countJobStatus(*job)
	}
	job.UpdatedAt = now

	s.mu.Lock()
	delete(s.retryAttempt, job.JobID)
	s.mu.Unlock()

	if err := s.store.RecordAttemptOutcome(ctx, *exec, *job); err != nil {
		s.log.WithError(err).WithField("job_id", job.JobID).Warn("failed to record successful attempt outcome")
	}
	s.recordMetrics(*job, *exec)
	s.broadcast(job.JobID, string(job.Status))
}

// onRetry schedules the next attempt at now + retry_delay *
// backoff^(attempt-1), per spec §4.8 step d, without advancing
// next_run_at beyond the retry time.
func (s *Scheduler) onRetry(ctx context.Context, exec *domain.JobExecution, job *domain.ScheduledJob, attempt int, now time.Time) {
	exec.ExecutionStatus = domain.ExecutionStatusRetrying

	delaySeconds := float64(job.RetryDelaySeconds) * math.Pow(job.RetryBackoffMultiplier, float64(attempt-1))
	retryAt := now.Add(time.Duration(delaySeconds * float64(time.Second)))
	job.NextRunAt = &retryAt
	job.UpdatedAt = now

	s.mu.Lock()
	s.retryAttempt[job.JobID] = attempt + 1
	s.mu.Unlock()

	if err := s.store.RecordAttemptOutcome(ctx, *exec, *job); err != nil {
		s.log.WithError(err).WithField("job_id", job.JobID).Warn("failed to record retrying attempt outcome")
	}
	if s.metrics != nil {
		s.metrics.JobRetriesTotal.WithLabelValues(job.JobID, string(job.AssetType)).Inc()
	}
	s.recordMetrics(*job, *exec)
	s.broadcast(job.JobID, "retrying")
}

// onFinalFailure implements §4.8 step e: retries exhausted. A one-shot
// trigger fails the job outright; a recurring trigger stays active and
// skips ahead to the next scheduled fire — failures never block future
// runs.
func (s *Scheduler) onFinalFailure(ctx context.Context, exec *domain.JobExecution, job *domain.ScheduledJob, now time.Time) {
	exec.ExecutionStatus = domain.ExecutionStatusFailed

	s.mu.Lock()
	delete(s.retryAttempt, job.JobID)
	s.mu.Unlock()

	if job.OneShot() {
		job.Status = domain.JobStatusFailed
		job.NextRunAt = nil
		s.countJobStatus(*job)
	} else {
		next, ok, err := s.evaluator.NextFire(*job, now)
		if err != nil {
			s.log.WithError(err).WithField("job_id", job.JobID).Warn("failed to compute next fire after final failure")
		}
		if ok {
			job.NextRunAt = &next
		} else {
			job.NextRunAt = nil
			job.Status = domain.JobStatusCompleted
			s.countJobStatus(*job)
		}
	}
	job.UpdatedAt = now

	if err := s.store.RecordAttemptOutcome(ctx, *exec, *job); err != nil {
		s.log.WithError(err).WithField("job_id", job.JobID).Warn("failed to record final failure outcome")
	}
	s.recordMetrics(*job, *exec)
	s.broadcast(job.JobID, string(job.Status))
}

// countJobStatus increments scheduler_jobs_total for a job that just
// reached a terminal status (completed or failed), per spec §4.9.
func (s *Scheduler) countJobStatus(job domain.ScheduledJob) {
	if s.metrics == nil {
		return
	}
	s.metrics.JobsTotal.WithLabelValues(string(job.Status), string(job.AssetType)).Inc()
}

// refreshGauges recomputes scheduler_{active,pending,failed}_jobs from the
// durable job registry. Called only from the tick loop, per spec §5's
// "Gauges: updated only from the tick loop to avoid contention."
func (s *Scheduler) refreshGauges(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	jobs, err := s.store.ListJobsByStatus(ctx, domain.JobStatusActive, domain.JobStatusPending, domain.JobStatusFailed)
	if err != nil {
		s.log.WithError(err).Warn("failed to refresh job gauges")
		return
	}

	active := map[domain.AssetType]float64{}
	pending := map[domain.AssetType]float64{}
	failed := map[domain.AssetType]float64{}
	for _, job := range jobs {
		switch job.Status {
		case domain.JobStatusActive:
			active[job.AssetType]++
		case domain.JobStatusPending:
			pending[job.AssetType]++
		case domain.JobStatusFailed:
			failed[job.AssetType]++
		}
	}

	s.metrics.ActiveJobs.Reset()
	s.metrics.PendingJobs.Reset()
	s.metrics.FailedJobs.Reset()
	for assetType, count := range active {
		s.metrics.ActiveJobs.WithLabelValues(string(assetType)).Set(count)
	}
	for assetType, count := range pending {
		s.metrics.PendingJobs.WithLabelValues(string(assetType)).Set(count)
	}
	for assetType, count := range failed {
		s.metrics.FailedJobs.WithLabelValues(string(assetType)).Set(count)
	}
}

func (s *Scheduler) recordMetrics(job domain.ScheduledJob, exec domain.JobExecution) {
	if s.metrics == nil {
		return
	}
	category := ""
	if exec.ErrorCategory != "" {
		category = string(exec.ErrorCategory)
	}
	s.metrics.JobExecutionsTotal.WithLabelValues(string(exec.ExecutionStatus), string(job.AssetType), category).Inc()
	if exec.ExecutionTimeMs != nil {
		s.metrics.JobDurationSeconds.WithLabelValues(string(job.AssetType), string(exec.ExecutionStatus)).Observe(float64(*exec.ExecutionTimeMs) / 1000)
	}
}

func (s *Scheduler) broadcast(jobID, status string) {
	if s.bus == nil {
		return
	}
	s.bus.Broadcast(eventbusUpdate(jobID, status))
}
