package scheduler

import (
	"context"
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// Pause sets status=paused and clears next_run_at, per spec §4.8.
func (s *Scheduler) Pause(ctx context.Context, jobID string) (domain.ScheduledJob, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return domain.ScheduledJob{}, err
	}
	job.Status = domain.JobStatusPaused
	job.NextRunAt = nil
	job.UpdatedAt = time.Now().UTC()
	updated, err := s.store.UpdateJob(ctx, job)
	if err != nil {
		return domain.ScheduledJob{}, err
	}
	s.broadcast(jobID, string(domain.JobStatusPaused))
	return updated, nil
}

// Resume sets status=active and recomputes next_run_at from now — a
// paused-then-resumed job catches up on no missed fires, only future
// ones (spec §9's open question, resolved as "skip").
func (s *Scheduler) Resume(ctx context.Context, jobID string) (domain.ScheduledJob, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return domain.ScheduledJob{}, err
	}
	job.Status = domain.JobStatusActive
	now := time.Now().UTC()
	next, ok, err := s.evaluator.NextFire(job, now)
	if err != nil {
		return domain.ScheduledJob{}, err
	}
	if ok {
		job.NextRunAt = &next
	} else {
		job.NextRunAt = nil
		job.Status = domain.JobStatusCompleted
	}
	job.UpdatedAt = now
	updated, err := s.store.UpdateJob(ctx, job)
	if err != nil {
		return domain.ScheduledJob{}, err
	}
	s.broadcast(jobID, string(updated.Status))
	return updated, nil
}
