package scheduler

import (
	"context"
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// CreateJob validates job, applies retry-policy defaults, computes its
// first next_run_at, and persists it with status=pending, per the
// ScheduledJob lifecycle of spec §3. When a first fire time exists, the
// stored job then gets that next_run_at and status=active.
func (s *Scheduler) CreateJob(ctx context.Context, job domain.ScheduledJob) (domain.ScheduledJob, error) {
	if !job.AssetType.Valid() {
		return domain.ScheduledJob{}, apperrors.Validation("unknown asset type " + string(job.AssetType))
	}
	if job.EndDate != nil && job.StartDate != nil && job.EndDate.Before(*job.StartDate) {
		return domain.ScheduledJob{}, apperrors.Validation("end_date must not precede start_date")
	}

	job.ApplyDefaults()
	job.Status = domain.JobStatusPending
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	if _, ok, err := s.evaluator.FirstFire(job); err != nil {
		return domain.ScheduledJob{}, err
	} else if !ok {
		return domain.ScheduledJob{}, apperrors.Validation("trigger_config never fires within start_date/end_date")
	}

	created, err := s.store.CreateJob(ctx, job)
	if err != nil {
		return domain.ScheduledJob{}, err
	}

	first, ok, err := s.evaluator.FirstFire(created)
	if err == nil && ok {
		created.NextRunAt = &first
		created.Status = domain.JobStatusActive
		created, err = s.store.UpdateJob(ctx, created)
		if err != nil {
			return domain.ScheduledJob{}, err
		}
	}

	if s.metrics != nil {
		s.metrics.JobsTotal.WithLabelValues(string(created.Status), string(created.AssetType)).Inc()
	}
	return created, nil
}

// UpdateJob applies a partial update (patch) to an existing job. Callers
// pass in the full resolved job (API layer merges the patch against the
// current record before calling this).
func (s *Scheduler) UpdateJob(ctx context.Context, job domain.ScheduledJob) (domain.ScheduledJob, error) {
	job.UpdatedAt = time.Now().UTC()
	return s.store.UpdateJob(ctx, job)
}

func (s *Scheduler) GetJob(ctx context.Context, jobID string) (domain.ScheduledJob, error) {
	return s.store.GetJob(ctx, jobID)
}

func (s *Scheduler) ListJobs(ctx context.Context) ([]domain.ScheduledJob, error) {
	return s.store.ListJobs(ctx)
}

func (s *Scheduler) DeleteJob(ctx context.Context, jobID string) error {
	return s.store.DeleteJob(ctx, jobID)
}

func (s *Scheduler) ListExecutions(ctx context.Context, jobID string) ([]domain.JobExecution, error) {
	return s.store.ListExecutions(ctx, jobID)
}
