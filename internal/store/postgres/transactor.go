package postgres

import (
	"context"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// RecordAttemptOutcome implements store.SchedulerTransactor: the execution's
// terminal state and the parent job's next schedule are written in one
// transaction, so a crash between them can never leave a job stuck with
// a completed-looking execution but a stale next_run_at, or vice versa.
func (s *Store) RecordAttemptOutcome(ctx context.Context, exec domain.JobExecution, job domain.ScheduledJob) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(domain.ErrorCategoryPersistence, "begin attempt-outcome transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE job_executions SET
			execution_status = $2, completed_at = $3, error_message = $4,
			error_category = $5, execution_time_ms = $6, log_id = $7
		WHERE execution_id = $1
	`, exec.ExecutionID, string(exec.ExecutionStatus), nullTime(exec.CompletedAt),
		exec.ErrorMessage, string(exec.ErrorCategory), exec.ExecutionTimeMs, exec.LogID); err != nil {
		return apperrors.Wrap(domain.ErrorCategoryPersistence, "update job_executions", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE scheduled_jobs SET
			status = $2, updated_at = $3, last_run_at = $4, next_run_at = $5
		WHERE job_id = $1
	`, job.JobID, string(job.Status), job.UpdatedAt, nullTime(job.LastRunAt), nullTime(job.NextRunAt)); err != nil {
		return apperrors.Wrap(domain.ErrorCategoryPersistence, "update scheduled_jobs", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(domain.ErrorCategoryPersistence, "commit attempt-outcome transaction", err)
	}
	return nil
}
