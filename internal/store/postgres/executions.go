package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// CreateExecution implements store.ExecutionStore.
func (s *Store) CreateExecution(ctx context.Context, exec domain.JobExecution) (domain.JobExecution, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO job_executions (
			job_id, log_id, execution_status, started_at, completed_at,
			error_message, error_category, execution_time_ms, attempt, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING execution_id
	`, exec.JobID, exec.LogID, string(exec.ExecutionStatus), exec.StartedAt, nullTime(exec.CompletedAt),
		exec.ErrorMessage, string(exec.ErrorCategory), exec.ExecutionTimeMs, exec.Attempt, exec.CreatedAt)
	if err := row.Scan(&exec.ExecutionID); err != nil {
		return domain.JobExecution{}, apperrors.Wrap(domain.ErrorCategoryPersistence, "insert job_executions", err)
	}
	return exec, nil
}

// UpdateExecution implements store.ExecutionStore.
func (s *Store) UpdateExecution(ctx context.Context, exec domain.JobExecution) (domain.JobExecution, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE job_executions SET
			execution_status = $2, completed_at = $3, error_message = $4,
			error_category = $5, execution_time_ms = $6, log_id = $7
		WHERE execution_id = $1
	`, exec.ExecutionID, string(exec.ExecutionStatus), nullTime(exec.CompletedAt),
		exec.ErrorMessage, string(exec.ErrorCategory), exec.ExecutionTimeMs, exec.LogID)
	if err != nil {
		return domain.JobExecution{}, apperrors.Wrap(domain.ErrorCategoryPersistence, "update job_executions", err)
	}
	return exec, nil
}

// ListExecutions implements store.ExecutionStore, newest-first per §6.
func (s *Store) ListExecutions(ctx context.Context, jobID string) ([]domain.JobExecution, error) {
	rows, err := s.db.QueryContext(ctx, executionSelectQuery+`
		WHERE job_id = $1 ORDER BY started_at DESC
	`, jobID)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "list job_executions", err)
	}
	defer rows.Close()
	return scanExecutionRows(rows)
}

// ListRunningOlderThan implements store.ExecutionStore, backing restart
// recovery in the scheduler.
func (s *Store) ListRunningOlderThan(ctx context.Context, cutoff time.Time) ([]domain.JobExecution, error) {
	rows, err := s.db.QueryContext(ctx, executionSelectQuery+`
		WHERE execution_status = $1 AND started_at < $2
	`, string(domain.ExecutionStatusRunning), cutoff)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "list abandoned job_executions", err)
	}
	defer rows.Close()
	return scanExecutionRows(rows)
}

const executionSelectQuery = `
	SELECT execution_id, job_id, log_id, execution_status, started_at, completed_at,
		error_message, error_category, execution_time_ms, attempt, created_at
	FROM job_executions`

func scanExecution(row rowScanner) (domain.JobExecution, error) {
	var (
		e               domain.JobExecution
		status, errCat  string
		logID           sql.NullInt64
		completedAt     sql.NullTime
		execTimeMs      sql.NullInt64
	)
	err := row.Scan(
		&e.ExecutionID, &e.JobID, &logID, &status, &e.StartedAt, &completedAt,
		&e.ErrorMessage, &errCat, &execTimeMs, &e.Attempt, &e.CreatedAt,
	)
	if err != nil {
		return domain.JobExecution{}, err
	}
	e.ExecutionStatus = domain.ExecutionStatus(status)
	e.ErrorCategory = domain.ErrorCategory(errCat)
	if logID.Valid {
		id := logID.Int64
		e.LogID = &id
	}
	if completedAt.Valid {
		e.CompletedAt = &completedAt.Time
	}
	if execTimeMs.Valid {
		ms := execTimeMs.Int64
		e.ExecutionTimeMs = &ms
	}
	return e, nil
}

func scanExecutionRows(rows *sql.Rows) ([]domain.JobExecution, error) {
	var out []domain.JobExecution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "scan job_executions row", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "iterate job_executions", err)
	}
	return out, nil
}
