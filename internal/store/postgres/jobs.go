package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// CreateJob implements store.JobStore.
func (s *Store) CreateJob(ctx context.Context, job domain.ScheduledJob) (domain.ScheduledJob, error) {
	cronJSON, intervalJSON, kwargsJSON, metaJSON, err := marshalJobColumns(job)
	if err != nil {
		return domain.ScheduledJob{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scheduled_jobs (
			job_id, symbol, asset_type, trigger_type, cron_config, interval_config,
			start_date, end_date, collector_kwargs, asset_metadata, status,
			max_retries, retry_delay_seconds, retry_backoff_multiplier,
			created_at, updated_at, last_run_at, next_run_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, job.JobID, job.Symbol, string(job.AssetType), string(job.TriggerType), cronJSON, intervalJSON,
		nullTime(job.StartDate), nullTime(job.EndDate), kwargsJSON, metaJSON, string(job.Status),
		job.MaxRetries, job.RetryDelaySeconds, job.RetryBackoffMultiplier,
		job.CreatedAt, job.UpdatedAt, nullTime(job.LastRunAt), nullTime(job.NextRunAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ScheduledJob{}, apperrors.Conflict("job_id already exists: " + job.JobID)
		}
		return domain.ScheduledJob{}, apperrors.Wrap(domain.ErrorCategoryPersistence, "insert scheduled_jobs", err)
	}
	return job, nil
}

// UpdateJob implements store.JobStore.
func (s *Store) UpdateJob(ctx context.Context, job domain.ScheduledJob) (domain.ScheduledJob, error) {
	cronJSON, intervalJSON, kwargsJSON, metaJSON, err := marshalJobColumns(job)
	if err != nil {
		return domain.ScheduledJob{}, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_jobs SET
			symbol = $2, asset_type = $3, trigger_type = $4, cron_config = $5, interval_config = $6,
			start_date = $7, end_date = $8, collector_kwargs = $9, asset_metadata = $10, status = $11,
			max_retries = $12, retry_delay_seconds = $13, retry_backoff_multiplier = $14,
			updated_at = $15, last_run_at = $16, next_run_at = $17
		WHERE job_id = $1
	`, job.JobID, job.Symbol, string(job.AssetType), string(job.TriggerType), cronJSON, intervalJSON,
		nullTime(job.StartDate), nullTime(job.EndDate), kwargsJSON, metaJSON, string(job.Status),
		job.MaxRetries, job.RetryDelaySeconds, job.RetryBackoffMultiplier,
		job.UpdatedAt, nullTime(job.LastRunAt), nullTime(job.NextRunAt))
	if err != nil {
		return domain.ScheduledJob{}, apperrors.Wrap(domain.ErrorCategoryPersistence, "update scheduled_jobs", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ScheduledJob{}, apperrors.NotFound("job", job.JobID)
	}
	return job, nil
}

// GetJob implements store.JobStore.
func (s *Store) GetJob(ctx context.Context, jobID string) (domain.ScheduledJob, error) {
	row := s.db.QueryRowContext(ctx, jobSelectQuery+` WHERE job_id = $1`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ScheduledJob{}, apperrors.NotFound("job", jobID)
	}
	if err != nil {
		return domain.ScheduledJob{}, apperrors.Wrap(domain.ErrorCategoryPersistence, "get scheduled_jobs", err)
	}
	return job, nil
}

// ListJobs implements store.JobStore.
func (s *Store) ListJobs(ctx context.Context) ([]domain.ScheduledJob, error) {
	rows, err := s.db.QueryContext(ctx, jobSelectQuery+` ORDER BY job_id`)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "list scheduled_jobs", err)
	}
	defer rows.Close()
	return scanJobRows(rows)
}

// ListJobsByStatus implements store.JobStore.
func (s *Store) ListJobsByStatus(ctx context.Context, statuses ...domain.JobStatus) ([]domain.ScheduledJob, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	strs := make([]string, len(statuses))
	for i, st := range statuses {
		strs[i] = string(st)
	}
	rows, err := s.db.QueryContext(ctx, jobSelectQuery+` WHERE status = ANY($1) ORDER BY job_id`, strs)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "list scheduled_jobs by status", err)
	}
	defer rows.Close()
	return scanJobRows(rows)
}

// ListDueJobs implements store.JobStore.
func (s *Store) ListDueJobs(ctx context.Context, asOf time.Time) ([]domain.ScheduledJob, error) {
	rows, err := s.db.QueryContext(ctx, jobSelectQuery+`
		WHERE status = $1 AND next_run_at IS NOT NULL AND next_run_at <= $2
		ORDER BY job_id
	`, string(domain.JobStatusActive), asOf)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "list due jobs", err)
	}
	defer rows.Close()
	return scanJobRows(rows)
}

// DeleteJob implements store.JobStore.
func (s *Store) DeleteJob(ctx context.Context, jobID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE job_id = $1`, jobID)
	if err != nil {
		return apperrors.Wrap(domain.ErrorCategoryPersistence, "delete scheduled_jobs", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("job", jobID)
	}
	return nil
}

const jobSelectQuery = `
	SELECT job_id, symbol, asset_type, trigger_type, cron_config, interval_config,
		start_date, end_date, collector_kwargs, asset_metadata, status,
		max_retries, retry_delay_seconds, retry_backoff_multiplier,
		created_at, updated_at, last_run_at, next_run_at
	FROM scheduled_jobs`

func marshalJobColumns(job domain.ScheduledJob) (cronJSON, intervalJSON, kwargsJSON, metaJSON []byte, err error) {
	if job.CronConfig != nil {
		if cronJSON, err = json.Marshal(job.CronConfig); err != nil {
			return nil, nil, nil, nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "marshal cron_config", err)
		}
	}
	if job.IntervalConfig != nil {
		if intervalJSON, err = json.Marshal(job.IntervalConfig); err != nil {
			return nil, nil, nil, nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "marshal interval_config", err)
		}
	}
	if kwargsJSON, err = json.Marshal(job.CollectorKwargs); err != nil {
		return nil, nil, nil, nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "marshal collector_kwargs", err)
	}
	if metaJSON, err = json.Marshal(job.AssetMetadata); err != nil {
		return nil, nil, nil, nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "marshal asset_metadata", err)
	}
	return cronJSON, intervalJSON, kwargsJSON, metaJSON, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (domain.ScheduledJob, error) {
	var (
		j                                    domain.ScheduledJob
		assetType, triggerType, status       string
		cronRaw, intervalRaw, kwargsRaw, metaRaw []byte
		startDate, endDate, lastRunAt, nextRunAt sql.NullTime
	)
	err := row.Scan(
		&j.JobID, &j.Symbol, &assetType, &triggerType, &cronRaw, &intervalRaw,
		&startDate, &endDate, &kwargsRaw, &metaRaw, &status,
		&j.MaxRetries, &j.RetryDelaySeconds, &j.RetryBackoffMultiplier,
		&j.CreatedAt, &j.UpdatedAt, &lastRunAt, &nextRunAt,
	)
	if err != nil {
		return domain.ScheduledJob{}, err
	}
	j.AssetType = domain.AssetType(assetType)
	j.TriggerType = domain.TriggerType(triggerType)
	j.Status = domain.JobStatus(status)
	if len(cronRaw) > 0 {
		var cc domain.CronConfig
		if err := json.Unmarshal(cronRaw, &cc); err == nil {
			j.CronConfig = &cc
		}
	}
	if len(intervalRaw) > 0 {
		var ic domain.IntervalConfig
		if err := json.Unmarshal(intervalRaw, &ic); err == nil {
			j.IntervalConfig = &ic
		}
	}
	_ = json.Unmarshal(kwargsRaw, &j.CollectorKwargs)
	_ = json.Unmarshal(metaRaw, &j.AssetMetadata)
	if startDate.Valid {
		j.StartDate = &startDate.Time
	}
	if endDate.Valid {
		j.EndDate = &endDate.Time
	}
	if lastRunAt.Valid {
		j.LastRunAt = &lastRunAt.Time
	}
	if nextRunAt.Valid {
		j.NextRunAt = &nextRunAt.Time
	}
	return j, nil
}

func scanJobRows(rows *sql.Rows) ([]domain.ScheduledJob, error) {
	var out []domain.ScheduledJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "scan scheduled_jobs row", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "iterate scheduled_jobs", err)
	}
	return out, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// uniqueViolation is Postgres's SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
