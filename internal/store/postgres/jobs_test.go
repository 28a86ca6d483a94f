package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func sampleJob() domain.ScheduledJob {
	now := time.Now().UTC()
	return domain.ScheduledJob{
		JobID:          "job-1",
		Symbol:         "ACME",
		AssetType:      domain.AssetTypeStock,
		TriggerType:    domain.TriggerTypeInterval,
		IntervalConfig: &domain.IntervalConfig{Hours: 1},
		Status:         domain.JobStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestCreateJob_UniqueViolationBecomesConflict(t *testing.T) {
	store, mock := newMockStore(t)
	job := sampleJob()

	mock.ExpectExec("INSERT INTO scheduled_jobs").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateJob(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateJob_Success(t *testing.T) {
	store, mock := newMockStore(t)
	job := sampleJob()

	mock.ExpectExec("INSERT INTO scheduled_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := store.CreateJob(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, job.JobID, created.JobID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJob_NotFoundMapsToApperror(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT job_id, symbol, asset_type").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetJob(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJob_ScansRowIntoScheduledJob(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	cols := []string{
		"job_id", "symbol", "asset_type", "trigger_type", "cron_config", "interval_config",
		"start_date", "end_date", "collector_kwargs", "asset_metadata", "status",
		"max_retries", "retry_delay_seconds", "retry_backoff_multiplier",
		"created_at", "updated_at", "last_run_at", "next_run_at",
	}
	rows := sqlmock.NewRows(cols).AddRow(
		"job-1", "ACME", "stock", "interval", nil, []byte(`{"hours":1}`),
		nil, nil, []byte(`{}`), []byte(`{}`), "active",
		3, 60, 2.0,
		now, now, nil, nil,
	)
	mock.ExpectQuery("SELECT job_id, symbol, asset_type").
		WithArgs("job-1").
		WillReturnRows(rows)

	job, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AssetTypeStock, job.AssetType)
	require.NotNil(t, job.IntervalConfig)
	assert.Equal(t, 1, job.IntervalConfig.Hours)
	assert.Equal(t, domain.JobStatusActive, job.Status)
}

func TestDeleteJob_NoRowsAffectedIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM scheduled_jobs").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteJob(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
}
