package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

func sampleExecution() domain.JobExecution {
	return domain.JobExecution{
		JobID:           "job-1",
		ExecutionStatus: domain.ExecutionStatusRunning,
		StartedAt:       time.Now().UTC(),
		Attempt:         1,
		CreatedAt:       time.Now().UTC(),
	}
}

func TestCreateExecution_ScansGeneratedID(t *testing.T) {
	store, mock := newMockStore(t)
	exec := sampleExecution()

	mock.ExpectQuery("INSERT INTO job_executions").
		WillReturnRows(sqlmock.NewRows([]string{"execution_id"}).AddRow(int64(7)))

	created, err := store.CreateExecution(context.Background(), exec)
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ExecutionID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateExecution_Success(t *testing.T) {
	store, mock := newMockStore(t)
	exec := sampleExecution()
	exec.ExecutionID = 7
	exec.ExecutionStatus = domain.ExecutionStatusCompleted

	mock.ExpectExec("UPDATE job_executions SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := store.UpdateExecution(context.Background(), exec)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListExecutions_ScansMultipleRows(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	cols := []string{
		"execution_id", "job_id", "log_id", "execution_status", "started_at", "completed_at",
		"error_message", "error_category", "execution_time_ms", "attempt", "created_at",
	}
	rows := sqlmock.NewRows(cols).
		AddRow(int64(2), "job-1", nil, "completed", now, now, "", "", int64(120), 1, now).
		AddRow(int64(1), "job-1", nil, "failed", now, nil, "timeout", "api", nil, 1, now)

	mock.ExpectQuery("SELECT execution_id, job_id, log_id").
		WithArgs("job-1").
		WillReturnRows(rows)

	execs, err := store.ListExecutions(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, execs, 2)
	assert.Equal(t, domain.ExecutionStatusCompleted, execs[0].ExecutionStatus)
	require.NotNil(t, execs[0].ExecutionTimeMs)
	assert.Equal(t, int64(120), *execs[0].ExecutionTimeMs)
	assert.Equal(t, domain.ExecutionStatusFailed, execs[1].ExecutionStatus)
	assert.Nil(t, execs[1].CompletedAt)
}

func TestListRunningOlderThan_FiltersByStatusAndCutoff(t *testing.T) {
	store, mock := newMockStore(t)
	cutoff := time.Now().UTC()
	cols := []string{
		"execution_id", "job_id", "log_id", "execution_status", "started_at", "completed_at",
		"error_message", "error_category", "execution_time_ms", "attempt", "created_at",
	}
	rows := sqlmock.NewRows(cols).AddRow(int64(3), "job-2", nil, "running", cutoff.Add(-time.Hour), nil, "", "", nil, 1, cutoff)

	mock.ExpectQuery("SELECT execution_id, job_id, log_id").
		WithArgs(string(domain.ExecutionStatusRunning), cutoff).
		WillReturnRows(rows)

	execs, err := store.ListRunningOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, "job-2", execs[0].JobID)
}
