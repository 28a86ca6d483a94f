package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

func TestRecordAttemptOutcome_CommitsBothUpdatesInOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE job_executions SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE scheduled_jobs SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	exec := sampleExecution()
	exec.ExecutionStatus = domain.ExecutionStatusCompleted
	job := sampleJob()
	job.Status = domain.JobStatusActive

	err := store.RecordAttemptOutcome(context.Background(), exec, job)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAttemptOutcome_RollsBackWhenSecondUpdateFails(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE job_executions SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE scheduled_jobs SET").WillReturnError(assertErr{})
	mock.ExpectRollback()

	exec := sampleExecution()
	job := sampleJob()

	err := store.RecordAttemptOutcome(context.Background(), exec, job)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
