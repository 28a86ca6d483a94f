// Package store defines the persistence contract the scheduling engine
// depends on, following the one-interface-per-concern shape the wider
// codebase this project grew out of uses for its storage layer. Two
// implementations exist: internal/store/postgres (durable) and
// internal/store/memory (tests, and a dependency-free dev mode).
package store

import (
	"context"
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// AssetStore backs the Asset Manager (spec §4.4).
type AssetStore interface {
	// GetOrCreateAsset resolves (symbol, assetType) to an asset, creating
	// it on first sight. Metadata is merged into any existing record.
	GetOrCreateAsset(ctx context.Context, symbol string, assetType domain.AssetType, metadata map[string]string) (domain.Asset, error)
	GetAsset(ctx context.Context, id int64) (domain.Asset, error)

	// MaxTime returns the latest persisted timestamp for asset/table, and
	// ok=false if no rows exist yet. Backs the Incremental Tracker (§4.3).
	MaxTime(ctx context.Context, assetID int64, table domain.TargetTable) (t time.Time, ok bool, err error)
}

// TimeSeriesStore backs the Data Loader (spec §4.5).
type TimeSeriesStore interface {
	// Upsert persists mapped rows with (asset_id, time) primary-key
	// upsert semantics, in a single transaction, returning the number of
	// rows written.
	Upsert(ctx context.Context, rows domain.MappedRows) (int, error)
}

// JobStore backs the Persistent Scheduler's durable job registry (§4.8)
// and the API Surface's CRUD endpoints (§6).
type JobStore interface {
	CreateJob(ctx context.Context, job domain.ScheduledJob) (domain.ScheduledJob, error)
	UpdateJob(ctx context.Context, job domain.ScheduledJob) (domain.ScheduledJob, error)
	GetJob(ctx context.Context, jobID string) (domain.ScheduledJob, error)
	ListJobs(ctx context.Context) ([]domain.ScheduledJob, error)
	// ListJobsByStatus returns jobs whose status is one of statuses, used
	// on startup to reload active/pending/paused jobs.
	ListJobsByStatus(ctx context.Context, statuses ...domain.JobStatus) ([]domain.ScheduledJob, error)
	// ListDueJobs returns active jobs with next_run_at <= asOf.
	ListDueJobs(ctx context.Context, asOf time.Time) ([]domain.ScheduledJob, error)
	DeleteJob(ctx context.Context, jobID string) error
}

// ExecutionStore backs JobExecution bookkeeping (§3, §4.8).
type ExecutionStore interface {
	CreateExecution(ctx context.Context, exec domain.JobExecution) (domain.JobExecution, error)
	UpdateExecution(ctx context.Context, exec domain.JobExecution) (domain.JobExecution, error)
	ListExecutions(ctx context.Context, jobID string) ([]domain.JobExecution, error)
	// ListRunningOlderThan backs restart recovery (§7): executions still
	// "running" whose started_at predates the cutoff are abandoned.
	ListRunningOlderThan(ctx context.Context, cutoff time.Time) ([]domain.JobExecution, error)
}

// CollectionLogStore backs CollectionLog bookkeeping (§3, §4.6).
type CollectionLogStore interface {
	CreateCollectionLog(ctx context.Context, log domain.CollectionLog) (domain.CollectionLog, error)
	ListCollectionLogs(ctx context.Context, limit int) ([]domain.CollectionLog, error)
}

// SchedulerTransactor provides the atomic per-job state transition spec §5
// requires: "durable state transitions (execution insert, job
// status/next_run_at update) are atomic per job via a single transaction."
type SchedulerTransactor interface {
	// RecordAttemptOutcome updates exec and job together, atomically.
	RecordAttemptOutcome(ctx context.Context, exec domain.JobExecution, job domain.ScheduledJob) error
}

// Store is the full persistence surface the application wires together.
// Implementations may satisfy it with one backing connection (postgres) or
// a handful of protected maps (memory).
type Store interface {
	AssetStore
	TimeSeriesStore
	JobStore
	ExecutionStore
	CollectionLogStore
	SchedulerTransactor
}
