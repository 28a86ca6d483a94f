package domain

import "time"

// ExecutionStatus is the lifecycle state of a single JobExecution attempt.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusRetrying  ExecutionStatus = "retrying"
)

// ErrorCategory classifies a failed attempt for retry policy and metrics,
// per spec §4.6.
type ErrorCategory string

const (
	ErrorCategoryRateLimit     ErrorCategory = "rate_limit"
	ErrorCategoryAPI           ErrorCategory = "api"
	ErrorCategoryValidation    ErrorCategory = "validation"
	ErrorCategoryConfiguration ErrorCategory = "configuration"
	ErrorCategoryMapping       ErrorCategory = "mapping"
	ErrorCategoryPersistence   ErrorCategory = "persistence"
	ErrorCategoryUnknown       ErrorCategory = "unknown"
)

// Retriable reports whether the spec's failure table marks this category
// as retriable.
func (c ErrorCategory) Retriable() bool {
	switch c {
	case ErrorCategoryRateLimit, ErrorCategoryAPI, ErrorCategoryPersistence, ErrorCategoryUnknown:
		return true
	default:
		return false
	}
}

// JobExecution is one attempt to run a scheduled job. Retries produce
// distinct rows, never mutated after reaching a terminal status.
type JobExecution struct {
	ExecutionID     int64
	JobID           string
	LogID           *int64
	ExecutionStatus ExecutionStatus
	StartedAt       time.Time
	CompletedAt     *time.Time
	ErrorMessage    string
	ErrorCategory   ErrorCategory
	ExecutionTimeMs *int64
	Attempt         int
	CreatedAt       time.Time
}

// CollectionStatus is the outcome of one actual upstream collector call.
type CollectionStatus string

const (
	CollectionStatusSuccess CollectionStatus = "success"
	CollectionStatusPartial CollectionStatus = "partial"
	CollectionStatusEmpty   CollectionStatus = "empty"
	CollectionStatusFailed  CollectionStatus = "failed"
)

// CollectionLog records one ingest attempt against a collector and its
// outcome. Besides actual upstream fetches, one is also written when the
// incremental tracker finds nothing left to fetch, when the tracker fails,
// and when the rate-limit wait is canceled.
type CollectionLog struct {
	LogID             int64
	AssetID           int64
	CollectorType     string
	StartDate         time.Time
	EndDate           time.Time
	RecordsCollected  int
	Status            CollectionStatus
	ErrorMessage      string
	ExecutionTimeMs   *int64
	CreatedAt         time.Time
}
