package httpapi

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// jobRequest is the JobCreate/JobUpdate body of spec §6: trigger_config's
// shape depends on trigger_type, so it is decoded as raw JSON and resolved
// against CronConfig or IntervalConfig afterward.
type jobRequest struct {
	JobID                  string          `json:"job_id,omitempty"`
	Symbol                 string          `json:"symbol"`
	AssetType              string          `json:"asset_type"`
	TriggerType            string          `json:"trigger_type"`
	TriggerConfig          json.RawMessage `json:"trigger_config"`
	StartDate              *time.Time      `json:"start_date,omitempty"`
	EndDate                *time.Time      `json:"end_date,omitempty"`
	CollectorKwargs        map[string]string `json:"collector_kwargs,omitempty"`
	AssetMetadata          map[string]string `json:"asset_metadata,omitempty"`
	MaxRetries             *int            `json:"max_retries,omitempty"`
	RetryDelaySeconds      *int            `json:"retry_delay_seconds,omitempty"`
	RetryBackoffMultiplier *float64        `json:"retry_backoff_multiplier,omitempty"`
}

func (req jobRequest) toJob() (domain.ScheduledJob, error) {
	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	job := domain.ScheduledJob{
		JobID:           jobID,
		Symbol:          req.Symbol,
		AssetType:       domain.AssetType(req.AssetType),
		TriggerType:     domain.TriggerType(req.TriggerType),
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		CollectorKwargs: req.CollectorKwargs,
		AssetMetadata:   req.AssetMetadata,
	}
	switch job.TriggerType {
	case domain.TriggerTypeCron:
		var cfg domain.CronConfig
		if len(req.TriggerConfig) > 0 {
			if err := json.Unmarshal(req.TriggerConfig, &cfg); err != nil {
				return domain.ScheduledJob{}, apperrors.Validation("malformed cron trigger_config: " + err.Error())
			}
		}
		job.CronConfig = &cfg
	case domain.TriggerTypeInterval:
		var cfg domain.IntervalConfig
		if len(req.TriggerConfig) > 0 {
			if err := json.Unmarshal(req.TriggerConfig, &cfg); err != nil {
				return domain.ScheduledJob{}, apperrors.Validation("malformed interval trigger_config: " + err.Error())
			}
		}
		job.IntervalConfig = &cfg
	default:
		return domain.ScheduledJob{}, apperrors.Validation("trigger_type must be cron or interval")
	}
	if req.MaxRetries != nil {
		job.MaxRetries = *req.MaxRetries
	}
	if req.RetryDelaySeconds != nil {
		job.RetryDelaySeconds = *req.RetryDelaySeconds
	}
	if req.RetryBackoffMultiplier != nil {
		job.RetryBackoffMultiplier = *req.RetryBackoffMultiplier
	}
	return job, nil
}

// jobResponse renders a ScheduledJob with trigger_config unified back into
// a single field, mirroring the request shape.
type jobResponse struct {
	JobID                  string            `json:"job_id"`
	Symbol                 string            `json:"symbol"`
	AssetType              domain.AssetType  `json:"asset_type"`
	TriggerType            domain.TriggerType `json:"trigger_type"`
	TriggerConfig          interface{}       `json:"trigger_config"`
	StartDate              *time.Time        `json:"start_date,omitempty"`
	EndDate                *time.Time        `json:"end_date,omitempty"`
	CollectorKwargs        map[string]string `json:"collector_kwargs,omitempty"`
	AssetMetadata          map[string]string `json:"asset_metadata,omitempty"`
	Status                 domain.JobStatus  `json:"status"`
	MaxRetries             int               `json:"max_retries"`
	RetryDelaySeconds      int               `json:"retry_delay_seconds"`
	RetryBackoffMultiplier float64           `json:"retry_backoff_multiplier"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
	LastRunAt              *time.Time        `json:"last_run_at,omitempty"`
	NextRunAt              *time.Time        `json:"next_run_at,omitempty"`
}

func renderJob(job domain.ScheduledJob) jobResponse {
	var cfg interface{}
	if job.TriggerType == domain.TriggerTypeCron && job.CronConfig != nil {
		cfg = job.CronConfig
	} else if job.TriggerType == domain.TriggerTypeInterval && job.IntervalConfig != nil {
		cfg = job.IntervalConfig
	}
	return jobResponse{
		JobID:                  job.JobID,
		Symbol:                 job.Symbol,
		AssetType:              job.AssetType,
		TriggerType:            job.TriggerType,
		TriggerConfig:          cfg,
		StartDate:              job.StartDate,
		EndDate:                job.EndDate,
		CollectorKwargs:        job.CollectorKwargs,
		AssetMetadata:          job.AssetMetadata,
		Status:                 job.Status,
		MaxRetries:             job.MaxRetries,
		RetryDelaySeconds:      job.RetryDelaySeconds,
		RetryBackoffMultiplier: job.RetryBackoffMultiplier,
		CreatedAt:              job.CreatedAt,
		UpdatedAt:              job.UpdatedAt,
		LastRunAt:              job.LastRunAt,
		NextRunAt:              job.NextRunAt,
	}
}

func renderJobs(jobs []domain.ScheduledJob) []jobResponse {
	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, renderJob(j))
	}
	return out
}

// executionResponse renders a JobExecution for GET .../executions.
type executionResponse struct {
	ExecutionID     int64                 `json:"execution_id"`
	JobID           string                `json:"job_id"`
	LogID           *int64                `json:"log_id,omitempty"`
	ExecutionStatus domain.ExecutionStatus `json:"execution_status"`
	StartedAt       time.Time             `json:"started_at"`
	CompletedAt     *time.Time            `json:"completed_at,omitempty"`
	ErrorMessage    string                `json:"error_message,omitempty"`
	ErrorCategory   domain.ErrorCategory  `json:"error_category,omitempty"`
	ExecutionTimeMs *int64                `json:"execution_time_ms,omitempty"`
	Attempt         int                   `json:"attempt"`
	CreatedAt       time.Time             `json:"created_at"`
}

func renderExecutions(execs []domain.JobExecution) []executionResponse {
	out := make([]executionResponse, 0, len(execs))
	for _, e := range execs {
		out = append(out, executionResponse{
			ExecutionID: e.ExecutionID, JobID: e.JobID, LogID: e.LogID,
			ExecutionStatus: e.ExecutionStatus, StartedAt: e.StartedAt, CompletedAt: e.CompletedAt,
			ErrorMessage: e.ErrorMessage, ErrorCategory: e.ErrorCategory,
			ExecutionTimeMs: e.ExecutionTimeMs, Attempt: e.Attempt, CreatedAt: e.CreatedAt,
		})
	}
	return out
}

// collectionLogResponse renders a CollectionLog for GET /ingestion/logs.
type collectionLogResponse struct {
	LogID            int64                  `json:"log_id"`
	AssetID          int64                  `json:"asset_id"`
	CollectorType    string                 `json:"collector_type"`
	StartDate        time.Time              `json:"start_date"`
	EndDate          time.Time              `json:"end_date"`
	RecordsCollected int                    `json:"records_collected"`
	Status           domain.CollectionStatus `json:"status"`
	ErrorMessage     string                 `json:"error_message,omitempty"`
	ExecutionTimeMs  *int64                 `json:"execution_time_ms,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

func renderLogs(logs []domain.CollectionLog) []collectionLogResponse {
	out := make([]collectionLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, collectionLogResponse{
			LogID: l.LogID, AssetID: l.AssetID, CollectorType: l.CollectorType,
			StartDate: l.StartDate, EndDate: l.EndDate, RecordsCollected: l.RecordsCollected,
			Status: l.Status, ErrorMessage: l.ErrorMessage, ExecutionTimeMs: l.ExecutionTimeMs,
			CreatedAt: l.CreatedAt,
		})
	}
	return out
}
