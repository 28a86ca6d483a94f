package domain

import "time"

// TriggerType selects between the two trigger kinds of spec §4.7.
type TriggerType string

const (
	TriggerTypeCron     TriggerType = "cron"
	TriggerTypeInterval TriggerType = "interval"
)

// JobStatus is the lifecycle state of a ScheduledJob.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusActive    JobStatus = "active"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// CronConfig is the field-wise cron configuration of spec §4.7. Every field
// is optional; unset fields fall back to cron defaulting rules in package
// trigger.
type CronConfig struct {
	Year      string `json:"year,omitempty"`
	Month     string `json:"month,omitempty"`
	Day       string `json:"day,omitempty"`
	Week      string `json:"week,omitempty"`
	DayOfWeek string `json:"day_of_week,omitempty"`
	Hour      string `json:"hour,omitempty"`
	Minute    string `json:"minute,omitempty"`
	Second    string `json:"second,omitempty"`
}

// IntervalConfig is the fixed-period trigger configuration of spec §4.7.
type IntervalConfig struct {
	Weeks      int  `json:"weeks,omitempty"`
	Days       int  `json:"days,omitempty"`
	Hours      int  `json:"hours,omitempty"`
	Minutes    int  `json:"minutes,omitempty"`
	Seconds    int  `json:"seconds,omitempty"`
	ExecuteNow bool `json:"execute_now,omitempty"`
}

// ScheduledJob is a durable job definition: what to collect, on what
// schedule, and with what retry policy.
type ScheduledJob struct {
	JobID                 string
	Symbol                string
	AssetType             AssetType
	TriggerType           TriggerType
	CronConfig            *CronConfig
	IntervalConfig        *IntervalConfig
	StartDate             *time.Time
	EndDate               *time.Time
	CollectorKwargs       map[string]string
	AssetMetadata         map[string]string
	Status                JobStatus
	MaxRetries            int
	RetryDelaySeconds     int
	RetryBackoffMultiplier float64
	CreatedAt             time.Time
	UpdatedAt             time.Time
	LastRunAt             *time.Time
	NextRunAt             *time.Time
}

// DefaultMaxRetries and friends mirror spec §3's stated defaults.
const (
	DefaultMaxRetries             = 3
	DefaultRetryDelaySeconds      = 60
	DefaultRetryBackoffMultiplier = 2.0
)

// ApplyDefaults fills zero-valued retry/backoff fields with spec defaults.
func (j *ScheduledJob) ApplyDefaults() {
	if j.MaxRetries == 0 {
		j.MaxRetries = DefaultMaxRetries
	}
	if j.RetryDelaySeconds == 0 {
		j.RetryDelaySeconds = DefaultRetryDelaySeconds
	}
	if j.RetryBackoffMultiplier == 0 {
		j.RetryBackoffMultiplier = DefaultRetryBackoffMultiplier
	}
}

// OneShot reports whether the job's trigger cannot fire more than once more
// after reaching its configured end: an interval trigger with an EndDate.
// Cron triggers always report false, even when their fields or end date
// leave no further fire time.
func (j *ScheduledJob) OneShot() bool {
	if j.TriggerType == TriggerTypeInterval {
		return j.EndDate != nil
	}
	return false
}
