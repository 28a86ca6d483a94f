package trigger

import (
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// Evaluator computes next-fire-times for both trigger kinds, honoring
// start_date/end_date uniformly (spec §4.7's "both triggers honor
// start_date and end_date" clause).
type Evaluator struct{}

// New returns an Evaluator. It carries no state: schedules are built fresh
// from each job's trigger_config, which is cheap enough to not warrant a
// cache at this module's scale.
func New() *Evaluator {
	return &Evaluator{}
}

// NextFire returns the smallest fire time strictly after `after` for job,
// or ok=false if the trigger can never fire again (one-shot exhaustion,
// end_date exceeded, or a cron schedule with no further match).
func (e *Evaluator) NextFire(job domain.ScheduledJob, after time.Time) (t time.Time, ok bool, err error) {
	switch job.TriggerType {
	case domain.TriggerTypeCron:
		if job.CronConfig == nil {
			return time.Time{}, false, apperrors.New(domain.ErrorCategoryValidation, "cron trigger missing trigger_config")
		}
		schedule, err := NewCronSchedule(*job.CronConfig)
		if err != nil {
			return time.Time{}, false, err
		}
		effectiveAfter := after
		if job.StartDate != nil && job.StartDate.After(effectiveAfter) {
			effectiveAfter = job.StartDate.Add(-time.Nanosecond)
		}
		next, found := schedule.NextFire(effectiveAfter)
		if !found {
			return time.Time{}, false, nil
		}
		if job.EndDate != nil && next.After(*job.EndDate) {
			return time.Time{}, false, nil
		}
		return next, true, nil

	case domain.TriggerTypeInterval:
		if job.IntervalConfig == nil {
			return time.Time{}, false, apperrors.New(domain.ErrorCategoryValidation, "interval trigger missing trigger_config")
		}
		base := job.CreatedAt
		if job.StartDate != nil {
			base = *job.StartDate
		}
		schedule, err := NewIntervalSchedule(*job.IntervalConfig, base)
		if err != nil {
			return time.Time{}, false, err
		}
		next := schedule.NextFire(after)
		if job.EndDate != nil && next.After(*job.EndDate) {
			return time.Time{}, false, nil
		}
		return next, true, nil

	default:
		return time.Time{}, false, apperrors.New(domain.ErrorCategoryValidation, "unknown trigger type "+string(job.TriggerType))
	}
}

// FirstFire computes the job's very first fire time, honoring
// execute_now for interval triggers (spec §6: "forces immediate first
// fire regardless of start_date").
func (e *Evaluator) FirstFire(job domain.ScheduledJob) (time.Time, bool, error) {
	if job.TriggerType == domain.TriggerTypeInterval && job.IntervalConfig != nil && job.IntervalConfig.ExecuteNow {
		schedule, err := NewIntervalSchedule(*job.IntervalConfig, job.CreatedAt)
		if err != nil {
			return time.Time{}, false, err
		}
		first := schedule.FirstFire()
		if job.EndDate != nil && first.After(*job.EndDate) {
			return time.Time{}, false, nil
		}
		return first, true, nil
	}
	anchor := job.CreatedAt
	if job.StartDate != nil && job.StartDate.After(anchor) {
		anchor = *job.StartDate
	}
	return e.NextFire(job, anchor.Add(-time.Nanosecond))
}
