package trigger

import (
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// IntervalSchedule is a parsed, ready-to-evaluate fixed-period trigger.
type IntervalSchedule struct {
	period     time.Duration
	executeNow bool
	base       time.Time
}

// NewIntervalSchedule validates cfg (the sum of its fields must be > 0,
// per spec §4.7) and anchors the schedule to base — the job's start_date
// if set, else its created_at.
func NewIntervalSchedule(cfg domain.IntervalConfig, base time.Time) (*IntervalSchedule, error) {
	period := time.Duration(cfg.Weeks)*7*24*time.Hour +
		time.Duration(cfg.Days)*24*time.Hour +
		time.Duration(cfg.Hours)*time.Hour +
		time.Duration(cfg.Minutes)*time.Minute +
		time.Duration(cfg.Seconds)*time.Second
	if period <= 0 {
		return nil, apperrors.New(domain.ErrorCategoryValidation, "interval trigger period must be greater than zero")
	}
	return &IntervalSchedule{period: period, executeNow: cfg.ExecuteNow, base: base.UTC()}, nil
}

// NextFire returns max(base, after) + period, per spec §4.7. execute_now
// is handled by the caller (job registration), not here. The result is one
// period after the later of base and after; it is not aligned to
// base + N*period.
func (s *IntervalSchedule) NextFire(after time.Time) time.Time {
	after = after.UTC()
	anchor := s.base
	if after.After(anchor) {
		anchor = after
	}
	return anchor.Add(s.period)
}

// FirstFire returns the schedule's first fire time: base itself if
// execute_now is set, else base + period.
func (s *IntervalSchedule) FirstFire() time.Time {
	if s.executeNow {
		return s.base
	}
	return s.base.Add(s.period)
}
