// Package trigger implements the Trigger Evaluator (spec §4.7): cron and
// interval next-fire-time computation, including the field-wise cron
// parser the design notes single out as "the most bug-prone piece."
package trigger

import (
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// precision tiers for cron-field defaulting: lower number is coarser.
// week and day_of_week are constraint fields alongside day, not part of
// the primary cascade, and always default to unconstrained.
const (
	precYear = iota
	precMonth
	precDay
	precHour
	precMinute
	precSecond
)

// resolvedCron is a CronConfig with every field filled in per the
// defaulting rule of spec §4.7: fields coarser than the smallest
// explicitly-set field default to "*"; fields finer default to their
// minimum valid value; second always defaults to "0" regardless.
//
// This follows the convention of the scheduler this field set is modeled
// on (APScheduler's CronTrigger): an explicitly set "hour" alone yields a
// daily trigger at that hour, not an hourly one, because minute/second
// default to 0 rather than "*". When nothing at all is set, the reference
// point is treated as "hour" — the conventional daily-at-midnight default.
func resolveCron(cfg domain.CronConfig) domain.CronConfig {
	type setField struct {
		expr *string
		prec int
	}
	primary := []setField{
		{&cfg.Year, precYear},
		{&cfg.Month, precMonth},
		{&cfg.Day, precDay},
		{&cfg.Hour, precHour},
		{&cfg.Minute, precMinute},
		{&cfg.Second, precSecond},
	}

	minSet := -1
	for _, f := range primary {
		if *f.expr != "" {
			if minSet == -1 || f.prec < minSet {
				minSet = f.prec
			}
		}
	}
	if minSet == -1 {
		minSet = precHour
	}

	minimums := map[int]string{precMonth: "1", precDay: "1", precHour: "0", precMinute: "0", precSecond: "0"}
	for _, f := range primary {
		if *f.expr != "" {
			continue
		}
		switch {
		case f.prec == precSecond:
			*f.expr = "0"
		case f.prec < minSet:
			*f.expr = "*"
		default:
			if v, ok := minimums[f.prec]; ok {
				*f.expr = v
			} else {
				*f.expr = "*"
			}
		}
	}

	if cfg.Week == "" {
		cfg.Week = "*"
	}
	if cfg.DayOfWeek == "" {
		cfg.DayOfWeek = "*"
	}
	return cfg
}

// CronSchedule is a parsed, ready-to-evaluate cron trigger.
type CronSchedule struct {
	year, month, day, week, dayOfWeek, hour, minute, second field
}

// NewCronSchedule parses cfg, applying spec §4.7's defaulting rule to
// unset fields first.
func NewCronSchedule(cfg domain.CronConfig) (*CronSchedule, error) {
	cfg = resolveCron(cfg)

	var s CronSchedule
	var err error
	if s.year, err = parseField("year", cfg.Year, 1970, 9999); err != nil {
		return nil, err
	}
	if s.month, err = parseField("month", cfg.Month, 1, 12); err != nil {
		return nil, err
	}
	if s.day, err = parseField("day", cfg.Day, 1, 31); err != nil {
		return nil, err
	}
	if s.week, err = parseField("week", cfg.Week, 1, 53); err != nil {
		return nil, err
	}
	if s.dayOfWeek, err = parseField("day_of_week", cfg.DayOfWeek, 0, 6); err != nil {
		return nil, err
	}
	if s.hour, err = parseField("hour", cfg.Hour, 0, 23); err != nil {
		return nil, err
	}
	if s.minute, err = parseField("minute", cfg.Minute, 0, 59); err != nil {
		return nil, err
	}
	if s.second, err = parseField("second", cfg.Second, 0, 59); err != nil {
		return nil, err
	}
	return &s, nil
}

// isoWeekday returns the Monday=0..Sunday=6 weekday number matching
// APScheduler's day_of_week convention, versus Go's Weekday (Sunday=0).
func isoWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func (s *CronSchedule) dayMatches(t time.Time) bool {
	if !s.day.matches(t.Day()) {
		return false
	}
	if !s.dayOfWeek.matches(isoWeekday(t)) {
		return false
	}
	_, isoWeek := t.ISOWeek()
	return s.week.matches(isoWeek)
}

// maxSearchYears bounds how far into the future NextFire will search
// before concluding a schedule can never fire again (e.g. Feb 31).
const maxSearchYears = 10

// NextFire returns the smallest UTC time strictly greater than after that
// matches every field, per spec §4.7. ok is false if no such time exists
// within the search bound — in practice, only genuinely impossible
// combinations (day 31 in a month-locked-to-February schedule) or a
// year field whose every allowed value has already passed.
func (s *CronSchedule) NextFire(after time.Time) (time.Time, bool) {
	t := after.UTC().Truncate(time.Second).Add(time.Second)
	limitYear := t.Year() + maxSearchYears

	for iterations := 0; iterations < 500000; iterations++ {
		if t.Year() > limitYear {
			return time.Time{}, false
		}
		if !s.year.matches(t.Year()) {
			ny, ok := s.year.ceil(t.Year())
			if !ok {
				return time.Time{}, false
			}
			t = time.Date(ny, 1, 1, 0, 0, 0, 0, time.UTC)
			continue
		}
		if !s.month.matches(int(t.Month())) {
			nm, ok := s.month.ceil(int(t.Month()))
			if !ok {
				t = time.Date(t.Year()+1, 1, 1, 0, 0, 0, 0, time.UTC)
				continue
			}
			t = time.Date(t.Year(), time.Month(nm), 1, 0, 0, 0, 0, time.UTC)
			continue
		}
		if !s.dayMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
			continue
		}
		if !s.hour.matches(t.Hour()) {
			nh, ok := s.hour.ceil(t.Hour())
			if !ok {
				t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
				continue
			}
			t = time.Date(t.Year(), t.Month(), t.Day(), nh, 0, 0, 0, time.UTC)
			continue
		}
		if !s.minute.matches(t.Minute()) {
			nmin, ok := s.minute.ceil(t.Minute())
			if !ok {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, time.UTC)
				continue
			}
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), nmin, 0, 0, time.UTC)
			continue
		}
		if !s.second.matches(t.Second()) {
			ns, ok := s.second.ceil(t.Second())
			if !ok {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()+1, 0, 0, time.UTC)
				continue
			}
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), ns, 0, time.UTC)
			continue
		}
		return t, true
	}
	return time.Time{}, false
}
