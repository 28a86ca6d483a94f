package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

func TestNewIntervalSchedule_RejectsZeroPeriod(t *testing.T) {
	_, err := NewIntervalSchedule(domain.IntervalConfig{}, time.Now())
	require.Error(t, err)
}

func TestIntervalSchedule_FirstFire_ExecuteNow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewIntervalSchedule(domain.IntervalConfig{Hours: 1, ExecuteNow: true}, base)
	require.NoError(t, err)
	assert.Equal(t, base, s.FirstFire())
}

func TestIntervalSchedule_FirstFire_NotExecuteNow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewIntervalSchedule(domain.IntervalConfig{Hours: 1}, base)
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Hour), s.FirstFire())
}

func TestIntervalSchedule_NextFire_StepsFromLaterOfBaseAndAfter(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewIntervalSchedule(domain.IntervalConfig{Minutes: 30}, base)
	require.NoError(t, err)

	// after before base: anchored to base.
	assert.Equal(t, base.Add(30*time.Minute), s.NextFire(base.Add(-time.Hour)))

	// after well past base: anchored to after.
	later := base.Add(5 * time.Hour)
	assert.Equal(t, later.Add(30*time.Minute), s.NextFire(later))
}

func TestEvaluator_FirstFire_IntervalExecuteNowIgnoresStartDate(t *testing.T) {
	e := New()
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	job := domain.ScheduledJob{
		TriggerType:    domain.TriggerTypeInterval,
		IntervalConfig: &domain.IntervalConfig{Seconds: 60, ExecuteNow: true},
		StartDate:      &start,
		CreatedAt:      start,
	}
	first, ok, err := e.FirstFire(job)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, start, first)
}

func TestEvaluator_NextFire_CronRespectsEndDate(t *testing.T) {
	e := New()
	end := time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC)
	job := domain.ScheduledJob{
		TriggerType: domain.TriggerTypeCron,
		CronConfig:  &domain.CronConfig{Minute: "0"},
		EndDate:     &end,
	}
	after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, ok, err := e.NextFire(job, after)
	require.NoError(t, err)
	assert.False(t, ok, "next cron fire at the top of the next hour should exceed end_date")
}
