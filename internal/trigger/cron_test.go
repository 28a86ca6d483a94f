package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

func TestNewCronSchedule_DailyAtHourDefaultsMinuteSecondToZero(t *testing.T) {
	s, err := NewCronSchedule(domain.CronConfig{Hour: "9"})
	require.NoError(t, err)

	after := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) // a Tuesday
	next, ok := s.NextFire(after)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), next,
		"setting only hour must yield a once-daily fire at minute/second 0, not hourly")
}

func TestNewCronSchedule_OnlySecondSetFiresEveryMinute(t *testing.T) {
	s, err := NewCronSchedule(domain.CronConfig{Second: "30"})
	require.NoError(t, err)

	after := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	next, ok := s.NextFire(after)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 30, 0, time.UTC), next)
}

func TestIsoWeekday_MondayIsZero(t *testing.T) {
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, isoWeekday(monday))
	assert.Equal(t, 6, isoWeekday(sunday))
}

func TestParseField_StepExpression(t *testing.T) {
	f, err := parseField("minute", "*/15", 0, 59)
	require.NoError(t, err)
	assert.True(t, f.matches(0))
	assert.True(t, f.matches(15))
	assert.True(t, f.matches(45))
	assert.False(t, f.matches(20))
}

func TestParseField_OutOfRangeRejected(t *testing.T) {
	_, err := parseField("hour", "24", 0, 23)
	require.Error(t, err)
}

func TestNewCronSchedule_DayOfWeekConstrainsFire(t *testing.T) {
	// Every day at 00:00, constrained to Fridays (ISO day_of_week 4).
	s, err := NewCronSchedule(domain.CronConfig{Hour: "0", DayOfWeek: "4"})
	require.NoError(t, err)

	after := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC) // Monday
	next, ok := s.NextFire(after)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC), next) // following Friday
	assert.Equal(t, time.Friday, next.Weekday())
}
