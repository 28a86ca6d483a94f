package incremental

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

type fakeMaxTimeStore struct {
	maxTime time.Time
	ok      bool
	err     error
}

func (f *fakeMaxTimeStore) MaxTime(ctx context.Context, assetID int64, table domain.TargetTable) (time.Time, bool, error) {
	return f.maxTime, f.ok, f.err
}

func TestNarrow_NoPriorDataReturnsFullWindow(t *testing.T) {
	tracker := New(&fakeMaxTimeStore{ok: false})
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	w, err := tracker.Narrow(context.Background(), 1, domain.TableMarketData, start, end)
	require.NoError(t, err)
	assert.Equal(t, start, w.Start)
	assert.Equal(t, end, w.End)
	assert.False(t, w.Empty())
}

func TestNarrow_TrailingGapOnlyStartsJustAfterMaxTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	maxTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	tracker := New(&fakeMaxTimeStore{ok: true, maxTime: maxTime})
	w, err := tracker.Narrow(context.Background(), 1, domain.TableMarketData, start, end)
	require.NoError(t, err)
	assert.Equal(t, maxTime.Add(time.Nanosecond), w.Start)
	assert.Equal(t, end, w.End)
}

func TestNarrow_FullyCoveredReturnsEmptyWindow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	maxTime := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)

	tracker := New(&fakeMaxTimeStore{ok: true, maxTime: maxTime})
	w, err := tracker.Narrow(context.Background(), 1, domain.TableMarketData, start, end)
	require.NoError(t, err)
	assert.True(t, w.Empty())
}

func TestNarrow_NeverWidensBeforeRequestedStart_LeadingGapNotBackfilled(t *testing.T) {
	requestedStart := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	maxTime := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) // persisted coverage has a leading gap before requestedStart

	tracker := New(&fakeMaxTimeStore{ok: true, maxTime: maxTime})
	w, err := tracker.Narrow(context.Background(), 1, domain.TableMarketData, requestedStart, end)
	require.NoError(t, err)
	assert.Equal(t, requestedStart, w.Start, "narrowed window must not reach back before the requested start to fill the leading gap")
	assert.Equal(t, end, w.End)
}

func TestNarrow_PropagatesStoreError(t *testing.T) {
	tracker := New(&fakeMaxTimeStore{err: assertErr{}})
	_, err := tracker.Narrow(context.Background(), 1, domain.TableMarketData, time.Now(), time.Now())
	require.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "store unavailable" }
