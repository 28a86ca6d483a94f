package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-collective/tsdata-scheduler/internal/assets"
	"github.com/r3e-collective/tsdata-scheduler/internal/collector"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
	"github.com/r3e-collective/tsdata-scheduler/internal/eventbus"
	"github.com/r3e-collective/tsdata-scheduler/internal/incremental"
	"github.com/r3e-collective/tsdata-scheduler/internal/ingestion"
	"github.com/r3e-collective/tsdata-scheduler/internal/loader"
	"github.com/r3e-collective/tsdata-scheduler/internal/logging"
	"github.com/r3e-collective/tsdata-scheduler/internal/metrics"
	"github.com/r3e-collective/tsdata-scheduler/internal/ratelimit"
	"github.com/r3e-collective/tsdata-scheduler/internal/store/memory"
	"github.com/r3e-collective/tsdata-scheduler/internal/trigger"
)

// fakeCollector always returns one OHLCV row, unless failTimes calls are
// requested to fail first.
type fakeCollector struct {
	failTimes int
	calls     int
}

func (f *fakeCollector) Collect(ctx context.Context, symbol string, start, end time.Time, kwargs map[string]string) ([]domain.CollectedRow, error) {
	f.calls++
	if f.calls <= f.failTimes {
		return nil, errRetriable{}
	}
	return []domain.CollectedRow{{
		Time:    start,
		Columns: map[string]float64{"open": 1, "high": 2, "low": 0.5, "close": 1.5},
	}}, nil
}

func (f *fakeCollector) Search(ctx context.Context, query string, limit int) ([]collector.SearchResult, error) {
	return nil, nil
}
func (f *fakeCollector) ValidateParams(kwargs map[string]string) error { return nil }
func (f *fakeCollector) Options() []collector.Option                   { return nil }
func (f *fakeCollector) Metadata() collector.Metadata {
	return collector.Metadata{AssetType: domain.AssetTypeStock, Name: "stock", TargetTable: domain.TableMarketData}
}

type errRetriable struct{}

func (errRetriable) Error() string { return "upstream unavailable" }

func newTestScheduler(t *testing.T, coll collector.Collector) (*Scheduler, *memory.Store) {
	t.Helper()
	st := memory.New()
	limiters := ratelimit.NewRegistry()
	collectors := collector.NewRegistry(map[domain.AssetType]collector.Collector{domain.AssetTypeStock: coll})
	assetMgr := assets.New(st)
	tracker := incremental.New(st)
	ld := loader.New(st)
	engine := ingestion.New(assetMgr, tracker, limiters, collectors, ld, st)
	evaluator := trigger.New()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	bus := eventbus.New()
	log := logging.NewDefault("test")

	sched := New(st, engine, evaluator, m, bus, log, Config{
		TickInterval:   10 * time.Millisecond,
		WorkerPoolSize: 4,
		ShutdownGrace:  time.Second,
		DefaultTimeout: 5 * time.Second,
	})
	return sched, st
}

func TestCreateJob_ExecuteNowIntervalBecomesActiveWithNextRunAt(t *testing.T) {
	sched, _ := newTestScheduler(t, &fakeCollector{})
	ctx := context.Background()

	job := domain.ScheduledJob{
		JobID:          "job-1",
		Symbol:         "ACME",
		AssetType:      domain.AssetTypeStock,
		TriggerType:    domain.TriggerTypeInterval,
		IntervalConfig: &domain.IntervalConfig{Seconds: 1, ExecuteNow: true},
	}
	created, err := sched.CreateJob(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusActive, created.Status)
	require.NotNil(t, created.NextRunAt)
}

func TestCreateJob_RejectsUnknownAssetType(t *testing.T) {
	sched, _ := newTestScheduler(t, &fakeCollector{})
	_, err := sched.CreateJob(context.Background(), domain.ScheduledJob{
		JobID:       "job-2",
		AssetType:   domain.AssetType("not_a_real_type"),
		TriggerType: domain.TriggerTypeInterval,
		IntervalConfig: &domain.IntervalConfig{Seconds: 1},
	})
	require.Error(t, err)
}

func TestTrigger_RunsJobAndRecordsSuccessfulExecution(t *testing.T) {
	sched, st := newTestScheduler(t, &fakeCollector{})
	ctx := context.Background()

	_, err := sched.CreateJob(ctx, domain.ScheduledJob{
		JobID:          "job-3",
		Symbol:         "ACME",
		AssetType:      domain.AssetTypeStock,
		TriggerType:    domain.TriggerTypeInterval,
		IntervalConfig: &domain.IntervalConfig{Hours: 1},
	})
	require.NoError(t, err)

	require.NoError(t, sched.Trigger(ctx, "job-3"))

	assert.Eventually(t, func() bool {
		execs, err := st.ListExecutions(ctx, "job-3")
		return err == nil && len(execs) == 1 && execs[0].ExecutionStatus == domain.ExecutionStatusCompleted
	}, time.Second, 10*time.Millisecond)
}

func TestTrigger_UnknownJobReturnsError(t *testing.T) {
	sched, _ := newTestScheduler(t, &fakeCollector{})
	err := sched.Trigger(context.Background(), "does-not-exist")
	require.Error(t, err)
}

func TestPauseThenResume_SkipsMissedFiresRatherThanCatchingUp(t *testing.T) {
	sched, _ := newTestScheduler(t, &fakeCollector{})
	ctx := context.Background()

	created, err := sched.CreateJob(ctx, domain.ScheduledJob{
		JobID:          "job-4",
		Symbol:         "ACME",
		AssetType:      domain.AssetTypeStock,
		TriggerType:    domain.TriggerTypeInterval,
		IntervalConfig: &domain.IntervalConfig{Seconds: 1},
	})
	require.NoError(t, err)
	originalNext := *created.NextRunAt

	paused, err := sched.Pause(ctx, "job-4")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPaused, paused.Status)
	assert.Nil(t, paused.NextRunAt)

	time.Sleep(20 * time.Millisecond)
	resumed, err := sched.Resume(ctx, "job-4")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusActive, resumed.Status)
	require.NotNil(t, resumed.NextRunAt)
	assert.True(t, resumed.NextRunAt.After(originalNext),
		"resume must recompute from now, not replay the pre-pause schedule")
}
