// Package ingestion implements the Ingestion Engine (spec §4.6): the
// end-to-end single run that resolves an asset, narrows its window,
// invokes a collector under rate limit, maps, loads, and records the
// outcome.
package ingestion

import (
	"context"
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/assets"
	"github.com/r3e-collective/tsdata-scheduler/internal/collector"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
	"github.com/r3e-collective/tsdata-scheduler/internal/incremental"
	"github.com/r3e-collective/tsdata-scheduler/internal/loader"
	"github.com/r3e-collective/tsdata-scheduler/internal/mapper"
	"github.com/r3e-collective/tsdata-scheduler/internal/ratelimit"
)

// UnknownCollectorType is recorded when asset_type has no registered
// collector, per spec §4.6 step 2 and the testable property for unknown
// asset types.
const UnknownCollectorType = "Unknown"

// defaultWindow is the fallback lookback from the effective end whenever
// start is omitted.
const defaultWindow = 24 * time.Hour

// Outcome is the result of one ingest call.
type Outcome struct {
	Status           domain.CollectionStatus
	RecordsCollected int
	ExecutionTimeMs  int64
	CollectorType    string
	ErrorCategory    domain.ErrorCategory
	ErrorMessage     string
	CollectionLog    *domain.CollectionLog
}

// Failed reports whether the outcome represents a failure.
func (o Outcome) Failed() bool { return o.Status == domain.CollectionStatusFailed }

// CollectionLogStore is the subset of store.CollectionLogStore the engine
// needs.
type CollectionLogStore interface {
	CreateCollectionLog(ctx context.Context, log domain.CollectionLog) (domain.CollectionLog, error)
}

// Engine wires together the Asset Manager, Incremental Tracker, Rate
// Limiter Registry, Collector Registry, Schema Mapper, and Data Loader
// into the single `ingest` operation.
type Engine struct {
	assetManager *assets.Manager
	tracker      *incremental.Tracker
	limiters     *ratelimit.Registry
	collectors   *collector.Registry
	loader       *loader.Loader
	logs         CollectionLogStore
}

// New wires an Engine from its collaborators.
func New(assetManager *assets.Manager, tracker *incremental.Tracker, limiters *ratelimit.Registry, collectors *collector.Registry, ld *loader.Loader, logs CollectionLogStore) *Engine {
	return &Engine{
		assetManager: assetManager,
		tracker:      tracker,
		limiters:     limiters,
		collectors:   collectors,
		loader:       ld,
		logs:         logs,
	}
}

// Ingest runs the algorithm of spec §4.6 steps 1-8.
func (e *Engine) Ingest(ctx context.Context, symbol string, assetType domain.AssetType, start, end *time.Time, collectorKwargs, metadata map[string]string) Outcome {
	started := time.Now()

	// Step 1: resolve asset. Failure here returns without a CollectionLog.
	asset, err := e.assetManager.GetOrCreate(ctx, symbol, assetType, metadata)
	if err != nil {
		return errOutcome(err, UnknownCollectorType)
	}

	// Step 2: look up collector by asset_type. Must not crash on unknown.
	coll, ok := e.collectors.Lookup(assetType)
	if !ok {
		outcome := errOutcome(apperrors.New(domain.ErrorCategoryValidation, "no collector registered for asset type "+string(assetType)), UnknownCollectorType)
		return outcome
	}
	collectorType := coll.Metadata().Name

	// Step 3: compute effective window fresh on every call.
	effEnd := time.Now().UTC()
	if end != nil {
		effEnd = end.UTC()
	}
	effStart := effEnd.Add(-defaultWindow)
	if start != nil {
		effStart = start.UTC()
	}

	targetTable := coll.Metadata().TargetTable

	// Step 4: narrow via incremental tracker.
	window, err := e.tracker.Narrow(ctx, asset.ID, targetTable, effStart, effEnd)
	if err != nil {
		return e.logAndReturn(ctx, asset.ID, collectorType, effStart, effEnd, started,
			errOutcome(err, collectorType))
	}
	if window.Empty() {
		return e.logAndReturn(ctx, asset.ID, collectorType, effStart, effEnd, started, Outcome{
			Status:           domain.CollectionStatusEmpty,
			RecordsCollected: 0,
			CollectorType:    collectorType,
			ExecutionTimeMs:  time.Since(started).Milliseconds(),
		})
	}

	// Step 5: acquire rate-limit slot for the collector class.
	if err := e.limiters.Get(collectorType).Wait(ctx); err != nil {
		return e.logAndReturn(ctx, asset.ID, collectorType, window.Start, window.End, started,
			errOutcome(apperrors.Wrap(domain.ErrorCategoryAPI, "rate limiter wait canceled", err), collectorType))
	}

	// Step 6: invoke the collector.
	rows, err := coll.Collect(ctx, symbol, window.Start, window.End, collectorKwargs)
	if err != nil {
		return e.logAndReturn(ctx, asset.ID, collectorType, window.Start, window.End, started,
			errOutcome(err, collectorType))
	}

	// Step 7: map and load.
	mapped, err := mapper.Map(assetType, asset.ID, rows)
	if err != nil {
		return e.logAndReturn(ctx, asset.ID, collectorType, window.Start, window.End, started,
			errOutcome(err, collectorType))
	}
	written, err := e.loader.Upsert(ctx, mapped)
	if err != nil {
		return e.logAndReturn(ctx, asset.ID, collectorType, window.Start, window.End, started,
			errOutcome(err, collectorType))
	}

	// Step 8: record success/empty outcome.
	status := domain.CollectionStatusSuccess
	if written == 0 {
		status = domain.CollectionStatusEmpty
	}
	return e.logAndReturn(ctx, asset.ID, collectorType, window.Start, window.End, started, Outcome{
		Status:           status,
		RecordsCollected: written,
		CollectorType:    collectorType,
		ExecutionTimeMs:  time.Since(started).Milliseconds(),
	})
}

func errOutcome(err error, collectorType string) Outcome {
	ce := apperrors.Categorized(err)
	category := domain.ErrorCategoryUnknown
	message := err.Error()
	if ce != nil {
		category = ce.Category
		message = ce.Message
	}
	return Outcome{
		Status:        domain.CollectionStatusFailed,
		CollectorType: collectorType,
		ErrorCategory: category,
		ErrorMessage:  message,
	}
}

// logAndReturn writes a CollectionLog for every outcome that reached this
// point — i.e., every call where the collector class and window were
// resolved, matching spec §4.6 step 4's "still write a CollectionLog with
// status=empty" and step 8's unconditional logging. Asset-resolution and
// unknown-collector failures bypass this, matching step 1/2's "without a
// CollectionLog" rule.
func (e *Engine) logAndReturn(ctx context.Context, assetID int64, collectorType string, start, end time.Time, started time.Time, outcome Outcome) Outcome {
	elapsed := time.Since(started).Milliseconds()
	outcome.ExecutionTimeMs = elapsed

	status := domain.CollectionStatusFailed
	switch outcome.Status {
	case domain.CollectionStatusSuccess, domain.CollectionStatusEmpty, domain.CollectionStatusPartial:
		status = outcome.Status
	}

	log := domain.CollectionLog{
		AssetID:          assetID,
		CollectorType:    collectorType,
		StartDate:        start,
		EndDate:          end,
		RecordsCollected: outcome.RecordsCollected,
		Status:           status,
		ErrorMessage:     outcome.ErrorMessage,
		ExecutionTimeMs:  &elapsed,
	}
	written, err := e.logs.CreateCollectionLog(ctx, log)
	if err == nil {
		outcome.CollectionLog = &written
	}
	return outcome
}
