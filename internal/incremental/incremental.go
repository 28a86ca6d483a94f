// Package incremental implements the Incremental Tracker (spec §4.3):
// trailing-gap-only narrowing of a requested date window against what has
// already been persisted for an asset.
package incremental

import (
	"context"
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// epsilon is the smallest increment added to the last persisted timestamp
// so the narrowed window never re-requests an already-covered point.
const epsilon = time.Nanosecond

// MaxTimeStore is the subset of store.AssetStore the tracker needs.
type MaxTimeStore interface {
	MaxTime(ctx context.Context, assetID int64, table domain.TargetTable) (time.Time, bool, error)
}

// Tracker narrows requested windows against persisted coverage.
type Tracker struct {
	store MaxTimeStore
}

// New returns a Tracker backed by store.
func New(store MaxTimeStore) *Tracker {
	return &Tracker{store: store}
}

// Narrow returns the smallest sub-interval of [start, end] not already
// covered by persisted rows for assetID in table. Only the trailing gap is
// considered: if the persisted max(time) already reaches or exceeds end,
// the result is empty (Empty() reports true); leading gaps are never
// auto-filled, per spec §4.3 and design note on historical backfill.
func (t *Tracker) Narrow(ctx context.Context, assetID int64, table domain.TargetTable, start, end time.Time) (Window, error) {
	maxTime, ok, err := t.store.MaxTime(ctx, assetID, table)
	if err != nil {
		return Window{}, err
	}
	if !ok {
		return Window{Start: start, End: end}, nil
	}
	if !maxTime.Before(end) {
		return Window{}, nil
	}
	narrowedStart := maxTime.Add(epsilon)
	if narrowedStart.Before(start) {
		narrowedStart = start
	}
	return Window{Start: narrowedStart, End: end}, nil
}

// Window is a [Start, End) date range. The zero value is empty.
type Window struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether the window carries no work to do.
func (w Window) Empty() bool {
	return w.Start.IsZero() && w.End.IsZero()
}
