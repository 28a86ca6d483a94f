// Package loader implements the Data Loader (spec §4.5): persisting mapped
// rows with upsert-on-primary-key semantics.
package loader

import (
	"context"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// Store is the subset of store.TimeSeriesStore the loader needs.
type Store interface {
	Upsert(ctx context.Context, rows domain.MappedRows) (int, error)
}

// Loader upserts mapped rows into the target time-series table.
type Loader struct {
	store Store
}

// New returns a Loader backed by store.
func New(store Store) *Loader {
	return &Loader{store: store}
}

// Upsert writes rows in a single transaction, primary key (asset_id, time),
// overwriting on conflict, and returns the number of rows written.
func (l *Loader) Upsert(ctx context.Context, rows domain.MappedRows) (int, error) {
	if rows.Len() == 0 {
		return 0, nil
	}
	n, err := l.store.Upsert(ctx, rows)
	if err != nil {
		return 0, apperrors.Wrap(domain.ErrorCategoryPersistence, "upsert rows", err)
	}
	return n, nil
}
