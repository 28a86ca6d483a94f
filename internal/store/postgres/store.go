// Package postgres implements store.Store against PostgreSQL via
// database/sql and github.com/lib/pq, the way internal/app/storage/postgres
// does it in the wider codebase this module grew out of: raw SQL, JSON
// metadata columns, upsert-then-check-affected. Job surrogate ids
// (job_id) are client- or API-layer-assigned strings, not generated here.
package postgres

import (
	"context"
	"database/sql"

	"github.com/r3e-collective/tsdata-scheduler/internal/store"
)

// Store implements store.Store backed by a *sql.DB.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New creates a Store using the provided database handle. The caller owns
// the handle's lifecycle (pool sizing, Close).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}
