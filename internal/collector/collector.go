// Package collector defines the pluggable per-asset-type data source
// contract (spec §4.6, §9 design note: "closed variant set behind a
// Collector capability"), and a small registry dispatching by asset_type.
package collector

import (
	"context"
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// Option describes one tunable parameter a collector accepts, surfaced at
// GET /collectors/{asset_type}/options.
type Option struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     string `json:"default,omitempty"`
}

// SearchResult is one symbol match returned by Search.
type SearchResult struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Metadata describes a collector for GET /collectors/metadata.
type Metadata struct {
	AssetType   domain.AssetType `json:"asset_type"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	TargetTable domain.TargetTable `json:"target_table"`
}

// Collector is the closed capability set every asset-type implementation
// provides: collect, search, validate_params, options, metadata.
type Collector interface {
	// Collect fetches rows for symbol in [start, end). kwargs is the
	// job's collector_kwargs passthrough. Errors returned here are
	// classified by the caller (internal/ingestion) into the spec §4.6
	// failure taxonomy via apperrors.CategorizedError; a collector that
	// wants a specific category should return one directly.
	Collect(ctx context.Context, symbol string, start, end time.Time, kwargs map[string]string) ([]domain.CollectedRow, error)
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	ValidateParams(kwargs map[string]string) error
	Options() []Option
	Metadata() Metadata
}

// Registry dispatches an asset_type to its Collector implementation. Unlike
// ratelimit.Registry, this is populated once at startup, not lazily.
type Registry struct {
	collectors map[domain.AssetType]Collector
}

// NewRegistry builds a Registry from the given asset-type → collector map.
func NewRegistry(collectors map[domain.AssetType]Collector) *Registry {
	return &Registry{collectors: collectors}
}

// Lookup returns the collector for assetType, and false if none is
// registered — the ingestion engine must not crash on this, only record a
// failed outcome with collector_type "Unknown".
func (r *Registry) Lookup(assetType domain.AssetType) (Collector, bool) {
	c, ok := r.collectors[assetType]
	return c, ok
}

// All returns every registered collector's Metadata, for
// GET /collectors/metadata.
func (r *Registry) All() []Metadata {
	out := make([]Metadata, 0, len(r.collectors))
	for _, c := range r.collectors {
		out = append(out, c.Metadata())
	}
	return out
}
