// Package assets implements the Asset Manager (spec §4.4): idempotent
// resolution of (symbol, asset_type) to a durable asset_id.
package assets

import (
	"context"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// Store is the subset of store.AssetStore the manager needs.
type Store interface {
	GetOrCreateAsset(ctx context.Context, symbol string, assetType domain.AssetType, metadata map[string]string) (domain.Asset, error)
}

// Manager resolves assets, creating them on first reference.
type Manager struct {
	store Store
}

// New returns a Manager backed by store.
func New(store Store) *Manager {
	return &Manager{store: store}
}

// GetOrCreate upserts by (symbol, asset_type); metadata keys are merged
// into any existing record, new keys added and existing keys overwritten.
// An unknown asset type is a validation-category error; a store error that
// already carries a category is returned as is, and any other store error
// is wrapped as a persistence-category error.
func (m *Manager) GetOrCreate(ctx context.Context, symbol string, assetType domain.AssetType, metadata map[string]string) (domain.Asset, error) {
	if !assetType.Valid() {
		return domain.Asset{}, apperrors.New(domain.ErrorCategoryValidation, "unknown asset type "+string(assetType))
	}
	asset, err := m.store.GetOrCreateAsset(ctx, symbol, assetType, metadata)
	if err != nil {
		if apperrors.Categorized(err) != nil {
			return domain.Asset{}, err
		}
		return domain.Asset{}, apperrors.Wrap(domain.ErrorCategoryPersistence, "resolve asset", err)
	}
	return asset, nil
}
