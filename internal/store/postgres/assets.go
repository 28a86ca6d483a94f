package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// GetOrCreateAsset implements store.AssetStore: upsert by (symbol,
// asset_type), merging metadata into any existing row.
func (s *Store) GetOrCreateAsset(ctx context.Context, symbol string, assetType domain.AssetType, metadata map[string]string) (domain.Asset, error) {
	existing, err := s.getAssetByKey(ctx, symbol, assetType)
	if err == nil {
		merged := existing.Metadata
		if merged == nil {
			merged = make(map[string]string)
		}
		for k, v := range metadata {
			merged[k] = v
		}
		existing.Metadata = merged
		existing.UpdatedAt = time.Now().UTC()
		return s.updateAssetMetadata(ctx, existing)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Asset{}, apperrors.Wrap(domain.ErrorCategoryPersistence, "look up asset", err)
	}

	now := time.Now().UTC()
	metaJSON, jerr := json.Marshal(metadata)
	if jerr != nil {
		return domain.Asset{}, apperrors.Wrap(domain.ErrorCategoryPersistence, "marshal asset metadata", jerr)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO assets (symbol, asset_type, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol, asset_type) DO UPDATE SET metadata = assets.metadata
		RETURNING asset_id
	`, symbol, string(assetType), metaJSON, now, now)

	var id int64
	if err := row.Scan(&id); err != nil {
		return domain.Asset{}, apperrors.Wrap(domain.ErrorCategoryPersistence, "insert asset", err)
	}
	return domain.Asset{ID: id, Symbol: symbol, AssetType: assetType, Metadata: metadata, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *Store) getAssetByKey(ctx context.Context, symbol string, assetType domain.AssetType) (domain.Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT asset_id, symbol, asset_type, metadata, created_at, updated_at
		FROM assets WHERE symbol = $1 AND asset_type = $2
	`, symbol, string(assetType))
	return scanAsset(row)
}

func (s *Store) updateAssetMetadata(ctx context.Context, a domain.Asset) (domain.Asset, error) {
	metaJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return domain.Asset{}, apperrors.Wrap(domain.ErrorCategoryPersistence, "marshal asset metadata", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE assets SET metadata = $2, updated_at = $3 WHERE asset_id = $1
	`, a.ID, metaJSON, a.UpdatedAt)
	if err != nil {
		return domain.Asset{}, apperrors.Wrap(domain.ErrorCategoryPersistence, "update asset metadata", err)
	}
	return a, nil
}

// GetAsset implements store.AssetStore.
func (s *Store) GetAsset(ctx context.Context, id int64) (domain.Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT asset_id, symbol, asset_type, metadata, created_at, updated_at
		FROM assets WHERE asset_id = $1
	`, id)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Asset{}, apperrors.NotFound("asset", "")
	}
	if err != nil {
		return domain.Asset{}, apperrors.Wrap(domain.ErrorCategoryPersistence, "get asset", err)
	}
	return a, nil
}

func scanAsset(row *sql.Row) (domain.Asset, error) {
	var (
		a        domain.Asset
		assetType string
		metaRaw  []byte
	)
	if err := row.Scan(&a.ID, &a.Symbol, &assetType, &metaRaw, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return domain.Asset{}, err
	}
	a.AssetType = domain.AssetType(assetType)
	if len(metaRaw) > 0 {
		_ = json.Unmarshal(metaRaw, &a.Metadata)
	}
	return a, nil
}

// targetTableName maps a TargetTable to its hypertable name. All four are
// 1:1 with domain.TargetTable's own string values by construction.
func targetTableName(t domain.TargetTable) string { return string(t) }

// MaxTime implements store.AssetStore, backing the Incremental Tracker.
func (s *Store) MaxTime(ctx context.Context, assetID int64, table domain.TargetTable) (time.Time, bool, error) {
	query := `SELECT max(time) FROM ` + targetTableName(table) + ` WHERE asset_id = $1`
	row := s.db.QueryRowContext(ctx, query, assetID)
	var max sql.NullTime
	if err := row.Scan(&max); err != nil {
		return time.Time{}, false, apperrors.Wrap(domain.ErrorCategoryPersistence, "query max time", err)
	}
	if !max.Valid {
		return time.Time{}, false, nil
	}
	return max.Time, true, nil
}
