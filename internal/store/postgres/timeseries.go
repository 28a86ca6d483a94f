package postgres

import (
	"context"
	"database/sql"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// Upsert implements store.TimeSeriesStore: rows are written in a single
// transaction per call, primary key (asset_id, time), overwrite on
// conflict.
func (s *Store) Upsert(ctx context.Context, rows domain.MappedRows) (int, error) {
	if rows.Len() == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.Wrap(domain.ErrorCategoryPersistence, "begin upsert transaction", err)
	}
	defer tx.Rollback()

	written := 0
	switch rows.Table {
	case domain.TableMarketData:
		for _, r := range rows.MarketData {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO market_data (time, asset_id, open, high, low, close, volume)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (asset_id, time) DO UPDATE SET
					open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
					close = EXCLUDED.close, volume = EXCLUDED.volume
			`, r.Time, r.AssetID, r.Open, r.High, r.Low, r.Close, nullableFloat(r.Volume)); err != nil {
				return 0, apperrors.Wrap(domain.ErrorCategoryPersistence, "upsert market_data row", err)
			}
			written++
		}
	case domain.TableForexRates, domain.TableBondRates:
		table := targetTableName(rows.Table)
		for _, r := range rows.Rates {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO `+table+` (time, asset_id, rate)
				VALUES ($1, $2, $3)
				ON CONFLICT (asset_id, time) DO UPDATE SET rate = EXCLUDED.rate
			`, r.Time, r.AssetID, r.Rate); err != nil {
				return 0, apperrors.Wrap(domain.ErrorCategoryPersistence, "upsert "+table+" row", err)
			}
			written++
		}
	case domain.TableEconomicData:
		for _, r := range rows.EconomicData {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO economic_data (time, asset_id, value)
				VALUES ($1, $2, $3)
				ON CONFLICT (asset_id, time) DO UPDATE SET value = EXCLUDED.value
			`, r.Time, r.AssetID, r.Value); err != nil {
				return 0, apperrors.Wrap(domain.ErrorCategoryPersistence, "upsert economic_data row", err)
			}
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Wrap(domain.ErrorCategoryPersistence, "commit upsert transaction", err)
	}
	return written, nil
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
