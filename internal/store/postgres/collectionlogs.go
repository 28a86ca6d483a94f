package postgres

import (
	"context"
	"database/sql"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// CreateCollectionLog implements store.CollectionLogStore.
func (s *Store) CreateCollectionLog(ctx context.Context, log domain.CollectionLog) (domain.CollectionLog, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO collection_logs (
			asset_id, collector_type, start_date, end_date, records_collected,
			status, error_message, execution_time_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING log_id, created_at
	`, log.AssetID, log.CollectorType, log.StartDate, log.EndDate, log.RecordsCollected,
		string(log.Status), log.ErrorMessage, log.ExecutionTimeMs)
	if err := row.Scan(&log.LogID, &log.CreatedAt); err != nil {
		return domain.CollectionLog{}, apperrors.Wrap(domain.ErrorCategoryPersistence, "insert collection_logs", err)
	}
	return log, nil
}

// ListCollectionLogs implements store.CollectionLogStore, newest-first.
func (s *Store) ListCollectionLogs(ctx context.Context, limit int) ([]domain.CollectionLog, error) {
	query := `
		SELECT log_id, asset_id, collector_type, start_date, end_date, records_collected,
			status, error_message, execution_time_ms, created_at
		FROM collection_logs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "list collection_logs", err)
	}
	defer rows.Close()

	var out []domain.CollectionLog
	for rows.Next() {
		var (
			l          domain.CollectionLog
			status     string
			execTimeMs sql.NullInt64
		)
		if err := rows.Scan(&l.LogID, &l.AssetID, &l.CollectorType, &l.StartDate, &l.EndDate,
			&l.RecordsCollected, &status, &l.ErrorMessage, &execTimeMs, &l.CreatedAt); err != nil {
			return nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "scan collection_logs row", err)
		}
		l.Status = domain.CollectionStatus(status)
		if execTimeMs.Valid {
			ms := execTimeMs.Int64
			l.ExecutionTimeMs = &ms
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(domain.ErrorCategoryPersistence, "iterate collection_logs", err)
	}
	return out, nil
}
