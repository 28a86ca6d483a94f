package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

func TestGetOrCreateAsset_InsertsWhenAbsent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT asset_id, symbol, asset_type, metadata").
		WithArgs("ACME", "stock").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO assets").
		WillReturnRows(sqlmock.NewRows([]string{"asset_id"}).AddRow(int64(9)))

	asset, err := store.GetOrCreateAsset(context.Background(), "ACME", domain.AssetTypeStock, map[string]string{"exchange": "NYSE"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), asset.ID)
	assert.Equal(t, "ACME", asset.Symbol)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateAsset_MergesMetadataWhenExisting(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	existingCols := []string{"asset_id", "symbol", "asset_type", "metadata", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT asset_id, symbol, asset_type, metadata").
		WithArgs("ACME", "stock").
		WillReturnRows(sqlmock.NewRows(existingCols).AddRow(int64(9), "ACME", "stock", []byte(`{"exchange":"NYSE"}`), now, now))
	mock.ExpectExec("UPDATE assets SET metadata").
		WillReturnResult(sqlmock.NewResult(0, 1))

	asset, err := store.GetOrCreateAsset(context.Background(), "ACME", domain.AssetTypeStock, map[string]string{"sector": "tech"})
	require.NoError(t, err)
	assert.Equal(t, "NYSE", asset.Metadata["exchange"])
	assert.Equal(t, "tech", asset.Metadata["sector"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAsset_NotFoundMapsToApperror(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT asset_id, symbol, asset_type, metadata").
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetAsset(context.Background(), 404)
	require.Error(t, err)
}

func TestMaxTime_ReturnsFalseWhenNoRows(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT max\\(time\\) FROM market_data").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	_, ok, err := store.MaxTime(context.Background(), 1, domain.TableMarketData)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMaxTime_ReturnsLatestTimestamp(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT max\\(time\\) FROM market_data").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(now))

	max, ok, err := store.MaxTime(context.Background(), 1, domain.TableMarketData)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.WithinDuration(t, now, max, time.Second)
}
