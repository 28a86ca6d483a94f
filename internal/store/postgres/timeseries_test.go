package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

func TestUpsert_EmptyRowsSkipsTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	n, err := store.Upsert(context.Background(), domain.MappedRows{Table: domain.TableMarketData})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_MarketDataRowsCommitInOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO market_data").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO market_data").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rows := domain.MappedRows{
		Table: domain.TableMarketData,
		MarketData: []domain.MarketDataRow{
			{Time: now, AssetID: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5},
			{Time: now.Add(time.Hour), AssetID: 1, Open: 1.5, High: 2.5, Low: 1, Close: 2},
		},
	}
	n, err := store.Upsert(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_RollsBackOnRowError(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO forex_rates").WillReturnError(assertErr{})
	mock.ExpectRollback()

	rows := domain.MappedRows{
		Table: domain.TableForexRates,
		Rates: []domain.RateRow{{Time: now, AssetID: 1, Rate: 1.1}},
	}
	_, err := store.Upsert(context.Background(), rows)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

type assertErr struct{}

func (assertErr) Error() string { return "write failed" }
