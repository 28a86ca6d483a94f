package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

type fakeTimeSeriesStore struct {
	written int
	err     error
	calls   int
}

func (f *fakeTimeSeriesStore) Upsert(ctx context.Context, rows domain.MappedRows) (int, error) {
	f.calls++
	return f.written, f.err
}

func TestUpsert_EmptyRowsSkipsStoreCall(t *testing.T) {
	store := &fakeTimeSeriesStore{}
	l := New(store)
	n, err := l.Upsert(context.Background(), domain.MappedRows{Table: domain.TableMarketData})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, store.calls)
}

func TestUpsert_DelegatesAndReturnsCount(t *testing.T) {
	store := &fakeTimeSeriesStore{written: 3}
	l := New(store)
	rows := domain.MappedRows{
		Table:      domain.TableMarketData,
		MarketData: []domain.MarketDataRow{{}, {}, {}},
	}
	n, err := l.Upsert(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, store.calls)
}

func TestUpsert_WrapsStoreError(t *testing.T) {
	store := &fakeTimeSeriesStore{err: errors.New("write failed")}
	l := New(store)
	rows := domain.MappedRows{Table: domain.TableMarketData, MarketData: []domain.MarketDataRow{{}}}
	_, err := l.Upsert(context.Background(), rows)
	require.Error(t, err)
}
