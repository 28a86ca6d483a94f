package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

func TestMap_EmptyRowsYieldsEmptyMappedRowsNoError(t *testing.T) {
	out, err := Map(domain.AssetTypeStock, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TableMarketData, out.Table)
	assert.Equal(t, 0, out.Len())
}

func TestMap_StockRowToMarketData(t *testing.T) {
	now := time.Now().UTC()
	rows := []domain.CollectedRow{{
		Time:    now,
		Columns: map[string]float64{"open": 1, "high": 2, "low": 0.5, "close": 1.5, "volume": 100},
	}}
	out, err := Map(domain.AssetTypeStock, 42, rows)
	require.NoError(t, err)
	require.Len(t, out.MarketData, 1)
	assert.Equal(t, int64(42), out.MarketData[0].AssetID)
	require.NotNil(t, out.MarketData[0].Volume)
	assert.Equal(t, 100.0, *out.MarketData[0].Volume)
}

func TestMap_StockRowMissingRequiredColumnFails(t *testing.T) {
	rows := []domain.CollectedRow{{Time: time.Now(), Columns: map[string]float64{"open": 1}}}
	_, err := Map(domain.AssetTypeStock, 1, rows)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorCategoryMapping, apperrors.CategoryOf(err))
}

func TestMap_ForexRowAcceptsValueColumn(t *testing.T) {
	rows := []domain.CollectedRow{{Time: time.Now(), Columns: map[string]float64{"value": 1.1}}}
	out, err := Map(domain.AssetTypeForex, 1, rows)
	require.NoError(t, err)
	require.Len(t, out.Rates, 1)
	assert.Equal(t, 1.1, out.Rates[0].Rate)
}

func TestMap_EconomicRowRequiresValueColumn(t *testing.T) {
	rows := []domain.CollectedRow{{Time: time.Now(), Columns: map[string]float64{"open": 1}}}
	_, err := Map(domain.AssetTypeEconomicIndicator, 1, rows)
	require.Error(t, err)
}

func TestMap_UnknownAssetTypeFails(t *testing.T) {
	_, err := Map(domain.AssetType("unknown"), 1, nil)
	require.Error(t, err)
}
