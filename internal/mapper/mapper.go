// Package mapper implements the Schema Mapper (spec §4.2): turning a
// collector's tabular, column-named output into canonical rows for one of
// the four time-series target tables.
package mapper

import (
	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// Map transforms rows collected for assetType/assetID into MappedRows for
// the corresponding target table. An empty rows slice yields an empty
// MappedRows, never an error. Missing required columns fail with a
// mapping-category *apperrors.CategorizedError.
func Map(assetType domain.AssetType, assetID int64, rows []domain.CollectedRow) (domain.MappedRows, error) {
	table, err := targetTable(assetType)
	if err != nil {
		return domain.MappedRows{}, err
	}

	out := domain.MappedRows{Table: table}
	if len(rows) == 0 {
		return out, nil
	}

	switch table {
	case domain.TableMarketData:
		md := make([]domain.MarketDataRow, 0, len(rows))
		for _, r := range rows {
			row, err := marketDataRow(assetID, r)
			if err != nil {
				return domain.MappedRows{}, err
			}
			md = append(md, row)
		}
		out.MarketData = md
	case domain.TableForexRates, domain.TableBondRates:
		rt := make([]domain.RateRow, 0, len(rows))
		for _, r := range rows {
			row, err := rateRow(assetID, r, table)
			if err != nil {
				return domain.MappedRows{}, err
			}
			rt = append(rt, row)
		}
		out.Rates = rt
	case domain.TableEconomicData:
		ed := make([]domain.EconomicDataRow, 0, len(rows))
		for _, r := range rows {
			v, ok := r.Columns["value"]
			if !ok {
				return domain.MappedRows{}, apperrors.New(domain.ErrorCategoryMapping, "economic_indicator row missing required column \"value\"")
			}
			ed = append(ed, domain.EconomicDataRow{Time: r.Time, AssetID: assetID, Value: v})
		}
		out.EconomicData = ed
	}

	return out, nil
}

func targetTable(assetType domain.AssetType) (domain.TargetTable, error) {
	switch assetType {
	case domain.AssetTypeStock, domain.AssetTypeCrypto, domain.AssetTypeCommodity:
		return domain.TableMarketData, nil
	case domain.AssetTypeForex:
		return domain.TableForexRates, nil
	case domain.AssetTypeBond:
		return domain.TableBondRates, nil
	case domain.AssetTypeEconomicIndicator:
		return domain.TableEconomicData, nil
	default:
		return "", apperrors.New(domain.ErrorCategoryMapping, "no target table for asset type "+string(assetType))
	}
}

func marketDataRow(assetID int64, r domain.CollectedRow) (domain.MarketDataRow, error) {
	required := []string{"open", "high", "low", "close"}
	for _, col := range required {
		if _, ok := r.Columns[col]; !ok {
			return domain.MarketDataRow{}, apperrors.New(domain.ErrorCategoryMapping, "market data row missing required column \""+col+"\"")
		}
	}
	row := domain.MarketDataRow{
		Time:    r.Time,
		AssetID: assetID,
		Open:    r.Columns["open"],
		High:    r.Columns["high"],
		Low:     r.Columns["low"],
		Close:   r.Columns["close"],
	}
	if v, ok := r.Columns["volume"]; ok {
		row.Volume = &v
	}
	return row, nil
}

// rateRow accepts either a "rate" column, a "value" column (bond rows are
// often expressed as a single observed value), or a single-price column
// named "price" — whichever is present first, in that order.
func rateRow(assetID int64, r domain.CollectedRow, table domain.TargetTable) (domain.RateRow, error) {
	for _, col := range []string{"rate", "value", "price"} {
		if v, ok := r.Columns[col]; ok {
			return domain.RateRow{Time: r.Time, AssetID: assetID, Rate: v}, nil
		}
	}
	label := "forex"
	if table == domain.TableBondRates {
		label = "bond"
	}
	return domain.RateRow{}, apperrors.New(domain.ErrorCategoryMapping, label+" row missing a rate/value/price column")
}
