// Package domain holds the persistent entities of the scheduling engine:
// assets, scheduled jobs, job executions and collection logs.
package domain

import "time"

// AssetType enumerates the supported market data classes.
type AssetType string

const (
	AssetTypeStock              AssetType = "stock"
	AssetTypeForex              AssetType = "forex"
	AssetTypeCrypto             AssetType = "crypto"
	AssetTypeBond                AssetType = "bond"
	AssetTypeCommodity          AssetType = "commodity"
	AssetTypeEconomicIndicator  AssetType = "economic_indicator"
)

// Valid reports whether t is one of the supported asset types.
func (t AssetType) Valid() bool {
	switch t {
	case AssetTypeStock, AssetTypeForex, AssetTypeCrypto, AssetTypeBond,
		AssetTypeCommodity, AssetTypeEconomicIndicator:
		return true
	}
	return false
}

// Asset is a tradeable or observable series identified by (symbol, asset_type).
// Created on first reference by any job; never deleted.
type Asset struct {
	ID        int64
	Symbol    string
	AssetType AssetType
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}
