package collector

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// HTTPConfig carries the endpoint, credentials and timeout a generic
// HTTP-backed collector needs. BaseURL is not a template: each collector
// appends the symbol and the [start, end] window itself as query
// parameters (or a path plus query parameters), and each parses its
// response with fixed field names.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func (c HTTPConfig) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 30 * time.Second
}

func httpGet(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apperrors.Wrap(domain.ErrorCategoryConfiguration, "build collector request", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap(domain.ErrorCategoryAPI, "collector upstream call", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", apperrors.New(domain.ErrorCategoryRateLimit, "upstream signaled rate limit")
	}
	if resp.StatusCode >= 500 {
		return "", apperrors.New(domain.ErrorCategoryAPI, fmt.Sprintf("upstream returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return "", apperrors.New(domain.ErrorCategoryValidation, fmt.Sprintf("upstream rejected request: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.Wrap(domain.ErrorCategoryAPI, "read collector response", err)
	}
	return string(body), nil
}

// --- StockCollector / CommodityCollector -----------------------------------

// StockCollector fetches OHLCV bars from a generic candle endpoint shaped
// as a JSON array of {"t","o","h","l","c","v"} objects. CommodityCollector
// reuses the same shape (commodities are quoted the same way as equities
// for this module's purposes).
type StockCollector struct {
	cfg HTTPConfig
}

func NewStockCollector(cfg HTTPConfig) *StockCollector { return &StockCollector{cfg: cfg} }

func (s *StockCollector) Collect(ctx context.Context, symbol string, start, end time.Time, kwargs map[string]string) ([]domain.CollectedRow, error) {
	return fetchOHLCV(ctx, s.cfg, symbol, start, end)
}

func (s *StockCollector) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	return []SearchResult{{Symbol: strings.ToUpper(query), Name: strings.ToUpper(query)}}, nil
}

func (s *StockCollector) ValidateParams(kwargs map[string]string) error { return nil }

func (s *StockCollector) Options() []Option {
	return []Option{{Name: "exchange", Description: "exchange suffix, e.g. NASDAQ", Required: false}}
}

func (s *StockCollector) Metadata() Metadata {
	return Metadata{AssetType: domain.AssetTypeStock, Name: "stock", Description: "generic OHLCV equity collector", TargetTable: domain.TableMarketData}
}

type CommodityCollector struct {
	cfg HTTPConfig
}

func NewCommodityCollector(cfg HTTPConfig) *CommodityCollector { return &CommodityCollector{cfg: cfg} }

func (c *CommodityCollector) Collect(ctx context.Context, symbol string, start, end time.Time, kwargs map[string]string) ([]domain.CollectedRow, error) {
	return fetchOHLCV(ctx, c.cfg, symbol, start, end)
}

func (c *CommodityCollector) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	return []SearchResult{{Symbol: strings.ToUpper(query), Name: strings.ToUpper(query)}}, nil
}

func (c *CommodityCollector) ValidateParams(kwargs map[string]string) error { return nil }

func (c *CommodityCollector) Options() []Option {
	return []Option{{Name: "unit", Description: "quote unit, e.g. USD/barrel", Required: false}}
}

func (c *CommodityCollector) Metadata() Metadata {
	return Metadata{AssetType: domain.AssetTypeCommodity, Name: "commodity", Description: "generic OHLCV commodity collector", TargetTable: domain.TableMarketData}
}

func fetchOHLCV(ctx context.Context, cfg HTTPConfig, symbol string, start, end time.Time) ([]domain.CollectedRow, error) {
	if cfg.BaseURL == "" {
		return nil, apperrors.New(domain.ErrorCategoryConfiguration, "collector base URL not configured")
	}
	u := fmt.Sprintf("%s?symbol=%s&start=%s&end=%s", cfg.BaseURL, url.QueryEscape(symbol),
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
	body, err := httpGet(ctx, u, cfg.timeout())
	if err != nil {
		return nil, err
	}

	var rows []domain.CollectedRow
	gjson.Parse(body).ForEach(func(_, bar gjson.Result) bool {
		ts := bar.Get("t").Int()
		row := domain.CollectedRow{
			Time: time.Unix(ts, 0).UTC(),
			Columns: map[string]float64{
				"open":  bar.Get("o").Float(),
				"high":  bar.Get("h").Float(),
				"low":   bar.Get("l").Float(),
				"close": bar.Get("c").Float(),
			},
		}
		if v := bar.Get("v"); v.Exists() {
			row.Columns["volume"] = v.Float()
		}
		rows = append(rows, row)
		return true
	})
	return rows, nil
}

// --- CryptoCollector (Coinbase-shaped) --------------------------------------

// CryptoCollector fetches candles from a Coinbase-shaped endpoint, signing
// requests with an HMAC over (timestamp, method, path) per Coinbase's
// documented scheme, using COINBASE_API_KEY/COINBASE_API_SECRET.
type CryptoCollector struct {
	cfg       HTTPConfig
	apiKey    string
	apiSecret string
}

func NewCryptoCollector(cfg HTTPConfig, apiKey, apiSecret string) *CryptoCollector {
	return &CryptoCollector{cfg: cfg, apiKey: apiKey, apiSecret: apiSecret}
}

func (c *CryptoCollector) Collect(ctx context.Context, symbol string, start, end time.Time, kwargs map[string]string) ([]domain.CollectedRow, error) {
	if c.cfg.BaseURL == "" {
		return nil, apperrors.New(domain.ErrorCategoryConfiguration, "crypto collector base URL not configured")
	}
	if c.apiKey == "" || c.apiSecret == "" {
		return nil, apperrors.New(domain.ErrorCategoryConfiguration, "coinbase credentials not configured")
	}
	path := fmt.Sprintf("/products/%s/candles", strings.ToUpper(symbol))
	u := fmt.Sprintf("%s%s?start=%s&end=%s", c.cfg.BaseURL, path,
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrorCategoryConfiguration, "build coinbase request", err)
	}
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("CB-ACCESS-KEY", c.apiKey)
	req.Header.Set("CB-ACCESS-TIMESTAMP", ts)
	req.Header.Set("CB-ACCESS-SIGN", signCoinbase(c.apiSecret, ts, http.MethodGet, path))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrorCategoryAPI, "coinbase upstream call", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.New(domain.ErrorCategoryRateLimit, "coinbase rate limit")
	}
	if resp.StatusCode >= 500 {
		return nil, apperrors.New(domain.ErrorCategoryAPI, fmt.Sprintf("coinbase returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.New(domain.ErrorCategoryValidation, fmt.Sprintf("coinbase rejected request: %d", resp.StatusCode))
	}

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrorCategoryAPI, "read coinbase response", err)
	}

	var rows []domain.CollectedRow
	gjson.Parse(string(buf)).ForEach(func(_, candle gjson.Result) bool {
		arr := candle.Array()
		if len(arr) < 6 {
			return true
		}
		rows = append(rows, domain.CollectedRow{
			Time: time.Unix(arr[0].Int(), 0).UTC(),
			Columns: map[string]float64{
				"low":    arr[1].Float(),
				"high":   arr[2].Float(),
				"open":   arr[3].Float(),
				"close":  arr[4].Float(),
				"volume": arr[5].Float(),
			},
		})
		return true
	})
	return rows, nil
}

func signCoinbase(secret, timestamp, method, path string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + method + path))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *CryptoCollector) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	return []SearchResult{{Symbol: strings.ToUpper(query), Name: strings.ToUpper(query) + " pair"}}, nil
}

func (c *CryptoCollector) ValidateParams(kwargs map[string]string) error { return nil }

func (c *CryptoCollector) Options() []Option {
	return []Option{{Name: "granularity", Description: "candle width in seconds", Required: false, Default: "86400"}}
}

func (c *CryptoCollector) Metadata() Metadata {
	return Metadata{AssetType: domain.AssetTypeCrypto, Name: "crypto", Description: "Coinbase-shaped candle collector", TargetTable: domain.TableMarketData}
}

// --- ForexCollector / BondCollector -----------------------------------------

// ForexCollector fetches a single daily rate series.
type ForexCollector struct {
	cfg HTTPConfig
}

func NewForexCollector(cfg HTTPConfig) *ForexCollector { return &ForexCollector{cfg: cfg} }

func (f *ForexCollector) Collect(ctx context.Context, symbol string, start, end time.Time, kwargs map[string]string) ([]domain.CollectedRow, error) {
	return fetchRateSeries(ctx, f.cfg, symbol, start, end)
}

func (f *ForexCollector) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	return []SearchResult{{Symbol: strings.ToUpper(query), Name: strings.ToUpper(query) + " exchange rate"}}, nil
}

func (f *ForexCollector) ValidateParams(kwargs map[string]string) error { return nil }

func (f *ForexCollector) Options() []Option {
	return []Option{{Name: "base", Description: "base currency override", Required: false}}
}

func (f *ForexCollector) Metadata() Metadata {
	return Metadata{AssetType: domain.AssetTypeForex, Name: "forex", Description: "daily exchange rate collector", TargetTable: domain.TableForexRates}
}

// BondCollector fetches a single daily yield series, same wire shape as
// ForexCollector but mapped to bond_rates by the schema mapper.
type BondCollector struct {
	cfg HTTPConfig
}

func NewBondCollector(cfg HTTPConfig) *BondCollector { return &BondCollector{cfg: cfg} }

func (b *BondCollector) Collect(ctx context.Context, symbol string, start, end time.Time, kwargs map[string]string) ([]domain.CollectedRow, error) {
	return fetchRateSeries(ctx, b.cfg, symbol, start, end)
}

func (b *BondCollector) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	return []SearchResult{{Symbol: strings.ToUpper(query), Name: strings.ToUpper(query) + " yield"}}, nil
}

func (b *BondCollector) ValidateParams(kwargs map[string]string) error { return nil }

func (b *BondCollector) Options() []Option {
	return []Option{{Name: "maturity", Description: "bond maturity, e.g. 10y", Required: false}}
}

func (b *BondCollector) Metadata() Metadata {
	return Metadata{AssetType: domain.AssetTypeBond, Name: "bond", Description: "daily yield collector", TargetTable: domain.TableBondRates}
}

func fetchRateSeries(ctx context.Context, cfg HTTPConfig, symbol string, start, end time.Time) ([]domain.CollectedRow, error) {
	if cfg.BaseURL == "" {
		return nil, apperrors.New(domain.ErrorCategoryConfiguration, "collector base URL not configured")
	}
	u := fmt.Sprintf("%s?symbol=%s&start=%s&end=%s", cfg.BaseURL, url.QueryEscape(symbol),
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
	body, err := httpGet(ctx, u, cfg.timeout())
	if err != nil {
		return nil, err
	}

	var rows []domain.CollectedRow
	gjson.Parse(body).ForEach(func(_, point gjson.Result) bool {
		ts := point.Get("t").Int()
		row := domain.CollectedRow{Time: time.Unix(ts, 0).UTC(), Columns: map[string]float64{}}
		if v := point.Get("rate"); v.Exists() {
			row.Columns["rate"] = v.Float()
		} else {
			row.Columns["rate"] = point.Get("value").Float()
		}
		rows = append(rows, row)
		return true
	})
	return rows, nil
}

// --- EconomicCollector (FRED-shaped) ----------------------------------------

// EconomicCollector fetches observations from a FRED-shaped series
// endpoint, authenticating with FRED_API_KEY as a query parameter.
type EconomicCollector struct {
	cfg    HTTPConfig
	apiKey string
}

func NewEconomicCollector(cfg HTTPConfig, apiKey string) *EconomicCollector {
	return &EconomicCollector{cfg: cfg, apiKey: apiKey}
}

func (e *EconomicCollector) Collect(ctx context.Context, symbol string, start, end time.Time, kwargs map[string]string) ([]domain.CollectedRow, error) {
	if e.cfg.BaseURL == "" {
		return nil, apperrors.New(domain.ErrorCategoryConfiguration, "economic collector base URL not configured")
	}
	if e.apiKey == "" {
		return nil, apperrors.New(domain.ErrorCategoryConfiguration, "FRED API key not configured")
	}
	u := fmt.Sprintf("%s?series_id=%s&observation_start=%s&observation_end=%s&api_key=%s&file_type=json",
		e.cfg.BaseURL, url.QueryEscape(symbol),
		start.UTC().Format("2006-01-02"), end.UTC().Format("2006-01-02"), url.QueryEscape(e.apiKey))
	body, err := httpGet(ctx, u, e.cfg.timeout())
	if err != nil {
		return nil, err
	}

	var rows []domain.CollectedRow
	gjson.Get(body, "observations").ForEach(func(_, obs gjson.Result) bool {
		dateStr := obs.Get("date").String()
		valStr := obs.Get("value").String()
		if valStr == "." || valStr == "" {
			return true
		}
		t, perr := time.Parse("2006-01-02", dateStr)
		if perr != nil {
			return true
		}
		val, verr := strconv.ParseFloat(valStr, 64)
		if verr != nil {
			return true
		}
		rows = append(rows, domain.CollectedRow{Time: t.UTC(), Columns: map[string]float64{"value": val}})
		return true
	})
	return rows, nil
}

func (e *EconomicCollector) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	return []SearchResult{{Symbol: strings.ToUpper(query), Name: strings.ToUpper(query) + " series"}}, nil
}

func (e *EconomicCollector) ValidateParams(kwargs map[string]string) error { return nil }

func (e *EconomicCollector) Options() []Option {
	return []Option{{Name: "units", Description: "FRED units transformation, e.g. pch", Required: false}}
}

func (e *EconomicCollector) Metadata() Metadata {
	return Metadata{AssetType: domain.AssetTypeEconomicIndicator, Name: "economic_indicator", Description: "FRED-shaped observations collector", TargetTable: domain.TableEconomicData}
}
