package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-collective/tsdata-scheduler/internal/assets"
	"github.com/r3e-collective/tsdata-scheduler/internal/collector"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
	"github.com/r3e-collective/tsdata-scheduler/internal/eventbus"
	"github.com/r3e-collective/tsdata-scheduler/internal/incremental"
	"github.com/r3e-collective/tsdata-scheduler/internal/ingestion"
	"github.com/r3e-collective/tsdata-scheduler/internal/loader"
	"github.com/r3e-collective/tsdata-scheduler/internal/logging"
	"github.com/r3e-collective/tsdata-scheduler/internal/metrics"
	"github.com/r3e-collective/tsdata-scheduler/internal/ratelimit"
	"github.com/r3e-collective/tsdata-scheduler/internal/scheduler"
	"github.com/r3e-collective/tsdata-scheduler/internal/store/memory"
	"github.com/r3e-collective/tsdata-scheduler/internal/trigger"
)

type noopCollector struct{}

func (noopCollector) Collect(ctx context.Context, symbol string, start, end time.Time, kwargs map[string]string) ([]domain.CollectedRow, error) {
	return nil, nil
}
func (noopCollector) Search(ctx context.Context, query string, limit int) ([]collector.SearchResult, error) {
	return []collector.SearchResult{{Symbol: query}}, nil
}
func (noopCollector) ValidateParams(kwargs map[string]string) error { return nil }
func (noopCollector) Options() []collector.Option {
	return []collector.Option{{Name: "exchange", Description: "exchange suffix"}}
}
func (noopCollector) Metadata() collector.Metadata {
	return collector.Metadata{AssetType: domain.AssetTypeStock, Name: "stock", TargetTable: domain.TableMarketData}
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	st := memory.New()
	collectors := collector.NewRegistry(map[domain.AssetType]collector.Collector{domain.AssetTypeStock: noopCollector{}})
	engine := ingestion.New(assets.New(st), incremental.New(st), ratelimit.NewRegistry(), collectors, loader.New(st), st)
	sched := scheduler.New(st, engine, trigger.New(), metrics.NewWithRegistry(prometheus.NewRegistry()), eventbus.New(), logging.NewDefault("test"), scheduler.Config{})
	return New(sched, collectors, st, eventbus.New(), logging.NewDefault("test"))
}

func TestCreateJob_AndGetJob(t *testing.T) {
	h := newTestHandler(t)
	router := h.Router()

	body := `{"symbol":"ACME","asset_type":"stock","trigger_type":"interval","trigger_config":{"seconds":60,"execute_now":true}}`
	req := httptest.NewRequest(http.MethodPost, "/api/scheduler/jobs", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.JobID)
	assert.Equal(t, domain.JobStatusActive, created.Status)

	getReq := httptest.NewRequest(http.MethodGet, "/api/scheduler/jobs/"+created.JobID, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)
}

func TestGetJob_UnknownReturns404(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/scheduler/jobs/missing", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateJob_InvalidTriggerTypeReturns400(t *testing.T) {
	h := newTestHandler(t)
	body := `{"symbol":"ACME","asset_type":"stock","trigger_type":"bogus"}`
	req := httptest.NewRequest(http.MethodPost, "/api/scheduler/jobs", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errBody errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	assert.Equal(t, "validation", errBody.Error.Code)
}

func TestCollectorMetadataAndOptions(t *testing.T) {
	h := newTestHandler(t)
	router := h.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/collectors/metadata", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/collectors/stock/options", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/collectors/bogus/options", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollectorValidate(t *testing.T) {
	h := newTestHandler(t)
	body := `{"asset_type":"stock","collector_kwargs":{}}`
	req := httptest.NewRequest(http.MethodPost, "/api/collectors/validate", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, true, out["valid"])
}

func TestIngestionLogs_EmptyInitially(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ingestion/logs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestPauseUnknownJobReturns404(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scheduler/jobs/missing/pause", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
