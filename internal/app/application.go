// Package app wires the scheduler's components together: config, logger,
// Postgres store, rate limiter registry, collector registry, asset
// manager, incremental-date tracker, loader, ingestion engine, trigger
// evaluator, metrics, event bus, the scheduler itself, and the HTTP API —
// and exposes a Start/Stop lifecycle for cmd/schedulerd.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/r3e-collective/tsdata-scheduler/internal/assets"
	"github.com/r3e-collective/tsdata-scheduler/internal/collector"
	"github.com/r3e-collective/tsdata-scheduler/internal/config"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
	"github.com/r3e-collective/tsdata-scheduler/internal/eventbus"
	"github.com/r3e-collective/tsdata-scheduler/internal/httpapi"
	"github.com/r3e-collective/tsdata-scheduler/internal/incremental"
	"github.com/r3e-collective/tsdata-scheduler/internal/ingestion"
	"github.com/r3e-collective/tsdata-scheduler/internal/loader"
	"github.com/r3e-collective/tsdata-scheduler/internal/logging"
	"github.com/r3e-collective/tsdata-scheduler/internal/metrics"
	"github.com/r3e-collective/tsdata-scheduler/internal/ratelimit"
	store "github.com/r3e-collective/tsdata-scheduler/internal/store/postgres"
	"github.com/r3e-collective/tsdata-scheduler/internal/scheduler"
	"github.com/r3e-collective/tsdata-scheduler/internal/trigger"
)

// Application owns every long-lived component and the order they start
// and stop in.
type Application struct {
	cfg    *config.Config
	log    *logging.Logger
	db     *sql.DB
	sched  *scheduler.Scheduler
	server *httpapi.Server
}

// New constructs every component from cfg but does not start anything.
func New(cfg *config.Config, log *logging.Logger) (*Application, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	st := store.New(db)

	limiters := ratelimit.NewRegistry()
	for _, class := range []string{
		string(domain.AssetTypeStock), string(domain.AssetTypeCommodity), string(domain.AssetTypeCrypto),
		string(domain.AssetTypeForex), string(domain.AssetTypeBond), string(domain.AssetTypeEconomicIndicator),
	} {
		limiters.Configure(class, cfg.Scheduler.RateLimitCalls, cfg.Scheduler.RateLimitPeriod)
	}

	collectors := buildCollectors(cfg.Collector)
	assetMgr := assets.New(st)
	tracker := incremental.New(st)
	ld := loader.New(st)
	engine := ingestion.New(assetMgr, tracker, limiters, collectors, ld, st)
	evaluator := trigger.New()
	m := metrics.New()
	bus := eventbus.New()

	sched := scheduler.New(st, engine, evaluator, m, bus, log, scheduler.Config{
		TickInterval:   cfg.Scheduler.TickInterval,
		WorkerPoolSize: cfg.Scheduler.WorkerPoolSize,
		ShutdownGrace:  cfg.Scheduler.ShutdownGrace,
		DefaultTimeout: cfg.Scheduler.DefaultTimeout,
	})

	handler := httpapi.New(sched, collectors, st, bus, log)
	server := httpapi.NewServer(cfg.API.Addr(), handler, log)

	return &Application{cfg: cfg, log: log, db: db, sched: sched, server: server}, nil
}

// buildCollectors registers the six bundled HTTP collectors (spec §4.6)
// against the asset types they serve.
func buildCollectors(cfg config.CollectorConfig) *collector.Registry {
	stockCfg := collector.HTTPConfig{BaseURL: "https://api.example.com/v1/candles"}
	forexCfg := collector.HTTPConfig{BaseURL: "https://api.example.com/v1/fx"}
	bondCfg := collector.HTTPConfig{BaseURL: "https://api.example.com/v1/yields"}
	cryptoCfg := collector.HTTPConfig{BaseURL: "https://api.exchange.coinbase.com"}
	econCfg := collector.HTTPConfig{BaseURL: "https://api.stlouisfed.org/fred/series/observations"}

	return collector.NewRegistry(map[domain.AssetType]collector.Collector{
		domain.AssetTypeStock:             collector.NewStockCollector(stockCfg),
		domain.AssetTypeCommodity:         collector.NewCommodityCollector(stockCfg),
		domain.AssetTypeCrypto:            collector.NewCryptoCollector(cryptoCfg, cfg.CoinbaseAPIKey, cfg.CoinbaseAPISecret),
		domain.AssetTypeForex:             collector.NewForexCollector(forexCfg),
		domain.AssetTypeBond:              collector.NewBondCollector(bondCfg),
		domain.AssetTypeEconomicIndicator: collector.NewEconomicCollector(econCfg, cfg.FREDAPIKey),
	})
}

// Start begins serving: the scheduler's tick loop and the HTTP API.
func (a *Application) Start(ctx context.Context) error {
	if err := a.sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := a.server.Start(ctx); err != nil {
		return fmt.Errorf("start http api: %w", err)
	}
	return nil
}

// Stop shuts down the HTTP API, then the scheduler, then closes the
// database — the reverse of Start, bounded by ctx.
func (a *Application) Stop(ctx context.Context) error {
	if err := a.server.Stop(ctx); err != nil {
		a.log.WithError(err).Warn("http api shutdown error")
	}
	if err := a.sched.Stop(ctx); err != nil {
		a.log.WithError(err).Warn("scheduler shutdown error")
	}
	return a.db.Close()
}
