package httpapi

import (
	"github.com/r3e-collective/tsdata-scheduler/internal/collector"
	"github.com/r3e-collective/tsdata-scheduler/internal/eventbus"
	"github.com/r3e-collective/tsdata-scheduler/internal/logging"
	"github.com/r3e-collective/tsdata-scheduler/internal/scheduler"
	"github.com/r3e-collective/tsdata-scheduler/internal/store"
)

// Handler bundles the dependencies every route needs: the scheduling
// engine, the collector registry for introspection endpoints, the
// collection-log store for ingestion log tailing, and the event bus the
// WebSocket channel subscribes to.
type Handler struct {
	sched      *scheduler.Scheduler
	collectors *collector.Registry
	logs       store.CollectionLogStore
	bus        *eventbus.Bus
	log        *logging.Logger
}

// New builds a Handler. sched, collectors, logs, and bus must be non-nil.
func New(sched *scheduler.Scheduler, collectors *collector.Registry, logs store.CollectionLogStore, bus *eventbus.Bus, log *logging.Logger) *Handler {
	return &Handler{sched: sched, collectors: collectors, logs: logs, bus: bus, log: log}
}
