package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/logging"
)

// Server wraps an http.Server around a Handler's router, with a Start/Stop
// lifecycle shaped to fit the application's graceful-shutdown sequence.
type Server struct {
	addr   string
	server *http.Server
	log    *logging.Logger
}

// NewServer builds a Server bound to addr, serving h.Router().
func NewServer(addr string, h *Handler, log *logging.Logger) *Server {
	return &Server{
		addr: addr,
		server: &http.Server{
			Addr:         addr,
			Handler:      h.Router(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		log: log,
	}
}

// Start launches the listener in the background. A listen error after
// startup is logged, not returned, since it happens asynchronously.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("http server error")
		}
	}()
	return nil
}

// Stop drains in-flight requests before returning, bounded by ctx.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
