package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the mux.Router wiring every endpoint in spec §6 to its
// handler.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	jobs := api.PathPrefix("/scheduler/jobs").Subrouter()
	jobs.HandleFunc("", h.createJob).Methods(http.MethodPost)
	jobs.HandleFunc("", h.listJobs).Methods(http.MethodGet)
	jobs.HandleFunc("/{id}", h.getJob).Methods(http.MethodGet)
	jobs.HandleFunc("/{id}", h.updateJob).Methods(http.MethodPatch)
	jobs.HandleFunc("/{id}", h.deleteJob).Methods(http.MethodDelete)
	jobs.HandleFunc("/{id}/trigger", h.triggerJob).Methods(http.MethodPost)
	jobs.HandleFunc("/{id}/pause", h.pauseJob).Methods(http.MethodPost)
	jobs.HandleFunc("/{id}/resume", h.resumeJob).Methods(http.MethodPost)
	jobs.HandleFunc("/{id}/executions", h.listExecutions).Methods(http.MethodGet)

	api.HandleFunc("/ingestion/logs", h.ingestionLogs).Methods(http.MethodGet)

	collectors := api.PathPrefix("/collectors").Subrouter()
	collectors.HandleFunc("/metadata", h.collectorMetadata).Methods(http.MethodGet)
	collectors.HandleFunc("/validate", h.collectorValidate).Methods(http.MethodPost)
	collectors.HandleFunc("/{asset_type}/options", h.collectorOptions).Methods(http.MethodGet)
	collectors.HandleFunc("/{asset_type}/search", h.collectorSearch).Methods(http.MethodGet)

	api.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws/scheduler", h.serveWebSocket)

	return withCORS(r)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
