// Package httpapi exposes the scheduling engine over HTTP (spec §6): job
// CRUD and lifecycle, ingestion log tailing, collector introspection, a
// Prometheus exposition endpoint, and a push channel over WebSocket.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
)

// errorBody is the JSON error envelope spec §7 names: {error:{code,
// message, details?}}.
type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorPayload{Code: code, Message: message}})
}

// writeAppError maps an apperrors.CategorizedError (or a plain error) to
// the status/code pair spec §7 describes for synchronous endpoints.
func writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	code := string(apperrors.CategoryOf(err))
	writeError(w, status, code, err.Error())
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}
