package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

func (h *Handler) collectorMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collectors.All())
}

func (h *Handler) collectorOptions(w http.ResponseWriter, r *http.Request) {
	assetType := domain.AssetType(mux.Vars(r)["asset_type"])
	c, ok := h.collectors.Lookup(assetType)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown asset_type: "+string(assetType))
		return
	}
	writeJSON(w, http.StatusOK, c.Options())
}

func (h *Handler) collectorSearch(w http.ResponseWriter, r *http.Request) {
	assetType := domain.AssetType(mux.Vars(r)["asset_type"])
	c, ok := h.collectors.Lookup(assetType)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown asset_type: "+string(assetType))
		return
	}
	query := r.URL.Query().Get("q")
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	results, err := c.Search(r.Context(), query, limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type collectorValidateRequest struct {
	AssetType string            `json:"asset_type"`
	Kwargs    map[string]string `json:"collector_kwargs"`
}

func (h *Handler) collectorValidate(w http.ResponseWriter, r *http.Request) {
	var req collectorValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "malformed request body: "+err.Error())
		return
	}
	c, ok := h.collectors.Lookup(domain.AssetType(req.AssetType))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown asset_type: "+req.AssetType)
		return
	}
	if err := c.ValidateParams(req.Kwargs); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"valid": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true})
}
