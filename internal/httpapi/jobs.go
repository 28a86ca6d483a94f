package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "malformed request body: "+err.Error())
		return
	}
	job, err := req.toJob()
	if err != nil {
		writeAppError(w, err)
		return
	}
	created, err := h.sched.CreateJob(r.Context(), job)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderJob(created))
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.sched.ListJobs(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderJobs(jobs))
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := h.sched.GetJob(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderJob(job))
}

func (h *Handler) updateJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existing, err := h.sched.GetJob(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	var req jobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "malformed request body: "+err.Error())
		return
	}
	if req.Symbol != "" {
		existing.Symbol = req.Symbol
	}
	if req.TriggerType != "" {
		patched, perr := req.toJob()
		if perr != nil {
			writeAppError(w, perr)
			return
		}
		existing.TriggerType = patched.TriggerType
		existing.CronConfig = patched.CronConfig
		existing.IntervalConfig = patched.IntervalConfig
	}
	if req.StartDate != nil {
		existing.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		existing.EndDate = req.EndDate
	}
	if req.CollectorKwargs != nil {
		existing.CollectorKwargs = req.CollectorKwargs
	}
	if req.AssetMetadata != nil {
		existing.AssetMetadata = req.AssetMetadata
	}
	if req.MaxRetries != nil {
		existing.MaxRetries = *req.MaxRetries
	}
	if req.RetryDelaySeconds != nil {
		existing.RetryDelaySeconds = *req.RetryDelaySeconds
	}
	if req.RetryBackoffMultiplier != nil {
		existing.RetryBackoffMultiplier = *req.RetryBackoffMultiplier
	}

	updated, err := h.sched.UpdateJob(r.Context(), existing)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderJob(updated))
}

func (h *Handler) deleteJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.sched.DeleteJob(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listExecutions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	execs, err := h.sched.ListExecutions(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderExecutions(execs))
}

func (h *Handler) triggerJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.sched.GetJob(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	if err := h.sched.Trigger(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"job_id": id, "status": "triggered"})
}

func (h *Handler) pauseJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := h.sched.Pause(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderJob(job))
}

func (h *Handler) resumeJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := h.sched.Resume(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderJob(job))
}
