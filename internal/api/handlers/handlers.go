package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/farm-ledger/internal/api/middleware"
	"github.com/dvloznov/farm-ledger/internal/jobs"
	"github.com/rs/zerolog"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	started time.Time
	now     func() time.Time
}

// NewHealthHandler creates a health handler; uptime counts from now.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{started: time.Now(), now: time.Now}
}

// Health handles GET / and GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   now.Format(time.RFC3339),
		"uptime": now.Sub(h.started).Truncate(time.Second).String(),
	})
}

// JobsHandler handles dispatch job endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if userStr := query.Get("user_id"); userStr != "" {
		userID, err := strconv.ParseInt(userStr, 10, 64)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid user_id")
			return
		}
		filter.UserID = userID
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
