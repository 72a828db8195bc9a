// Package api serves the bot's HTTP surface: liveness, metrics, the Telegram
// webhook and dispatch job status.
package api

import (
	"net/http"
	"strings"

	"github.com/dvloznov/farm-ledger/internal/api/handlers"
	"github.com/dvloznov/farm-ledger/internal/api/middleware"
	"github.com/dvloznov/farm-ledger/internal/jobs"
	"github.com/rs/zerolog"
)

// WebhookPath is where Telegram posts updates when no other path is configured.
const WebhookPath = "/webhook"

// RouterConfig selects the mounted endpoints. Nil handlers are left out.
type RouterConfig struct {
	Metrics     http.Handler
	Webhook     http.Handler
	WebhookPath string
	Jobs        jobs.JobStore
	Log         zerolog.Logger
}

// NewRouter builds the mux wrapped in the middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	health := handlers.NewHealthHandler()
	mux.HandleFunc("/health", health.Health)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		health.Health(w, r)
	})

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}
	if cfg.Webhook != nil {
		path := cfg.WebhookPath
		if path == "" {
			path = WebhookPath
		}
		mux.Handle(path, cfg.Webhook)
	}

	if cfg.Jobs != nil {
		jobsHandler := handlers.NewJobsHandler(cfg.Jobs, cfg.Log)

		mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				jobsHandler.ListJobs(w, r)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		})

		mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
				if jobID == "" {
					middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
					return
				}
				jobsHandler.GetJob(w, r, jobID)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		})
	}

	return middleware.Recovery(cfg.Log)(
		middleware.RequestID(
			middleware.Logger(cfg.Log)(mux),
		),
	)
}
