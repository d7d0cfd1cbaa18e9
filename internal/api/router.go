package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mutige-mungos/mungo-shift/internal/processor"
)

// CronRunner runs one scheduled diff/notify pass.
type CronRunner interface {
	Run(ctx context.Context) (*processor.RunResult, error)
}

type Deps struct {
	Loader     processor.DatasetLoader
	Cron       CronRunner
	CronSecret string
	SiteURL    string
	// Gatherer backs /metrics; nil leaves the route out.
	Gatherer prometheus.Gatherer
}

// NewRouter builds the HTTP router for the service.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	h := &handler{
		loader:     deps.Loader,
		cron:       deps.Cron,
		cronSecret: deps.CronSecret,
		siteURL:    deps.SiteURL,
	}

	r.Get("/api/bl4", h.datasetJSON)
	r.Get("/bl4.txt", h.datasetText)
	r.Get("/bl4.rss", h.datasetRSS)
	r.Get("/api/cron", h.cronRun)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
