package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/huentelauquen/backoffice/internal/classify"
	"github.com/huentelauquen/backoffice/internal/prorrateo"
	"github.com/huentelauquen/backoffice/internal/report"
	"github.com/huentelauquen/backoffice/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	ReportHandler   *report.Handler
	ConfigHandler   *prorrateo.Handler
	ClassifyHandler *classify.Handler
	JobsHandler     *jobs.Handler
}

// NewRouter constructs the chi.Router with backoffice defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.ReportHandler != nil {
		params.ReportHandler.Mount(r)
	}
	if params.ConfigHandler != nil {
		params.ConfigHandler.Mount(r)
	}
	if params.ClassifyHandler != nil {
		params.ClassifyHandler.Mount(r)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", func(jr chi.Router) {
			params.JobsHandler.MountRoutes(jr)
		})
	}

	return r
}
