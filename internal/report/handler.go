package report

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/huentelauquen/backoffice/internal/platform/httpx"
	"github.com/huentelauquen/backoffice/internal/prorrateo"
)

var periodParam = regexp.MustCompile(`^\d{4}-\d{2}$`)

// RefreshEnqueuer schedules a ledger dataset refresh in the background.
type RefreshEnqueuer interface {
	EnqueueRefresh(ctx context.Context, dataset, requestID string) error
}

// Handler exposes the three report profiles and the refresh trigger.
type Handler struct {
	service  *Service
	enqueuer RefreshEnqueuer
	dataset  string
	logger   *slog.Logger
}

// NewHandler constructs the report HTTP handler.
func NewHandler(service *Service, enqueuer RefreshEnqueuer, dataset string, logger *slog.Logger) *Handler {
	return &Handler{service: service, enqueuer: enqueuer, dataset: dataset, logger: logger}
}

// Mount registers the report routes.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/finanzas/estado", h.statement)
	r.Get("/finanzas/tendencia", h.trend)
	r.Get("/finanzas/kpi", h.kpis)
	r.Post("/finanzas/refresh", h.refresh)
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("periodo")
	if period != "" && !periodParam.MatchString(period) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "periodo debe tener formato YYYY-MM")
		return
	}
	stmt, err := h.service.Statement(r.Context(), period, parseSwitches(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stmt)
}

func (h *Handler) trend(w http.ResponseWriter, r *http.Request) {
	costCenter := r.URL.Query().Get("centro")
	window, annual := parseWindow(r.URL.Query().Get("ventana"))
	stmt, err := h.service.Trend(r.Context(), costCenter, window, annual, parseSwitches(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stmt)
}

func (h *Handler) kpis(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.KPIs(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	if err := h.enqueuer.EnqueueRefresh(r.Context(), h.dataset, requestID); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{
		"status":     "queued",
		"request_id": requestID,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, httpx.ErrValidation) && h.logger != nil {
		h.logger.Error("report request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

// parseSwitches reads the two allocation switches from the query string.
// Both default to on; "0" or "false" turns one off.
func parseSwitches(r *http.Request) prorrateo.Switches {
	return prorrateo.Switches{
		RedistributeSharedServices: parseBoolDefault(r.URL.Query().Get("serv_generales"), true),
		ApplyFactoryTransfer:       parseBoolDefault(r.URL.Query().Get("fabrica"), true),
	}
}

func parseBoolDefault(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

// parseWindow maps the ventana parameter to a window size. "anual" selects
// the three annual snapshots; otherwise 6 or 12 months, defaulting to 12.
func parseWindow(raw string) (int, bool) {
	switch raw {
	case "anual":
		return WindowAnnual, true
	case "6":
		return WindowSix, false
	case "", "12":
		return WindowTwelve, false
	default:
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n, false
		}
		return WindowTwelve, false
	}
}
