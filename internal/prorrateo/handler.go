package prorrateo

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/huentelauquen/backoffice/internal/platform/httpx"
)

// Handler exposes the allocation configuration over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the configuration HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Mount registers the configuration routes.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/finanzas/config/prorrateo", h.getAllocation)
	r.Put("/finanzas/config/prorrateo", h.putAllocation)
	r.Get("/finanzas/config/costeo", h.getFactory)
	r.Put("/finanzas/config/costeo", h.putFactory)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrNotFound) && h.logger != nil {
		h.logger.Error("config request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) getAllocation(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Load(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"config_cuentas":   cfg.AccountRules,
		"reglas_mensuales": cfg.PeriodRules,
	})
}

func (h *Handler) putAllocation(w http.ResponseWriter, r *http.Request) {
	var input AllocationInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.respondError(w, r, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.service.UpdateAllocation(r.Context(), input); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) getFactory(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Load(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cfg.Factory)
}

func (h *Handler) putFactory(w http.ResponseWriter, r *http.Request) {
	var input FactoryInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.respondError(w, r, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.service.UpdateFactory(r.Context(), input); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
