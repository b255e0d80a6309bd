package classify

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/huentelauquen/backoffice/internal/platform/httpx"
)

// Handler exposes classification groups over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the classification HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Mount registers the classification routes.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/finanzas/config/clasificacion", h.list)
	r.Put("/finanzas/config/clasificacion", h.replace)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if groups == nil {
		groups = []Group{}
	}
	httpx.JSON(w, http.StatusOK, groups)
}

func (h *Handler) replace(w http.ResponseWriter, r *http.Request) {
	var inputs []GroupInput
	if err := httpx.DecodeJSON(r, &inputs); err != nil {
		h.respondError(w, r, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.service.Replace(r.Context(), inputs); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrDuplicate) && h.logger != nil {
		h.logger.Error("classification request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
