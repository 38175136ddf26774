package stock

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sdthai/backoffice/internal/platform/httpx"
)

// Handler exposes the inventory ledger over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock/lots", h.ListLots)
	r.Post("/stock/lots", h.CreateLot)
	r.Get("/stock/lots/{id}", h.GetLot)
	r.Post("/stock/lots/{id}/adjust", h.Adjust)
	r.Get("/stock/lots/{id}/movements", h.Movements)
	r.Get("/stock/summary", h.Summary)
	r.Get("/stock/alerts", h.AlertsView)
	r.Post("/stock/reserve/{orderId}", h.Reserve)
	r.Post("/stock/release/{orderId}", h.Release)
}

func (h *Handler) CreateLot(w http.ResponseWriter, r *http.Request) {
	var req CreateLotRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lot, err := h.service.CreateLot(r.Context(), req)
	if err != nil {
		h.logger.Error("create stock lot failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lot)
}

func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	lot, err := h.service.Adjust(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lot)
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.service.Reserve(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reservations": reservations})
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Release(r.Context(), chi.URLParam(r, "orderId")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"released": true})
}

func (h *Handler) GetLot(w http.ResponseWriter, r *http.Request) {
	lot, err := h.service.GetLot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lot)
}

func (h *Handler) ListLots(w http.ResponseWriter, r *http.Request) {
	var productID *string
	if v := r.URL.Query().Get("productId"); v != "" {
		productID = &v
	}
	lots, err := h.service.ListLots(r.Context(), productID)
	if err != nil {
		h.logger.Error("list stock lots failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lots)
}

func (h *Handler) Movements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.service.Movements(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	var productID *string
	if v := r.URL.Query().Get("productId"); v != "" {
		productID = &v
	}
	summary, err := h.service.Summary(r.Context(), productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) AlertsView(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.Alerts(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, alerts)
}
