package returns

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sdthai/backoffice/internal/platform/httpx"
)

// Handler exposes the return flow over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers return routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/returns", h.List)
	r.Post("/returns", h.Create)
	r.Get("/returns/{id}", h.Get)
	r.Post("/returns/{id}/approve", h.Approve)
	r.Post("/returns/{id}/reject", h.Reject)
	r.Post("/returns/{id}/process", h.Process)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateReturnRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ret, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create return failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ret)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	ret, err := h.service.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ret)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	ret, err := h.service.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ret)
}

func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	ret, err := h.service.Process(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("process return failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ret)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ret, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ret)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListReturnsRequest{}
	q := r.URL.Query()
	if v := q.Get("partnerId"); v != "" {
		req.PartnerID = &v
	}
	if v := q.Get("status"); v != "" {
		status := Status(v)
		req.Status = &status
	}
	list, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list returns failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}
