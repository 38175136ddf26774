package pos

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sdthai/backoffice/internal/platform/httpx"
)

// Handler exposes depot point-of-sale over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers point-of-sale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pos/transactions", h.List)
	r.Post("/pos/transactions", h.Create)
	r.Get("/pos/transactions/{id}", h.Get)
	r.Get("/pos/stats", h.StatsView)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	t, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create pos transaction failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	partnerID, from, to, err := rangeParams(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	list, err := h.service.List(r.Context(), partnerID, from, to)
	if err != nil {
		h.logger.Error("list pos transactions failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) StatsView(w http.ResponseWriter, r *http.Request) {
	partnerID, from, to, err := rangeParams(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	stats, err := h.service.Stats(r.Context(), partnerID, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

// rangeParams reads partnerId/from/to query params. Defaults to the
// current day when no range is given; to is exclusive.
func rangeParams(r *http.Request) (*string, time.Time, time.Time, error) {
	q := r.URL.Query()
	var partnerID *string
	if v := q.Get("partnerId"); v != "" {
		partnerID = &v
	}

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 0, 1)
	if v := q.Get("from"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return nil, time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if v := q.Get("to"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return nil, time.Time{}, time.Time{}, err
		}
		to = parsed.AddDate(0, 0, 1)
	}
	return partnerID, from, to, nil
}
