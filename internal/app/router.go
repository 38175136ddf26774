package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sdthai/backoffice/internal/delivery"
	"github.com/sdthai/backoffice/internal/masterdata/products"
	"github.com/sdthai/backoffice/internal/orders"
	"github.com/sdthai/backoffice/internal/partners"
	"github.com/sdthai/backoffice/internal/platform/httpx"
	"github.com/sdthai/backoffice/internal/pos"
	"github.com/sdthai/backoffice/internal/production"
	"github.com/sdthai/backoffice/internal/returns"
	"github.com/sdthai/backoffice/internal/stock"
	"github.com/sdthai/backoffice/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
// JobsClient is optional; without it the on-demand job routes are not
// mounted.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	ProductsHandler   *products.Handler
	PartnersHandler   *partners.Handler
	OrdersHandler     *orders.Handler
	StockHandler      *stock.Handler
	ProductionHandler *production.Handler
	DeliveryHandler   *delivery.Handler
	POSHandler        *pos.Handler
	ReturnsHandler    *returns.Handler
	JobsClient        *jobs.Client
}

// NewRouter constructs the chi.Router with the back-office defaults. The
// /api/v1 tree is the authenticated back office; /public serves the
// cached read-only catalog for the marketing site.
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

	r.Route("/api/v1", func(api chi.Router) {
		params.ProductsHandler.MountRoutes(api)
		params.PartnersHandler.MountRoutes(api)
		params.OrdersHandler.MountRoutes(api)
		params.StockHandler.MountRoutes(api)
		params.ProductionHandler.MountRoutes(api)
		params.DeliveryHandler.MountRoutes(api)
		params.POSHandler.MountRoutes(api)
		params.ReturnsHandler.MountRoutes(api)

		if params.JobsClient != nil {
			api.Post("/admin/stock-alert-scan", func(w http.ResponseWriter, r *http.Request) {
				info, err := params.JobsClient.EnqueueStockAlertScan(r.Context(), jobs.StockAlertScanPayload{})
				if err != nil {
					httpx.RespondError(w, err)
					return
				}
				httpx.JSON(w, http.StatusAccepted, map[string]string{"taskId": info.ID})
			})
		}
	})

	r.Route("/public", func(pub chi.Router) {
		params.ProductsHandler.MountPublicRoutes(pub)
		params.PartnersHandler.MountPublicRoutes(pub)
	})

	return r
}
