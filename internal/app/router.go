package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jsmart/jsmart-inventory/internal/adjustment"
	"github.com/jsmart/jsmart-inventory/internal/auth"
	"github.com/jsmart/jsmart-inventory/internal/catalog"
	"github.com/jsmart/jsmart-inventory/internal/notify"
	"github.com/jsmart/jsmart-inventory/internal/observability"
	"github.com/jsmart/jsmart-inventory/internal/rbac"
	"github.com/jsmart/jsmart-inventory/internal/shared"
	"github.com/jsmart/jsmart-inventory/internal/stocks"
	"github.com/jsmart/jsmart-inventory/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	CSRFManager       *shared.CSRFManager
	AuthHandler       *auth.Handler
	CatalogHandler    *catalog.Handler
	StocksHandler     *stocks.Handler
	AdjustmentHandler *adjustment.Handler
	NotifyHandler     *notify.Handler
	JobHandler        *jobs.Handler
	RBACMiddleware    rbac.Middleware
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/products", func(r chi.Router) {
		r.Use(params.RBACMiddleware.RequireAny(rbac.PermInventoryView))
		params.CatalogHandler.MountRoutes(r)
	})
	r.Route("/stocks", func(r chi.Router) {
		r.Use(params.RBACMiddleware.RequireAny(rbac.PermInventoryView))
		params.StocksHandler.MountRoutes(r)
	})
	r.Route("/adjustments", func(r chi.Router) {
		r.Route("/form", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAny(rbac.PermAdjustmentsSubmit))
			params.AdjustmentHandler.MountFormRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAny(rbac.PermAdjustmentsSubmit, rbac.PermAdjustmentsReview))
			params.AdjustmentHandler.MountReadRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAny(rbac.PermAdjustmentsReview))
			params.AdjustmentHandler.MountDecisionRoutes(r)
		})
	})
	r.Route("/notifications", params.NotifyHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
