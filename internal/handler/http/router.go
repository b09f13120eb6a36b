package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muhammadjehanzaib/sultan-store/pkg/health"
	"github.com/muhammadjehanzaib/sultan-store/pkg/middleware"
)

const serviceName = "inventory"

// RouterConfig carries the optional router settings.
type RouterConfig struct {
	CORS        middleware.CORSConfig
	PprofCIDRs  []string
	EnablePprof bool
}

// NewRouter creates a chi router with all inventory service routes registered.
func NewRouter(
	svc Service,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.GatewayIdentity)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if cfg.EnablePprof {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	inventoryHandler := NewInventoryHandler(svc, logger)
	variantHandler := NewVariantHandler(svc, logger)
	orderHandler := NewOrderHandler(svc, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		r.Post("/orders", orderHandler.PlaceOrder)
		r.Get("/orders/{orderId}", orderHandler.GetOrder)

		r.Post("/products/{productId}/availability", variantHandler.CheckAvailability)

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/low-stock", inventoryHandler.GetLowStock)
			r.Get("/{productId}", inventoryHandler.GetInventory)
			r.Get("/{productId}/history", inventoryHandler.GetHistory)

			// Admin operations
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(middleware.RoleAdmin))
				r.Post("/bulk", inventoryHandler.BulkAdjust)
				r.Post("/sync", inventoryHandler.SyncAll)
				r.Post("/{productId}/adjust", inventoryHandler.AdjustStock)
				r.Put("/{productId}/threshold", inventoryHandler.SetThreshold)
				r.Post("/{productId}/reconcile", inventoryHandler.Reconcile)
			})
		})

		r.Route("/variants", func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleAdmin))
			r.Post("/{variantId}/adjust", variantHandler.AdjustStock)
			r.Post("/{variantId}/toggle", variantHandler.ToggleAvailability)
		})
	})

	return r
}
