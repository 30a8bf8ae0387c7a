package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hasan-mia/techstore-ui/internal/catalog"
	"github.com/hasan-mia/techstore-ui/pkg/health"
	"github.com/hasan-mia/techstore-ui/pkg/middleware"
)

const serviceName = "storefront"

// RouterConfig carries the dependencies of NewRouter.
type RouterConfig struct {
	Sessions SessionStore
	Catalog  catalog.Provider
	Health   *health.Handler
	Logger   *slog.Logger

	// TokenValidator verifies bearer tokens. Nil accepts guests only.
	TokenValidator middleware.TokenValidator
	RateLimit      middleware.RateLimitConfig
	CORS           middleware.CORSConfig
	PprofCIDRs     []string
}

// NewRouter creates a chi router with all storefront routes registered.
// ctx bounds background work owned by the router, such as rate limiter cleanup.
func NewRouter(ctx context.Context, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	cartHandler := NewCartHandler(cfg.Sessions, cfg.Catalog, logger)
	wishlistHandler := NewWishlistHandler(cfg.Sessions, logger)
	sessionHandler := NewSessionHandler(cfg.Sessions, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(ctx, cfg.RateLimit, logger))
		r.Use(ContentTypeJSON)
		r.Use(middleware.NoStore)
		r.Use(middleware.Session(cfg.TokenValidator, logger))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)

			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productId}", cartHandler.UpdateItemQuantity)
			r.Delete("/items/{productId}", cartHandler.RemoveItem)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", wishlistHandler.GetWishlist)
			r.Post("/{productId}/toggle", wishlistHandler.Toggle)
		})

		r.Post("/session/logout", sessionHandler.Logout)
	})

	return r
}
