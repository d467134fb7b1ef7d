package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/care-booking/internal/handler/admin"
	"github.com/jwalitptl/care-booking/internal/handler/booking"
	"github.com/jwalitptl/care-booking/internal/handler/catalog"
	"github.com/jwalitptl/care-booking/internal/handler/health"
	"github.com/jwalitptl/care-booking/internal/handler/identity"
	"github.com/jwalitptl/care-booking/internal/handler/onboarding"
	"github.com/jwalitptl/care-booking/internal/middleware"
)

type Handlers struct {
	Health     *health.Handler
	Identity   *identity.Handler
	Bookings   *booking.Handler
	Onboarding *onboarding.Handler
	Catalog    *catalog.Handler
	Admin      *admin.Handler
}

type RouterConfig struct {
	Mode             string
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	RequestTimeout   time.Duration
	MaxBodySize      int64
	MetricsPrefix    string
	// Registry backs /metrics and receives the HTTP metrics.
	Registry *prometheus.Registry
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	registry *prometheus.Registry
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config RouterConfig) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	if config.MetricsPrefix == "" {
		config.MetricsPrefix = "care_booking_http"
	}

	engine := gin.New() // Use New() instead of Default() for more control

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		registry: config.Registry,
	}

	// Add core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.NewHTTPMetrics(config.MetricsPrefix, config.Registry).Middleware(),
		middleware.ErrorHandler(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.BodyLimit(config.MaxBodySize),
	)

	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})))

	api := r.engine.Group("/api/v1")

	// Add version header
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.handlers.Health.RegisterRoutes(api)

	// Public routes
	r.handlers.Bookings.RegisterPublicRoutes(api)
	r.handlers.Catalog.RegisterPublicRoutes(api)

	optional := api.Group("")
	optional.Use(r.auth.OptionalAuth())
	r.handlers.Onboarding.RegisterRoutes(optional)

	// Protected routes
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.handlers.Identity.RegisterRoutes(protected)
	r.handlers.Bookings.RegisterRoutes(protected)

	adminOnly := api.Group("")
	adminOnly.Use(r.auth.Authenticate(), r.auth.RequireAdmin())
	r.handlers.Catalog.RegisterAdminRoutes(adminOnly)

	adminGroup := api.Group("/admin")
	adminGroup.Use(r.auth.Authenticate(), r.auth.RequireAdmin())
	r.handlers.Admin.RegisterRoutes(adminGroup)
	r.handlers.Bookings.RegisterAdminRoutes(adminGroup)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
