package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	appointmenthandler "github.com/psyconnect/psyconnect-api/internal/handler/appointment"
	authhandler "github.com/psyconnect/psyconnect-api/internal/handler/auth"
	healthhandler "github.com/psyconnect/psyconnect-api/internal/handler/health"
	psychiatristhandler "github.com/psyconnect/psyconnect-api/internal/handler/psychiatrist"
	"github.com/psyconnect/psyconnect-api/internal/middleware"
	"github.com/psyconnect/psyconnect-api/internal/model"
)

type Router struct {
	engine         *gin.Engine
	auth           *middleware.AuthMiddleware
	healthH        *healthhandler.Handler
	authH          *authhandler.Handler
	psychiatristH  *psychiatristhandler.Handler
	appointmentH   *appointmenthandler.Handler
	metrics        *routerMetrics
	metricsHandler gin.HandlerFunc
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type Config struct {
	RateLimit     rate.Limit
	RateBurst     int
	CORSConfig    middleware.CORSConfig
	Timeout       time.Duration
	MetricsPrefix string
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH *healthhandler.Handler,
	authH *authhandler.Handler,
	psychiatristH *psychiatristhandler.Handler,
	appointmentH *appointmenthandler.Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := model.RegisterValidations(v); err != nil {
			panic(fmt.Sprintf("failed to register validations: %v", err))
		}
	}

	engine := gin.New()

	registry := prometheus.NewRegistry()
	metrics := initRouterMetrics(config.MetricsPrefix)
	registry.MustRegister(metrics.requestDuration, metrics.requestTotal, metrics.errorTotal)

	r := &Router{
		engine:         engine,
		auth:           auth,
		healthH:        healthH,
		authH:          authH,
		psychiatristH:  psychiatristH,
		appointmentH:   appointmentH,
		metrics:        metrics,
		metricsHandler: gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	}

	if config.Timeout <= 0 {
		config.Timeout = middleware.DefaultTimeoutConfig().Duration
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.Timeout}),
	)

	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.healthH.RegisterRoutes(api)
	api.GET("/health/metrics", r.metricsHandler)

	// Public surface: directory reads, request submission, auth.
	r.authH.RegisterRoutes(api)
	r.psychiatristH.RegisterPublicRoutes(api)
	r.appointmentH.RegisterPublicRoutes(api)

	// Authenticated surface.
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.appointmentH.RegisterProtectedRoutes(protected)

	// Admin surface. Directory mutations live on the public paths behind
	// the admin role; the full request listing gets its own prefix so it
	// does not collide with the per-role listing.
	adminGuard := api.Group("")
	adminGuard.Use(r.auth.Authenticate(), r.auth.RequireRole(model.RoleAdmin))
	r.psychiatristH.RegisterAdminRoutes(adminGuard)

	admin := api.Group("/admin")
	admin.Use(r.auth.Authenticate(), r.auth.RequireRole(model.RoleAdmin))
	r.appointmentH.RegisterAdminRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
