package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/booking-api/internal/handler/prometheus"
	"github.com/jwalitptl/booking-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine       *gin.Engine
	auth         *middleware.AuthMiddleware
	healthH      Handler
	metricsH     *prometheus.Handler
	appointmentH Handler
	providerH    Handler
}

type RouterConfig struct {
	Mode           string
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSConfig     middleware.CORSConfig
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH Handler,
	metricsH *prometheus.Handler,
	appointmentH Handler,
	providerH Handler,
	config RouterConfig,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	engine := gin.New()

	r := &Router{
		engine:       engine,
		auth:         auth,
		healthH:      healthH,
		metricsH:     metricsH,
		appointmentH: appointmentH,
		providerH:    providerH,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		metricsH.Middleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
	)
	if config.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}))
	}
	if config.MaxBodyBytes > 0 {
		engine.Use(middleware.SizeLimit(middleware.SizeLimitConfig{MaxBodySize: config.MaxBodyBytes}))
	}

	r.setup(config)
	return r
}

func (r *Router) setup(config RouterConfig) {
	r.healthH.RegisterRoutes(&r.engine.RouterGroup)
	r.engine.GET("/metrics", r.metricsH.Handler())

	api := r.engine.Group("/api/v1")
	api.Use(r.auth.Authenticate())
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst < 1 {
			burst = 1
		}
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: burst,
		})
		api.Use(rateLimiter.RateLimit())
	}

	r.appointmentH.RegisterRoutes(api)
	r.providerH.RegisterRoutes(api)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
