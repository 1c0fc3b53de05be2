package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/weddingringring/wrr-sub001/internal/handler/admin"
	"github.com/weddingringring/wrr-sub001/internal/handler/cron"
	"github.com/weddingringring/wrr-sub001/internal/handler/health"
	"github.com/weddingringring/wrr-sub001/internal/handler/webhook"
	"github.com/weddingringring/wrr-sub001/internal/middleware"
)

type Config struct {
	JWTSecret       string
	SchedulerSecret string
	RateLimit       rate.Limit
	RateBurst       int
	MetricsPrefix   string
}

type Router struct {
	engine   *gin.Engine
	webhookH *webhook.Handler
	adminH   *admin.Handler
	cronH    *cron.Handler
	healthH  *health.Handler
	cfg      Config
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func NewRouter(
	webhookH *webhook.Handler,
	adminH *admin.Handler,
	cronH *cron.Handler,
	healthH *health.Handler,
	cfg Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:   engine,
		webhookH: webhookH,
		adminH:   adminH,
		cronH:    cronH,
		healthH:  healthH,
		cfg:      cfg,
		metrics:  initRouterMetrics(cfg.MetricsPrefix),
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		r.metricsMiddleware(),
	)

	if cfg.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  cfg.RateLimit,
			Burst: cfg.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) Setup() {
	root := r.engine.Group("/")
	r.healthH.RegisterRoutes(root)
	r.webhookH.RegisterRoutes(root)

	jobs := r.engine.Group("/")
	jobs.Use(middleware.CronAuth(r.cfg.SchedulerSecret))
	r.cronH.RegisterRoutes(jobs)

	api := r.engine.Group("/api/v1")
	api.Use(middleware.AdminAuth(r.cfg.JWTSecret))
	r.adminH.RegisterRoutes(api)

	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func initRouterMetrics(prefix string) *routerMetrics {
	if prefix == "" {
		prefix = "http"
	}
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_requests_total",
			Help: "Total HTTP requests",
		}, []string{"path", "method", "status"}),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		r.metrics.requestDuration.WithLabelValues(path, c.Request.Method).
			Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(path, c.Request.Method,
			strconv.Itoa(c.Writer.Status())).Inc()
	}
}
