package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/akeren/waitlist-foundry/internal/log"
	apperrors "github.com/akeren/waitlist-foundry/pkg/errors"
	"github.com/akeren/waitlist-foundry/pkg/ratelimit"
	"github.com/akeren/waitlist-foundry/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// DefaultTimeoutDuration bounds a request when REQUEST_TIMEOUT is unset.
const DefaultTimeoutDuration = 30 * time.Second

type Cache interface {
	Ping(ctx context.Context) error
}

// RedisClientProvider is implemented by caches that can share their client
// with the rate limiter.
type RedisClientProvider interface {
	GetClient() *redis.Client
}

type RouterService struct {
	engine         *gin.Engine
	server         *http.Server
	logger         *log.Logger
	rateLimiter    ratelimit.RateLimiter
	requestTimeout time.Duration
	registry       *prometheus.Registry
	settings       *Settings

	handlerToControllerMap map[string]*RESTController
	rateLimitOverrides     map[string]ratelimit.RateLimiter
}

type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	// Settings defaults to LoadSettingsFromEnv when nil.
	Settings *Settings
}

func CreateRouterService(logger *log.Logger, cache Cache, routerConfig *RouterConfig) *RouterService {
	settings := routerConfig.Settings
	if settings == nil {
		settings = LoadSettingsFromEnv()
	}
	if settings.GinMode != "" {
		gin.SetMode(settings.GinMode)
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.RedirectTrailingSlash = true

	rs := &RouterService{
		engine:                 engine,
		logger:                 logger,
		requestTimeout:         routerConfig.RequestTimeout,
		settings:               settings,
		rateLimitOverrides:     make(map[string]ratelimit.RateLimiter),
		handlerToControllerMap: make(map[string]*RESTController),
	}

	rs.trustProxies()
	rs.rateLimiter = newDefaultLimiter(logger, redisClientOf(cache), routerConfig.RateLimitRequests, routerConfig.RateLimitWindow)

	engine.Use(gin.Recovery())
	if utils.IsTracingEnabled() {
		engine.Use(otelgin.Middleware(utils.OTelServiceName()))
		logger.Info("Tracing middleware enabled")
	}
	rs.mountMetrics()

	engine.Use(
		rs.securityHeadersMiddleware(),
		rs.maxBodySizeMiddleware(),
		rs.corsMiddleware(),
		rs.rateLimitMiddleware(),
		rs.timeoutMiddleware(),
		rs.correlationIDMiddleware(),
		rs.loggerInjectionMiddleware(),
		rs.requestLoggingMiddleware(),
	)

	engine.NoRoute(rs.fallbackHandler(http.StatusNotFound, "Route not found"))
	engine.NoMethod(rs.fallbackHandler(http.StatusMethodNotAllowed, "Method not allowed"))

	// Gin's Context is not goroutine-safe, so time limits live on the server.
	rs.server = &http.Server{
		Addr:              ":" + settings.port(),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       routerConfig.RequestTimeout,
		WriteTimeout:      routerConfig.RequestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Router service initialized", "gin_mode", gin.Mode(), "metrics", settings.MetricsEnabled)
	return rs
}

func (routerService *RouterService) trustProxies() {
	proxies := routerService.settings.TrustedProxies
	if err := routerService.engine.SetTrustedProxies(proxies); err != nil {
		routerService.logger.Error("Invalid TRUSTED_PROXIES; disabling trusted proxies", "error", err)
		_ = routerService.engine.SetTrustedProxies(nil)
		return
	}
	if proxies == nil {
		routerService.logger.Info("Trusted proxies disabled (TRUSTED_PROXIES not set)")
	}
}

func redisClientOf(cache Cache) *redis.Client {
	if provider, ok := cache.(RedisClientProvider); ok {
		return provider.GetClient()
	}
	return nil
}

// newDefaultLimiter prefers Redis so limits hold across replicas. An
// unreachable Redis falls back to the in-process limiter.
func newDefaultLimiter(logger *log.Logger, client *redis.Client, requests int, window time.Duration) ratelimit.RateLimiter {
	backend := "memory"
	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable for rate limiting, using in-memory limiter", "error", err)
			client = nil
		} else {
			backend = "redis"
		}
	}

	logger.Info("Rate limiting initialized", "backend", backend, "requests", requests, "window", window)
	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: requests,
		Window:   window,
		Redis:    client,
		Logger:   logger,
	})
}

func (routerService *RouterService) fallbackHandler(status int, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		routerService.logger.WithCorrelationID(c.Request.Context()).Warn(message,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		c.JSON(status, ErrorResult(status, message, nil))
	}
}

func (routerService *RouterService) GetEngine() *gin.Engine {
	return routerService.engine
}

func (routerService *RouterService) GetLogger(c *RequestContext) *log.Logger {
	return routerService.logger.WithCorrelationID(c.Request.Context())
}

func (routerService *RouterService) Cleanup() {
	if routerService.rateLimiter != nil {
		if err := routerService.rateLimiter.Close(); err != nil {
			routerService.logger.Error("Failed to close rate limiter", "error", err)
		}
	}
	routerService.logger.Info("Router service cleanup completed")
}

func (routerService *RouterService) MountController(controller *RESTController) {
	controller.prepare(routerService, controller)

	routerService.logger.Info("Controller mounted",
		"name", controller.name,
		"path", controller.mountPoint,
		"version", controller.version,
		"handlers", controller.handlerCount,
	)
}

// RunHTTPServer blocks until the server stops. A graceful Shutdown is not
// reported as an error.
func (routerService *RouterService) RunHTTPServer() error {
	routerService.logger.Info("Starting HTTP server", "addr", routerService.server.Addr)

	err := routerService.server.ListenAndServe()
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	routerService.logger.Error("HTTP server stopped", "error", err)
	return apperrors.NewInternalServerError("http server failed", err)
}

func (routerService *RouterService) Shutdown(ctx context.Context) error {
	routerService.logger.Info("Shutting down HTTP server gracefully...")
	return routerService.server.Shutdown(ctx)
}
