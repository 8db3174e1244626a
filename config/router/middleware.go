package router

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/akeren/waitlist-foundry/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

const (
	correlationHeader = "X-Correlation-ID"
	corsAllowHeaders  = "Content-Type, Content-Length, Accept, Origin, Cache-Control, X-Requested-With, X-Correlation-ID"
	corsAllowMethods  = "POST, OPTIONS, GET"
)

func (routerService *RouterService) correlationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, id := log.ContextWithCorrelationID(c.Request.Context(), c.GetHeader(correlationHeader))
		c.Request = c.Request.WithContext(ctx)
		c.Header(correlationHeader, id)
		c.Next()
	}
}

func (routerService *RouterService) loggerInjectionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(log.ContextWithLogger(c.Request.Context(), routerService.logger))
		c.Next()
	}
}

func (routerService *RouterService) requestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		routerService.logger.WithCorrelationID(c.Request.Context()).Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_addr", c.ClientIP(),
		)
	}
}

func (routerService *RouterService) securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		if routerService.servedOverHTTPS(c) {
			h.Set("Strict-Transport-Security", routerService.settings.hstsValue())
		}
		c.Next()
	}
}

func (routerService *RouterService) servedOverHTTPS(c *gin.Context) bool {
	if !routerService.settings.HSTSEnabled {
		return false
	}
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")), "https")
}

func (routerService *RouterService) maxBodySizeMiddleware() gin.HandlerFunc {
	limit := routerService.settings.MaxBodyBytes

	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			abortWith(c, http.StatusRequestEntityTooLarge, "Request payload too large")
			return
		}
		// Chunked bodies are cut off while reading; BindRequest reports them.
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

func (routerService *RouterService) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		if !routerService.settings.originAllowed(origin) {
			routerService.logger.Warn("CORS origin not allowed", "origin", origin)
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		h.Add("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// timeoutMiddleware only attaches a deadline. Handlers run inline because
// gin.Context must not be shared across goroutines.
func (routerService *RouterService) timeoutMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), routerService.requestTimeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			routerService.logger.WithCorrelationID(ctx).Warn("Request timeout detected", "path", c.Request.URL.Path)
			abortWith(c, http.StatusRequestTimeout, "Request timeout")
		}
	}
}

// limiterFor resolves the limiter of a route. A handler override beats a
// controller override, which beats the router default.
func (routerService *RouterService) limiterFor(c *gin.Context) (ratelimit.RateLimiter, bool) {
	handlerKey := routeKey(c.Request.Method, c.FullPath())
	controller, ok := routerService.handlerToControllerMap[handlerKey]
	if !ok || controller == nil {
		return nil, false
	}

	if limiter, ok := routerService.rateLimitOverrides[handlerKey]; ok {
		return limiter, true
	}
	if limiter, ok := routerService.rateLimitOverrides[controller.mountPoint]; ok {
		return limiter, true
	}
	return routerService.rateLimiter, true
}

func (routerService *RouterService) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter, routed := routerService.limiterFor(c)
		if !routed {
			// Unknown routes fall through to NoRoute/NoMethod.
			c.Next()
			return
		}
		if limiter == nil {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		limit, window := limiter.GetLimitDetails()
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Window", window.String())

		limited, err := limiter.IsLimited(c.Request.Context(), "ratelimit:"+clientIP)
		if err != nil {
			// A broken limiter must not take the site down.
			routerService.logger.Error("Rate limiter error", "error", err, "client_ip", clientIP)
			c.Next()
			return
		}
		if !limited {
			c.Next()
			return
		}

		retryAfter := strconv.Itoa(max(1, int(math.Ceil(window.Seconds()))))
		routerService.logger.Warn("Rate limit exceeded", "client_ip", clientIP, "path", c.FullPath())
		c.Header("Retry-After", retryAfter)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, TooManyRequestsResult(RateLimitResponse{
			Limit:      limit,
			Window:     window.String(),
			RetryAfter: retryAfter,
		}))
	}
}

func abortWith(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResult(status, message, nil))
}

func (s *Settings) hstsValue() string {
	value := fmt.Sprintf("max-age=%d", s.HSTSMaxAge)
	if s.HSTSIncludeSubdomains {
		value += "; includeSubDomains"
	}
	return value
}
