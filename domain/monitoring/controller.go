package monitoring

import (
	"context"
	"time"

	"github.com/akeren/waitlist-foundry/config/router"
	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/akeren/waitlist-foundry/internal/mode"
	"github.com/akeren/waitlist-foundry/pkg/kvstore"
	"github.com/akeren/waitlist-foundry/pkg/ratelimit"
	"gorm.io/gorm"
)

const (
	monitoringRequestsPerMinute = 10
	healthCheckTimeout          = 3 * time.Second
	healthProbeSlot             = "health_probe"
)

type Cache interface {
	Ping(ctx context.Context) error
}

// Pinger is a remote backend that can answer a cheap liveness request.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthStatus struct {
	Mode       string `json:"mode"`        // "remote" or "local"
	Database   int    `json:"database"`    // 1 = healthy, 0 = unhealthy/not used
	Remote     int    `json:"remote"`      // 1 = REST endpoint reachable, 0 = unreachable/not used
	Cache      int    `json:"cache"`       // 1 = healthy, 0 = unhealthy/not configured
	LocalStore int    `json:"local_store"` // 1 = readable, 0 = unreadable
	Uptime     int    `json:"uptime"`      // uptime in seconds
}

// Dependencies lists what the health check probes. Any of DB, Remote and
// Cache may be nil.
type Dependencies struct {
	DB         *gorm.DB
	Remote     Pinger
	Cache      Cache
	Selector   mode.ModeSelector
	LocalStore kvstore.Store
	Logger     *log.Logger
}

type MonitoringController struct {
	deps      Dependencies
	startTime time.Time
}

func NewMonitoringController(deps Dependencies) *router.RESTController {
	ctrl := &MonitoringController{
		deps:      deps,
		startTime: time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(routerService *router.RouterService, controller *router.RESTController) {
			monitoringRateLimiter := createMonitoringRateLimiter()

			routerService.AddGetHandler(controller, monitoringRateLimiter, "", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.monitor(c)
			})

			routerService.AddGetHandler(controller, monitoringRateLimiter, "health", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.healthCheck(routerService, c)
			})
		},
	)
}

func createMonitoringRateLimiter() ratelimit.RateLimiter {
	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: monitoringRequestsPerMinute,
		Window:   time.Minute,
	})
}

func (ctrl *MonitoringController) healthCheck(
	routerService *router.RouterService,
	c *router.RequestContext,
) *router.ServiceResult {
	logger := routerService.GetLogger(c)
	logger.Debug("Health check endpoint called")

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	return router.OKResult(ctrl.performHealthChecks(ctx, logger), "waitlist-foundry health check completed")
}

func (ctrl *MonitoringController) monitor(
	c *router.RequestContext,
) *router.ServiceResult {
	return router.OKResult("Waitlist service is operational.", "Monitoring successful")
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{
		Mode:   mode.Local,
		Uptime: int(time.Since(ctrl.startTime).Seconds()),
	}
	if ctrl.deps.Selector != nil {
		status.Mode = ctrl.deps.Selector.Mode()
	}

	status.Database = probe(ctx, logger, "database", ctrl.pingDatabase())
	status.Remote = probe(ctx, logger, "remote", pingerOrNil(ctrl.deps.Remote))
	status.Cache = probe(ctx, logger, "cache", pingerOrNil(ctrl.deps.Cache))
	status.LocalStore = probe(ctx, logger, "local_store", ctrl.readLocalStore())

	return status
}

// probe returns 1 when check succeeds, 0 when it fails or is nil.
func probe(ctx context.Context, logger *log.Logger, name string, check func(context.Context) error) int {
	if check == nil {
		logger.Debug("Health check skipped; dependency not configured", "dependency", name)
		return 0
	}

	if err := check(ctx); err != nil {
		logger.Error("Health check failed", "dependency", name, "error", err)
		return 0
	}

	return 1
}

func pingerOrNil(p interface{ Ping(context.Context) error }) func(context.Context) error {
	if p == nil {
		return nil
	}
	return p.Ping
}

func (ctrl *MonitoringController) pingDatabase() func(context.Context) error {
	if ctrl.deps.DB == nil {
		return nil
	}

	return func(ctx context.Context) error {
		sqlDB, err := ctrl.deps.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func (ctrl *MonitoringController) readLocalStore() func(context.Context) error {
	if ctrl.deps.LocalStore == nil {
		return nil
	}

	return func(ctx context.Context) error {
		_, err := ctrl.deps.LocalStore.Get(ctx, healthProbeSlot)
		return err
	}
}
