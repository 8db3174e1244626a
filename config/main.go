package config

import (
	"context"
	"time"

	"github.com/akeren/waitlist-foundry/config/router"
	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/akeren/waitlist-foundry/internal/mode"
	"github.com/akeren/waitlist-foundry/pkg/constants"
	"github.com/akeren/waitlist-foundry/pkg/kvstore"
	"github.com/akeren/waitlist-foundry/pkg/migrations"
	"github.com/akeren/waitlist-foundry/pkg/postgrest"
	"github.com/akeren/waitlist-foundry/pkg/utils"
	"gorm.io/gorm"
)

type ApplicationConfig struct {
	// DB is only opened for the postgres driver when the remote backend is usable.
	DB              *gorm.DB
	RESTClient      *postgrest.Client
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Config          *AppConfig
	Waitlist        *WaitlistConfig
	Selector        *mode.Selector
	LocalStore      kvstore.Store
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
}

const defaultShutdownTimeout = 30 * time.Second

func NewAppConfig() *AppConfig {
	return &AppConfig{
		RateLimitRequests: int(utils.GetEnvPositiveInt64("RATE_LIMIT_REQUESTS", constants.DefaultRateLimitRequests)),
		RateLimitWindow:   utils.GetEnvPositiveDuration("RATE_LIMIT_WINDOW", constants.DefaultRateLimitWindow()),
		RequestTimeout:    utils.GetEnvPositiveDuration("REQUEST_TIMEOUT", router.DefaultTimeoutDuration),
		ShutdownTimeout:   utils.GetEnvPositiveDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	if ac.Cache != nil {
		CloseCache(ac.Cache, ac.Logger)
	}

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	waitlistConfig, err := LoadWaitlistConfig()
	if err != nil {
		return nil, err
	}

	selector := waitlistConfig.NewSelector()
	logger.Info("Waitlist persistence mode selected",
		"mode", selector.Mode(),
		"driver", waitlistConfig.RemoteDriver,
	)

	tracingShutdown, err := SetupTracing(logger, selector.Mode())
	if err != nil {
		return nil, err
	}

	appConfig := &ApplicationConfig{
		Logger:          logger,
		Config:          NewAppConfig(),
		Waitlist:        waitlistConfig,
		Selector:        selector,
		TracingShutdown: tracingShutdown,
	}

	if selector.IsRemoteUsable() {
		if err := appConfig.connectRemote(autoMigrate); err != nil {
			appConfig.Cleanup()
			return nil, err
		}
	}

	appConfig.Cache = NewCacheConfig().NewCacheOrNil(logger)
	appConfig.LocalStore = waitlistConfig.NewLocalStore(logger, appConfig.Cache)

	appConfig.RouterService = router.CreateRouterService(logger, appConfig.Cache, &router.RouterConfig{
		RateLimitRequests: appConfig.Config.RateLimitRequests,
		RateLimitWindow:   appConfig.Config.RateLimitWindow,
		RequestTimeout:    appConfig.Config.RequestTimeout,
	})

	logger.Info("Application configuration loaded successfully")

	return appConfig, nil
}

func (ac *ApplicationConfig) connectRemote(autoMigrate bool) error {
	switch ac.Waitlist.RemoteDriver {
	case RemoteDriverPostgres:
		dsn, err := ac.Waitlist.PostgresDSN()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := NewDatabase(ctx, ac.Logger, dsn, nil)
		if err != nil {
			return err
		}
		ac.DB = db

		if autoMigrate {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return migrations.Up(ctx, sqlDB, migrations.Config{
				Dir:    utils.GetEnvTrimmed("MIGRATIONS_DIR"),
				Logger: ac.Logger,
			})
		}
	default:
		client, err := ac.Waitlist.NewRESTClient()
		if err != nil {
			ac.Logger.Error("Invalid waitlist REST endpoint", "error", err)
			return err
		}
		ac.RESTClient = client

		if autoMigrate {
			ac.Logger.Warn("--auto-migrate has no effect with the rest driver; apply db/migrations through the CLI instead")
		}
	}

	return nil
}
