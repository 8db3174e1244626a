package domain

import (
	"github.com/akeren/waitlist-foundry/config"
	"github.com/akeren/waitlist-foundry/domain/monitoring"
	"github.com/akeren/waitlist-foundry/domain/waitlist"
	"github.com/akeren/waitlist-foundry/pkg/factory"
)

func SetupCoreDomain(appConfig *config.ApplicationConfig) {
	appConfig.RouterService.MountController(monitoring.NewMonitoringControllerFactory(monitoringDependencies(appConfig)).CreateController())
	appConfig.RouterService.MountController(NewWaitlistServiceFactory(appConfig).CreateController())
}

// NewWaitlistServiceFactory assembles the waitlist service from the loaded
// application configuration.
func NewWaitlistServiceFactory(appConfig *config.ApplicationConfig) waitlist.WaitlistServiceFactory {
	limiters := factory.NewFactoryContainer(&factory.RateLimitConfig{
		Requests: appConfig.Config.RateLimitRequests,
		Window:   appConfig.Config.RateLimitWindow,
		Logger:   appConfig.Logger,
	}, appConfig.Cache)

	deps := waitlist.FactoryDependencies{
		Logger:      appConfig.Logger,
		Selector:    appConfig.Selector,
		Driver:      appConfig.Waitlist.RemoteDriver,
		DB:          appConfig.DB,
		LocalStore:  appConfig.LocalStore,
		LocalSlot:   appConfig.Waitlist.LocalSlot,
		NextStepURL: appConfig.Waitlist.NextStepURL,
		Limiters:    limiters.RateLimiterFactory,
		Registerer:  appConfig.RouterService.MetricsRegisterer(),
	}
	if appConfig.RESTClient != nil {
		deps.RESTClient = appConfig.RESTClient
	}

	return waitlist.NewWaitlistServiceFactory(deps)
}

func monitoringDependencies(appConfig *config.ApplicationConfig) monitoring.Dependencies {
	deps := monitoring.Dependencies{
		DB:         appConfig.DB,
		Selector:   appConfig.Selector,
		LocalStore: appConfig.LocalStore,
		Logger:     appConfig.Logger,
	}
	if appConfig.RESTClient != nil {
		deps.Remote = appConfig.RESTClient
	}
	if appConfig.Cache != nil {
		deps.Cache = appConfig.Cache
	}
	return deps
}
