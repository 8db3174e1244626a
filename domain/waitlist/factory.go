package waitlist

import (
	"errors"

	"github.com/akeren/waitlist-foundry/config/router"
	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/akeren/waitlist-foundry/internal/mode"
	"github.com/akeren/waitlist-foundry/pkg/circuitbreaker"
	"github.com/akeren/waitlist-foundry/pkg/factory"
	"github.com/akeren/waitlist-foundry/pkg/kvstore"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type WaitlistServiceFactory interface {
	CreateService() WaitlistService
	CreateController() *router.RESTController
	CreateReplayer() (*Replayer, error)
}

// FactoryDependencies are the process-wide collaborators a waitlist service
// is built from. DB is only needed for the postgres driver and RESTClient
// only for the rest driver.
type FactoryDependencies struct {
	Logger      *log.Logger
	Selector    mode.ModeSelector
	Driver      string
	DB          *gorm.DB
	RESTClient  Upserter
	LocalStore  kvstore.Store
	LocalSlot   string
	NextStepURL string
	Breaker     *circuitbreaker.Config
	Limiters    factory.RateLimiterFactory
	Registerer  prometheus.Registerer
}

// DefaultWaitlistServiceFactory builds one local repository and hands it to
// every service and replayer it creates, so they all serialize on the same
// slot lock.
type DefaultWaitlistServiceFactory struct {
	deps  FactoryDependencies
	local *localWaitlistRepository
}

func NewWaitlistServiceFactory(deps FactoryDependencies) WaitlistServiceFactory {
	return &DefaultWaitlistServiceFactory{
		deps:  deps,
		local: newLocalWaitlistRepository(deps.LocalStore, deps.LocalSlot, deps.Logger),
	}
}

func (f *DefaultWaitlistServiceFactory) CreateService() WaitlistService {
	return NewWaitlistService(ServiceDependencies{
		Logger:      f.deps.Logger,
		Selector:    f.deps.Selector,
		Remote:      f.remoteRepository(),
		Local:       f.local,
		NextStepURL: f.deps.NextStepURL,
		Registerer:  f.deps.Registerer,
	})
}

func (f *DefaultWaitlistServiceFactory) CreateController() *router.RESTController {
	return NewWaitlistController(f.CreateService(), f.deps.Limiters)
}

// ErrRemoteNotUsable is returned when an operation needs the remote backend
// but the selector or the wiring rules it out.
var ErrRemoteNotUsable = errors.New("waitlist: remote backend is not usable")

func (f *DefaultWaitlistServiceFactory) CreateReplayer() (*Replayer, error) {
	remote := f.remoteRepository()
	if remote == nil {
		return nil, ErrRemoteNotUsable
	}
	return NewReplayer(f.local, remote, f.deps.Logger), nil
}

// remoteRepository returns nil when the selector rules the remote backend
// out or the driver's collaborator is missing.
func (f *DefaultWaitlistServiceFactory) remoteRepository() WaitlistRepository {
	if f.deps.Selector == nil || !f.deps.Selector.IsRemoteUsable() {
		return nil
	}

	var repository WaitlistRepository
	switch f.deps.Driver {
	case BackendPostgres:
		if f.deps.DB == nil {
			return nil
		}
		repository = NewWaitlistRepository(f.deps.DB)
	default:
		if f.deps.RESTClient == nil {
			return nil
		}
		repository = NewRESTWaitlistRepository(f.deps.RESTClient)
	}

	return WithCircuitBreaker(repository, f.deps.Breaker, f.deps.Logger)
}
