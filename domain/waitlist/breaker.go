package waitlist

import (
	"context"
	"errors"

	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/akeren/waitlist-foundry/internal/models"
	"github.com/akeren/waitlist-foundry/pkg/circuitbreaker"
	apperrors "github.com/akeren/waitlist-foundry/pkg/errors"
)

type breakerRepository struct {
	next    WaitlistRepository
	breaker circuitbreaker.CircuitBreaker
}

// WithCircuitBreaker fails fast once the wrapped backend keeps failing.
// Rejected input does not count against the circuit. A nil cfg takes the
// circuitbreaker defaults.
func WithCircuitBreaker(next WaitlistRepository, cfg *circuitbreaker.Config, logger *log.Logger) WaitlistRepository {
	if cfg == nil {
		cfg = circuitbreaker.DefaultConfig()
	}

	bound := *cfg
	bound.IsFailure = func(err error) bool {
		return apperrors.GetErrorType(err) != apperrors.ErrorTypeInvalidRequest
	}
	if logger != nil {
		backend := next.Backend()
		bound.OnStateChange = func(from, to circuitbreaker.CircuitState) {
			logger.Warn("Remote waitlist circuit changed state",
				"backend", backend,
				"from", from.String(),
				"to", to.String(),
			)
		}
	}

	return &breakerRepository{next: next, breaker: circuitbreaker.NewCircuitBreaker(&bound)}
}

func (b *breakerRepository) Backend() string {
	return b.next.Backend()
}

func (b *breakerRepository) UpsertEntry(ctx context.Context, patch EntryPatch) (*models.WaitlistEntry, error) {
	var entry *models.WaitlistEntry

	err := b.breaker.Call(func() error {
		var err error
		entry, err = b.next.UpsertEntry(ctx, patch)
		return err
	})

	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return nil, apperrors.NewBackendUnavailableError("remote waitlist backend is temporarily disabled", err)
	}
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// ListEntries passes through when the wrapped backend can list.
func (b *breakerRepository) ListEntries(ctx context.Context) ([]models.WaitlistEntry, error) {
	lister, ok := b.next.(EntryLister)
	if !ok {
		return nil, apperrors.NewInternalServerError("backend "+b.next.Backend()+" cannot list entries", nil)
	}
	return lister.ListEntries(ctx)
}
