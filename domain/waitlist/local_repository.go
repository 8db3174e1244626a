package waitlist

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/akeren/waitlist-foundry/internal/models"
	apperrors "github.com/akeren/waitlist-foundry/pkg/errors"
	"github.com/akeren/waitlist-foundry/pkg/kvstore"
	"github.com/google/uuid"
)

// localWaitlistRepository keeps every entry as one JSON array in a single
// kvstore slot. Each upsert rewrites the whole slot.
type localWaitlistRepository struct {
	store  kvstore.Store
	slot   string
	logger *log.Logger
	now    func() time.Time
	newID  func() string

	mu sync.Mutex
}

func NewLocalWaitlistRepository(store kvstore.Store, slot string, logger *log.Logger) WaitlistRepository {
	return newLocalWaitlistRepository(store, slot, logger)
}

func newLocalWaitlistRepository(store kvstore.Store, slot string, logger *log.Logger) *localWaitlistRepository {
	return &localWaitlistRepository{
		store:  store,
		slot:   slot,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

func (r *localWaitlistRepository) Backend() string {
	return BackendLocal
}

func (r *localWaitlistRepository) UpsertEntry(ctx context.Context, patch EntryPatch) (*models.WaitlistEntry, error) {
	email := NormalizeEmail(patch.Email)
	if email == "" {
		return nil, apperrors.NewInvalidRequestError("email is required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if locker, ok := r.store.(kvstore.Locker); ok {
		unlock, err := locker.Lock(ctx, r.slot)
		if err != nil {
			return nil, apperrors.NewStoreError("unable to lock local waitlist storage", err)
		}
		defer func() {
			if err := unlock(); err != nil {
				r.loggerFor(ctx).Warn("Failed to release local waitlist lock", "slot", r.slot, "error", err)
			}
		}()
	}

	entries, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	stamp := patch.UpdatedAt
	if stamp.IsZero() {
		stamp = r.now()
	}
	stamp = stamp.UTC()

	index := -1
	for i := range entries {
		if NormalizeEmail(entries[i].Email) == email {
			index = i
			break
		}
	}

	if index >= 0 {
		existing := &entries[index]
		if patch.CompletedSignup != nil {
			existing.CompletedSignup = *patch.CompletedSignup
		}
		if !stamp.After(existing.UpdatedAt) {
			stamp = existing.UpdatedAt.Add(time.Nanosecond)
		}
		existing.UpdatedAt = stamp
	} else {
		created := stamp
		if !patch.CreatedAt.IsZero() {
			created = patch.CreatedAt.UTC()
		}
		entries = append(entries, models.WaitlistEntry{
			ID:              r.newID(),
			Email:           email,
			CompletedSignup: patch.CompletedSignup != nil && *patch.CompletedSignup,
			CreatedAt:       created,
			UpdatedAt:       stamp,
		})
		index = len(entries) - 1
	}

	stored := entries[index]
	if err := r.save(ctx, entries); err != nil {
		return nil, err
	}

	return &stored, nil
}

func (r *localWaitlistRepository) ListEntries(ctx context.Context) ([]models.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load(ctx)
}

func (r *localWaitlistRepository) load(ctx context.Context) ([]models.WaitlistEntry, error) {
	raw, err := r.store.Get(ctx, r.slot)
	if err != nil {
		return nil, apperrors.NewStoreError("unable to read local waitlist storage", err)
	}

	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var entries []models.WaitlistEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		r.loggerFor(ctx).Warn("Local waitlist storage is unreadable; treating it as empty", "slot", r.slot, "error", err)
		return nil, nil
	}

	return entries, nil
}

func (r *localWaitlistRepository) save(ctx context.Context, entries []models.WaitlistEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return apperrors.NewStoreError("unable to encode local waitlist entries", err)
	}

	if err := r.store.Set(ctx, r.slot, string(payload)); err != nil {
		return apperrors.NewStoreError("unable to write local waitlist storage", err)
	}

	return nil
}

func (r *localWaitlistRepository) loggerFor(ctx context.Context) *log.Logger {
	return log.GetLoggerInstanceFromContext(ctx, r.logger)
}
