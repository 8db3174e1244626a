package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/akeren/waitlist-foundry/internal/models"
	apperrors "github.com/akeren/waitlist-foundry/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=waitlist

// EntryPatch carries the fields supplied for one upsert. A nil
// CompletedSignup leaves a stored value unchanged and defaults to false on
// creation. A zero UpdatedAt lets the backend stamp the write. CreatedAt is
// only used when the write creates the entry; a zero value takes the write
// stamp.
type EntryPatch struct {
	Email           string
	CompletedSignup *bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type WaitlistRepository interface {
	// UpsertEntry creates the entry for patch.Email or merges patch into the
	// existing one, returning the stored state.
	UpsertEntry(ctx context.Context, patch EntryPatch) (*models.WaitlistEntry, error)
	// Backend names the persistence backend for logs and metrics.
	Backend() string
}

// EntryLister is implemented by repositories that can enumerate what they hold.
type EntryLister interface {
	ListEntries(ctx context.Context) ([]models.WaitlistEntry, error)
}

const (
	BackendPostgres = "postgres"
	BackendREST     = "rest"
	BackendLocal    = "local"
)

type waitlistRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewWaitlistRepository talks to the waitlist table directly through gorm.
func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db, now: time.Now}
}

func (wr *waitlistRepository) Backend() string {
	return BackendPostgres
}

func (wr *waitlistRepository) UpsertEntry(ctx context.Context, patch EntryPatch) (*models.WaitlistEntry, error) {
	email := NormalizeEmail(patch.Email)
	if email == "" {
		return nil, apperrors.NewInvalidRequestError("email is required", nil)
	}

	stamp := patch.UpdatedAt
	if stamp.IsZero() {
		stamp = wr.now()
	}
	stamp = stamp.UTC()

	created := stamp
	if !patch.CreatedAt.IsZero() {
		created = patch.CreatedAt.UTC()
	}

	entry := &models.WaitlistEntry{
		Email:     email,
		CreatedAt: created,
		UpdatedAt: stamp,
	}
	// created_at is insert-only.
	assignments := []string{"updated_at"}
	if patch.CompletedSignup != nil {
		entry.CompletedSignup = *patch.CompletedSignup
		assignments = append(assignments, "completed_signup")
	}

	err := wr.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns(assignments),
		}).
		Create(entry).Error
	if err != nil {
		return nil, apperrors.NewBackendUnavailableError("unable to upsert waitlist entry", err)
	}

	var stored models.WaitlistEntry
	if err := wr.db.WithContext(ctx).Where("email = ?", email).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewBackendUnavailableError("waitlist entry missing after upsert", err)
		}
		return nil, apperrors.NewBackendUnavailableError("unable to read back waitlist entry", err)
	}

	return &stored, nil
}

func (wr *waitlistRepository) ListEntries(ctx context.Context) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry

	if err := wr.db.WithContext(ctx).Order("created_at").Find(&entries).Error; err != nil {
		return nil, apperrors.NewDatabaseError("unable to fetch waitlist entries", err)
	}

	return entries, nil
}
