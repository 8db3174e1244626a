package waitlist

import (
	"context"
	"time"

	"github.com/akeren/waitlist-foundry/internal/models"
	"github.com/akeren/waitlist-foundry/pkg/constants"
	apperrors "github.com/akeren/waitlist-foundry/pkg/errors"
	"github.com/akeren/waitlist-foundry/pkg/postgrest"
)

// Upserter is the part of the PostgREST client the repository needs.
type Upserter interface {
	Upsert(ctx context.Context, table, onConflict string, rows any, out any) error
}

// restRow never carries created_at: merge-duplicates rewrites every column
// in the body, so the table default stamps new rows instead.
type restRow struct {
	Email           string    `json:"email"`
	CompletedSignup *bool     `json:"completed_signup,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type restWaitlistRepository struct {
	client Upserter
	now    func() time.Time
}

// NewRESTWaitlistRepository writes entries through a PostgREST table endpoint.
func NewRESTWaitlistRepository(client Upserter) WaitlistRepository {
	return &restWaitlistRepository{client: client, now: time.Now}
}

func (r *restWaitlistRepository) Backend() string {
	return BackendREST
}

func (r *restWaitlistRepository) UpsertEntry(ctx context.Context, patch EntryPatch) (*models.WaitlistEntry, error) {
	email := NormalizeEmail(patch.Email)
	if email == "" {
		return nil, apperrors.NewInvalidRequestError("email is required", nil)
	}

	stamp := patch.UpdatedAt
	if stamp.IsZero() {
		stamp = r.now()
	}

	rows := []restRow{{
		Email:           email,
		CompletedSignup: patch.CompletedSignup,
		UpdatedAt:       stamp.UTC(),
	}}

	var stored []models.WaitlistEntry
	if err := r.client.Upsert(ctx, constants.WaitlistTableName, "email", rows, &stored); err != nil {
		if pErr, ok := postgrest.AsError(err); ok {
			if pErr.IsConflict() {
				return nil, apperrors.NewBackendUnavailableError("waitlist endpoint reported a constraint violation: "+pErr.Message, err)
			}
			return nil, apperrors.NewBackendUnavailableError("waitlist endpoint rejected upsert: "+pErr.Message, err)
		}
		return nil, apperrors.NewBackendUnavailableError("unable to reach waitlist endpoint", err)
	}

	if len(stored) == 0 {
		return nil, apperrors.NewBackendUnavailableError("waitlist endpoint returned no representation", nil)
	}

	return &stored[0], nil
}
