package waitlist

import (
	"net/url"

	"github.com/akeren/waitlist-foundry/internal/models"
	"github.com/akeren/waitlist-foundry/pkg/constants"
)

type JoinWaitlistRequest struct {
	Email string `json:"email" form:"email" binding:"required,email,max=255"`
}

type CompleteSignupRequest struct {
	Email string `json:"email" form:"email" binding:"required,email,max=255"`
}

type SubmissionResponse struct {
	State    string `json:"state"`
	Email    string `json:"email,omitempty"`
	NextStep string `json:"next_step,omitempty"`
	Message  string `json:"message,omitempty"`
}

type WaitlistEntryResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	CompletedSignup bool   `json:"completed_signup"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// ========================================
// Mappers
// ========================================

func ToEntryPatch(email string, completed bool) EntryPatch {
	return EntryPatch{
		Email:           NormalizeEmail(email),
		CompletedSignup: &completed,
	}
}

func ToSubmissionResponse(sub *Submission) SubmissionResponse {
	if sub == nil {
		return SubmissionResponse{State: StateIdle.String()}
	}
	return SubmissionResponse{
		State:    sub.State().String(),
		Email:    sub.Email(),
		NextStep: sub.NextStep(),
		Message:  sub.Message(),
	}
}

func ToWaitlistEntryResponse(entry *models.WaitlistEntry) WaitlistEntryResponse {
	if entry == nil {
		return WaitlistEntryResponse{}
	}
	return WaitlistEntryResponse{
		ID:              entry.ID,
		Email:           entry.Email,
		CompletedSignup: entry.CompletedSignup,
		CreatedAt:       entry.CreatedAt.Format(constants.RFC3339DateTimeFormat),
		UpdatedAt:       entry.UpdatedAt.Format(constants.RFC3339DateTimeFormat),
	}
}

// NextStepURL appends the email as a query parameter to base, keeping any
// query the base already carries.
func NextStepURL(base, email string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?email=" + url.QueryEscape(email)
	}
	q := u.Query()
	q.Set("email", email)
	u.RawQuery = q.Encode()
	return u.String()
}
