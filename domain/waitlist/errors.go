package waitlist

import "errors"

// GenericSaveFailureMessage is the only text a visitor sees when a write fails.
const GenericSaveFailureMessage = "Failed to save email. Please try again."

var (
	ErrSubmissionInFlight = errors.New("waitlist: a submission is already in flight")
	ErrSubmissionSettled  = errors.New("waitlist: submission already succeeded")
)
