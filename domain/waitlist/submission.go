package waitlist

import "sync"

// SubmissionState tags where a single form submission currently is.
type SubmissionState int

const (
	StateIdle SubmissionState = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s SubmissionState) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Submission tracks one visitor's attempt to join the waitlist. At most one
// attempt is in flight at a time and a successful attempt is terminal until
// Reset.
type Submission struct {
	mu       sync.Mutex
	state    SubmissionState
	email    string
	nextStep string
	message  string
}

func NewSubmission() *Submission {
	return &Submission{}
}

// Begin moves Idle or Failed to Submitting.
func (s *Submission) Begin(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateSubmitting:
		return ErrSubmissionInFlight
	case StateSucceeded:
		return ErrSubmissionSettled
	}

	s.state = StateSubmitting
	s.email = email
	s.nextStep = ""
	s.message = ""
	return nil
}

func (s *Submission) Succeed(nextStep string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSubmitting {
		return
	}
	s.state = StateSucceeded
	s.nextStep = nextStep
	s.message = ""
}

func (s *Submission) Fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSubmitting {
		return
	}
	s.state = StateFailed
	s.message = message
}

func (s *Submission) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateIdle
	s.email = ""
	s.nextStep = ""
	s.message = ""
}

func (s *Submission) State() SubmissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Submission) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email
}

func (s *Submission) NextStep() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStep
}

func (s *Submission) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}
