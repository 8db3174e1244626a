package waitlist

import (
	"context"
	"time"

	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/akeren/waitlist-foundry/internal/mode"
	"github.com/akeren/waitlist-foundry/internal/models"
	"github.com/akeren/waitlist-foundry/pkg/constants"
	apperrors "github.com/akeren/waitlist-foundry/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/akeren/waitlist-foundry/domain/waitlist"

	invalidEmailMessage = "Please enter a valid email address."
	emailRules          = "required,email,max=255"
)

type WaitlistService interface {
	// Submit records req.Email on the waitlist and drives sub through its
	// states. On success sub carries the next-step URL.
	Submit(ctx context.Context, sub *Submission, req *JoinWaitlistRequest) (*models.WaitlistEntry, error)

	// CompleteSignup marks the entry for req.Email as having finished signup,
	// creating it when it does not exist yet.
	CompleteSignup(ctx context.Context, req *CompleteSignupRequest) (*WaitlistEntryResponse, error)

	// Mode reports which backend the next write would use.
	Mode() string
}

// ServiceDependencies wires a waitlist service. Remote may be nil when the
// selector can never report the remote backend as usable.
type ServiceDependencies struct {
	Logger      *log.Logger
	Selector    mode.ModeSelector
	Remote      WaitlistRepository
	Local       WaitlistRepository
	NextStepURL string
	Registerer  prometheus.Registerer
}

type waitlistService struct {
	logger      *log.Logger
	selector    mode.ModeSelector
	remote      WaitlistRepository
	local       WaitlistRepository
	nextStepURL string
	validate    *validator.Validate
	metrics     *submissionMetrics
	tracer      trace.Tracer
	now         func() time.Time
}

func NewWaitlistService(deps ServiceDependencies) WaitlistService {
	nextStep := deps.NextStepURL
	if nextStep == "" {
		nextStep = constants.DefaultWaitlistNextStepURL
	}

	return &waitlistService{
		logger:      deps.Logger,
		selector:    deps.Selector,
		remote:      deps.Remote,
		local:       deps.Local,
		nextStepURL: nextStep,
		validate:    validator.New(),
		metrics:     newSubmissionMetrics(deps.Registerer),
		tracer:      otel.Tracer(tracerName),
		now:         time.Now,
	}
}

func (s *waitlistService) Mode() string {
	return s.selector.Mode()
}

func (s *waitlistService) Submit(ctx context.Context, sub *Submission, req *JoinWaitlistRequest) (*models.WaitlistEntry, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		logger.Error("Submit received empty request")
		return nil, apperrors.NewInvalidRequestError("request cannot be nil", nil)
	}
	if sub == nil {
		sub = NewSubmission()
	}

	email := NormalizeEmail(req.Email)
	if err := sub.Begin(email); err != nil {
		logger.Warn("Submission rejected", "state", sub.State().String(), "error", err)
		return nil, apperrors.NewConflictError("submission is already in progress or complete", err)
	}

	if err := s.validate.Var(email, emailRules); err != nil {
		sub.Fail(invalidEmailMessage)
		return nil, apperrors.NewInvalidRequestError(invalidEmailMessage, err)
	}

	ctx, span := s.tracer.Start(ctx, "waitlist.Submit")
	defer span.End()

	repository, err := s.repositoryFor()
	if err != nil {
		return nil, s.failure(ctx, span, sub, "", err)
	}
	span.SetAttributes(attribute.String("waitlist.backend", repository.Backend()))

	entry, err := repository.UpsertEntry(ctx, ToEntryPatch(email, false).stampedAt(s.now()))
	if err != nil {
		return nil, s.failure(ctx, span, sub, repository.Backend(), err)
	}

	sub.Succeed(NextStepURL(s.nextStepURL, entry.Email))
	s.metrics.observe(repository.Backend(), outcomeSuccess)
	logger.Info("Waitlist submission saved", "backend", repository.Backend(), "entry_id", entry.ID)

	return entry, nil
}

func (s *waitlistService) CompleteSignup(ctx context.Context, req *CompleteSignupRequest) (*WaitlistEntryResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		logger.Error("CompleteSignup received empty request")
		return nil, apperrors.NewInvalidRequestError("request cannot be nil", nil)
	}

	email := NormalizeEmail(req.Email)
	if err := s.validate.Var(email, emailRules); err != nil {
		return nil, apperrors.NewInvalidRequestError(invalidEmailMessage, err)
	}

	ctx, span := s.tracer.Start(ctx, "waitlist.CompleteSignup")
	defer span.End()

	repository, err := s.repositoryFor()
	if err != nil {
		return nil, s.failure(ctx, span, nil, "", err)
	}
	span.SetAttributes(attribute.String("waitlist.backend", repository.Backend()))

	entry, err := repository.UpsertEntry(ctx, ToEntryPatch(email, true).stampedAt(s.now()))
	if err != nil {
		return nil, s.failure(ctx, span, nil, repository.Backend(), err)
	}

	s.metrics.observe(repository.Backend(), outcomeSuccess)
	logger.Info("Waitlist signup completed", "backend", repository.Backend(), "entry_id", entry.ID)

	response := ToWaitlistEntryResponse(entry)
	return &response, nil
}

func (s *waitlistService) repositoryFor() (WaitlistRepository, error) {
	if !s.selector.IsRemoteUsable() {
		return s.local, nil
	}
	if s.remote == nil {
		return nil, apperrors.NewBackendUnavailableError("remote waitlist backend is not wired", nil)
	}
	return s.remote, nil
}

// failure logs the full cause and returns an error that keeps its type but
// only exposes the generic save failure message.
func (s *waitlistService) failure(ctx context.Context, span trace.Span, sub *Submission, backend string, err error) error {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)
	logger.Error("Failed to save waitlist entry",
		"backend", backend,
		"mode", s.selector.Mode(),
		"error_type", apperrors.GetErrorType(err),
		"error", err,
	)

	span.RecordError(err)
	span.SetStatus(codes.Error, "waitlist write failed")

	if backend != "" {
		s.metrics.observe(backend, outcomeFailure)
	}
	if sub != nil {
		sub.Fail(GenericSaveFailureMessage)
	}

	return apperrors.WithMessage(err, GenericSaveFailureMessage)
}

func (p EntryPatch) stampedAt(t time.Time) EntryPatch {
	p.UpdatedAt = t
	return p
}
