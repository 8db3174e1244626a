package waitlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmission_HappyPath(t *testing.T) {
	sub := NewSubmission()
	assert.Equal(t, StateIdle, sub.State())

	require.NoError(t, sub.Begin("a@x.io"))
	assert.Equal(t, StateSubmitting, sub.State())
	assert.Equal(t, "a@x.io", sub.Email())

	sub.Succeed("/signup?email=a%40x.io")
	assert.Equal(t, StateSucceeded, sub.State())
	assert.Equal(t, "/signup?email=a%40x.io", sub.NextStep())
	assert.Empty(t, sub.Message())
}

func TestSubmission_RejectsSecondBeginWhileInFlight(t *testing.T) {
	sub := NewSubmission()
	require.NoError(t, sub.Begin("a@x.io"))

	assert.ErrorIs(t, sub.Begin("a@x.io"), ErrSubmissionInFlight)
	assert.Equal(t, StateSubmitting, sub.State())
}

func TestSubmission_SucceededIsTerminalUntilReset(t *testing.T) {
	sub := NewSubmission()
	require.NoError(t, sub.Begin("a@x.io"))
	sub.Succeed("/signup")

	assert.ErrorIs(t, sub.Begin("b@x.io"), ErrSubmissionSettled)

	sub.Reset()
	assert.Equal(t, StateIdle, sub.State())
	assert.Empty(t, sub.NextStep())
	require.NoError(t, sub.Begin("b@x.io"))
}

func TestSubmission_FailedAllowsRetry(t *testing.T) {
	sub := NewSubmission()
	require.NoError(t, sub.Begin("a@x.io"))
	sub.Fail(GenericSaveFailureMessage)

	assert.Equal(t, StateFailed, sub.State())
	assert.Equal(t, GenericSaveFailureMessage, sub.Message())

	require.NoError(t, sub.Begin("a@x.io"))
	assert.Equal(t, StateSubmitting, sub.State())
	assert.Empty(t, sub.Message())
}

func TestSubmission_OutcomesIgnoredOutsideSubmitting(t *testing.T) {
	sub := NewSubmission()
	sub.Succeed("/signup")
	sub.Fail("nope")

	assert.Equal(t, StateIdle, sub.State())
	assert.Empty(t, sub.NextStep())
	assert.Empty(t, sub.Message())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.io", NormalizeEmail("  A@X.io \n"))
	assert.Equal(t, NormalizeEmail("Hello@Example.COM"), NormalizeEmail("hello@example.com"))
	assert.Empty(t, NormalizeEmail("   "))
}

func TestNextStepURL(t *testing.T) {
	assert.Equal(t, "/signup?email=a%40x.io", NextStepURL("/signup", "a@x.io"))
	assert.Equal(t, "https://app.example.com/signup?email=a%40x.io&ref=wl", NextStepURL("https://app.example.com/signup?ref=wl", "a@x.io"))
}
