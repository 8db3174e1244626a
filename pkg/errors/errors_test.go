package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode_BackendAndStoreErrors(t *testing.T) {
	assert.Equal(t, StatusServiceUnavailable, HTTPStatusCode(NewBackendUnavailableError("remote down", nil)))
	assert.Equal(t, StatusInternalServerError, HTTPStatusCode(NewStoreError("disk full", nil)))
	assert.Equal(t, StatusBadRequest, HTTPStatusCode(NewInvalidRequestError("bad email", nil)))
}

func TestWithMessage_KeepsTypeAndCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:443: connection refused")
	backendErr := NewBackendUnavailableError("remote upsert failed", cause)

	collapsed := WithMessage(backendErr, "Failed to save email. Please try again.")

	assert.Equal(t, ErrorTypeBackendUnavailable, GetErrorType(collapsed))
	assert.Equal(t, "Failed to save email. Please try again.", GetHumanReadableMessage(collapsed))
	assert.ErrorIs(t, collapsed, cause)
}

func TestWithMessage_UnknownBecomesInternal(t *testing.T) {
	collapsed := WithMessage(fmt.Errorf("boom"), "generic")
	assert.Equal(t, ErrorTypeInternalServerError, GetErrorType(collapsed))
	assert.Equal(t, StatusInternalServerError, HTTPStatusCode(collapsed))
}

func TestGetHumanReadableMessage_DoesNotLeakPlainErrors(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred", GetHumanReadableMessage(errors.New("pq: password authentication failed")))
}

type signupForm struct {
	Email string `json:"email" form:"email" binding:"required,email,max=255"`
	Note  string `form:"note" validate:"max=3"`
}

func TestFormatValidationErrors_UsesWireNames(t *testing.T) {
	v := validator.New()
	v.SetTagName("binding")

	err := v.Struct(signupForm{Email: "nope"})
	formatted := FormatValidationErrors(err, &signupForm{})

	assert.Equal(t, []ValidationErrorResponse{{Field: "email", Message: "Please enter a valid email address."}}, formatted)
}

func TestFormatValidationErrors_ParamMessagesAndFormFallback(t *testing.T) {
	err := validator.New().Struct(signupForm{Note: "toolong"})
	formatted := FormatValidationErrors(err, &signupForm{})

	assert.Equal(t, []ValidationErrorResponse{{Field: "note", Message: "Must not exceed 3 characters"}}, formatted)
}

func TestFormatValidationErrors_TypeAndOtherErrors(t *testing.T) {
	typeErr := &json.UnmarshalTypeError{Field: "email", Type: reflect.TypeOf(""), Value: "number"}
	formatted := FormatValidationErrors(fmt.Errorf("bind: %w", typeErr), nil)
	assert.Len(t, formatted, 1)
	assert.Equal(t, "email", formatted[0].Field)

	assert.Empty(t, FormatValidationErrors(errors.New("EOF"), nil))
	assert.Empty(t, FormatValidationErrors(nil, nil))
}

func TestHTTPStatusCode_UntypedAndNil(t *testing.T) {
	assert.Equal(t, StatusInternalServerError, HTTPStatusCode(errors.New("raw")))
	assert.Equal(t, StatusInternalServerError, HTTPStatusCode(nil))
	assert.Equal(t, StatusConflict, HTTPStatusCode(NewConflictError("in flight", nil)))
}
