package errors

import (
	"errors"
)

var statusByType = map[string]int{
	ErrorTypeNotFound:            StatusNotFound,
	ErrorTypeInvalidRequest:      StatusBadRequest,
	ErrorTypeConflict:            StatusConflict,
	ErrorTypeUnauthorized:        StatusUnauthorized,
	ErrorTypeForbidden:           StatusForbidden,
	ErrorTypeTooManyRequests:     StatusTooManyRequests,
	ErrorTypeRateLimitExceeded:   StatusTooManyRequests,
	ErrorTypeRequestTimeout:      StatusRequestTimeout,
	ErrorTypeMethodNotAllowed:    StatusMethodNotAllowed,
	ErrorTypeNoContent:           StatusNoContent,
	ErrorTypeBackendUnavailable:  StatusServiceUnavailable,
	ErrorTypeDatabaseError:       StatusInternalServerError,
	ErrorTypeStoreError:          StatusInternalServerError,
	ErrorTypeInternalServerError: StatusInternalServerError,
}

// HTTPStatusCode maps the error type of err to a response status. Untyped
// errors are 500.
func HTTPStatusCode(err error) int {
	if status, ok := statusByType[GetErrorType(err)]; ok {
		return status
	}
	return StatusInternalServerError
}

const unexpectedErrorMessage = "An unexpected error occurred"

// GetHumanReadableMessage returns the AppError message. Other errors get a
// fixed text so driver and network details never reach a client.
func GetHumanReadableMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return unexpectedErrorMessage
}
