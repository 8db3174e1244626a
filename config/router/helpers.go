package router

import (
	"errors"
	"net/http"

	"github.com/akeren/waitlist-foundry/internal/log"
	apperrors "github.com/akeren/waitlist-foundry/pkg/errors"
)

// ServiceResult is the JSON envelope of every response.
type ServiceResult struct {
	StatusCode int    `json:"code"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
}

type RateLimitResponse struct {
	Limit      int    `json:"limit"`
	Window     string `json:"window"`
	RetryAfter string `json:"retry_after"`
}

func GetLogger(ctx *RequestContext) *log.Logger {
	return log.GetLoggerInstanceFromContext(ctx.Request.Context(), nil)
}

// BindRequest fills dst from the JSON body, the form body or the query
// string, whichever the request carries. A non-nil result is the 400
// response to send back.
func BindRequest(ctx *RequestContext, dst any) *ServiceResult {
	err := ctx.ShouldBind(dst)
	if err == nil {
		return nil
	}

	GetLogger(ctx).Warn("Failed to bind request", "path", ctx.FullPath(), "error", err)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return ErrorResult(http.StatusRequestEntityTooLarge, "Request body too large", nil)
	}

	if validationErrors := apperrors.FormatValidationErrors(err, dst); len(validationErrors) > 0 {
		return BadRequestResult("Invalid request payload", validationErrors)
	}

	return BadRequestResult("Invalid request body", nil)
}

// AppErrorResult maps err onto its HTTP status and user-facing message.
func AppErrorResult(err error, data any) *ServiceResult {
	return ErrorResult(apperrors.HTTPStatusCode(err), apperrors.GetHumanReadableMessage(err), data)
}

func OKResult(data any, message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusOK,
		Data:       data,
		Message:    message,
	}
}

func TooManyRequestsResult(data RateLimitResponse) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusTooManyRequests,
		Data:       data,
		Message:    "Too Many Requests",
	}
}

func BadRequestResult(message string, payload any) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusBadRequest,
		Data:       payload,
		Message:    message,
	}
}

func ErrorResult(statusCode int, message string, data any) *ServiceResult {
	return &ServiceResult{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
	}
}
