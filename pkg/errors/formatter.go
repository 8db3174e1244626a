package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var tagMessages = map[string]string{
	"required": "This field is required",
	"email":    "Please enter a valid email address.",
	"url":      "Invalid URL format",
	"uri":      "Invalid URI format",
	"boolean":  "Value must be true or false",
}

// paramMessages take the tag parameter as their only verb.
var paramMessages = map[string]string{
	"min": "Must be at least %s characters",
	"max": "Must not exceed %s characters",
	"len": "Must be exactly %s characters",
}

func messageFor(fieldError validator.FieldError) string {
	if format, ok := paramMessages[fieldError.Tag()]; ok && fieldError.Param() != "" {
		return fmt.Sprintf(format, fieldError.Param())
	}
	if message, ok := tagMessages[fieldError.Tag()]; ok {
		return message
	}
	return "Invalid value"
}

// wireFieldName prefers the json tag, then the form tag, then the Go name.
func wireFieldName(structType reflect.Type, fieldName string) string {
	if structType == nil || structType.Kind() != reflect.Struct {
		return fieldName
	}

	field, found := structType.FieldByName(fieldName)
	if !found {
		return fieldName
	}

	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(field.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return fieldName
}

// FormatValidationErrors turns binding errors into per-field messages.
// Errors that are not about a field yield an empty list.
func FormatValidationErrors(err error, model interface{}) []ValidationErrorResponse {
	var errorsList []ValidationErrorResponse

	if err == nil {
		return errorsList
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []ValidationErrorResponse{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("Invalid type for field %s. Expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value),
		}}
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errorsList
	}

	var structType reflect.Type
	if model != nil {
		structType = reflect.TypeOf(model)
		if structType.Kind() == reflect.Ptr {
			structType = structType.Elem()
		}
	}

	errorsList = make([]ValidationErrorResponse, len(validationErrors))
	for i, fieldError := range validationErrors {
		errorsList[i] = ValidationErrorResponse{
			Field:   wireFieldName(structType, fieldError.Field()),
			Message: messageFor(fieldError),
		}
	}

	return errorsList
}
