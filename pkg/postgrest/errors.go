package postgrest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-2xx answer from the REST endpoint. Code, Details and Hint
// come from the PostgREST error body when present.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("postgrest: HTTP %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("postgrest: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsConflict reports a unique or constraint violation (SQLSTATE 23xxx or HTTP 409).
func (e *Error) IsConflict() bool {
	return e.StatusCode == http.StatusConflict || (len(e.Code) == 5 && e.Code[:2] == "23")
}

func newError(status int, body []byte) *Error {
	e := &Error{StatusCode: status}
	if err := json.Unmarshal(body, e); err != nil || e.Message == "" {
		e.Message = http.StatusText(status)
		if len(body) > 0 && len(body) <= 512 {
			e.Message = string(body)
		}
	}
	e.StatusCode = status
	return e
}

// AsError unwraps err into *Error.
func AsError(err error) (*Error, bool) {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr, true
	}
	return nil, false
}
