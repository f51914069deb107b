package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
)

// Error kinds. Match with errors.Is against an *APIError.
var (
	ErrNetwork      = errors.New("network error")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrServer       = errors.New("server error")
)

// APIError is a failed call. Status is 0 when no response was received.
type APIError struct {
	Method string
	Path   string
	Status int
	Msg    string
	// Data holds the envelope payload of a validation failure, if any.
	Data json.RawMessage
	kind error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.kind, e.Msg)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Msg)
}

func (e *APIError) Unwrap() error { return e.kind }

func kindOf(status int) error {
	switch {
	case status == 0:
		return ErrNetwork
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status >= http.StatusInternalServerError:
		return ErrServer
	}
	return ErrBadRequest
}

// FieldErrors decodes per-field validation messages from a 400 response.
func (e *APIError) FieldErrors() map[string]string {
	if len(e.Data) == 0 {
		return nil
	}
	var out map[string]string
	if err := sonic.Unmarshal(e.Data, &out); err != nil {
		return nil
	}
	return out
}
