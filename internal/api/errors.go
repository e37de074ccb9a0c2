package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Status int
	Method string
	Path   string

	// Message is the server's "error" field, else its "message" field.
	Message string

	Body []byte
}

func newStatusError(method, path string, status int, body []byte) *StatusError {
	var env Envelope
	msg := ""
	if json.Unmarshal(body, &env) == nil {
		msg = env.Reason()
	}
	return &StatusError{
		Status:  status,
		Method:  method,
		Path:    path,
		Message: msg,
		Body:    body,
	}
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (%d) on %s %s: %s", e.Status, e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("unexpected status %d on %s %s", e.Status, e.Method, e.Path)
}

// IsUnauthorized reports whether err (or any error in its chain) is a 401
// StatusError.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// StatusCode returns the HTTP status carried by err, or 0 when err did not
// come from a completed exchange.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// ServerMessage returns the server-provided error text carried by err, or ""
// when there is none.
func ServerMessage(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	var fe *FailureError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return ""
}

// TransportError wraps a failure below HTTP: no response was received.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("executing request %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err (or any error in its chain) is a
// TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// FailureError reports a 2xx response whose envelope says success=false.
type FailureError struct {
	Path    string
	Message string
}

func (e *FailureError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request to %s was not successful", e.Path)
	}
	return fmt.Sprintf("request to %s was not successful: %s", e.Path, e.Message)
}
