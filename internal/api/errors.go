package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// TransportError means the request never produced an HTTP response
// (connection refused, DNS failure, timeout, ...).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx HTTP response. Message is the server-provided
// message when the body carries the conventional {"error": "..."}
// envelope, otherwise the HTTP status text. Raw keeps the unparsed body
// for diagnostics.
type APIError struct {
	Message    string
	StatusCode int
	Raw        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// ValidationError is a 4xx response to a write. It carries the same
// information as APIError but is expected to be shown inline on the
// originating form rather than as a list-level failure.
type ValidationError struct {
	APIError
}

func (e *ValidationError) Unwrap() error {
	return &e.APIError
}

// NotFoundError is a 404 response, e.g. deleting an issue that is
// already gone.
type NotFoundError struct {
	APIError
}

func (e *NotFoundError) Unwrap() error {
	return &e.APIError
}

// errorFromResponse normalizes a non-2xx response into the taxonomy.
// isWrite distinguishes ValidationError from a plain APIError on 4xx.
func errorFromResponse(statusCode int, body []byte, isWrite bool) error {
	msg := extractMessage(body)
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	apiErr := APIError{
		Message:    msg,
		StatusCode: statusCode,
		Raw:        strings.TrimSpace(string(body)),
	}
	switch {
	case statusCode == http.StatusNotFound:
		return &NotFoundError{APIError: apiErr}
	case isWrite && statusCode >= 400 && statusCode < 500:
		return &ValidationError{APIError: apiErr}
	default:
		return &apiErr
	}
}

// extractMessage pulls the message out of the backend's {"error": "..."}
// envelope. Returns "" when the body is not in that shape.
func extractMessage(body []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Error
}
