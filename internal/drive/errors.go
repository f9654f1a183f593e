// Package drive provides an HTTP client for the Google Drive v3 REST API
// with error classification. It makes exactly one attempt per call.
package drive

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, drive.ErrUnauthorized) to check.
var (
	ErrBadRequest   = errors.New("drive: bad request")
	ErrUnauthorized = errors.New("drive: unauthorized")
	ErrForbidden    = errors.New("drive: forbidden")
	ErrNotFound     = errors.New("drive: not found")
	ErrThrottled    = errors.New("drive: rate limited")
	ErrServerError  = errors.New("drive: server error")
)

// APIError is a non-2xx response from the Drive API. It wraps a sentinel
// for errors.Is and keeps the raw body for the user-visible message.
type APIError struct {
	StatusCode int
	Body       string
	Message    string // error.message from the JSON envelope, if present
	Err        error  // sentinel, nil for unclassified codes
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}

	return fmt.Sprintf("drive: HTTP %d: %s", e.StatusCode, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorEnvelope is the standard Google API error body.
type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// newAPIError builds an APIError from a status code and raw body.
func newAPIError(code int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: code,
		Body:       string(body),
		Err:        classifyStatus(code),
	}

	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil {
		apiErr.Message = env.Error.Message
	}

	return apiErr
}

// classifyStatus maps an HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
