package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Configuration errors, returned synchronously by New before any network activity
var (
	// ErrConfig is wrapped by every configuration error
	ErrConfig = errors.New("invalid client configuration")

	// ErrMissingOptions indicates no options were given at all
	ErrMissingOptions = fmt.Errorf("%w: must provide manager options", ErrConfig)

	// ErrMissingBaseURL indicates the options carry no base URL
	ErrMissingBaseURL = fmt.Errorf("%w: must provide a base URL for the API", ErrConfig)

	// ErrInvalidBaseURL indicates the base URL cannot be used to build request URLs
	ErrInvalidBaseURL = fmt.Errorf("%w: the provided base URL is invalid", ErrConfig)
)

// ErrRequest is matched by every *RequestError via errors.Is
var ErrRequest = errors.New("request failed")

// RequestError describes a failed call. StatusCode is zero when no
// response was received (transport, token or encoding failure).
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte

	// Parsed from a JSON error document when the API sent one
	Code    string
	Message string

	Err error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}

	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is reports ErrRequest for every request error
func (e *RequestError) Is(target error) bool {
	return target == ErrRequest
}

// errorDocument covers both the management API error shape and the
// OAuth error response shape.
type errorDocument struct {
	StatusCode       int    `json:"statusCode"`
	Error            string `json:"error"`
	Message          string `json:"message"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"error_description"`
}

// newStatusError builds the error for a non-2xx response
func newStatusError(method, url string, status int, body []byte) *RequestError {
	reqErr := &RequestError{
		Method:     method,
		URL:        url,
		StatusCode: status,
		Body:       body,
	}

	var doc errorDocument
	if len(body) == 0 || json.Unmarshal(body, &doc) != nil {
		return reqErr
	}

	reqErr.Code = doc.ErrorCode
	if reqErr.Code == "" {
		reqErr.Code = doc.Error
	}

	reqErr.Message = strings.TrimSpace(doc.Message)
	if reqErr.Message == "" {
		reqErr.Message = strings.TrimSpace(doc.ErrorDescription)
	}

	return reqErr
}
