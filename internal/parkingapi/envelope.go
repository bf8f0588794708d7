package parkingapi

import (
	"errors"
	"fmt"
)

// CodeSuccess is the envelope code the parking API returns on success.
const CodeSuccess = 1000

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream error")
)

// APIError is an application-level failure reported inside the envelope.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("parking api: code %d", e.Code)
	}
	return fmt.Sprintf("parking api: code %d: %s", e.Code, e.Message)
}

// Envelope is the {code, message, result} wrapper used by every endpoint.
type Envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Result  T      `json:"result"`
}

// Unwrap returns the result when the code signals success, an *APIError otherwise.
func (e Envelope[T]) Unwrap() (T, error) {
	if e.Code != CodeSuccess {
		var zero T
		return zero, &APIError{Code: e.Code, Message: e.Message}
	}
	return e.Result, nil
}
