package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/reliability/circuitbreaker"
)

// APIError is a non-2xx answer from the API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
}

// StatusCode extracts the HTTP status from err, or 0 when err is not an APIError
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func decodeError(status int, body []byte) *APIError {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Message != "" {
			return &APIError{Status: status, Message: eb.Message}
		}
		if eb.Error != "" {
			return &APIError{Status: status, Message: eb.Error}
		}
	}
	return &APIError{Status: status}
}

// retryable reports whether another attempt could succeed: transport
// failures and server errors, never client errors or a tripped breaker
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return false
	}
	var authErr *domain.AuthenticationError
	if errors.As(err, &authErr) {
		return false
	}
	if status := StatusCode(err); status != 0 {
		return status >= 500
	}
	return true
}

// tripsBreaker keeps 4xx answers from counting as API outages
func tripsBreaker(err error) bool {
	if status := StatusCode(err); status != 0 {
		return status >= 500
	}
	return !errors.Is(err, context.Canceled)
}
