package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error values for the monologue client
var (
	// Session errors
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Resource errors
	ErrNotFound = errors.New("not found")

	// Configuration errors
	ErrMissingBaseURL = errors.New("API base URL is required outside development")
)

// ValidationError is a local, pre-submission failure. It never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a form field
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NetworkError means no response reached the client (offline, DNS, refused, timeout).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RequestError means the server responded with a non-2xx status.
// Message is the server supplied message, if any.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// Is lets a 404 RequestError match ErrNotFound. A 401 only becomes
// ErrSessionExpired when a session-bound client wraps it.
func (e *RequestError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// UserMessage maps an error to the text shown in a view's banner
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrSessionExpired):
		return "Your session has expired. Please log in again."
	}

	// The server's own message wins over the generic text.
	var requestErr *RequestError
	isRequestErr := errors.As(err, &requestErr)
	if isRequestErr && requestErr.Message != "" {
		return requestErr.Message
	}
	if errors.Is(err, ErrNotFound) {
		return "That entry could not be found."
	}

	var networkErr *NetworkError
	if errors.As(err, &networkErr) {
		return "Could not reach the server. Check your connection and try again."
	}

	if isRequestErr {
		return fmt.Sprintf("The server could not complete the request (status %d).", requestErr.StatusCode)
	}

	return "Something went wrong. Please try again."
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
