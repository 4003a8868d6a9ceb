package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the sync core's failure taxonomy.
var (
	// ErrNotFound marks a referenced entity, attribute or row that no longer
	// exists. Recoverable: callers log it and leave tracking state untouched.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidEntity marks a value of the wrong entity kind reaching a
	// condition or criterion. A programming error: it propagates, is never
	// caught, and must fail the calling operation loudly.
	ErrInvalidEntity = errors.New("invalid entity kind")

	// ErrInvalidInput marks malformed caller input at the API boundary.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal marks unexpected internal failures.
	ErrInternal = errors.New("internal error")
)

// AppError is a structured application error with an HTTP status mapping,
// used by the operational API handlers.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error for a named resource.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Internal creates a 500 error wrapping the cause.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidEntity):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
