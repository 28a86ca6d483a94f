// Package apperrors provides the unified error taxonomy used across the
// ingestion engine, scheduler, and HTTP API: a small, closed set of
// categories that drive retry policy, metric labels, and HTTP status codes.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// CategorizedError carries a spec §4.6 error category alongside the usual
// message/cause, and knows its own HTTP status and retriability.
type CategorizedError struct {
	Category   domain.ErrorCategory
	Message    string
	Err        error
	HTTPStatusOverride int
}

func (e *CategorizedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Category, e.Message)
}

func (e *CategorizedError) Unwrap() error { return e.Err }

// Retriable reports whether this category should trigger a scheduler retry.
func (e *CategorizedError) Retriable() bool { return e.Category.Retriable() }

// New constructs a CategorizedError.
func New(category domain.ErrorCategory, message string) *CategorizedError {
	return &CategorizedError{Category: category, Message: message}
}

// Wrap constructs a CategorizedError around an existing error.
func Wrap(category domain.ErrorCategory, message string, err error) *CategorizedError {
	return &CategorizedError{Category: category, Message: message, Err: err}
}

// Categorized extracts a *CategorizedError from an error chain, if present.
func Categorized(err error) *CategorizedError {
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

// CategoryOf returns the category of err, defaulting to "unknown" for plain
// errors that were never classified.
func CategoryOf(err error) domain.ErrorCategory {
	if ce := Categorized(err); ce != nil {
		return ce.Category
	}
	return domain.ErrorCategoryUnknown
}

// HTTPStatus maps an error category to the HTTP status the API surface
// reports for synchronous endpoints (spec §7).
func HTTPStatus(err error) int {
	ce := Categorized(err)
	if ce != nil && ce.HTTPStatusOverride != 0 {
		return ce.HTTPStatusOverride
	}
	switch CategoryOf(err) {
	case domain.ErrorCategoryValidation, domain.ErrorCategoryMapping:
		return http.StatusBadRequest
	case domain.ErrorCategoryConfiguration:
		return http.StatusUnprocessableEntity
	case domain.ErrorCategoryAPI, domain.ErrorCategoryRateLimit:
		return http.StatusBadGateway
	case domain.ErrorCategoryPersistence:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NotFound, Conflict, Validation are convenience constructors for caller
// errors; the stores return NotFound and Conflict, and the HTTP and
// scheduler layers return Validation.
func NotFound(resource, id string) *CategorizedError {
	return &CategorizedError{
		Category:           domain.ErrorCategoryValidation,
		Message:            fmt.Sprintf("%s %q not found", resource, id),
		HTTPStatusOverride: http.StatusNotFound,
	}
}

func Conflict(message string) *CategorizedError {
	return &CategorizedError{
		Category:           domain.ErrorCategoryValidation,
		Message:            message,
		HTTPStatusOverride: http.StatusConflict,
	}
}

func Validation(message string) *CategorizedError {
	return New(domain.ErrorCategoryValidation, message)
}
