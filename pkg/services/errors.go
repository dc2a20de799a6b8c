// Package services provides the business operations behind the REST
// API, on top of the persistence layer.
package services

import (
	"errors"
	"fmt"

	"github.com/vigilhq/vigil/pkg/models"
)

// Client errors that map to 4xx responses.
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidFrequency = errors.New("frequency must be a positive duration")
	ErrEmptyOwnerID     = errors.New("owner ID cannot be empty")
	ErrEmptyTargetURL   = errors.New("target URL cannot be empty")

	// Referenced-entity errors (404 Not Found).
	ErrOwnerNotFound = errors.New("owner not found")

	// Business logic conflicts (409 Conflict).
	ErrTargetNotPaused = errors.New("target is not paused")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks whether an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidFrequency) ||
		errors.Is(err, ErrEmptyOwnerID) ||
		errors.Is(err, ErrEmptyTargetURL) ||
		errors.Is(err, models.ErrInvalidTarget) ||
		errors.Is(err, models.ErrInvalidCronExpression)
}

// IsConflictError checks whether an error should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrTargetNotPaused)
}
