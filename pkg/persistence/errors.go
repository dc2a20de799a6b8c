package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrTargetNotFound indicates a target was not found by the given identifier.
	ErrTargetNotFound = errors.New("target not found")

	// ErrInvalidTargetState indicates a scheduling mutation was attempted
	// on a paused or deleted target.
	ErrInvalidTargetState = errors.New("invalid target state")

	// ErrTargetAlreadyExists indicates a target with the same URL is
	// already registered for the owner.
	ErrTargetAlreadyExists = errors.New("target already exists")

	// ErrSnapshotNotFound indicates no snapshot exists for the target.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrChangeNotFound indicates no change record matches the given
	// (target_id, detected_at) pair.
	ErrChangeNotFound = errors.New("change record not found")

	// ErrUserNotFound indicates a user was not found.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates the email is already registered.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// TargetError wraps target-related errors with operation context.
type TargetError struct {
	Op       string // Operation being performed (e.g., "ListDue", "Reschedule")
	TargetID string
	Err      error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("%s operation failed for target %s: %v", e.Op, e.TargetID, e.Err)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}

func (e *TargetError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewTargetError creates a new target error with context.
func NewTargetError(op, targetID string, err error) *TargetError {
	return &TargetError{Op: op, TargetID: targetID, Err: err}
}

// IsTargetNotFound checks if an error indicates a missing target.
func IsTargetNotFound(err error) bool {
	return errors.Is(err, ErrTargetNotFound)
}

// IsInvalidTargetState checks if an error indicates a paused/deleted
// target rejected a scheduling mutation.
func IsInvalidTargetState(err error) bool {
	return errors.Is(err, ErrInvalidTargetState)
}

// IsUserNotFound checks if an error indicates a missing user.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}
