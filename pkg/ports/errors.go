package ports

import (
	"errors"
	"fmt"
)

// TransientError marks a port failure worth retrying on a later run:
// timeouts, 5xx responses, rate limits.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %s", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError marks a port failure that retrying cannot fix: the
// resource is gone, credentials are rejected, the request is malformed.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %s", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}

	return &TransientError{Err: err}
}

// Permanent wraps err as non-retryable. Returns nil for a nil err.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &PermanentError{Err: err}
}

// IsTransient reports whether err is marked retryable anywhere in its
// chain.
func IsTransient(err error) bool {
	var te *TransientError

	return errors.As(err, &te)
}

// IsPermanent reports whether err is marked non-retryable anywhere in
// its chain.
func IsPermanent(err error) bool {
	var pe *PermanentError

	return errors.As(err, &pe)
}
