// Package runlock provides per-target mutual exclusion with leases, so
// overlapping scheduler sweeps never run the same target twice and a
// crashed worker can never wedge a target permanently.
package runlock

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLockHeld indicates another run holds an unexpired lease for
	// the target. Expected during overlapping sweeps; callers skip the
	// target and retry on a later sweep.
	ErrLockHeld = errors.New("run lock held")

	// ErrStaleToken indicates a release with a token that no longer
	// matches the held lease, typically a late release after the lease
	// expired and was reacquired. The release is a no-op.
	ErrStaleToken = errors.New("stale run lock token")
)

// Locker grants time-bounded exclusive run rights over a target.
// Leases expire on their own; an expired lock counts as available.
type Locker interface {
	// Acquire takes the lease for targetID, returning an opaque token
	// that the holder must present on release.
	Acquire(ctx context.Context, targetID string, lease time.Duration) (string, error)

	// Release gives up the lease identified by token.
	Release(ctx context.Context, targetID, token string) error
}
