package runlock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_AcquireExcludes(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	token, err := locker.Acquire(ctx, "target-1", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = locker.Acquire(ctx, "target-1", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	// A different target is unaffected.
	_, err = locker.Acquire(ctx, "target-2", time.Minute)
	assert.NoError(t, err)
}

func TestMemoryLocker_ReleaseThenReacquire(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	token, err := locker.Acquire(ctx, "target-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, locker.Release(ctx, "target-1", token))

	_, err = locker.Acquire(ctx, "target-1", time.Minute)
	assert.NoError(t, err)
}

func TestMemoryLocker_LeaseExpires(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	now := time.Now()
	locker.now = func() time.Time { return now }

	first, err := locker.Acquire(ctx, "target-1", time.Minute)
	require.NoError(t, err)

	// Before expiry the lock is held.
	_, err = locker.Acquire(ctx, "target-1", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	// After expiry the lock self-heals and can be taken again.
	now = now.Add(2 * time.Minute)

	second, err := locker.Acquire(ctx, "target-1", time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// The late release from the expired lease must not touch the new one.
	assert.ErrorIs(t, locker.Release(ctx, "target-1", first), ErrStaleToken)

	_, err = locker.Acquire(ctx, "target-1", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld, "stale release must not free the current lease")
}

func TestMemoryLocker_ReleaseUnknownTarget(t *testing.T) {
	locker := NewMemoryLocker()

	err := locker.Release(context.Background(), "never-locked", "token")
	assert.ErrorIs(t, err, ErrStaleToken)
}
