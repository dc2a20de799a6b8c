package cmd

import (
	"context"

	"github.com/vigilhq/vigil/pkg/runlock"
)

// NewRunLock selects the lock backend: redis when a URL is configured,
// in-process otherwise. Single-instance deployments don't need redis;
// anything running more than one scheduler does.
func NewRunLock(ctx context.Context, redisURL string) (runlock.Locker, error) {
	if redisURL == "" {
		return runlock.NewMemoryLocker(), nil
	}

	return runlock.NewRedisLocker(ctx, redisURL)
}
