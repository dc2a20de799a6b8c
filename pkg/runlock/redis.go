package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "vigil:runlock:"

// releaseScript deletes the lock only when the caller still owns it,
// guarding against a late release clobbering a reacquired lease.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// RedisLocker is a Locker backed by redis SET NX PX leases, for
// deployments where several scheduler instances share the target set.
type RedisLocker struct {
	client redis.UniversalClient
}

// NewRedisLocker connects to redis and verifies the connection.
func NewRedisLocker(ctx context.Context, redisURL string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisLocker{client: client}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, targetID string, lease time.Duration) (string, error) {
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, keyPrefix+targetID, token, lease).Result()
	if err != nil {
		return "", fmt.Errorf("lock acquire failed: %w", err)
	}

	if !ok {
		return "", ErrLockHeld
	}

	return token, nil
}

func (l *RedisLocker) Release(ctx context.Context, targetID, token string) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{keyPrefix + targetID}, token).Int()
	if err != nil {
		return fmt.Errorf("lock release failed: %w", err)
	}

	if deleted == 0 {
		return ErrStaleToken
	}

	return nil
}

// Close releases the redis connection.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
