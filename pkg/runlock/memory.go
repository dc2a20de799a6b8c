package runlock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryLease struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker is an in-process Locker for single-node deployments and
// tests.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]memoryLease
	now    func() time.Time
}

// NewMemoryLocker creates an in-process lease locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		leases: make(map[string]memoryLease),
		now:    time.Now,
	}
}

func (l *MemoryLocker) Acquire(_ context.Context, targetID string, lease time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if held, ok := l.leases[targetID]; ok && held.expiresAt.After(now) {
		return "", ErrLockHeld
	}

	token := uuid.New().String()
	l.leases[targetID] = memoryLease{token: token, expiresAt: now.Add(lease)}

	return token, nil
}

func (l *MemoryLocker) Release(_ context.Context, targetID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	held, ok := l.leases[targetID]
	if !ok || held.token != token {
		return ErrStaleToken
	}

	delete(l.leases, targetID)

	return nil
}
