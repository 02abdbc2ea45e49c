package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned when another request already holds the lock.
var ErrLockBusy = errors.New("resource is locked by another request")

// Locker hands out short-lived distributed mutexes. A nil *Locker locks nothing.
type Locker struct {
	rs *redsync.Redsync
}

// NewLocker returns nil when rc is nil so callers need no special casing.
func NewLocker(rc *redis.Client) *Locker {
	if rc == nil {
		return nil
	}
	return &Locker{rs: redsync.New(goredis.NewPool(rc))}
}

// Acquire takes the named lock and returns its release function.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	if l == nil {
		return func() {}, nil
	}
	m := l.rs.NewMutex(name,
		redsync.WithExpiry(ttl),
		redsync.WithTries(3),
		redsync.WithRetryDelay(50*time.Millisecond),
	)
	if err := m.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockBusy, err)
	}
	return func() {
		if _, err := m.UnlockContext(context.Background()); err != nil {
			Sugar.Warnf("release lock %s failed: %v", name, err)
		}
	}, nil
}
