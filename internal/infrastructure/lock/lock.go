package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotAcquired means another holder owns the lock; callers skip the guarded work.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker runs fn while holding the named lock.
type Locker interface {
	WithLock(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) error
	Close() error
}

// Local serializes holders inside one process. Used when no Redis is configured.
type Local struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocal() *Local {
	return &Local{held: make(map[string]bool)}
}

// WithLock fails fast with ErrNotAcquired when name is already held.
func (l *Local) WithLock(ctx context.Context, name string, _ time.Duration, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.held[name] {
		l.mu.Unlock()
		return ErrNotAcquired
	}
	l.held[name] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, name)
		l.mu.Unlock()
	}()
	return fn(ctx)
}

func (l *Local) Close() error {
	return nil
}
