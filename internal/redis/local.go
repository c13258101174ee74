package redisclient

import (
	"context"
	"sync"
	"time"
)

type keyLock struct {
	sem  chan struct{}
	refs int
}

// localLocker serialises callers within one process. Unlike the Redis locker
// a second caller waits for the key instead of failing.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	ttl   time.Duration
}

// NewLocalLocker is used for single-replica deployments (LOCK_BACKEND=local)
// and in tests.
func NewLocalLocker(ttl time.Duration) Locker {
	return &localLocker{
		locks: make(map[string]*keyLock),
		ttl:   ttl,
	}
}

func (l *localLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	kl := l.acquireRef(key)
	defer l.releaseRef(key, kl)

	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		return ErrLockNotAcquired
	}
	defer func() { <-kl.sem }()

	lockCtx := ctx
	if l.ttl > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, l.ttl)
		defer cancel()
	}

	return fn(lockCtx)
}

func (l *localLocker) acquireRef(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *localLocker) releaseRef(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *localLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
