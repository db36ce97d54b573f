package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLeaseTTL bounds how long a crashed process can hold a cross-process lock.
	DefaultLeaseTTL = 10 * time.Second

	minRetryDelay = 5 * time.Millisecond
	maxRetryDelay = 100 * time.Millisecond
)

// ErrLockTimeout is returned when a lock could not be taken before the context ended.
var ErrLockTimeout = errors.New("kv: lock wait timed out")

// leaser is implemented by backends that can hold a lock on behalf of a process.
type leaser interface {
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// Locker hands out named mutual exclusion scopes.
//
// Every name is serialized inside the process. When the backend can lease keys
// (Redis), the lock is also held across processes sharing that backend.
type Locker struct {
	mu     sync.Mutex
	slots  map[string]*slot
	lease  leaser
	prefix string
	ttl    time.Duration
}

// NewLocker creates a Locker for backend b. Lease keys are written as prefix+name,
// so prefix must live outside any namespace that gets bulk-deleted.
func NewLocker(b Backend, prefix string, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	l := &Locker{
		slots:  make(map[string]*slot),
		prefix: prefix,
		ttl:    ttl,
	}
	if ls, ok := b.(leaser); ok {
		l.lease = ls
	}
	return l
}

// Distributed reports whether locks are also held across processes.
func (l *Locker) Distributed() bool {
	return l.lease != nil
}

// Lock blocks until name is free or ctx ends. The returned func releases the lock.
func (l *Locker) Lock(ctx context.Context, name string) (func(), error) {
	s := l.acquire(name)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(name, s)
		return nil, fmt.Errorf("%w: %q: %w", ErrLockTimeout, name, ctx.Err())
	}
	leave := func() {
		<-s.ch
		l.release(name, s)
	}

	if l.lease == nil {
		return leave, nil
	}

	key := l.prefix + name
	token := uuid.NewString()
	delay := minRetryDelay
	for {
		ok, err := l.lease.TryLock(ctx, key, token, l.ttl)
		if err != nil {
			leave()
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			leave()
			return nil, fmt.Errorf("%w: %q: %w", ErrLockTimeout, name, ctx.Err())
		}
		if delay < maxRetryDelay {
			delay *= 2
		}
	}

	return func() {
		// the caller's context may already be done when releasing
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.lease.Unlock(rctx, key, token); err != nil {
			slog.Warn("failed to release lock lease", "key", key, "error", err)
		}
		leave()
	}, nil
}

// slot serializes one name inside the process. refs counts the holder and
// the waiters; a slot nobody references is dropped.
type slot struct {
	ch   chan struct{}
	refs int
}

func (l *Locker) acquire(name string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[name]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[name] = s
	}
	s.refs++
	return s
}

func (l *Locker) release(name string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, name)
	}
}
