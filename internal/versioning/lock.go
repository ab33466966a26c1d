package versioning

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a quote lock could not be acquired in time.
var ErrLockTimeout = errors.New("quote lock timeout")

// Locker hands out exclusive, per-quote locks with a bounded wait.
// Entries are reference counted and dropped once nobody holds or waits on them.
type Locker struct {
	mu      sync.Mutex
	slots   map[uint]*lockSlot
	timeout time.Duration
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewLocker creates a Locker whose Acquire gives up after timeout.
func NewLocker(timeout time.Duration) *Locker {
	return &Locker{slots: make(map[uint]*lockSlot), timeout: timeout}
}

// Timeout returns the configured acquisition timeout.
func (l *Locker) Timeout() time.Duration {
	return l.timeout
}

// Acquire blocks until the lock for id is held, the timeout elapses
// (ErrLockTimeout) or ctx is done (ctx.Err()). On success the returned
// function releases the lock; it must be called exactly once.
func (l *Locker) Acquire(ctx context.Context, id uint) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[id]
	if !ok {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[id] = s
	}
	s.refs++
	l.mu.Unlock()

	newRelease := func() func() {
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.unref(id, s)
			})
		}
	}

	// a free lock is taken even when the timeout has already run out
	select {
	case s.ch <- struct{}{}:
		return newRelease(), nil
	default:
	}

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		return newRelease(), nil
	case <-timer.C:
		l.unref(id, s)
		return nil, ErrLockTimeout
	case <-ctx.Done():
		l.unref(id, s)
		return nil, ctx.Err()
	}
}

func (l *Locker) unref(id uint, s *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, id)
	}
}

// held returns the number of quote ids with an active holder or waiter.
func (l *Locker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
