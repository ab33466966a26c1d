package versioning

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_TimesOutWhileHeld(t *testing.T) {
	l := NewLocker(20 * time.Millisecond)

	release, err := l.Acquire(context.Background(), 1)
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), 1)
	assert.ErrorIs(t, err, ErrLockTimeout)

	release()
	release2, err := l.Acquire(context.Background(), 1)
	require.NoError(t, err)
	release2()

	assert.Equal(t, 0, l.held())
}

func TestLocker_KeysAreIndependent(t *testing.T) {
	l := NewLocker(20 * time.Millisecond)

	r1, err := l.Acquire(context.Background(), 1)
	require.NoError(t, err)
	defer r1()

	r2, err := l.Acquire(context.Background(), 2)
	require.NoError(t, err)
	r2()
}

func TestLocker_ContextCancelled(t *testing.T) {
	l := NewLocker(time.Second)
	release, err := l.Acquire(context.Background(), 7)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx, 7)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocker_ReleaseIsIdempotent(t *testing.T) {
	l := NewLocker(20 * time.Millisecond)
	release, err := l.Acquire(context.Background(), 3)
	require.NoError(t, err)
	release()
	release()
	assert.Equal(t, 0, l.held())
}

func TestLocker_MutualExclusion(t *testing.T) {
	l := NewLocker(5 * time.Second)

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), 42)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, l.held())
}

func TestLocker_FreeLockWinsOverTinyTimeout(t *testing.T) {
	l := NewLocker(time.Nanosecond)
	for i := 0; i < 1000; i++ {
		release, err := l.Acquire(context.Background(), 9)
		require.NoError(t, err, "attempt %d", i)
		release()
	}
	assert.Equal(t, 0, l.held())

	release, err := l.Acquire(context.Background(), 9)
	require.NoError(t, err)
	defer release()
	_, err = l.Acquire(context.Background(), 9)
	assert.ErrorIs(t, err, ErrLockTimeout)
}
