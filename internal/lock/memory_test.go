package lock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerMutualExclusion(t *testing.T) {
	locker := NewMemoryLocker(0)
	ctx := context.Background()

	var inside, maxInside, total int32
	var wg conc.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Go(func() {
			l, err := locker.Acquire(ctx, JobKey("job_1"))
			if !assert.NoError(t, err) {
				return
			}
			defer func() { _ = l.Release(ctx) }()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&total, 1)
			atomic.AddInt32(&inside, -1)
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, int32(20), total)

	locker.mu.Lock()
	defer locker.mu.Unlock()
	assert.Empty(t, locker.slots)
}

func TestMemoryLockerBusy(t *testing.T) {
	locker := NewMemoryLocker(20 * time.Millisecond)
	ctx := context.Background()

	held, err := locker.Acquire(ctx, JobKey("job_1"))
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, JobKey("job_1"))
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidOperation(err))

	other, err := locker.Acquire(ctx, JobKey("job_2"))
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, held.Release(ctx))
	again, err := locker.Acquire(ctx, JobKey("job_1"))
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestMemoryLockerContextCancelled(t *testing.T) {
	locker := NewMemoryLocker(time.Minute)

	held, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer func() { _ = held.Release(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryLockReleaseTwice(t *testing.T) {
	locker := NewMemoryLocker(20 * time.Millisecond)
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, first.Release(ctx))
	require.NoError(t, first.Release(ctx))

	second, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)

	// a stale release must not free the lock held by the second caller
	require.NoError(t, first.Release(ctx))
	_, err = locker.Acquire(ctx, "k")
	assert.True(t, ierr.IsInvalidOperation(err))

	require.NoError(t, second.Release(ctx))
}
