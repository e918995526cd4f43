package attempt

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"camptrade/internal/app/apperr"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func TestMemory_LocksAfterMax(t *testing.T) {
	ctx := context.Background()
	l := NewMemory(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.NoError(t, l.Acquire(ctx, "tx1"))
	}

	assert.ErrorIs(t, l.Acquire(ctx, "tx1"), apperr.ErrTooManyAttempts)
	assert.NoError(t, l.Acquire(ctx, "tx2"), "other keys are unaffected")
}

func TestMemory_WindowExpires(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)}
	l := NewMemory(1, time.Minute, WithClock(clock.Now))

	assert.NoError(t, l.Acquire(ctx, "tx1"))
	assert.ErrorIs(t, l.Acquire(ctx, "tx1"), apperr.ErrTooManyAttempts)

	clock.now = clock.now.Add(time.Minute)
	assert.NoError(t, l.Acquire(ctx, "tx1"))
}

func TestMemory_Reset(t *testing.T) {
	ctx := context.Background()
	l := NewMemory(1, time.Minute)

	assert.NoError(t, l.Acquire(ctx, "tx1"))
	assert.NoError(t, l.Reset(ctx, "tx1"))
	assert.NoError(t, l.Acquire(ctx, "tx1"))
}

func TestMemory_Disabled(t *testing.T) {
	ctx := context.Background()
	l := NewMemory(0, time.Minute)

	for i := 0; i < 10; i++ {
		assert.NoError(t, l.Acquire(ctx, "tx1"))
	}
}

func TestMemory_ConcurrentAcquireHonoursMax(t *testing.T) {
	ctx := context.Background()
	l := NewMemory(5, time.Minute)

	var (
		wg      sync.WaitGroup
		granted int32
	)
	wg.Add(200)
	for i := 0; i < 200; i++ {
		go func() {
			defer wg.Done()
			if l.Acquire(ctx, "tx1") == nil {
				atomic.AddInt32(&granted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), granted)
}
