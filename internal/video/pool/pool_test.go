package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeResolve(t *testing.T) {
	assert.Equal(t, 4, Fixed(4).Resolve())
	assert.Greater(t, PlatformDefault().Resolve(), 0)
}

func TestMapPreservesInputOrder(t *testing.T) {
	inputs := []int{5, 3, 8, 1, 9, 2, 7}

	out, err := Map(context.Background(), Fixed(3), inputs,
		func(_ context.Context, n int) (int, error) {
			// Stagger completion so out-of-order finishes would show.
			time.Sleep(time.Duration(n) * time.Millisecond)
			return n * 10, nil
		})
	require.NoError(t, err)

	assert.Equal(t, []int{50, 30, 80, 10, 90, 20, 70}, out)
}

func TestMapBoundsConcurrency(t *testing.T) {
	var active, peak int64
	var mu sync.Mutex

	inputs := make([]int, 20)
	_, err := Map(context.Background(), Fixed(2), inputs,
		func(_ context.Context, _ int) (struct{}, error) {
			n := atomic.AddInt64(&active, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&active, -1)
			return struct{}{}, nil
		})
	require.NoError(t, err)

	assert.LessOrEqual(t, peak, int64(2))
}

func TestMapReturnsFirstErrorAfterJoin(t *testing.T) {
	boom := errors.New("boom")
	var calls int64

	_, err := Map(context.Background(), Fixed(2), []int{0, 1, 2, 3},
		func(_ context.Context, n int) (int, error) {
			atomic.AddInt64(&calls, 1)
			if n == 1 {
				return 0, boom
			}
			return n, nil
		})

	require.ErrorIs(t, err, boom)
	// The join is a barrier: every dispatched task ran even though one
	// failed.
	assert.Equal(t, int64(4), atomic.LoadInt64(&calls))
}

func TestMapEmptyInput(t *testing.T) {
	out, err := Map(context.Background(), Fixed(2), nil,
		func(_ context.Context, n int) (int, error) { return n, nil })
	require.NoError(t, err)
	assert.Nil(t, out)
}
