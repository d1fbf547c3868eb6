package batch_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-rota/internal/batch"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestRun_OrderAndLimit runs 5 items with limit 2 and random delays, checking
// every item runs once, results stay positional and concurrency never exceeds the limit.
func TestRun_OrderAndLimit(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	var running, peak atomic.Int32
	var mu sync.Mutex
	seen := map[int]int{}

	results := batch.Run(context.Background(), items, 2, func(ctx context.Context, item string, i int) (string, error) {
		cur := running.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		defer running.Add(-1)

		mu.Lock()
		seen[i]++
		mu.Unlock()

		time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
		return item + "!", nil
	})

	require.Len(t, results, len(items))
	for i, item := range items {
		assert.NoError(t, results[i].Err)
		assert.Equal(t, item+"!", results[i].Value, "output[%d] must match input[%d]", i, i)
		assert.Equal(t, 1, seen[i], "item %d must run exactly once", i)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 5, batch.Succeeded(results))
}

func TestRun_Empty(t *testing.T) {
	results := batch.Run(context.Background(), []int(nil), 3, func(ctx context.Context, item, i int) (int, error) {
		t.Fatal("worker must not run for an empty batch")
		return 0, nil
	})
	assert.Empty(t, results)
}

func TestRun_FailureDoesNotAbort(t *testing.T) {
	boom := errors.New("boom")
	results := batch.Run(context.Background(), []int{1, 2, 3, 4}, 2, func(ctx context.Context, item, i int) (int, error) {
		if item == 2 {
			return 0, boom
		}
		if item == 3 {
			panic("bad row")
		}
		return item * 10, nil
	})

	assert.Equal(t, 10, results[0].Value)
	assert.ErrorIs(t, results[1].Err, boom)
	require.Error(t, results[2].Err)
	assert.Contains(t, results[2].Err.Error(), "bad row")
	assert.Equal(t, 40, results[3].Value)
	assert.Equal(t, 2, batch.Succeeded(results))
	assert.Equal(t, []int{10, 0, 0, 40}, batch.Values(results))
}

func TestRun_LimitClamped(t *testing.T) {
	var running, peak atomic.Int32
	results := batch.Run(context.Background(), []int{1, 2, 3}, 0, func(ctx context.Context, item, i int) (int, error) {
		cur := running.Add(1)
		if cur > peak.Load() {
			peak.Store(cur)
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return item, nil
	})
	assert.Equal(t, 3, batch.Succeeded(results))
	assert.Equal(t, int32(1), peak.Load())
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results := batch.Run(ctx, []int{1, 2, 3}, 2, func(ctx context.Context, item, i int) (int, error) {
		calls.Add(1)
		return item, nil
	})

	assert.Equal(t, int32(0), calls.Load())
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestRun_FIFOStart(t *testing.T) {
	var mu sync.Mutex
	var order []int
	batch.Run(context.Background(), []int{0, 1, 2, 3, 4, 5}, 1, func(ctx context.Context, item, i int) (int, error) {
		mu.Lock()
		order = append(order, i)
		mu.Unlock()
		return item, nil
	})
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, order)
}
