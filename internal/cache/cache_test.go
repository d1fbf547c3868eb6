package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-rota/internal/cache"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)}
}

type payload struct{ n int }

func TestGet_RespectsTTL(t *testing.T) {
	clk := newClock()
	c := cache.New(clk.Now)

	c.Set("dir", "snapshot", time.Minute)

	v, pending, ok := c.Get("dir")
	require.True(t, ok)
	assert.Nil(t, pending)
	assert.Equal(t, "snapshot", v)

	clk.Advance(time.Minute)

	_, _, ok = c.Get("dir")
	assert.False(t, ok, "an entry whose expiry has elapsed is absent")
	assert.Equal(t, 0, c.Len(), "expired entries are purged on read")
}

func TestInflightMarker(t *testing.T) {
	c := cache.New(nil)

	p, owner := c.SetInflight("k")
	require.True(t, owner)

	again, owner := c.SetInflight("k")
	assert.False(t, owner)
	assert.Same(t, p, again, "a key holds at most one in-flight marker")

	_, got, ok := c.Get("k")
	require.True(t, ok)
	assert.Same(t, p, got)

	c.ClearInflight("k")
	_, _, ok = c.Get("k")
	assert.False(t, ok)
}

func TestClearInflight_KeepsResolvedValue(t *testing.T) {
	c := cache.New(nil)
	c.SetInflight("k")
	c.Set("k", 42, time.Minute)
	c.ClearInflight("k")

	v, _, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestDo_DeduplicatesConcurrentCalls(t *testing.T) {
	clk := newClock()
	c := cache.New(clk.Now)

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return &payload{n: 7}, nil
	}

	const n = 10
	results := make([]any, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Do(context.Background(), "dir", time.Minute, fn)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "one network call inside the TTL window")
	for i := 1; i < n; i++ {
		assert.Same(t, results[0], results[i], "every caller shares one result")
	}
}

func TestDo_FailureIsNotCached(t *testing.T) {
	c := cache.New(nil)
	boom := errors.New("boom")

	var calls int
	fn := func(ctx context.Context) (any, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return "ok", nil
	}

	_, err := c.Do(context.Background(), "k", time.Minute, fn)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len(), "the in-flight marker is cleared after a failure")

	v, err := c.Do(context.Background(), "k", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestDo_ZeroTTLBypasses(t *testing.T) {
	c := cache.New(nil)
	var calls int
	fn := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	for i := 0; i < 3; i++ {
		_, err := c.Do(context.Background(), "mutation", 0, fn)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, c.Len())
}

func TestDo_RefetchesAfterExpiry(t *testing.T) {
	clk := newClock()
	c := cache.New(clk.Now)
	var calls int
	fn := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	v, _ := c.Do(context.Background(), "k", time.Minute, fn)
	assert.Equal(t, 1, v)
	clk.Advance(30 * time.Second)
	v, _ = c.Do(context.Background(), "k", time.Minute, fn)
	assert.Equal(t, 1, v)
	clk.Advance(31 * time.Second)
	v, _ = c.Do(context.Background(), "k", time.Minute, fn)
	assert.Equal(t, 2, v)
}

func TestDo_WaiterHonoursContext(t *testing.T) {
	c := cache.New(nil)
	release := make(chan struct{})
	started := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Do(context.Background(), "k", time.Minute, func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return "v", nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Do(ctx, "k", time.Minute, func(ctx context.Context) (any, error) {
		t.Fatal("waiter must not issue its own request")
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	<-done
}

func TestDo_PanicReleasesMarker(t *testing.T) {
	c := cache.New(nil)

	assert.Panics(t, func() {
		_, _ = c.Do(context.Background(), "k", time.Minute, func(ctx context.Context) (any, error) {
			panic("worker bug")
		})
	})
	_, _, ok := c.Get("k")
	assert.False(t, ok, "the marker is released even when fn panics")
}

func TestPending_ResolveOnce(t *testing.T) {
	c := cache.New(nil)
	p, _ := c.SetInflight("k")
	p.Resolve("first", nil)
	p.Resolve("second", errors.New("ignored"))

	v, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", v)
}

func TestPurge(t *testing.T) {
	c := cache.New(nil)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Purge()
	assert.Equal(t, 0, c.Len())
}
