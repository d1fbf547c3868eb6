package engine_test

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-rota/internal/engine"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockFetcher simulates the network layer for unit tests using `testify/mock`.
type MockFetcher struct {
	mock.Mock
}

// FetchJSON implements the engine.Fetcher interface.
func (m *MockFetcher) FetchJSON(ctx context.Context, url string) (map[string]any, error) {
	args := m.Called(ctx, url)
	if r := args.Get(0); r != nil {
		return r.(map[string]any), args.Error(1)
	}
	return nil, args.Error(1)
}

// withAction matches request URLs carrying the given action and parameters.
func withAction(action string, kv ...string) any {
	return mock.MatchedBy(func(raw string) bool {
		u, err := url.Parse(raw)
		if err != nil {
			return false
		}
		q := u.Query()
		if q.Get("action") != action {
			return false
		}
		for i := 0; i+1 < len(kv); i += 2 {
			if q.Get(kv[i]) != kv[i+1] {
				return false
			}
		}
		return true
	})
}

// MockClock controls time for deterministic testing.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CurrentTime
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.CurrentTime = m.CurrentTime.Add(d)
	m.mu.Unlock()
}

// routeFetcher answers every request through handle and records the queries
// it saw, in order.
type routeFetcher struct {
	mu     sync.Mutex
	calls  []url.Values
	handle func(q url.Values) (map[string]any, error)
}

func (f *routeFetcher) FetchJSON(ctx context.Context, raw string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()
	return f.handle(q)
}

// requests returns the recorded queries of action.
func (f *routeFetcher) requests(action string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []url.Values
	for _, q := range f.calls {
		if q.Get("action") == action {
			out = append(out, q)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

// refNow is Monday 2025-11-03 13:00 UTC.
var refNow = time.Date(2025, 11, 3, 13, 0, 0, 0, time.UTC)

func directoryPayload() map[string]any {
	return map[string]any{
		"ok": true,
		"directory": []any{
			map[string]any{"email": "ana@example.com", "name": "Ana Gomez", "phone": float64(3001112233), "apiKey": "k-ana"},
			map[string]any{"email": "ben@example.com", "name": "Ben Ortiz", "phone": "3004445566"},
		},
	}
}

func notOK() map[string]any {
	return map[string]any{"ok": false}
}

func days(shifts map[string]string) map[string]any {
	list := make([]any, 0, len(shifts))
	for _, d := range []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"} {
		if s, ok := shifts[d]; ok {
			list = append(list, map[string]any{"name": d, "shift": s})
		}
	}
	return map[string]any{"ok": true, "days": list}
}

func newClient(t *testing.T, f engine.Fetcher, clock *MockClock) *engine.Client {
	t.Helper()
	if clock == nil {
		clock = &MockClock{CurrentTime: refNow}
	}
	c, err := engine.NewClient(engine.Options{
		BaseURL: "https://backend.example.com/exec",
		Fetcher: f,
		Clock:   clock,
	})
	require.NoError(t, err)
	return c
}
