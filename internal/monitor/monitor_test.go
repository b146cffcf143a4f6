package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/achernyakov/trendpulse/internal/trend"
)

// stubFetcher is a controllable PlatformFetcher for tests.
type stubFetcher struct {
	mu         sync.Mutex
	platform   trend.Platform
	interval   time.Duration
	initErr    error
	cleanupErr error
	fetchFn    func(call int) ([]trend.Trend, error)
	fetchCalls int
	cleanups   int
}

func (s *stubFetcher) Platform() trend.Platform { return s.platform }

func (s *stubFetcher) Initialize(ctx context.Context) error { return s.initErr }

func (s *stubFetcher) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanups++
	return s.cleanupErr
}

func (s *stubFetcher) Fetch(ctx context.Context) ([]trend.Trend, error) {
	s.mu.Lock()
	s.fetchCalls++
	call := s.fetchCalls
	fn := s.fetchFn
	s.mu.Unlock()

	if fn != nil {
		return fn(call)
	}
	return []trend.Trend{{ID: "t1", Platform: s.platform, Name: "trend"}}, nil
}

func (s *stubFetcher) PollingInterval() time.Duration {
	if s.interval > 0 {
		return s.interval
	}
	return 10 * time.Millisecond
}

func (s *stubFetcher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCalls
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestMonitor_StartFetchesImmediately(t *testing.T) {
	stub := &stubFetcher{platform: trend.PlatformTikTok, interval: time.Hour}
	m := New(stub)

	var mu sync.Mutex
	var batches [][]trend.Trend
	m.OnTrends(func(p trend.Platform, trends []trend.Trend) {
		mu.Lock()
		batches = append(batches, trends)
		mu.Unlock()
	})

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	assert.True(t, m.IsActive())
	assert.Equal(t, 1, stub.calls(), "start performs one immediate fetch")

	mu.Lock()
	require.Len(t, batches, 1)
	assert.Equal(t, "t1", batches[0][0].ID)
	mu.Unlock()
}

func TestMonitor_StartTwiceIsNoOp(t *testing.T) {
	stub := &stubFetcher{platform: trend.PlatformTikTok, interval: time.Hour}
	m := New(stub)

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, 1, stub.calls(), "second start must not fetch again")
}

func TestMonitor_StartFailsOnInitialize(t *testing.T) {
	stub := &stubFetcher{
		platform: trend.PlatformYouTube,
		initErr:  errors.New("invalid auth credentials"),
	}
	m := New(stub)

	err := m.Start(context.Background())
	require.Error(t, err)

	var merr *trend.MonitoringError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, trend.ErrorAuthentication, merr.Type)
	assert.False(t, m.IsActive())
}

func TestMonitor_StartFailsOnFirstFetch(t *testing.T) {
	stub := &stubFetcher{platform: trend.PlatformYouTube}
	stub.fetchFn = func(int) ([]trend.Trend, error) {
		return nil, errors.New("request timeout")
	}
	m := New(stub)

	err := m.Start(context.Background())
	require.Error(t, err)

	var merr *trend.MonitoringError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, trend.ErrorTimeout, merr.Type)
	assert.False(t, m.IsActive())
	assert.Equal(t, 1, stub.cleanups, "failed start releases fetcher state")
}

func TestMonitor_FailedTickKeepsPolling(t *testing.T) {
	stub := &stubFetcher{platform: trend.PlatformTwitter}
	stub.fetchFn = func(call int) ([]trend.Trend, error) {
		if call == 1 {
			return []trend.Trend{{ID: "t1", Platform: trend.PlatformTwitter}}, nil
		}
		return nil, errors.New("rate limit exceeded")
	}
	m := New(stub)

	var mu sync.Mutex
	var errs []*trend.MonitoringError
	m.OnError(func(merr *trend.MonitoringError) {
		mu.Lock()
		errs = append(errs, merr)
		mu.Unlock()
	})

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) >= 2
	})

	assert.True(t, m.IsActive(), "failed ticks never stop the monitor")

	mu.Lock()
	assert.Equal(t, trend.ErrorRateLimit, errs[0].Type)
	assert.Equal(t, trend.PlatformTwitter, errs[0].Platform)
	mu.Unlock()
}

func TestMonitor_StopCancelsDeterministically(t *testing.T) {
	stub := &stubFetcher{platform: trend.PlatformTikTok}
	m := New(stub)

	require.NoError(t, m.Start(context.Background()))
	waitFor(t, func() bool { return stub.calls() >= 3 })

	require.NoError(t, m.Stop())
	assert.False(t, m.IsActive())
	assert.Equal(t, 1, stub.cleanups)

	calls := stub.calls()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, stub.calls(), "no ticks after stop returns")
}

func TestMonitor_StopTwiceIsNoOp(t *testing.T) {
	stub := &stubFetcher{platform: trend.PlatformTikTok, interval: time.Hour}
	m := New(stub)

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())
	assert.Equal(t, 1, stub.cleanups, "cleanup runs once")
}

func TestMonitor_StopReturnsCleanupErrorButGoesIdle(t *testing.T) {
	stub := &stubFetcher{
		platform:   trend.PlatformInstagram,
		interval:   time.Hour,
		cleanupErr: errors.New("session teardown failed"),
	}
	m := New(stub)

	require.NoError(t, m.Start(context.Background()))

	err := m.Stop()
	require.Error(t, err)

	var merr *trend.MonitoringError
	require.ErrorAs(t, err, &merr)
	assert.False(t, m.IsActive(), "cleanup failure must not leave the monitor running")
}

func TestMonitor_CurrentTrendsBypassesSchedule(t *testing.T) {
	stub := &stubFetcher{platform: trend.PlatformTikTok, interval: time.Hour}
	m := New(stub)

	trends, err := m.CurrentTrends(context.Background())
	require.NoError(t, err)
	assert.Len(t, trends, 1)
	assert.False(t, m.IsActive())
}

func TestMonitor_RemoveHandler(t *testing.T) {
	stub := &stubFetcher{platform: trend.PlatformTikTok, interval: time.Hour}
	m := New(stub)

	var mu sync.Mutex
	received := 0
	id := m.OnTrends(func(trend.Platform, []trend.Trend) {
		mu.Lock()
		received++
		mu.Unlock()
	})
	m.RemoveHandler(id)

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	mu.Lock()
	assert.Zero(t, received)
	mu.Unlock()
}
