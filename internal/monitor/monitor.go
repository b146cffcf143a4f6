// Package monitor drives the polling lifecycle for one platform.
//
// The platform-specific work (session setup, the actual retrieval, the
// polling cadence) lives behind the PlatformFetcher interface; Monitor is
// the single shared lifecycle driver parameterized over it.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/achernyakov/trendpulse/internal/trend"
)

// PlatformFetcher is the capability contract implemented once per platform.
type PlatformFetcher interface {
	// Platform identifies the source this fetcher serves.
	Platform() trend.Platform

	// Initialize acquires whatever session or credential state the
	// platform needs. May fail.
	Initialize(ctx context.Context) error

	// Cleanup releases that state.
	Cleanup() error

	// Fetch performs one retrieval.
	Fetch(ctx context.Context) ([]trend.Trend, error)

	// PollingInterval is the platform-specific cadence. Platforms with
	// faster-moving trends poll more often.
	PollingInterval() time.Duration
}

// BatchHandler receives a raw (not yet deduplicated) batch from a monitor.
type BatchHandler func(platform trend.Platform, trends []trend.Trend)

// ErrorHandler receives a classified fetch failure.
type ErrorHandler func(merr *trend.MonitoringError)

// Monitor owns the polling loop for one platform. Each monitor is fully
// independent: a persistent failure in one never affects another.
type Monitor struct {
	fetcher PlatformFetcher

	mu         sync.Mutex
	running    bool
	generation uint64
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	handlerMu sync.RWMutex
	onTrends  map[uuid.UUID]BatchHandler
	onError   map[uuid.UUID]ErrorHandler
}

// New creates a monitor for the given fetcher. The monitor stays idle
// until Start is called.
func New(fetcher PlatformFetcher) *Monitor {
	return &Monitor{
		fetcher:  fetcher,
		onTrends: make(map[uuid.UUID]BatchHandler),
		onError:  make(map[uuid.UUID]ErrorHandler),
	}
}

// Platform returns the platform this monitor polls.
func (m *Monitor) Platform() trend.Platform {
	return m.fetcher.Platform()
}

// OnTrends registers a handler for raw batches. Handlers run synchronously
// on the polling goroutine, so per-platform batch order is preserved.
func (m *Monitor) OnTrends(h BatchHandler) uuid.UUID {
	id := uuid.New()
	m.handlerMu.Lock()
	m.onTrends[id] = h
	m.handlerMu.Unlock()
	return id
}

// OnError registers a handler for classified fetch failures.
func (m *Monitor) OnError(h ErrorHandler) uuid.UUID {
	id := uuid.New()
	m.handlerMu.Lock()
	m.onError[id] = h
	m.handlerMu.Unlock()
	return id
}

// RemoveHandler drops a previously registered handler.
func (m *Monitor) RemoveHandler(id uuid.UUID) {
	m.handlerMu.Lock()
	delete(m.onTrends, id)
	delete(m.onError, id)
	m.handlerMu.Unlock()
}

// Start initializes the fetcher, performs one immediate fetch+emit cycle,
// then polls at the fetcher's interval. If initialization or the first
// fetch fails, the monitor remains stopped and the wrapped error is
// returned. Calling Start on a running monitor is a warned no-op.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		slog.Warn("monitor already running", "platform", m.Platform())
		return nil
	}
	m.mu.Unlock()

	if err := m.fetcher.Initialize(ctx); err != nil {
		return trend.NewMonitoringError(m.Platform(), err)
	}

	trends, err := m.fetcher.Fetch(ctx)
	if err != nil {
		if cerr := m.fetcher.Cleanup(); cerr != nil {
			slog.Warn("cleanup after failed start", "platform", m.Platform(), "error", cerr)
		}
		return trend.NewMonitoringError(m.Platform(), err)
	}
	if len(trends) > 0 {
		m.emitTrends(trends)
	}

	loopCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.running = true
	m.cancel = cancel
	gen := m.generation
	m.mu.Unlock()

	m.wg.Add(1)
	go m.loop(loopCtx, gen)

	slog.Info("monitor started",
		"platform", m.Platform(),
		"interval", m.fetcher.PollingInterval(),
	)
	return nil
}

// Stop cancels the polling timer, waits for any in-flight tick to drain
// (its result is discarded), and releases fetcher state. A cleanup failure
// is returned wrapped, but the monitor still transitions to idle. Calling
// Stop on an idle monitor is a warned no-op.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		slog.Warn("monitor not running", "platform", m.Platform())
		return nil
	}
	m.running = false
	m.generation++
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	slog.Info("monitor stopped", "platform", m.Platform())

	if err := m.fetcher.Cleanup(); err != nil {
		return trend.NewMonitoringError(m.Platform(), err)
	}
	return nil
}

// IsActive reports whether the polling loop is running.
func (m *Monitor) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// CurrentTrends performs a one-shot fetch, bypassing the schedule.
func (m *Monitor) CurrentTrends(ctx context.Context) ([]trend.Trend, error) {
	trends, err := m.fetcher.Fetch(ctx)
	if err != nil {
		return nil, trend.NewMonitoringError(m.Platform(), err)
	}
	return trends, nil
}

func (m *Monitor) loop(ctx context.Context, gen uint64) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.fetcher.PollingInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx, gen)
		}
	}
}

// tick runs one scheduled fetch. A failed tick emits an error event and
// leaves the schedule untouched.
func (m *Monitor) tick(ctx context.Context, gen uint64) {
	trends, err := m.fetcher.Fetch(ctx)

	// Discard results that raced with Stop.
	m.mu.Lock()
	stale := !m.running || gen != m.generation
	m.mu.Unlock()
	if stale {
		return
	}

	if err != nil {
		merr := trend.NewMonitoringError(m.Platform(), err)
		slog.Warn("fetch failed",
			"platform", m.Platform(),
			"type", merr.Type,
			"error", err,
		)
		m.emitError(merr)
		return
	}

	if len(trends) > 0 {
		m.emitTrends(trends)
	}
}

func (m *Monitor) emitTrends(trends []trend.Trend) {
	m.handlerMu.RLock()
	defer m.handlerMu.RUnlock()
	for _, h := range m.onTrends {
		h(m.Platform(), trends)
	}
}

func (m *Monitor) emitError(merr *trend.MonitoringError) {
	m.handlerMu.RLock()
	defer m.handlerMu.RUnlock()
	for _, h := range m.onError {
		h(merr)
	}
}
