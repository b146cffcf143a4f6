// Package aggregator fans trend batches from all platform monitors into a
// single deduplicated stream, keeps the live in-memory view, writes
// through to the cache and durable store on a best-effort basis, and
// serves queries over the merged state.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/achernyakov/trendpulse/internal/events"
	"github.com/achernyakov/trendpulse/internal/monitor"
	"github.com/achernyakov/trendpulse/internal/trend"
)

const (
	topTrendsTTL = 5 * time.Minute
	searchTTL    = 10 * time.Minute
)

// DurableStore is the persistence contract the aggregator consumes. All
// calls on the ingest path are best-effort.
type DurableStore interface {
	StoreTrendsBatch(ctx context.Context, trends []trend.Trend) error
	TrendHistory(ctx context.Context, platform trend.Platform, limit, offset int) ([]trend.Snapshot, error)
	CleanupOldSnapshots(ctx context.Context, retentionDays int) (int64, error)
	HealthStatus(ctx context.Context) (trend.StoreHealth, error)
}

// CacheStore is the TTL cache contract the aggregator consumes.
type CacheStore interface {
	CacheTrends(ctx context.Context, platform trend.Platform, trends []trend.Trend, ttl time.Duration) error
	CachedTrends(ctx context.Context, platform trend.Platform) ([]trend.Trend, error)
	CacheAggregated(ctx context.Context, key string, data any, ttl time.Duration) error
	CachedAggregated(ctx context.Context, key string, out any) (bool, error)
	HealthStatus(ctx context.Context) (trend.CacheHealth, error)
}

// Config holds aggregator configuration. Store, Cache and Filter are all
// optional; a missing collaborator turns its path into a no-op.
type Config struct {
	EnablePersistence   bool
	EnableCaching       bool
	CacheTTL            time.Duration
	DeduplicationWindow time.Duration
	CleanupInterval     time.Duration
	RetentionDays       int
	StaleThreshold      time.Duration
	EventBuffer         int

	Store  DurableStore
	Cache  CacheStore
	Filter *Filter
}

type monitorHandle struct {
	mon      *monitor.Monitor
	trendsID uuid.UUID
	errorID  uuid.UUID
}

// Aggregator owns the merged trend view and the dedup window.
type Aggregator struct {
	cfg    Config
	store  DurableStore
	cache  CacheStore
	filter *Filter
	bus    *events.Bus
	health *healthTracker

	mu       sync.Mutex
	order    []trend.Platform
	latest   map[trend.Platform][]trend.Trend
	updated  map[trend.Platform]time.Time
	seen     *dedupSet
	monitors map[trend.Platform]monitorHandle

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an aggregator.
func New(cfg Config) *Aggregator {
	if cfg.DeduplicationWindow <= 0 {
		cfg.DeduplicationWindow = 5 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 24 * time.Hour
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = 15 * time.Minute
	}

	return &Aggregator{
		cfg:      cfg,
		store:    cfg.Store,
		cache:    cfg.Cache,
		filter:   cfg.Filter,
		bus:      events.NewBus(cfg.EventBuffer),
		health:   newHealthTracker(),
		latest:   make(map[trend.Platform][]trend.Trend),
		updated:  make(map[trend.Platform]time.Time),
		seen:     newDedupSet(),
		monitors: make(map[trend.Platform]monitorHandle),
	}
}

// Bus exposes the event bus for downstream consumers.
func (a *Aggregator) Bus() *events.Bus {
	return a.bus
}

// RegisterMonitor subscribes to a monitor's batches and errors.
// Registering the same platform twice is a warned no-op.
func (a *Aggregator) RegisterMonitor(m *monitor.Monitor) {
	platform := m.Platform()

	a.mu.Lock()
	if _, ok := a.monitors[platform]; ok {
		a.mu.Unlock()
		slog.Warn("monitor already registered", "platform", platform)
		return
	}
	a.mu.Unlock()

	handle := monitorHandle{
		mon:      m,
		trendsID: m.OnTrends(a.Ingest),
		errorID:  m.OnError(a.handleMonitorError),
	}

	a.mu.Lock()
	a.monitors[platform] = handle
	a.ensureOrderLocked(platform)
	a.mu.Unlock()

	slog.Info("monitor registered", "platform", platform)
}

// UnregisterMonitor removes the subscription and drops that platform's
// entry from the in-memory view.
func (a *Aggregator) UnregisterMonitor(m *monitor.Monitor) {
	platform := m.Platform()

	a.mu.Lock()
	handle, ok := a.monitors[platform]
	if !ok {
		a.mu.Unlock()
		slog.Warn("monitor not registered", "platform", platform)
		return
	}
	delete(a.monitors, platform)
	delete(a.latest, platform)
	delete(a.updated, platform)
	if i := slices.Index(a.order, platform); i >= 0 {
		a.order = slices.Delete(a.order, i, i+1)
	}
	a.mu.Unlock()

	handle.mon.RemoveHandler(handle.trendsID)
	handle.mon.RemoveHandler(handle.errorID)
	a.health.Forget(platform)

	slog.Info("monitor unregistered", "platform", platform)
}

// Ingest runs once per incoming batch, on the emitting monitor's
// goroutine. The mutex serializes concurrent emissions across platforms;
// within one platform batches arrive in emission order.
func (a *Aggregator) Ingest(platform trend.Platform, batch []trend.Trend) {
	now := time.Now()

	if a.filter != nil {
		batch = a.filter.Apply(batch)
	}

	a.mu.Lock()
	a.seen.Sweep(now)

	fresh := make([]trend.Trend, 0, len(batch))
	for _, t := range batch {
		key := t.Key()
		if a.seen.Seen(key, now) {
			continue
		}
		a.seen.Add(key, now.Add(a.cfg.DeduplicationWindow))
		fresh = append(fresh, t)
	}

	if len(fresh) == 0 {
		a.mu.Unlock()
		slog.Debug("batch fully deduplicated", "platform", platform, "incoming", len(batch))
		return
	}

	// Whole-batch replace: the latest view is not merged with prior state.
	a.latest[platform] = fresh
	a.updated[platform] = now
	a.ensureOrderLocked(platform)
	out := slices.Clone(fresh)
	a.mu.Unlock()

	a.health.SetHealthy(platform, fmt.Sprintf("ingested %d trends", len(out)))

	ctx := context.Background()
	if a.cfg.EnablePersistence && a.store != nil {
		if err := a.store.StoreTrendsBatch(ctx, out); err != nil {
			slog.Warn("trend persistence failed", "platform", platform, "error", err)
		}
	}
	if a.cfg.EnableCaching && a.cache != nil {
		if err := a.cache.CacheTrends(ctx, platform, out, a.cfg.CacheTTL); err != nil {
			slog.Warn("trend caching failed", "platform", platform, "error", err)
		}
	}

	ev := events.TrendEvent{Platform: platform, Trends: out, Timestamp: now}
	a.bus.Publish(events.TopicAll, ev)
	a.bus.Publish(events.PlatformTopic(platform), ev)

	slog.Debug("batch ingested",
		"platform", platform,
		"incoming", len(batch),
		"emitted", len(out),
	)
}

func (a *Aggregator) handleMonitorError(merr *trend.MonitoringError) {
	a.health.SetUnhealthy(merr.Platform, merr)
	a.bus.PublishError(merr)
}

// LatestTrendsByPlatform returns the in-memory batch for a platform,
// falling back to the cache (and backfilling memory) on a miss. Returns
// nil when the platform has never been populated anywhere.
func (a *Aggregator) LatestTrendsByPlatform(ctx context.Context, platform trend.Platform) []trend.Trend {
	a.mu.Lock()
	if batch, ok := a.latest[platform]; ok {
		out := slices.Clone(batch)
		a.mu.Unlock()
		return out
	}
	a.mu.Unlock()

	if !a.cfg.EnableCaching || a.cache == nil {
		return nil
	}

	cached, err := a.cache.CachedTrends(ctx, platform)
	if err != nil {
		slog.Warn("cache lookup failed", "platform", platform, "error", err)
		return nil
	}
	if cached == nil {
		return nil
	}

	a.mu.Lock()
	if _, ok := a.latest[platform]; !ok {
		a.latest[platform] = cached
		a.ensureOrderLocked(platform)
	}
	out := slices.Clone(a.latest[platform])
	a.mu.Unlock()

	slog.Debug("backfilled from cache", "platform", platform, "count", len(out))
	return out
}

// AllLatestTrends returns a snapshot copy of the full per-platform view.
func (a *Aggregator) AllLatestTrends() map[trend.Platform][]trend.Trend {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[trend.Platform][]trend.Trend, len(a.latest))
	for platform, batch := range a.latest {
		out[platform] = slices.Clone(batch)
	}
	return out
}

// AllTrendsFlattened concatenates all platforms' batches in registration
// order, preserving per-platform batch order.
func (a *Aggregator) AllTrendsFlattened() []trend.Trend {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flattenLocked()
}

func (a *Aggregator) flattenLocked() []trend.Trend {
	var out []trend.Trend
	for _, platform := range a.order {
		out = append(out, a.latest[platform]...)
	}
	return out
}

// TopTrends returns up to limit trends ranked descending by the given
// metric (defaulting to current volume). Ties keep their original
// relative order. Results are served cache-first when caching is on.
func (a *Aggregator) TopTrends(ctx context.Context, limit int, metric string) []trend.Trend {
	if limit <= 0 {
		limit = 10
	}
	if metric == "" {
		metric = trend.MetricCurrentVolume
	}

	key := fmt.Sprintf("top_trends:%d:%s", limit, metric)
	if a.cfg.EnableCaching && a.cache != nil {
		var cached []trend.Trend
		found, err := a.cache.CachedAggregated(ctx, key, &cached)
		if err != nil {
			slog.Warn("cache lookup failed", "key", key, "error", err)
		} else if found {
			return cached
		}
	}

	flat := a.AllTrendsFlattened()
	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].MetricValue(metric) > flat[j].MetricValue(metric)
	})
	if len(flat) > limit {
		flat = flat[:limit]
	}

	if a.cfg.EnableCaching && a.cache != nil && len(flat) > 0 {
		if err := a.cache.CacheAggregated(ctx, key, flat, topTrendsTTL); err != nil {
			slog.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return flat
}

// SearchTrends matches query case-insensitively against name, description
// and type across the flattened view. Cache-first when caching is on.
func (a *Aggregator) SearchTrends(ctx context.Context, query string) []trend.Trend {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	key := "search:" + q
	if a.cfg.EnableCaching && a.cache != nil {
		var cached []trend.Trend
		found, err := a.cache.CachedAggregated(ctx, key, &cached)
		if err != nil {
			slog.Warn("cache lookup failed", "key", key, "error", err)
		} else if found {
			return cached
		}
	}

	var matched []trend.Trend
	for _, t := range a.AllTrendsFlattened() {
		if strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Description), q) ||
			strings.Contains(strings.ToLower(string(t.Type)), q) {
			matched = append(matched, t)
		}
	}

	if a.cfg.EnableCaching && a.cache != nil && len(matched) > 0 {
		if err := a.cache.CacheAggregated(ctx, key, matched, searchTTL); err != nil {
			slog.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return matched
}

// TrendHistory delegates to the durable store. Without a store configured
// it returns an empty result.
func (a *Aggregator) TrendHistory(ctx context.Context, platform trend.Platform, limit, offset int) ([]trend.Snapshot, error) {
	if a.store == nil {
		return []trend.Snapshot{}, nil
	}
	return a.store.TrendHistory(ctx, platform, limit, offset)
}

// PerformCleanup removes expired snapshots from the durable store.
func (a *Aggregator) PerformCleanup(ctx context.Context) (int64, error) {
	if a.store == nil {
		return 0, nil
	}
	return a.store.CleanupOldSnapshots(ctx, a.cfg.RetentionDays)
}

// Start arms the periodic cleanup task. It does not affect monitor
// subscriptions.
func (a *Aggregator) Start(ctx context.Context) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.running {
		slog.Warn("aggregator already started")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	a.running = true
	a.cancel = cancel

	a.wg.Add(1)
	go a.cleanupLoop(loopCtx)

	slog.Info("aggregator started",
		"cleanup_interval", a.cfg.CleanupInterval,
		"dedup_window", a.cfg.DeduplicationWindow,
	)
}

// Stop disarms the cleanup task.
func (a *Aggregator) Stop() {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if !a.running {
		slog.Warn("aggregator not started")
		return
	}
	a.running = false
	a.cancel()
	a.cancel = nil
	a.wg.Wait()

	slog.Info("aggregator stopped")
}

func (a *Aggregator) cleanupLoop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.mu.Lock()
			a.seen.Sweep(time.Now())
			a.mu.Unlock()

			if a.cfg.EnablePersistence && a.store != nil {
				if _, err := a.PerformCleanup(ctx); err != nil {
					slog.Warn("scheduled cleanup failed", "error", err)
				}
			}
		}
	}
}

// MemoryHealth summarizes the in-memory view.
type MemoryHealth struct {
	Platforms int `json:"platforms"`
	Trends    int `json:"trends"`
}

// PlatformHealth reports one platform feed's condition, including
// staleness: a platform whose last update is older than the stale
// threshold is flagged even if its monitor never reported an error.
type PlatformHealth struct {
	Healthy    bool          `json:"healthy"`
	Stale      bool          `json:"stale"`
	LastUpdate time.Time     `json:"last_update"`
	Age        time.Duration `json:"age"`
	Message    string        `json:"message,omitempty"`
}

// HealthStatus is the merged health view.
type HealthStatus struct {
	Memory        MemoryHealth                      `json:"memory"`
	Database      *trend.StoreHealth                `json:"database,omitempty"`
	DatabaseError string                            `json:"database_error,omitempty"`
	Cache         *trend.CacheHealth                `json:"cache,omitempty"`
	CacheError    string                            `json:"cache_error,omitempty"`
	Platforms     map[trend.Platform]PlatformHealth `json:"platforms,omitempty"`
}

// GetHealthStatus merges local counts with independent collaborator
// probes. A failing probe degrades only its own sub-field.
func (a *Aggregator) GetHealthStatus(ctx context.Context) HealthStatus {
	var status HealthStatus

	a.mu.Lock()
	status.Memory.Platforms = len(a.latest)
	for _, batch := range a.latest {
		status.Memory.Trends += len(batch)
	}
	updated := make(map[trend.Platform]time.Time, len(a.updated))
	for platform, at := range a.updated {
		updated[platform] = at
	}
	monitored := make([]trend.Platform, 0, len(a.monitors))
	for platform := range a.monitors {
		monitored = append(monitored, platform)
	}
	a.mu.Unlock()

	g, probeCtx := errgroup.WithContext(ctx)
	if a.store != nil {
		g.Go(func() error {
			health, err := a.store.HealthStatus(probeCtx)
			if err != nil {
				status.DatabaseError = err.Error()
				return nil
			}
			status.Database = &health
			return nil
		})
	}
	if a.cache != nil {
		g.Go(func() error {
			health, err := a.cache.HealthStatus(probeCtx)
			if err != nil {
				status.CacheError = err.Error()
				return nil
			}
			status.Cache = &health
			return nil
		})
	}
	_ = g.Wait() // probes never return errors, failures degrade sub-fields

	now := time.Now()
	tracked := a.health.Statuses()
	platforms := make(map[trend.Platform]PlatformHealth)
	for _, platform := range monitored {
		ph := PlatformHealth{Healthy: true}
		if st, ok := tracked[platform]; ok {
			ph.Healthy = st.Healthy
			ph.Message = st.Message
		}
		if at, ok := updated[platform]; ok {
			ph.LastUpdate = at
			ph.Age = now.Sub(at)
			ph.Stale = ph.Age > a.cfg.StaleThreshold
		} else {
			ph.Stale = true
		}
		platforms[platform] = ph
	}
	if len(platforms) > 0 {
		status.Platforms = platforms
	}

	return status
}

func (a *Aggregator) ensureOrderLocked(platform trend.Platform) {
	if !slices.Contains(a.order, platform) {
		a.order = append(a.order, platform)
	}
}
