package aggregator

import (
	"sync"
	"time"

	"github.com/achernyakov/trendpulse/internal/trend"
)

// PlatformStatus records the last observed condition of one platform feed.
type PlatformStatus struct {
	Healthy     bool
	LastCheck   time.Time
	LastSuccess time.Time
	LastError   error
	Message     string
}

// healthTracker tracks per-platform feed condition. Fed by ingest
// successes and monitor error events.
type healthTracker struct {
	mu        sync.RWMutex
	platforms map[trend.Platform]*PlatformStatus
}

func newHealthTracker() *healthTracker {
	return &healthTracker{
		platforms: make(map[trend.Platform]*PlatformStatus),
	}
}

// SetHealthy marks a platform feed as healthy.
func (h *healthTracker) SetHealthy(platform trend.Platform, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	status, ok := h.platforms[platform]
	if !ok {
		status = &PlatformStatus{}
		h.platforms[platform] = status
	}

	status.Healthy = true
	status.LastCheck = now
	status.LastSuccess = now
	status.LastError = nil
	status.Message = message
}

// SetUnhealthy marks a platform feed as failing.
func (h *healthTracker) SetUnhealthy(platform trend.Platform, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	status, ok := h.platforms[platform]
	if !ok {
		status = &PlatformStatus{}
		h.platforms[platform] = status
	}

	status.Healthy = false
	status.LastCheck = time.Now()
	status.LastError = err
	status.Message = err.Error()
}

// Status returns a copy of one platform's status, or nil if unknown.
func (h *healthTracker) Status(platform trend.Platform) *PlatformStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if status, ok := h.platforms[platform]; ok {
		copied := *status
		return &copied
	}
	return nil
}

// Statuses returns copies of all platform statuses.
func (h *healthTracker) Statuses() map[trend.Platform]PlatformStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[trend.Platform]PlatformStatus, len(h.platforms))
	for platform, status := range h.platforms {
		result[platform] = *status
	}
	return result
}

// Forget drops a platform from the tracker.
func (h *healthTracker) Forget(platform trend.Platform) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.platforms, platform)
}
