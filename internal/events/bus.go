// Package events provides the pub/sub bus between the aggregator and
// downstream consumers. Publishing is non-blocking: a subscriber whose
// buffer is full misses the event rather than stalling the ingest path.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/achernyakov/trendpulse/internal/trend"
)

// TopicAll receives every deduplicated batch regardless of platform.
const TopicAll = "trends"

// PlatformTopic returns the platform-scoped topic name.
func PlatformTopic(p trend.Platform) string {
	return TopicAll + ":" + string(p)
}

// TrendEvent is the payload delivered on trend topics.
type TrendEvent struct {
	Platform  trend.Platform
	Trends    []trend.Trend
	Timestamp time.Time
}

// Subscription is a registered listener on one trend topic.
type Subscription struct {
	ID    uuid.UUID
	Topic string
	C     chan TrendEvent
}

// ErrorSubscription is a registered listener for monitor errors.
type ErrorSubscription struct {
	ID uuid.UUID
	C  chan *trend.MonitoringError
}

// Bus fans events out to subscribers over buffered channels.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string]map[uuid.UUID]*Subscription
	errSubs map[uuid.UUID]*ErrorSubscription
	buffer  int
	closed  bool
	dropped atomic.Uint64
}

// NewBus creates a bus with the given per-subscriber buffer size.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		subs:    make(map[string]map[uuid.UUID]*Subscription),
		errSubs: make(map[uuid.UUID]*ErrorSubscription),
		buffer:  buffer,
	}
}

// Subscribe registers a listener on a trend topic.
func (b *Bus) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		ID:    uuid.New(),
		Topic: topic,
		C:     make(chan TrendEvent, b.buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uuid.UUID]*Subscription)
	}
	b.subs[topic][sub.ID] = sub

	return sub
}

// SubscribeErrors registers a listener for monitor-level errors.
func (b *Bus) SubscribeErrors() *ErrorSubscription {
	sub := &ErrorSubscription{
		ID: uuid.New(),
		C:  make(chan *trend.MonitoringError, b.buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.errSubs[sub.ID] = sub

	return sub
}

// Unsubscribe removes a trend subscription and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if m, ok := b.subs[sub.Topic]; ok {
		if _, ok := m[sub.ID]; ok {
			delete(m, sub.ID)
			close(sub.C)
		}
	}
}

// UnsubscribeErrors removes an error subscription and closes its channel.
func (b *Bus) UnsubscribeErrors(sub *ErrorSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.errSubs[sub.ID]; ok {
		delete(b.errSubs, sub.ID)
		close(sub.C)
	}
}

// Publish delivers an event to all subscribers of a topic. Slow
// subscribers are skipped; skipped deliveries are counted.
func (b *Bus) Publish(topic string, ev TrendEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs[topic] {
		select {
		case sub.C <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// PublishError delivers a monitoring error to all error subscribers.
func (b *Bus) PublishError(merr *trend.MonitoringError) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.errSubs {
		select {
		case sub.C <- merr:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns the number of deliveries skipped due to full buffers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close shuts down the bus and closes all subscriber channels.
// Safe to call multiple times.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for topic, m := range b.subs {
		for id, sub := range m {
			close(sub.C)
			delete(m, id)
		}
		delete(b.subs, topic)
	}
	for id, sub := range b.errSubs {
		close(sub.C)
		delete(b.errSubs, id)
	}
}
