// Package platform implements the per-platform trend fetchers.
//
// The real upstream APIs are outside this system's boundary; each fetcher
// synthesizes representative batches from curated seed data so the
// pipeline behaves like production without network access. Session
// handling and client-side rate limiting are real.
package platform

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/achernyakov/trendpulse/internal/trend"
)

// seed is one template a fetcher samples batches from.
type seed struct {
	id       string
	typ      trend.Type
	name     string
	desc     string
	category string
	volume   float64
}

// fetcher is the common state shared by all platform implementations.
type fetcher struct {
	platform trend.Platform
	interval time.Duration
	seeds    []seed
	limiter  *rate.Limiter

	mu       sync.Mutex
	session  string
	rng      *rand.Rand
	fetchErr error // injected failure for the next fetch, test hook
}

func newFetcher(platform trend.Platform, interval time.Duration, seeds []seed) *fetcher {
	// Allow a small burst so an immediate first fetch plus an on-demand
	// query never trip the limiter under normal cadence.
	return &fetcher{
		platform: platform,
		interval: interval,
		seeds:    seeds,
		limiter:  rate.NewLimiter(rate.Every(interval/4), 4),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Platform identifies the source this fetcher serves.
func (f *fetcher) Platform() trend.Platform {
	return f.platform
}

// PollingInterval is the platform cadence.
func (f *fetcher) PollingInterval() time.Duration {
	return f.interval
}

// Initialize acquires a session token for the platform.
func (f *fetcher) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = fmt.Sprintf("%s-session-%08x", f.platform, f.rng.Uint32())
	return nil
}

// Cleanup releases the session.
func (f *fetcher) Cleanup() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.session == "" {
		return fmt.Errorf("%s: no active session", f.platform)
	}
	f.session = ""
	return nil
}

// Fetch produces one batch. Without a session it fails as an auth error;
// when called faster than the platform allows it fails as a rate limit.
func (f *fetcher) Fetch(ctx context.Context) ([]trend.Trend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fetchErr; err != nil {
		f.fetchErr = nil
		return nil, err
	}
	if f.session == "" {
		return nil, fmt.Errorf("%s: %w", f.platform, trend.ErrAuthentication)
	}
	if !f.limiter.Allow() {
		return nil, fmt.Errorf("%s: %w", f.platform, trend.ErrRateLimited)
	}

	return f.sample(), nil
}

// FailNext makes the next Fetch return err instead of a batch.
func (f *fetcher) FailNext(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr = err
}

// sample draws a jittered batch from the seed templates.
func (f *fetcher) sample() []trend.Trend {
	n := len(f.seeds)
	count := n/2 + f.rng.Intn(n/2+1)

	idx := f.rng.Perm(n)[:count]
	now := time.Now()

	trends := make([]trend.Trend, 0, count)
	for _, i := range idx {
		s := f.seeds[i]
		trends = append(trends, trend.Trend{
			ID:          s.id,
			Platform:    f.platform,
			Type:        s.typ,
			Name:        s.name,
			Description: s.desc,
			Metrics: trend.Metrics{
				CurrentVolume:  s.volume * (0.8 + 0.4*f.rng.Float64()),
				GrowthRate:     -0.2 + 0.7*f.rng.Float64(),
				EngagementRate: 0.01 + 0.15*f.rng.Float64(),
				Sentiment:      -1 + 2*f.rng.Float64(),
			},
			Metadata: trend.Metadata{
				StartTime: now.Add(-time.Duration(f.rng.Intn(72)) * time.Hour),
				Category:  s.category,
				Language:  "en",
			},
		})
	}
	return trends
}
