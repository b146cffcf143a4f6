package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/achernyakov/trendpulse/internal/trend"
)

func TestDedupSet_SeenInsideWindow(t *testing.T) {
	d := newDedupSet()
	now := time.Now()

	assert.False(t, d.Seen("a:tiktok", now))

	d.Add("a:tiktok", now.Add(time.Minute))
	assert.True(t, d.Seen("a:tiktok", now))
	assert.False(t, d.Seen("a:tiktok", now.Add(2*time.Minute)), "expiry is exclusive")
	assert.Equal(t, 1, d.Len())
}

func TestDedupSet_SweepRemovesExpired(t *testing.T) {
	d := newDedupSet()
	now := time.Now()

	d.Add("old", now.Add(time.Second))
	d.Add("new", now.Add(time.Hour))

	d.Sweep(now.Add(time.Minute))

	assert.Equal(t, 1, d.Len())
	assert.False(t, d.Seen("old", now))
	assert.True(t, d.Seen("new", now))
}

func TestDedupSet_ReaddExtendsWindow(t *testing.T) {
	d := newDedupSet()
	now := time.Now()

	d.Add("k", now.Add(time.Second))
	d.Add("k", now.Add(time.Hour))

	// Sweeping past the first expiry must not evict the key: the second
	// Add superseded the earlier heap entry.
	d.Sweep(now.Add(time.Minute))

	assert.Equal(t, 1, d.Len())
	assert.True(t, d.Seen("k", now.Add(time.Minute)))
}

func TestDedupSet_SweepDrainsInExpiryOrder(t *testing.T) {
	d := newDedupSet()
	now := time.Now()

	for i, key := range []string{"c", "a", "b"} {
		d.Add(key, now.Add(time.Duration(3-i)*time.Minute))
	}
	assert.Equal(t, 3, d.Len())

	d.Sweep(now.Add(90 * time.Second))
	assert.Equal(t, 2, d.Len(), "only the earliest expiry is gone")

	d.Sweep(now.Add(time.Hour))
	assert.Equal(t, 0, d.Len())
}

func TestFilter_BlockedTerms(t *testing.T) {
	f := NewFilter(FilterConfig{AdditionalTerms: []string{"Spoilers"}})

	tests := []struct {
		name string
		tr   trend.Trend
		pass bool
	}{
		{"clean", trend.Trend{Name: "#WorldCup"}, true},
		{"default term in name", trend.Trend{Name: "Like4Like central"}, false},
		{"default term in description", trend.Trend{Name: "growth", Description: "best f4f group"}, false},
		{"extra term case-insensitive", trend.Trend{Name: "FINALE SPOILERS"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.pass, f.Check(tt.tr))
		})
	}
}

func TestFilter_MinVolume(t *testing.T) {
	f := NewFilter(FilterConfig{MinVolume: 100})

	assert.False(t, f.Check(trend.Trend{Name: "small", Metrics: trend.Metrics{CurrentVolume: 50}}))
	assert.True(t, f.Check(trend.Trend{Name: "big", Metrics: trend.Metrics{CurrentVolume: 100}}))

	// Zero threshold admits everything by volume.
	open := NewFilter(FilterConfig{})
	assert.True(t, open.Check(trend.Trend{Name: "tiny"}))
}

func TestFilter_Apply(t *testing.T) {
	f := NewFilter(FilterConfig{MinVolume: 10})

	in := []trend.Trend{
		{Name: "keep", Metrics: trend.Metrics{CurrentVolume: 20}},
		{Name: "sub4sub ring", Metrics: trend.Metrics{CurrentVolume: 500}},
		{Name: "quiet", Metrics: trend.Metrics{CurrentVolume: 1}},
	}

	out := f.Apply(in)
	assert.Len(t, out, 1)
	assert.Equal(t, "keep", out[0].Name)
}
