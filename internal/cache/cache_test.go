package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/achernyakov/trendpulse/internal/trend"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()

	c, err := Open(Config{DefaultTTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheTrends_Roundtrip(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	in := []trend.Trend{
		{
			ID:       "a",
			Platform: trend.PlatformTikTok,
			Type:     trend.TypeHashtag,
			Name:     "#GlowUp",
			Metrics:  trend.Metrics{CurrentVolume: 1200, GrowthRate: 0.4},
			Metadata: trend.Metadata{Category: "lifestyle", Language: "en"},
		},
	}

	require.NoError(t, c.CacheTrends(ctx, trend.PlatformTikTok, in, time.Minute))

	out, err := c.CachedTrends(ctx, trend.PlatformTikTok)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, in[0].ID, out[0].ID)
	assert.Equal(t, in[0].Name, out[0].Name)
	assert.Equal(t, in[0].Metrics.CurrentVolume, out[0].Metrics.CurrentVolume)
	assert.Equal(t, in[0].Metadata.Category, out[0].Metadata.Category)
}

func TestCachedTrends_Miss(t *testing.T) {
	c := openTestCache(t)

	out, err := c.CachedTrends(context.Background(), trend.PlatformYouTube)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestCacheTrends_KeysArePlatformScoped(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.CacheTrends(ctx, trend.PlatformTikTok,
		[]trend.Trend{{ID: "tk"}}, time.Minute))
	require.NoError(t, c.CacheTrends(ctx, trend.PlatformTwitter,
		[]trend.Trend{{ID: "tw"}}, time.Minute))

	out, err := c.CachedTrends(ctx, trend.PlatformTikTok)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "tk", out[0].ID)
}

func TestCacheAggregated(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	type result struct {
		Query string  `json:"query"`
		Score float64 `json:"score"`
	}

	require.NoError(t, c.CacheAggregated(ctx, "search:ai", result{Query: "ai", Score: 0.9}, time.Minute))

	var out result
	found, err := c.CachedAggregated(ctx, "search:ai", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ai", out.Query)

	found, err = c.CachedAggregated(ctx, "search:other", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_TTLExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("TTL expiry needs real time to pass")
	}

	c := openTestCache(t)
	ctx := context.Background()

	// Badger TTL has one second granularity.
	require.NoError(t, c.CacheTrends(ctx, trend.PlatformTikTok,
		[]trend.Trend{{ID: "short-lived"}}, time.Second))

	time.Sleep(2 * time.Second)

	out, err := c.CachedTrends(ctx, trend.PlatformTikTok)
	require.NoError(t, err)
	assert.Nil(t, out, "expired entry reads as a miss")
}

func TestCache_DefaultTTLFallback(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	// Zero TTL falls back to the configured default, so the read succeeds.
	require.NoError(t, c.CacheTrends(ctx, trend.PlatformInstagram,
		[]trend.Trend{{ID: "ig"}}, 0))

	out, err := c.CachedTrends(ctx, trend.PlatformInstagram)
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestCache_ContextCancelled(t *testing.T) {
	c := openTestCache(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.CacheTrends(ctx, trend.PlatformTikTok, nil, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = c.CachedTrends(ctx, trend.PlatformTikTok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCache_HealthStatus(t *testing.T) {
	c := openTestCache(t)

	health, err := c.HealthStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, health.Connected)

	require.NoError(t, c.Close())
	_, err = c.HealthStatus(context.Background())
	assert.Error(t, err, "closed cache reports unhealthy")
}

func TestOpen_OnDisk(t *testing.T) {
	c, err := Open(Config{Path: t.TempDir()})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.CacheTrends(ctx, trend.PlatformYouTube,
		[]trend.Trend{{ID: "persisted"}}, time.Minute))

	out, err := c.CachedTrends(ctx, trend.PlatformYouTube)
	require.NoError(t, err)
	require.Len(t, out, 1)
}
