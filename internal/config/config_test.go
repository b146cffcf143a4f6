package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/trendpulse.db", cfg.DatabasePath)
	assert.Equal(t, "data/cache", cfg.CachePath)
	assert.True(t, cfg.EnablePersistence)
	assert.True(t, cfg.EnableCaching)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.DeduplicationWindow)
	assert.Equal(t, 24*time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, 64, cfg.EventBuffer)
	assert.Equal(t, []string{"tiktok", "youtube", "instagram", "twitter"}, cfg.Platforms)
	assert.Equal(t, 2*time.Minute, cfg.TikTokInterval)
	assert.Equal(t, 5*time.Minute, cfg.YouTubeInterval)
	assert.Equal(t, 4*time.Minute, cfg.InstagramInterval)
	assert.Equal(t, 2*time.Minute, cfg.TwitterInterval)
	assert.Zero(t, cfg.MinVolume)
	assert.Empty(t, cfg.BlockedTerms)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/custom.db")
	t.Setenv("ENABLE_PERSISTENCE", "false")
	t.Setenv("DEDUP_WINDOW", "90s")
	t.Setenv("PLATFORMS", "TikTok , twitter")
	t.Setenv("BLOCKED_TERMS", "spamword, other term")
	t.Setenv("MIN_VOLUME", "250.5")
	t.Setenv("RETENTION_DAYS", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.DatabasePath)
	assert.False(t, cfg.EnablePersistence)
	assert.Equal(t, 90*time.Second, cfg.DeduplicationWindow)
	assert.Equal(t, []string{"tiktok", "twitter"}, cfg.Platforms, "platforms are trimmed and lowercased")
	assert.Equal(t, []string{"spamword", "other term"}, cfg.BlockedTerms)
	assert.Equal(t, 250.5, cfg.MinVolume)
	assert.Equal(t, 7, cfg.RetentionDays)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad bool", "ENABLE_CACHING", "maybe"},
		{"bad duration", "CACHE_TTL", "soon"},
		{"bad int", "EVENT_BUFFER", "lots"},
		{"bad float", "MIN_VOLUME", "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Platforms:     []string{"tiktok", "youtube"},
			RetentionDays: 30,
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("no platforms", func(t *testing.T) {
		cfg := valid()
		cfg.Platforms = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown platform", func(t *testing.T) {
		cfg := valid()
		cfg.Platforms = []string{"tiktok", "myspace"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "myspace")
	})

	t.Run("bad retention", func(t *testing.T) {
		cfg := valid()
		cfg.RetentionDays = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestValidateForServe(t *testing.T) {
	base := func() *Config {
		return &Config{
			Platforms:         []string{"tiktok"},
			RetentionDays:     30,
			EnablePersistence: true,
			EnableCaching:     true,
			DatabasePath:      "data/db.sqlite",
			CachePath:         "data/cache",
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().ValidateForServe())
	})

	t.Run("missing database path", func(t *testing.T) {
		cfg := base()
		cfg.DatabasePath = ""
		assert.Error(t, cfg.ValidateForServe())
	})

	t.Run("missing cache path", func(t *testing.T) {
		cfg := base()
		cfg.CachePath = ""
		assert.Error(t, cfg.ValidateForServe())
	})

	t.Run("paths optional when disabled", func(t *testing.T) {
		cfg := base()
		cfg.EnablePersistence = false
		cfg.EnableCaching = false
		cfg.DatabasePath = ""
		cfg.CachePath = ""
		assert.NoError(t, cfg.ValidateForServe())
	})
}
