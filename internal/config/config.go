// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. It is fixed at startup;
// nothing here is runtime-mutable.
type Config struct {
	// Storage
	DatabasePath string
	CachePath    string

	// Pipeline
	EnablePersistence   bool
	EnableCaching       bool
	CacheTTL            time.Duration
	DeduplicationWindow time.Duration
	CleanupInterval     time.Duration
	RetentionDays       int
	StaleThreshold      time.Duration
	EventBuffer         int

	// Platforms to monitor, with per-platform polling cadence overrides.
	Platforms         []string
	TikTokInterval    time.Duration
	YouTubeInterval   time.Duration
	InstagramInterval time.Duration
	TwitterInterval   time.Duration

	// Filtering
	MinVolume    float64
	BlockedTerms []string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
// It automatically loads a .env file if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath: getEnv("DATABASE_PATH", "data/trendpulse.db"),
		CachePath:    getEnv("CACHE_PATH", "data/cache"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Platforms:    splitList(getEnv("PLATFORMS", "tiktok,youtube,instagram,twitter")),
		BlockedTerms: splitList(getEnv("BLOCKED_TERMS", "")),
	}

	var err error
	if cfg.EnablePersistence, err = getBool("ENABLE_PERSISTENCE", true); err != nil {
		return nil, err
	}
	if cfg.EnableCaching, err = getBool("ENABLE_CACHING", true); err != nil {
		return nil, err
	}

	if cfg.CacheTTL, err = getDuration("CACHE_TTL", "15m"); err != nil {
		return nil, err
	}
	if cfg.DeduplicationWindow, err = getDuration("DEDUP_WINDOW", "5m"); err != nil {
		return nil, err
	}
	if cfg.CleanupInterval, err = getDuration("CLEANUP_INTERVAL", "24h"); err != nil {
		return nil, err
	}
	if cfg.StaleThreshold, err = getDuration("STALE_THRESHOLD", "15m"); err != nil {
		return nil, err
	}
	if cfg.TikTokInterval, err = getDuration("TIKTOK_POLL_INTERVAL", "2m"); err != nil {
		return nil, err
	}
	if cfg.YouTubeInterval, err = getDuration("YOUTUBE_POLL_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	if cfg.InstagramInterval, err = getDuration("INSTAGRAM_POLL_INTERVAL", "4m"); err != nil {
		return nil, err
	}
	if cfg.TwitterInterval, err = getDuration("TWITTER_POLL_INTERVAL", "2m"); err != nil {
		return nil, err
	}

	if cfg.RetentionDays, err = getInt("RETENTION_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.EventBuffer, err = getInt("EVENT_BUFFER", 64); err != nil {
		return nil, err
	}

	minVolume := getEnv("MIN_VOLUME", "0")
	if cfg.MinVolume, err = strconv.ParseFloat(minVolume, 64); err != nil {
		return nil, fmt.Errorf("invalid MIN_VOLUME: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if len(c.Platforms) == 0 {
		return fmt.Errorf("PLATFORMS is required")
	}
	for _, p := range c.Platforms {
		switch p {
		case "tiktok", "youtube", "instagram", "twitter":
		default:
			return fmt.Errorf("unknown platform: %s", p)
		}
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("RETENTION_DAYS must be positive")
	}
	return nil
}

// ValidateForServe checks configuration needed for serve mode.
func (c *Config) ValidateForServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.EnablePersistence && c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required when persistence is enabled")
	}
	if c.EnableCaching && c.CachePath == "" {
		return fmt.Errorf("CACHE_PATH is required when caching is enabled")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getDuration(key, defaultVal string) (time.Duration, error) {
	parsed, err := time.ParseDuration(getEnv(key, defaultVal))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
