// Package cache provides the TTL key/value cache backed by BadgerDB.
// Everything here sits on the best-effort path: callers log and continue
// when a cache operation fails.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/achernyakov/trendpulse/internal/trend"
)

const trendsKeyPrefix = "trends:"

// Cache wraps a Badger database with JSON-encoded values and per-entry TTL.
type Cache struct {
	db         *badger.DB
	defaultTTL time.Duration
}

// Config holds cache configuration.
type Config struct {
	// Path is the Badger directory. Empty selects in-memory mode.
	Path       string
	DefaultTTL time.Duration
}

// Open creates the cache at cfg.Path, or in memory when the path is empty.
func Open(cfg Config) (*Cache, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Cache{db: db, defaultTTL: ttl}, nil
}

// CacheTrends stores a platform's latest batch. A non-positive ttl falls
// back to the default.
func (c *Cache) CacheTrends(ctx context.Context, platform trend.Platform, trends []trend.Trend, ttl time.Duration) error {
	return c.set(ctx, trendsKeyPrefix+string(platform), trends, ttl)
}

// CachedTrends returns the cached batch for a platform, or nil on a miss.
func (c *Cache) CachedTrends(ctx context.Context, platform trend.Platform) ([]trend.Trend, error) {
	var trends []trend.Trend
	found, err := c.get(ctx, trendsKeyPrefix+string(platform), &trends)
	if err != nil || !found {
		return nil, err
	}
	return trends, nil
}

// CacheAggregated stores an arbitrary query result under key.
func (c *Cache) CacheAggregated(ctx context.Context, key string, data any, ttl time.Duration) error {
	return c.set(ctx, "agg:"+key, data, ttl)
}

// CachedAggregated loads a query result into out, reporting whether the
// key was present.
func (c *Cache) CachedAggregated(ctx context.Context, key string, out any) (bool, error) {
	return c.get(ctx, "agg:"+key, out)
}

// HealthStatus reports the cache condition.
func (c *Cache) HealthStatus(ctx context.Context) (trend.CacheHealth, error) {
	if err := ctx.Err(); err != nil {
		return trend.CacheHealth{}, err
	}
	if c.db.IsClosed() {
		return trend.CacheHealth{}, errors.New("cache is closed")
	}

	lsm, vlog := c.db.Size()
	return trend.CacheHealth{
		Connected: true,
		SizeBytes: lsm + vlog,
	}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) set(ctx context.Context, key string, data any, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	value, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("cache write %s: %w", key, err)
	}
	return nil
}

func (c *Cache) get(ctx context.Context, key string, out any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache read %s: %w", key, err)
	}

	if err := json.Unmarshal(value, out); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}
