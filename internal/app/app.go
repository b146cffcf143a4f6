// Package app wires the application together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/achernyakov/trendpulse/internal/aggregator"
	"github.com/achernyakov/trendpulse/internal/cache"
	"github.com/achernyakov/trendpulse/internal/config"
	"github.com/achernyakov/trendpulse/internal/events"
	"github.com/achernyakov/trendpulse/internal/monitor"
	"github.com/achernyakov/trendpulse/internal/platform"
	"github.com/achernyakov/trendpulse/internal/store"
)

// App is the main application container holding all dependencies.
type App struct {
	Config     *config.Config
	Store      *store.Store
	Cache      *cache.Cache
	Aggregator *aggregator.Aggregator
	Monitors   []*monitor.Monitor
}

// New creates an application instance with all dependencies wired up.
// The store and cache are only opened when their pipeline paths are
// enabled.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if cfg.EnablePersistence {
		st, err := store.Open(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("migrate store: %w", err)
		}
		a.Store = st
	}

	if cfg.EnableCaching {
		c, err := cache.Open(cache.Config{
			Path:       cfg.CachePath,
			DefaultTTL: cfg.CacheTTL,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open cache: %w", err)
		}
		a.Cache = c
	}

	aggCfg := aggregator.Config{
		EnablePersistence:   cfg.EnablePersistence,
		EnableCaching:       cfg.EnableCaching,
		CacheTTL:            cfg.CacheTTL,
		DeduplicationWindow: cfg.DeduplicationWindow,
		CleanupInterval:     cfg.CleanupInterval,
		RetentionDays:       cfg.RetentionDays,
		StaleThreshold:      cfg.StaleThreshold,
		EventBuffer:         cfg.EventBuffer,
		Filter: aggregator.NewFilter(aggregator.FilterConfig{
			AdditionalTerms: cfg.BlockedTerms,
			MinVolume:       cfg.MinVolume,
		}),
	}
	if a.Store != nil {
		aggCfg.Store = a.Store
	}
	if a.Cache != nil {
		aggCfg.Cache = a.Cache
	}
	a.Aggregator = aggregator.New(aggCfg)

	for _, name := range cfg.Platforms {
		var fetcher monitor.PlatformFetcher
		switch name {
		case "tiktok":
			fetcher = platform.NewTikTok(platform.TikTokConfig{PollInterval: cfg.TikTokInterval})
		case "youtube":
			fetcher = platform.NewYouTube(platform.YouTubeConfig{PollInterval: cfg.YouTubeInterval})
		case "instagram":
			fetcher = platform.NewInstagram(platform.InstagramConfig{PollInterval: cfg.InstagramInterval})
		case "twitter":
			fetcher = platform.NewTwitter(platform.TwitterConfig{PollInterval: cfg.TwitterInterval})
		default:
			a.Close()
			return nil, fmt.Errorf("unknown platform: %s", name)
		}

		m := monitor.New(fetcher)
		a.Aggregator.RegisterMonitor(m)
		a.Monitors = append(a.Monitors, m)
	}

	return a, nil
}

// Run starts the cleanup task and all monitors, then blocks until the
// context is cancelled. A monitor that fails to start is logged and
// skipped; the others keep running.
func (a *App) Run(ctx context.Context) error {
	a.Aggregator.Start(ctx)
	defer a.Aggregator.Stop()

	started := 0
	for _, m := range a.Monitors {
		if err := m.Start(ctx); err != nil {
			slog.Error("monitor failed to start", "platform", m.Platform(), "error", err)
			continue
		}
		started++
	}
	if started == 0 {
		return errors.New("no monitors started")
	}

	sub := a.Aggregator.Bus().Subscribe(events.TopicAll)
	defer a.Aggregator.Bus().Unsubscribe(sub)
	errSub := a.Aggregator.Bus().SubscribeErrors()
	defer a.Aggregator.Bus().UnsubscribeErrors(errSub)

	slog.Info("trend pipeline running", "monitors", started)

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			a.stopMonitors()
			return ctx.Err()
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			slog.Info("trends detected",
				"platform", ev.Platform,
				"count", len(ev.Trends),
				"at", ev.Timestamp.Format(time.RFC3339),
			)
		case merr, ok := <-errSub.C:
			if !ok {
				return nil
			}
			slog.Warn("platform error",
				"platform", merr.Platform,
				"type", merr.Type,
				"message", merr.Message,
			)
		}
	}
}

func (a *App) stopMonitors() {
	for _, m := range a.Monitors {
		if !m.IsActive() {
			continue
		}
		if err := m.Stop(); err != nil {
			slog.Warn("monitor stop failed", "platform", m.Platform(), "error", err)
		}
	}
}

// Close releases all resources.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
