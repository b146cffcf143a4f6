package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/achernyakov/trendpulse/internal/app"
	"github.com/achernyakov/trendpulse/internal/config"
	"github.com/achernyakov/trendpulse/internal/trend"
)

var (
	topLimit  int
	topMetric string
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the highest-ranked trends across all platforms",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			warmFromCache(ctx, a)

			trends := a.Aggregator.TopTrends(ctx, topLimit, topMetric)
			if len(trends) == 0 {
				fmt.Println("No trends available. Is the pipeline running?")
				return nil
			}

			for i, t := range trends {
				fmt.Printf("%2d. [%s] %-30s %s=%.0f\n",
					i+1, t.Platform, t.Name, topMetric, t.MetricValue(topMetric))
			}
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search current trends by name, description or type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			warmFromCache(ctx, a)

			matches := a.Aggregator.SearchTrends(ctx, args[0])
			if len(matches) == 0 {
				fmt.Printf("No trends matching %q.\n", args[0])
				return nil
			}

			for _, t := range matches {
				fmt.Printf("[%s] %s (%s) volume=%.0f\n",
					t.Platform, t.Name, t.Type, t.Metrics.CurrentVolume)
			}
			return nil
		})
	},
}

// warmFromCache backfills the in-memory view from the cache for every
// configured platform, so one-shot queries see the serve process's data.
func warmFromCache(ctx context.Context, a *app.App) {
	for _, name := range a.Config.Platforms {
		a.Aggregator.LatestTrendsByPlatform(ctx, trend.Platform(name))
	}
}

// withApp runs fn against a fully wired but not started application.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func init() {
	topCmd.Flags().IntVarP(&topLimit, "limit", "n", 10, "number of trends to show")
	topCmd.Flags().StringVarP(&topMetric, "metric", "m", trend.MetricCurrentVolume,
		"ranking metric (currentVolume, growthRate, engagementRate, sentiment)")

	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(searchCmd)
}
