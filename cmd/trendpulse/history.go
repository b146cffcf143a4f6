package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/achernyakov/trendpulse/internal/app"
	"github.com/achernyakov/trendpulse/internal/trend"
)

var (
	historyPlatform string
	historyLimit    int
	historyOffset   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored trend snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			snaps, err := a.Aggregator.TrendHistory(ctx,
				trend.Platform(historyPlatform), historyLimit, historyOffset)
			if err != nil {
				return fmt.Errorf("query history: %w", err)
			}
			if len(snaps) == 0 {
				fmt.Println("No snapshots stored.")
				return nil
			}

			for _, s := range snaps {
				fmt.Printf("%s [%s] %-30s volume=%.0f growth=%+.2f\n",
					s.RecordedAt.Format(time.RFC3339), s.Platform, s.Name,
					s.Metrics.CurrentVolume, s.Metrics.GrowthRate)
			}
			return nil
		})
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove snapshots past the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			deleted, err := a.Aggregator.PerformCleanup(ctx)
			if err != nil {
				return fmt.Errorf("cleanup: %w", err)
			}
			fmt.Printf("Deleted %d snapshots.\n", deleted)
			return nil
		})
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyPlatform, "platform", "p", "", "restrict to one platform")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "max snapshots to show")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "pagination offset")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cleanupCmd)
}
