package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/achernyakov/trendpulse/internal/app"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the pipeline's collaborators and print merged health",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			status := a.Aggregator.GetHealthStatus(ctx)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(status); err != nil {
				return fmt.Errorf("encode health: %w", err)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
