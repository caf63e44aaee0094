package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [symbols...]",
	Short: "Fetch and store daily bars",
	Long: `Fetch daily bars for the given symbols and store them.

Bars are immutable; refetching an already-stored window changes
nothing.

Example:
  go run ./cmd/engine fetch NVDA AMD SPY
  go run ./cmd/engine fetch NVDA --days 365`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

var fetchDays int

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().IntVar(&fetchDays, "days", 400, "calendar days of history to fetch")
}

func runFetch(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()
	to := time.Now()
	from := to.AddDate(0, 0, -fetchDays)

	for _, symbol := range args {
		bars, err := app.marketClient.FetchDailyBars(ctx, symbol, from, to)
		if err != nil {
			fmt.Printf("  %-6s fetch failed: %v\n", symbol, err)
			continue
		}
		if err := app.barRepo.SaveBatch(ctx, bars); err != nil {
			return fmt.Errorf("save bars for %s: %w", symbol, err)
		}
		fmt.Printf("  %-6s %d bars\n", symbol, len(bars))
	}
	return nil
}
