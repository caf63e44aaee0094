package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mingkaili/ai-trading-signal-engine/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the signal pipeline once",
	Long: `Run the full daily pipeline for one as-of date.

Stages: settings, market regime, indicators, sector ranks, per-symbol
decisions, fills, signals and alerts. A date that already completed is
a no-op unless --force is set.

Example:
  go run ./cmd/engine run
  go run ./cmd/engine run --date 2026-02-13 --rank-sectors
  go run ./cmd/engine run --date 2026-02-13 --force`,
	RunE: runPipeline,
}

var (
	runDate        string
	runRankSectors bool
	runForce       bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runDate, "date", "", "as-of date YYYY-MM-DD (default today)")
	runCmd.Flags().BoolVar(&runRankSectors, "rank-sectors", false, "recompute this week's sector cohort")
	runCmd.Flags().BoolVar(&runForce, "force", false, "rerun even if the date already completed")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	asOf := time.Now()
	if runDate != "" {
		asOf, err = time.Parse("2006-01-02", runDate)
		if err != nil {
			return fmt.Errorf("invalid --date, expected YYYY-MM-DD: %w", err)
		}
	}

	result, err := app.orchestrator.Run(context.Background(), pipeline.RunConfig{
		AsOf:        asOf,
		RankSectors: runRankSectors,
		Force:       runForce,
	})
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	if result.AlreadyDone {
		fmt.Printf("Run for %s already completed (key %s)\n",
			result.AsOf.Format("2006-01-02"), result.Key)
		return nil
	}

	fmt.Printf("Run for %s completed in %s\n", result.AsOf.Format("2006-01-02"), result.Duration)
	fmt.Printf("  Regime:         %s\n", result.Regime)
	fmt.Printf("  Computed:       %d symbols (%d skipped)\n", result.Computed, result.Skipped)
	fmt.Printf("  Sectors ranked: %d\n", result.SectorsRanked)
	for t, n := range result.Verdicts {
		fmt.Printf("  %-14s %d\n", string(t)+":", n)
	}
	fmt.Printf("  Risk rejected:  %d\n", result.RiskRejected)
	fmt.Printf("  Alerts:         %d\n", result.Alerts)
	return nil
}
