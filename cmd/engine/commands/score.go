package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [symbol]",
	Short: "Score text for a symbol",
	Long: `Run the AI scorer over text for one symbol.

Reads the text from --file, or scrapes the symbol's profile page when
no file is given. Scores are content-addressed, so rescoring unchanged
text is free unless --force is set.

Example:
  go run ./cmd/engine score NVDA --file filing.txt
  go run ./cmd/engine score NVDA --force`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

var (
	scoreFile  string
	scoreType  string
	scoreForce bool
)

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().StringVar(&scoreFile, "file", "", "text file to score (default: profile page)")
	scoreCmd.Flags().StringVar(&scoreType, "type", "filing", "score type")
	scoreCmd.Flags().BoolVar(&scoreForce, "force", false, "rescore even if the text was scored before")
}

func runScore(cmd *cobra.Command, args []string) error {
	symbol := strings.ToUpper(args[0])

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()

	var text string
	if scoreFile != "" {
		raw, err := os.ReadFile(scoreFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", scoreFile, err)
		}
		text = string(raw)
	} else {
		profile, err := app.marketClient.FetchProfile(ctx, symbol)
		if err != nil {
			return fmt.Errorf("fetch profile: %w", err)
		}
		if profile.Description == "" {
			return fmt.Errorf("profile for %s has no description, pass --file", symbol)
		}
		text = profile.Description
	}

	score, err := app.scoreService.ScoreText(ctx, symbol, scoreType, text, scoreForce)
	if err != nil {
		return fmt.Errorf("score text: %w", err)
	}

	fmt.Printf("Score for %s (%s):\n", symbol, scoreType)
	fmt.Printf("  Growth phase: %s\n", score.GrowthPhase)
	fmt.Printf("  Hype risk:    %s\n", score.HypeRisk)
	fmt.Printf("  Conviction:   %d\n", score.Conviction)
	for _, e := range score.Evidence {
		fmt.Printf("  + %s\n", e)
	}
	for _, r := range score.Risks {
		fmt.Printf("  - %s\n", r)
	}
	return nil
}
