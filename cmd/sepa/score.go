package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/newthinker/sepa/internal/core"
	"github.com/spf13/cobra"
)

var scoreAsOf string

var scoreCmd = &cobra.Command{
	Use:   "score [ticker]",
	Short: "Score a single ticker",
	Long:  "Compute the weighted multi-factor composite score for one ticker",
	Args:  cobra.ExactArgs(1),
	RunE:  runScore,
}

func init() {
	scoreCmd.Flags().StringVar(&scoreAsOf, "as-of", "", "evaluation date YYYY-MM-DD (default: today)")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	ticker := args[0]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.log.Sync()

	asOf := time.Now().UTC()
	if scoreAsOf != "" {
		asOf, err = time.Parse("2006-01-02", scoreAsOf)
		if err != nil {
			return fmt.Errorf("invalid as-of date format (expected YYYY-MM-DD): %w", err)
		}
	}

	res, err := a.scorer.Score(context.Background(), ticker, asOf, a.cfg.Weights)
	if err != nil {
		return fmt.Errorf("scoring %s: %w", ticker, err)
	}

	fmt.Println("=== SEPA Score ===")
	fmt.Printf("Ticker:     %s\n", res.Ticker)
	fmt.Printf("As of:      %s\n", res.AsOf.Format("2006-01-02"))

	if res.Vetoed {
		fmt.Println("Vetoed:     yes")
		for _, r := range res.VetoReasons {
			fmt.Printf("  - %s\n", r)
		}
		os.Exit(1)
	}

	fmt.Printf("Score:      %+.2f\n", res.FinalScore)
	fmt.Printf("Signal:     %s\n", res.Signal)
	fmt.Printf("Confidence: %.0f%%\n", res.Confidence*100)
	fmt.Println()
	fmt.Println("Categories:")
	fmt.Printf("  Trend/Momentum: %+.2f\n", res.Categories.TrendMomentum)
	fmt.Printf("  Volume:         %+.2f\n", res.Categories.Volume)
	fmt.Printf("  Fundamental:    %+.2f\n", res.Categories.Fundamental)
	fmt.Printf("  Market Context: %+.2f\n", res.Categories.MarketContext)
	fmt.Printf("  Advanced:       %+.2f\n", res.Categories.Advanced)

	// Sell-class outcomes exit non-zero so shell pipelines can branch
	if res.Signal == core.SignalSell || res.Signal == core.SignalStrongSell {
		os.Exit(1)
	}
	return nil
}
