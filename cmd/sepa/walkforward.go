package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var walkforwardOut string

var walkforwardCmd = &cobra.Command{
	Use:   "walkforward",
	Short: "Walk-forward validation of the weight optimization",
	Long: `Repeatedly optimize weights on an expanding training window and
evaluate them on the following unseen test window`,
	RunE: runWalkforward,
}

func init() {
	walkforwardCmd.Flags().StringVar(&walkforwardOut, "out", "walkforward.md", "output file for the report")
	rootCmd.AddCommand(walkforwardCmd)
}

func runWalkforward(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.log.Sync()

	p, err := a.backtestParams()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Optimizer.Timeout)
	defer cancel()

	wf := backtestWalkForward(a)
	result, err := wf.Run(ctx, p, a.ranges(), objective(a.cfg.Optimizer.Objective),
		a.cfg.WalkForward.TrainYears, a.cfg.WalkForward.TestMonths)
	if err != nil {
		return fmt.Errorf("walk-forward failed: %w", err)
	}

	fmt.Println("=== SEPA Walk-Forward ===")
	fmt.Printf("Periods:          %d\n", len(result.Periods))
	fmt.Printf("Aggregate trades: %d\n", result.AggregateMetrics.TotalTrades)
	if result.AggregateMetrics.TotalTrades > 0 {
		fmt.Printf("Aggregate win:    %.1f%%\n", result.AggregateMetrics.WinRatePct)
		fmt.Printf("Aggregate return: %+.2f%%\n", result.AggregateMetrics.AvgReturnPct)
		fmt.Printf("Aggregate Sharpe: %.2f\n", result.AggregateRisk.SharpeRatio)
	}

	var buf bytes.Buffer
	if err := result.WriteReport(&buf); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	if err := os.WriteFile(walkforwardOut, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := a.runs.Save(ctx, result.RunID, "walkforward.md", buf.Bytes()); err != nil {
		a.log.Warn("archiving walk-forward report failed", zap.Error(err))
	}
	a.log.Info("walk-forward report written",
		zap.String("path", walkforwardOut),
		zap.String("run_id", result.RunID))
	fmt.Printf("\nReport written to %s\n", walkforwardOut)

	return nil
}
