package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/sepa/internal/backtest"
	"github.com/newthinker/sepa/internal/config"
	"github.com/newthinker/sepa/internal/core"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	optimizeMethod string
	optimizeOut    string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Search for better category weights",
	Long:  "Grid or random search over candidate weight combinations, scored by backtest",
	RunE:  runOptimize,
}

func init() {
	optimizeCmd.Flags().StringVar(&optimizeMethod, "method", "grid", "search method: grid or random")
	optimizeCmd.Flags().StringVar(&optimizeOut, "out", "weights.yaml", "output file for optimized weights")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
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

	opt := a.optimizer()
	ranges := a.ranges()
	obj := objective(a.cfg.Optimizer.Objective)

	fmt.Println("=== SEPA Weight Optimization ===")
	fmt.Printf("Method:       %s\n", optimizeMethod)
	fmt.Printf("Objective:    %s\n", a.cfg.Optimizer.Objective)
	fmt.Printf("Combinations: %d\n", ranges.Combinations())
	fmt.Println()

	var result backtest.OptimizationResult
	switch optimizeMethod {
	case "random":
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		result, err = opt.RandomSearch(ctx, p, ranges, obj, a.cfg.Optimizer.RandomSamples, rng)
	default:
		result, err = opt.GridSearch(ctx, p, ranges, obj)
	}
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}

	if !result.Valid {
		fmt.Println("No valid weight combinations found; keeping default weights.")
	}

	fmt.Printf("Tested:     %d combinations\n", result.Tested)
	fmt.Printf("Best score: %.2f (%s)\n", result.BestScore, result.Objective)
	fmt.Println()
	printWeights(result.BestWeights)

	data, err := config.MarshalWeights(result.BestWeights, nil, nil)
	if err != nil {
		return fmt.Errorf("exporting weights: %w", err)
	}
	if err := os.WriteFile(optimizeOut, data, 0o644); err != nil {
		return fmt.Errorf("writing weights file: %w", err)
	}
	runID := uuid.NewString()
	if err := a.runs.Save(ctx, runID, "weights.yaml", data); err != nil {
		a.log.Warn("archiving weights failed", zap.Error(err))
	}
	a.log.Info("optimized weights exported",
		zap.String("path", optimizeOut),
		zap.String("run_id", runID))
	fmt.Printf("\nWeights written to %s\n", optimizeOut)

	return nil
}

func printWeights(w core.Weights) {
	fmt.Println("Weights:")
	fmt.Printf("  trend_momentum: %.3f\n", w.TrendMomentum)
	fmt.Printf("  volume:         %.3f\n", w.Volume)
	fmt.Printf("  fundamental:    %.3f\n", w.Fundamental)
	fmt.Printf("  market_context: %.3f\n", w.MarketContext)
	fmt.Printf("  advanced:       %.3f\n", w.Advanced)
}
