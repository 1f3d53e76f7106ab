package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/newthinker/sepa/internal/config"
	"github.com/newthinker/sepa/internal/regime"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	regimeOptimize bool
	regimeOut      string
)

var regimeCmd = &cobra.Command{
	Use:   "regime",
	Short: "Classify market regimes",
	Long: `Label each trading day Bull or Bear from the index price versus its
long moving average, and optionally optimize weights per regime`,
	RunE: runRegime,
}

func init() {
	regimeCmd.Flags().BoolVar(&regimeOptimize, "optimize", false, "also optimize weights per regime")
	regimeCmd.Flags().StringVar(&regimeOut, "out", "weights.yaml", "output file for per-regime weights")
	rootCmd.AddCommand(regimeCmd)
}

func runRegime(cmd *cobra.Command, args []string) error {
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

	// Classify over a wider window so the moving average is warm at the
	// start of the analysis range
	fetchStart := p.Start.AddDate(-2, 0, 0)
	index, err := a.data.History(ctx, a.cfg.Data.IndexSymbol, fetchStart, p.End)
	if err != nil {
		return fmt.Errorf("fetching index history: %w", err)
	}

	classifier, err := regime.Classify(index, a.cfg.Regime.MAPeriod)
	if err != nil {
		return fmt.Errorf("classifying regimes: %w", err)
	}

	stats := classifier.Statistics(p.Start, p.End)
	fmt.Println("=== SEPA Market Regimes ===")
	fmt.Printf("Index:    %s (MA%d)\n", a.cfg.Data.IndexSymbol, a.cfg.Regime.MAPeriod)
	fmt.Printf("Period:   %s to %s\n", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
	fmt.Printf("Days:     %d (%d bull %.1f%%, %d bear %.1f%%)\n",
		stats.TotalDays, stats.BullDays, stats.BullPct, stats.BearDays, stats.BearPct)
	fmt.Printf("Changes:  %d (avg regime %.0f days)\n", stats.RegimeChanges, stats.AvgDurationDays)

	if bull, ok := classifier.Longest(regime.Bull); ok {
		fmt.Printf("Longest bull: %s to %s (%d days)\n",
			bull.Start.Format("2006-01-02"), bull.End.Format("2006-01-02"), bull.Days())
	}
	if bear, ok := classifier.Longest(regime.Bear); ok {
		fmt.Printf("Longest bear: %s to %s (%d days)\n",
			bear.Start.Format("2006-01-02"), bear.End.Format("2006-01-02"), bear.Days())
	}

	if !regimeOptimize {
		return nil
	}

	fmt.Println()
	fmt.Println("Optimizing weights per regime...")
	rw, err := a.optimizer().OptimizeByRegime(ctx, p, a.ranges(), objective(a.cfg.Optimizer.Objective), classifier)
	if err != nil {
		return fmt.Errorf("regime optimization failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Bull market:")
	printWeights(rw.BullMarket)
	fmt.Println("Bear market:")
	printWeights(rw.BearMarket)

	data, err := config.MarshalWeights(a.cfg.Weights, &rw.BullMarket, &rw.BearMarket)
	if err != nil {
		return fmt.Errorf("exporting weights: %w", err)
	}
	if err := os.WriteFile(regimeOut, data, 0o644); err != nil {
		return fmt.Errorf("writing weights file: %w", err)
	}
	runID := uuid.NewString()
	if err := a.runs.Save(ctx, runID, "weights.yaml", data); err != nil {
		a.log.Warn("archiving weights failed", zap.Error(err))
	}
	a.log.Info("per-regime weights exported",
		zap.String("path", regimeOut),
		zap.String("run_id", runID))
	fmt.Printf("\nWeights written to %s\n", regimeOut)

	return nil
}
