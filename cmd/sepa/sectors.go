package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/sepa/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sectorsOut string

var sectorsCmd = &cobra.Command{
	Use:   "sectors",
	Short: "Optimize weights per sector",
	Long: `Backtest each configured sector with the current weights to establish a
baseline, then search each sector's weight space independently and
export the per-sector winners`,
	RunE: runSectors,
}

func init() {
	sectorsCmd.Flags().StringVar(&sectorsOut, "out", "sector_weights.yaml", "output file for per-sector weights")
	rootCmd.AddCommand(sectorsCmd)
}

func runSectors(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.log.Sync()

	if len(a.cfg.Sectors) == 0 {
		return fmt.Errorf("no sectors configured")
	}

	p, err := a.backtestParams()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Optimizer.Timeout)
	defer cancel()

	fmt.Println("=== SEPA Sector Optimization ===")
	fmt.Printf("Sectors: %d\n", len(a.cfg.Sectors))
	fmt.Printf("Target:  %.1f%% win rate\n", a.cfg.Optimizer.TargetWinRate)
	fmt.Println()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	results, err := a.optimizer().OptimizeBySector(ctx, p, a.ranges(), a.cfg.Sectors,
		a.cfg.Optimizer.RandomSamples, a.cfg.Optimizer.TargetWinRate, rng)
	if err != nil {
		return fmt.Errorf("sector optimization failed: %w", err)
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	met := 0
	export := make(map[string]config.SectorWeights, len(results))
	for _, name := range names {
		r := results[name]
		mark := "miss"
		if r.TargetMet {
			mark = "met"
			met++
		}
		fmt.Printf("%s: %.1f%% -> %.1f%% win rate (%+.1f pts, target %s)\n",
			r.Sector, r.Baseline.WinRatePct, r.Optimized.WinRatePct, r.ImprovementPct, mark)
		export[name] = config.SectorWeights{
			Weights:        r.Best.BestWeights,
			WinRatePct:     r.Optimized.WinRatePct,
			AvgReturnPct:   r.Optimized.AvgReturnPct,
			ImprovementPct: r.ImprovementPct,
		}
	}
	fmt.Printf("\nSectors meeting target: %d / %d\n", met, len(results))

	data, err := config.MarshalSectorWeights(export)
	if err != nil {
		return fmt.Errorf("exporting sector weights: %w", err)
	}
	if err := os.WriteFile(sectorsOut, data, 0o644); err != nil {
		return fmt.Errorf("writing sector weights file: %w", err)
	}
	runID := uuid.NewString()
	if err := a.runs.Save(ctx, runID, "sector_weights.yaml", data); err != nil {
		a.log.Warn("archiving sector weights failed", zap.Error(err))
	}
	a.log.Info("sector weights exported",
		zap.String("path", sectorsOut),
		zap.String("run_id", runID))
	fmt.Printf("Weights written to %s\n", sectorsOut)

	return nil
}
