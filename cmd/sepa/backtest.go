package main

import (
	"context"
	"fmt"

	"github.com/newthinker/sepa/internal/backtest"
	"github.com/newthinker/sepa/internal/stats"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest the scoring strategy",
	Long:  "Replay the configured ticker list over the configured date range and report performance",
	RunE:  runBacktestCmd,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
}

func runBacktestCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.log.Sync()

	p, err := a.backtestParams()
	if err != nil {
		return err
	}

	ctx := context.Background()
	result, err := a.engine.Run(ctx, p)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printPerformance(result, a.cfg.Backtest.RiskFreeRate)

	// Archive the trade export under the run ID
	csvDoc, err := backtest.TradesCSV(result.Trades)
	if err != nil {
		return fmt.Errorf("rendering trade export: %w", err)
	}
	if err := a.runs.Save(ctx, result.RunID, "trades.csv", csvDoc); err != nil {
		return fmt.Errorf("archiving trade export: %w", err)
	}
	a.log.Info("trade export archived",
		zap.String("run_id", result.RunID),
		zap.Int("trades", len(result.Trades)),
	)

	return nil
}

func printPerformance(result *backtest.Result, riskFreeRate float64) {
	overall := backtest.Overall(result.Trades)
	risk := backtest.RiskAdjusted(result.Trades, riskFreeRate)
	streaks := backtest.Streaks(result.Trades)

	fmt.Println("=== SEPA Backtest ===")
	fmt.Printf("Run ID:  %s\n", result.RunID)
	fmt.Printf("Period:  %s to %s\n",
		result.Params.Start.Format("2006-01-02"), result.Params.End.Format("2006-01-02"))
	fmt.Printf("Tickers: %d\n", len(result.Params.Tickers))
	fmt.Println()

	fmt.Printf("Trades:       %d (skipped %d, vetoed %d)\n", overall.TotalTrades, result.Skipped, result.Vetoed)
	if overall.TotalTrades == 0 {
		return
	}

	fmt.Printf("Win rate:     %.1f%% (%d/%d)\n", overall.WinRatePct, overall.Winners, overall.TotalTrades)
	fmt.Printf("Avg return:   %+.2f%% (median %+.2f%%)\n", overall.AvgReturnPct, overall.MedianReturnPct)
	fmt.Printf("Best/worst:   %+.2f%% / %+.2f%%\n", overall.BestTradePct, overall.WorstTradePct)
	fmt.Printf("Streaks:      %d wins, %d losses\n", streaks.LongestWinStreak, streaks.LongestLossStreak)
	fmt.Println()
	fmt.Printf("Sharpe:       %.2f\n", risk.SharpeRatio)
	fmt.Printf("Sortino:      %.2f\n", risk.SortinoRatio)
	fmt.Printf("Max drawdown: %.2f%%\n", risk.MaxDrawdownPct)
	fmt.Printf("Calmar:       %.2f\n", risk.CalmarRatio)

	fmt.Println()
	fmt.Println("By score range:")
	for _, r := range backtest.ScoreRanges(result.Trades) {
		if r.TotalTrades == 0 {
			continue
		}
		fmt.Printf("  %-12s %3d trades  win %.1f%%  avg %+.2f%%\n",
			r.Name, r.TotalTrades, r.WinRatePct, r.AvgReturnPct)
	}

	returns := backtest.Returns(result.Trades)
	winTest := stats.WinRateSignificance(overall.Winners, overall.TotalTrades, 0.5)
	meanTest := stats.MeanReturnSignificance(returns, 0)
	ci := stats.BootstrapCI(returns, 0.95, stats.DefaultBootstrapResamples, nil)

	fmt.Println()
	fmt.Println("Statistical validation:")
	fmt.Printf("  %s (p=%.3f)\n", winTest.Conclusion, winTest.PValue)
	fmt.Printf("  %s (p=%.3f)\n", meanTest.Conclusion, meanTest.PValue)
	fmt.Printf("  95%% CI for mean return: [%+.2f%%, %+.2f%%]\n", ci.Lower, ci.Upper)
}
