package backtest

import (
	"context"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/regime"
	"go.uber.org/zap"
)

// RegimeWeights holds one weight profile per market regime
type RegimeWeights struct {
	BullMarket core.Weights `mapstructure:"bull_market" yaml:"bull_market"`
	BearMarket core.Weights `mapstructure:"bear_market" yaml:"bear_market"`
}

// For returns the profile for a label
func (r RegimeWeights) For(label regime.Label) core.Weights {
	if label == regime.Bear {
		return r.BearMarket
	}
	return r.BullMarket
}

// OptimizeByRegime runs a separate grid search inside the longest
// contiguous bull and bear periods of the classified index. A regime
// with no period long enough to backtest keeps the default weights.
func (o *Optimizer) OptimizeByRegime(ctx context.Context, p Params, ranges WeightRanges, objective Objective, classifier *regime.Classifier) (RegimeWeights, error) {
	out := RegimeWeights{
		BullMarket: core.DefaultWeights(),
		BearMarket: core.DefaultWeights(),
	}

	for _, label := range []regime.Label{regime.Bull, regime.Bear} {
		period, ok := classifier.Longest(label)
		if !ok {
			o.logger.Warn("no periods for regime, keeping default weights",
				zap.String("regime", string(label)),
			)
			continue
		}

		scoped := p
		scoped.Start = period.Start
		scoped.End = period.End

		o.logger.Info("optimizing regime",
			zap.String("regime", string(label)),
			zap.Time("start", period.Start),
			zap.Time("end", period.End),
			zap.Int("days", period.Days()),
		)

		result, err := o.GridSearch(ctx, scoped, ranges, objective)
		if err != nil {
			return out, err
		}
		if !result.Valid {
			continue
		}
		if label == regime.Bear {
			out.BearMarket = result.BestWeights
		} else {
			out.BullMarket = result.BestWeights
		}
	}

	return out, nil
}

// FilterTradesByRegime keeps trades whose entry date fell in the given
// regime
func FilterTradesByRegime(trades []Trade, classifier *regime.Classifier, label regime.Label) []Trade {
	var out []Trade
	for _, t := range trades {
		if classifier.ForDate(t.EntryDate) == label {
			out = append(out, t)
		}
	}
	return out
}
