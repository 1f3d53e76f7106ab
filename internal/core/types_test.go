package core

import (
	"math"
	"testing"
)

func TestSignalForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  Signal
	}{
		{8.0, SignalStrongBuy},
		{6.0, SignalStrongBuy},
		{4.5, SignalBuy},
		{3.0, SignalBuy},
		{0.0, SignalNeutral},
		{-2.9, SignalNeutral},
		{-3.0, SignalSell},
		{-5.9, SignalSell},
		{-6.0, SignalStrongSell},
		{-10.0, SignalStrongSell},
	}
	for _, tt := range tests {
		if got := SignalForScore(tt.score); got != tt.want {
			t.Errorf("SignalForScore(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestDefaultWeights_SumToOne(t *testing.T) {
	w := DefaultWeights()
	if math.Abs(w.Sum()-1.0) > 1e-9 {
		t.Errorf("default weights sum = %v, want 1.0", w.Sum())
	}
	if err := w.Validate(); err != nil {
		t.Errorf("default weights should validate: %v", err)
	}
}

func TestWeights_Normalized(t *testing.T) {
	w := Weights{
		TrendMomentum: 0.35,
		Volume:        0.20,
		Fundamental:   0.26,
		MarketContext: 0.15,
		Advanced:      0.10,
	}
	n := w.Normalized()
	if math.Abs(n.Sum()-1.0) > 1e-9 {
		t.Errorf("normalized sum = %v, want 1.0", n.Sum())
	}
	// Relative proportions preserved
	if math.Abs(n.TrendMomentum/n.Volume-w.TrendMomentum/w.Volume) > 1e-9 {
		t.Error("normalization should preserve proportions")
	}
}

func TestWeights_NormalizedZero(t *testing.T) {
	var w Weights
	if n := w.Normalized(); n != w {
		t.Error("zero vector should be returned unchanged")
	}
}

func TestWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		w       Weights
		wantErr bool
	}{
		{"default", DefaultWeights(), false},
		{"within tolerance", Weights{0.30, 0.15, 0.22, 0.18, 0.16}, false},
		{"sum too high", Weights{0.40, 0.25, 0.22, 0.18, 0.15}, true},
		{"sum too low", Weights{0.10, 0.10, 0.10, 0.10, 0.10}, true},
		{"negative weight", Weights{0.50, -0.05, 0.22, 0.18, 0.15}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCategoryScores_Weighted(t *testing.T) {
	c := CategoryScores{
		TrendMomentum: 10,
		Volume:        -10,
		Fundamental:   5,
		MarketContext: 0,
		Advanced:      2,
	}
	w := Weights{
		TrendMomentum: 0.4,
		Volume:        0.2,
		Fundamental:   0.2,
		MarketContext: 0.1,
		Advanced:      0.1,
	}
	want := 10*0.4 - 10*0.2 + 5*0.2 + 0 + 2*0.1
	if got := c.Weighted(w); math.Abs(got-want) > 1e-9 {
		t.Errorf("Weighted() = %v, want %v", got, want)
	}
}
