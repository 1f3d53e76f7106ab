package marketdata

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/sepa/internal/core"
)

func TestYahoo_Fundamentals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"quoteSummary": {
				"result": [{
					"summaryDetail": {"trailingPE": {"raw": 24.5}},
					"financialData": {
						"earningsGrowth": {"raw": 0.12},
						"debtToEquity": {"raw": 150.0},
						"returnOnEquity": {"raw": 0.28}
					}
				}],
				"error": null
			}
		}`))
	}))
	defer srv.Close()

	y := NewYahoo()
	y.summaryURL = srv.URL

	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	f, err := y.Fundamentals(context.Background(), "AAPL", asOf)
	if err != nil {
		t.Fatalf("Fundamentals failed: %v", err)
	}

	if f.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", f.Symbol)
	}
	if want := asOf.AddDate(0, 0, -ReportingLagDays); !f.AsOf.Equal(want) {
		t.Errorf("as-of = %v, want %v (reporting lag applied)", f.AsOf, want)
	}
	if f.PERatio != 24.5 {
		t.Errorf("PE = %v, want 24.5", f.PERatio)
	}
	if math.Abs(f.EPSGrowthPct-12.0) > 1e-9 {
		t.Errorf("EPS growth = %v, want 12.0", f.EPSGrowthPct)
	}
	if math.Abs(f.DebtToEquity-1.5) > 1e-9 {
		t.Errorf("D/E = %v, want 1.5", f.DebtToEquity)
	}
	if f.ReturnOnEquity != 0.28 {
		t.Errorf("ROE = %v, want 0.28", f.ReturnOnEquity)
	}
}

func TestYahoo_Fundamentals_NoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteSummary": {"result": [], "error": null}}`))
	}))
	defer srv.Close()

	y := NewYahoo()
	y.summaryURL = srv.URL

	_, err := y.Fundamentals(context.Background(), "NOPE", time.Now())
	if !errors.Is(err, core.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestYahoo_Fundamentals_InvalidSymbol(t *testing.T) {
	y := NewYahoo()
	_, err := y.Fundamentals(context.Background(), "not a symbol!!", time.Now())
	if !errors.Is(err, core.ErrSymbolNotFound) {
		t.Errorf("expected ErrSymbolNotFound, got %v", err)
	}
}
