package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/sepa/internal/core"
)

const quoteSummaryBaseURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary"

// Fundamentals fetches the fundamental snapshot from the Yahoo
// quoteSummary API. Yahoo only serves present-day fundamentals;
// historical asOf dates receive the current snapshot, which is an
// approximation backtests must account for (see ReportingLagDays).
func (y *Yahoo) Fundamentals(ctx context.Context, symbol string, asOf time.Time) (Fundamentals, error) {
	if err := validateSymbol(symbol); err != nil {
		return Fundamentals{}, core.WrapError(core.ErrSymbolNotFound, err)
	}

	url := fmt.Sprintf("%s/%s?modules=summaryDetail%%2CfinancialData",
		y.quoteSummaryURL(), y.toYahooSymbol(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Fundamentals{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return Fundamentals{}, core.WrapError(core.ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Fundamentals{}, core.WrapError(core.ErrProviderFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var result quoteSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Fundamentals{}, fmt.Errorf("decoding response: %w", err)
	}

	if result.QuoteSummary.Error != nil {
		return Fundamentals{}, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("yahoo error: %s", result.QuoteSummary.Error.Description))
	}
	if len(result.QuoteSummary.Result) == 0 {
		return Fundamentals{}, core.WrapError(core.ErrNoData, fmt.Errorf("no fundamentals for symbol: %s", symbol))
	}

	r := result.QuoteSummary.Result[0]
	return Fundamentals{
		Symbol: symbol,
		// The freshest figures public at asOf come from a quarter that
		// closed at least the reporting lag earlier
		AsOf:           asOf.AddDate(0, 0, -ReportingLagDays),
		PERatio:        r.SummaryDetail.TrailingPE.Raw,
		EPSGrowthPct:   r.FinancialData.EarningsGrowth.Raw * 100,
		DebtToEquity:   r.FinancialData.DebtToEquity.Raw / 100, // Yahoo reports a percentage
		ReturnOnEquity: r.FinancialData.ReturnOnEquity.Raw,
	}, nil
}

func (y *Yahoo) quoteSummaryURL() string {
	if y.summaryURL != "" {
		return y.summaryURL
	}
	return quoteSummaryBaseURL
}

// Yahoo quoteSummary response types. Every numeric comes wrapped in a
// {raw, fmt} object.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type quoteSummaryResult struct {
	SummaryDetail struct {
		TrailingPE rawValue `json:"trailingPE"`
	} `json:"summaryDetail"`
	FinancialData struct {
		EarningsGrowth rawValue `json:"earningsGrowth"`
		DebtToEquity   rawValue `json:"debtToEquity"`
		ReturnOnEquity rawValue `json:"returnOnEquity"`
	} `json:"financialData"`
}

type rawValue struct {
	Raw float64 `json:"raw"`
}
