// Package regime classifies market days as Bull or Bear from a broad
// index's position relative to its long moving average.
package regime

import (
	"errors"
	"time"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/indicator"
)

// Label is a market regime tag
type Label string

const (
	Bull Label = "Bull"
	Bear Label = "Bear"
)

// DefaultMAPeriod is the moving-average window for classification
const DefaultMAPeriod = 200

// Day is one classified trading day
type Day struct {
	Date  time.Time
	Close float64
	MA    float64
	Label Label
}

// Period is a contiguous run of days sharing one regime
type Period struct {
	Label Label
	Start time.Time
	End   time.Time
}

// Days returns the period length in calendar days
func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

// Stats summarizes a classified series
type Stats struct {
	TotalDays       int
	BullDays        int
	BearDays        int
	BullPct         float64
	BearPct         float64
	RegimeChanges   int
	AvgDurationDays float64
}

// Classifier holds a classified daily series. The series is immutable;
// reclassification builds a new Classifier.
type Classifier struct {
	days []Day
}

// Classify labels each index day Bull when close > MA, else Bear.
// The first maPeriod-1 observations lack a full moving-average window
// and receive no label at all.
func Classify(index []core.OHLCV, maPeriod int) (*Classifier, error) {
	if maPeriod <= 0 {
		maPeriod = DefaultMAPeriod
	}
	if len(index) < maPeriod {
		return nil, core.WrapError(core.ErrInsufficientData,
			errors.New("index history shorter than the moving-average window"))
	}

	closes := make([]float64, len(index))
	for i, b := range index {
		closes[i] = b.Close
	}
	ma := indicator.SMA(closes, maPeriod)

	days := make([]Day, 0, len(ma))
	for i, m := range ma {
		bar := index[i+maPeriod-1]
		label := Bear
		if bar.Close > m {
			label = Bull
		}
		days = append(days, Day{
			Date:  bar.Time,
			Close: bar.Close,
			MA:    m,
			Label: label,
		})
	}

	return &Classifier{days: days}, nil
}

// Days returns the labeled series in date order
func (c *Classifier) Days() []Day {
	return c.days
}

// ForDate returns the regime for a date. An exact match is preferred;
// otherwise the nearest labeled day is used, so weekends and holidays
// never fail.
func (c *Classifier) ForDate(date time.Time) Label {
	best := c.days[0]
	bestDiff := absDuration(date.Sub(best.Date))

	for _, d := range c.days[1:] {
		diff := absDuration(date.Sub(d.Date))
		if diff < bestDiff {
			best = d
			bestDiff = diff
		}
		if diff == 0 {
			break
		}
	}
	return best.Label
}

// Periods compresses the daily series into contiguous regime runs
func (c *Classifier) Periods() []Period {
	var periods []Period

	current := Period{Label: c.days[0].Label, Start: c.days[0].Date, End: c.days[0].Date}
	for _, d := range c.days[1:] {
		if d.Label != current.Label {
			periods = append(periods, current)
			current = Period{Label: d.Label, Start: d.Date}
		}
		current.End = d.Date
	}
	return append(periods, current)
}

// Longest returns the longest contiguous period with the given label
func (c *Classifier) Longest(label Label) (Period, bool) {
	var best Period
	found := false
	for _, p := range c.Periods() {
		if p.Label != label {
			continue
		}
		if !found || p.Days() > best.Days() {
			best = p
			found = true
		}
	}
	return best, found
}

// Statistics summarizes the classified series between start and end
// inclusive
func (c *Classifier) Statistics(start, end time.Time) Stats {
	var s Stats
	var prev Label

	for _, d := range c.days {
		if d.Date.Before(start) || d.Date.After(end) {
			continue
		}
		s.TotalDays++
		if d.Label == Bull {
			s.BullDays++
		} else {
			s.BearDays++
		}
		if s.TotalDays == 1 || d.Label != prev {
			s.RegimeChanges++
		}
		prev = d.Label
	}

	if s.TotalDays > 0 {
		s.BullPct = float64(s.BullDays) / float64(s.TotalDays) * 100
		s.BearPct = float64(s.BearDays) / float64(s.TotalDays) * 100
	}
	if s.RegimeChanges > 0 {
		s.AvgDurationDays = float64(s.TotalDays) / float64(s.RegimeChanges)
	}
	return s
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
