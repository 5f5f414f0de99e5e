package evidence

import (
	"fmt"

	"research_assistant/pkg/core/metricstore"
)

const (
	ClearlyRising          = "clearly rising"
	ClearlyFalling         = "clearly falling"
	RisingWithFluctuation  = "rising with fluctuation"
	FallingWithFluctuation = "falling with fluctuation"
	RelativelyStable       = "relatively stable"
)

// Trend summarizes how market cap moved over a series of quarters.
type Trend struct {
	Metric string `json:"metric"`
	// PercentChange is nil when the first value is zero.
	PercentChange *float64 `json:"percent_change,omitempty"`
	Direction     string   `json:"direction"`
	PositiveSteps int      `json:"positive_steps"`
	NegativeSteps int      `json:"negative_steps"`
	From          string   `json:"from"`
	To            string   `json:"to"`
}

// Classify names the direction of a series from its up and down step counts.
func Classify(positive, negative int) string {
	switch {
	case positive > 2*negative:
		return ClearlyRising
	case negative > 2*positive:
		return ClearlyFalling
	case positive > negative:
		return RisingWithFluctuation
	case negative > positive:
		return FallingWithFluctuation
	default:
		return RelativelyStable
	}
}

// MarketCapTrend analyses the market cap column. Rows must be ascending.
func MarketCapTrend(rows []metricstore.ValuationRow) Trend {
	t := Trend{Metric: "market_cap", Direction: RelativelyStable}
	if len(rows) == 0 {
		return t
	}
	first, last := rows[0], rows[len(rows)-1]
	t.From, t.To = first.Period.String(), last.Period.String()

	for i := 1; i < len(rows); i++ {
		switch d := rows[i].MarketCap - rows[i-1].MarketCap; {
		case d > 0:
			t.PositiveSteps++
		case d < 0:
			t.NegativeSteps++
		}
	}
	t.Direction = Classify(t.PositiveSteps, t.NegativeSteps)

	if first.MarketCap != 0 {
		pct := (last.MarketCap - first.MarketCap) / first.MarketCap * 100
		t.PercentChange = &pct
	}
	return t
}

func (t Trend) String() string {
	s := fmt.Sprintf("Market cap from %s to %s is %s (%d quarters up, %d down).",
		t.From, t.To, t.Direction, t.PositiveSteps, t.NegativeSteps)
	if t.PercentChange != nil {
		s += fmt.Sprintf(" Overall change: %+.2f%%.", *t.PercentChange)
	}
	return s
}
