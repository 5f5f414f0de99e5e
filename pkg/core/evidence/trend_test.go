package evidence

import (
	"testing"

	"research_assistant/pkg/core/metricstore"
	"research_assistant/pkg/core/period"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		pos, neg int
		want     string
	}{
		{3, 1, ClearlyRising},
		{2, 1, RisingWithFluctuation},
		{1, 1, RelativelyStable},
		{1, 3, ClearlyFalling},
		{1, 2, FallingWithFluctuation},
		{0, 0, RelativelyStable},
		{1, 0, ClearlyRising},
		{0, 1, ClearlyFalling},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.pos, tt.neg), "pos=%d neg=%d", tt.pos, tt.neg)
	}
}

func series(caps ...float64) []metricstore.ValuationRow {
	rows := make([]metricstore.ValuationRow, len(caps))
	q := period.MustParse("2020q1")
	for i, c := range caps {
		rows[i] = metricstore.ValuationRow{Period: q, MarketCap: c}
		q = q.Next()
	}
	return rows
}

func TestMarketCapTrend(t *testing.T) {
	tr := MarketCapTrend(series(100, 110, 120, 115, 130))
	assert.Equal(t, 3, tr.PositiveSteps)
	assert.Equal(t, 1, tr.NegativeSteps)
	assert.Equal(t, ClearlyRising, tr.Direction)
	require.NotNil(t, tr.PercentChange)
	assert.InDelta(t, 30.0, *tr.PercentChange, 1e-9)
	assert.Equal(t, "2020q1", tr.From)
	assert.Equal(t, "2021q1", tr.To)
	assert.Equal(t, "Market cap from 2020q1 to 2021q1 is clearly rising (3 quarters up, 1 down). Overall change: +30.00%.", tr.String())

	flat := MarketCapTrend(series(0, 10, 10))
	assert.Nil(t, flat.PercentChange)
	assert.Equal(t, ClearlyRising, flat.Direction)

	single := MarketCapTrend(series(50))
	assert.Equal(t, RelativelyStable, single.Direction)
	require.NotNil(t, single.PercentChange)
	assert.Zero(t, *single.PercentChange)
}
