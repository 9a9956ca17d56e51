package regime

import (
	"math"
	"testing"

	"github.com/cryptomegabyte/gridsim/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_TrendingUp_S2(t *testing.T) {
	closes := []float64{1.000, 1.002, 1.004, 1.006, 1.008, 1.010, 1.012, 1.014, 1.016, 1.018}
	got := Classify(closes, Thresholds{TrendThreshold: 0.005, VolatilityThreshold: 0.02})
	assert.Equal(t, model.TrendingUp, got)
}

func TestClassify_ShortWindowIsRanging(t *testing.T) {
	closes := []float64{1.0, 1.1, 1.2}
	assert.Equal(t, model.Ranging, Classify(closes, DefaultThresholds()))
}

func TestAnalyzer_RowsSumToOne(t *testing.T) {
	a := NewAnalyzer(0.1)
	states := []model.MarketRegime{model.TrendingUp, model.TrendingUp, model.Ranging, model.TrendingDown, model.Ranging, model.TrendingUp}
	var pred *Prediction
	for _, s := range states {
		pred = a.Update(s)
	}
	require.NotNil(t, pred)
	m := a.TransitionMatrix()
	for from := 0; from < model.NumRegimes; from++ {
		sum := m[from][0] + m[from][1] + m[from][2]
		assert.InDelta(t, 1.0, sum, 1e-9)
		for to := 0; to < model.NumRegimes; to++ {
			assert.GreaterOrEqual(t, m[from][to], 0.0)
		}
	}
}

func TestAnalyzer_ConfidenceInRange(t *testing.T) {
	a := NewAnalyzer(0.1)
	pred := a.Update(model.TrendingUp)
	require.NotNil(t, pred)
	assert.GreaterOrEqual(t, pred.Confidence, 0.0)
	assert.LessOrEqual(t, pred.Confidence, 1.0+1e-9)
	assert.False(t, math.IsNaN(pred.Confidence))
}

func TestAnalyzer_AdaptiveSpacing(t *testing.T) {
	a := NewAnalyzer(0.1)
	a.Update(model.TrendingUp)
	// Prior row for TrendingUp is {0.6, 0.2, 0.2}; trending-combined is 0.8 > 0.6.
	assert.InDelta(t, 1.5, a.AdaptiveSpacing(1.0), 1e-9)
}

func TestAnalyzer_RiskAdjustment_NoAdjustmentOnModerateConfidence(t *testing.T) {
	a := NewAnalyzer(0.1)
	a.Update(model.Ranging)
	mult, adjusted := a.RiskAdjustment()
	// Prior row for Ranging is {0.25,0.25,0.5}; ranging prob 0.5 is not > 0.7.
	assert.False(t, adjusted)
	assert.Equal(t, 1.0, mult)
}
