package execution

import (
	"math/rand"
	"testing"

	"github.com/cryptomegabyte/gridsim/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullyFilledMatch() model.MatchResult {
	return model.MatchResult{
		OrderID: "o1",
		Fills: []model.Fill{
			{Price: 2001, Quantity: 1, IsMaker: false},
			{Price: 2002, Quantity: 1, IsMaker: false},
		},
		Status:       model.FullyFilled,
		TotalFilled:  2,
		AveragePrice: 2001.5,
	}
}

func TestSimulate_RejectedMatchStaysFailed(t *testing.T) {
	sim := New(DefaultConfig(), rand.New(rand.NewSource(1)))
	res := sim.Simulate(model.MatchResult{OrderID: "o0", Status: model.Rejected}, model.Buy, 100, 0.02)
	assert.Equal(t, model.Failed, res.Status)
	assert.Empty(t, res.ExecutedFills)
}

func TestSimulate_TakerFeeAppliedWhenNotMaker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FillProbability.BaseFillRate = 1.0
	cfg.FillProbability.AdverseSelectionFactor = 0
	sim := New(cfg, rand.New(rand.NewSource(42)))

	res := sim.Simulate(fullyFilledMatch(), model.Buy, 100, 0.02)
	require.NotEmpty(t, res.ExecutedFills)
	for _, ef := range res.ExecutedFills {
		assert.Greater(t, ef.Fee, 0.0)
	}
	assert.Greater(t, res.TotalFees, 0.0)
}

func TestSimulate_LatencyIsWithinConfiguredBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FillProbability.BaseFillRate = 1.0
	cfg.FillProbability.AdverseSelectionFactor = 0
	sim := New(cfg, rand.New(rand.NewSource(7)))

	res := sim.Simulate(fullyFilledMatch(), model.Buy, 100, 0.02)
	for _, ef := range res.ExecutedFills {
		assert.GreaterOrEqual(t, ef.LatencyMS, cfg.Latency.MinMS+cfg.Latency.ProcessingMS)
		assert.LessOrEqual(t, ef.LatencyMS, cfg.Latency.MaxMS+cfg.Latency.JitterMS+cfg.Latency.ProcessingMS+1e-9)
	}
}

func TestCalculateSlippage_RealisticUsesGivenSpreadOverFallback(t *testing.T) {
	sim := New(DefaultConfig(), rand.New(rand.NewSource(1)))

	withSpread := sim.calculateSlippage(2000, 1, 100, 5)
	withoutSpread := sim.calculateSlippage(2000, 1, 100, 0)

	assert.NotEqual(t, withSpread, withoutSpread)
	assert.Greater(t, withSpread, withoutSpread)
}

func TestSimulate_ZeroFillRateNoFillsReportsFailed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FillProbability.BaseFillRate = 0.0
	sim := New(cfg, rand.New(rand.NewSource(3)))

	res := sim.Simulate(fullyFilledMatch(), model.Sell, 100, 0.02)
	assert.Empty(t, res.ExecutedFills)
	assert.Equal(t, model.Failed, res.Status)
}
