package optimizer

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/cryptomegabyte/gridsim/internal/errs"
	"github.com/cryptomegabyte/gridsim/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeScore_RankingS6(t *testing.T) {
	a := model.BacktestMetrics{TotalReturnPct: 10, Sharpe: 1, MaxDrawdownPct: 5, WinRatePct: 60, ProfitFactor: 2}
	b := model.BacktestMetrics{TotalReturnPct: 5, Sharpe: 0.5, MaxDrawdownPct: 5, WinRatePct: 50, ProfitFactor: 1.2}

	scoreA := CompositeScore(a)
	scoreB := CompositeScore(b)
	assert.Greater(t, scoreA, scoreB)

	results := []model.OptimisationResult{
		{Parameters: model.OptimisationParameterSet{}, CompositeScore: scoreB},
		{Parameters: model.OptimisationParameterSet{}, CompositeScore: scoreA},
	}
	Rank(results)
	assert.Equal(t, scoreA, results[0].CompositeScore)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
}

func TestCompositeScore_MonotoneInReturnAndSharpe(t *testing.T) {
	base := model.BacktestMetrics{TotalReturnPct: 5, Sharpe: 0.5, MaxDrawdownPct: 10, WinRatePct: 50, ProfitFactor: 1.5}
	higherReturn := base
	higherReturn.TotalReturnPct = 10
	assert.Greater(t, CompositeScore(higherReturn), CompositeScore(base))

	higherSharpe := base
	higherSharpe.Sharpe = 2
	assert.Greater(t, CompositeScore(higherSharpe), CompositeScore(base))
}

func TestExhaustive_CartesianProduct(t *testing.T) {
	space := Space{GridLevelsMin: 3, GridLevelsMax: 5, GridLevelsStep: 1, GridSpacingMin: 0.01, GridSpacingMax: 0.02, GridSpacingStep: 0.01}
	sets := Exhaustive(space)
	assert.Len(t, sets, 3*2) // 3 level values x 2 spacing values
}

func TestRandom_DrawsRequestedCount(t *testing.T) {
	space := Space{GridLevelsMin: 3, GridLevelsMax: 10, GridSpacingMin: 0.005, GridSpacingMax: 0.05}
	sets := Random(space, 20, rand.New(rand.NewSource(1)))
	assert.Len(t, sets, 20)
	for _, s := range sets {
		assert.GreaterOrEqual(t, s.GridLevels, 3)
		assert.LessOrEqual(t, s.GridLevels, 10)
	}
}

func TestEvolutionary_ElitismKeepsBestFitness(t *testing.T) {
	space := Space{GridLevelsMin: 3, GridLevelsMax: 15, GridSpacingMin: 0.005, GridSpacingMax: 0.05}
	fitness := func(p model.OptimisationParameterSet) float64 { return float64(p.GridLevels) }
	results := Evolutionary(space, 20, 5, rand.New(rand.NewSource(2)), fitness)
	require.NotEmpty(t, results)
	assert.Equal(t, 1, results[0].Rank)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].CompositeScore, results[i].CompositeScore)
	}
}

func TestEvaluateAll_SkipsPersistentFailureWithoutAborting(t *testing.T) {
	sets := []model.OptimisationParameterSet{{GridLevels: 3}, {GridLevels: 4}, {GridLevels: 5}}
	evaluate := func(ctx context.Context, p model.OptimisationParameterSet) (model.BacktestMetrics, error) {
		if p.GridLevels == 4 {
			return model.BacktestMetrics{}, errs.New(errs.Validation, false, errors.New("bad params"))
		}
		return model.BacktestMetrics{TotalReturnPct: float64(p.GridLevels)}, nil
	}
	results := EvaluateAll(context.Background(), sets, 4, RetryPolicy{MaxRetries: 1, BaseDelay: 0, MaxDelay: 0, BackoffMultiplier: 1}, "grid-search", evaluate)
	assert.Len(t, results, 2)
}
