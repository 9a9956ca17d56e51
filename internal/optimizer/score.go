// Package optimizer orchestrates backtests across a parameter space and
// ranks them by a composite score.
package optimizer

import (
	"math"
	"sort"

	"github.com/cryptomegabyte/gridsim/internal/model"
)

// CompositeScore blends return, Sharpe, drawdown, win-rate and profit
// factor into a single ranking scalar. Every subterm is capped so the
// score stays roughly bounded in [-inf, 1.3].
func CompositeScore(m model.BacktestMetrics) float64 {
	returnTerm := 0.30 * (m.TotalReturnPct / 100)
	sharpeTerm := 0.25 * math.Max(0, m.Sharpe) / 3
	drawdownTerm := 0.20 * (1 - math.Min(0.5, m.MaxDrawdownPct/100))
	winRateTerm := 0.15 * (m.WinRatePct / 100)
	profitFactorTerm := 0.10 * math.Max(0, m.ProfitFactor-1) / 2

	return returnTerm + sharpeTerm + drawdownTerm + winRateTerm + profitFactorTerm
}

// Rank sorts results descending by CompositeScore and assigns 1-based
// Rank in place.
func Rank(results []model.OptimisationResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].CompositeScore > results[j].CompositeScore
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}
