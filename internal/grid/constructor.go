// Package grid builds buy/sell price levels around a reference price and
// walks a price series to detect threshold crossings against those
// levels.
package grid

import (
	"sort"

	"github.com/cryptomegabyte/gridsim/internal/model"
	"github.com/cryptomegabyte/gridsim/internal/regime"
)

// Levels is a constructed grid: ascending buy levels below price,
// ascending sell levels above price.
type Levels struct {
	BuyLevels  []float64
	SellLevels []float64
}

// Build emits N buy levels at price*(1-k*spacing) and N sell levels at
// price*(1+k*spacing) for k=1..N; spacing is a fraction of price.
func Build(price, spacing float64, n int) Levels {
	lv := Levels{BuyLevels: make([]float64, 0, n), SellLevels: make([]float64, 0, n)}
	for k := 1; k <= n; k++ {
		lv.BuyLevels = append(lv.BuyLevels, price*(1-float64(k)*spacing))
		lv.SellLevels = append(lv.SellLevels, price*(1+float64(k)*spacing))
	}
	sort.Float64s(lv.BuyLevels)
	sort.Float64s(lv.SellLevels)
	return lv
}

// AdjustedSpacing prefers a Markov-advised spacing when an analyser has a
// prediction, otherwise falls back to a regime-only multiplier (1.5x in
// trending regimes, 1.0x in Ranging).
func AdjustedSpacing(base float64, current model.MarketRegime, analyzer *regime.Analyzer) float64 {
	if analyzer != nil {
		return analyzer.AdaptiveSpacing(base)
	}
	if current == model.Ranging {
		return base
	}
	return base * 1.5
}
