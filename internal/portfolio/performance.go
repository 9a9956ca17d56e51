package portfolio

import (
	"math"
	"sort"
	"time"

	"github.com/cryptomegabyte/gridsim/internal/model"
)

// equityPoint is one step of the equity curve the performance analyser
// builds by replaying trades with the same cash/inventory bookkeeping.
type equityPoint struct {
	timestamp time.Time
	value     float64
}

// Analyse builds a full set of performance metrics from a trade list and
// the initial capital the simulator started with.
func Analyse(trades []model.Trade, initialCapital float64, riskFreeRate float64) model.BacktestMetrics {
	curve := buildEquityCurve(trades, initialCapital)
	if len(curve) == 0 {
		return model.BacktestMetrics{}
	}

	finalValue := curve[len(curve)-1].value
	totalReturnPct := (finalValue - initialCapital) / initialCapital * 100

	years := yearsBetween(curve[0].timestamp, curve[len(curve)-1].timestamp)
	annualisedReturnPct := 0.0
	if years > 0 && initialCapital > 0 {
		annualisedReturnPct = (math.Pow(finalValue/initialCapital, 1/years) - 1) * 100
	}

	returns := returnSeries(curve)
	volatilityPct := volatility(returns, annualisationFactor(curve))

	sharpe := 0.0
	if volatilityPct != 0 {
		sharpe = (annualisedReturnPct - riskFreeRate*100) / volatilityPct
	}

	maxDrawdownPct := maxDrawdown(curve) * 100
	var95, cvar95 := valueAtRisk(returns)

	wins, losses, winSum, lossSum := tradeStats(trades)
	winRatePct := 0.0
	if wins+losses > 0 {
		winRatePct = float64(wins) / float64(wins+losses) * 100
	}
	avgWinPct, avgLossPct := averageWinLoss(wins, losses, winSum, lossSum)
	profitFactor := computeProfitFactor(winSum, lossSum)

	totalFees, totalSlip := costTotals(trades)

	return model.BacktestMetrics{
		TotalReturnPct:      totalReturnPct,
		AnnualisedReturnPct: annualisedReturnPct,
		VolatilityPct:       volatilityPct,
		Sharpe:              sharpe,
		MaxDrawdownPct:      maxDrawdownPct,
		VaR95:               var95,
		CVaR95:              cvar95,
		WinningTrades:       wins,
		LosingTrades:        losses,
		WinRatePct:          winRatePct,
		AvgWinPct:           avgWinPct,
		AvgLossPct:          avgLossPct,
		ProfitFactor:        profitFactor,
		TotalFees:           totalFees,
		TotalSlippageCost:   totalSlip,
	}
}

func buildEquityCurve(trades []model.Trade, initialCapital float64) []equityPoint {
	if len(trades) == 0 {
		return nil
	}
	cash := initialCapital
	inventory := 0.0
	curve := make([]equityPoint, 0, len(trades))
	for _, tr := range trades {
		switch tr.Side {
		case model.Buy:
			cash -= tr.ExecutionPrice*tr.Quantity + tr.Fees + tr.Slippage
			inventory += tr.Quantity
		case model.Sell:
			cash += tr.ExecutionPrice*tr.Quantity - tr.Fees - tr.Slippage
			inventory -= tr.Quantity
		}
		mtm := cash + inventory*tr.ExecutionPrice
		curve = append(curve, equityPoint{timestamp: tr.Timestamp, value: mtm})
	}
	return curve
}

func yearsBetween(first, last time.Time) float64 {
	days := last.Sub(first).Hours() / 24
	return days / 365.25
}

func returnSeries(curve []equityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prior := curve[i-1].value
		if prior == 0 {
			continue
		}
		out = append(out, (curve[i].value-prior)/prior)
	}
	return out
}

// annualisationFactor infers samples-per-year from the median inter-sample
// gap (5-min, 15-min, hourly, daily, else weekly). Zero or degenerate
// gaps default to 252 samples/year.
func annualisationFactor(curve []equityPoint) float64 {
	if len(curve) < 2 {
		return 252
	}
	gaps := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		gaps = append(gaps, curve[i].timestamp.Sub(curve[i-1].timestamp).Minutes())
	}
	sort.Float64s(gaps)
	median := gaps[len(gaps)/2]

	switch {
	case median <= 0:
		return 252
	case median <= 5:
		return 252 * 24 * 60 / 5
	case median <= 15:
		return 252 * 24 * 60 / 15
	case median <= 60:
		return 252 * 24
	case median <= 60*24:
		return 252
	default:
		return 52
	}
}

func volatility(returns []float64, annualisationFactor float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(annualisationFactor) * 100
}

func maxDrawdown(curve []equityPoint) float64 {
	peak := curve[0].value
	maxDD := 0.0
	for _, pt := range curve {
		if pt.value > peak {
			peak = pt.value
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - pt.value) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// valueAtRisk returns VaR@95 and CVaR@95: the negative of the 5th-percentile
// return, and the negative mean of returns below that index.
func valueAtRisk(returns []float64) (var95, cvar95 float64) {
	if len(returns) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	idx := int(math.Floor(0.05 * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	var95 = -sorted[idx]

	if idx == 0 {
		cvar95 = var95
		return
	}
	sum := 0.0
	for _, r := range sorted[:idx] {
		sum += r
	}
	cvar95 = -sum / float64(idx)
	return
}

func tradeStats(trades []model.Trade) (wins, losses int, winSum, lossSum float64) {
	for _, tr := range trades {
		if tr.Side != model.Sell {
			continue
		}
		switch {
		case tr.NetPnL > 0:
			wins++
			winSum += tr.NetPnL
		case tr.NetPnL < 0:
			losses++
			lossSum += -tr.NetPnL
		}
	}
	return
}

// averageWinLoss scales average win/loss currency amounts by 100, matching
// the other percentage-denominated fields in BacktestMetrics.
func averageWinLoss(wins, losses int, winSum, lossSum float64) (avgWinPct, avgLossPct float64) {
	if wins > 0 {
		avgWinPct = winSum / float64(wins) * 100
	}
	if losses > 0 {
		avgLossPct = lossSum / float64(losses) * 100
	}
	return
}

func computeProfitFactor(winSum, lossSum float64) float64 {
	switch {
	case lossSum == 0 && winSum > 0:
		return math.Inf(1)
	case lossSum == 0 && winSum == 0:
		return 0
	default:
		return winSum / lossSum
	}
}

func costTotals(trades []model.Trade) (fees, slip float64) {
	for _, tr := range trades {
		fees += tr.Fees
		slip += tr.Slippage
	}
	return
}
