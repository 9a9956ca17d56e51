// Package backtest wires the regime classifier, grid constructor, signal
// detector, cost model and portfolio simulator into a vectorised backtest
// pipeline: one fixed grid per run, a single pass over the price series,
// and a performance summary at the end. This is the Evaluator the
// optimiser drives across parameter sets.
package backtest

import (
	"github.com/cryptomegabyte/gridsim/internal/cost"
	"github.com/cryptomegabyte/gridsim/internal/grid"
	"github.com/cryptomegabyte/gridsim/internal/metrics"
	"github.com/cryptomegabyte/gridsim/internal/model"
	"github.com/cryptomegabyte/gridsim/internal/portfolio"
	"github.com/cryptomegabyte/gridsim/internal/regime"
)

// Config parameterises one backtest run.
type Config struct {
	GridLevels      int
	GridSpacing     float64
	Strategy        grid.Strategy
	Cost            cost.Model
	Portfolio       portfolio.Config
	RegimeThreshold regime.Thresholds
	RiskFreeRate    float64

	// UseMarkovSpacing enables the regime-adaptive spacing multiplier
	// instead of the raw GridSpacing.
	UseMarkovSpacing bool
}

// Result is one backtest's full output: the metrics the optimiser scores
// on, plus the trades and rejection counts behind them.
type Result struct {
	Metrics     model.BacktestMetrics
	Trades      []model.Trade
	Rejections  portfolio.RejectionCounts
	FinalRegime model.MarketRegime
}

// Run replays series once: classifies the opening regime, builds one
// fixed grid anchored on the first bar's close, detects signals against
// it for the remainder of the series, costs and executes each signal
// through the portfolio simulator, and summarises the resulting trades.
func Run(series model.PriceSeries, cfg Config) Result {
	if len(series.Points) == 0 {
		return Result{}
	}

	closes := closesOf(series)
	analyzer := regime.NewAnalyzer(1.0)
	var lastRegime model.MarketRegime
	windowEnd := 5
	if windowEnd > len(closes) {
		windowEnd = len(closes)
	}
	lastRegime = regime.Classify(closes[:windowEnd], cfg.RegimeThreshold)
	analyzer.Update(lastRegime)

	firstPrice := series.Points[0].Close
	spacing := cfg.GridSpacing
	if cfg.UseMarkovSpacing {
		spacing = grid.AdjustedSpacing(cfg.GridSpacing, lastRegime, analyzer)
	}

	levels := grid.Calculate(cfg.Strategy, grid.Inputs{
		Price:             firstPrice,
		Spacing:           spacing,
		Levels:            cfg.GridLevels,
		DefaultVolatility: 0.02,
		RecentCloses:      closes[:windowEnd],
	})

	events := grid.DetectSignals(series, levels)

	sim := portfolio.New(cfg.Portfolio)
	volumeByIndex := make(map[int]float64, len(series.Points))
	for i, pt := range series.Points {
		volumeByIndex[i] = pt.Volume
	}

	for _, ev := range events {
		metrics.IncSignal(ev.Side.String())
		trade, err := sim.ProcessSignal(ev, cfg.Cost, volumeByIndex[ev.Index])
		if err != nil {
			continue
		}
		if trade == nil {
			continue
		}
		result := "win"
		if trade.Side == model.Buy {
			result = "open"
		} else if trade.NetPnL < 0 {
			result = "loss"
		}
		metrics.IncTrade(result)
	}

	rejections := sim.Rejections()
	if rejections.Risk > 0 {
		metrics.IncRiskGateRejection("risk")
	}
	if rejections.Capital > 0 {
		metrics.IncRiskGateRejection("capital")
	}
	if rejections.Size > 0 {
		metrics.IncRiskGateRejection("size")
	}

	trades := sim.Trades()
	perf := portfolio.Analyse(trades, cfg.Portfolio.InitialCapital, cfg.RiskFreeRate)

	lastPrice := series.Points[len(series.Points)-1].Close
	state := sim.State(lastPrice)
	metrics.SetEquity(state.Cash + state.InventoryQty*lastPrice)
	metrics.SetDrawdown(perf.MaxDrawdownPct / 100)

	return Result{
		Metrics:     perf,
		Trades:      trades,
		Rejections:  rejections,
		FinalRegime: lastRegime,
	}
}

func closesOf(series model.PriceSeries) []float64 {
	out := make([]float64, len(series.Points))
	for i, pt := range series.Points {
		out[i] = pt.Close
	}
	return out
}
