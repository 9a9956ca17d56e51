// Command gridsim is the platform entrypoint.
//
// Boot sequence: load .env, build Config from the environment, wire the
// logger and Prometheus server, then dispatch to one of three modes
// selected by -mode.
//
// Modes:
//   backtest  Replay a local CSV through the vectorised backtest engine.
//   optimize  Search the parameter space and report the ranked results.
//   live      Run the real-time trading loop against the REST/WS feed.
//
// Example:
//
//	gridsim -mode backtest -csv candles.csv
//	gridsim -mode live
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/cryptomegabyte/gridsim/internal/backtest"
	"github.com/cryptomegabyte/gridsim/internal/breaker"
	"github.com/cryptomegabyte/gridsim/internal/candleio"
	"github.com/cryptomegabyte/gridsim/internal/config"
	"github.com/cryptomegabyte/gridsim/internal/cost"
	"github.com/cryptomegabyte/gridsim/internal/execution"
	"github.com/cryptomegabyte/gridsim/internal/feed"
	"github.com/cryptomegabyte/gridsim/internal/grid"
	"github.com/cryptomegabyte/gridsim/internal/live"
	"github.com/cryptomegabyte/gridsim/internal/logging"
	"github.com/cryptomegabyte/gridsim/internal/matching"
	"github.com/cryptomegabyte/gridsim/internal/model"
	"github.com/cryptomegabyte/gridsim/internal/optimizer"
	"github.com/cryptomegabyte/gridsim/internal/portfolio"
	"github.com/cryptomegabyte/gridsim/internal/ratelimit"
	"github.com/cryptomegabyte/gridsim/internal/regime"
	"github.com/cryptomegabyte/gridsim/internal/strategydb"
)

func main() {
	var mode string
	var csvPath string
	flag.StringVar(&mode, "mode", "backtest", "backtest | optimize | live")
	flag.StringVar(&csvPath, "csv", "", "candle CSV path (backtest/optimize modes)")
	flag.Parse()

	config.LoadEnvFile()
	cfg := config.FromEnv()
	log := logging.New(cfg.Monitoring.LogLevel)

	if err := cfg.Validate(mode == "live", os.Getenv("GRIDSIM_API_KEY")); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}
	go func() {
		log.Info().Int("port", cfg.Port).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("metrics server")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch mode {
	case "backtest":
		runBacktestMode(cfg, csvPath, log)
	case "optimize":
		runOptimizeMode(ctx, cfg, csvPath, log)
	case "live":
		runLiveMode(ctx, cfg, log)
	default:
		log.Fatal().Str("mode", mode).Msg("unknown mode")
	}

	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)
}

func backtestConfigFrom(cfg config.Config) backtest.Config {
	return backtest.Config{
		GridLevels:  cfg.Trading.DefaultGridLevels,
		GridSpacing: cfg.Trading.DefaultGridSpacing,
		Strategy:    grid.StrategyVolatilityAdaptive,
		Cost: cost.Model{
			BaseSlippageBps: cfg.Backtesting.SlippageBps,
			TakerFeeRate:    cfg.Backtesting.TransactionFeePct,
			LiquidityFactor: 0.01,
		},
		Portfolio: portfolio.Config{
			InitialCapital:     cfg.Trading.DefaultCapital,
			MaxPositionSizePct: cfg.Trading.MaxPositionSize,
			MinOrderSize:       0.0001,
		},
		RegimeThreshold:  regime.DefaultThresholds(),
		UseMarkovSpacing: true,
	}
}

func runBacktestMode(cfg config.Config, csvPath string, log zerolog.Logger) {
	if csvPath == "" {
		log.Fatal().Msg("backtest mode requires -csv")
	}
	series, err := candleio.LoadCSV(csvPath, cfg.Pair, time.Duration(cfg.TimeframeMin)*time.Minute)
	if err != nil {
		log.Fatal().Err(err).Msg("load candle csv")
	}

	result := backtest.Run(series, backtestConfigFrom(cfg))
	log.Info().
		Float64("total_return_pct", result.Metrics.TotalReturnPct).
		Float64("sharpe", result.Metrics.Sharpe).
		Float64("max_drawdown_pct", result.Metrics.MaxDrawdownPct).
		Int("trades", len(result.Trades)).
		Str("final_regime", regimeLabel(result.FinalRegime)).
		Msg("backtest complete")

	if err := persistStrategy(cfg, result.Metrics, cfg.Trading.DefaultGridLevels, cfg.Trading.DefaultGridSpacing); err != nil {
		log.Warn().Err(err).Msg("strategy persistence failed")
	}
}

func runOptimizeMode(ctx context.Context, cfg config.Config, csvPath string, log zerolog.Logger) {
	if csvPath == "" {
		log.Fatal().Msg("optimize mode requires -csv")
	}
	series, err := candleio.LoadCSV(csvPath, cfg.Pair, time.Duration(cfg.TimeframeMin)*time.Minute)
	if err != nil {
		log.Fatal().Err(err).Msg("load candle csv")
	}

	space := optimizer.Space{
		GridLevelsMin: cfg.Optimization.GridLevelsRange[0],
		GridLevelsMax: cfg.Optimization.GridLevelsRange[1],
		GridLevelsStep: 1,
		GridSpacingMin: cfg.Optimization.GridSpacingRange[0],
		GridSpacingMax: cfg.Optimization.GridSpacingRange[1],
		GridSpacingStep: 0.005,
		TimeframesMinutes: []int{cfg.TimeframeMin},
		MaxDrawdownLimits: []float64{cfg.Trading.MaxDrawdown},
		StopLosses:        []float64{cfg.Trading.StopLoss},
		PositionSizeFractions: []float64{cfg.Trading.MaxPositionSize},
	}

	evaluate := func(_ context.Context, ps model.OptimisationParameterSet) (model.BacktestMetrics, error) {
		bcfg := backtestConfigFrom(cfg)
		bcfg.GridLevels = ps.GridLevels
		bcfg.GridSpacing = ps.GridSpacing
		bcfg.Portfolio.MaxPositionSizePct = ps.PositionSizeFrac
		result := backtest.Run(series, bcfg)
		return result.Metrics, nil
	}

	var results []model.OptimisationResult
	switch cfg.Optimization.DefaultStrategy {
	case config.StrategyGeneticAlgorithm:
		rng := rand.New(rand.NewSource(1))
		fitness := func(ps model.OptimisationParameterSet) float64 {
			m, _ := evaluate(ctx, ps)
			return optimizer.CompositeScore(m)
		}
		results = optimizer.Evolutionary(space, 30, cfg.Optimization.DefaultIterations/30+1, rng, fitness)
	case config.StrategyRandomSearch:
		rng := rand.New(rand.NewSource(1))
		sets := optimizer.Random(space, cfg.Optimization.DefaultIterations, rng)
		results = optimizer.EvaluateAll(ctx, sets, 8, optimizer.DefaultRetryPolicy(), string(cfg.Optimization.DefaultStrategy), evaluate)
	default:
		sets := optimizer.Exhaustive(space)
		results = optimizer.EvaluateAll(ctx, sets, 8, optimizer.DefaultRetryPolicy(), string(cfg.Optimization.DefaultStrategy), evaluate)
	}

	if len(results) == 0 {
		log.Warn().Msg("optimisation produced no viable parameter sets")
		return
	}
	best := results[0]
	log.Info().
		Int("grid_levels", best.Parameters.GridLevels).
		Float64("grid_spacing", best.Parameters.GridSpacing).
		Float64("composite_score", best.CompositeScore).
		Msg("optimisation complete")

	if err := persistStrategy(cfg, best.Metrics, best.Parameters.GridLevels, best.Parameters.GridSpacing); err != nil {
		log.Warn().Err(err).Msg("strategy persistence failed")
	}
}

func persistStrategy(cfg config.Config, m model.BacktestMetrics, gridLevels int, gridSpacing float64) error {
	store, err := strategydb.New(cfg.StrategyDir)
	if err != nil {
		return err
	}
	return store.Save(strategydb.Record{
		TradingPair:    cfg.Pair,
		GridLevels:     gridLevels,
		GridSpacing:    gridSpacing,
		ExpectedReturn: m.TotalReturnPct,
		TotalTrades:    m.WinningTrades + m.LosingTrades,
		WinRate:        m.WinRatePct,
		SharpeRatio:    m.Sharpe,
		MaxDrawdown:    m.MaxDrawdownPct,
		TotalFees:      m.TotalFees,
		GeneratedAt:    time.Now(),
	})
}

func runLiveMode(ctx context.Context, cfg config.Config, log zerolog.Logger) {
	limiter := ratelimit.New(cfg.RateLimitPerMin)
	restClient := feed.NewHistoricalClient(cfg.RESTBaseURL, limiter)
	restBreaker := breaker.New("rest_feed")

	wsClient := feed.NewLiveClient(cfg.WSURL, log)
	if err := wsClient.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("connect live feed")
	}
	defer wsClient.Close()

	matcher := matching.New(matching.DefaultConfig())
	execSim := execution.New(execution.KrakenConfig(), rand.New(rand.NewSource(time.Now().UnixNano())))

	lcfg := live.DefaultConfig()
	lcfg.Pairs = []string{cfg.Pair}
	lcfg.GridLevels = cfg.Trading.DefaultGridLevels
	lcfg.GridSpacing = cfg.Trading.DefaultGridSpacing
	lcfg.Strategy = grid.StrategyVolatilityAdaptive
	lcfg.Cost = cost.Model{
		BaseSlippageBps: cfg.Backtesting.SlippageBps,
		TakerFeeRate:    cfg.Backtesting.TransactionFeePct,
		LiquidityFactor: 0.01,
	}
	lcfg.PortfolioPerPair = portfolio.Config{
		InitialCapital:     cfg.Trading.DefaultCapital,
		MaxPositionSizePct: cfg.Trading.MaxPositionSize,
		MinOrderSize:       0.0001,
	}
	lcfg.InitialCapitalTotal = cfg.Trading.DefaultCapital
	lcfg.DrawdownLimit = cfg.Trading.MaxDrawdown
	lcfg.TradeJournalDir = cfg.JournalDir + "/trades"
	lcfg.PortfolioSnapshotDir = cfg.JournalDir + "/portfolio"

	fallback := restTickerFallback{client: restClient, breaker: restBreaker}

	engine, err := live.New(lcfg, log, wsClient, fallback, matcher, execSim)
	if err != nil {
		log.Fatal().Err(err).Msg("build live engine")
	}
	defer engine.Close()

	go func() {
		if err := wsClient.Run(ctx); err != nil {
			log.Warn().Err(err).Msg("live feed connection ended")
		}
	}()

	engine.Run(ctx, 0, nil)
}

// restTickerFallback adapts the REST historical client's latest candle
// close into the live.TickerFallback the engine falls back to when a
// pair has no fresh WS data this tick, wrapped by a circuit breaker.
type restTickerFallback struct {
	client  *feed.HistoricalClient
	breaker *breaker.Breaker
}

func (f restTickerFallback) Ticker(ctx context.Context, pair string) (float64, error) {
	var price float64
	err := f.breaker.Call(ctx, func(ctx context.Context) error {
		series, err := f.client.Fetch(ctx, pair, 1)
		if err != nil {
			return err
		}
		if len(series.Points) == 0 {
			return nil
		}
		price = series.Points[len(series.Points)-1].Close
		return nil
	})
	return price, err
}

func regimeLabel(r model.MarketRegime) string {
	switch r {
	case model.TrendingUp:
		return "trending_up"
	case model.TrendingDown:
		return "trending_down"
	default:
		return "ranging"
	}
}
