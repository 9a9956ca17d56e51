// Package live implements the real-time trading loop: a single-threaded
// cooperative loop over every configured pair, pulling at most one feed
// message per tick, periodically recomputing grids, evaluating buy/sell
// triggers against a portfolio risk gate, and routing surviving
// candidates through the matching and execution simulators.
package live

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/cryptomegabyte/gridsim/internal/cost"
	"github.com/cryptomegabyte/gridsim/internal/execution"
	"github.com/cryptomegabyte/gridsim/internal/feed"
	"github.com/cryptomegabyte/gridsim/internal/grid"
	"github.com/cryptomegabyte/gridsim/internal/journal"
	"github.com/cryptomegabyte/gridsim/internal/matching"
	"github.com/cryptomegabyte/gridsim/internal/metrics"
	"github.com/cryptomegabyte/gridsim/internal/model"
	"github.com/cryptomegabyte/gridsim/internal/orderbook"
	"github.com/cryptomegabyte/gridsim/internal/portfolio"
	"github.com/cryptomegabyte/gridsim/internal/regime"
)

const windowSize = 50

// Feed is the subset of feed.LiveClient the engine depends on, so tests
// can substitute a fake instead of a real WebSocket connection.
type Feed interface {
	ReadOne(timeout time.Duration) error
	TickerChan() <-chan feed.TickerUpdate
	OHLCChan() <-chan feed.OHLCUpdate
	BookChan() <-chan feed.BookUpdate
}

// TickerFallback is the REST ticker fetch used when a pair has no fresh
// WS data for its tick.
type TickerFallback interface {
	Ticker(ctx context.Context, pair string) (float64, error)
}

// Config parameterises one live engine run.
type Config struct {
	Pairs                 []string
	GridLevels            int
	GridSpacing           float64
	Strategy              grid.Strategy
	Cost                  cost.Model
	PortfolioPerPair       portfolio.Config
	InitialCapitalTotal   float64

	PollInterval          time.Duration // ~10Hz, default 100ms
	WSTimeout             time.Duration // default 50ms
	GridRecomputeInterval time.Duration // default 10s
	SnapshotInterval      time.Duration // default 60s

	DrawdownLimit           float64 // default 0.15
	CrossPairInventoryLimit float64 // default 0.60
	CumulativePnLLimit      float64 // default -0.05

	TradeJournalDir     string
	PortfolioSnapshotDir string
}

// DefaultConfig fills in the standard polling cadence and risk-gate
// defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:            100 * time.Millisecond,
		WSTimeout:               50 * time.Millisecond,
		GridRecomputeInterval:   10 * time.Second,
		SnapshotInterval:        60 * time.Second,
		DrawdownLimit:           0.15,
		CrossPairInventoryLimit: 0.60,
		CumulativePnLLimit:      -0.05,
		TradeJournalDir:         "logs/trades",
		PortfolioSnapshotDir:    "logs/portfolio",
	}
}

// pairState is the per-pair mutable state the live loop tracks between
// ticks.
type pairState struct {
	pair             string
	levels           grid.Levels
	window           []model.PricePoint
	support          float64
	resistance       float64
	hasSR            bool
	atr              float64
	lastPrice        float64
	freshThisTick    bool
	lastGridRecompute time.Time
	book             *orderbook.Book
	pendingBuys      map[float64]bool
	pendingSells     map[float64]bool
	regimeAnalyzer   *regime.Analyzer
}

func newPairState(pair string) *pairState {
	return &pairState{
		pair:           pair,
		book:           orderbook.New(pair),
		pendingBuys:    make(map[float64]bool),
		pendingSells:   make(map[float64]bool),
		regimeAnalyzer: regime.NewAnalyzer(1.0),
	}
}

// Engine runs the live trading loop across every configured pair.
type Engine struct {
	cfg        Config
	log        zerolog.Logger
	feedClient Feed
	rest       TickerFallback
	matcher    *matching.Engine
	execSim    *execution.Simulator

	states     map[string]*pairState
	portfolios map[string]*portfolio.Simulator
	trades     map[string]*journal.TradeWriter
	snapshots  *journal.SnapshotWriter

	lastSnapshot time.Time
}

// New builds an Engine. feedClient and rest may be nil in a dry-run
// configuration with no WS/REST wired yet; ticks then rely on whatever
// book/price state tests inject directly.
func New(cfg Config, log zerolog.Logger, feedClient Feed, rest TickerFallback, matcher *matching.Engine, execSim *execution.Simulator) (*Engine, error) {
	states := make(map[string]*pairState, len(cfg.Pairs))
	portfolios := make(map[string]*portfolio.Simulator, len(cfg.Pairs))
	trades := make(map[string]*journal.TradeWriter, len(cfg.Pairs))

	for _, pair := range cfg.Pairs {
		states[pair] = newPairState(pair)
		portfolios[pair] = portfolio.New(cfg.PortfolioPerPair)

		tw, err := journal.NewTradeWriter(fmt.Sprintf("%s/%s.csv", cfg.TradeJournalDir, pair))
		if err != nil {
			return nil, err
		}
		trades[pair] = tw
	}

	snapshots, err := journal.NewSnapshotWriter(fmt.Sprintf("%s/snapshots.csv", cfg.PortfolioSnapshotDir))
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:        cfg,
		log:        log,
		feedClient: feedClient,
		rest:       rest,
		matcher:    matcher,
		execSim:    execSim,
		states:     states,
		portfolios: portfolios,
		trades:     trades,
		snapshots:  snapshots,
	}, nil
}

// Close flushes and closes every journal writer.
func (e *Engine) Close() error {
	var firstErr error
	for _, tw := range e.trades {
		if err := tw.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := e.snapshots.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Run drives the cooperative loop until duration elapses (0 means run
// until ctx is cancelled) or stop is closed.
func (e *Engine) Run(ctx context.Context, duration time.Duration, stop <-chan struct{}) {
	poll := e.cfg.PollInterval
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("live loop stopped: context cancelled")
			return
		case <-stop:
			e.log.Info().Msg("live loop stopped: stop flag")
			return
		case <-ticker.C:
			if duration > 0 && time.Since(start) >= duration {
				e.log.Info().Dur("elapsed", time.Since(start)).Msg("live loop finished: duration elapsed")
				return
			}
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	for _, st := range e.states {
		st.freshThisTick = false
	}

	if e.feedClient != nil {
		if err := e.feedClient.ReadOne(e.cfg.WSTimeout); err != nil {
			e.log.Warn().Err(err).Msg("live feed read failed")
		}
		e.drainFeed()
	}

	for pair, st := range e.states {
		if st.freshThisTick {
			continue
		}
		if e.rest == nil {
			continue
		}
		price, err := e.rest.Ticker(ctx, pair)
		if err != nil {
			e.log.Warn().Err(err).Str("pair", pair).Msg("REST ticker fallback failed")
			continue
		}
		st.lastPrice = price
	}

	for _, st := range e.states {
		if time.Since(st.lastGridRecompute) >= e.cfg.GridRecomputeInterval {
			e.recomputeGrid(st)
		}
	}

	for pair, st := range e.states {
		e.evaluateTriggers(pair, st)
	}

	if time.Since(e.lastSnapshot) >= e.cfg.SnapshotInterval {
		e.emitSnapshot()
		e.lastSnapshot = time.Now()
	}
}

func (e *Engine) drainFeed() {
	e.drainTickers()
	e.drainOHLC()
	e.drainBook()
}

func (e *Engine) drainTickers() {
	for {
		select {
		case t := <-e.feedClient.TickerChan():
			if st, ok := e.states[t.Pair]; ok {
				st.lastPrice = t.Last
				st.freshThisTick = true
			}
		default:
			return
		}
	}
}

func (e *Engine) drainOHLC() {
	for {
		select {
		case o := <-e.feedClient.OHLCChan():
			if st, ok := e.states[o.Pair]; ok {
				st.appendBar(o.Point)
				st.freshThisTick = true
			}
		default:
			return
		}
	}
}

func (e *Engine) drainBook() {
	for {
		select {
		case b := <-e.feedClient.BookChan():
			if st, ok := e.states[b.Pair]; ok {
				now := time.Now()
				for _, lvl := range b.Bids {
					st.book.ApplyUpdate(orderbook.Bid, lvl.Price, lvl.Volume, now)
				}
				for _, lvl := range b.Asks {
					st.book.ApplyUpdate(orderbook.Ask, lvl.Price, lvl.Volume, now)
				}
			}
		default:
			return
		}
	}
}

func (st *pairState) appendBar(pt model.PricePoint) {
	st.window = append(st.window, pt)
	if len(st.window) > windowSize {
		st.window = st.window[len(st.window)-windowSize:]
	}
	st.lastPrice = pt.Close
	if len(st.window) >= 20 {
		st.atr = averageTrueRange(st.window)
		st.support, st.resistance, st.hasSR = supportResistance(st.window)
	}
	if len(st.window) >= 5 {
		st.regimeAnalyzer.Update(regime.Classify(closesOf(st.window), regime.DefaultThresholds()))
	}
}

func averageTrueRange(window []model.PricePoint) float64 {
	n := 14
	if len(window) < n+1 {
		n = len(window) - 1
	}
	if n <= 0 {
		return 0
	}
	sum := 0.0
	for i := len(window) - n; i < len(window); i++ {
		prevClose := window[i-1].Close
		tr := window[i].High - window[i].Low
		if hc := abs(window[i].High - prevClose); hc > tr {
			tr = hc
		}
		if lc := abs(window[i].Low - prevClose); lc > tr {
			tr = lc
		}
		sum += tr
	}
	return sum / float64(n)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func supportResistance(window []model.PricePoint) (support, resistance float64, ok bool) {
	if len(window) == 0 {
		return 0, 0, false
	}
	support, resistance = window[0].Low, window[0].High
	for _, pt := range window {
		if pt.Low < support {
			support = pt.Low
		}
		if pt.High > resistance {
			resistance = pt.High
		}
	}
	return support, resistance, true
}

func closesOf(window []model.PricePoint) []float64 {
	out := make([]float64, len(window))
	for i, pt := range window {
		out[i] = pt.Close
	}
	return out
}

func (e *Engine) recomputeGrid(st *pairState) {
	if st.lastPrice <= 0 {
		return
	}
	st.levels = grid.Calculate(e.cfg.Strategy, grid.Inputs{
		Price:                st.lastPrice,
		Spacing:              e.cfg.GridSpacing,
		Levels:               e.cfg.GridLevels,
		ATR:                  st.atr,
		DefaultVolatility:    0.02,
		HasSupportResistance: st.hasSR,
		Support:              st.support,
		Resistance:           st.resistance,
		RecentCloses:         closesOf(st.window),
	})
	st.lastGridRecompute = time.Now()
}

// candidate is a trigger-evaluated grid level awaiting the risk gate.
type candidate struct {
	pair  string
	side  model.Side
	level float64
	qty   float64
}

func (e *Engine) evaluateTriggers(pair string, st *pairState) {
	if st.lastPrice <= 0 {
		return
	}
	sim := e.portfolios[pair]
	last := st.lastPrice

	riskMultiplier := 1.0
	if adj, ok := st.regimeAnalyzer.RiskAdjustment(); ok {
		riskMultiplier = adj
		e.log.Info().Str("pair", pair).Float64("multiplier", adj).
			Msg("regime risk adjustment advisory applied to candidate sizing")
	}

	var candidates []candidate
	for _, lvl := range st.levels.BuyLevels {
		if lvl >= last {
			continue
		}
		if (last-lvl)/lvl > 0.01 {
			continue
		}
		if st.hasPendingNear(st.pendingBuys, lvl) {
			continue
		}
		state := sim.State(last)
		qty := state.Cash * 0.05 / last * riskMultiplier
		if qty <= 0 {
			continue
		}
		candidates = append(candidates, candidate{pair: pair, side: model.Buy, level: lvl, qty: qty})
	}
	for _, lvl := range st.levels.SellLevels {
		if lvl <= last {
			continue
		}
		if (lvl-last)/last > 0.01 {
			continue
		}
		state := sim.State(last)
		if state.InventoryQty <= 0 {
			continue
		}
		if st.hasPendingNear(st.pendingSells, lvl) {
			continue
		}
		qty := math.Max(state.InventoryQty*0.20, 1.0)
		if qty > state.InventoryQty {
			qty = state.InventoryQty
		}
		candidates = append(candidates, candidate{pair: pair, side: model.Sell, level: lvl, qty: qty})
	}

	for _, c := range candidates {
		if veto, reason := e.riskGateVeto(c); veto {
			e.log.Info().Str("pair", c.pair).Str("reason", reason).Msg("risk gate veto")
			metrics.IncRiskGateRejection(reason)
			continue
		}
		e.executeCandidate(c, st)
	}
}

func (st *pairState) hasPendingNear(pending map[float64]bool, level float64) bool {
	for lvl := range pending {
		if level == 0 {
			continue
		}
		if abs(lvl-level)/level <= 0.001 {
			return true
		}
	}
	return false
}

// riskGateVeto applies the three hard vetoes (drawdown, cross-pair
// inventory concentration, cumulative P&L) against the combined state of
// every pair's portfolio, not just the candidate's own pair.
func (e *Engine) riskGateVeto(c candidate) (bool, string) {
	totalValue, totalInventoryValue, totalRealised, totalUnrealised := 0.0, 0.0, 0.0, 0.0
	for pair, sim := range e.portfolios {
		price := e.states[pair].lastPrice
		state := sim.State(price)
		value := state.Cash + state.InventoryQty*price
		totalValue += value
		totalInventoryValue += state.InventoryQty * price
		totalRealised += state.RealisedPnL
		totalUnrealised += state.UnrealisedPnL
	}
	if e.cfg.InitialCapitalTotal > 0 {
		drawdown := (e.cfg.InitialCapitalTotal - totalValue) / e.cfg.InitialCapitalTotal
		if drawdown > e.cfg.DrawdownLimit {
			return true, "drawdown"
		}
		cumulativePnL := (totalRealised + totalUnrealised) / e.cfg.InitialCapitalTotal
		if cumulativePnL < e.cfg.CumulativePnLLimit {
			return true, "cumulative_pnl"
		}
	}
	if totalValue > 0 && totalInventoryValue/totalValue > e.cfg.CrossPairInventoryLimit {
		return true, "cross_pair_inventory"
	}
	return false, ""
}

func (e *Engine) executeCandidate(c candidate, st *pairState) {
	order := model.SimOrder{
		ID:       fmt.Sprintf("%s-%d", c.pair, time.Now().UnixNano()),
		Pair:     c.pair,
		Side:     c.side,
		Type:     model.Market,
		Quantity: c.qty,
	}

	match, err := e.matcher.Match(order, st.book)
	if err != nil {
		e.log.Info().Err(err).Str("pair", c.pair).Msg("order rejected by matching engine")
		return
	}

	liquidity := st.book.LiquidityScore(10)
	spread, _ := st.book.Spread()
	result := e.execSim.Simulate(match, c.side, liquidity, spread)
	if result.Status == model.Failed {
		e.log.Info().Str("pair", c.pair).Msg("execution failed, no fills")
		return
	}

	if c.side == model.Buy {
		st.pendingBuys[c.level] = true
	} else {
		st.pendingSells[c.level] = true
	}

	sim := e.portfolios[c.pair]
	ev := model.SignalEvent{
		Timestamp:   time.Now(),
		Side:        c.side,
		SignalPrice: result.AveragePrice,
		GridLevel:   c.level,
	}
	trade, err := sim.ProcessSignal(ev, e.cfg.Cost, liquidity)
	if err != nil {
		e.log.Warn().Err(err).Msg("portfolio processing error")
		return
	}
	if trade == nil {
		return
	}

	metrics.IncTrade(resultLabel(*trade))
	if tw, ok := e.trades[c.pair]; ok {
		if err := tw.WriteTrade(c.pair, *trade, result.TotalExecutionMS, order.ID); err != nil {
			e.log.Error().Err(err).Msg("trade journal write failed")
		}
	}
}

func resultLabel(t model.Trade) string {
	if t.Side == model.Buy {
		return "open"
	}
	if t.NetPnL < 0 {
		return "loss"
	}
	return "win"
}

func (e *Engine) emitSnapshot() {
	totalValue, totalCash, totalTrades := 0.0, 0.0, 0
	totalUnrealised, totalRealised := 0.0, 0.0
	for pair, sim := range e.portfolios {
		price := e.states[pair].lastPrice
		state := sim.State(price)
		totalValue += state.Cash + state.InventoryQty*price
		totalCash += state.Cash
		totalUnrealised += state.UnrealisedPnL
		totalRealised += state.RealisedPnL
		totalTrades += len(sim.Trades())
	}
	returnPct := 0.0
	if e.cfg.InitialCapitalTotal > 0 {
		returnPct = (totalValue - e.cfg.InitialCapitalTotal) / e.cfg.InitialCapitalTotal * 100
	}
	snapshot := journal.PortfolioSnapshot{
		Timestamp:        time.Now(),
		TotalValue:       totalValue,
		CashBalance:      totalCash,
		UnrealizedPnL:    totalUnrealised,
		RealizedPnL:      totalRealised,
		TotalReturnPct:   returnPct,
		TotalTrades:      totalTrades,
		ActiveStrategies: len(e.states),
	}
	if err := e.snapshots.WriteSnapshot(snapshot); err != nil {
		e.log.Error().Err(err).Msg("portfolio snapshot write failed")
	}
	metrics.SetEquity(totalValue)
	if e.cfg.InitialCapitalTotal > 0 {
		metrics.SetDrawdown((e.cfg.InitialCapitalTotal - totalValue) / e.cfg.InitialCapitalTotal)
	}
}
