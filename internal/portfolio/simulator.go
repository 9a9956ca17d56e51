// Package portfolio implements the historical portfolio simulator: FIFO
// lot-based cash/inventory bookkeeping with a risk gate and sizing rule
// applied before every trade.
package portfolio

import (
	"math"

	"github.com/cryptomegabyte/gridsim/internal/cost"
	"github.com/cryptomegabyte/gridsim/internal/model"
)

// Config parameterises the simulator.
type Config struct {
	InitialCapital     float64
	MaxPositionSizePct float64 // e.g. 0.25
	MinOrderSize       float64
}

// RejectionCounts tallies why candidate trades were turned away.
type RejectionCounts struct {
	Risk    int
	Size    int
	Capital int
}

// Simulator owns cash, inventory and the FIFO buy-lot queue for one pair.
type Simulator struct {
	cfg         Config
	cash        float64
	inventory   float64
	lots        []model.BuyLot
	feeTotal    float64
	peakValue   float64
	rejections  RejectionCounts
	trades      []model.Trade
}

// New builds a Simulator starting from cfg.InitialCapital.
func New(cfg Config) *Simulator {
	return &Simulator{cfg: cfg, cash: cfg.InitialCapital, peakValue: cfg.InitialCapital}
}

// State snapshots the current PortfolioState.
func (s *Simulator) State(lastPrice float64) model.PortfolioState {
	mtm := s.cash + s.inventory*lastPrice
	if mtm > s.peakValue {
		s.peakValue = mtm
	}
	return model.PortfolioState{
		Cash:          s.cash,
		InventoryQty:  s.inventory,
		RealisedPnL:   s.realisedPnL(),
		UnrealisedPnL: s.unrealisedPnL(lastPrice),
		PeakValue:     s.peakValue,
		FeeTotal:      s.feeTotal,
	}
}

func (s *Simulator) realisedPnL() float64 {
	total := 0.0
	for _, tr := range s.trades {
		if tr.Side == model.Sell {
			total += tr.GrossPnL
		}
	}
	return total
}

func (s *Simulator) unrealisedPnL(lastPrice float64) float64 {
	total := 0.0
	for _, lot := range s.lots {
		total += (lastPrice - lot.BuyPrice) * lot.QuantityRemaining
	}
	return total
}

// Rejections returns the tallies of why candidate trades were rejected.
func (s *Simulator) Rejections() RejectionCounts { return s.rejections }

// Trades returns every trade emitted so far.
func (s *Simulator) Trades() []model.Trade { return s.trades }

const riskGateEpsilon = 0.01

// ProcessSignal runs the risk gate, sizing and execution pipeline
// for one signal event, given its cost-model row. Returns nil (no error)
// when the candidate trade is skipped (below the minimum order size,
// rejected by the capital or risk check, or a sell with no inventory);
// each skip increments its rejection counter and is expected behaviour,
// not a fault.
func (s *Simulator) ProcessSignal(ev model.SignalEvent, costModel cost.Model, barVolume float64) (*model.Trade, error) {
	if ev.Side == model.Buy {
		return s.processBuy(ev, costModel, barVolume)
	}
	return s.processSell(ev, costModel, barVolume)
}

func (s *Simulator) processBuy(ev model.SignalEvent, costModel cost.Model, barVolume float64) (*model.Trade, error) {
	qty := s.cash * s.cfg.MaxPositionSizePct / ev.SignalPrice
	if qty < s.cfg.MinOrderSize {
		s.rejections.Size++
		return nil, nil
	}

	row := costModel.Apply(model.Buy, ev.SignalPrice, qty, barVolume)
	tradeValue := row.ExecutionPrice * qty
	totalDebit := tradeValue + row.Fee + row.SlippageCost

	if s.cash < totalDebit {
		s.rejections.Capital++
		return nil, nil
	}

	v := s.cash + s.inventory*ev.SignalPrice
	maxAllowed := v * s.cfg.MaxPositionSizePct
	currentPositionValue := s.inventory * ev.SignalPrice
	if currentPositionValue+qty*ev.SignalPrice > maxAllowed+riskGateEpsilon {
		s.rejections.Risk++
		return nil, nil
	}

	s.cash -= totalDebit
	s.inventory += qty
	s.feeTotal += row.Fee
	s.lots = append(s.lots, model.BuyLot{
		BuyPrice:               row.ExecutionPrice,
		QuantityRemaining:      qty,
		TotalCostIncludingFees: totalDebit,
	})

	trade := model.Trade{
		Side:           model.Buy,
		IntendedPrice:  ev.SignalPrice,
		ExecutionPrice: row.ExecutionPrice,
		Quantity:       qty,
		Timestamp:      ev.Timestamp,
		GridLevel:      ev.GridLevel,
		Fees:           row.Fee,
		Slippage:       row.SlippageCost,
		GrossPnL:       0,
		NetPnL:         -row.Fee - row.SlippageCost,
	}
	s.trades = append(s.trades, trade)
	return &trade, nil
}

func (s *Simulator) processSell(ev model.SignalEvent, costModel cost.Model, barVolume float64) (*model.Trade, error) {
	if s.inventory <= 0 {
		s.rejections.Risk++
		return nil, nil
	}

	requested := s.cash * s.cfg.MaxPositionSizePct / ev.SignalPrice
	qty := math.Min(requested, s.inventory)
	if qty < s.cfg.MinOrderSize {
		s.rejections.Size++
		return nil, nil
	}

	row := costModel.Apply(model.Sell, ev.SignalPrice, qty, barVolume)
	proceeds := row.ExecutionPrice*qty - row.Fee - row.SlippageCost

	consumedCost := s.consumeLotsFIFO(qty)

	s.cash += proceeds
	s.inventory -= qty
	s.feeTotal += row.Fee

	grossPnL := row.ExecutionPrice*qty - consumedCost
	netPnL := grossPnL - row.Fee - row.SlippageCost

	trade := model.Trade{
		Side:           model.Sell,
		IntendedPrice:  ev.SignalPrice,
		ExecutionPrice: row.ExecutionPrice,
		Quantity:       qty,
		Timestamp:      ev.Timestamp,
		GridLevel:      ev.GridLevel,
		Fees:           row.Fee,
		Slippage:       row.SlippageCost,
		GrossPnL:       grossPnL,
		NetPnL:         netPnL,
	}
	s.trades = append(s.trades, trade)
	return &trade, nil
}

// consumeLotsFIFO removes qty units from the head of the lot queue,
// splitting a lot that is only partially consumed, and returns the total
// cost basis of what was consumed.
func (s *Simulator) consumeLotsFIFO(qty float64) float64 {
	remaining := qty
	consumedCost := 0.0
	idx := 0
	for remaining > 1e-12 && idx < len(s.lots) {
		lot := &s.lots[idx]
		unitCost := lot.TotalCostIncludingFees / lot.QuantityRemaining
		take := remaining
		if take > lot.QuantityRemaining {
			take = lot.QuantityRemaining
		}
		consumedCost += unitCost * take
		lot.QuantityRemaining -= take
		lot.TotalCostIncludingFees -= unitCost * take
		remaining -= take
		if lot.QuantityRemaining <= 1e-12 {
			idx++
		}
	}
	s.lots = s.lots[idx:]
	return consumedCost
}

// LotQuantityRemaining sums QuantityRemaining across all open lots; it
// must equal total bought minus total sold.
func (s *Simulator) LotQuantityRemaining() float64 {
	total := 0.0
	for _, lot := range s.lots {
		total += lot.QuantityRemaining
	}
	return total
}
