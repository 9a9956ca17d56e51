// Package execution layers a realistic execution model (latency, fill
// probability, slippage, maker/taker fees) over a raw MatchResult.
package execution

import (
	"math"
	"math/rand"

	"github.com/cryptomegabyte/gridsim/internal/model"
)

// SlippageKind selects one of the four slippage models.
type SlippageKind int

const (
	Fixed SlippageKind = iota
	SquareRoot
	Linear
	Realistic
)

// SlippageParams holds the coefficients for whichever SlippageKind is active.
type SlippageParams struct {
	FixedPct                  float64
	SquareRootBaseImpact      float64
	LinearImpactCoefficient   float64
	RealisticBaseSpreadCapture float64
	RealisticVolumeImpact     float64
	RealisticVolatilityFactor float64
}

// FeeConfig is the maker/taker fee schedule in basis points.
type FeeConfig struct {
	MakerFeeBps float64
	TakerFeeBps float64
}

// LatencyConfig parameterises the per-fill latency draw.
type LatencyConfig struct {
	MinMS        float64
	MaxMS        float64
	JitterMS     float64
	ProcessingMS float64
}

// FillProbabilityConfig parameterises the fill-decision step.
type FillProbabilityConfig struct {
	BaseFillRate           float64
	LiquidityThreshold     float64
	AdverseSelectionFactor float64
}

// Config bundles everything the simulator needs.
type Config struct {
	Slippage        SlippageKind
	SlippageParams  SlippageParams
	Fee             FeeConfig
	Latency         LatencyConfig
	FillProbability FillProbabilityConfig
}

// DefaultConfig returns a Realistic-slippage configuration with
// moderate latency and fee defaults.
func DefaultConfig() Config {
	return Config{
		Slippage: Realistic,
		SlippageParams: SlippageParams{
			RealisticBaseSpreadCapture: 0.5,
			RealisticVolumeImpact:      0.001,
			RealisticVolatilityFactor:  1.0,
		},
		Fee:     FeeConfig{MakerFeeBps: 16.0, TakerFeeBps: 26.0},
		Latency: LatencyConfig{MinMS: 50, MaxMS: 200, JitterMS: 20, ProcessingMS: 10},
		FillProbability: FillProbabilityConfig{
			BaseFillRate:           0.95,
			LiquidityThreshold:     0.1,
			AdverseSelectionFactor: 0.05,
		},
	}
}

// KrakenConfig is the named preset matching the platform's Kraken-shaped
// feed assumptions: tighter max latency, more jitter, and a higher
// adverse-selection factor than DefaultConfig.
func KrakenConfig() Config {
	cfg := DefaultConfig()
	cfg.Latency = LatencyConfig{MinMS: 50, MaxMS: 150, JitterMS: 30, ProcessingMS: 20}
	cfg.FillProbability.AdverseSelectionFactor = 0.08
	return cfg
}

// Simulator applies Config to raw MatchResults. It owns its random source
// so callers can make reproducible runs by seeding it.
type Simulator struct {
	cfg Config
	rng *rand.Rand
}

// New builds a Simulator. Pass rand.New(rand.NewSource(seed)) for
// reproducible backtests.
func New(cfg Config, rng *rand.Rand) *Simulator {
	return &Simulator{cfg: cfg, rng: rng}
}

// Simulate runs the latency/fill/slippage/fee pipeline over every fill in
// match independently
// and aggregates the result. side determines the direction slippage is
// applied in; liquidity is the depth proxy (e.g. summed top-10 volume)
// used by the fill-decision and slippage steps; spread is the current
// best-bid/ask spread, used by the Realistic slippage model.
func (s *Simulator) Simulate(match model.MatchResult, side model.Side, liquidity, spread float64) model.ExecutionResult {
	if match.Status == model.Rejected {
		return model.ExecutionResult{MatchResult: match, Status: model.Failed}
	}

	var executed []model.ExecutedFill
	var totalFees, totalSlipCost, maxLatency float64

	for _, f := range match.Fills {
		if !s.shouldFill(f.Quantity, liquidity) {
			continue
		}
		latency := s.simulateLatency()
		slip := s.calculateSlippage(f.Price, f.Quantity, liquidity, spread)
		execPrice := s.applySlippage(f.Price, slip, side)
		fee := s.calculateFee(execPrice, f.Quantity, f.IsMaker)

		executed = append(executed, model.ExecutedFill{
			Fill:      model.Fill{Price: execPrice, Quantity: f.Quantity, IsMaker: f.IsMaker},
			LatencyMS: latency,
			Fee:       fee,
		})
		totalFees += fee
		totalSlipCost += math.Abs(execPrice-f.Price) * f.Quantity
		if latency > maxLatency {
			maxLatency = latency
		}
	}

	status := s.statusFor(match.Status, len(executed), len(match.Fills))

	filled := 0.0
	notional := 0.0
	for _, ef := range executed {
		filled += ef.Quantity
		notional += ef.Price * ef.Quantity
	}
	avg := 0.0
	if filled > 0 {
		avg = notional / filled
	}

	return model.ExecutionResult{
		MatchResult: model.MatchResult{
			OrderID:      match.OrderID,
			Fills:        fillsFromExecuted(executed),
			Status:       match.Status,
			TotalFilled:  filled,
			AveragePrice: avg,
			Remaining:    match.Remaining,
		},
		ExecutedFills:     executed,
		TotalFees:         totalFees,
		TotalSlippageCost: totalSlipCost,
		TotalExecutionMS:  maxLatency,
		Status:            status,
	}
}

func fillsFromExecuted(executed []model.ExecutedFill) []model.Fill {
	fills := make([]model.Fill, 0, len(executed))
	for _, ef := range executed {
		fills = append(fills, ef.Fill)
	}
	return fills
}

// shouldFill decides whether one fill is realized at all: large orders
// relative to liquidity and adverse-selection draws both reduce the
// effective fill rate.
func (s *Simulator) shouldFill(qty, liquidity float64) bool {
	rate := s.cfg.FillProbability.BaseFillRate
	if liquidity > 0 && qty/liquidity > s.cfg.FillProbability.LiquidityThreshold {
		rate *= 0.8
	}
	if s.rng.Float64() < s.cfg.FillProbability.AdverseSelectionFactor {
		rate *= 0.5
	}
	return s.rng.Float64() < rate
}

// simulateLatency draws a latency in the configured min/max range plus
// jitter and fixed processing overhead.
func (s *Simulator) simulateLatency() float64 {
	base := s.cfg.Latency.MinMS + s.rng.Float64()*(s.cfg.Latency.MaxMS-s.cfg.Latency.MinMS)
	jitter := s.rng.Float64() * s.cfg.Latency.JitterMS
	return base + jitter + s.cfg.Latency.ProcessingMS
}

// calculateSlippage computes per-unit price displacement for the active
// model. spread
// is the current best-bid/ask spread; the Realistic model's spread-capture
// term falls back to a 1bp-of-price estimate when no spread is available.
func (s *Simulator) calculateSlippage(price, qty, liquidity, spread float64) float64 {
	p := s.cfg.SlippageParams
	switch s.cfg.Slippage {
	case Fixed:
		return price * p.FixedPct
	case SquareRoot:
		if liquidity <= 0 {
			return 0
		}
		return price * p.SquareRootBaseImpact * math.Sqrt(qty/liquidity)
	case Linear:
		if liquidity <= 0 {
			return 0
		}
		return price * p.LinearImpactCoefficient * (qty / liquidity)
	case Realistic:
		volumeImpact := 0.0
		if liquidity > 0 {
			volumeImpact = price * p.RealisticVolumeImpact * (qty / liquidity)
		}
		effectiveSpread := spread
		if effectiveSpread <= 0 {
			effectiveSpread = price * 0.0001
		}
		spreadCapture := effectiveSpread * p.RealisticBaseSpreadCapture
		return (spreadCapture + volumeImpact) * p.RealisticVolatilityFactor
	default:
		return 0
	}
}

// applySlippage gives a 10% chance of a favourable (inward) displacement,
// otherwise adverse, with sign consistent with side: an adverse fill
// costs a buyer more and a seller less.
func (s *Simulator) applySlippage(price, slip float64, side model.Side) float64 {
	favourable := s.rng.Float64() < 0.1
	adverse := !favourable
	if side == model.Buy {
		if adverse {
			return price + slip
		}
		return price - slip
	}
	if adverse {
		return price - slip
	}
	return price + slip
}

// calculateFee applies the maker or taker fee rate to the executed
// notional.
func (s *Simulator) calculateFee(execPrice, qty float64, isMaker bool) float64 {
	bps := s.cfg.Fee.TakerFeeBps
	if isMaker {
		bps = s.cfg.Fee.MakerFeeBps
	}
	return execPrice * qty * bps / 10000.0
}

// statusFor maps the raw match status and fill count down to the
// simulator's own coarser execution status.
func (s *Simulator) statusFor(matchStatus model.OrderStatus, filledCount, totalFills int) model.ExecutionStatus {
	switch matchStatus {
	case model.FullyFilled:
		if filledCount == totalFills && filledCount > 0 {
			return model.Success
		}
		if filledCount > 0 {
			return model.PartialFill
		}
		return model.Failed
	case model.PartiallyFilled:
		if filledCount > 0 {
			return model.PartialFill
		}
		return model.Failed
	case model.PostedToBook:
		return model.Success
	default:
		return model.Failed
	}
}
