// Package cost implements the backtest cost model: turning a raw grid
// signal into an execution price and fee, given bar volume and
// configured spread/impact coefficients.
package cost

import (
	"math"

	"github.com/cryptomegabyte/gridsim/internal/model"
)

// Model holds the coefficients the cost formula is parameterised by.
type Model struct {
	BaseSlippageBps    float64 // e.g. 2.5
	ImpactCoefficient  float64
	LiquidityFactor    float64
	TakerFeeRate       float64 // e.g. 0.0026 for 0.26%
}

// Row is the cost-annotated result for one signal.
type Row struct {
	ExecutionPrice float64
	TotalSlip      float64 // per-unit price displacement
	SlippageCost   float64 // TotalSlip * quantity
	Fee            float64
	TotalCost      float64 // Fee + SlippageCost
}

// Apply computes the execution price and costs for one signal.
func (m Model) Apply(side model.Side, signalPrice, quantity, barVolume float64) Row {
	baseSlip := signalPrice * m.BaseSlippageBps / 10000.0
	impact := quantity * m.ImpactCoefficient

	var liquidityTerm float64
	if barVolume > 0 {
		liquidityTerm = m.LiquidityFactor / math.Sqrt(barVolume)
	} else {
		liquidityTerm = m.LiquidityFactor
	}

	totalSlip := baseSlip + impact + liquidityTerm

	executionPrice := signalPrice + totalSlip
	if side == model.Sell {
		executionPrice = signalPrice - totalSlip
	}

	fee := executionPrice * quantity * m.TakerFeeRate
	slippageCost := totalSlip * quantity

	return Row{
		ExecutionPrice: executionPrice,
		TotalSlip:      totalSlip,
		SlippageCost:   slippageCost,
		Fee:            fee,
		TotalCost:      fee + slippageCost,
	}
}
