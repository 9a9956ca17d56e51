package cost

import (
	"testing"

	"github.com/cryptomegabyte/gridsim/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestApply_BuyAddsSlippage_SellSubtracts(t *testing.T) {
	m := Model{BaseSlippageBps: 2.5, ImpactCoefficient: 0, LiquidityFactor: 0, TakerFeeRate: 0.0026}
	buy := m.Apply(model.Buy, 100, 1, 1000)
	sell := m.Apply(model.Sell, 100, 1, 1000)

	assert.Greater(t, buy.ExecutionPrice, 100.0)
	assert.Less(t, sell.ExecutionPrice, 100.0)
	assert.InDelta(t, buy.TotalSlip, sell.TotalSlip, 1e-9)
}

func TestApply_TotalCostIsFeePlusSlippage(t *testing.T) {
	m := Model{BaseSlippageBps: 2.5, ImpactCoefficient: 0.001, LiquidityFactor: 0.1, TakerFeeRate: 0.0026}
	r := m.Apply(model.Buy, 100, 2, 500)
	assert.InDelta(t, r.Fee+r.SlippageCost, r.TotalCost, 1e-9)
	assert.InDelta(t, r.TotalSlip*2, r.SlippageCost, 1e-9)
}

func TestApply_ZeroVolumeUsesLiquidityFactorDirectly(t *testing.T) {
	m := Model{BaseSlippageBps: 0, ImpactCoefficient: 0, LiquidityFactor: 0.05, TakerFeeRate: 0}
	r := m.Apply(model.Buy, 100, 1, 0)
	assert.InDelta(t, 100.05, r.ExecutionPrice, 1e-9)
}
