package portfolio

import (
	"testing"
	"time"

	"github.com/cryptomegabyte/gridsim/internal/cost"
	"github.com/cryptomegabyte/gridsim/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessSignal_BuyThenSell_S1(t *testing.T) {
	sim := New(Config{InitialCapital: 10000, MaxPositionSizePct: 0.25, MinOrderSize: 1e-6})
	cm := cost.Model{BaseSlippageBps: 2.5, TakerFeeRate: 0.0026}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	buyEvent := model.SignalEvent{Side: model.Buy, SignalPrice: 0.495, Timestamp: base, GridLevel: 0.495}
	buyTrade, err := sim.ProcessSignal(buyEvent, cm, 1000)
	require.NoError(t, err)
	require.NotNil(t, buyTrade)
	assert.Equal(t, 0.0, buyTrade.GrossPnL)
	assert.InDelta(t, -buyTrade.Fees-buyTrade.Slippage, buyTrade.NetPnL, 1e-9)

	// Each sell is capped at cash*MaxPositionSizePct/price, so draining the
	// position takes several successive sells rather than one full exit.
	for i := 0; i < 200 && sim.State(0.505).InventoryQty > 1e-6; i++ {
		sellEvent := model.SignalEvent{Side: model.Sell, SignalPrice: 0.505, Timestamp: base.Add(time.Duration(i+1) * time.Minute), GridLevel: 0.505}
		sellTrade, err := sim.ProcessSignal(sellEvent, cm, 1000)
		require.NoError(t, err)
		require.NotNil(t, sellTrade)
		assert.InDelta(t, sellTrade.GrossPnL-sellTrade.Fees-sellTrade.Slippage, sellTrade.NetPnL, 1e-9)
	}

	assert.InDelta(t, 0, sim.LotQuantityRemaining(), 1e-6)
}

func TestProcessSignal_SellRejectedWithoutInventory(t *testing.T) {
	sim := New(Config{InitialCapital: 10000, MaxPositionSizePct: 0.25, MinOrderSize: 1e-6})
	cm := cost.Model{TakerFeeRate: 0.0026}
	trade, err := sim.ProcessSignal(model.SignalEvent{Side: model.Sell, SignalPrice: 1.0}, cm, 100)
	require.NoError(t, err)
	assert.Nil(t, trade)
	assert.Equal(t, 1, sim.Rejections().Risk)
}

func TestProcessSignal_CashNeverNegative(t *testing.T) {
	sim := New(Config{InitialCapital: 100, MaxPositionSizePct: 0.9, MinOrderSize: 1e-6})
	cm := cost.Model{BaseSlippageBps: 2.5, TakerFeeRate: 0.0026}
	for i := 0; i < 5; i++ {
		_, err := sim.ProcessSignal(model.SignalEvent{Side: model.Buy, SignalPrice: 1.0}, cm, 1000)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, sim.State(1.0).Cash, 0.0)
	}
}

func TestFIFOConsumption_PartialLotSplit(t *testing.T) {
	sim := New(Config{InitialCapital: 100000, MaxPositionSizePct: 1.0, MinOrderSize: 1e-6})
	sim.lots = []model.BuyLot{
		{BuyPrice: 10, QuantityRemaining: 5, TotalCostIncludingFees: 51},
		{BuyPrice: 11, QuantityRemaining: 5, TotalCostIncludingFees: 56.1},
	}
	consumed := sim.consumeLotsFIFO(7)
	assert.InDelta(t, 51+2*(56.1/5), consumed, 1e-9)
	assert.Len(t, sim.lots, 1)
	assert.InDelta(t, 3, sim.lots[0].QuantityRemaining, 1e-9)
}

func TestAnalyse_DrawdownOfStrictlyIncreasingCurveIsZero(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []model.Trade{
		{Side: model.Buy, ExecutionPrice: 100, Quantity: 1, Timestamp: base},
		{Side: model.Sell, ExecutionPrice: 110, Quantity: 1, Timestamp: base.Add(time.Hour), NetPnL: 10, GrossPnL: 10},
	}
	m := Analyse(trades, 1000, 0)
	assert.Equal(t, 0.0, m.MaxDrawdownPct)
}

func TestAnalyse_SharpeZeroNotNaNOnStableCurve_S5(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var trades []model.Trade
	for i := 0; i < 10; i++ {
		side := model.Buy
		price := 100.0
		if i%2 == 1 {
			side = model.Sell
			price = 100.0
		}
		trades = append(trades, model.Trade{Side: side, ExecutionPrice: price, Quantity: 1, Timestamp: base.Add(time.Duration(i) * time.Hour)})
	}
	m := Analyse(trades, 1000, 0)
	assert.Equal(t, 0.0, m.Sharpe)
	assert.False(t, m.Sharpe != m.Sharpe) // not NaN
}
