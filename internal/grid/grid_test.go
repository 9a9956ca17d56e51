package grid

import (
	"testing"
	"time"

	"github.com/cryptomegabyte/gridsim/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestBuild_SymmetricLevels(t *testing.T) {
	lv := Build(0.5, 0.005, 5)
	assert.Len(t, lv.BuyLevels, 5)
	assert.Len(t, lv.SellLevels, 5)
	assert.InDelta(t, 0.4975, lv.BuyLevels[4], 1e-9)
	assert.InDelta(t, 0.5025, lv.SellLevels[0], 1e-9)
}

func TestDetectSignals_S1(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := []model.PricePoint{
		{Timestamp: base, Close: 0.50},
		{Timestamp: base.Add(time.Minute), Close: 0.495},
		{Timestamp: base.Add(2 * time.Minute), Close: 0.495},
		{Timestamp: base.Add(3 * time.Minute), Close: 0.500},
		{Timestamp: base.Add(4 * time.Minute), Close: 0.505},
	}
	series := model.PriceSeries{Pair: "XRPGBP", Points: pts}
	levels := Build(0.50, 0.01, 5)

	events := DetectSignals(series, levels)

	if assert.Len(t, events, 2) {
		assert.Equal(t, model.Buy, events[0].Side)
		assert.InDelta(t, 0.495, events[0].GridLevel, 1e-9)
		assert.Equal(t, model.Sell, events[1].Side)
		assert.InDelta(t, 0.505, events[1].GridLevel, 1e-9)
	}
}

func TestDetectSignals_NoRepeatAtSameLevel(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := []model.PricePoint{
		{Timestamp: base, Close: 0.494},
		{Timestamp: base.Add(time.Minute), Close: 0.494},
		{Timestamp: base.Add(2 * time.Minute), Close: 0.494},
	}
	series := model.PriceSeries{Pair: "XRPGBP", Points: pts}
	levels := Build(0.50, 0.01, 5)

	events := DetectSignals(series, levels)
	assert.Len(t, events, 1)
}

func TestDetectSignals_TimestampsStrictlyNonDecreasing(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]model.PricePoint, 0, 20)
	price := 0.50
	for i := 0; i < 20; i++ {
		price -= 0.002
		pts = append(pts, model.PricePoint{Timestamp: base.Add(time.Duration(i) * time.Minute), Close: price})
	}
	series := model.PriceSeries{Pair: "XRPGBP", Points: pts}
	levels := Build(0.50, 0.005, 5)
	events := DetectSignals(series, levels)

	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Timestamp.Before(events[i-1].Timestamp))
		if events[i].GridLevel == events[i-1].GridLevel {
			t.Fatalf("consecutive events reference the same grid level")
		}
	}
}

func TestCalculate_Static_MatchesBuild(t *testing.T) {
	in := Inputs{Price: 100, Spacing: 1, Levels: 3}
	got := Calculate(StrategyStatic, in)
	want := Build(100, 1, 3)
	assert.Equal(t, want, got)
}

func TestCalculate_VolatilityAdaptive_WidensWithLevel(t *testing.T) {
	in := Inputs{Price: 100, Spacing: 1, Levels: 3, ATR: 2, DefaultVolatility: 0.02}
	lv := Calculate(StrategyVolatilityAdaptive, in)
	assert.Len(t, lv.BuyLevels, 3)
	// Deeper levels (further from price) should be more spaced than k=1's level.
	assert.Greater(t, lv.BuyLevels[1]-lv.BuyLevels[0], 0.0)
}

func TestCalculate_SupportResistance_FallsBackWithoutLevels(t *testing.T) {
	in := Inputs{Price: 100, Spacing: 1, Levels: 3, DefaultVolatility: 0.02}
	lv := Calculate(StrategySupportResistance, in)
	assert.Len(t, lv.BuyLevels, 3)
}

func TestCalculate_Fibonacci_TruncatesToLevelCount(t *testing.T) {
	in := Inputs{Price: 100, Levels: 4}
	lv := Calculate(StrategyFibonacci, in)
	assert.Len(t, lv.BuyLevels, 4)
	assert.Len(t, lv.SellLevels, 4)
}

func TestCalculate_TrendFollowing_WidensTrendSide(t *testing.T) {
	closes := []float64{90, 92, 94, 96, 120} // strong upward move
	in := Inputs{Price: 120, Spacing: 1, Levels: 2, RecentCloses: closes}
	lv := Calculate(StrategyTrendFollowing, in)
	sellGap := lv.SellLevels[1] - lv.SellLevels[0]
	buyGap := lv.BuyLevels[1] - lv.BuyLevels[0]
	assert.Greater(t, sellGap, buyGap)
}
