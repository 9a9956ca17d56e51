package strategydb

import (
	"testing"
	"time"

	"github.com/cryptomegabyte/gridsim/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveThenLoad_RoundTripsRecord(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	stopLoss := 0.05
	rec := Record{
		TradingPair:      "XRPGBP",
		GridLevels:       5,
		GridSpacing:      0.01,
		ExpectedReturn:   12.5,
		TotalTrades:      40,
		WinRate:          62.5,
		SharpeRatio:      1.8,
		MaxDrawdown:      8.2,
		TotalFees:        3.4,
		MarkovConfidence: 0.71,
		GeneratedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		StopLoss:         &stopLoss,
	}
	require.NoError(t, store.Save(rec))

	got, err := store.Load("XRPGBP")
	require.NoError(t, err)
	assert.Equal(t, rec.TradingPair, got.TradingPair)
	assert.Equal(t, rec.GridLevels, got.GridLevels)
	require.NotNil(t, got.StopLoss)
	assert.Equal(t, stopLoss, *got.StopLoss)
}

func TestLoad_MissingPairReturnsPersistenceError(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("NOPEGBP")
	require.Error(t, err)
	assert.Equal(t, errs.Persistence, errs.KindOf(err))
}

func TestListPairs_ReturnsSavedPairsOnly(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(Record{TradingPair: "XRPGBP", GeneratedAt: time.Now()}))
	require.NoError(t, store.Save(Record{TradingPair: "BTCGBP", GeneratedAt: time.Now()}))

	pairs, err := store.ListPairs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"XRPGBP", "BTCGBP"}, pairs)
}

func TestSave_OverwritesExistingRecord(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(Record{TradingPair: "XRPGBP", TotalTrades: 1, GeneratedAt: time.Now()}))
	require.NoError(t, store.Save(Record{TradingPair: "XRPGBP", TotalTrades: 2, GeneratedAt: time.Now()}))

	got, err := store.Load("XRPGBP")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalTrades)
}
