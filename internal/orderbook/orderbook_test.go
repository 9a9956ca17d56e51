package orderbook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBook() *Book {
	b := New("XRPGBP")
	now := time.Now()
	b.ApplySnapshot(
		[][2]float64{{2000, 1.0}, {1999, 2.0}, {1998, 3.0}},
		[][2]float64{{2001, 1.0}, {2002, 2.0}, {2003, 3.0}},
		now,
	)
	return b
}

func TestAskVWAP_S3(t *testing.T) {
	b := sampleBook()
	vwap, available, ok := b.AskVWAP(2.0)
	require.True(t, ok)
	assert.InDelta(t, 2001.5, vwap, 1e-9)
	assert.InDelta(t, 2.0, available, 1e-9)
}

func TestBidVWAP_PartialWhenBookExhausted(t *testing.T) {
	b := sampleBook()
	vwap, available, ok := b.BidVWAP(100)
	require.True(t, ok)
	assert.InDelta(t, 6.0, available, 1e-9)
	assert.Less(t, vwap, 2000.0)
}

func TestBidVWAP_NoBidsReturnsNotOk(t *testing.T) {
	b := New("XRPGBP")
	_, _, ok := b.BidVWAP(1.0)
	assert.False(t, ok)
}

func TestApplyUpdate_ZeroVolumeRemoves(t *testing.T) {
	b := sampleBook()
	b.ApplyUpdate(Bid, 2000, 0, time.Now())
	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.InDelta(t, 1999, bid.Price, 1e-9)
}

func TestApplyUpdate_UpsertIncreasesSequence(t *testing.T) {
	b := sampleBook()
	seq := b.Sequence()
	b.ApplyUpdate(Ask, 2004, 5, time.Now())
	assert.Equal(t, seq+1, b.Sequence())
}

func TestValidate_BestBidMustBeBelowBestAsk(t *testing.T) {
	b := sampleBook()
	assert.NoError(t, b.Validate())

	b.ApplyUpdate(Bid, 2005, 1, time.Now())
	assert.Error(t, b.Validate())
}

func TestSpreadAndMidPrice(t *testing.T) {
	b := sampleBook()
	spread, ok := b.Spread()
	require.True(t, ok)
	assert.InDelta(t, 1.0, spread, 1e-9)

	mid, ok := b.MidPrice()
	require.True(t, ok)
	assert.InDelta(t, 2000.5, mid, 1e-9)
}
