// Package orderbook maintains a per-pair local limit order book: sorted
// bid/ask levels, snapshot/incremental ingestion, VWAP walking and
// self-consistency checks. Levels are kept in sorted slices rather than
// an ordered map, since lookups are dominated by best-of-book and
// walk-from-best access patterns.
package orderbook

import (
	"fmt"
	"sort"
	"time"

	"github.com/cryptomegabyte/gridsim/internal/errs"
)

// Level is one price rung of the book.
type Level struct {
	Price       float64
	Volume      float64
	LastUpdated time.Time
}

// Book is a per-pair order book. Bids are kept sorted descending by
// price (best bid first); asks ascending (best ask first).
type Book struct {
	Pair     string
	bids     []Level
	asks     []Level
	sequence uint64
}

// New creates an empty book for pair.
func New(pair string) *Book {
	return &Book{Pair: pair}
}

// Sequence returns the monotonic update counter.
func (b *Book) Sequence() uint64 { return b.sequence }

// ApplySnapshot clears the book and rebuilds it from bids/asks pairs of
// (price, volume). Non-positive volumes are dropped.
func (b *Book) ApplySnapshot(bids, asks [][2]float64, at time.Time) {
	b.bids = b.bids[:0]
	b.asks = b.asks[:0]
	for _, pv := range bids {
		if pv[1] > 0 {
			b.bids = append(b.bids, Level{Price: pv[0], Volume: pv[1], LastUpdated: at})
		}
	}
	for _, pv := range asks {
		if pv[1] > 0 {
			b.asks = append(b.asks, Level{Price: pv[0], Volume: pv[1], LastUpdated: at})
		}
	}
	sort.Slice(b.bids, func(i, j int) bool { return b.bids[i].Price > b.bids[j].Price })
	sort.Slice(b.asks, func(i, j int) bool { return b.asks[i].Price < b.asks[j].Price })
	b.sequence++
}

// ApplyUpdate upserts a level when volume > 0, or removes it when
// volume == 0, and increments the sequence counter.
func (b *Book) ApplyUpdate(side Side, price, volume float64, at time.Time) {
	if side == Bid {
		b.bids = upsert(b.bids, price, volume, at, true)
	} else {
		b.asks = upsert(b.asks, price, volume, at, false)
	}
	b.sequence++
}

// Side identifies which side of the book an update applies to.
type Side int

const (
	Bid Side = iota
	Ask
)

func upsert(levels []Level, price, volume float64, at time.Time, descending bool) []Level {
	idx := sort.Search(len(levels), func(i int) bool {
		if descending {
			return levels[i].Price <= price
		}
		return levels[i].Price >= price
	})
	found := idx < len(levels) && levels[idx].Price == price

	if volume == 0 {
		if found {
			levels = append(levels[:idx], levels[idx+1:]...)
		}
		return levels
	}

	lvl := Level{Price: price, Volume: volume, LastUpdated: at}
	if found {
		levels[idx] = lvl
		return levels
	}
	levels = append(levels, Level{})
	copy(levels[idx+1:], levels[idx:])
	levels[idx] = lvl
	return levels
}

// BestBid returns the highest bid level, if any.
func (b *Book) BestBid() (Level, bool) {
	if len(b.bids) == 0 {
		return Level{}, false
	}
	return b.bids[0], true
}

// BestAsk returns the lowest ask level, if any.
func (b *Book) BestAsk() (Level, bool) {
	if len(b.asks) == 0 {
		return Level{}, false
	}
	return b.asks[0], true
}

// Spread returns best_ask - best_bid; ok is false unless both sides exist.
func (b *Book) Spread() (float64, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// MidPrice returns (best_bid+best_ask)/2; ok is false unless both sides exist.
func (b *Book) MidPrice() (float64, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return (bid.Price + ask.Price) / 2, true
}

// BidVWAP walks bids best-to-worst accumulating volume-weighted price,
// stopping when q is exhausted or bids run out. Returns (vwap, available).
// available < q is legal; if there are no bids, ok is false.
func (b *Book) BidVWAP(q float64) (vwap, available float64, ok bool) {
	return walkVWAP(b.bids, q)
}

// AskVWAP is BidVWAP's counterpart over the ask side.
func (b *Book) AskVWAP(q float64) (vwap, available float64, ok bool) {
	return walkVWAP(b.asks, q)
}

func walkVWAP(levels []Level, q float64) (vwap, available float64, ok bool) {
	if len(levels) == 0 {
		return 0, 0, false
	}
	var notional, taken float64
	for _, lvl := range levels {
		if taken >= q {
			break
		}
		take := q - taken
		if take > lvl.Volume {
			take = lvl.Volume
		}
		notional += lvl.Price * take
		taken += take
	}
	if taken == 0 {
		return 0, 0, false
	}
	return notional / taken, taken, true
}

// BidVolumeAtOrAbove returns total bid volume standing at prices >= p.
func (b *Book) BidVolumeAtOrAbove(p float64) float64 {
	total := 0.0
	for _, lvl := range b.bids {
		if lvl.Price >= p {
			total += lvl.Volume
		}
	}
	return total
}

// AskVolumeAtOrBelow returns total ask volume standing at prices <= p.
func (b *Book) AskVolumeAtOrBelow(p float64) float64 {
	total := 0.0
	for _, lvl := range b.asks {
		if lvl.Price <= p {
			total += lvl.Volume
		}
	}
	return total
}

// Depth returns the number of levels on each side.
func (b *Book) Depth() (bids, asks int) { return len(b.bids), len(b.asks) }

// TopLevels returns up to n levels from each side, best first.
func (b *Book) TopLevels(n int) (bids, asks []Level) {
	nb, na := n, n
	if nb > len(b.bids) {
		nb = len(b.bids)
	}
	if na > len(b.asks) {
		na = len(b.asks)
	}
	bids = append(bids, b.bids[:nb]...)
	asks = append(asks, b.asks[:na]...)
	return bids, asks
}

// LiquidityScore sums volume across the given number of top levels on
// both sides, used as a depth proxy by the execution simulator.
func (b *Book) LiquidityScore(levels int) float64 {
	total := 0.0
	for i := 0; i < levels && i < len(b.bids); i++ {
		total += b.bids[i].Volume
	}
	for i := 0; i < levels && i < len(b.asks); i++ {
		total += b.asks[i].Volume
	}
	return total
}

// HasSufficientLiquidity reports whether the top-10 liquidity score meets
// the minimum threshold.
func (b *Book) HasSufficientLiquidity(minimum float64) bool {
	return b.LiquidityScore(10) >= minimum
}

// Clear empties both sides.
func (b *Book) Clear() {
	b.bids = nil
	b.asks = nil
	b.sequence++
}

// Validate checks the order-book self-consistency invariants:
// best_bid < best_ask when both populated, and no non-positive
// volumes anywhere.
func (b *Book) Validate() error {
	if bid, okB := b.BestBid(); okB {
		if ask, okA := b.BestAsk(); okA && bid.Price >= ask.Price {
			return errs.New(errs.Internal, false, fmt.Errorf("best_bid %v >= best_ask %v", bid.Price, ask.Price))
		}
	}
	for _, lvl := range b.bids {
		if lvl.Volume <= 0 {
			return errs.New(errs.Internal, false, fmt.Errorf("bid level at %v has non-positive volume", lvl.Price))
		}
	}
	for _, lvl := range b.asks {
		if lvl.Volume <= 0 {
			return errs.New(errs.Internal, false, fmt.Errorf("ask level at %v has non-positive volume", lvl.Price))
		}
	}
	return nil
}

// MarketImpact is an auxiliary, non-blocking estimate of the price impact
// a hypothetical order of the given size and side would incur against
// current depth. Read-only diagnostic; never gates an order.
type MarketImpact struct {
	EstimatedAveragePrice float64
	PriceImpactPct        float64
	AvailableLiquidity    float64
}

// EstimateMarketImpact reports the impact of a hypothetical buy (walks
// asks) or sell (walks bids) of quantity q, without mutating the book.
func (b *Book) EstimateMarketImpact(side Side, q float64) (MarketImpact, bool) {
	var vwap, available float64
	var ok bool
	var reference float64
	if side == Bid {
		// A buy consumes asks.
		vwap, available, ok = b.AskVWAP(q)
		if ask, okA := b.BestAsk(); okA {
			reference = ask.Price
		}
	} else {
		vwap, available, ok = b.BidVWAP(q)
		if bid, okB := b.BestBid(); okB {
			reference = bid.Price
		}
	}
	if !ok || reference == 0 {
		return MarketImpact{}, false
	}
	impactPct := (vwap - reference) / reference
	if impactPct < 0 {
		impactPct = -impactPct
	}
	return MarketImpact{EstimatedAveragePrice: vwap, PriceImpactPct: impactPct, AvailableLiquidity: available}, true
}
