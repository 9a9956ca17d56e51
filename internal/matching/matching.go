// Package matching implements the order matching engine: matches
// Market/Limit/PostOnly orders against a local order book with
// time-price priority, producing fills and partial-fill semantics.
package matching

import (
	"fmt"

	"github.com/cryptomegabyte/gridsim/internal/errs"
	"github.com/cryptomegabyte/gridsim/internal/metrics"
	"github.com/cryptomegabyte/gridsim/internal/model"
	"github.com/cryptomegabyte/gridsim/internal/orderbook"
)

// Config bounds order sizes the engine will accept.
type Config struct {
	MinOrderSize      float64
	MaxOrderSize      float64
	AllowPartialFills bool
}

// DefaultConfig mirrors the original's defaults.
func DefaultConfig() Config {
	return Config{MinOrderSize: 0.0001, MaxOrderSize: 1000.0, AllowPartialFills: true}
}

// Engine matches SimOrders against a Book.
type Engine struct {
	cfg Config
}

// New builds a matching engine with cfg.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Match dispatches order to the handler for its type, after validating it.
func (e *Engine) Match(order model.SimOrder, book *orderbook.Book) (model.MatchResult, error) {
	if err := e.validate(order, book); err != nil {
		return model.MatchResult{OrderID: order.ID, Status: model.Rejected, Remaining: order.Quantity}, err
	}

	var res model.MatchResult
	switch order.Type {
	case model.Market:
		res = e.matchMarket(order, book)
	case model.Limit:
		res = e.matchLimit(order, book)
	case model.PostOnly:
		res = e.matchPostOnly(order, book)
	default:
		return model.MatchResult{}, errs.New(errs.Internal, false, fmt.Errorf("unknown order type %v", order.Type))
	}
	for range res.Fills {
		metrics.IncMatchingFill(order.Type.String())
	}
	return res, nil
}

func (e *Engine) validate(order model.SimOrder, book *orderbook.Book) error {
	if order.Quantity < e.cfg.MinOrderSize || order.Quantity > e.cfg.MaxOrderSize {
		return errs.New(errs.Validation, false, fmt.Errorf("quantity %v out of bounds [%v,%v]", order.Quantity, e.cfg.MinOrderSize, e.cfg.MaxOrderSize))
	}
	if (order.Type == model.Limit || order.Type == model.PostOnly) && order.LimitPrice <= 0 {
		return errs.New(errs.Validation, false, fmt.Errorf("limit order requires a positive limit_price"))
	}
	if order.Type == model.Market {
		_, _, ok := vwapFor(order.Side, book, order.Quantity)
		if !ok {
			return errs.New(errs.Trading, false, fmt.Errorf("insufficient liquidity for market order"))
		}
	}
	return nil
}

func vwapFor(side model.Side, book *orderbook.Book, q float64) (float64, float64, bool) {
	if side == model.Buy {
		return book.AskVWAP(q)
	}
	return book.BidVWAP(q)
}

func (e *Engine) matchMarket(order model.SimOrder, book *orderbook.Book) model.MatchResult {
	levels := oppositeSideLevels(order.Side, book)
	fills, totalFilled, notional := walkLevels(levels, order.Quantity)

	status := statusFor(totalFilled, order.Quantity, e.cfg.AllowPartialFills)
	return buildResult(order.ID, fills, totalFilled, notional, order.Quantity, status)
}

func (e *Engine) matchLimit(order model.SimOrder, book *orderbook.Book) model.MatchResult {
	crosses := orderCrosses(order, book)
	if !crosses {
		return model.MatchResult{OrderID: order.ID, Status: model.PostedToBook, Remaining: order.Quantity}
	}

	levels := oppositeSideLevels(order.Side, book)
	boundedLevels := boundByLimit(order.Side, levels, order.LimitPrice)
	fills, totalFilled, notional := walkLevels(boundedLevels, order.Quantity)

	status := statusFor(totalFilled, order.Quantity, e.cfg.AllowPartialFills)
	if totalFilled == 0 {
		status = model.PostedToBook
	}
	return buildResult(order.ID, fills, totalFilled, notional, order.Quantity, status)
}

func (e *Engine) matchPostOnly(order model.SimOrder, book *orderbook.Book) model.MatchResult {
	if orderCrosses(order, book) {
		return model.MatchResult{OrderID: order.ID, Status: model.Rejected, Remaining: order.Quantity}
	}
	return model.MatchResult{OrderID: order.ID, Status: model.PostedToBook, Remaining: order.Quantity}
}

func orderCrosses(order model.SimOrder, book *orderbook.Book) bool {
	if order.Side == model.Buy {
		ask, ok := book.BestAsk()
		return ok && order.LimitPrice >= ask.Price
	}
	bid, ok := book.BestBid()
	return ok && order.LimitPrice <= bid.Price
}

func oppositeSideLevels(side model.Side, book *orderbook.Book) []orderbook.Level {
	bids, asks := book.TopLevels(1 << 30)
	if side == model.Buy {
		return asks
	}
	return bids
}

func boundByLimit(side model.Side, levels []orderbook.Level, limit float64) []orderbook.Level {
	bounded := make([]orderbook.Level, 0, len(levels))
	for _, lvl := range levels {
		if side == model.Buy && lvl.Price > limit {
			break
		}
		if side == model.Sell && lvl.Price < limit {
			break
		}
		bounded = append(bounded, lvl)
	}
	return bounded
}

func walkLevels(levels []orderbook.Level, qty float64) ([]model.Fill, float64, float64) {
	var fills []model.Fill
	var filled, notional float64
	for _, lvl := range levels {
		if filled >= qty {
			break
		}
		take := qty - filled
		if take > lvl.Volume {
			take = lvl.Volume
		}
		fills = append(fills, model.Fill{Price: lvl.Price, Quantity: take, IsMaker: false})
		filled += take
		notional += lvl.Price * take
	}
	return fills, filled, notional
}

func statusFor(filled, requested float64, allowPartial bool) model.OrderStatus {
	switch {
	case filled <= 0:
		return model.Rejected
	case filled >= requested-1e-9:
		return model.FullyFilled
	case allowPartial:
		return model.PartiallyFilled
	default:
		return model.Rejected
	}
}

func buildResult(orderID string, fills []model.Fill, filled, notional, requested float64, status model.OrderStatus) model.MatchResult {
	avg := 0.0
	if filled > 0 {
		avg = notional / filled
	}
	if status == model.Rejected {
		fills = nil
		filled = 0
	}
	return model.MatchResult{
		OrderID:      orderID,
		Fills:        fills,
		Status:       status,
		TotalFilled:  filled,
		AveragePrice: avg,
		Remaining:    requested - filled,
	}
}
