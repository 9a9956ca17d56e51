package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cryptomegabyte/gridsim/internal/errs"
	"github.com/cryptomegabyte/gridsim/internal/model"
)

// TickerUpdate is the parsed form of a ticker message.
type TickerUpdate struct {
	Pair       string
	Last       float64
	Bid        float64
	Ask        float64
	Volume24H  float64
	High24H    float64
	Low24H     float64
}

// OHLCUpdate is the parsed form of an ohlc-<interval> message.
type OHLCUpdate struct {
	Pair    string
	Point   model.PricePoint
	Interval int
}

// BookUpdate is the parsed form of a book-<depth> message: b/a arrays of
// [price, volume, timestamp]; volume zero removes the level.
type BookUpdate struct {
	Pair  string
	Bids  []BookLevelUpdate
	Asks  []BookLevelUpdate
}

// BookLevelUpdate is one [price, volume, timestamp] tuple.
type BookLevelUpdate struct {
	Price  float64
	Volume float64
}

// LiveClient consumes the three channels of interest (ticker, ohlc-N,
// book-N) from a single WebSocket connection and routes each parsed
// message to the matching channel. Control events (subscriptionStatus,
// systemStatus) are logged and dropped.
type LiveClient struct {
	url    string
	log    zerolog.Logger
	conn   *websocket.Conn

	Tickers chan TickerUpdate
	OHLC    chan OHLCUpdate
	Book    chan BookUpdate
}

// NewLiveClient builds an unconnected LiveClient targeting url.
func NewLiveClient(url string, log zerolog.Logger) *LiveClient {
	return &LiveClient{
		url:     url,
		log:     log,
		Tickers: make(chan TickerUpdate, 256),
		OHLC:    make(chan OHLCUpdate, 256),
		Book:    make(chan BookUpdate, 256),
	}
}

// Connect dials the WebSocket endpoint. Callers should follow with Run.
func (c *LiveClient) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return errs.New(errs.RemoteFeed, true, fmt.Errorf("dial live feed: %w", err))
	}
	c.conn = conn
	return nil
}

// Run reads messages until ctx is cancelled or the connection closes.
// Parse failures are logged and skipped, never fatal to the loop.
func (c *LiveClient) Run(ctx context.Context) error {
	defer c.conn.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return errs.New(errs.RemoteFeed, true, fmt.Errorf("live feed closed: %w", err))
		}
		if err := c.dispatch(raw); err != nil {
			c.log.Warn().Err(err).Msg("live feed message dropped")
		}
	}
}

// ReadOne pulls at most one message within the given timeout, used by the
// live engine's per-tick 50ms poll. A timeout is not an error.
func (c *LiveClient) ReadOne(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
			return nil
		}
		return errs.New(errs.RemoteFeed, true, fmt.Errorf("live feed read: %w", err))
	}
	return c.dispatch(raw)
}

func (c *LiveClient) dispatch(raw []byte) error {
	// Control events arrive as JSON objects; data events as JSON arrays
	// whose third element names the channel.
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if event, ok := obj["event"].(string); ok {
			c.log.Info().Str("event", event).Msg("control event")
			return nil
		}
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return fmt.Errorf("unrecognised message shape: %w", err)
	}
	if len(arr) < 4 {
		return fmt.Errorf("data message has %d fields, want >=4", len(arr))
	}
	var channel string
	if err := json.Unmarshal(arr[len(arr)-2], &channel); err != nil {
		return fmt.Errorf("channel name: %w", err)
	}
	var wirePair string
	if err := json.Unmarshal(arr[len(arr)-1], &wirePair); err != nil {
		return fmt.Errorf("pair name: %w", err)
	}
	pair := ToCanonical(wirePair)
	if !KnownPair(pair) {
		c.log.Warn().Str("pair", wirePair).Msg("unknown pair on live feed")
	}

	switch {
	case channel == "ticker":
		return c.dispatchTicker(arr[1], pair)
	case len(channel) > 5 && channel[:5] == "ohlc-":
		return c.dispatchOHLC(arr[1], pair, channel[5:])
	case len(channel) > 5 && channel[:5] == "book-":
		return c.dispatchBook(arr[1], pair)
	default:
		return fmt.Errorf("unrecognised channel %q", channel)
	}
}

type tickerPayload struct {
	C []string `json:"c"`
	B []string `json:"b"`
	A []string `json:"a"`
	V []string `json:"v"`
	H []string `json:"h"`
	L []string `json:"l"`
}

func (c *LiveClient) dispatchTicker(raw json.RawMessage, pair string) error {
	var p tickerPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("ticker payload: %w", err)
	}
	update := TickerUpdate{Pair: pair}
	var err error
	if update.Last, err = lastFloat(p.C); err != nil {
		return err
	}
	if update.Bid, err = lastFloat(p.B); err != nil {
		return err
	}
	if update.Ask, err = lastFloat(p.A); err != nil {
		return err
	}
	update.Volume24H, _ = lastFloat(p.V)
	update.High24H, _ = lastFloat(p.H)
	update.Low24H, _ = lastFloat(p.L)
	c.Tickers <- update
	return nil
}

func lastFloat(s []string) (float64, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("empty field array")
	}
	return strconv.ParseFloat(s[len(s)-1], 64)
}

func (c *LiveClient) dispatchOHLC(raw json.RawMessage, pair, interval string) error {
	var row []interface{}
	if err := json.Unmarshal(raw, &row); err != nil {
		return fmt.Errorf("ohlc payload: %w", err)
	}
	pt, err := parseCandleRow(row)
	if err != nil {
		return err
	}
	intervalMinutes, _ := strconv.Atoi(interval)
	c.OHLC <- OHLCUpdate{Pair: pair, Point: pt, Interval: intervalMinutes}
	return nil
}

type bookPayload struct {
	B [][]interface{} `json:"b"`
	A [][]interface{} `json:"a"`
}

func (c *LiveClient) dispatchBook(raw json.RawMessage, pair string) error {
	var p bookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("book payload: %w", err)
	}
	update := BookUpdate{Pair: pair}
	for _, row := range p.B {
		lvl, err := parseBookLevel(row)
		if err != nil {
			return err
		}
		update.Bids = append(update.Bids, lvl)
	}
	for _, row := range p.A {
		lvl, err := parseBookLevel(row)
		if err != nil {
			return err
		}
		update.Asks = append(update.Asks, lvl)
	}
	c.Book <- update
	return nil
}

func parseBookLevel(row []interface{}) (BookLevelUpdate, error) {
	if len(row) < 2 {
		return BookLevelUpdate{}, fmt.Errorf("book level has %d fields, want >=2", len(row))
	}
	price, err := toFloat(row[0])
	if err != nil {
		return BookLevelUpdate{}, fmt.Errorf("book level price: %w", err)
	}
	volume, err := toFloat(row[1])
	if err != nil {
		return BookLevelUpdate{}, fmt.Errorf("book level volume: %w", err)
	}
	return BookLevelUpdate{Price: price, Volume: volume}, nil
}

// TickerChan exposes the parsed ticker stream for consumers that only
// need the channel, not the concrete client.
func (c *LiveClient) TickerChan() <-chan TickerUpdate { return c.Tickers }

// OHLCChan exposes the parsed OHLC stream.
func (c *LiveClient) OHLCChan() <-chan OHLCUpdate { return c.OHLC }

// BookChan exposes the parsed book-update stream.
func (c *LiveClient) BookChan() <-chan BookUpdate { return c.Book }

// Close releases the underlying connection.
func (c *LiveClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
