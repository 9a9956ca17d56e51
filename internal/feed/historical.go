// Package feed provides the historical-candle REST client, the live
// WebSocket client, the pair-name translation table, and the
// historical-data cache. Everything that crosses the wire is parsed
// here; downstream packages never see raw JSON.
package feed

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cryptomegabyte/gridsim/internal/errs"
	"github.com/cryptomegabyte/gridsim/internal/model"
	"github.com/cryptomegabyte/gridsim/internal/ratelimit"
)

// Timeframes exposed to callers, in minutes.
var Timeframes = []int{5, 15, 30, 60, 240, 1440}

// HistoricalClient fetches OHLC candles over REST, rate-limited and
// cached.
type HistoricalClient struct {
	http    *resty.Client
	limiter *ratelimit.Limiter
	cache   *Cache
}

// NewHistoricalClient builds a client against baseURL with a 10s request
// timeout, rate-limited by limiter (a 60/min limiter when limiter is nil).
func NewHistoricalClient(baseURL string, limiter *ratelimit.Limiter) *HistoricalClient {
	if limiter == nil {
		limiter = ratelimit.New(60)
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})
	return &HistoricalClient{http: httpClient, limiter: limiter, cache: NewCache(100, 5*time.Minute)}
}

// Fetch returns the candle series for pair at the given timeframe
// (minutes), sorted ascending by timestamp. Served from cache when
// fresh.
func (c *HistoricalClient) Fetch(ctx context.Context, pair string, timeframeMinutes int) (model.PriceSeries, error) {
	if cached, ok := c.cache.Get(pair, timeframeMinutes); ok {
		return cached, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return model.PriceSeries{}, errs.New(errs.RemoteFeed, true, err)
	}

	var raw map[string][][]interface{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("pair", ToWire(pair)).
		SetQueryParam("interval", strconv.Itoa(timeframeMinutes)).
		SetResult(&raw).
		Get("/OHLC")
	if err != nil {
		return model.PriceSeries{}, errs.New(errs.RemoteFeed, true, fmt.Errorf("fetch ohlc: %w", err))
	}
	if resp.StatusCode() >= 400 {
		return model.PriceSeries{}, errs.New(errs.RemoteFeed, resp.StatusCode() >= 500, fmt.Errorf("ohlc status %d", resp.StatusCode()))
	}

	rows, ok := raw[ToWire(pair)]
	if !ok {
		rows, ok = raw[pair]
	}
	if !ok {
		return model.PriceSeries{}, errs.New(errs.RemoteFeed, false, fmt.Errorf("no candles returned for %s", pair))
	}

	points := make([]model.PricePoint, 0, len(rows))
	for _, row := range rows {
		pt, err := parseCandleRow(row)
		if err != nil {
			return model.PriceSeries{}, errs.New(errs.RemoteFeed, false, err)
		}
		points = append(points, pt)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })

	series := model.PriceSeries{Pair: pair, Timeframe: time.Duration(timeframeMinutes) * time.Minute, Points: points}
	c.cache.Put(pair, timeframeMinutes, series)
	return series, nil
}

func parseCandleRow(row []interface{}) (model.PricePoint, error) {
	if len(row) < 7 {
		return model.PricePoint{}, fmt.Errorf("candle row has %d fields, want >=7", len(row))
	}
	ts, err := toFloat(row[0])
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("candle ts: %w", err)
	}
	open, err := toFloat(row[1])
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("candle open: %w", err)
	}
	high, err := toFloat(row[2])
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("candle high: %w", err)
	}
	low, err := toFloat(row[3])
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("candle low: %w", err)
	}
	closePrice, err := toFloat(row[4])
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("candle close: %w", err)
	}
	// row[5] is vwap, optional, ignored. Volume is the second-to-last field.
	volume, err := toFloat(row[len(row)-2])
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("candle volume: %w", err)
	}
	return model.PricePoint{
		Timestamp: time.Unix(int64(ts), 0).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

func toFloat(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("unexpected candle field type %T", v)
	}
}
