// Package candleio loads historical candles from local CSV files for
// offline backtesting and optimisation runs. Recognised headers are
// time|timestamp, open, high, low, close, volume, case-insensitive;
// unknown columns are ignored. Timestamps may be RFC3339 or UNIX seconds.
package candleio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cryptomegabyte/gridsim/internal/errs"
	"github.com/cryptomegabyte/gridsim/internal/model"
)

// LoadCSV reads path into a PriceSeries for pair at the given timeframe,
// sorted ascending by timestamp.
func LoadCSV(path, pair string, timeframe time.Duration) (model.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.PriceSeries{}, errs.New(errs.Persistence, false, fmt.Errorf("open candle csv: %w", err))
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var points []model.PricePoint
	var headers []string
	rowIdx := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.PriceSeries{}, errs.New(errs.Persistence, false, fmt.Errorf("read candle csv: %w", err))
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}
		rowIdx++

		row := make(map[string]string, len(headers))
		for j, h := range headers {
			if j < len(rec) {
				row[strings.ToLower(strings.TrimSpace(h))] = strings.TrimSpace(rec[j])
			}
		}

		ts := first(row, "time", "timestamp")
		op := first(row, "open")
		cp := first(row, "close")
		if ts == "" || op == "" || cp == "" {
			continue
		}
		stamp, err := parseTimeFlexible(ts)
		if err != nil {
			continue
		}

		o, _ := strconv.ParseFloat(op, 64)
		h, _ := strconv.ParseFloat(first(row, "high"), 64)
		l, _ := strconv.ParseFloat(first(row, "low"), 64)
		c, _ := strconv.ParseFloat(cp, 64)
		v, _ := strconv.ParseFloat(first(row, "volume", "vol"), 64)
		if h == 0 {
			h = o
			if c > h {
				h = c
			}
		}
		if l == 0 {
			l = o
			if c < l {
				l = c
			}
		}

		points = append(points, model.PricePoint{
			Timestamp: stamp, Open: o, High: h, Low: l, Close: c, Volume: v,
		})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	return model.PriceSeries{Pair: pair, Timeframe: timeframe, Points: points}, nil
}

func first(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

func parseTimeFlexible(s string) (time.Time, error) {
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}
