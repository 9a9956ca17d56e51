// Package journal writes append-only CSV records: one row per executed
// trade, and periodic portfolio snapshots. Both write the header once,
// on file creation.
package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cryptomegabyte/gridsim/internal/errs"
	"github.com/cryptomegabyte/gridsim/internal/model"
)

var tradeHeader = []string{"timestamp", "pair", "side", "quantity", "price", "fee", "slippage", "delay_ms", "order_id"}

var portfolioHeader = []string{"timestamp", "total_value", "cash_balance", "unrealized_pnl", "realized_pnl", "total_return_pct", "total_trades", "active_strategies"}

// TradeWriter appends rows to a per-run trade journal CSV under
// logs/trades/.
type TradeWriter struct {
	f   *os.File
	w   *csv.Writer
}

// NewTradeWriter opens (or creates) the CSV file at path, writing the
// header only if the file did not already exist.
func NewTradeWriter(path string) (*TradeWriter, error) {
	f, w, err := openAppend(path, tradeHeader)
	if err != nil {
		return nil, err
	}
	return &TradeWriter{f: f, w: w}, nil
}

// WriteTrade appends one executed trade row and flushes immediately so a
// crash loses at most the in-flight write.
func (tw *TradeWriter) WriteTrade(pair string, t model.Trade, delayMS float64, orderID string) error {
	row := []string{
		t.Timestamp.UTC().Format(time.RFC3339),
		pair,
		t.Side.String(),
		strconv.FormatFloat(t.Quantity, 'f', -1, 64),
		strconv.FormatFloat(t.ExecutionPrice, 'f', -1, 64),
		strconv.FormatFloat(t.Fees, 'f', -1, 64),
		strconv.FormatFloat(t.Slippage, 'f', -1, 64),
		strconv.FormatFloat(delayMS, 'f', -1, 64),
		orderID,
	}
	if err := tw.w.Write(row); err != nil {
		return errs.New(errs.Persistence, false, fmt.Errorf("write trade row: %w", err))
	}
	tw.w.Flush()
	return tw.w.Error()
}

// Close flushes and closes the underlying file.
func (tw *TradeWriter) Close() error {
	tw.w.Flush()
	return tw.f.Close()
}

// PortfolioSnapshot is one row of the portfolio snapshot CSV.
type PortfolioSnapshot struct {
	Timestamp        time.Time
	TotalValue       float64
	CashBalance      float64
	UnrealizedPnL    float64
	RealizedPnL      float64
	TotalReturnPct   float64
	TotalTrades      int
	ActiveStrategies int
}

// SnapshotWriter appends portfolio snapshot rows under logs/portfolio/.
type SnapshotWriter struct {
	f *os.File
	w *csv.Writer
}

// NewSnapshotWriter opens (or creates) the CSV file at path.
func NewSnapshotWriter(path string) (*SnapshotWriter, error) {
	f, w, err := openAppend(path, portfolioHeader)
	if err != nil {
		return nil, err
	}
	return &SnapshotWriter{f: f, w: w}, nil
}

// WriteSnapshot appends one portfolio snapshot row.
func (sw *SnapshotWriter) WriteSnapshot(s PortfolioSnapshot) error {
	row := []string{
		s.Timestamp.UTC().Format(time.RFC3339),
		strconv.FormatFloat(s.TotalValue, 'f', -1, 64),
		strconv.FormatFloat(s.CashBalance, 'f', -1, 64),
		strconv.FormatFloat(s.UnrealizedPnL, 'f', -1, 64),
		strconv.FormatFloat(s.RealizedPnL, 'f', -1, 64),
		strconv.FormatFloat(s.TotalReturnPct, 'f', -1, 64),
		strconv.Itoa(s.TotalTrades),
		strconv.Itoa(s.ActiveStrategies),
	}
	if err := sw.w.Write(row); err != nil {
		return errs.New(errs.Persistence, false, fmt.Errorf("write snapshot row: %w", err))
	}
	sw.w.Flush()
	return sw.w.Error()
}

// Close flushes and closes the underlying file.
func (sw *SnapshotWriter) Close() error {
	sw.w.Flush()
	return sw.f.Close()
}

func openAppend(path string, header []string) (*os.File, *csv.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, errs.New(errs.Persistence, false, fmt.Errorf("mkdir journal dir: %w", err))
	}
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, errs.New(errs.Persistence, false, fmt.Errorf("open journal file: %w", err))
	}
	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, nil, errs.New(errs.Persistence, false, fmt.Errorf("write header: %w", err))
		}
		w.Flush()
	}
	return f, w, nil
}
