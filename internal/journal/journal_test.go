package journal

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cryptomegabyte/gridsim/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTradeWriter_WritesHeaderOnceOnCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.csv")

	tw, err := NewTradeWriter(path)
	require.NoError(t, err)
	require.NoError(t, tw.WriteTrade("XRPGBP", model.Trade{
		Side:           model.Buy,
		ExecutionPrice: 1.5,
		Quantity:       10,
		Timestamp:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Fees:           0.1,
		Slippage:       0.01,
	}, 42, "order-1"))
	require.NoError(t, tw.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "timestamp,pair,side,quantity,price,fee,slippage,delay_ms,order_id", lines[0])
	assert.Contains(t, lines[1], "XRPGBP,buy,10,1.5")
}

func TestNewTradeWriter_ReopenDoesNotDuplicateHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.csv")

	tw1, err := NewTradeWriter(path)
	require.NoError(t, err)
	require.NoError(t, tw1.Close())

	tw2, err := NewTradeWriter(path)
	require.NoError(t, err)
	require.NoError(t, tw2.WriteTrade("XRPGBP", model.Trade{Side: model.Sell, Timestamp: time.Now()}, 1, "order-2"))
	require.NoError(t, tw2.Close())

	lines := readLines(t, path)
	headerCount := 0
	for _, l := range lines {
		if l == "timestamp,pair,side,quantity,price,fee,slippage,delay_ms,order_id" {
			headerCount++
		}
	}
	assert.Equal(t, 1, headerCount)
}

func TestNewSnapshotWriter_WritesExpectedColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portfolio.csv")

	sw, err := NewSnapshotWriter(path)
	require.NoError(t, err)
	require.NoError(t, sw.WriteSnapshot(PortfolioSnapshot{
		Timestamp:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		TotalValue:       1000,
		CashBalance:      500,
		TotalTrades:      3,
		ActiveStrategies: 2,
	}))
	require.NoError(t, sw.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "timestamp,total_value,cash_balance,unrealized_pnl,realized_pnl,total_return_pct,total_trades,active_strategies", lines[0])
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}
