package candleio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV_ParsesRFC3339Timestamps(t *testing.T) {
	path := writeCSV(t, "time,open,high,low,close,volume\n"+
		"2026-01-01T00:00:00Z,100,101,99,100.5,1000\n"+
		"2026-01-01T01:00:00Z,100.5,102,100,101,1200\n")

	series, err := LoadCSV(path, "XRPGBP", time.Hour)
	require.NoError(t, err)
	require.Len(t, series.Points, 2)
	assert.Equal(t, 100.0, series.Points[0].Open)
	assert.Equal(t, 101.0, series.Points[1].Close)
}

func TestLoadCSV_ParsesUnixSecondsTimestamps(t *testing.T) {
	path := writeCSV(t, "timestamp,open,high,low,close,volume\n"+
		"1735689600,100,101,99,100.5,1000\n")

	series, err := LoadCSV(path, "XRPGBP", time.Hour)
	require.NoError(t, err)
	require.Len(t, series.Points, 1)
}

func TestLoadCSV_SortsRowsAscendingByTimestamp(t *testing.T) {
	path := writeCSV(t, "time,open,high,low,close,volume\n"+
		"2026-01-01T02:00:00Z,102,103,101,102,1000\n"+
		"2026-01-01T00:00:00Z,100,101,99,100,1000\n")

	series, err := LoadCSV(path, "XRPGBP", time.Hour)
	require.NoError(t, err)
	require.Len(t, series.Points, 2)
	assert.True(t, series.Points[0].Timestamp.Before(series.Points[1].Timestamp))
}

func TestLoadCSV_SkipsRowsMissingRequiredFields(t *testing.T) {
	path := writeCSV(t, "time,open,high,low,close,volume\n"+
		",100,101,99,100,1000\n"+
		"2026-01-01T00:00:00Z,100,101,99,100,1000\n")

	series, err := LoadCSV(path, "XRPGBP", time.Hour)
	require.NoError(t, err)
	assert.Len(t, series.Points, 1)
}

func TestLoadCSV_MissingFileReturnsPersistenceError(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), "XRPGBP", time.Hour)
	assert.Error(t, err)
}
