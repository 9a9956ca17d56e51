// Package strategydb persists strategy records one JSON file per trading
// pair under a root directory. The live engine does not load records from
// this store.
package strategydb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cryptomegabyte/gridsim/internal/errs"
)

// Record is the persisted representation of one pair's generated
// strategy.
type Record struct {
	TradingPair      string    `json:"trading_pair"`
	GridLevels       int       `json:"grid_levels"`
	GridSpacing      float64   `json:"grid_spacing"`
	ExpectedReturn   float64   `json:"expected_return"`
	TotalTrades      int       `json:"total_trades"`
	WinRate          float64   `json:"win_rate"`
	SharpeRatio      float64   `json:"sharpe_ratio"`
	MaxDrawdown      float64   `json:"max_drawdown"`
	TotalFees        float64   `json:"total_fees"`
	MarkovConfidence float64   `json:"markov_confidence"`
	GeneratedAt      time.Time `json:"generated_at"`

	StopLoss        *float64 `json:"stop_loss,omitempty"`
	TakeProfit      *float64 `json:"take_profit,omitempty"`
	MaxPositionSize *float64 `json:"max_position_size,omitempty"`
	UpperPrice      *float64 `json:"upper_price,omitempty"`
	LowerPrice      *float64 `json:"lower_price,omitempty"`
	Capital         *float64 `json:"capital,omitempty"`
	IsActive        *bool    `json:"is_active,omitempty"`
}

// Store is a filesystem-per-pair strategy record store.
type Store struct {
	root string
}

// New builds a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.New(errs.Persistence, false, fmt.Errorf("create strategy store dir: %w", err))
	}
	return &Store{root: dir}, nil
}

func (s *Store) pathFor(pair string) string {
	return filepath.Join(s.root, pair+".json")
}

// Save writes rec to its pair's file, overwriting any prior record.
func (s *Store) Save(rec Record) error {
	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errs.New(errs.Internal, false, fmt.Errorf("marshal strategy record: %w", err))
	}
	tmp := s.pathFor(rec.TradingPair) + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return errs.New(errs.Persistence, false, fmt.Errorf("write strategy record: %w", err))
	}
	if err := os.Rename(tmp, s.pathFor(rec.TradingPair)); err != nil {
		return errs.New(errs.Persistence, false, fmt.Errorf("commit strategy record: %w", err))
	}
	return nil
}

// Load reads the record for pair. Returns a Persistence-kind error if no
// record has been saved yet.
func (s *Store) Load(pair string) (Record, error) {
	body, err := os.ReadFile(s.pathFor(pair))
	if err != nil {
		return Record{}, errs.New(errs.Persistence, false, fmt.Errorf("read strategy record for %s: %w", pair, err))
	}
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return Record{}, errs.New(errs.Persistence, false, fmt.Errorf("decode strategy record for %s: %w", pair, err))
	}
	return rec, nil
}

// ListPairs returns the pairs with a saved record, derived from the
// filenames present in the store directory.
func (s *Store) ListPairs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errs.New(errs.Persistence, false, fmt.Errorf("list strategy store: %w", err))
	}
	var pairs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) == ".json" {
			pairs = append(pairs, name[:len(name)-len(".json")])
		}
	}
	return pairs, nil
}
