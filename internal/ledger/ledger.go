package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swing-trader/internal/errors"
	"github.com/ducminhle1904/swing-trader/internal/logger"
)

// Ledger is an append-only trade log: one JSON record per line on disk,
// replayed into memory on open. No update or delete is exposed. Each append
// is a single atomic write, so ad hoc readers never observe a partial record.
type Ledger struct {
	path string
	log  zerolog.Logger

	mu     sync.RWMutex
	trades []Trade
	ids    map[string]struct{}
}

// Open loads (or creates) the ledger at path, rebuilding the in-memory view
// purely by replaying the log
func Open(path string, log zerolog.Logger) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	l := &Ledger{
		path: path,
		log:  logger.ForComponent(log, "ledger"),
		ids:  make(map[string]struct{}),
	}
	if err := l.replay(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) replay() error {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var t Trade
		if err := json.Unmarshal(raw, &t); err != nil {
			// a torn tail line from a crashed append is recoverable; anything
			// else in the middle of the file is an operator problem
			l.log.Warn().Int("line", line).Err(err).Msg("skipping unreadable ledger record")
			continue
		}
		if _, dup := l.ids[t.ID]; dup {
			l.log.Warn().Int("line", line).Str("trade_id", t.ID).Msg("skipping duplicate ledger record")
			continue
		}
		l.trades = append(l.trades, t)
		l.ids[t.ID] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read ledger file: %w", err)
	}
	return nil
}

// Append adds one immutable record. The trade is valid in memory as soon as
// Append accepts it; a failed durable write returns a recoverable persistence
// error and must never halt the trading loop.
func (l *Ledger) Append(t Trade) error {
	if err := t.Validate(); err != nil {
		return errors.NewValidationError("ledger", "append", err.Error())
	}

	l.mu.Lock()
	if _, dup := l.ids[t.ID]; dup {
		l.mu.Unlock()
		return errors.NewValidationError("ledger", "append", fmt.Sprintf("duplicate trade id %s", t.ID))
	}
	l.trades = append(l.trades, t)
	l.ids[t.ID] = struct{}{}
	l.mu.Unlock()

	if err := l.writeRecord(t); err != nil {
		l.log.Warn().Err(err).Str("trade_id", t.ID).Msg("ledger write failed; trade retained in memory")
		return errors.NewPersistenceError("ledger", "append", err)
	}

	logger.TradeClosedEvent(l.log, t.ID, t.Symbol, t.Classification, t.NetPnL, t.PnLPct, t.HoldingDays)
	return nil
}

// writeRecord appends one record as a single write followed by fsync
func (l *Ledger) writeRecord(t Trade) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode trade: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append trade: %w", err)
	}
	return f.Sync()
}

// Filter selects ledger records. Zero values match everything.
type Filter struct {
	Symbol         string
	Classification string
	From           *time.Time // inclusive, on exit time
	To             *time.Time // inclusive, on exit time
	MinNetPnL      *float64
	MaxNetPnL      *float64
}

func (f Filter) matches(t Trade) bool {
	if f.Symbol != "" && t.Symbol != f.Symbol {
		return false
	}
	if f.Classification != "" && t.Classification != f.Classification {
		return false
	}
	if f.From != nil && t.ExitTime.Before(*f.From) {
		return false
	}
	if f.To != nil && t.ExitTime.After(*f.To) {
		return false
	}
	if f.MinNetPnL != nil && t.NetPnL < *f.MinNetPnL {
		return false
	}
	if f.MaxNetPnL != nil && t.NetPnL > *f.MaxNetPnL {
		return false
	}
	return true
}

// Query returns matching records sorted by (exit date, symbol) so repeated
// queries over unchanged data always produce the same order. Results are
// copies; queries never mutate stored records.
func (l *Ledger) Query(f Filter) []Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Trade, 0, len(l.trades))
	for _, t := range l.trades {
		if f.matches(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di := sessionKey(out[i].ExitTime)
		dj := sessionKey(out[j].ExitTime)
		if di != dj {
			return di < dj
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

func sessionKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Len returns the number of records in the ledger
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trades)
}

// Stats summarizes the ledger by full scan
type Stats struct {
	Trades           int            `json:"trades"`
	Wins             int            `json:"wins"`
	WinRate          float64        `json:"win_rate"`
	AvgNetPnL        float64        `json:"avg_net_pnl"`
	AvgPnLPct        float64        `json:"avg_pnl_pct"`
	AvgHoldingDays   float64        `json:"avg_holding_days"`
	TotalNetPnL      float64        `json:"total_net_pnl"`
	TotalFees        float64        `json:"total_fees"`
	ByClassification map[string]int `json:"by_classification"`
}

// Summary computes aggregate statistics over all trade records by full scan
func (l *Ledger) Summary() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return statsOf(l.trades)
}
