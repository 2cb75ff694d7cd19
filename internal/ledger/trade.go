package ledger

import (
	"fmt"
	"math"
	"time"
)

// RecordKind distinguishes original trade records from later corrections.
// History is never edited; a correction is a new reversal record.
type RecordKind string

const (
	KindTrade    RecordKind = "trade"
	KindReversal RecordKind = "reversal"
)

// Trade is one finalized (entry + exit) trade. Records are immutable after
// creation and created exactly once per closed position.
type Trade struct {
	ID   string     `json:"id"`
	Kind RecordKind `json:"kind"`

	Symbol string `json:"symbol"`
	Side   string `json:"side"`

	EntryTime  time.Time `json:"entry_time"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`

	ExitTime  time.Time `json:"exit_time"`
	ExitPrice float64   `json:"exit_price"`

	Classification string `json:"classification"` // SWING_EXIT | EMERGENCY_EXIT
	Reason         string `json:"reason"`
	HoldingDays    int    `json:"holding_days"`

	GrossPnL    float64 `json:"gross_pnl"`
	GrossPnLPct float64 `json:"gross_pnl_pct"`
	NetPnL      float64 `json:"net_pnl"`
	PnLPct      float64 `json:"pnl_pct"` // net, on entry cost
	Fees        float64 `json:"fees"`

	// Risk context captured at entry
	Confidence int     `json:"confidence"`
	RiskAmount float64 `json:"risk_amount"`
}

// Validate checks the invariants every appended record must satisfy
func (t *Trade) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("trade has no id")
	}
	if t.Symbol == "" {
		return fmt.Errorf("trade %s has no symbol", t.ID)
	}
	if t.Kind != KindTrade && t.Kind != KindReversal {
		return fmt.Errorf("trade %s has invalid kind %q", t.ID, t.Kind)
	}
	if t.Kind == KindTrade {
		if t.EntryPrice <= 0 || math.IsNaN(t.EntryPrice) {
			return fmt.Errorf("trade %s has invalid entry price %v", t.ID, t.EntryPrice)
		}
		if t.Quantity <= 0 {
			return fmt.Errorf("trade %s has invalid quantity %v", t.ID, t.Quantity)
		}
		if t.ExitTime.Before(t.EntryTime) {
			return fmt.Errorf("trade %s exits before it enters", t.ID)
		}
	}
	return nil
}
