package portfolio

import (
	"time"

	"github.com/ducminhle1904/swing-trader/pkg/types"
)

// Side is the direction of a position
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ScaleEntry is one fill that enlarged an existing position
type ScaleEntry struct {
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	Time     time.Time `json:"time"`
}

// Position is one open position. Entry fields are immutable after creation;
// scaling only appends to Entries and grows Quantity and RiskAmount.
type Position struct {
	ID         string       `json:"id"`
	Symbol     string       `json:"symbol"`
	Side       Side         `json:"side"`
	EntryDate  time.Time    `json:"entry_date"`
	EntryPrice float64      `json:"entry_price"`
	Quantity   float64      `json:"quantity"`
	Confidence int          `json:"confidence"`
	RiskAmount float64      `json:"risk_amount"`
	Entries    []ScaleEntry `json:"entries"`
}

// AvgPrice returns the volume-weighted average entry price across all entries
func (p *Position) AvgPrice() float64 {
	var qty, cost float64
	for _, e := range p.Entries {
		qty += e.Quantity
		cost += e.Price * e.Quantity
	}
	if qty == 0 {
		return 0
	}
	return cost / qty
}

// LastEntry returns the most recent entry fill
func (p *Position) LastEntry() ScaleEntry {
	return p.Entries[len(p.Entries)-1]
}

// HoldingDays returns calendar days held as of now. Same-day is 0.
func (p *Position) HoldingDays(now time.Time) int {
	return types.SessionsBetween(p.EntryDate, now)
}

// UnrealizedPnL returns the open P&L at the given price
func (p *Position) UnrealizedPnL(currentPrice float64) float64 {
	if p.Side == SideShort {
		return (p.AvgPrice() - currentPrice) * p.Quantity
	}
	return (currentPrice - p.AvgPrice()) * p.Quantity
}

// Notional returns the position's market value at the given price
func (p *Position) Notional(currentPrice float64) float64 {
	return currentPrice * p.Quantity
}
