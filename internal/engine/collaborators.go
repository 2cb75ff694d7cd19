package engine

import (
	"time"

	"github.com/ducminhle1904/swing-trader/internal/exit"
	"github.com/ducminhle1904/swing-trader/internal/portfolio"
	"github.com/ducminhle1904/swing-trader/internal/risk"
	"github.com/ducminhle1904/swing-trader/pkg/types"
)

// PriceProvider supplies session history and liquidity statistics. Implemented
// outside the core; calls may block on network I/O.
type PriceProvider interface {
	// History returns ordered completed session bars, oldest first
	History(symbol string) ([]types.OHLCV, error)
	// Quote returns the latest traded price
	Quote(symbol string) (float64, error)
	// RecentRange returns a recent-range volatility measure in price units
	RecentRange(symbol string) (float64, error)
	// AvgDailyDollarVolume returns the liquidity denominator for ADV caps
	AvgDailyDollarVolume(symbol string) (float64, error)
}

// Broker exposes the order state the engine reconciles against. The engine
// never submits orders itself; it only reads.
type Broker interface {
	HasPendingOrder(symbol string) (bool, error)
	EntryCount(symbol string) (int, error)
}

// ExitHandler receives exit signals for submission by the external executor
type ExitHandler interface {
	SubmitExit(sig *exit.Signal) error
}

// EntrySignal is an externally-originated request to open a position. The
// engine never generates entries itself.
type EntrySignal struct {
	Symbol     string
	Side       portfolio.Side
	Price      float64 // reference price at signal time
	Confidence int
	Timestamp  time.Time
}

// EntrySource supplies pending entry signals, oldest first. Released signals
// are consumed whether or not admission approves them.
type EntrySource interface {
	PendingEntries(now time.Time) ([]EntrySignal, error)
}

// EntryHandler receives admitted entry proposals for submission
type EntryHandler interface {
	SubmitEntry(sig EntrySignal, decision *risk.TradeDecision) error
}
