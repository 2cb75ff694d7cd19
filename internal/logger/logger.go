package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger for the process. Output is one JSON record per
// line; monitoring consumers rely on the field names emitted by the event
// helpers below, so those names are part of the contract.
func New(level string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// ForComponent scopes a logger to one engine component
func ForComponent(log zerolog.Logger, component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// TradeDecisionEvent logs one entry-admission decision.
// Fields: event, symbol, approved, reason, size, risk_amount, confidence.
func TradeDecisionEvent(log zerolog.Logger, symbol string, approved bool, reason string, size int, riskAmount float64, confidence int) {
	evt := log.Info()
	if !approved {
		evt = log.Warn()
	}
	evt.Str("event", "trade_decision").
		Str("symbol", symbol).
		Bool("approved", approved).
		Str("reason", reason).
		Int("size", size).
		Float64("risk_amount", riskAmount).
		Int("confidence", confidence).
		Msg("entry evaluated")
}

// ScalingDecisionEvent logs one scaling decision.
// Fields: event, symbol, outcome, reason, entry_count, position_pct, risk_amount.
func ScalingDecisionEvent(log zerolog.Logger, symbol, outcome, reason string, entryCount int, positionPct, riskAmount float64) {
	evt := log.Info()
	if outcome == "BLOCK" {
		evt = log.Warn()
	}
	evt.Str("event", "scaling_decision").
		Str("symbol", symbol).
		Str("outcome", outcome).
		Str("reason", reason).
		Int("entry_count", entryCount).
		Float64("position_pct", positionPct).
		Float64("risk_amount", riskAmount).
		Msg("scaling evaluated")
}

// ExitSignalEvent logs one exit signal.
// Fields: event, symbol, classification, reason, urgency, holding_days, entry_date.
func ExitSignalEvent(log zerolog.Logger, symbol, classification, reason, urgency string, holdingDays int, entryDate time.Time) {
	evt := log.Info()
	if classification == "EMERGENCY_EXIT" {
		evt = log.Warn()
	}
	evt.Str("event", "exit_signal").
		Str("symbol", symbol).
		Str("classification", classification).
		Str("reason", reason).
		Str("urgency", urgency).
		Int("holding_days", holdingDays).
		Time("entry_date", entryDate).
		Msg("exit signal")
}

// TradeClosedEvent logs one finalized ledger record.
// Fields: event, trade_id, symbol, classification, net_pnl, pnl_pct, holding_days.
func TradeClosedEvent(log zerolog.Logger, tradeID, symbol, classification string, netPnL, pnlPct float64, holdingDays int) {
	log.Info().
		Str("event", "trade_closed").
		Str("trade_id", tradeID).
		Str("symbol", symbol).
		Str("classification", classification).
		Float64("net_pnl", netPnL).
		Float64("pnl_pct", pnlPct).
		Int("holding_days", holdingDays).
		Msg("trade recorded")
}
