package exit

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swing-trader/internal/errors"
	"github.com/ducminhle1904/swing-trader/internal/indicators"
	"github.com/ducminhle1904/swing-trader/internal/logger"
	"github.com/ducminhle1904/swing-trader/internal/policy"
	"github.com/ducminhle1904/swing-trader/internal/portfolio"
	"github.com/ducminhle1904/swing-trader/pkg/types"
)

// Evaluator decides whether an open position should close, through two
// independent paths: end-of-day swing rules and intraday emergency rules.
// The two paths are never mixed in one call.
type Evaluator struct {
	state  *portfolio.State
	hold   policy.HoldDurationPolicy
	timing policy.ExitTimingPolicy
	log    zerolog.Logger

	// session date of the last EOD signal per symbol; one signal per day
	signaledEOD map[string]time.Time
}

// NewEvaluator builds an exit evaluator for one resolved scope
func NewEvaluator(state *portfolio.State, registry *policy.Registry, scope policy.Scope, log zerolog.Logger) (*Evaluator, error) {
	bundle, err := registry.Resolve(scope)
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		state:       state,
		hold:        bundle.Hold,
		timing:      bundle.Exit,
		log:         logger.ForComponent(log, "exit"),
		signaledEOD: make(map[string]time.Time),
	}, nil
}

// EvaluateEndOfDay runs the swing exit rules against completed session data.
// Rules check in fixed precedence; the first match wins. At most one signal
// per symbol per session. A nil signal means no rule fired.
func (e *Evaluator) EvaluateEndOfDay(symbol string, history []types.OHLCV, now time.Time) (*Signal, error) {
	pos, ok := e.state.Position(symbol)
	if !ok {
		return nil, nil
	}
	if last, signaled := e.signaledEOD[symbol]; signaled && types.SameSession(last, now) {
		return nil, nil
	}
	if len(history) == 0 {
		return nil, errors.NewValidationError("exit", "eod", fmt.Sprintf("empty price history for %s", symbol))
	}
	close := history[len(history)-1].Close
	if close <= 0 || math.IsNaN(close) {
		return nil, errors.NewValidationError("exit", "eod", fmt.Sprintf("invalid close %v for %s", close, symbol))
	}

	holdingDays := pos.HoldingDays(now)
	var reason string
	switch {
	case holdingDays >= e.hold.MaxHoldingDays():
		reason = ReasonMaxHoldingPeriod
	case e.positionReturn(pos, close) >= e.timing.ProfitTarget():
		reason = ReasonProfitTarget
	case e.belowTrendReference(pos, history, close):
		reason = ReasonTrendBreak
	default:
		return nil, nil
	}

	e.signaledEOD[symbol] = now
	return e.signal(pos, ClassificationSwing, reason, UrgencyEOD, now, holdingDays), nil
}

// EvaluateEmergency runs the capital-preservation rules intraday. On the
// entry day both thresholds are widened by the policy's same-day protection
// multiple so an ordinary adverse move never causes a same-day round trip.
func (e *Evaluator) EvaluateEmergency(symbol string, currentPrice, recentRange float64, now time.Time) (*Signal, error) {
	pos, ok := e.state.Position(symbol)
	if !ok {
		return nil, nil
	}
	if currentPrice <= 0 || math.IsNaN(currentPrice) {
		return nil, errors.NewValidationError("exit", "emergency", fmt.Sprintf("invalid price %v for %s", currentPrice, symbol))
	}

	holdingDays := pos.HoldingDays(now)
	protection := 1.0
	if holdingDays == 0 {
		protection = e.timing.SameDayProtectionMultiple()
	}

	loss := -pos.UnrealizedPnL(currentPrice)
	lossThreshold := e.timing.CatastrophicLossPct() * e.state.Equity() * protection

	adverseMove := pos.AvgPrice() - currentPrice
	if pos.Side == portfolio.SideShort {
		adverseMove = currentPrice - pos.AvgPrice()
	}
	moveThreshold := e.timing.VolatilityStopMultiple() * recentRange * protection

	var reason string
	switch {
	case loss >= lossThreshold:
		reason = ReasonCatastrophicLoss
	case recentRange > 0 && adverseMove >= moveThreshold:
		reason = ReasonVolatilityStop
	default:
		return nil, nil
	}

	return e.signal(pos, ClassificationEmergency, reason, UrgencyImmediate, now, holdingDays), nil
}

// positionReturn is the signed return of the position at the given price
func (e *Evaluator) positionReturn(pos *portfolio.Position, price float64) float64 {
	avg := pos.AvgPrice()
	if avg <= 0 {
		return 0
	}
	r := (price - avg) / avg
	if pos.Side == portfolio.SideShort {
		return -r
	}
	return r
}

// belowTrendReference checks the close against the long-horizon moving
// average. With insufficient history the rule abstains rather than firing.
func (e *Evaluator) belowTrendReference(pos *portfolio.Position, history []types.OHLCV, close float64) bool {
	ma, err := indicators.NewSMA(e.timing.TrendReferencePeriod()).Calculate(history)
	if err != nil {
		return false
	}
	if pos.Side == portfolio.SideShort {
		return close > ma
	}
	return close < ma
}

func (e *Evaluator) signal(pos *portfolio.Position, class Classification, reason string, urgency Urgency, now time.Time, holdingDays int) *Signal {
	s := &Signal{
		Symbol:         pos.Symbol,
		Classification: class,
		Reason:         reason,
		Timestamp:      now,
		EntryDate:      pos.EntryDate,
		HoldingDays:    holdingDays,
		Confidence:     pos.Confidence,
		Urgency:        urgency,
	}
	logger.ExitSignalEvent(e.log, s.Symbol, string(class), reason, string(urgency), holdingDays, pos.EntryDate)
	return s
}
