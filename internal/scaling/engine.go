package scaling

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swing-trader/internal/errors"
	"github.com/ducminhle1904/swing-trader/internal/execution"
	"github.com/ducminhle1904/swing-trader/internal/logger"
	"github.com/ducminhle1904/swing-trader/internal/policy"
	"github.com/ducminhle1904/swing-trader/internal/portfolio"
)

// Engine decides whether an existing position may be enlarged. Evaluation
// runs in four ordered phases; any BLOCK short-circuits and is never waived.
// Soft strategy-qualification failures defer (SKIP) instead of blocking.
type Engine struct {
	state *portfolio.State
	entry policy.EntryTimingPolicy
	exec  execution.Model
	log   zerolog.Logger
}

// NewEngine builds a scaling engine for one resolved scope
func NewEngine(state *portfolio.State, registry *policy.Registry, scope policy.Scope, exec execution.Model, log zerolog.Logger) (*Engine, error) {
	bundle, err := registry.Resolve(scope)
	if err != nil {
		return nil, err
	}
	return &Engine{
		state: state,
		entry: bundle.Entry,
		exec:  exec,
		log:   logger.ForComponent(log, "scaling"),
	}, nil
}

// Decide evaluates one scaling attempt
func (e *Engine) Decide(ctx Context) (*Decision, error) {
	if ctx.ProposedPrice <= 0 || math.IsNaN(ctx.ProposedPrice) {
		return nil, errors.NewValidationError("scaling", "decide",
			fmt.Sprintf("invalid proposed price %v for %s", ctx.ProposedPrice, ctx.Symbol))
	}
	if ctx.ProposedQuantity <= 0 {
		return nil, errors.NewValidationError("scaling", "decide",
			fmt.Sprintf("invalid proposed quantity %v for %s", ctx.ProposedQuantity, ctx.Symbol))
	}

	pos, ok := e.state.Position(ctx.Symbol)
	if !ok {
		return e.finish(ctx, nil, OutcomeBlock, ReasonNoPosition,
			fmt.Sprintf("no open position for %s", ctx.Symbol)), nil
	}

	if d := e.hardSafety(ctx, pos); d != nil {
		return e.finish(ctx, pos, d.Outcome, d.ReasonCode, d.Reason), nil
	}
	if d := e.directionality(ctx, pos); d != nil {
		return e.finish(ctx, pos, d.Outcome, d.ReasonCode, d.Reason), nil
	}
	if d := e.qualification(ctx, pos); d != nil {
		return e.finish(ctx, pos, d.Outcome, d.ReasonCode, d.Reason), nil
	}
	if d := e.feasibility(ctx); d != nil {
		return e.finish(ctx, pos, d.Outcome, d.ReasonCode, d.Reason), nil
	}

	return e.finish(ctx, pos, OutcomeScale, ReasonApproved,
		fmt.Sprintf("add %.0f @ %.2f to %s (%d entries)", ctx.ProposedQuantity, ctx.ProposedPrice, ctx.Symbol, len(pos.Entries))), nil
}

// hardSafety is phase 1: limits that are never deferrable
func (e *Engine) hardSafety(ctx Context, pos *portfolio.Position) *Decision {
	if !e.entry.AllowScaling() {
		return block(ReasonScalingDisabled, "policy does not permit scaling")
	}
	if len(pos.Entries) >= e.entry.MaxEntries() {
		return block(ReasonMaxEntries,
			fmt.Sprintf("%d entries at policy maximum %d", len(pos.Entries), e.entry.MaxEntries()))
	}
	proposedNotional := pos.Notional(ctx.ProposedPrice) + ctx.ProposedPrice*ctx.ProposedQuantity
	if proposedNotional > e.entry.MaxPositionPct()*e.state.Equity() {
		return block(ReasonMaxPositionSize,
			fmt.Sprintf("aggregate notional %.0f exceeds %.1f%% of equity", proposedNotional, e.entry.MaxPositionPct()*100))
	}
	if ctx.HasPendingOrder {
		return block(ReasonPendingOrder, "unresolved pending order for symbol")
	}
	if ctx.BrokerEntryCount != len(pos.Entries) {
		return block(ReasonPositionMismatch,
			fmt.Sprintf("broker reports %d entries, ledger has %d", ctx.BrokerEntryCount, len(pos.Entries)))
	}
	if pos.RiskAmount+ctx.ProposedRisk > e.entry.MaxTotalRiskPct()*e.state.Equity() {
		return block(ReasonRiskBudget,
			fmt.Sprintf("total risk %.0f would exceed budget %.0f",
				pos.RiskAmount+ctx.ProposedRisk, e.entry.MaxTotalRiskPct()*e.state.Equity()))
	}
	if ctx.ProposedSide != pos.Side {
		return block(ReasonDirectionConflict,
			fmt.Sprintf("proposed %s against open %s position", ctx.ProposedSide, pos.Side))
	}
	return nil
}

// directionality is phase 2: pyramiding adds only at strictly better prices,
// averaging-down only at strictly worse prices
func (e *Engine) directionality(ctx Context, pos *portfolio.Position) *Decision {
	last := pos.LastEntry().Price
	better := ctx.ProposedPrice > last
	if pos.Side == portfolio.SideShort {
		better = ctx.ProposedPrice < last
	}
	switch e.entry.Style() {
	case policy.StylePyramid:
		if !better {
			return block(ReasonPriceDirection,
				fmt.Sprintf("pyramid requires price beyond last entry %.2f, got %.2f", last, ctx.ProposedPrice))
		}
	case policy.StyleAverageDown:
		if better || ctx.ProposedPrice == last {
			return block(ReasonPriceDirection,
				fmt.Sprintf("averaging down requires price worse than last entry %.2f, got %.2f", last, ctx.ProposedPrice))
		}
	}
	return nil
}

// qualification is phase 3: soft conditions that defer rather than refuse
func (e *Engine) qualification(ctx Context, pos *portfolio.Position) *Decision {
	last := pos.LastEntry()
	if elapsed := ctx.Now.Sub(last.Time); elapsed < e.entry.MinTimeBetweenEntries() {
		return skip(ReasonMinInterval,
			fmt.Sprintf("only %s since last entry, minimum %s", elapsed, e.entry.MinTimeBetweenEntries()))
	}
	if ctx.BarsSinceLastEntry < e.entry.MinBarsBetweenEntries() {
		return skip(ReasonMinBars,
			fmt.Sprintf("%d bars since last entry, minimum %d", ctx.BarsSinceLastEntry, e.entry.MinBarsBetweenEntries()))
	}
	if ctx.SignalQuality < e.entry.MinSignalQuality() {
		return skip(ReasonSignalQuality,
			fmt.Sprintf("signal quality %.2f below threshold %.2f", ctx.SignalQuality, e.entry.MinSignalQuality()))
	}
	if ctx.ProposedPrice > 0 && ctx.RecentRange/ctx.ProposedPrice > e.entry.MaxVolatilityPct() {
		return skip(ReasonVolatilityRegime,
			fmt.Sprintf("recent range %.1f%% of price exceeds %.1f%%",
				ctx.RecentRange/ctx.ProposedPrice*100, e.entry.MaxVolatilityPct()*100))
	}
	if d := e.priceStructure(ctx, pos); d != nil {
		return d
	}
	return nil
}

// priceStructure checks that the proposed price sits on the correct side of
// the position's average entry for the chosen scaling style
func (e *Engine) priceStructure(ctx Context, pos *portfolio.Position) *Decision {
	avg := pos.AvgPrice()
	above := ctx.ProposedPrice > avg
	if pos.Side == portfolio.SideShort {
		above = ctx.ProposedPrice < avg
	}
	switch e.entry.Style() {
	case policy.StylePyramid:
		if !above {
			return skip(ReasonPriceStructure,
				fmt.Sprintf("pyramid add %.2f not beyond average entry %.2f", ctx.ProposedPrice, avg))
		}
	case policy.StyleAverageDown:
		if above {
			return skip(ReasonPriceStructure,
				fmt.Sprintf("averaging-down add %.2f not below average entry %.2f", ctx.ProposedPrice, avg))
		}
	}
	return nil
}

// feasibility is phase 4: delegate to the execution model's liquidity rule
func (e *Engine) feasibility(ctx Context) *Decision {
	notional := ctx.ProposedPrice * ctx.ProposedQuantity
	if ok, reason := e.exec.CheckLiquidity(notional, ctx.AvgDailyDollarVolume); !ok {
		return block(ReasonLiquidity, reason)
	}
	return nil
}

func (e *Engine) finish(ctx Context, pos *portfolio.Position, outcome Outcome, code Reason, reason string) *Decision {
	m := Metrics{}
	if pos != nil {
		m.EntryCount = len(pos.Entries)
		m.RiskAmount = pos.RiskAmount
		if eq := e.state.Equity(); eq > 0 {
			m.PositionPct = pos.Notional(ctx.ProposedPrice) / eq
		}
	}
	d := &Decision{Outcome: outcome, ReasonCode: code, Reason: reason, Metrics: m}
	logger.ScalingDecisionEvent(e.log, ctx.Symbol, string(outcome), string(code), m.EntryCount, m.PositionPct, m.RiskAmount)
	return d
}

func block(code Reason, reason string) *Decision {
	return &Decision{Outcome: OutcomeBlock, ReasonCode: code, Reason: reason}
}

func skip(code Reason, reason string) *Decision {
	return &Decision{Outcome: OutcomeSkip, ReasonCode: code, Reason: reason}
}
