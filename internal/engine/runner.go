package engine

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swing-trader/internal/errors"
	"github.com/ducminhle1904/swing-trader/internal/execution"
	"github.com/ducminhle1904/swing-trader/internal/exit"
	"github.com/ducminhle1904/swing-trader/internal/ledger"
	"github.com/ducminhle1904/swing-trader/internal/logger"
	"github.com/ducminhle1904/swing-trader/internal/monitoring"
	"github.com/ducminhle1904/swing-trader/internal/policy"
	"github.com/ducminhle1904/swing-trader/internal/portfolio"
	"github.com/ducminhle1904/swing-trader/internal/risk"
	"github.com/ducminhle1904/swing-trader/internal/scaling"
	"github.com/ducminhle1904/swing-trader/pkg/types"
)

// Runner drives one isolated scope: its own portfolio state, decision
// components and ledger file. Scopes share nothing. Evaluation is
// single-threaded and tick-driven; a tick is never re-entered.
type Runner struct {
	scope  policy.Scope
	bundle *policy.Bundle

	state   *portfolio.State
	riskMgr *risk.Manager
	scaler  *scaling.Engine
	exits   *exit.Evaluator
	exec    execution.Model
	ledger  *ledger.Ledger

	prices       PriceProvider
	broker       Broker
	exitHandler  ExitHandler
	entrySource  EntrySource
	entryHandler EntryHandler
	health       *monitoring.HealthChecker
	log          zerolog.Logger

	lastEOD time.Time // session date of the last end-of-day run
}

// NewRunner constructs all decision components for one scope. An unregistered
// scope fails here, before the runner can evaluate anything.
func NewRunner(
	scope policy.Scope,
	registry *policy.Registry,
	riskCfg risk.Config,
	initialEquity float64,
	execModel execution.Model,
	ledgerPath string,
	prices PriceProvider,
	broker Broker,
	exitHandler ExitHandler,
	health *monitoring.HealthChecker,
	log zerolog.Logger,
	now time.Time,
) (*Runner, error) {
	bundle, err := registry.Resolve(scope)
	if err != nil {
		return nil, err
	}
	state, err := portfolio.NewState(initialEquity, now)
	if err != nil {
		return nil, errors.NewConfigError("engine", "new", err.Error())
	}
	riskMgr, err := risk.NewManager(riskCfg, state, registry, scope, log)
	if err != nil {
		return nil, err
	}
	scaler, err := scaling.NewEngine(state, registry, scope, execModel, log)
	if err != nil {
		return nil, err
	}
	exits, err := exit.NewEvaluator(state, registry, scope, log)
	if err != nil {
		return nil, err
	}
	book, err := ledger.Open(ledgerPath, log)
	if err != nil {
		return nil, err
	}
	return &Runner{
		scope:       scope,
		bundle:      bundle,
		state:       state,
		riskMgr:     riskMgr,
		scaler:      scaler,
		exits:       exits,
		exec:        execModel,
		ledger:      book,
		prices:      prices,
		broker:      broker,
		exitHandler: exitHandler,
		health:      health,
		log:         logger.ForComponent(log, "engine").With().Str("scope", scope.String()).Logger(),
	}, nil
}

// SetEntrySource connects the external entry signal feed and its submission
// path. Must happen before the runner starts ticking; a runner without a
// source receives no entries.
func (r *Runner) SetEntrySource(src EntrySource, handler EntryHandler) {
	r.entrySource = src
	r.entryHandler = handler
}

// State exposes the scope's portfolio state
func (r *Runner) State() *portfolio.State { return r.state }

// Ledger exposes the scope's trade ledger
func (r *Runner) Ledger() *ledger.Ledger { return r.ledger }

// EvaluateEntry admits or rejects a proposed entry from the external signal
// source. Maintenance windows and closed sessions suspend admission; the
// rejection is an ordinary decision, not an error.
func (r *Runner) EvaluateEntry(symbol string, entryPrice float64, confidence int, now time.Time, currentPrices map[string]float64) (*risk.TradeDecision, error) {
	if !r.bundle.Hours.IsOpen(now) {
		return &risk.TradeDecision{ReasonCode: risk.ReasonMarketClosed, Reason: "market closed"}, nil
	}
	if r.bundle.Hours.IsMaintenance(now) {
		return &risk.TradeDecision{ReasonCode: risk.ReasonMaintenanceHalt, Reason: "maintenance window"}, nil
	}
	decision, err := r.riskMgr.Evaluate(symbol, entryPrice, confidence, currentPrices)
	if err != nil {
		monitoring.RecordError(string(errors.CategoryOf(err)))
		return nil, err
	}
	monitoring.RecordTradeDecision(symbol, decision.Approved, string(decision.ReasonCode))
	return decision, nil
}

// ScalingContext assembles the market and order-state inputs for a scaling
// attempt, reconciling against the broker's view of the symbol. Missing
// volatility or liquidity figures degrade to zero and let the scaling rules
// refuse conservatively.
func (r *Runner) ScalingContext(symbol string, price, quantity float64, side portfolio.Side, riskAmount, signalQuality float64, barsSinceLastEntry int, now time.Time) (scaling.Context, error) {
	pending, err := r.broker.HasPendingOrder(symbol)
	if err != nil {
		return scaling.Context{}, errors.NewDataError("engine", "scaling_context", err)
	}
	entryCount, err := r.broker.EntryCount(symbol)
	if err != nil {
		return scaling.Context{}, errors.NewDataError("engine", "scaling_context", err)
	}
	recentRange, err := r.prices.RecentRange(symbol)
	if err != nil {
		recentRange = 0
	}
	adv, err := r.prices.AvgDailyDollarVolume(symbol)
	if err != nil {
		adv = 0
	}
	return scaling.Context{
		Symbol:               symbol,
		ProposedPrice:        price,
		ProposedQuantity:     quantity,
		ProposedSide:         side,
		ProposedRisk:         riskAmount,
		Now:                  now,
		SignalQuality:        signalQuality,
		RecentRange:          recentRange,
		BarsSinceLastEntry:   barsSinceLastEntry,
		HasPendingOrder:      pending,
		BrokerEntryCount:     entryCount,
		AvgDailyDollarVolume: adv,
	}, nil
}

// EvaluateScaling decides whether an open position may be enlarged.
// Maintenance windows defer scaling rather than blocking it.
func (r *Runner) EvaluateScaling(ctx scaling.Context) (*scaling.Decision, error) {
	if r.bundle.Hours.IsMaintenance(ctx.Now) {
		d := &scaling.Decision{
			Outcome:    scaling.OutcomeSkip,
			ReasonCode: scaling.ReasonMinInterval,
			Reason:     "maintenance window",
		}
		monitoring.RecordScalingDecision(ctx.Symbol, string(d.Outcome), string(d.ReasonCode))
		return d, nil
	}
	decision, err := r.scaler.Decide(ctx)
	if err != nil {
		monitoring.RecordError(string(errors.CategoryOf(err)))
		return nil, err
	}
	monitoring.RecordScalingDecision(ctx.Symbol, string(decision.Outcome), string(decision.ReasonCode))
	return decision, nil
}

// HandleEntryFill opens a position from a confirmed entry fill
func (r *Runner) HandleEntryFill(fill types.Fill, side portfolio.Side, confidence int, riskAmount float64) error {
	_, err := r.state.Open(fill.Symbol, side, fill.Price, fill.Quantity, confidence, riskAmount, fill.Time)
	if err != nil {
		return errors.New(errors.ErrorCategoryPosition, "engine", "entry_fill", err.Error())
	}
	r.log.Info().Str("event", "position_opened").Str("symbol", fill.Symbol).
		Float64("price", fill.Price).Float64("quantity", fill.Quantity).Msg("position opened")
	return nil
}

// HandleScaleFill appends a confirmed scaling fill to an open position
func (r *Runner) HandleScaleFill(fill types.Fill, addedRisk float64) error {
	if err := r.state.AddScale(fill.Symbol, fill.Price, fill.Quantity, addedRisk, fill.Time); err != nil {
		return errors.New(errors.ErrorCategoryPosition, "engine", "scale_fill", err.Error())
	}
	r.log.Info().Str("event", "position_scaled").Str("symbol", fill.Symbol).
		Float64("price", fill.Price).Float64("quantity", fill.Quantity).Msg("position scaled")
	return nil
}

// HandleExitFill closes a position from a confirmed exit fill and records the
// finalized trade. A failed ledger write is recoverable: the trade stays
// valid in memory and trading continues.
func (r *Runner) HandleExitFill(sig *exit.Signal, fill types.Fill) error {
	pos, ok := r.state.Position(fill.Symbol)
	if !ok {
		return errors.New(errors.ErrorCategoryPosition, "engine", "exit_fill", "no open position for "+fill.Symbol)
	}
	fees := r.exec.Commission(pos.Notional(pos.AvgPrice())) + r.exec.Commission(fill.Price*pos.Quantity)
	avg := pos.AvgPrice()
	net, closed, err := r.state.Close(fill.Symbol, fill.Price, fees, fill.Time)
	if err != nil {
		return errors.New(errors.ErrorCategoryPosition, "engine", "exit_fill", err.Error())
	}

	trade := ledger.Trade{
		ID:             closed.ID,
		Kind:           ledger.KindTrade,
		Symbol:         closed.Symbol,
		Side:           string(closed.Side),
		EntryTime:      closed.EntryDate,
		EntryPrice:     closed.EntryPrice,
		Quantity:       closed.Quantity,
		ExitTime:       fill.Time,
		ExitPrice:      fill.Price,
		Classification: string(sig.Classification),
		Reason:         sig.Reason,
		HoldingDays:    types.SessionsBetween(closed.EntryDate, fill.Time),
		GrossPnL:       net + fees,
		NetPnL:         net,
		Fees:           fees,
		Confidence:     closed.Confidence,
		RiskAmount:     closed.RiskAmount,
	}
	if avg > 0 && closed.Quantity > 0 {
		cost := avg * closed.Quantity
		trade.PnLPct = net / cost
		trade.GrossPnLPct = (net + fees) / cost
	}

	appendErr := r.ledger.Append(trade)
	monitoring.RecordLedgerAppend(appendErr == nil, trade.HoldingDays)
	if appendErr != nil {
		if errors.IsCategory(appendErr, errors.ErrorCategoryPersistence) {
			r.health.RecordError(appendErr.Error())
			monitoring.RecordError(string(errors.ErrorCategoryPersistence))
			return nil
		}
		return appendErr
	}
	return nil
}

// RunEndOfDay evaluates swing exit rules for every open position using
// completed session data. Runs once per session; bad data for one symbol
// skips that symbol and never stops the loop.
func (r *Runner) RunEndOfDay(now time.Time) {
	if !r.lastEOD.IsZero() && types.SameSession(r.lastEOD, now) {
		return
	}
	r.lastEOD = now

	for _, pos := range r.state.Positions() {
		history, err := r.prices.History(pos.Symbol)
		if err != nil {
			r.log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("skipping symbol: price history unavailable")
			monitoring.RecordError(string(errors.ErrorCategoryData))
			continue
		}
		sig, err := r.exits.EvaluateEndOfDay(pos.Symbol, history, now)
		if err != nil {
			r.log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("skipping symbol: end-of-day evaluation failed")
			monitoring.RecordError(string(errors.CategoryOf(err)))
			continue
		}
		if sig != nil {
			r.submit(sig)
		}
	}
}

// RunEmergency evaluates capital-preservation rules for every open position.
// It runs on every tick while a position is open, maintenance or not.
func (r *Runner) RunEmergency(now time.Time) {
	for _, pos := range r.state.Positions() {
		price, err := r.prices.Quote(pos.Symbol)
		if err != nil {
			r.log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("skipping symbol: quote unavailable")
			monitoring.RecordError(string(errors.ErrorCategoryData))
			continue
		}
		recentRange, err := r.prices.RecentRange(pos.Symbol)
		if err != nil {
			recentRange = 0 // loss rule still applies without a range measure
		}
		sig, err := r.exits.EvaluateEmergency(pos.Symbol, price, recentRange, now)
		if err != nil {
			r.log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("skipping symbol: emergency evaluation failed")
			monitoring.RecordError(string(errors.CategoryOf(err)))
			continue
		}
		if sig != nil {
			r.submit(sig)
		}
	}
}

// pollEntries drains due entry signals through admission and hands approved
// proposals to the entry handler. Closed sessions and maintenance windows
// leave the source untouched so signals are not consumed while halted.
func (r *Runner) pollEntries(now time.Time) {
	if r.entrySource == nil || r.entryHandler == nil {
		return
	}
	if r.bundle.Hours.IsMaintenance(now) {
		return
	}
	sigs, err := r.entrySource.PendingEntries(now)
	if err != nil {
		r.log.Warn().Err(err).Msg("entry source unavailable")
		monitoring.RecordError(string(errors.ErrorCategoryData))
		return
	}
	for _, sig := range sigs {
		decision, err := r.EvaluateEntry(sig.Symbol, sig.Price, sig.Confidence, now, r.markPrices())
		if err != nil {
			r.log.Warn().Err(err).Str("symbol", sig.Symbol).Msg("entry evaluation failed")
			continue
		}
		if !decision.Approved {
			continue
		}
		if err := r.entryHandler.SubmitEntry(sig, decision); err != nil {
			r.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("entry submission failed")
			monitoring.RecordError(string(errors.ErrorCategoryData))
		}
	}
}

// markPrices quotes every open position for the exposure checks. A symbol
// without a quote falls back to its average entry price.
func (r *Runner) markPrices() map[string]float64 {
	marks := make(map[string]float64, len(r.state.Positions()))
	for _, pos := range r.state.Positions() {
		price, err := r.prices.Quote(pos.Symbol)
		if err != nil {
			price = pos.AvgPrice()
		}
		marks[pos.Symbol] = price
	}
	return marks
}

func (r *Runner) submit(sig *exit.Signal) {
	monitoring.RecordExitSignal(sig.Symbol, string(sig.Classification), sig.Reason)
	if r.exitHandler == nil {
		return
	}
	if err := r.exitHandler.SubmitExit(sig); err != nil {
		r.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("exit submission failed")
		monitoring.RecordError(string(errors.ErrorCategoryData))
	}
}

// Tick runs one evaluation cycle. The caller guarantees ticks never overlap.
func (r *Runner) Tick(now time.Time) {
	if r.state.RollSession(now) {
		r.log.Info().Str("event", "session_rolled").Time("session", now).Msg("daily counters reset")
	}
	if r.bundle.Hours.IsOpen(now) {
		r.pollEntries(now)
		r.RunEmergency(now)
	}
	monitoring.UpdatePortfolio(r.state.Equity(), r.state.Heat(), len(r.state.Positions()))
	if r.health != nil {
		r.health.RecordTick(len(r.state.Positions()), r.bundle.Hours.IsMaintenance(now))
	}
}

// Run drives the tick loop until the context is cancelled. End-of-day
// evaluation fires on the cron schedule but executes on the tick goroutine,
// so only one evaluation is ever in flight.
func (r *Runner) Run(ctx context.Context, tickInterval time.Duration, eodSchedule string) error {
	eodCh := make(chan time.Time, 1)
	c := cron.New()
	if _, err := c.AddFunc(eodSchedule, func() {
		select {
		case eodCh <- time.Now():
		default:
		}
	}); err != nil {
		return errors.NewConfigError("engine", "run", "invalid EOD schedule "+eodSchedule+": "+err.Error())
	}
	c.Start()
	defer c.Stop()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	r.log.Info().Str("event", "engine_started").Dur("tick_interval", tickInterval).
		Str("eod_schedule", eodSchedule).Msg("scope runner started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Str("event", "engine_stopped").Msg("scope runner stopped")
			return nil
		case now := <-eodCh:
			r.RunEndOfDay(now)
		case now := <-ticker.C:
			r.Tick(now)
		}
	}
}
