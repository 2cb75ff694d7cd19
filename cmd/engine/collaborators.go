package main

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swing-trader/internal/engine"
	"github.com/ducminhle1904/swing-trader/internal/errors"
	"github.com/ducminhle1904/swing-trader/internal/execution"
	"github.com/ducminhle1904/swing-trader/internal/exit"
	"github.com/ducminhle1904/swing-trader/internal/logger"
	"github.com/ducminhle1904/swing-trader/internal/portfolio"
	"github.com/ducminhle1904/swing-trader/internal/risk"
	"github.com/ducminhle1904/swing-trader/pkg/data"
	"github.com/ducminhle1904/swing-trader/pkg/types"
)

// loadCollaborators wires the simulation deployment: session data comes from
// per-symbol CSV files, entry signals replay from an optional JSONL feed, and
// the executor fills signals through the execution model instead of a live
// broker.
func loadCollaborators(execModel execution.Model, signalsPath string, log zerolog.Logger) (engine.PriceProvider, *simExecutor, *fileEntrySource, error) {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data/sessions"
	}
	prices, err := data.NewCSVPriceProvider(dataDir, log)
	if err != nil {
		return nil, nil, nil, err
	}
	sim := &simExecutor{
		prices: prices,
		exec:   execModel,
		log:    logger.ForComponent(log, "executor"),
	}
	var signals *fileEntrySource
	if signalsPath != "" {
		signals, err = newFileEntrySource(signalsPath, log)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return prices, sim, signals, nil
}

// simExecutor stands in for the external order executor. It fills every exit
// signal itself and reports order state back to the engine, so the decision
// loop reconciles against it exactly as it would against a live broker.
type simExecutor struct {
	runner *engine.Runner
	prices engine.PriceProvider
	exec   execution.Model
	log    zerolog.Logger
}

// attach connects the executor to the runner it reports fills into.
// Must happen before the runner starts evaluating.
func (s *simExecutor) attach(r *engine.Runner) { s.runner = r }

// HasPendingOrder reports false: simulated fills are synchronous
func (s *simExecutor) HasPendingOrder(symbol string) (bool, error) {
	return false, nil
}

// EntryCount reports the executed entry count for reconciliation
func (s *simExecutor) EntryCount(symbol string) (int, error) {
	pos, ok := s.runner.State().Position(symbol)
	if !ok {
		return 0, nil
	}
	return len(pos.Entries), nil
}

// SubmitEntry fills an admitted entry at the open of the session after the
// signal, widened adversely by slippage, and reports the fill to the runner.
func (s *simExecutor) SubmitEntry(sig engine.EntrySignal, decision *risk.TradeDecision) error {
	history, err := s.prices.History(sig.Symbol)
	if err != nil {
		return err
	}
	var price float64
	var fillTime time.Time
	if sig.Side == portfolio.SideShort {
		// a short entry is a sell; adverse slippage pushes the fill down
		price, fillTime, err = s.exec.ExitFillAt(sig.Timestamp, history)
	} else {
		price, fillTime, err = s.exec.EntryFillAt(sig.Timestamp, history)
	}
	if err != nil {
		return err
	}
	fill := types.Fill{
		OrderID:  uuid.NewString(),
		Symbol:   sig.Symbol,
		Time:     fillTime,
		Price:    price,
		Quantity: float64(decision.Size),
	}
	s.log.Info().Str("event", "entry_filled").Str("symbol", sig.Symbol).
		Float64("price", price).Int("size", decision.Size).Msg("entry signal filled")
	return s.runner.HandleEntryFill(fill, sig.Side, sig.Confidence, decision.RiskAmount)
}

// SubmitExit fills an exit signal. End-of-day exits fill at the next session
// open; emergency exits fill at the latest quote. Both are widened by slippage
// in the adverse direction.
func (s *simExecutor) SubmitExit(sig *exit.Signal) error {
	pos, ok := s.runner.State().Position(sig.Symbol)
	if !ok {
		return errors.NewValidationError("executor", "submit_exit", "no open position for "+sig.Symbol)
	}

	var price float64
	fillTime := sig.Timestamp
	switch sig.Urgency {
	case exit.UrgencyImmediate:
		quote, err := s.prices.Quote(sig.Symbol)
		if err != nil {
			return err
		}
		// slippage hurts: longs sell lower, shorts buy back higher
		slip := quote * s.exec.SlippageBps / 10000
		if pos.Side == portfolio.SideShort {
			price = quote + slip
		} else {
			price = quote - slip
		}
	default:
		history, err := s.prices.History(sig.Symbol)
		if err != nil {
			return err
		}
		// the record carries the executing session's date; closing a short
		// is a buy, so its adverse slippage points the other way
		if pos.Side == portfolio.SideShort {
			price, fillTime, err = s.exec.EntryFillAt(sig.Timestamp, history)
		} else {
			price, fillTime, err = s.exec.ExitFillAt(sig.Timestamp, history)
		}
		if err != nil {
			return err
		}
	}

	fill := types.Fill{
		OrderID:  uuid.NewString(),
		Symbol:   sig.Symbol,
		Time:     fillTime,
		Price:    price,
		Quantity: pos.Quantity,
	}
	s.log.Info().Str("event", "exit_filled").Str("symbol", sig.Symbol).
		Str("classification", string(sig.Classification)).Str("urgency", string(sig.Urgency)).
		Float64("price", price).Msg("exit signal filled")
	return s.runner.HandleExitFill(sig, fill)
}
