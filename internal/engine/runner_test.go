package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/swing-trader/internal/execution"
	"github.com/ducminhle1904/swing-trader/internal/exit"
	"github.com/ducminhle1904/swing-trader/internal/ledger"
	"github.com/ducminhle1904/swing-trader/internal/monitoring"
	"github.com/ducminhle1904/swing-trader/internal/policy"
	"github.com/ducminhle1904/swing-trader/internal/portfolio"
	"github.com/ducminhle1904/swing-trader/internal/risk"
	"github.com/ducminhle1904/swing-trader/internal/scaling"
	"github.com/ducminhle1904/swing-trader/pkg/types"
)

var (
	testScope = policy.Scope{Mode: "swing", Market: "test", Instrument: "sim"}
	t0        = time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
)

type fakePrices struct {
	history []types.OHLCV
	quote   float64
	rng     float64
	adv     float64
}

func (f *fakePrices) History(string) ([]types.OHLCV, error)        { return f.history, nil }
func (f *fakePrices) Quote(string) (float64, error)                { return f.quote, nil }
func (f *fakePrices) RecentRange(string) (float64, error)          { return f.rng, nil }
func (f *fakePrices) AvgDailyDollarVolume(string) (float64, error) { return f.adv, nil }

type fakeBroker struct {
	pending bool
	entries int
}

func (f *fakeBroker) HasPendingOrder(string) (bool, error) { return f.pending, nil }
func (f *fakeBroker) EntryCount(string) (int, error)       { return f.entries, nil }

type captureExits struct {
	signals []*exit.Signal
}

func (c *captureExits) SubmitExit(sig *exit.Signal) error {
	c.signals = append(c.signals, sig)
	return nil
}

func flatHistory(n int, close float64) []types.OHLCV {
	bars := make([]types.OHLCV, n)
	day := t0.AddDate(0, 0, -n)
	for i := range bars {
		bars[i] = types.OHLCV{Date: day.AddDate(0, 0, i), Open: close, High: close, Low: close, Close: close, Volume: 1000}
	}
	return bars
}

func testRegistry(t *testing.T, hours policy.MarketHoursPolicy) *policy.Registry {
	t.Helper()
	hold, err := policy.NewFixedHold(10)
	require.NoError(t, err)
	exitPolicy, err := policy.NewSwingExit(policy.DefaultSwingExitParams())
	require.NoError(t, err)
	entry, err := policy.NewPyramidEntry(policy.DefaultScalingParams())
	require.NoError(t, err)

	r := policy.NewRegistry()
	require.NoError(t, r.Register(&policy.Bundle{
		Scope: testScope, Hold: hold, Exit: exitPolicy, Entry: entry, Hours: hours,
	}))
	return r
}

func runnerWithLedger(t *testing.T, hours policy.MarketHoursPolicy, prices PriceProvider, exits ExitHandler, ledgerPath string) *Runner {
	t.Helper()
	r, err := NewRunner(
		testScope, testRegistry(t, hours), risk.DefaultConfig(), 100000,
		execution.DefaultModel(), ledgerPath,
		prices, &fakeBroker{}, exits,
		monitoring.NewHealthChecker(testScope.String()), zerolog.Nop(), t0,
	)
	require.NoError(t, err)
	return r
}

func newTestRunner(t *testing.T, hours policy.MarketHoursPolicy, prices PriceProvider, exits ExitHandler) *Runner {
	t.Helper()
	return runnerWithLedger(t, hours, prices, exits, filepath.Join(t.TempDir(), "ledger.jsonl"))
}

// allDayMaintenance covers every hour of every session
var allDayMaintenance = policy.MaintenanceWindow{Start: 0, End: 24 * time.Hour}

// TestNewRunner_UnregisteredScope tests that runner construction fails fast
// for a scope without policies
func TestNewRunner_UnregisteredScope(t *testing.T) {
	_, err := NewRunner(
		policy.Scope{Mode: "scalp", Market: "fx", Instrument: "spot"},
		testRegistry(t, policy.NewContinuousHours()), risk.DefaultConfig(), 100000,
		execution.DefaultModel(), filepath.Join(t.TempDir(), "ledger.jsonl"),
		&fakePrices{}, &fakeBroker{}, &captureExits{},
		monitoring.NewHealthChecker("scalp/fx/spot"), zerolog.Nop(), t0,
	)
	assert.Error(t, err)
}

// TestEvaluateEntry_MarketClosed tests that a closed session rejects entries
// before any risk check runs
func TestEvaluateEntry_MarketClosed(t *testing.T) {
	hours := policy.NewEquityHours(9*time.Hour+30*time.Minute, 16*time.Hour, time.UTC)
	r := newTestRunner(t, hours, &fakePrices{}, &captureExits{})

	saturday := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	decision, err := r.EvaluateEntry("AAPL", 150, 4, saturday, nil)
	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.Equal(t, risk.ReasonMarketClosed, decision.ReasonCode)
}

// TestEvaluateEntry_MaintenanceHalt tests that maintenance windows suspend entry admission
func TestEvaluateEntry_MaintenanceHalt(t *testing.T) {
	hours := policy.NewContinuousHours(allDayMaintenance)
	r := newTestRunner(t, hours, &fakePrices{}, &captureExits{})

	decision, err := r.EvaluateEntry("AAPL", 150, 4, t0, nil)
	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.Equal(t, risk.ReasonMaintenanceHalt, decision.ReasonCode)
}

// TestEvaluateEntry_OpenSession tests normal admission through the risk manager
func TestEvaluateEntry_OpenSession(t *testing.T) {
	r := newTestRunner(t, policy.NewContinuousHours(), &fakePrices{}, &captureExits{})

	decision, err := r.EvaluateEntry("AAPL", 150, 4, t0, nil)
	require.NoError(t, err)
	assert.True(t, decision.Approved)
	assert.Equal(t, 6, decision.Size)
}

// TestEvaluateScaling_MaintenanceSkips tests that maintenance defers scaling instead of blocking
func TestEvaluateScaling_MaintenanceSkips(t *testing.T) {
	hours := policy.NewContinuousHours(allDayMaintenance)
	r := newTestRunner(t, hours, &fakePrices{}, &captureExits{})

	d, err := r.EvaluateScaling(scaling.Context{
		Symbol:           "AAPL",
		ProposedPrice:    105,
		ProposedQuantity: 10,
		ProposedSide:     portfolio.SideLong,
		Now:              t0,
	})
	require.NoError(t, err)
	assert.Equal(t, scaling.OutcomeSkip, d.Outcome)
}

// TestTick_EmergencyRunsDuringMaintenance tests that capital-preservation
// evaluation is never suspended by a maintenance window
func TestTick_EmergencyRunsDuringMaintenance(t *testing.T) {
	hours := policy.NewContinuousHours(allDayMaintenance)
	capture := &captureExits{}
	prices := &fakePrices{quote: 90, rng: 2, adv: 1_000_000}
	r := newTestRunner(t, hours, prices, capture)

	entry := types.Fill{OrderID: "o1", Symbol: "AAPL", Time: t0, Price: 100, Quantity: 1000}
	require.NoError(t, r.HandleEntryFill(entry, portfolio.SideLong, 4, 1000))

	r.Tick(t0.AddDate(0, 0, 2))

	require.Len(t, capture.signals, 1)
	assert.Equal(t, exit.ClassificationEmergency, capture.signals[0].Classification)
	assert.Equal(t, exit.ReasonCatastrophicLoss, capture.signals[0].Reason)
}

// TestHandleExitFill_RecordsTrade tests the close path: the portfolio realizes
// P&L once and the ledger receives exactly one record with fee attribution
func TestHandleExitFill_RecordsTrade(t *testing.T) {
	r := newTestRunner(t, policy.NewContinuousHours(), &fakePrices{}, &captureExits{})

	entry := types.Fill{OrderID: "o1", Symbol: "AAPL", Time: t0, Price: 100, Quantity: 10}
	require.NoError(t, r.HandleEntryFill(entry, portfolio.SideLong, 4, 1000))

	exitTime := t0.AddDate(0, 0, 5)
	sig := &exit.Signal{
		Symbol:         "AAPL",
		Classification: exit.ClassificationSwing,
		Reason:         exit.ReasonProfitTarget,
		Timestamp:      exitTime,
		EntryDate:      t0,
		HoldingDays:    5,
		Urgency:        exit.UrgencyEOD,
	}
	fill := types.Fill{OrderID: "o2", Symbol: "AAPL", Time: exitTime, Price: 115, Quantity: 10}
	require.NoError(t, r.HandleExitFill(sig, fill))

	require.Equal(t, 1, r.Ledger().Len())
	trades := r.Ledger().Query(ledger.Filter{})
	require.Len(t, trades, 1)

	trade := trades[0]
	fees := 0.0005 * (100*10 + 115*10)
	assert.Equal(t, string(exit.ClassificationSwing), trade.Classification)
	assert.Equal(t, exit.ReasonProfitTarget, trade.Reason)
	assert.Equal(t, 5, trade.HoldingDays)
	assert.InDelta(t, 150.0, trade.GrossPnL, 1e-9)
	assert.InDelta(t, 150.0/1000.0, trade.GrossPnLPct, 1e-9)
	assert.InDelta(t, 150.0-fees, trade.NetPnL, 1e-9)
	assert.InDelta(t, (150.0-fees)/1000.0, trade.PnLPct, 1e-9)
	assert.InDelta(t, fees, trade.Fees, 1e-9)
	assert.InDelta(t, 100000+150-fees, r.State().Equity(), 1e-9)

	_, open := r.State().Position("AAPL")
	assert.False(t, open)
}

// TestHandleExitFill_LedgerWriteFailureDoesNotHalt tests that a failed durable
// write is swallowed as recoverable: the close still succeeds and the record
// stays queryable in memory
func TestHandleExitFill_LedgerWriteFailureDoesNotHalt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "books")
	r := runnerWithLedger(t, policy.NewContinuousHours(), &fakePrices{}, &captureExits{},
		filepath.Join(dir, "ledger.jsonl"))

	entry := types.Fill{OrderID: "o1", Symbol: "AAPL", Time: t0, Price: 100, Quantity: 10}
	require.NoError(t, r.HandleEntryFill(entry, portfolio.SideLong, 4, 1000))

	require.NoError(t, os.RemoveAll(dir))

	sig := &exit.Signal{
		Symbol:         "AAPL",
		Classification: exit.ClassificationEmergency,
		Reason:         exit.ReasonCatastrophicLoss,
		Timestamp:      t0.AddDate(0, 0, 1),
		EntryDate:      t0,
		Urgency:        exit.UrgencyImmediate,
	}
	fill := types.Fill{OrderID: "o2", Symbol: "AAPL", Time: t0.AddDate(0, 0, 1), Price: 90, Quantity: 10}
	require.NoError(t, r.HandleExitFill(sig, fill))

	assert.Equal(t, 1, r.Ledger().Len())
	_, open := r.State().Position("AAPL")
	assert.False(t, open)
}

// TestRunEndOfDay_OncePerSession tests that end-of-day evaluation runs at most
// once per session date
func TestRunEndOfDay_OncePerSession(t *testing.T) {
	capture := &captureExits{}
	prices := &fakePrices{history: flatHistory(5, 100), quote: 100, adv: 1_000_000}
	r := newTestRunner(t, policy.NewContinuousHours(), prices, capture)

	entry := types.Fill{OrderID: "o1", Symbol: "AAPL", Time: t0, Price: 100, Quantity: 10}
	require.NoError(t, r.HandleEntryFill(entry, portfolio.SideLong, 4, 1000))

	now := t0.AddDate(0, 0, 10) // past the holding limit
	r.RunEndOfDay(now)
	r.RunEndOfDay(now.Add(time.Hour))

	require.Len(t, capture.signals, 1)
	assert.Equal(t, exit.ClassificationSwing, capture.signals[0].Classification)
	assert.Equal(t, exit.ReasonMaxHoldingPeriod, capture.signals[0].Reason)

	r.RunEndOfDay(now.AddDate(0, 0, 1))
	assert.Len(t, capture.signals, 2)
}

type fakeEntries struct {
	sigs []EntrySignal
}

func (f *fakeEntries) PendingEntries(time.Time) ([]EntrySignal, error) {
	due := f.sigs
	f.sigs = nil
	return due, nil
}

type submittedEntry struct {
	sig      EntrySignal
	decision *risk.TradeDecision
}

type captureEntries struct {
	submitted []submittedEntry
}

func (c *captureEntries) SubmitEntry(sig EntrySignal, decision *risk.TradeDecision) error {
	c.submitted = append(c.submitted, submittedEntry{sig, decision})
	return nil
}

// TestTick_SubmitsDueEntrySignals tests that due entry signals flow through
// admission and reach the entry handler during an open session
func TestTick_SubmitsDueEntrySignals(t *testing.T) {
	r := newTestRunner(t, policy.NewContinuousHours(), &fakePrices{quote: 150}, &captureExits{})
	src := &fakeEntries{sigs: []EntrySignal{
		{Symbol: "AAPL", Side: portfolio.SideLong, Price: 150, Confidence: 4, Timestamp: t0},
	}}
	sink := &captureEntries{}
	r.SetEntrySource(src, sink)

	r.Tick(t0)

	require.Len(t, sink.submitted, 1)
	assert.Equal(t, "AAPL", sink.submitted[0].sig.Symbol)
	require.True(t, sink.submitted[0].decision.Approved)
	assert.Equal(t, 6, sink.submitted[0].decision.Size)
}

// TestTick_EntryPollSkipsMaintenance tests that a maintenance window leaves
// the entry source untouched instead of consuming signals while halted
func TestTick_EntryPollSkipsMaintenance(t *testing.T) {
	r := newTestRunner(t, policy.NewContinuousHours(allDayMaintenance), &fakePrices{quote: 150}, &captureExits{})
	src := &fakeEntries{sigs: []EntrySignal{
		{Symbol: "AAPL", Side: portfolio.SideLong, Price: 150, Confidence: 4, Timestamp: t0},
	}}
	sink := &captureEntries{}
	r.SetEntrySource(src, sink)

	r.Tick(t0)

	assert.Empty(t, sink.submitted)
	assert.Len(t, src.sigs, 1, "halted ticks must not drain the signal feed")
}

// TestTick_RejectedEntryNotSubmitted tests that admission rejections stop at
// the runner and never reach the entry handler
func TestTick_RejectedEntryNotSubmitted(t *testing.T) {
	r := newTestRunner(t, policy.NewContinuousHours(), &fakePrices{quote: 200000}, &captureExits{})
	src := &fakeEntries{sigs: []EntrySignal{
		// sizing rounds to zero shares at this price, an ordinary rejection
		{Symbol: "AAPL", Side: portfolio.SideLong, Price: 200000, Confidence: 4, Timestamp: t0},
	}}
	sink := &captureEntries{}
	r.SetEntrySource(src, sink)

	r.Tick(t0)

	assert.Empty(t, sink.submitted)
}

// TestTick_RollsSessionOnce tests that the tick loop owns the daily counter reset
func TestTick_RollsSessionOnce(t *testing.T) {
	r := newTestRunner(t, policy.NewContinuousHours(), &fakePrices{quote: 100, adv: 1_000_000}, &captureExits{})

	entry := types.Fill{OrderID: "o1", Symbol: "AAPL", Time: t0, Price: 100, Quantity: 10}
	require.NoError(t, r.HandleEntryFill(entry, portfolio.SideLong, 4, 1000))
	require.Equal(t, 1, r.State().TradesToday())

	r.Tick(t0.Add(time.Hour))
	assert.Equal(t, 1, r.State().TradesToday())

	r.Tick(t0.AddDate(0, 0, 1))
	assert.Equal(t, 0, r.State().TradesToday())
}

// TestScalingContext_ReconcilesBroker tests that the assembled scaling context
// carries the broker's order state and the provider's liquidity figures
func TestScalingContext_ReconcilesBroker(t *testing.T) {
	prices := &fakePrices{quote: 100, rng: 2.5, adv: 5_000_000}
	r, err := NewRunner(
		testScope, testRegistry(t, policy.NewContinuousHours()), risk.DefaultConfig(), 100000,
		execution.DefaultModel(), filepath.Join(t.TempDir(), "ledger.jsonl"),
		prices, &fakeBroker{pending: true, entries: 2}, &captureExits{},
		monitoring.NewHealthChecker(testScope.String()), zerolog.Nop(), t0,
	)
	require.NoError(t, err)

	ctx, err := r.ScalingContext("AAPL", 105, 10, portfolio.SideLong, 500, 0.8, 3, t0)
	require.NoError(t, err)
	assert.True(t, ctx.HasPendingOrder)
	assert.Equal(t, 2, ctx.BrokerEntryCount)
	assert.InDelta(t, 2.5, ctx.RecentRange, 1e-9)
	assert.InDelta(t, 5_000_000.0, ctx.AvgDailyDollarVolume, 1e-9)
	assert.Equal(t, "AAPL", ctx.Symbol)
}
