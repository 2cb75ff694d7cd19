package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/swing-trader/internal/engine"
	"github.com/ducminhle1904/swing-trader/internal/execution"
	"github.com/ducminhle1904/swing-trader/internal/exit"
	"github.com/ducminhle1904/swing-trader/internal/ledger"
	"github.com/ducminhle1904/swing-trader/internal/monitoring"
	"github.com/ducminhle1904/swing-trader/internal/policy"
	"github.com/ducminhle1904/swing-trader/internal/portfolio"
	"github.com/ducminhle1904/swing-trader/internal/risk"
	"github.com/ducminhle1904/swing-trader/pkg/types"
)

var (
	monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	friday = time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)
)

type stubPrices struct {
	history []types.OHLCV
	quote   float64
}

func (s *stubPrices) History(string) ([]types.OHLCV, error)        { return s.history, nil }
func (s *stubPrices) Quote(string) (float64, error)                { return s.quote, nil }
func (s *stubPrices) RecentRange(string) (float64, error)          { return 2, nil }
func (s *stubPrices) AvgDailyDollarVolume(string) (float64, error) { return 10_000_000, nil }

// weekWithGap is Mon Jan 5 through Fri Jan 9 plus the following Monday;
// Sat Jan 10 and Sun Jan 11 have no sessions.
func weekWithGap() []types.OHLCV {
	bars := make([]types.OHLCV, 0, 6)
	for i := 0; i < 5; i++ {
		open := 100.0 + 2*float64(i)
		bars = append(bars, types.OHLCV{
			Date: monday.AddDate(0, 0, i), Open: open, High: open + 2, Low: open - 1, Close: open + 1, Volume: 1000,
		})
	}
	bars = append(bars, types.OHLCV{
		Date: monday.AddDate(0, 0, 7), Open: 112, High: 114, Low: 111, Close: 113, Volume: 1000,
	})
	return bars
}

func newSimRunner(t *testing.T, prices engine.PriceProvider) (*engine.Runner, *simExecutor) {
	t.Helper()
	registry, err := policy.DefaultRegistry()
	require.NoError(t, err)

	sim := &simExecutor{prices: prices, exec: execution.DefaultModel(), log: zerolog.Nop()}
	scope := policy.Scope{Mode: "swing", Market: "crypto", Instrument: "spot"}
	runner, err := engine.NewRunner(
		scope, registry, risk.DefaultConfig(), 100000,
		execution.DefaultModel(), filepath.Join(t.TempDir(), "ledger.jsonl"),
		prices, sim, sim,
		monitoring.NewHealthChecker(scope.String()), zerolog.Nop(), monday,
	)
	require.NoError(t, err)
	sim.attach(runner)
	return runner, sim
}

// TestSubmitExit_WeekendFillDatedOnSession tests that an end-of-day exit
// signaled on a Friday is recorded on the following Monday session, the one
// its fill price comes from, with holding days counted to that session
func TestSubmitExit_WeekendFillDatedOnSession(t *testing.T) {
	runner, sim := newSimRunner(t, &stubPrices{history: weekWithGap(), quote: 111})

	entry := types.Fill{OrderID: "o1", Symbol: "BTC", Time: monday, Price: 100, Quantity: 10}
	require.NoError(t, runner.HandleEntryFill(entry, portfolio.SideLong, 4, 1000))

	sig := &exit.Signal{
		Symbol:         "BTC",
		Classification: exit.ClassificationSwing,
		Reason:         exit.ReasonProfitTarget,
		Timestamp:      friday,
		EntryDate:      monday,
		HoldingDays:    4,
		Urgency:        exit.UrgencyEOD,
	}
	require.NoError(t, sim.SubmitExit(sig))

	trades := runner.Ledger().Query(ledger.Filter{})
	require.Len(t, trades, 1)
	nextMonday := monday.AddDate(0, 0, 7)
	assert.Equal(t, nextMonday, trades[0].ExitTime, "record must carry the executing session's date")
	assert.InDelta(t, 112*0.999, trades[0].ExitPrice, 1e-9)
	assert.Equal(t, 7, trades[0].HoldingDays)
}

// TestSubmitEntry_FillsAtNextSessionOpen tests that an admitted entry opens
// the position at the following session's open, adverse by slippage
func TestSubmitEntry_FillsAtNextSessionOpen(t *testing.T) {
	runner, sim := newSimRunner(t, &stubPrices{history: weekWithGap(), quote: 101})

	sig := engine.EntrySignal{Symbol: "BTC", Side: portfolio.SideLong, Price: 101, Confidence: 4, Timestamp: monday}
	decision := &risk.TradeDecision{Approved: true, Size: 6, RiskAmount: 1000}
	require.NoError(t, sim.SubmitEntry(sig, decision))

	pos, ok := runner.State().Position("BTC")
	require.True(t, ok)
	assert.InDelta(t, 102*1.001, pos.AvgPrice(), 1e-9)
	assert.InDelta(t, 6, pos.Quantity, 1e-9)
	assert.Equal(t, monday.AddDate(0, 0, 1), pos.EntryDate)
}

// TestFileEntrySource_ReleasesDueSignals tests that the JSONL feed releases
// signals by session date, consumes them once, and survives unreadable lines
func TestFileEntrySource_ReleasesDueSignals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.jsonl")
	content := `{"symbol":"btc","side":"long","date":"2026-01-05","price":101,"confidence":4}
not json at all
{"symbol":"ETH","side":"short","date":"2026-01-07","price":55,"confidence":3}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	src, err := newFileEntrySource(path, zerolog.Nop())
	require.NoError(t, err)

	early, err := src.PendingEntries(monday.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Empty(t, early)

	due, err := src.PendingEntries(monday)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "BTC", due[0].Symbol)
	assert.Equal(t, portfolio.SideLong, due[0].Side)

	rest, err := src.PendingEntries(monday.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "ETH", rest[0].Symbol)
	assert.Equal(t, portfolio.SideShort, rest[0].Side)

	again, err := src.PendingEntries(monday.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Empty(t, again)
}

// TestFileEntrySource_MissingFile tests that a missing feed fails at startup
func TestFileEntrySource_MissingFile(t *testing.T) {
	_, err := newFileEntrySource(filepath.Join(t.TempDir(), "absent.jsonl"), zerolog.Nop())
	assert.Error(t, err)
}
