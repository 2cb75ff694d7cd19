package risk

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/swing-trader/internal/policy"
	"github.com/ducminhle1904/swing-trader/internal/portfolio"
)

var testScope = policy.Scope{Mode: "swing", Market: "test", Instrument: "sim"}

func testRegistry(t *testing.T) *policy.Registry {
	t.Helper()
	hold, err := policy.NewFixedHold(10)
	require.NoError(t, err)
	exit, err := policy.NewSwingExit(policy.DefaultSwingExitParams())
	require.NoError(t, err)
	entry, err := policy.NewPyramidEntry(policy.DefaultScalingParams())
	require.NoError(t, err)

	r := policy.NewRegistry()
	require.NoError(t, r.Register(&policy.Bundle{
		Scope: testScope,
		Hold:  hold, Exit: exit, Entry: entry, Hours: policy.NewContinuousHours(),
	}))
	return r
}

func newTestManager(t *testing.T, cfg Config, equity float64) (*Manager, *portfolio.State) {
	t.Helper()
	state, err := portfolio.NewState(equity, time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	mgr, err := NewManager(cfg, state, testRegistry(t), testScope, zerolog.Nop())
	require.NoError(t, err)
	return mgr, state
}

// TestNewManager_UnregisteredScope tests that construction fails for a scope with no policy bundle
func TestNewManager_UnregisteredScope(t *testing.T) {
	state, err := portfolio.NewState(100000, time.Now())
	require.NoError(t, err)

	unknown := policy.Scope{Mode: "scalp", Market: "fx", Instrument: "spot"}
	_, err = NewManager(DefaultConfig(), state, testRegistry(t), unknown, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scalp/fx/spot")
}

// TestEvaluate_ApprovedWithSizing tests the standard sizing path: 100k equity,
// 1% risk per trade, confidence 4 gives a 1000 risk budget and 6 shares at 150
func TestEvaluate_ApprovedWithSizing(t *testing.T) {
	mgr, _ := newTestManager(t, DefaultConfig(), 100000)

	decision, err := mgr.Evaluate("AAPL", 150, 4, nil)
	require.NoError(t, err)

	assert.True(t, decision.Approved)
	assert.Equal(t, ReasonApproved, decision.ReasonCode)
	assert.Equal(t, 6, decision.Size)
	assert.InDelta(t, 1000.0, decision.RiskAmount, 1e-9)
}

// TestEvaluate_ConfidenceSizingMonotonic tests that higher confidence never shrinks the size
func TestEvaluate_ConfidenceSizingMonotonic(t *testing.T) {
	mgr, _ := newTestManager(t, DefaultConfig(), 100000)

	prevSize := -1
	for confidence := 1; confidence <= 5; confidence++ {
		decision, err := mgr.Evaluate("AAPL", 50, confidence, nil)
		require.NoError(t, err)
		require.True(t, decision.Approved)
		assert.GreaterOrEqual(t, decision.Size, prevSize, "confidence %d", confidence)
		prevSize = decision.Size
	}
}

// TestEvaluate_InvalidConfidence tests that an out-of-range confidence is a validation error
func TestEvaluate_InvalidConfidence(t *testing.T) {
	mgr, _ := newTestManager(t, DefaultConfig(), 100000)

	for _, confidence := range []int{0, 6, -1} {
		_, err := mgr.Evaluate("AAPL", 150, confidence, nil)
		assert.Error(t, err, "confidence %d", confidence)
	}
}

// TestEvaluate_InvalidPrice tests that a non-positive entry price is a validation error
func TestEvaluate_InvalidPrice(t *testing.T) {
	mgr, _ := newTestManager(t, DefaultConfig(), 100000)

	for _, price := range []float64{0, -10} {
		_, err := mgr.Evaluate("AAPL", price, 3, nil)
		assert.Error(t, err, "price %v", price)
	}
}

// TestEvaluate_LossStreakHalt tests that the consecutive-loss kill switch rejects new entries
func TestEvaluate_LossStreakHalt(t *testing.T) {
	mgr, state := newTestManager(t, DefaultConfig(), 100000)
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	for i, symbol := range []string{"A", "B", "C"} {
		_, err := state.Open(symbol, portfolio.SideLong, 100, 1, 3, 100, now)
		require.NoError(t, err)
		_, _, err = state.Close(symbol, 90, 0, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}
	require.Equal(t, 3, state.ConsecutiveLosses())

	decision, err := mgr.Evaluate("AAPL", 150, 4, nil)
	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.Equal(t, ReasonLossStreakHalt, decision.ReasonCode)
	assert.Zero(t, decision.Size)
}

// TestEvaluate_DailyLossHalt tests that breaching the daily loss limit halts new entries for the session
func TestEvaluate_DailyLossHalt(t *testing.T) {
	mgr, state := newTestManager(t, DefaultConfig(), 100000)
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	_, err := state.Open("XYZ", portfolio.SideLong, 100, 100, 3, 1000, now)
	require.NoError(t, err)
	_, _, err = state.Close("XYZ", 75, 0, now.Add(time.Hour))
	require.NoError(t, err)
	require.InDelta(t, -2500.0, state.DailyPnL(), 1e-9)

	decision, err := mgr.Evaluate("AAPL", 150, 4, nil)
	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.Equal(t, ReasonDailyLossHalt, decision.ReasonCode)
}

// TestEvaluate_DailyTradeCap tests that the per-session trade count cap rejects further entries
func TestEvaluate_DailyTradeCap(t *testing.T) {
	mgr, state := newTestManager(t, DefaultConfig(), 100000)
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	for _, symbol := range []string{"A", "B", "C"} {
		_, err := state.Open(symbol, portfolio.SideLong, 100, 1, 3, 10, now)
		require.NoError(t, err)
	}

	decision, err := mgr.Evaluate("AAPL", 150, 4, nil)
	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.Equal(t, ReasonDailyTradeCap, decision.ReasonCode)
}

// TestEvaluate_SymbolExposureCap tests that concentrated exposure to one symbol is rejected
func TestEvaluate_SymbolExposureCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTradesPerDay = 10
	mgr, state := newTestManager(t, cfg, 100000)
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	// 100 shares at 100 marks at 10% of equity, right at the cap
	_, err := state.Open("AAPL", portfolio.SideLong, 100, 100, 3, 100, now)
	require.NoError(t, err)

	decision, err := mgr.Evaluate("AAPL", 100, 4, map[string]float64{"AAPL": 100})
	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.Equal(t, ReasonSymbolExposureCap, decision.ReasonCode)
}

// TestEvaluate_PortfolioHeatCap tests that aggregate open risk at the heat cap rejects new entries
func TestEvaluate_PortfolioHeatCap(t *testing.T) {
	mgr, state := newTestManager(t, DefaultConfig(), 100000)
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	_, err := state.Open("AAPL", portfolio.SideLong, 100, 10, 3, 6000, now)
	require.NoError(t, err)
	require.InDelta(t, 0.06, state.Heat(), 1e-9)

	decision, err := mgr.Evaluate("MSFT", 150, 4, nil)
	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.Equal(t, ReasonPortfolioHeatCap, decision.ReasonCode)
}

// TestEvaluate_ZeroSize tests that a price too large for the risk budget rejects rather than rounding up
func TestEvaluate_ZeroSize(t *testing.T) {
	mgr, _ := newTestManager(t, DefaultConfig(), 100000)

	decision, err := mgr.Evaluate("BRK.A", 200000, 4, nil)
	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.Equal(t, ReasonZeroSize, decision.ReasonCode)
	assert.Zero(t, decision.Size)
}

// TestEvaluate_CheckOrder tests that when several checks fail at once, the
// highest-priority one sets the rejection reason
func TestEvaluate_CheckOrder(t *testing.T) {
	mgr, state := newTestManager(t, DefaultConfig(), 100000)
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	// three losing round trips: loss streak and trade cap both trip
	for i, symbol := range []string{"A", "B", "C"} {
		_, err := state.Open(symbol, portfolio.SideLong, 100, 1, 3, 100, now)
		require.NoError(t, err)
		_, _, err = state.Close(symbol, 95, 0, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}
	require.Equal(t, 3, state.ConsecutiveLosses())
	require.Equal(t, 3, state.TradesToday())

	decision, err := mgr.Evaluate("AAPL", 150, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonLossStreakHalt, decision.ReasonCode)
}

// TestConfidenceMultiplier tests the exact confidence-to-multiplier mapping
func TestConfidenceMultiplier(t *testing.T) {
	expected := map[int]float64{1: 0.25, 2: 0.50, 3: 0.75, 4: 1.00, 5: 1.25}
	for confidence, want := range expected {
		got, ok := ConfidenceMultiplier(confidence)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := ConfidenceMultiplier(0)
	assert.False(t, ok)
}
