package execution

import (
	"fmt"
	"math"
	"time"

	"github.com/ducminhle1904/swing-trader/internal/errors"
	"github.com/ducminhle1904/swing-trader/pkg/types"
)

// Model converts evaluation-time decisions into realistic fill prices and
// liquidity verdicts. Fills always happen at the open of the session strictly
// after the signal date, widened by slippage in the adverse direction, so no
// downstream consumer can act on same-session information.
type Model struct {
	SlippageBps    float64 `json:"slippage_bps"`
	CommissionRate float64 `json:"commission_rate"`
	MaxADVPct      float64 `json:"max_adv_pct"`
}

// DefaultModel returns a conservative execution model
func DefaultModel() Model {
	return Model{
		SlippageBps:    10,
		CommissionRate: 0.0005,
		MaxADVPct:      0.01,
	}
}

// EntryFillPrice returns the realistic buy fill for a signal raised on
// signalDate: the next session's open, widened upward by slippage.
func EntryFillPrice(signalDate time.Time, series []types.OHLCV, slippageBps float64) (float64, error) {
	bar, err := nextSessionBar(signalDate, series)
	if err != nil {
		return 0, err
	}
	return bar.Open * (1 + slippageBps/10000), nil
}

// ExitFillPrice returns the realistic sell fill for a signal raised on
// signalDate: the next session's open, widened downward by slippage.
func ExitFillPrice(signalDate time.Time, series []types.OHLCV, slippageBps float64) (float64, error) {
	bar, err := nextSessionBar(signalDate, series)
	if err != nil {
		return 0, err
	}
	return bar.Open * (1 - slippageBps/10000), nil
}

// nextSessionBar selects the first bar strictly after the signal date.
// The signal day's own close is never a valid fill reference.
func nextSessionBar(signalDate time.Time, series []types.OHLCV) (types.OHLCV, error) {
	for _, bar := range series {
		if bar.Date.After(signalDate) && !types.SameSession(bar.Date, signalDate) {
			if bar.Open <= 0 || math.IsNaN(bar.Open) {
				return types.OHLCV{}, errors.NewValidationError("execution", "fill",
					fmt.Sprintf("invalid open %v on %s", bar.Open, bar.Date.Format("2006-01-02")))
			}
			return bar, nil
		}
	}
	return types.OHLCV{}, errors.NewDataError("execution", "fill",
		fmt.Errorf("no session after %s in price series", signalDate.Format("2006-01-02")))
}

// EntryFill applies the model's own slippage setting
func (m Model) EntryFill(signalDate time.Time, series []types.OHLCV) (float64, error) {
	return EntryFillPrice(signalDate, series, m.SlippageBps)
}

// ExitFill applies the model's own slippage setting
func (m Model) ExitFill(signalDate time.Time, series []types.OHLCV) (float64, error) {
	return ExitFillPrice(signalDate, series, m.SlippageBps)
}

// EntryFillAt returns the buy fill and the date of the session it executes
// in. Fill records must carry the executing session's date; across weekends
// and holidays that is not the signal date plus one calendar day.
func (m Model) EntryFillAt(signalDate time.Time, series []types.OHLCV) (float64, time.Time, error) {
	bar, err := nextSessionBar(signalDate, series)
	if err != nil {
		return 0, time.Time{}, err
	}
	return bar.Open * (1 + m.SlippageBps/10000), bar.Date, nil
}

// ExitFillAt returns the sell fill and the date of the session it executes in
func (m Model) ExitFillAt(signalDate time.Time, series []types.OHLCV) (float64, time.Time, error) {
	bar, err := nextSessionBar(signalDate, series)
	if err != nil {
		return 0, time.Time{}, err
	}
	return bar.Open * (1 - m.SlippageBps/10000), bar.Date, nil
}

// Commission returns the flat commission for a notional amount
func (m Model) Commission(notional float64) float64 {
	return notional * m.CommissionRate
}

// CheckLiquidity verifies the notional against the dollar (not share) ADV cap
func CheckLiquidity(notional, avgDailyDollarVolume, maxADVPct float64) (bool, string) {
	if avgDailyDollarVolume <= 0 || math.IsNaN(avgDailyDollarVolume) {
		return false, "average daily dollar volume unavailable"
	}
	limit := avgDailyDollarVolume * maxADVPct
	if notional > limit {
		return false, fmt.Sprintf("notional %.0f exceeds %.2f%% of dollar ADV (%.0f)",
			notional, maxADVPct*100, limit)
	}
	return true, ""
}

// CheckLiquidity applies the model's own ADV cap
func (m Model) CheckLiquidity(notional, avgDailyDollarVolume float64) (bool, string) {
	return CheckLiquidity(notional, avgDailyDollarVolume, m.MaxADVPct)
}

// SlippageCost returns the exact cost of slippage for one round-trip trade.
// Idealized P&L minus realized P&L equals this value for any series and any
// non-negative slippage.
func SlippageCost(idealEntry, idealExit, quantity, slippageBps float64) float64 {
	entrySlip := idealEntry * slippageBps / 10000 * quantity
	exitSlip := idealExit * slippageBps / 10000 * quantity
	return entrySlip + exitSlip
}

// IdealizedPnL is the zero-slippage P&L for a long round trip
func IdealizedPnL(idealEntry, idealExit, quantity float64) float64 {
	return (idealExit - idealEntry) * quantity
}

// RealizedPnL is the slippage-adjusted P&L for a long round trip
func RealizedPnL(idealEntry, idealExit, quantity, slippageBps float64) float64 {
	entry := idealEntry * (1 + slippageBps/10000)
	exit := idealExit * (1 - slippageBps/10000)
	return (exit - entry) * quantity
}
