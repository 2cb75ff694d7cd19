package policy

import (
	"fmt"
	"time"
)

// Scope identifies one (mode, market, instrument) combination. Every decision
// component is constructed against exactly one registered scope.
type Scope struct {
	Mode       string `json:"mode"`
	Market     string `json:"market"`
	Instrument string `json:"instrument"`
}

func (s Scope) String() string {
	return fmt.Sprintf("%s/%s/%s", s.Mode, s.Market, s.Instrument)
}

// ScalingStyle selects the directionality rule for position scaling
type ScalingStyle string

const (
	StylePyramid     ScalingStyle = "pyramid"      // add at strictly better prices
	StyleAverageDown ScalingStyle = "average_down" // add at strictly worse prices
)

// HoldDurationPolicy bounds how long a swing position may be held
type HoldDurationPolicy interface {
	Name() string
	MaxHoldingDays() int
}

// ExitTimingPolicy parameterizes both exit evaluation paths
type ExitTimingPolicy interface {
	Name() string

	// End-of-day rules
	ProfitTarget() float64     // fraction of entry price, e.g. 0.15
	TrendReferencePeriod() int // sessions in the long-horizon trend reference

	// Emergency rules
	CatastrophicLossPct() float64    // position loss as fraction of equity
	VolatilityStopMultiple() float64 // multiple of the recent-range measure

	// Stricter multiple applied to both emergency thresholds on the entry day,
	// so risk logic never produces a same-day round trip on an ordinary move
	SameDayProtectionMultiple() float64
}

// EntryTimingPolicy parameterizes entry scaling behavior
type EntryTimingPolicy interface {
	Name() string
	AllowScaling() bool
	Style() ScalingStyle
	MaxEntries() int
	MaxPositionPct() float64 // aggregate position size as fraction of equity
	MaxTotalRiskPct() float64
	MinBarsBetweenEntries() int
	MinTimeBetweenEntries() time.Duration
	MinSignalQuality() float64
	MaxVolatilityPct() float64 // acceptable regime: recent range over price
}

// MarketHoursPolicy answers session and maintenance questions for a market
type MarketHoursPolicy interface {
	Name() string
	IsOpen(t time.Time) bool
	IsMaintenance(t time.Time) bool
}

// Bundle is the full set of policies resolved for one scope
type Bundle struct {
	Scope Scope
	Hold  HoldDurationPolicy
	Exit  ExitTimingPolicy
	Entry EntryTimingPolicy
	Hours MarketHoursPolicy
}
