package scaling

import (
	"time"

	"github.com/ducminhle1904/swing-trader/internal/portfolio"
)

// Outcome is the result class of a scaling evaluation
type Outcome string

const (
	// OutcomeBlock means the attempt is refused and must not be retried as-is
	OutcomeBlock Outcome = "BLOCK"
	// OutcomeSkip means a soft condition is unmet; the attempt may succeed later
	OutcomeSkip Outcome = "SKIP"
	// OutcomeScale means the position may be enlarged
	OutcomeScale Outcome = "SCALE"
)

// Reason is one of the fixed scaling reason codes
type Reason string

const (
	ReasonScalingDisabled   Reason = "scaling_disabled"
	ReasonNoPosition        Reason = "no_open_position"
	ReasonMaxEntries        Reason = "max_entries"
	ReasonMaxPositionSize   Reason = "max_position_size"
	ReasonPendingOrder      Reason = "pending_order"
	ReasonPositionMismatch  Reason = "position_mismatch"
	ReasonRiskBudget        Reason = "risk_budget"
	ReasonDirectionConflict Reason = "direction_conflict"
	ReasonPriceDirection    Reason = "price_direction"
	ReasonMinInterval       Reason = "min_interval"
	ReasonMinBars           Reason = "min_bars"
	ReasonSignalQuality     Reason = "signal_quality"
	ReasonVolatilityRegime  Reason = "volatility_regime"
	ReasonPriceStructure    Reason = "price_structure"
	ReasonLiquidity         Reason = "liquidity"
	ReasonApproved          Reason = "scale_approved"
)

// Metrics is the contextual snapshot attached to every scaling decision
type Metrics struct {
	EntryCount  int     `json:"entry_count"`
	PositionPct float64 `json:"position_pct"`
	RiskAmount  float64 `json:"risk_amount"`
}

// Decision is the outcome of one scaling evaluation
type Decision struct {
	Outcome    Outcome `json:"outcome"`
	ReasonCode Reason  `json:"reason_code"`
	Reason     string  `json:"reason"`
	Metrics    Metrics `json:"metrics"`
}

// Context carries everything one scaling evaluation needs. The broker fields
// come from the external broker collaborator; price/volume fields from the
// price collaborator.
type Context struct {
	Symbol           string
	ProposedPrice    float64
	ProposedQuantity float64
	ProposedSide     portfolio.Side
	ProposedRisk     float64
	Now              time.Time

	// Strategy qualification inputs
	SignalQuality      float64
	RecentRange        float64 // recent-range volatility measure, price units
	BarsSinceLastEntry int

	// Broker reconciliation inputs
	HasPendingOrder  bool
	BrokerEntryCount int

	// Liquidity input
	AvgDailyDollarVolume float64
}
