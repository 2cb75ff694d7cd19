package exit

import "time"

// Classification labels which evaluation path produced the exit
type Classification string

const (
	ClassificationSwing     Classification = "SWING_EXIT"
	ClassificationEmergency Classification = "EMERGENCY_EXIT"
)

// Urgency tells the executor when the exit should trade
type Urgency string

const (
	UrgencyEOD       Urgency = "eod"       // execute at the next session's open
	UrgencyImmediate Urgency = "immediate" // execute now
)

// Exit reasons, in rule precedence order for each path
const (
	ReasonMaxHoldingPeriod = "max holding period"
	ReasonProfitTarget     = "profit target"
	ReasonTrendBreak       = "trend break"
	ReasonCatastrophicLoss = "catastrophic loss"
	ReasonVolatilityStop   = "volatility stop"
)

// Signal is one exit recommendation for an open position
type Signal struct {
	Symbol         string         `json:"symbol"`
	Classification Classification `json:"classification"`
	Reason         string         `json:"reason"`
	Timestamp      time.Time      `json:"timestamp"`
	EntryDate      time.Time      `json:"entry_date"`
	HoldingDays    int            `json:"holding_days"`
	Confidence     int            `json:"confidence"`
	Urgency        Urgency        `json:"urgency"`
}
