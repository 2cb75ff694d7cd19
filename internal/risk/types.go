package risk

// Reason is a machine-checkable decision reason code
type Reason string

const (
	ReasonApproved          Reason = "approved"
	ReasonLossStreakHalt    Reason = "loss_streak_halt"
	ReasonDailyLossHalt     Reason = "daily_loss_halt"
	ReasonDailyTradeCap     Reason = "daily_trade_cap"
	ReasonSymbolExposureCap Reason = "symbol_exposure_cap"
	ReasonPortfolioHeatCap  Reason = "portfolio_heat_cap"
	ReasonZeroSize          Reason = "zero_size"
	ReasonMarketClosed      Reason = "market_closed"
	ReasonMaintenanceHalt   Reason = "maintenance_halt"
)

// TradeDecision is the outcome of one entry-admission evaluation.
// A rejection is an ordinary outcome, not an error.
type TradeDecision struct {
	Approved   bool    `json:"approved"`
	Size       int     `json:"size"`
	RiskAmount float64 `json:"risk_amount"`
	ReasonCode Reason  `json:"reason_code"`
	Reason     string  `json:"reason"`
}
