package policy

import "fmt"

// SwingExitParams configures the swing exit-timing policy
type SwingExitParams struct {
	ProfitTarget              float64 `json:"profit_target"`
	TrendReferencePeriod      int     `json:"trend_reference_period"`
	CatastrophicLossPct       float64 `json:"catastrophic_loss_pct"`
	VolatilityStopMultiple    float64 `json:"volatility_stop_multiple"`
	SameDayProtectionMultiple float64 `json:"same_day_protection_multiple"`
}

// DefaultSwingExitParams returns the documented defaults. The same-day
// protection multiple defaults to 2x but stays tunable per scope.
func DefaultSwingExitParams() SwingExitParams {
	return SwingExitParams{
		ProfitTarget:              0.15,
		TrendReferencePeriod:      50,
		CatastrophicLossPct:       0.03,
		VolatilityStopMultiple:    2.5,
		SameDayProtectionMultiple: 2.0,
	}
}

// SwingExit is the standard swing-trade exit-timing policy
type SwingExit struct {
	params SwingExitParams
}

// NewSwingExit creates a swing exit-timing policy, validating its parameters
func NewSwingExit(params SwingExitParams) (*SwingExit, error) {
	if params.ProfitTarget <= 0 {
		return nil, fmt.Errorf("profit target must be positive, got %v", params.ProfitTarget)
	}
	if params.TrendReferencePeriod <= 0 {
		return nil, fmt.Errorf("trend reference period must be positive, got %d", params.TrendReferencePeriod)
	}
	if params.CatastrophicLossPct <= 0 {
		return nil, fmt.Errorf("catastrophic loss pct must be positive, got %v", params.CatastrophicLossPct)
	}
	if params.VolatilityStopMultiple <= 0 {
		return nil, fmt.Errorf("volatility stop multiple must be positive, got %v", params.VolatilityStopMultiple)
	}
	if params.SameDayProtectionMultiple < 1 {
		return nil, fmt.Errorf("same-day protection multiple must be >= 1, got %v", params.SameDayProtectionMultiple)
	}
	return &SwingExit{params: params}, nil
}

func (e *SwingExit) Name() string                        { return "swing_exit" }
func (e *SwingExit) ProfitTarget() float64               { return e.params.ProfitTarget }
func (e *SwingExit) TrendReferencePeriod() int           { return e.params.TrendReferencePeriod }
func (e *SwingExit) CatastrophicLossPct() float64        { return e.params.CatastrophicLossPct }
func (e *SwingExit) VolatilityStopMultiple() float64     { return e.params.VolatilityStopMultiple }
func (e *SwingExit) SameDayProtectionMultiple() float64  { return e.params.SameDayProtectionMultiple }
