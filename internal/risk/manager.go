package risk

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swing-trader/internal/errors"
	"github.com/ducminhle1904/swing-trader/internal/logger"
	"github.com/ducminhle1904/swing-trader/internal/policy"
	"github.com/ducminhle1904/swing-trader/internal/portfolio"
)

// Config contains the capital-preservation limits for entry admission
type Config struct {
	RiskPerTrade         float64 `json:"risk_per_trade"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	MaxDailyLossPct      float64 `json:"max_daily_loss_pct"`
	MaxTradesPerDay      int     `json:"max_trades_per_day"`
	MaxSymbolExposurePct float64 `json:"max_symbol_exposure_pct"`
	MaxPortfolioHeatPct  float64 `json:"max_portfolio_heat_pct"`
}

// DefaultConfig returns the standard swing risk limits
func DefaultConfig() Config {
	return Config{
		RiskPerTrade:         0.01,
		MaxConsecutiveLosses: 3,
		MaxDailyLossPct:      0.02,
		MaxTradesPerDay:      3,
		MaxSymbolExposurePct: 0.10,
		MaxPortfolioHeatPct:  0.06,
	}
}

// confidenceMultipliers maps the externally supplied 1-5 confidence score
// to a position-size multiplier. Monotonically non-decreasing.
var confidenceMultipliers = map[int]float64{
	1: 0.25,
	2: 0.50,
	3: 0.75,
	4: 1.00,
	5: 1.25,
}

// Manager admits or rejects proposed entries and sizes them
type Manager struct {
	cfg    Config
	state  *portfolio.State
	bundle *policy.Bundle
	log    zerolog.Logger
}

// NewManager builds a risk manager for one resolved scope. An unregistered
// scope fails here, before any evaluation can run.
func NewManager(cfg Config, state *portfolio.State, registry *policy.Registry, scope policy.Scope, log zerolog.Logger) (*Manager, error) {
	bundle, err := registry.Resolve(scope)
	if err != nil {
		return nil, err
	}
	if cfg.RiskPerTrade <= 0 {
		return nil, errors.NewConfigError("risk", "new", fmt.Sprintf("risk per trade must be positive, got %v", cfg.RiskPerTrade))
	}
	return &Manager{
		cfg:    cfg,
		state:  state,
		bundle: bundle,
		log:    logger.ForComponent(log, "risk"),
	}, nil
}

// Evaluate runs the admission checks in fixed priority order; the first
// failing check terminates evaluation and sets the rejection reason.
// currentPrices supplies marks for open positions (exposure check).
func (m *Manager) Evaluate(symbol string, entryPrice float64, confidence int, currentPrices map[string]float64) (*TradeDecision, error) {
	if entryPrice <= 0 || math.IsNaN(entryPrice) || math.IsInf(entryPrice, 0) {
		return nil, errors.NewValidationError("risk", "evaluate", fmt.Sprintf("invalid entry price %v for %s", entryPrice, symbol))
	}
	multiplier, ok := confidenceMultipliers[confidence]
	if !ok {
		return nil, errors.NewValidationError("risk", "evaluate", fmt.Sprintf("confidence must be in [1,5], got %d", confidence))
	}

	var decision *TradeDecision
	switch {
	case m.state.ConsecutiveLosses() >= m.cfg.MaxConsecutiveLosses:
		decision = reject(ReasonLossStreakHalt,
			fmt.Sprintf("%d consecutive losses reached limit %d", m.state.ConsecutiveLosses(), m.cfg.MaxConsecutiveLosses))

	case m.state.DailyPnL() <= -m.cfg.MaxDailyLossPct*m.state.Equity():
		decision = reject(ReasonDailyLossHalt,
			fmt.Sprintf("daily loss %.2f reached limit %.2f", -m.state.DailyPnL(), m.cfg.MaxDailyLossPct*m.state.Equity()))

	case m.state.TradesToday() >= m.cfg.MaxTradesPerDay:
		decision = reject(ReasonDailyTradeCap,
			fmt.Sprintf("%d trades today reached cap %d", m.state.TradesToday(), m.cfg.MaxTradesPerDay))

	case m.symbolExposure(symbol, currentPrices) >= m.cfg.MaxSymbolExposurePct:
		decision = reject(ReasonSymbolExposureCap,
			fmt.Sprintf("exposure to %s is %.1f%% of equity, cap %.1f%%",
				symbol, m.symbolExposure(symbol, currentPrices)*100, m.cfg.MaxSymbolExposurePct*100))

	case m.state.Heat() >= m.cfg.MaxPortfolioHeatPct:
		decision = reject(ReasonPortfolioHeatCap,
			fmt.Sprintf("portfolio heat %.1f%% at cap %.1f%%", m.state.Heat()*100, m.cfg.MaxPortfolioHeatPct*100))

	default:
		riskAmount := m.state.Equity() * m.cfg.RiskPerTrade * multiplier
		size := int(math.Floor(riskAmount / entryPrice))
		if size <= 0 {
			decision = reject(ReasonZeroSize,
				fmt.Sprintf("computed size is zero at price %.2f with risk %.2f", entryPrice, riskAmount))
		} else {
			decision = &TradeDecision{
				Approved:   true,
				Size:       size,
				RiskAmount: riskAmount,
				ReasonCode: ReasonApproved,
				Reason:     fmt.Sprintf("approved %d @ %.2f, risk %.2f", size, entryPrice, riskAmount),
			}
		}
	}

	logger.TradeDecisionEvent(m.log, symbol, decision.Approved, string(decision.ReasonCode), decision.Size, decision.RiskAmount, confidence)
	return decision, nil
}

// ConfidenceMultiplier exposes the sizing multiplier for a confidence score
func ConfidenceMultiplier(confidence int) (float64, bool) {
	m, ok := confidenceMultipliers[confidence]
	return m, ok
}

func (m *Manager) symbolExposure(symbol string, currentPrices map[string]float64) float64 {
	price, ok := currentPrices[symbol]
	if !ok {
		pos, open := m.state.Position(symbol)
		if !open {
			return 0
		}
		price = pos.AvgPrice()
	}
	return m.state.SymbolExposurePct(symbol, price)
}

func reject(code Reason, reason string) *TradeDecision {
	return &TradeDecision{
		Approved:   false,
		ReasonCode: code,
		Reason:     reason,
	}
}
