package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ducminhle1904/swing-trader/pkg/types"
)

// State tracks open positions, equity and daily counters for one scope.
// A scope's evaluation is single-threaded, so State carries no locking;
// it must never be shared across scopes.
type State struct {
	initialEquity     float64
	equity            float64
	dailyPnL          float64
	tradesToday       int
	consecutiveLosses int
	sessionDate       time.Time

	positions map[string]*Position
}

// NewState creates portfolio state with the given starting equity
func NewState(initialEquity float64, now time.Time) (*State, error) {
	if initialEquity <= 0 {
		return nil, fmt.Errorf("initial equity must be positive, got %v", initialEquity)
	}
	return &State{
		initialEquity: initialEquity,
		equity:        initialEquity,
		sessionDate:   now,
		positions:     make(map[string]*Position),
	}, nil
}

// Open creates a new position from a confirmed entry fill
func (s *State) Open(symbol string, side Side, price, quantity float64, confidence int, riskAmount float64, now time.Time) (*Position, error) {
	if _, exists := s.positions[symbol]; exists {
		return nil, fmt.Errorf("position already open for %s", symbol)
	}
	if price <= 0 {
		return nil, fmt.Errorf("entry price must be positive, got %v", price)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %v", quantity)
	}
	pos := &Position{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       side,
		EntryDate:  now,
		EntryPrice: price,
		Quantity:   quantity,
		Confidence: confidence,
		RiskAmount: riskAmount,
		Entries:    []ScaleEntry{{Price: price, Quantity: quantity, Time: now}},
	}
	s.positions[symbol] = pos
	s.tradesToday++
	return pos, nil
}

// AddScale appends a scaling fill to an open position
func (s *State) AddScale(symbol string, price, quantity, addedRisk float64, now time.Time) error {
	pos, ok := s.positions[symbol]
	if !ok {
		return fmt.Errorf("no open position for %s", symbol)
	}
	if price <= 0 || quantity <= 0 {
		return fmt.Errorf("scale fill must have positive price and quantity")
	}
	pos.Entries = append(pos.Entries, ScaleEntry{Price: price, Quantity: quantity, Time: now})
	pos.Quantity += quantity
	pos.RiskAmount += addedRisk
	return nil
}

// Close removes a position and realizes its P&L. Equity changes only here.
// Returns the net realized P&L and the closed position.
func (s *State) Close(symbol string, exitPrice, fees float64, now time.Time) (float64, *Position, error) {
	pos, ok := s.positions[symbol]
	if !ok {
		return 0, nil, fmt.Errorf("no open position for %s", symbol)
	}
	if exitPrice <= 0 {
		return 0, nil, fmt.Errorf("exit price must be positive, got %v", exitPrice)
	}
	net := pos.UnrealizedPnL(exitPrice) - fees
	s.equity += net
	s.dailyPnL += net
	if net < 0 {
		s.consecutiveLosses++
	} else {
		s.consecutiveLosses = 0
	}
	delete(s.positions, symbol)
	return net, pos, nil
}

// Position returns the open position for symbol, if any
func (s *State) Position(symbol string) (*Position, bool) {
	pos, ok := s.positions[symbol]
	return pos, ok
}

// Positions returns all open positions ordered by symbol
func (s *State) Positions() []*Position {
	out := make([]*Position, 0, len(s.positions))
	for _, pos := range s.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Equity returns current equity
func (s *State) Equity() float64 { return s.equity }

// DailyPnL returns realized P&L since the last session boundary
func (s *State) DailyPnL() float64 { return s.dailyPnL }

// CumulativeReturn returns total return over initial equity
func (s *State) CumulativeReturn() float64 {
	return (s.equity - s.initialEquity) / s.initialEquity
}

// TradesToday returns the count of positions opened this session
func (s *State) TradesToday() int { return s.tradesToday }

// ConsecutiveLosses returns the current loss streak
func (s *State) ConsecutiveLosses() int { return s.consecutiveLosses }

// OpenRisk returns the sum of risk amounts across open positions
func (s *State) OpenRisk() float64 {
	var total float64
	for _, pos := range s.positions {
		total += pos.RiskAmount
	}
	return total
}

// Heat returns aggregate open risk as a fraction of equity
func (s *State) Heat() float64 {
	if s.equity <= 0 {
		return 0
	}
	return s.OpenRisk() / s.equity
}

// SymbolExposurePct returns the symbol's notional as a fraction of equity
func (s *State) SymbolExposurePct(symbol string, currentPrice float64) float64 {
	pos, ok := s.positions[symbol]
	if !ok || s.equity <= 0 {
		return 0
	}
	return pos.Notional(currentPrice) / s.equity
}

// RollSession resets daily counters when now crosses a session boundary.
// The reset happens exactly once per new session date.
func (s *State) RollSession(now time.Time) bool {
	if types.SameSession(s.sessionDate, now) {
		return false
	}
	s.sessionDate = now
	s.dailyPnL = 0
	s.tradesToday = 0
	return true
}
