package policy

import "fmt"

// FixedHold caps holding duration at a fixed number of calendar days
type FixedHold struct {
	maxDays int
}

// NewFixedHold creates a fixed hold-duration policy
func NewFixedHold(maxDays int) (*FixedHold, error) {
	if maxDays <= 0 {
		return nil, fmt.Errorf("max holding days must be positive, got %d", maxDays)
	}
	return &FixedHold{maxDays: maxDays}, nil
}

func (h *FixedHold) Name() string        { return fmt.Sprintf("fixed_hold_%dd", h.maxDays) }
func (h *FixedHold) MaxHoldingDays() int { return h.maxDays }
