package policy

import (
	"fmt"
	"time"
)

// ScalingParams configures an entry-timing policy
type ScalingParams struct {
	AllowScaling          bool          `json:"allow_scaling"`
	MaxEntries            int           `json:"max_entries"`
	MaxPositionPct        float64       `json:"max_position_pct"`
	MaxTotalRiskPct       float64       `json:"max_total_risk_pct"`
	MinBarsBetweenEntries int           `json:"min_bars_between_entries"`
	MinTimeBetweenEntries time.Duration `json:"min_time_between_entries"`
	MinSignalQuality      float64       `json:"min_signal_quality"`
	MaxVolatilityPct      float64       `json:"max_volatility_pct"`
}

// DefaultScalingParams returns the standard swing scaling limits
func DefaultScalingParams() ScalingParams {
	return ScalingParams{
		AllowScaling:          true,
		MaxEntries:            3,
		MaxPositionPct:        0.20,
		MaxTotalRiskPct:       0.03,
		MinBarsBetweenEntries: 2,
		MinTimeBetweenEntries: 24 * time.Hour,
		MinSignalQuality:      0.6,
		MaxVolatilityPct:      0.08,
	}
}

func (p ScalingParams) validate() error {
	if !p.AllowScaling {
		return nil
	}
	if p.MaxEntries < 1 {
		return fmt.Errorf("max entries must be >= 1, got %d", p.MaxEntries)
	}
	if p.MaxPositionPct <= 0 || p.MaxPositionPct > 1 {
		return fmt.Errorf("max position pct must be in (0,1], got %v", p.MaxPositionPct)
	}
	if p.MaxTotalRiskPct <= 0 {
		return fmt.Errorf("max total risk pct must be positive, got %v", p.MaxTotalRiskPct)
	}
	if p.MinSignalQuality < 0 || p.MinSignalQuality > 1 {
		return fmt.Errorf("min signal quality must be in [0,1], got %v", p.MinSignalQuality)
	}
	return nil
}

// PyramidEntry adds to winners: each new entry must print at a strictly
// better price than the last one
type PyramidEntry struct {
	params ScalingParams
}

// NewPyramidEntry creates a pyramiding entry-timing policy
func NewPyramidEntry(params ScalingParams) (*PyramidEntry, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &PyramidEntry{params: params}, nil
}

func (p *PyramidEntry) Name() string                         { return "pyramid_entry" }
func (p *PyramidEntry) AllowScaling() bool                   { return p.params.AllowScaling }
func (p *PyramidEntry) Style() ScalingStyle                  { return StylePyramid }
func (p *PyramidEntry) MaxEntries() int                      { return p.params.MaxEntries }
func (p *PyramidEntry) MaxPositionPct() float64              { return p.params.MaxPositionPct }
func (p *PyramidEntry) MaxTotalRiskPct() float64             { return p.params.MaxTotalRiskPct }
func (p *PyramidEntry) MinBarsBetweenEntries() int           { return p.params.MinBarsBetweenEntries }
func (p *PyramidEntry) MinTimeBetweenEntries() time.Duration { return p.params.MinTimeBetweenEntries }
func (p *PyramidEntry) MinSignalQuality() float64            { return p.params.MinSignalQuality }
func (p *PyramidEntry) MaxVolatilityPct() float64            { return p.params.MaxVolatilityPct }

// AverageDownEntry adds at strictly worse prices, DCA style
type AverageDownEntry struct {
	params ScalingParams
}

// NewAverageDownEntry creates an averaging-down entry-timing policy
func NewAverageDownEntry(params ScalingParams) (*AverageDownEntry, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &AverageDownEntry{params: params}, nil
}

func (p *AverageDownEntry) Name() string                         { return "average_down_entry" }
func (p *AverageDownEntry) AllowScaling() bool                   { return p.params.AllowScaling }
func (p *AverageDownEntry) Style() ScalingStyle                  { return StyleAverageDown }
func (p *AverageDownEntry) MaxEntries() int                      { return p.params.MaxEntries }
func (p *AverageDownEntry) MaxPositionPct() float64              { return p.params.MaxPositionPct }
func (p *AverageDownEntry) MaxTotalRiskPct() float64             { return p.params.MaxTotalRiskPct }
func (p *AverageDownEntry) MinBarsBetweenEntries() int           { return p.params.MinBarsBetweenEntries }
func (p *AverageDownEntry) MinTimeBetweenEntries() time.Duration { return p.params.MinTimeBetweenEntries }
func (p *AverageDownEntry) MinSignalQuality() float64            { return p.params.MinSignalQuality }
func (p *AverageDownEntry) MaxVolatilityPct() float64            { return p.params.MaxVolatilityPct }

// NoScalingEntry declines all scaling attempts
type NoScalingEntry struct{}

func (p *NoScalingEntry) Name() string                         { return "no_scaling" }
func (p *NoScalingEntry) AllowScaling() bool                   { return false }
func (p *NoScalingEntry) Style() ScalingStyle                  { return StylePyramid }
func (p *NoScalingEntry) MaxEntries() int                      { return 1 }
func (p *NoScalingEntry) MaxPositionPct() float64              { return 0 }
func (p *NoScalingEntry) MaxTotalRiskPct() float64             { return 0 }
func (p *NoScalingEntry) MinBarsBetweenEntries() int           { return 0 }
func (p *NoScalingEntry) MinTimeBetweenEntries() time.Duration { return 0 }
func (p *NoScalingEntry) MinSignalQuality() float64            { return 0 }
func (p *NoScalingEntry) MaxVolatilityPct() float64            { return 0 }
