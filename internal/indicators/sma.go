// Package indicators provides the small set of technical measures the
// decision components consume: a trend-reference moving average and a
// recent-range volatility estimate.
package indicators

import (
	"errors"

	"github.com/ducminhle1904/swing-trader/pkg/types"
)

// SMA is a simple moving average over session closes
type SMA struct {
	period int
}

// NewSMA creates an SMA indicator with the given period
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Calculate returns the average close over the trailing period
func (s *SMA) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) < s.period {
		return 0, errors.New("insufficient data for SMA calculation")
	}
	sum := 0.0
	for i := len(data) - s.period; i < len(data); i++ {
		sum += data[i].Close
	}
	return sum / float64(s.period), nil
}

// Period returns the configured lookback
func (s *SMA) Period() int { return s.period }
