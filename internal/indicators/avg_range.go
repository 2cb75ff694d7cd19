package indicators

import (
	"errors"

	"github.com/ducminhle1904/swing-trader/pkg/types"
)

// AvgRange is the mean true range over a trailing window, in price units.
// It is the volatility measure behind the emergency stop and the scaling
// volatility-regime check.
type AvgRange struct {
	period int
}

// NewAvgRange creates an average-range indicator with the given period
func NewAvgRange(period int) *AvgRange {
	return &AvgRange{period: period}
}

// Calculate averages the true range over the trailing period. With fewer bars
// than the period it averages what exists rather than failing, since a partial
// range estimate is still usable for stop placement.
func (a *AvgRange) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) == 0 {
		return 0, errors.New("no data for range calculation")
	}
	start := 0
	if len(data) > a.period {
		start = len(data) - a.period
	}
	sum := 0.0
	count := 0
	for i := start; i < len(data); i++ {
		sum += trueRange(data[i], data[max(i-1, 0)].Close, i == 0)
		count++
	}
	return sum / float64(count), nil
}

// trueRange is the session range widened by any gap from the prior close
func trueRange(bar types.OHLCV, prevClose float64, first bool) float64 {
	tr := bar.High - bar.Low
	if first {
		return tr
	}
	if d := bar.High - prevClose; d > tr {
		tr = d
	}
	if d := prevClose - bar.Low; d > tr {
		tr = d
	}
	return tr
}
