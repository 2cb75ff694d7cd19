// Package data provides file-backed price collaborators for simulation and
// backtesting. Each symbol is one CSV of completed daily sessions.
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swing-trader/internal/errors"
	"github.com/ducminhle1904/swing-trader/internal/indicators"
	"github.com/ducminhle1904/swing-trader/internal/logger"
	"github.com/ducminhle1904/swing-trader/pkg/types"
)

const (
	dateFormat  = "2006-01-02"
	advWindow   = 20
	rangeWindow = 14
)

// CSVPriceProvider serves session history from per-symbol CSV files
// (<dir>/<SYMBOL>.csv with a date,open,high,low,close,volume header).
type CSVPriceProvider struct {
	dir   string
	log   zerolog.Logger
	cache map[string][]types.OHLCV
}

// NewCSVPriceProvider creates a provider rooted at dir
func NewCSVPriceProvider(dir string, log zerolog.Logger) (*CSVPriceProvider, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("data directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data path %s is not a directory", dir)
	}
	return &CSVPriceProvider{
		dir:   dir,
		log:   logger.ForComponent(log, "data"),
		cache: make(map[string][]types.OHLCV),
	}, nil
}

// History returns ordered completed session bars, oldest first
func (p *CSVPriceProvider) History(symbol string) ([]types.OHLCV, error) {
	if bars, ok := p.cache[symbol]; ok {
		return bars, nil
	}
	bars, err := p.load(symbol)
	if err != nil {
		return nil, err
	}
	p.cache[symbol] = bars
	return bars, nil
}

// Quote returns the latest session close
func (p *CSVPriceProvider) Quote(symbol string) (float64, error) {
	bars, err := p.History(symbol)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, errors.NewValidationError("data", "quote", "no sessions for "+symbol)
	}
	return bars[len(bars)-1].Close, nil
}

// RecentRange returns the average true range over the recent window
func (p *CSVPriceProvider) RecentRange(symbol string) (float64, error) {
	bars, err := p.History(symbol)
	if err != nil {
		return 0, err
	}
	rng, err := indicators.NewAvgRange(rangeWindow).Calculate(bars)
	if err != nil {
		return 0, errors.NewValidationError("data", "recent_range", "no sessions for "+symbol)
	}
	return rng, nil
}

// AvgDailyDollarVolume returns mean close*volume over the recent window
func (p *CSVPriceProvider) AvgDailyDollarVolume(symbol string) (float64, error) {
	bars, err := p.History(symbol)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, errors.NewValidationError("data", "adv", "no sessions for "+symbol)
	}
	window := bars
	if len(window) > advWindow {
		window = window[len(window)-advWindow:]
	}
	var sum float64
	for _, b := range window {
		sum += b.Close * b.Volume
	}
	return sum / float64(len(window)), nil
}

// load reads and validates one symbol file. Rows with unparseable or
// non-finite values are skipped with a warning; the symbol stays usable.
func (p *CSVPriceProvider) load(symbol string) ([]types.OHLCV, error) {
	path := filepath.Join(p.dir, strings.ToUpper(symbol)+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataError("data", "load", fmt.Errorf("no data file for %s: %w", symbol, err))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if _, err := reader.Read(); err != nil {
		return nil, errors.NewDataError("data", "load", fmt.Errorf("unreadable header in %s: %w", path, err))
	}

	var bars []types.OHLCV
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewDataError("data", "load", fmt.Errorf("read error in %s line %d: %w", path, line, err))
		}
		line++
		if len(record) < 6 {
			p.log.Warn().Str("symbol", symbol).Int("line", line).Msg("skipping short row")
			continue
		}
		date, err := time.Parse(dateFormat, record[0])
		if err != nil {
			p.log.Warn().Str("symbol", symbol).Int("line", line).Err(err).Msg("skipping row with bad date")
			continue
		}
		vals := make([]float64, 5)
		bad := false
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(record[i+1], 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				p.log.Warn().Str("symbol", symbol).Int("line", line).Msg("skipping row with bad value")
				bad = true
				break
			}
			vals[i] = v
		}
		if bad {
			continue
		}
		bars = append(bars, types.OHLCV{
			Date: date, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
