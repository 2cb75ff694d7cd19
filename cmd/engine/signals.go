package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swing-trader/internal/engine"
	"github.com/ducminhle1904/swing-trader/internal/errors"
	"github.com/ducminhle1904/swing-trader/internal/logger"
	"github.com/ducminhle1904/swing-trader/internal/portfolio"
)

// entrySignalRecord is one line of the signals file
type entrySignalRecord struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"` // long (default) or short
	Date       string  `json:"date"` // session the signal was raised, YYYY-MM-DD
	Price      float64 `json:"price"`
	Confidence int     `json:"confidence"`
}

// fileEntrySource replays entry signals from a JSONL file, releasing each one
// on the first open-session tick at or after its date. Unreadable lines are
// skipped with a warning; the feed stays usable.
type fileEntrySource struct {
	log     zerolog.Logger
	pending []engine.EntrySignal
}

func newFileEntrySource(path string, log zerolog.Logger) (*fileEntrySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataError("signals", "open", err)
	}
	defer f.Close()

	src := &fileEntrySource{log: logger.ForComponent(log, "signals")}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec entrySignalRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			src.log.Warn().Int("line", line).Err(err).Msg("skipping unreadable signal")
			continue
		}
		ts, err := time.Parse("2006-01-02", rec.Date)
		if err != nil || rec.Symbol == "" {
			src.log.Warn().Int("line", line).Msg("skipping signal with bad date or symbol")
			continue
		}
		side := portfolio.SideLong
		if strings.EqualFold(rec.Side, string(portfolio.SideShort)) {
			side = portfolio.SideShort
		}
		src.pending = append(src.pending, engine.EntrySignal{
			Symbol:     strings.ToUpper(rec.Symbol),
			Side:       side,
			Price:      rec.Price,
			Confidence: rec.Confidence,
			Timestamp:  ts,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewDataError("signals", "read", err)
	}
	sort.SliceStable(src.pending, func(i, j int) bool {
		return src.pending[i].Timestamp.Before(src.pending[j].Timestamp)
	})
	src.log.Info().Int("signals", len(src.pending)).Str("path", path).Msg("entry signal feed loaded")
	return src, nil
}

// PendingEntries releases every signal due by now. Released signals are
// consumed; the runner decides admission.
func (s *fileEntrySource) PendingEntries(now time.Time) ([]engine.EntrySignal, error) {
	cut := sort.Search(len(s.pending), func(i int) bool {
		return s.pending[i].Timestamp.After(now)
	})
	if cut == 0 {
		return nil, nil
	}
	due := s.pending[:cut]
	s.pending = s.pending[cut:]
	return due, nil
}
