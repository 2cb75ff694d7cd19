// Command ledger-query inspects a trade ledger file: filter records, print a
// console table and summary, or export to CSV, JSONL or XLSX.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ducminhle1904/swing-trader/internal/ledger"
	"github.com/ducminhle1904/swing-trader/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ledger-query: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		path       = flag.String("ledger", "data/ledger.jsonl", "path to the ledger file")
		symbol     = flag.String("symbol", "", "filter by symbol")
		class      = flag.String("classification", "", "filter by exit classification (SWING_EXIT, EMERGENCY_EXIT)")
		from       = flag.String("from", "", "filter by exit date, inclusive (YYYY-MM-DD)")
		to         = flag.String("to", "", "filter by exit date, inclusive (YYYY-MM-DD)")
		minPnL     = flag.Float64("min-pnl", 0, "minimum net P&L")
		maxPnL     = flag.Float64("max-pnl", 0, "maximum net P&L")
		summary    = flag.Bool("summary", false, "print summary statistics only")
		exportPath = flag.String("export", "", "export matches to a file (.csv, .jsonl or .xlsx)")
	)
	flag.Parse()

	log := logger.New("warn", os.Stderr)
	book, err := ledger.Open(*path, log)
	if err != nil {
		return err
	}

	filter := ledger.Filter{Symbol: *symbol, Classification: *class}
	if *from != "" {
		t, err := time.Parse("2006-01-02", *from)
		if err != nil {
			return fmt.Errorf("invalid -from date: %w", err)
		}
		filter.From = &t
	}
	if *to != "" {
		t, err := time.Parse("2006-01-02", *to)
		if err != nil {
			return fmt.Errorf("invalid -to date: %w", err)
		}
		// inclusive through the end of the named session
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	if flagWasSet("min-pnl") {
		filter.MinNetPnL = minPnL
	}
	if flagWasSet("max-pnl") {
		filter.MaxNetPnL = maxPnL
	}

	trades := book.Query(filter)

	if *exportPath != "" {
		return export(trades, *exportPath)
	}

	if !*summary {
		if len(trades) == 0 {
			fmt.Println("no matching records")
			return nil
		}
		ledger.RenderTable(trades, os.Stdout)
	}
	ledger.RenderSummary(ledger.Summarize(trades), os.Stdout)
	return nil
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func export(trades []ledger.Trade, path string) error {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".jsonl"):
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return ledger.WriteJSONL(trades, f)
	default:
		// WriteCSV routes .xlsx paths to the Excel writer
		return ledger.WriteCSV(trades, path)
	}
}
