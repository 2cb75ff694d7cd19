package ledger

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{
	"ID", "Kind", "Symbol", "Side", "Entry_Time", "Entry_Price", "Quantity",
	"Exit_Time", "Exit_Price", "Classification", "Reason", "Holding_Days",
	"Gross_PnL", "Gross_PnL_Pct", "Net_PnL", "Net_PnL_Pct", "Fees", "Confidence", "Risk_Amount",
}

func exportRow(t Trade) []string {
	return []string{
		t.ID,
		string(t.Kind),
		t.Symbol,
		t.Side,
		t.EntryTime.Format("2006-01-02 15:04:05"),
		fmt.Sprintf("%.4f", t.EntryPrice),
		fmt.Sprintf("%.4f", t.Quantity),
		t.ExitTime.Format("2006-01-02 15:04:05"),
		fmt.Sprintf("%.4f", t.ExitPrice),
		t.Classification,
		t.Reason,
		strconv.Itoa(t.HoldingDays),
		fmt.Sprintf("%.2f", t.GrossPnL),
		fmt.Sprintf("%.2f%%", t.GrossPnLPct*100),
		fmt.Sprintf("%.2f", t.NetPnL),
		fmt.Sprintf("%.2f%%", t.PnLPct*100),
		fmt.Sprintf("%.2f", t.Fees),
		strconv.Itoa(t.Confidence),
		fmt.Sprintf("%.2f", t.RiskAmount),
	}
}

// WriteCSV writes trades as a flat tabular file. An .xlsx path delegates to
// the Excel writer.
func WriteCSV(trades []Trade, path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return WriteXLSX(trades, path)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(exportHeader); err != nil {
		return err
	}
	for _, t := range trades {
		if err := w.Write(exportRow(t)); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSONL writes trades as one JSON record per line
func WriteJSONL(trades []Trade, out io.Writer) error {
	enc := json.NewEncoder(out)
	for _, t := range trades {
		if err := enc.Encode(t); err != nil {
			return err
		}
	}
	return nil
}

// WriteXLSX writes trades to an Excel workbook with a trades sheet and a
// summary sheet
func WriteXLSX(trades []Trade, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const tradesSheet = "Trades"
	const summarySheet = "Summary"
	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	fx.NewSheet(summarySheet)

	for col, h := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		fx.SetCellValue(tradesSheet, cell, h)
	}
	for row, t := range trades {
		for col, v := range exportRow(t) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			fx.SetCellValue(tradesSheet, cell, v)
		}
	}

	stats := statsOf(trades)
	summaryRows := [][]interface{}{
		{"Trades", stats.Trades},
		{"Win Rate", fmt.Sprintf("%.1f%%", stats.WinRate*100)},
		{"Total Net PnL", fmt.Sprintf("%.2f", stats.TotalNetPnL)},
		{"Avg Net PnL", fmt.Sprintf("%.2f", stats.AvgNetPnL)},
		{"Avg PnL %", fmt.Sprintf("%.2f%%", stats.AvgPnLPct*100)},
		{"Avg Holding Days", fmt.Sprintf("%.1f", stats.AvgHoldingDays)},
		{"Total Fees", fmt.Sprintf("%.2f", stats.TotalFees)},
	}
	for class, count := range stats.ByClassification {
		summaryRows = append(summaryRows, []interface{}{class, count})
	}
	for row, pair := range summaryRows {
		keyCell, _ := excelize.CoordinatesToCellName(1, row+1)
		valCell, _ := excelize.CoordinatesToCellName(2, row+1)
		fx.SetCellValue(summarySheet, keyCell, pair[0])
		fx.SetCellValue(summarySheet, valCell, pair[1])
	}

	return fx.SaveAs(path)
}

// RenderTable renders trades as a console table
func RenderTable(trades []Trade, out io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Entry", "Exit", "Days", "Class", "Reason", "Net PnL", "PnL %"})
	for _, tr := range trades {
		t.AppendRow(table.Row{
			tr.Symbol,
			tr.EntryTime.Format("2006-01-02"),
			tr.ExitTime.Format("2006-01-02"),
			tr.HoldingDays,
			tr.Classification,
			tr.Reason,
			fmt.Sprintf("%.2f", tr.NetPnL),
			fmt.Sprintf("%.2f%%", tr.PnLPct*100),
		})
	}
	t.Render()
}

// RenderSummary renders ledger statistics as a console table
func RenderSummary(stats Stats, out io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("LEDGER SUMMARY")
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Trades", stats.Trades},
		{"Win Rate", fmt.Sprintf("%.1f%%", stats.WinRate*100)},
		{"Total Net PnL", fmt.Sprintf("%.2f", stats.TotalNetPnL)},
		{"Avg Net PnL", fmt.Sprintf("%.2f", stats.AvgNetPnL)},
		{"Avg PnL %", fmt.Sprintf("%.2f%%", stats.AvgPnLPct*100)},
		{"Avg Holding Days", fmt.Sprintf("%.1f", stats.AvgHoldingDays)},
	})
	for class, count := range stats.ByClassification {
		t.AppendRow(table.Row{class, count})
	}
	t.Render()
}

// Summarize computes summary statistics for an arbitrary trade slice, such
// as a filtered query result
func Summarize(trades []Trade) Stats {
	return statsOf(trades)
}

// statsOf computes summary statistics for an arbitrary trade slice
func statsOf(trades []Trade) Stats {
	stats := Stats{ByClassification: make(map[string]int)}
	var sumPct, sumDays float64
	for _, t := range trades {
		if t.Kind != KindTrade {
			continue
		}
		stats.Trades++
		stats.TotalNetPnL += t.NetPnL
		stats.TotalFees += t.Fees
		sumPct += t.PnLPct
		sumDays += float64(t.HoldingDays)
		if t.NetPnL > 0 {
			stats.Wins++
		}
		stats.ByClassification[t.Classification]++
	}
	if stats.Trades > 0 {
		n := float64(stats.Trades)
		stats.WinRate = float64(stats.Wins) / n
		stats.AvgNetPnL = stats.TotalNetPnL / n
		stats.AvgPnLPct = sumPct / n
		stats.AvgHoldingDays = sumDays / n
	}
	return stats
}
