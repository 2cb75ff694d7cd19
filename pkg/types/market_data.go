package types

import "time"

// OHLCV is one completed trading session for a symbol.
// Date is the session date; intraday consumers only ever see closed bars.
type OHLCV struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// SameSession reports whether two timestamps fall on the same session date.
func SameSession(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SessionsBetween returns the number of calendar days between entry and now.
// A position opened and evaluated on the same date has 0 holding days.
func SessionsBetween(entry, now time.Time) int {
	e := time.Date(entry.Year(), entry.Month(), entry.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(n.Sub(e).Hours() / 24)
}
