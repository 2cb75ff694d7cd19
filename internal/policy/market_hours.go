package policy

import (
	"fmt"
	"strings"
	"time"
)

// MaintenanceWindow is a recurring daily window during which new-entry and
// scaling evaluation is suspended. Emergency evaluation is never suspended.
type MaintenanceWindow struct {
	Start time.Duration `json:"start"` // offset from midnight, market-local
	End   time.Duration `json:"end"`
}

// ParseMaintenanceWindow parses a daily "HH:MM-HH:MM" window, market-local
func ParseMaintenanceWindow(s string) (MaintenanceWindow, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return MaintenanceWindow{}, fmt.Errorf("maintenance window %q must be HH:MM-HH:MM", s)
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return MaintenanceWindow{}, err
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return MaintenanceWindow{}, err
	}
	if end <= start {
		return MaintenanceWindow{}, fmt.Errorf("maintenance window %q must end after it starts", s)
	}
	return MaintenanceWindow{Start: start, End: end}, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (w MaintenanceWindow) contains(t time.Time) bool {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := t.Sub(midnight)
	return offset >= w.Start && offset < w.End
}

// EquityHours models a weekday cash session (e.g. 09:30-16:00 market-local)
type EquityHours struct {
	openOffset  time.Duration
	closeOffset time.Duration
	maintenance []MaintenanceWindow
	location    *time.Location
}

// NewEquityHours creates a weekday session-hours policy. loc nil means UTC.
func NewEquityHours(open, close time.Duration, loc *time.Location, maintenance ...MaintenanceWindow) *EquityHours {
	if loc == nil {
		loc = time.UTC
	}
	return &EquityHours{
		openOffset:  open,
		closeOffset: close,
		maintenance: maintenance,
		location:    loc,
	}
}

func (h *EquityHours) Name() string { return "equity_hours" }

func (h *EquityHours) IsOpen(t time.Time) bool {
	local := t.In(h.location)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, h.location)
	offset := local.Sub(midnight)
	return offset >= h.openOffset && offset < h.closeOffset
}

func (h *EquityHours) IsMaintenance(t time.Time) bool {
	local := t.In(h.location)
	for _, w := range h.maintenance {
		if w.contains(local) {
			return true
		}
	}
	return false
}

// ContinuousHours models a 24/7 market with optional maintenance windows
type ContinuousHours struct {
	maintenance []MaintenanceWindow
}

// NewContinuousHours creates an always-open market-hours policy
func NewContinuousHours(maintenance ...MaintenanceWindow) *ContinuousHours {
	return &ContinuousHours{maintenance: maintenance}
}

func (h *ContinuousHours) Name() string           { return "continuous_hours" }
func (h *ContinuousHours) IsOpen(time.Time) bool  { return true }

func (h *ContinuousHours) IsMaintenance(t time.Time) bool {
	for _, w := range h.maintenance {
		if w.contains(t.UTC()) {
			return true
		}
	}
	return false
}
