package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker reports scope liveness for operators
type HealthChecker struct {
	mu            sync.RWMutex
	scope         string
	lastTick      time.Time
	openPositions int
	maintenance   bool
	errors        []string
}

// HealthStatus is the JSON shape served at the health endpoint
type HealthStatus struct {
	Status        string    `json:"status"`
	Scope         string    `json:"scope"`
	Timestamp     time.Time `json:"timestamp"`
	LastTick      time.Time `json:"last_tick"`
	OpenPositions int       `json:"open_positions"`
	Maintenance   bool      `json:"maintenance"`
	Uptime        string    `json:"uptime"`
	Errors        []string  `json:"errors,omitempty"`
}

// NewHealthChecker creates a health checker for one scope
func NewHealthChecker(scope string) *HealthChecker {
	return &HealthChecker{
		scope:  scope,
		errors: make([]string, 0),
	}
}

// RecordTick marks a completed evaluation tick
func (h *HealthChecker) RecordTick(openPositions int, maintenance bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastTick = time.Now()
	h.openPositions = openPositions
	h.maintenance = maintenance
	h.errors = h.errors[:0]
}

// RecordError surfaces a recoverable error on the health endpoint
func (h *HealthChecker) RecordError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// resolve status before touching the response: the header is written once
	status := "healthy"
	code := http.StatusOK
	if h.lastTick.IsZero() || time.Since(h.lastTick) > time.Hour {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	if len(h.errors) > 0 {
		status = "unhealthy"
		code = http.StatusInternalServerError
	}

	health := HealthStatus{
		Status:        status,
		Scope:         h.scope,
		Timestamp:     time.Now(),
		LastTick:      h.lastTick,
		OpenPositions: h.openPositions,
		Maintenance:   h.maintenance,
		Uptime:        time.Since(startTime).String(),
		Errors:        h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}
