package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Decision metrics
	tradeDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swing_engine_trade_decisions_total",
			Help: "Entry-admission decisions by outcome and reason code",
		},
		[]string{"symbol", "outcome", "reason"},
	)

	scalingDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swing_engine_scaling_decisions_total",
			Help: "Scaling decisions by outcome and reason code",
		},
		[]string{"symbol", "outcome", "reason"},
	)

	exitSignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swing_engine_exit_signals_total",
			Help: "Exit signals by classification and reason",
		},
		[]string{"symbol", "classification", "reason"},
	)

	// Ledger metrics
	ledgerAppendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swing_engine_ledger_appends_total",
			Help: "Ledger appends by persistence status",
		},
		[]string{"status"},
	)

	holdingDays = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swing_engine_holding_days",
			Help:    "Distribution of holding days for closed trades",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	// Portfolio metrics
	equity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "swing_engine_equity",
			Help: "Current scope equity",
		},
	)

	portfolioHeat = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "swing_engine_portfolio_heat",
			Help: "Aggregate open risk as a fraction of equity",
		},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "swing_engine_open_positions",
			Help: "Number of open positions",
		},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swing_engine_errors_total",
			Help: "Errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(tradeDecisionsTotal)
	prometheus.MustRegister(scalingDecisionsTotal)
	prometheus.MustRegister(exitSignalsTotal)
	prometheus.MustRegister(ledgerAppendsTotal)
	prometheus.MustRegister(holdingDays)
	prometheus.MustRegister(equity)
	prometheus.MustRegister(portfolioHeat)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler serves the Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordTradeDecision records an entry-admission decision
func RecordTradeDecision(symbol string, approved bool, reason string) {
	outcome := "approved"
	if !approved {
		outcome = "rejected"
	}
	tradeDecisionsTotal.WithLabelValues(symbol, outcome, reason).Inc()
}

// RecordScalingDecision records a scaling decision
func RecordScalingDecision(symbol, outcome, reason string) {
	scalingDecisionsTotal.WithLabelValues(symbol, outcome, reason).Inc()
}

// RecordExitSignal records an exit signal
func RecordExitSignal(symbol, classification, reason string) {
	exitSignalsTotal.WithLabelValues(symbol, classification, reason).Inc()
}

// RecordLedgerAppend records a ledger append attempt
func RecordLedgerAppend(ok bool, days int) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	ledgerAppendsTotal.WithLabelValues(status).Inc()
	holdingDays.Observe(float64(days))
}

// UpdatePortfolio updates the portfolio gauges
func UpdatePortfolio(equityValue, heat float64, positions int) {
	equity.Set(equityValue)
	portfolioHeat.Set(heat)
	openPositions.Set(float64(positions))
}

// RecordError records an error by category
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
