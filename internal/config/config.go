package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the process configuration for one engine scope
type Config struct {
	Environment string
	LogLevel    string

	Scope struct {
		Mode       string
		Market     string
		Instrument string
	}

	Portfolio struct {
		InitialEquity float64
	}

	Risk struct {
		RiskPerTrade         float64
		MaxConsecutiveLosses int
		MaxDailyLossPct      float64
		MaxTradesPerDay      int
		MaxSymbolExposurePct float64
		MaxPortfolioHeatPct  float64
	}

	Execution struct {
		SlippageBps    float64
		CommissionRate float64
		MaxADVPct      float64
	}

	Engine struct {
		TickInterval      time.Duration
		EODSchedule       string // cron expression for end-of-day evaluation
		LedgerPath        string
		SignalsPath       string // optional JSONL entry-signal feed
		MaintenanceWindow string // optional daily "HH:MM-HH:MM" halt, market-local
	}

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
	}
}

// Load reads configuration from the environment with defaults
func Load() *Config {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	cfg.Scope.Mode = getEnv("SCOPE_MODE", "swing")
	cfg.Scope.Market = getEnv("SCOPE_MARKET", "us_equity")
	cfg.Scope.Instrument = getEnv("SCOPE_INSTRUMENT", "stock")

	cfg.Portfolio.InitialEquity = getEnvFloat("INITIAL_EQUITY", 100000)

	cfg.Risk.RiskPerTrade = getEnvFloat("RISK_PER_TRADE", 0.01)
	cfg.Risk.MaxConsecutiveLosses = getEnvInt("MAX_CONSECUTIVE_LOSSES", 3)
	cfg.Risk.MaxDailyLossPct = getEnvFloat("MAX_DAILY_LOSS_PCT", 0.02)
	cfg.Risk.MaxTradesPerDay = getEnvInt("MAX_TRADES_PER_DAY", 3)
	cfg.Risk.MaxSymbolExposurePct = getEnvFloat("MAX_SYMBOL_EXPOSURE_PCT", 0.10)
	cfg.Risk.MaxPortfolioHeatPct = getEnvFloat("MAX_PORTFOLIO_HEAT_PCT", 0.06)

	cfg.Execution.SlippageBps = getEnvFloat("SLIPPAGE_BPS", 10)
	cfg.Execution.CommissionRate = getEnvFloat("COMMISSION_RATE", 0.0005)
	cfg.Execution.MaxADVPct = getEnvFloat("MAX_ADV_PCT", 0.01)

	cfg.Engine.TickInterval = getEnvDuration("TICK_INTERVAL", time.Minute)
	cfg.Engine.EODSchedule = getEnv("EOD_SCHEDULE", "15 16 * * 1-5")
	cfg.Engine.LedgerPath = getEnv("LEDGER_PATH", "data/ledger.jsonl")
	cfg.Engine.SignalsPath = getEnv("SIGNALS_PATH", "")
	cfg.Engine.MaintenanceWindow = getEnv("MAINTENANCE_WINDOW", "")

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	return cfg
}

// Validate reports configuration problems before the engine constructs
func (c *Config) Validate() error {
	if c.Portfolio.InitialEquity <= 0 {
		return fmt.Errorf("INITIAL_EQUITY must be positive, got %v", c.Portfolio.InitialEquity)
	}
	if c.Risk.RiskPerTrade <= 0 || c.Risk.RiskPerTrade > 0.1 {
		return fmt.Errorf("RISK_PER_TRADE must be in (0,0.1], got %v", c.Risk.RiskPerTrade)
	}
	if c.Execution.SlippageBps < 0 {
		return fmt.Errorf("SLIPPAGE_BPS must be non-negative, got %v", c.Execution.SlippageBps)
	}
	if c.Engine.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %v", c.Engine.TickInterval)
	}
	if c.Engine.LedgerPath == "" {
		return fmt.Errorf("LEDGER_PATH must not be empty")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
