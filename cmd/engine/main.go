package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/swing-trader/internal/config"
	"github.com/ducminhle1904/swing-trader/internal/engine"
	"github.com/ducminhle1904/swing-trader/internal/execution"
	"github.com/ducminhle1904/swing-trader/internal/logger"
	"github.com/ducminhle1904/swing-trader/internal/monitoring"
	"github.com/ducminhle1904/swing-trader/internal/policy"
	"github.com/ducminhle1904/swing-trader/internal/risk"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; the environment wins either way
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(cfg.LogLevel, os.Stdout)

	var maintenance []policy.MaintenanceWindow
	if cfg.Engine.MaintenanceWindow != "" {
		w, err := policy.ParseMaintenanceWindow(cfg.Engine.MaintenanceWindow)
		if err != nil {
			return fmt.Errorf("invalid MAINTENANCE_WINDOW: %w", err)
		}
		maintenance = append(maintenance, w)
	}
	registry, err := policy.DefaultRegistry(maintenance...)
	if err != nil {
		return fmt.Errorf("failed to build policy registry: %w", err)
	}

	scope := policy.Scope{
		Mode:       cfg.Scope.Mode,
		Market:     cfg.Scope.Market,
		Instrument: cfg.Scope.Instrument,
	}

	riskCfg := risk.Config{
		RiskPerTrade:         cfg.Risk.RiskPerTrade,
		MaxConsecutiveLosses: cfg.Risk.MaxConsecutiveLosses,
		MaxDailyLossPct:      cfg.Risk.MaxDailyLossPct,
		MaxTradesPerDay:      cfg.Risk.MaxTradesPerDay,
		MaxSymbolExposurePct: cfg.Risk.MaxSymbolExposurePct,
		MaxPortfolioHeatPct:  cfg.Risk.MaxPortfolioHeatPct,
	}
	execModel := execution.Model{
		SlippageBps:    cfg.Execution.SlippageBps,
		CommissionRate: cfg.Execution.CommissionRate,
		MaxADVPct:      cfg.Execution.MaxADVPct,
	}

	health := monitoring.NewHealthChecker(scope.String())

	// The engine refuses to start without a price source
	prices, sim, signals, err := loadCollaborators(execModel, cfg.Engine.SignalsPath, log)
	if err != nil {
		return fmt.Errorf("failed to wire collaborators for scope %s: %w", scope, err)
	}

	runner, err := engine.NewRunner(
		scope, registry, riskCfg,
		cfg.Portfolio.InitialEquity,
		execModel, cfg.Engine.LedgerPath,
		prices, sim, sim,
		health, log, time.Now(),
	)
	if err != nil {
		// unregistered scopes and bad config die here, before any evaluation
		return err
	}
	sim.attach(runner)
	if signals != nil {
		runner.SetEntrySource(signals, sim)
	}

	go serveHTTP(cfg.Monitoring.PrometheusPort, "/metrics", monitoring.NewMetricsHandler())
	go serveHTTP(cfg.Monitoring.HealthPort, "/health", health)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	return runner.Run(ctx, cfg.Engine.TickInterval, cfg.Engine.EODSchedule)
}

func serveHTTP(port int, path string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	_ = srv.ListenAndServe()
}
