// Crossover Bot — an event-driven trading simulator and live-trading
// engine for a moving-average crossover strategy.
//
// Architecture:
//
//	main.go               — entry point: loads config, runs the engine, persists the report
//	engine/engine.go      — orchestrator: exchange stream → pipeline → report fold
//	pipeline/stage.go     — stage runtime: one goroutine per actor, causal metadata stamping
//	pipeline/chain.go     — chain builder: wires stages with channels, returns tail receiver
//	strategy/…            — actors: sliding/windowed average, crossover decision, trader
//	exchange/sim.go       — deterministic candle-file exchange for backtests
//	exchange/live.go      — live venue: WebSocket ticker + HMAC-signed REST orders
//	store/store.go        — JSON file persistence for run reports
//
// How it trades:
//
//	Live prices are smoothed into a moving average. When the price crosses
//	the average upwards past the hysteresis band, the full quote balance is
//	converted to base (Buy); crossing downwards converts it back (Sell).
//	Every message carries causal metadata, so each order executes at the
//	price of the tick that triggered it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crossbot/internal/config"
	"crossbot/internal/engine"
	"crossbot/internal/exchange"
	"crossbot/internal/pipeline"
	"crossbot/internal/store"
	"crossbot/pkg/types"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("CROSS_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Set up logger
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	clock := pipeline.SystemClock{}
	ids := pipeline.RandomIDs{}

	ex, err := buildExchange(cfg, clock, ids, logger)
	if err != nil {
		logger.Error("failed to build exchange", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	logger.Info("crossover bot starting",
		"mode", cfg.Mode,
		"pair", cfg.Pair.ID,
		"window", cfg.Strategy.Window,
		"offset", cfg.Strategy.Offset,
	)

	// In live mode SIGINT/SIGTERM ends the event stream, which flows a
	// Shutdown through the pipeline; backtests end on their own.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := engine.New(*cfg, ex, clock, ids, logger).Run(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	runID := fmt.Sprintf("%d", time.Now().Unix())
	if err := st.SaveReport(runID, *report); err != nil {
		logger.Error("failed to save report", "error", err)
		os.Exit(1)
	}
	if removed, err := st.Prune(cfg.Store.KeepRuns); err != nil {
		logger.Warn("failed to prune run history", "error", err)
	} else if removed > 0 {
		logger.Info("pruned run history", "removed", removed, "kept", cfg.Store.KeepRuns)
	}

	logger.Info("report saved",
		"run_id", runID,
		"final_wealth", report.FinalWealth,
		"baseline_wealth", report.BaselineWealth,
		"trades", report.Trades,
	)
}

// buildExchange selects the venue implementation for the configured mode.
func buildExchange(cfg *config.Config, clock pipeline.TimeProvider, ids pipeline.IDProvider, logger *slog.Logger) (exchange.Exchange, error) {
	if cfg.Mode == config.ModeLive {
		return exchange.NewLive(
			exchange.LiveConfig{
				RESTBaseURL: cfg.API.RESTURL,
				WSURL:       cfg.API.WSURL,
				Pair:        cfg.Pair.ID,
				Base:        cfg.Pair.Base,
				Quote:       cfg.Pair.Quote,
			},
			exchange.Credentials{
				APIKey:     cfg.API.APIKey,
				Secret:     cfg.API.Secret,
				Passphrase: cfg.API.Passphrase,
			},
			ids.Clone(),
			clock.Clone(),
			logger,
		), nil
	}

	candles, err := exchange.LoadCandles(cfg.Backtest.CandleFile)
	if err != nil {
		return nil, err
	}
	return exchange.NewSimulated(
		candles,
		cfg.Pair.ID,
		types.Asset{Name: cfg.Pair.Quote, Amount: cfg.Backtest.StartingQuote},
		cfg.Backtest.Fee,
		ids.Clone(),
		clock.Clone(),
	), nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
