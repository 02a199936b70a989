// Package engine is the central orchestrator of the trading bot.
//
// It wires the venue's event stream into the actor pipeline and consumes
// the terminal channel:
//
//  1. The exchange (simulator or live) produces stamped envelopes ending
//     in one Shutdown.
//  2. The chain runs aggregator → crossover → trader, each as its own
//     goroutine.
//  3. The engine reads the complete causal log off the tail, folds it
//     into a wealth report, and returns when Shutdown has passed through.
//
// Lifecycle: New() → Run(ctx) → Report.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"crossbot/internal/config"
	"crossbot/internal/exchange"
	"crossbot/internal/pipeline"
	"crossbot/internal/strategy"
	"crossbot/pkg/types"
)

// Report summarizes one run: what the strategy ended up holding, what that
// is worth at the last observed price, and what buy-and-hold would have
// produced from the same starting balance.
type Report struct {
	Pair           types.PairID `json:"pair"`
	Events         int          `json:"events"`
	Buys           int          `json:"buys"`
	Sells          int          `json:"sells"`
	Trades         int          `json:"trades"` // executed orders (Bought + Sold)
	LatestPrice    types.Price  `json:"latest_price"`
	FinalBase      types.Amount `json:"final_base"`
	FinalQuote     types.Amount `json:"final_quote"`
	FinalWealth    float64      `json:"final_wealth"`
	BaselineWealth float64      `json:"baseline_wealth"`
}

// Engine runs one pipeline over one exchange.
type Engine struct {
	cfg    config.Config
	ex     exchange.Exchange
	clock  pipeline.TimeProvider
	ids    pipeline.IDProvider
	logger *slog.Logger
}

// New creates an engine for the given exchange.
func New(cfg config.Config, ex exchange.Exchange, clock pipeline.TimeProvider, ids pipeline.IDProvider, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		ex:     ex,
		clock:  clock,
		ids:    ids,
		logger: logger.With("component", "engine"),
	}
}

// aggregator picks the configured price smoother.
func (e *Engine) aggregator() pipeline.Actor {
	if e.cfg.Strategy.Averager == config.AveragerWindowed {
		return strategy.NewWindowedAverage(e.cfg.Strategy.Window)
	}
	return strategy.NewSlidingAverage(e.cfg.Strategy.Window, e.cfg.Strategy.Interval)
}

// Run starts the chain and blocks until the terminal Shutdown has been
// consumed. A cancelled ctx does not return early: it ends the run through
// the Shutdown the source emits. The returned report folds the complete
// output log.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	events, err := e.ex.EventStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("event stream: %w", err)
	}

	out := pipeline.NewChain(e.clock, e.ids, events, e.logger).
		Add(e.aggregator()).
		Add(strategy.NewCrossover(e.cfg.Strategy.Offset)).
		Add(strategy.NewTrader(e.ex, e.cfg.Pair.Base, e.cfg.Pair.Quote)).
		Start(ctx)

	e.logger.Info("pipeline started",
		"pair", e.cfg.Pair.ID,
		"averager", e.cfg.Strategy.Averager,
		"window", e.cfg.Strategy.Window,
		"offset", e.cfg.Strategy.Offset,
	)

	return e.consume(out)
}

// consume drains the terminal channel into a Report. It reads until the
// channel closes behind the Shutdown sentinel; cancellation reaches it
// in-band, via the source, never as an early exit. The starting quote
// balance anchors the buy-and-hold baseline at the first observed price.
func (e *Engine) consume(out <-chan types.Msg) (*Report, error) {
	report := &Report{Pair: e.cfg.Pair.ID}
	quoteAmount := e.cfg.Backtest.StartingQuote
	var baseAmount, baselineBase float64
	sawShutdown := false

	for msg := range out {
		report.Events++

		switch data := msg.Data.(type) {
		case types.LivePriceUpdated:
			report.LatestPrice = data.Price
			if baselineBase == 0 && data.Price > 0 {
				baselineBase = e.cfg.Backtest.StartingQuote / data.Price
			}

		case types.Buy:
			report.Buys++

		case types.Sell:
			report.Sells++

		case types.Bought:
			report.Trades++
			baseAmount, quoteAmount = data.Amount, 0
			e.logger.Info("bought",
				"amount", data.Amount,
				"base", data.Base,
				"at_price", msg.Meta.CorrelationPrice,
				"at_time", msg.Meta.CorrelationTime,
			)

		case types.Sold:
			report.Trades++
			quoteAmount, baseAmount = data.Amount, 0
			e.logger.Info("sold",
				"amount", data.Amount,
				"quote", data.Quote,
				"at_price", msg.Meta.CorrelationPrice,
				"at_time", msg.Meta.CorrelationTime,
			)

		case types.Shutdown:
			sawShutdown = true
		}
	}

	if !sawShutdown {
		return nil, fmt.Errorf("engine: output stream ended without shutdown")
	}

	report.FinalBase = baseAmount
	report.FinalQuote = quoteAmount
	report.FinalWealth = max(report.LatestPrice*baseAmount, quoteAmount)
	report.BaselineWealth = report.LatestPrice * baselineBase

	e.logger.Info("run complete",
		"events", report.Events,
		"trades", report.Trades,
		"final_wealth", report.FinalWealth,
		"baseline_wealth", report.BaselineWealth,
	)
	return report, nil
}
