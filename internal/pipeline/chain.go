package pipeline

import (
	"context"
	"log/slog"

	"crossbot/pkg/types"
)

// stageBuffer bounds each inter-stage channel. Sends block when a
// downstream stage falls behind, which is the backpressure model; messages
// are never dropped.
const stageBuffer = 64

// Chain wires actors into a linear pipeline. Add appends a stage whose
// input is the previous trailing receiver; Start spawns one goroutine per
// stage and returns the receiver at the tail.
//
//	out := pipeline.NewChain(clock, ids, source, logger).
//		Add(aggregator).
//		Add(decider).
//		Add(trader).
//		Start(ctx)
//
// The time and id providers are cloned into each stage so every stage has
// an independent view.
type Chain struct {
	clock  TimeProvider
	ids    IDProvider
	tail   <-chan types.Msg
	stages []*Stage
	logger *slog.Logger
}

// NewChain creates a chain reading from source.
func NewChain(clock TimeProvider, ids IDProvider, source <-chan types.Msg, logger *slog.Logger) *Chain {
	return &Chain{
		clock:  clock,
		ids:    ids,
		tail:   source,
		logger: logger.With("component", "pipeline"),
	}
}

// Add appends a pass-through stage: every input envelope is re-emitted
// ahead of whatever the actor produces.
func (c *Chain) Add(actor Actor) *Chain {
	return c.add(actor, false)
}

// AddFilter appends a filtering stage: only the actor's own payloads are
// emitted. Shutdown still flows through.
func (c *Chain) AddFilter(actor Actor) *Chain {
	return c.add(actor, true)
}

func (c *Chain) add(actor Actor, isFilter bool) *Chain {
	out := make(chan types.Msg, stageBuffer)
	stage := &Stage{
		input:    c.tail,
		output:   out,
		actor:    actor,
		isFilter: isFilter,
		ids:      c.ids.Clone(),
		clock:    c.clock.Clone(),
		logger:   c.logger.With("stage", len(c.stages)),
	}
	c.stages = append(c.stages, stage)
	c.tail = out
	return c
}

// Start spawns every stage and returns the tail receiver. The tail closes
// after the terminal Shutdown has passed through, so consumers may simply
// range over it. Stage failures are logged; the failing stage forwards
// Shutdown so the rest of the chain drains.
func (c *Chain) Start(ctx context.Context) <-chan types.Msg {
	for _, stage := range c.stages {
		go func(s *Stage) {
			if err := s.Run(ctx); err != nil {
				s.logger.Error("stage terminated", "error", err)
			}
		}(stage)
	}
	return c.tail
}
