// Package pipeline implements the actor pipeline runtime: a linear chain
// of stages connected by channels, each stage one goroutine wrapping one
// actor.
//
// Every message is a causal envelope (types.Msg). The stage stamps fresh
// metadata onto each payload an actor returns: a new id and creation time,
// the input's id as causation, and the input's correlation fields verbatim.
// Within a stage, sends preserve receive order, so the chain preserves
// causal order globally.
//
// The only termination signal is an in-band Shutdown payload flowing from
// the source. A stage that receives it forwards it verbatim, closes its
// output, and exits without calling the actor.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"crossbot/pkg/types"
)

// ErrInputClosed reports an input channel that closed before a Shutdown
// envelope arrived. The source contract guarantees a terminal Shutdown, so
// this is a programmer error and fatal to the stage.
var ErrInputClosed = errors.New("pipeline: input closed before shutdown")

// Stage owns one actor plus its input and output channels. Build stages
// through Chain; the zero value is not usable.
type Stage struct {
	input    <-chan types.Msg
	output   chan types.Msg
	actor    Actor
	isFilter bool
	ids      IDProvider
	clock    TimeProvider
	logger   *slog.Logger
}

// Run executes the stage loop until Shutdown or actor failure. The output
// channel is closed on exit in every case.
//
// The loop never races the context against its channels: cancellation is
// a source concern (the source converts it into the in-band Shutdown),
// and a stage that aborted on ctx could overtake the sentinel and leave
// downstream stages without one. ctx is passed through solely for actors
// that perform I/O.
//
// On actor failure the stage still forwards a Shutdown envelope, caused by
// the failing input, so downstream stages drain cleanly.
func (s *Stage) Run(ctx context.Context) error {
	defer close(s.output)

	for {
		msg, ok := <-s.input
		if !ok {
			return ErrInputClosed
		}

		if _, ok := msg.Data.(types.Shutdown); ok {
			s.output <- msg
			return nil
		}

		payloads, err := s.actor.Act(ctx, msg)
		if err != nil {
			s.logger.Error("actor failed", "error", err, "causation_id", msg.Meta.ID)
			s.output <- s.envelope(types.Shutdown{}, msg)
			return fmt.Errorf("actor: %w", err)
		}

		if !s.isFilter {
			s.output <- msg
		}
		for _, p := range payloads {
			s.output <- s.envelope(p, msg)
		}
	}
}

// envelope stamps a new payload with metadata derived from its cause.
func (s *Stage) envelope(data types.MsgData, cause types.Msg) types.Msg {
	return types.Msg{
		Data: data,
		Meta: types.MsgMetaData{
			ID:               s.ids.NewRandom(),
			CreationTime:     s.clock.Now(),
			CausationID:      cause.Meta.ID,
			CorrelationID:    cause.Meta.CorrelationID,
			CorrelationTime:  cause.Meta.CorrelationTime,
			CorrelationPrice: cause.Meta.CorrelationPrice,
		},
	}
}

