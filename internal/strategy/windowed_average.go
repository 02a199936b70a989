package strategy

import (
	"context"
	"time"

	"crossbot/pkg/types"
)

type timePricePoint struct {
	datetime types.Timestamp
	price    types.Price
}

// WindowedAverage is the arithmetic-mean alternative to SlidingAverage:
// it keeps every observation inside the trailing window and emits the mean
// once more than one observation is present. It does not wait for a point
// to age out of the window before emitting, so it starts emitting no later
// than the EMA. It reacts faster at window edges.
type WindowedAverage struct {
	windowMillis types.Timestamp
	points       []timePricePoint
}

// NewWindowedAverage creates the aggregator for the given window.
func NewWindowedAverage(window time.Duration) *WindowedAverage {
	return &WindowedAverage{windowMillis: types.Timestamp(window.Milliseconds())}
}

// Act records each LivePriceUpdated, evicts points older than the window,
// and emits the mean of what remains.
func (a *WindowedAverage) Act(_ context.Context, msg types.Msg) ([]types.MsgData, error) {
	e, ok := msg.Data.(types.LivePriceUpdated)
	if !ok {
		return nil, nil
	}

	a.points = append(a.points, timePricePoint{datetime: e.Datetime, price: e.Price})

	var cutoff types.Timestamp
	if e.Datetime > a.windowMillis {
		cutoff = e.Datetime - a.windowMillis
	}
	kept := a.points[:0]
	for _, p := range a.points {
		if p.datetime >= cutoff {
			kept = append(kept, p)
		}
	}
	a.points = kept

	if len(a.points) < 2 {
		return nil, nil
	}
	var sum float64
	for _, p := range a.points {
		sum += p.price
	}
	return []types.MsgData{types.AveragePriceUpdated{
		PairID:   e.PairID,
		Datetime: e.Datetime,
		Price:    sum / float64(len(a.points)),
	}}, nil
}
