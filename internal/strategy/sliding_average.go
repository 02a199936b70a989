// Package strategy implements the stateful actors of the trading pipeline:
// price aggregators, the crossover decision actor, and the trader.
//
// Each actor is private to one stage; the stage serializes access, so no
// actor needs locking. Actors emit payloads only; the stage stamps the
// causal metadata.
package strategy

import (
	"context"
	"time"

	"crossbot/pkg/types"
)

// SlidingAverage smooths live prices with an exponential moving average
// and a warm-up. With window W and reporting interval I it needs
// N = W/I points before it starts emitting; the smoothing factor is
// 2/(N+1). The first point seeds the average.
type SlidingAverage struct {
	minPoints uint64
	count     uint64
	avg       types.Price
}

// NewSlidingAverage creates the aggregator for the given window and
// reporting interval. interval must be positive and no larger than window.
func NewSlidingAverage(window, interval time.Duration) *SlidingAverage {
	return &SlidingAverage{minPoints: uint64(window / interval)}
}

// Act updates the average on every LivePriceUpdated and emits one
// AveragePriceUpdated per input once warmed up. All other payloads
// produce nothing.
func (a *SlidingAverage) Act(_ context.Context, msg types.Msg) ([]types.MsgData, error) {
	e, ok := msg.Data.(types.LivePriceUpdated)
	if !ok {
		return nil, nil
	}

	if a.count == 0 {
		a.avg = e.Price
	} else {
		a.avg += (e.Price - a.avg) * 2 / (float64(a.minPoints) + 1)
	}
	a.count++

	if a.count <= a.minPoints {
		return nil, nil
	}
	return []types.MsgData{types.AveragePriceUpdated{
		PairID:   e.PairID,
		Datetime: e.Datetime,
		Price:    a.avg,
	}}, nil
}
