package strategy

import (
	"context"

	"crossbot/pkg/types"
)

// Crossover emits Buy when the live price crosses above the latest average
// and Sell when it crosses below, with a symmetric hysteresis band of
// ±offset around the average suppressing signals near the line.
//
// The previous live price anchors the crossing test, so no repeat signal
// fires while the price stays on the same side of the band. Live prices
// seen before any average is known are ignored entirely; they must not
// anchor the first signal.
//
// Once the average is known, the very first live price above the band
// buys immediately. The mirror case does not sell: the system starts
// all-quote, and a sell must be anchored by a previous live price inside
// or above the band.
type Crossover struct {
	offset        float64
	latestAverage *types.Price
	latestLive    *types.Price
}

// NewCrossover creates the decision actor with the given fractional
// hysteresis offset (0.005 = 0.5%).
func NewCrossover(offset float64) *Crossover {
	return &Crossover{offset: offset}
}

func (c *Crossover) Act(_ context.Context, msg types.Msg) ([]types.MsgData, error) {
	switch e := msg.Data.(type) {
	case types.AveragePriceUpdated:
		avg := e.Price
		c.latestAverage = &avg
		return nil, nil

	case types.LivePriceUpdated:
		if c.latestAverage == nil {
			return nil, nil
		}

		upper := *c.latestAverage * (1 + c.offset)
		lower := *c.latestAverage * (1 - c.offset)

		var out []types.MsgData
		switch {
		case e.Price > upper && (c.latestLive == nil || *c.latestLive < upper):
			out = []types.MsgData{types.Buy{}}
		case e.Price < lower && c.latestLive != nil && *c.latestLive > lower:
			out = []types.MsgData{types.Sell{}}
		}

		live := e.Price
		c.latestLive = &live
		return out, nil

	default:
		return nil, nil
	}
}
