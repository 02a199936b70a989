// sim.go implements the file-backed simulated exchange used by tests and
// backtests.
//
// LoadCandles reads a JSON array of candles; construction takes those
// candles and pre-builds the full event stream: one self-rooted LivePriceUpdated envelope per candle, terminated
// by a single Shutdown envelope. The candle price is indexed by the
// envelope's correlation id, so an order placed later can execute at the
// price that prevailed at the tick that caused it. This is what makes
// backtest fills deterministic regardless of wall-clock scheduling.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"crossbot/internal/pipeline"
	"crossbot/pkg/types"
)

// Candle is one element of the input candle file.
type Candle struct {
	Time  types.Timestamp `json:"time"`
	Close float64         `json:"close"`
}

// LoadCandles reads a JSON candle array from path. Order is preserved;
// times are expected non-decreasing but not enforced.
func LoadCandles(path string) ([]Candle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candle file: %w", err)
	}
	var candles []Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		return nil, fmt.Errorf("parse candle file: %w", err)
	}
	return candles, nil
}

// Simulated is a deterministic Exchange over a fixed candle series.
type Simulated struct {
	events []types.Msg
	prices map[types.MessageID]types.Price
	assets types.Assets
	fee    float64
}

// NewSimulated builds the event stream from candles. startingQuote is the
// quote balance available for the first buy; fee is the fractional taker
// fee applied to every order.
func NewSimulated(
	candles []Candle,
	pair types.PairID,
	startingQuote types.Asset,
	fee float64,
	ids pipeline.IDProvider,
	clock pipeline.TimeProvider,
) *Simulated {
	events := make([]types.Msg, 0, len(candles)+1)
	prices := make(map[types.MessageID]types.Price, len(candles))

	for _, c := range candles {
		id := ids.NewRandom()
		events = append(events, types.Msg{
			Data: types.LivePriceUpdated{PairID: pair, Datetime: c.Time, Price: c.Close},
			Meta: types.MsgMetaData{
				ID:               id,
				CreationTime:     clock.Now(),
				CausationID:      id,
				CorrelationID:    id,
				CorrelationTime:  c.Time,
				CorrelationPrice: c.Close,
			},
		})
		prices[id] = c.Close
	}

	shutdownID := ids.NewRandom()
	events = append(events, types.Msg{
		Data: types.Shutdown{},
		Meta: types.MsgMetaData{
			ID:            shutdownID,
			CreationTime:  clock.Now(),
			CausationID:   shutdownID,
			CorrelationID: shutdownID,
		},
	})

	return &Simulated{
		events: events,
		prices: prices,
		assets: types.Assets{Quote: &startingQuote},
		fee:    fee,
	}
}

// EventStream replays the pre-built envelopes and closes. A cancelled ctx
// abandons the replay but still delivers the terminal Shutdown envelope:
// cancellation is turned into the in-band sentinel here at the source, so
// the pipeline always drains the same way.
func (s *Simulated) EventStream(ctx context.Context) (<-chan types.Msg, error) {
	ch := make(chan types.Msg)
	go func() {
		defer close(ch)
		for _, msg := range s.events {
			select {
			case ch <- msg:
			case <-ctx.Done():
				ch <- s.events[len(s.events)-1]
				return
			}
		}
	}()
	return ch, nil
}

// PlaceMarketOrder executes at the price recorded for the order's
// correlation id. Buy converts the full quote balance into base at
// net/price; Sell converts the full base balance into quote at net×price.
// Returns the acquired amount.
func (s *Simulated) PlaceMarketOrder(_ context.Context, order *types.MarketOrder) (types.Amount, error) {
	price, ok := s.prices[order.CorrelationID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCorrelation, order.CorrelationID)
	}

	net := order.Amount * (1 - s.fee)
	switch order.Side {
	case types.OrderBuy:
		var acquired types.Amount
		if price > 0 {
			acquired = net / price
		}
		s.assets.Base = &types.Asset{Name: order.Base, Amount: acquired}
		if s.assets.Quote != nil {
			s.assets.Quote = &types.Asset{Name: s.assets.Quote.Name, Amount: 0}
		}
		return acquired, nil
	default:
		acquired := net * price
		s.assets.Quote = &types.Asset{Name: order.Quote, Amount: acquired}
		if s.assets.Base != nil {
			s.assets.Base = &types.Asset{Name: s.assets.Base.Name, Amount: 0}
		}
		return acquired, nil
	}
}

func (s *Simulated) FetchAssets(_ context.Context) (types.Assets, error) {
	return s.assets, nil
}
