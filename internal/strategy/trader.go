package strategy

import (
	"context"
	"fmt"

	"crossbot/internal/exchange"
	"crossbot/pkg/types"
)

// Trader reifies Buy/Sell decisions against the exchange. A Buy spends the
// entire available quote balance; a Sell liquidates the entire base
// balance. The envelope's correlation id is forwarded into the order so
// the venue (or its simulator) can execute at the price that prevailed at
// the originating market event.
//
// The trader holds the only mutable reference to the exchange.
type Trader struct {
	exchange exchange.Exchange
	base     string
	quote    string
}

// NewTrader creates the trader for a fixed base/quote pair.
func NewTrader(ex exchange.Exchange, base, quote string) *Trader {
	return &Trader{exchange: ex, base: base, quote: quote}
}

func (t *Trader) Act(ctx context.Context, msg types.Msg) ([]types.MsgData, error) {
	switch msg.Data.(type) {
	case types.Buy:
		assets, err := t.exchange.FetchAssets(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch assets: %w", err)
		}
		return t.execute(ctx, msg, assets.Quote, types.OrderBuy)

	case types.Sell:
		assets, err := t.exchange.FetchAssets(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch assets: %w", err)
		}
		return t.execute(ctx, msg, assets.Base, types.OrderSell)

	default:
		return nil, nil
	}
}

// execute places a full-balance market order for the given side. A missing
// or empty balance means there is nothing to trade and produces no output.
func (t *Trader) execute(ctx context.Context, msg types.Msg, asset *types.Asset, side types.OrderSide) ([]types.MsgData, error) {
	if asset == nil || asset.Amount <= 0 {
		return nil, nil
	}

	order := types.MarketOrder{
		CorrelationID: msg.Meta.CorrelationID,
		Base:          t.base,
		Quote:         t.quote,
		Side:          side,
		Amount:        asset.Amount,
	}
	acquired, err := t.exchange.PlaceMarketOrder(ctx, &order)
	if err != nil {
		return nil, fmt.Errorf("place market order: %w", err)
	}

	if side == types.OrderBuy {
		return []types.MsgData{types.Bought{Base: t.base, Quote: t.quote, Amount: acquired}}, nil
	}
	return []types.MsgData{types.Sold{Base: t.base, Quote: t.quote, Amount: acquired}}, nil
}
