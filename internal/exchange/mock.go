package exchange

import (
	"context"

	"crossbot/pkg/types"
)

// Mock is an in-memory Exchange that records every placed order. It is
// used by actor tests; PlaceMarketOrder echoes the order amount
// as the acquired amount.
type Mock struct {
	assets types.Assets
	events []types.Msg

	// Orders holds every order passed to PlaceMarketOrder, in call order.
	Orders []types.MarketOrder

	// Err, when set, is returned by PlaceMarketOrder and FetchAssets.
	Err error
}

// NewMock creates a mock holding the given balances and replaying the
// given events from EventStream.
func NewMock(assets types.Assets, events ...types.Msg) *Mock {
	return &Mock{assets: assets, events: events}
}

func (m *Mock) EventStream(_ context.Context) (<-chan types.Msg, error) {
	ch := make(chan types.Msg, len(m.events))
	for _, msg := range m.events {
		ch <- msg
	}
	close(ch)
	return ch, nil
}

func (m *Mock) PlaceMarketOrder(_ context.Context, order *types.MarketOrder) (types.Amount, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.Orders = append(m.Orders, *order)
	return order.Amount, nil
}

func (m *Mock) FetchAssets(_ context.Context) (types.Assets, error) {
	if m.Err != nil {
		return types.Assets{}, m.Err
	}
	return m.assets, nil
}
