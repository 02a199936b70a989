package strategy

import (
	"context"
	"errors"
	"testing"

	"crossbot/internal/exchange"
	"crossbot/internal/pipeline"
	"crossbot/pkg/types"
)

func usdt(amount float64) types.Assets {
	return types.Assets{Quote: &types.Asset{Name: "USDT", Amount: amount}}
}

func btc(amount float64) types.Assets {
	return types.Assets{Base: &types.Asset{Name: "BTC", Amount: amount}}
}

func TestTraderBuysFullQuoteBalance(t *testing.T) {
	t.Parallel()
	ex := exchange.NewMock(usdt(40))
	trader := NewTrader(ex, "BTC", "USDT")

	corr := pipeline.SeqID(7)
	msg := types.Msg{Data: types.Buy{}, Meta: types.MsgMetaData{CorrelationID: corr}}

	out := mustAct(t, trader, msg)

	wantOrder := types.MarketOrder{
		CorrelationID: corr,
		Base:          "BTC",
		Quote:         "USDT",
		Side:          types.OrderBuy,
		Amount:        40,
	}
	if len(ex.Orders) != 1 || ex.Orders[0] != wantOrder {
		t.Errorf("orders = %+v, want [%+v]", ex.Orders, wantOrder)
	}
	want := types.Bought{Base: "BTC", Quote: "USDT", Amount: 40}
	if len(out) != 1 || out[0] != want {
		t.Errorf("emitted %v, want [%+v]", out, want)
	}
}

func TestTraderSellsFullBaseBalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		amount float64
	}{
		{"tiny balance", 0.0000001},
		{"larger balance", 0.0002},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ex := exchange.NewMock(btc(tt.amount))
			trader := NewTrader(ex, "BTC", "USDT")

			out := mustAct(t, trader, types.WithData(types.Sell{}))

			if len(ex.Orders) != 1 {
				t.Fatalf("placed %d orders, want 1", len(ex.Orders))
			}
			if ex.Orders[0].Side != types.OrderSell || ex.Orders[0].Amount != tt.amount {
				t.Errorf("order = %+v, want sell of %v", ex.Orders[0], tt.amount)
			}
			want := types.Sold{Base: "BTC", Quote: "USDT", Amount: tt.amount}
			if len(out) != 1 || out[0] != want {
				t.Errorf("emitted %v, want [%+v]", out, want)
			}
		})
	}
}

func TestTraderSkipsWithoutBalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		assets types.Assets
		data   types.MsgData
	}{
		{"buy with no assets", types.Assets{}, types.Buy{}},
		{"buy with zero quote", usdt(0), types.Buy{}},
		{"sell with no assets", types.Assets{}, types.Sell{}},
		{"sell with zero base", btc(0), types.Sell{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ex := exchange.NewMock(tt.assets)
			trader := NewTrader(ex, "BTC", "USDT")

			out := mustAct(t, trader, types.WithData(tt.data))

			if len(ex.Orders) != 0 {
				t.Errorf("placed orders %+v, want none", ex.Orders)
			}
			if len(out) != 0 {
				t.Errorf("emitted %v, want nothing", out)
			}
		})
	}
}

func TestTraderIgnoresNonDecisionPayloads(t *testing.T) {
	t.Parallel()
	ex := exchange.NewMock(usdt(40))
	trader := NewTrader(ex, "BTC", "USDT")

	others := []types.MsgData{
		types.LivePriceUpdated{Price: 1.0},
		types.AveragePriceUpdated{Price: 1.0},
		types.Bought{Amount: 1},
		types.Sold{Amount: 1},
	}
	for _, data := range others {
		if out := mustAct(t, trader, types.WithData(data)); len(out) != 0 {
			t.Errorf("%T produced %v, want nothing", data, out)
		}
	}
	if len(ex.Orders) != 0 {
		t.Errorf("placed orders %+v, want none", ex.Orders)
	}
}

func TestTraderPropagatesExchangeError(t *testing.T) {
	t.Parallel()
	ex := exchange.NewMock(usdt(40))
	ex.Err = errors.New("venue unavailable")
	trader := NewTrader(ex, "BTC", "USDT")

	_, err := trader.Act(context.Background(), types.WithData(types.Buy{}))
	if !errors.Is(err, ex.Err) {
		t.Errorf("Act() error = %v, want wrapped %v", err, ex.Err)
	}
}
