package exchange

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"crossbot/internal/pipeline"
	"crossbot/pkg/types"
)

func newSim(candles []Candle, quote float64, fee float64) *Simulated {
	return NewSimulated(
		candles,
		"BTC/USDT",
		types.Asset{Name: "USDT", Amount: quote},
		fee,
		pipeline.NewMockIDs(),
		pipeline.NewMockClock(),
	)
}

func collect(t *testing.T, s *Simulated) []types.Msg {
	t.Helper()
	ch, err := s.EventStream(context.Background())
	if err != nil {
		t.Fatalf("EventStream() error: %v", err)
	}
	var msgs []types.Msg
	for msg := range ch {
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestSimulatedStreamEmitsCandlesThenShutdown(t *testing.T) {
	t.Parallel()
	sim := newSim([]Candle{
		{Time: 0, Close: 1.0},
		{Time: 1000, Close: 2.0},
	}, 40, 0)

	msgs := collect(t, sim)
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}

	first, ok := msgs[0].Data.(types.LivePriceUpdated)
	if !ok {
		t.Fatalf("Data = %T, want LivePriceUpdated", msgs[0].Data)
	}
	want := types.LivePriceUpdated{PairID: "BTC/USDT", Datetime: 0, Price: 1.0}
	if first != want {
		t.Errorf("first payload = %+v, want %+v", first, want)
	}
	if _, ok := msgs[2].Data.(types.Shutdown); !ok {
		t.Errorf("last Data = %T, want Shutdown", msgs[2].Data)
	}
}

func TestSimulatedStreamEnvelopesAreSelfRooted(t *testing.T) {
	t.Parallel()
	sim := newSim([]Candle{{Time: 42, Close: 1.5}}, 40, 0)

	msgs := collect(t, sim)
	meta := msgs[0].Meta
	if meta.CausationID != meta.ID || meta.CorrelationID != meta.ID {
		t.Errorf("envelope not self-rooted: %+v", meta)
	}
	if meta.CorrelationTime != 42 || meta.CorrelationPrice != 1.5 {
		t.Errorf("correlation snapshot = (%d, %v), want (42, 1.5)",
			meta.CorrelationTime, meta.CorrelationPrice)
	}
}

// Cancelling the stream context abandons the replay but still ends the
// stream with the in-band sentinel, exactly once.
func TestSimulatedStreamCancelStillDeliversShutdown(t *testing.T) {
	t.Parallel()
	sim := newSim([]Candle{
		{Time: 0, Close: 1.0},
		{Time: 1000, Close: 2.0},
		{Time: 2000, Close: 3.0},
	}, 40, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch, err := sim.EventStream(ctx)
	if err != nil {
		t.Fatalf("EventStream() error: %v", err)
	}
	var msgs []types.Msg
	for msg := range ch {
		msgs = append(msgs, msg)
	}

	if len(msgs) == 0 {
		t.Fatal("stream delivered nothing, want at least the shutdown envelope")
	}
	shutdowns := 0
	for _, msg := range msgs {
		if _, ok := msg.Data.(types.Shutdown); ok {
			shutdowns++
		}
	}
	if shutdowns != 1 {
		t.Errorf("observed %d shutdowns, want exactly 1", shutdowns)
	}
	if _, ok := msgs[len(msgs)-1].Data.(types.Shutdown); !ok {
		t.Errorf("last Data = %T, want Shutdown", msgs[len(msgs)-1].Data)
	}
}

func TestSimulatedBuyConvertsQuoteAtCorrelationPrice(t *testing.T) {
	t.Parallel()
	sim := newSim([]Candle{{Time: 0, Close: 0.5}}, 40, 0)
	msgs := collect(t, sim)

	acquired, err := sim.PlaceMarketOrder(context.Background(), &types.MarketOrder{
		CorrelationID: msgs[0].Meta.ID,
		Base:          "BTC",
		Quote:         "USDT",
		Side:          types.OrderBuy,
		Amount:        40,
	})
	if err != nil {
		t.Fatalf("PlaceMarketOrder() error: %v", err)
	}
	if acquired != 80 {
		t.Errorf("acquired = %v, want 80 (40 / 0.5)", acquired)
	}

	assets, err := sim.FetchAssets(context.Background())
	if err != nil {
		t.Fatalf("FetchAssets() error: %v", err)
	}
	if assets.Quote == nil || assets.Quote.Amount != 0 {
		t.Errorf("quote after buy = %+v, want zero balance", assets.Quote)
	}
	if assets.Base == nil || assets.Base.Amount != 80 {
		t.Errorf("base after buy = %+v, want 80 BTC", assets.Base)
	}
}

func TestSimulatedSellConvertsBaseAtCorrelationPrice(t *testing.T) {
	t.Parallel()
	sim := newSim([]Candle{{Time: 0, Close: 0.5}, {Time: 1000, Close: 2.0}}, 40, 0)
	msgs := collect(t, sim)

	// Buy everything at 0.5, then sell it all at 2.0.
	if _, err := sim.PlaceMarketOrder(context.Background(), &types.MarketOrder{
		CorrelationID: msgs[0].Meta.ID,
		Base:          "BTC", Quote: "USDT",
		Side:   types.OrderBuy,
		Amount: 40,
	}); err != nil {
		t.Fatal(err)
	}

	acquired, err := sim.PlaceMarketOrder(context.Background(), &types.MarketOrder{
		CorrelationID: msgs[1].Meta.ID,
		Base:          "BTC", Quote: "USDT",
		Side:   types.OrderSell,
		Amount: 80,
	})
	if err != nil {
		t.Fatalf("PlaceMarketOrder() error: %v", err)
	}
	if acquired != 160 {
		t.Errorf("acquired = %v, want 160 (80 × 2.0)", acquired)
	}

	assets, _ := sim.FetchAssets(context.Background())
	if assets.Base == nil || assets.Base.Amount != 0 {
		t.Errorf("base after sell = %+v, want zero balance", assets.Base)
	}
	if assets.Quote == nil || assets.Quote.Amount != 160 {
		t.Errorf("quote after sell = %+v, want 160 USDT", assets.Quote)
	}
}

func TestSimulatedFeeReducesNet(t *testing.T) {
	t.Parallel()
	sim := newSim([]Candle{{Time: 0, Close: 2.0}}, 100, 0.001)
	msgs := collect(t, sim)

	acquired, err := sim.PlaceMarketOrder(context.Background(), &types.MarketOrder{
		CorrelationID: msgs[0].Meta.ID,
		Base:          "BTC", Quote: "USDT",
		Side:   types.OrderBuy,
		Amount: 100,
	})
	if err != nil {
		t.Fatal(err)
	}
	// net = 100 × 0.999 = 99.9; acquired = 99.9 / 2.0
	if math.Abs(acquired-49.95) > 1e-9 {
		t.Errorf("acquired = %v, want 49.95", acquired)
	}
}

func TestSimulatedBuyAtZeroPriceAcquiresNothing(t *testing.T) {
	t.Parallel()
	sim := newSim([]Candle{{Time: 0, Close: 0}}, 40, 0)
	msgs := collect(t, sim)

	acquired, err := sim.PlaceMarketOrder(context.Background(), &types.MarketOrder{
		CorrelationID: msgs[0].Meta.ID,
		Base:          "BTC", Quote: "USDT",
		Side:   types.OrderBuy,
		Amount: 40,
	})
	if err != nil {
		t.Fatal(err)
	}
	if acquired != 0 {
		t.Errorf("acquired = %v, want 0 at zero price", acquired)
	}
}

func TestSimulatedUnknownCorrelationIsFatal(t *testing.T) {
	t.Parallel()
	sim := newSim([]Candle{{Time: 0, Close: 1.0}}, 40, 0)

	_, err := sim.PlaceMarketOrder(context.Background(), &types.MarketOrder{
		CorrelationID: pipeline.SeqID(999),
		Base:          "BTC", Quote: "USDT",
		Side:   types.OrderBuy,
		Amount: 40,
	})
	if !errors.Is(err, ErrUnknownCorrelation) {
		t.Errorf("err = %v, want ErrUnknownCorrelation", err)
	}
}

func TestLoadCandles(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "candles.json")
	content := `[{"time": 0, "close": 1.5}, {"time": 300000, "close": 2.25}]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	candles, err := LoadCandles(path)
	if err != nil {
		t.Fatalf("LoadCandles() error: %v", err)
	}
	want := []Candle{{Time: 0, Close: 1.5}, {Time: 300000, Close: 2.25}}
	if len(candles) != 2 || candles[0] != want[0] || candles[1] != want[1] {
		t.Errorf("candles = %+v, want %+v", candles, want)
	}
}

func TestLoadCandlesMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := LoadCandles(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
