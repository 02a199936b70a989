// Package exchange defines the venue capability the pipeline consumes and
// its implementations: a deterministic candle-file simulator for backtests
// and a live WebSocket/REST client.
//
// The pipeline depends only on the Exchange interface: an event source,
// an order sink, and a balance query. All venue I/O is concentrated here,
// entirely orthogonal to the pipeline's control plane.
package exchange

import (
	"context"
	"errors"

	"crossbot/pkg/types"
)

// ErrUnknownCorrelation reports a market order whose correlation id does
// not map to any observed price. For the simulator this is a configuration
// error and fatal.
var ErrUnknownCorrelation = errors.New("exchange: unknown correlation id")

// Exchange is the capability trio the runtime relies on.
//
// EventStream delivers ready-stamped envelopes and terminates with exactly
// one Shutdown. PlaceMarketOrder returns the amount of the newly acquired
// asset, net of fees. Only the trader actor holds mutable access to an
// Exchange; implementations may therefore assume serialized calls to
// PlaceMarketOrder and FetchAssets.
type Exchange interface {
	EventStream(ctx context.Context) (<-chan types.Msg, error)
	PlaceMarketOrder(ctx context.Context, order *types.MarketOrder) (types.Amount, error)
	FetchAssets(ctx context.Context) (types.Assets, error)
}
