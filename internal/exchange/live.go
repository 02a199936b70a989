// live.go implements the Exchange capability against the real venue.
//
// Market data arrives over a WebSocket ticker subscription with
// auto-reconnect and exponential backoff (1s → 30s max); every tick is
// stamped into a self-rooted envelope exactly like the simulator's. Orders
// and balance reads go over signed REST. The stream terminates with a
// single Shutdown envelope when the context ends, so the pipeline drains
// the same way in live and backtest modes.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"crossbot/internal/pipeline"
	"crossbot/pkg/types"
)

const (
	wsReadTimeout    = 90 * time.Second
	wsWriteTimeout   = 10 * time.Second
	maxReconnectWait = 30 * time.Second
	streamBuffer     = 256
)

// LiveConfig holds the venue endpoints and the traded pair.
type LiveConfig struct {
	RESTBaseURL string
	WSURL       string
	Pair        types.PairID
	Base        string
	Quote       string
}

// Live is the venue-backed Exchange.
type Live struct {
	cfg    LiveConfig
	http   *resty.Client
	auth   *Auth
	rl     *RateLimiter
	ids    pipeline.IDProvider
	clock  pipeline.TimeProvider
	logger *slog.Logger
}

// NewLive creates a live exchange client with retry and rate limiting.
func NewLive(cfg LiveConfig, creds Credentials, ids pipeline.IDProvider, clock pipeline.TimeProvider, logger *slog.Logger) *Live {
	httpClient := resty.New().
		SetBaseURL(cfg.RESTBaseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Live{
		cfg:    cfg,
		http:   httpClient,
		auth:   NewAuth(creds),
		rl:     NewRateLimiter(),
		ids:    ids,
		clock:  clock,
		logger: logger.With("component", "exchange_live"),
	}
}

// instID is the venue's instrument identifier, e.g. "BTC-USDT".
func (l *Live) instID() string {
	return l.cfg.Base + "-" + l.cfg.Quote
}

// EventStream connects the ticker WebSocket and delivers self-rooted
// LivePriceUpdated envelopes until ctx ends, then exactly one Shutdown.
func (l *Live) EventStream(ctx context.Context) (<-chan types.Msg, error) {
	ch := make(chan types.Msg, streamBuffer)

	go func() {
		defer close(ch)
		backoff := time.Second

		for {
			err := l.connectAndRead(ctx, ch)
			if ctx.Err() != nil {
				ch <- l.shutdownEnvelope()
				return
			}

			l.logger.Warn("websocket disconnected, reconnecting",
				"error", err,
				"backoff", backoff,
			)

			select {
			case <-ctx.Done():
				ch <- l.shutdownEnvelope()
				return
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > maxReconnectWait {
				backoff = maxReconnectWait
			}
		}
	}()

	return ch, nil
}

// wsTicker is one ticker push from the venue WebSocket.
type wsTicker struct {
	Arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []struct {
		Last string `json:"last"`
		TS   string `json:"ts"`
	} `json:"data"`
}

func (l *Live) connectAndRead(ctx context.Context, ch chan<- types.Msg) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.cfg.WSURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	sub := map[string]any{
		"op": "subscribe",
		"args": []map[string]string{
			{"channel": "tickers", "instId": l.instID()},
		},
	}
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	l.logger.Info("websocket connected", "inst", l.instID())

	// Close the socket when ctx ends so the blocked read returns.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var tick wsTicker
		if err := json.Unmarshal(raw, &tick); err != nil || tick.Arg.Channel != "tickers" {
			continue
		}
		for _, d := range tick.Data {
			price, err := decimal.NewFromString(d.Last)
			if err != nil {
				l.logger.Error("bad ticker price", "last", d.Last, "error", err)
				continue
			}
			ts, err := strconv.ParseUint(d.TS, 10, 64)
			if err != nil {
				l.logger.Error("bad ticker timestamp", "ts", d.TS, "error", err)
				continue
			}

			msg := l.priceEnvelope(ts, price.InexactFloat64())
			select {
			case ch <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (l *Live) priceEnvelope(ts types.Timestamp, price types.Price) types.Msg {
	id := l.ids.NewRandom()
	return types.Msg{
		Data: types.LivePriceUpdated{PairID: l.cfg.Pair, Datetime: ts, Price: price},
		Meta: types.MsgMetaData{
			ID:               id,
			CreationTime:     l.clock.Now(),
			CausationID:      id,
			CorrelationID:    id,
			CorrelationTime:  ts,
			CorrelationPrice: price,
		},
	}
}

func (l *Live) shutdownEnvelope() types.Msg {
	id := l.ids.NewRandom()
	return types.Msg{
		Data: types.Shutdown{},
		Meta: types.MsgMetaData{
			ID:            id,
			CreationTime:  l.clock.Now(),
			CausationID:   id,
			CorrelationID: id,
		},
	}
}

type orderResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		OrdID string `json:"ordId"`
	} `json:"data"`
}

type orderDetailResponse struct {
	Code string `json:"code"`
	Data []struct {
		State     string `json:"state"`
		AccFillSz string `json:"accFillSz"`
		AvgPx     string `json:"avgPx"`
	} `json:"data"`
}

// PlaceMarketOrder submits a market order for the full given amount and
// returns the acquired amount: base for a buy, quote for a sell. The amount
// is the gross fill read back by fetchAcquired; fees are not deducted.
func (l *Live) PlaceMarketOrder(ctx context.Context, order *types.MarketOrder) (types.Amount, error) {
	if err := l.rl.Order.Wait(ctx); err != nil {
		return 0, err
	}

	payload := map[string]string{
		"instId":  l.instID(),
		"tdMode":  "cash",
		"side":    order.Side.String(),
		"ordType": "market",
		"sz":      decimal.NewFromFloat(order.Amount).String(),
	}
	if order.Side == types.OrderBuy {
		// Market buys are sized in quote currency.
		payload["tgtCcy"] = "quote_ccy"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal order: %w", err)
	}

	const path = "/api/v5/trade/order"
	var result orderResponse
	resp, err := l.http.R().
		SetContext(ctx).
		SetHeaders(l.auth.Headers(http.MethodPost, path, string(body))).
		SetBody(json.RawMessage(body)).
		SetResult(&result).
		Post(path)
	if err != nil {
		return 0, fmt.Errorf("place order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK || result.Code != "0" || len(result.Data) == 0 {
		return 0, fmt.Errorf("place order: status %d code %s: %s", resp.StatusCode(), result.Code, result.Msg)
	}

	acquired, err := l.fetchAcquired(ctx, result.Data[0].OrdID, order.Side)
	if err != nil {
		return 0, err
	}

	l.logger.Info("market order filled",
		"side", order.Side.String(),
		"amount", order.Amount,
		"acquired", acquired,
		"correlation_id", order.CorrelationID,
	)
	return acquired, nil
}

// fetchAcquired reads back the fill of a placed order. Buys acquire base
// (the accumulated fill size); sells acquire quote (fill size × average
// fill price). No venue fee is subtracted from either figure.
func (l *Live) fetchAcquired(ctx context.Context, ordID string, side types.OrderSide) (types.Amount, error) {
	if err := l.rl.Order.Wait(ctx); err != nil {
		return 0, err
	}

	path := "/api/v5/trade/order?instId=" + l.instID() + "&ordId=" + ordID
	var result orderDetailResponse
	resp, err := l.http.R().
		SetContext(ctx).
		SetHeaders(l.auth.Headers(http.MethodGet, path, "")).
		SetResult(&result).
		Get(path)
	if err != nil {
		return 0, fmt.Errorf("get order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK || result.Code != "0" || len(result.Data) == 0 {
		return 0, fmt.Errorf("get order: status %d code %s", resp.StatusCode(), result.Code)
	}

	detail := result.Data[0]
	fillSz, err := decimal.NewFromString(detail.AccFillSz)
	if err != nil {
		return 0, fmt.Errorf("parse fill size %q: %w", detail.AccFillSz, err)
	}
	if side == types.OrderBuy {
		return fillSz.InexactFloat64(), nil
	}
	avgPx, err := decimal.NewFromString(detail.AvgPx)
	if err != nil {
		return 0, fmt.Errorf("parse fill price %q: %w", detail.AvgPx, err)
	}
	return fillSz.Mul(avgPx).InexactFloat64(), nil
}

type balanceResponse struct {
	Code string `json:"code"`
	Data []struct {
		Details []struct {
			Ccy      string `json:"ccy"`
			AvailBal string `json:"availBal"`
		} `json:"details"`
	} `json:"data"`
}

// FetchAssets reads the available base and quote balances. A currency the
// venue does not report comes back nil.
func (l *Live) FetchAssets(ctx context.Context) (types.Assets, error) {
	if err := l.rl.Account.Wait(ctx); err != nil {
		return types.Assets{}, err
	}

	path := "/api/v5/account/balance?ccy=" + strings.Join([]string{l.cfg.Base, l.cfg.Quote}, ",")
	var result balanceResponse
	resp, err := l.http.R().
		SetContext(ctx).
		SetHeaders(l.auth.Headers(http.MethodGet, path, "")).
		SetResult(&result).
		Get(path)
	if err != nil {
		return types.Assets{}, fmt.Errorf("get balance: %w", err)
	}
	if resp.StatusCode() != http.StatusOK || result.Code != "0" || len(result.Data) == 0 {
		return types.Assets{}, fmt.Errorf("get balance: status %d code %s", resp.StatusCode(), result.Code)
	}

	var assets types.Assets
	for _, d := range result.Data[0].Details {
		bal, err := decimal.NewFromString(d.AvailBal)
		if err != nil {
			return types.Assets{}, fmt.Errorf("parse balance %q: %w", d.AvailBal, err)
		}
		asset := &types.Asset{Name: d.Ccy, Amount: bal.InexactFloat64()}
		switch d.Ccy {
		case l.cfg.Base:
			assets.Base = asset
		case l.cfg.Quote:
			assets.Quote = asset
		}
	}
	return assets, nil
}
