// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the bot: the causal message
// envelope that flows through the pipeline, its payload variants, and the
// entities exchanged with a trading venue. It has no dependencies on
// internal packages, so it can be imported by any layer.
package types

import (
	"github.com/google/uuid"
)

// MessageID uniquely identifies one envelope. Every envelope gets a fresh one.
type MessageID = uuid.UUID

// PairID is a short stable name for a trading pair, e.g. "BTC/USDT".
type PairID = string

// Timestamp is unix milliseconds; used for event datetimes.
type Timestamp = uint64

// AccurateTimestamp is unix microseconds from a wall clock; used for
// envelope creation times.
type AccurateTimestamp = uint64

// Price is a market price in quote-currency units.
type Price = float64

// Amount is a quantity of an asset.
type Amount = float64

// MsgData is the closed set of payload variants an envelope can carry.
// Consumers switch on the concrete type and must handle (or explicitly
// ignore) every variant.
type MsgData interface {
	msgData()
}

// LivePriceUpdated is a fresh observation of market price.
type LivePriceUpdated struct {
	PairID   PairID
	Datetime Timestamp
	Price    Price
}

// AveragePriceUpdated is a smoothed average emitted by an aggregator stage.
type AveragePriceUpdated struct {
	PairID   PairID
	Datetime Timestamp
	Price    Price
}

// Buy is a decision to enter a position. It carries no body; the pair and
// size are derived by the trader, the originating tick by correlation.
type Buy struct{}

// Sell is a decision to exit a position.
type Sell struct{}

// Bought reports a successful buy order. Amount is the amount of base
// asset acquired, after fees.
type Bought struct {
	Base   string
	Quote  string
	Amount Amount
}

// Sold reports a successful sell order. Amount is the amount of quote
// asset acquired, after fees.
type Sold struct {
	Base   string
	Quote  string
	Amount Amount
}

// Shutdown is the terminal sentinel. Exactly one is injected by the source
// and re-emitted by every stage as it drains.
type Shutdown struct{}

func (LivePriceUpdated) msgData()    {}
func (AveragePriceUpdated) msgData() {}
func (Buy) msgData()                 {}
func (Sell) msgData()                {}
func (Bought) msgData()              {}
func (Sold) msgData()                {}
func (Shutdown) msgData()            {}

// MsgMetaData is the causal metadata attached to every envelope.
//
// CausationID is the id of the envelope that directly caused this one.
// CorrelationID is the id of the originating external-event envelope and
// propagates unchanged down the chain, together with the datetime and price
// observed at that event. Source envelopes seed both ids with their own.
type MsgMetaData struct {
	ID               MessageID
	CreationTime     AccurateTimestamp
	CausationID      MessageID
	CorrelationID    MessageID
	CorrelationTime  Timestamp
	CorrelationPrice Price
}

// Msg is one envelope: a payload plus its causal metadata.
type Msg struct {
	Data MsgData
	Meta MsgMetaData
}

// WithData builds an envelope with zero metadata. Used by tests and by
// sources before stamping.
func WithData(data MsgData) Msg {
	return Msg{Data: data}
}

// OrderSide is the direction of a market order.
type OrderSide int

const (
	OrderBuy OrderSide = iota
	OrderSell
)

func (s OrderSide) String() string {
	if s == OrderSell {
		return "sell"
	}
	return "buy"
}

// Asset is a named balance held on the venue.
type Asset struct {
	Name   string
	Amount Amount
}

// Assets is the base/quote balance pair for the traded pair. A nil entry
// means the venue reports no balance for that currency.
type Assets struct {
	Base  *Asset
	Quote *Asset
}

// MarketOrder is a request to trade the full given amount at market.
// CorrelationID names the external event the order traces back to, so a
// simulated venue can look up the price that prevailed at that event.
type MarketOrder struct {
	CorrelationID MessageID
	Base          string
	Quote         string
	Side          OrderSide
	Amount        Amount
}
