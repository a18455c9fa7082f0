// Package order defines the trading request that flows through the
// priority books, the exchange core, and the matching engine.
package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side identifies which side of the book an order rests on.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Order is a single resting or incoming trading request for one
// instrument. Price and Quantity are meant to be mutated only by
// core/book and core/matching, which hold the exchange core's mutex
// for the duration of any such mutation.
type Order struct {
	id          uuid.UUID
	participant uuid.UUID
	side        Side
	instrument  string
	price       decimal.Decimal
	quantity    decimal.Decimal
	createdAt   time.Time
	sequence    uint64
}

// New constructs an order with a fresh identity. Sequence is assigned
// later, when the order is pushed onto a book.
func New(participant uuid.UUID, side Side, instrument string, price, quantity decimal.Decimal) *Order {
	return &Order{
		id:          uuid.New(),
		participant: participant,
		side:        side,
		instrument:  instrument,
		price:       price,
		quantity:    quantity,
		createdAt:   time.Now(),
	}
}

func (o *Order) ID() uuid.UUID             { return o.id }
func (o *Order) Participant() uuid.UUID    { return o.participant }
func (o *Order) Side() Side                { return o.side }
func (o *Order) Instrument() string        { return o.instrument }
func (o *Order) Price() decimal.Decimal    { return o.price }
func (o *Order) Quantity() decimal.Decimal { return o.quantity }
func (o *Order) CreatedAt() time.Time      { return o.createdAt }
func (o *Order) Sequence() uint64          { return o.sequence }

// SetSequence, SetPrice and SetQuantity mutate resting state. Callers
// outside core/book and core/matching must not use them directly; Go
// has no package-friend mechanism, so the restriction is by
// convention and the core's mutex, not the type system.
func (o *Order) SetSequence(seq uint64)          { o.sequence = seq }
func (o *Order) SetPrice(price decimal.Decimal)  { o.price = price }
func (o *Order) SetQuantity(qty decimal.Decimal) { o.quantity = qty }

// Clone returns a value copy, used whenever a snapshot must escape the
// lock that protects the live order (order-book reads, log entries).
func (o *Order) Clone() Order { return *o }
