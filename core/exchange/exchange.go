// Package exchange implements the instrument table and the single
// mutex-gated core that submitters and the matching engine share.
package exchange

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brokerlabs/xchange/core/book"
	"github.com/brokerlabs/xchange/core/order"
)

var (
	// ErrUnknownInstrument is returned by Submit for a symbol outside
	// the configured universe. No state is changed.
	ErrUnknownInstrument = errors.New("exchange: unknown instrument")

	// ErrInvalidSide is returned by Submit for a side other than Buy or
	// Sell. No state is changed.
	ErrInvalidSide = errors.New("exchange: invalid side")

	// ErrZeroQuantityAmend is returned by AmendQuantity when the
	// requested quantity is zero. Callers that mean to remove an
	// order entirely must call Cancel instead of amending to zero.
	ErrZeroQuantityAmend = errors.New("exchange: amend to zero quantity is not allowed, use cancel")
)

// Slot holds the two priority books for one instrument, plus the
// liquidity flag that tracks whether either side currently has a
// resting order.
type Slot struct {
	Instrument string
	Bids       *book.Book
	Asks       *book.Book
	liquidity  bool
}

func newSlot(instrument string, bookCapacity int) *Slot {
	return &Slot{
		Instrument: instrument,
		Bids:       book.NewWithCapacity(order.Buy, bookCapacity),
		Asks:       book.NewWithCapacity(order.Sell, bookCapacity),
	}
}

// Liquidity reports whether the instrument currently has at least one
// resting order on either side.
func (s *Slot) Liquidity() bool { return s.liquidity }

func (s *Slot) refreshLiquidity() {
	s.liquidity = !s.Bids.Empty() || !s.Asks.Empty()
}

// Core is the single mutex-gated Instrument Table: every mutation to
// every instrument's books passes through Core.mu, exactly as a
// single submit/amend/cancel gate and a single matching pass over a
// slot are the two things that may never interleave unsynchronized.
type Core struct {
	mu           sync.Mutex
	slots        map[string]*Slot
	instruments  []string
	minTrade     decimal.Decimal
	bookCapacity int
	orderLog     []string
	fillLog      []string
	closed       bool
}

// New constructs a Core with a fixed instrument universe. The
// universe is established once and never resized afterward: no
// instrument can be added or removed once the exchange is open.
func New(instruments []string, minTrade decimal.Decimal, bookCapacity int) *Core {
	if bookCapacity < 1 {
		bookCapacity = book.DefaultCapacity
	}
	slots := make(map[string]*Slot, len(instruments))
	universe := make([]string, len(instruments))
	copy(universe, instruments)
	for _, sym := range instruments {
		slots[sym] = newSlot(sym, bookCapacity)
	}
	return &Core{
		slots:        slots,
		instruments:  universe,
		minTrade:     minTrade,
		bookCapacity: bookCapacity,
	}
}

// Instruments returns the fixed universe in its configured order.
func (c *Core) Instruments() []string {
	out := make([]string, len(c.instruments))
	copy(out, c.instruments)
	return out
}

// MinTrade returns the configured minimum-trade balance threshold.
func (c *Core) MinTrade() decimal.Decimal { return c.minTrade }

// Submit validates and inserts a new order, returning its identity
// and whether it was accepted. Unknown instruments are rejected
// without any state change.
func (c *Core) Submit(participant uuid.UUID, side order.Side, instrument string, price, quantity decimal.Decimal) (uuid.UUID, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slot, ok := c.slots[instrument]
	if !ok {
		return uuid.Nil, false, fmt.Errorf("%w: %s", ErrUnknownInstrument, instrument)
	}

	o := order.New(participant, side, instrument, price, quantity)
	switch side {
	case order.Buy:
		slot.Bids.Push(o)
	case order.Sell:
		slot.Asks.Push(o)
	default:
		return uuid.Nil, false, fmt.Errorf("%w: %v", ErrInvalidSide, side)
	}
	slot.refreshLiquidity()
	c.orderLog = append(c.orderLog, fmt.Sprintf("SUBMIT %s %s %s @ %s x %s", o.ID(), side, instrument, price, quantity))
	return o.ID(), true, nil
}

// AmendPrice changes the price of a resting order. It is a silent
// no-op if the order is not found, and reports false in that case.
func (c *Core) AmendPrice(participant uuid.UUID, orderID uuid.UUID, side order.Side, instrument string, newPrice decimal.Decimal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	slot, ok := c.slots[instrument]
	if !ok {
		return false
	}
	var ok2 bool
	if side == order.Buy {
		ok2 = slot.Bids.AmendPrice(participant, orderID, newPrice)
	} else {
		ok2 = slot.Asks.AmendPrice(participant, orderID, newPrice)
	}
	if ok2 {
		c.orderLog = append(c.orderLog, fmt.Sprintf("AMEND-PRICE %s %s -> %s", orderID, instrument, newPrice))
	}
	return ok2
}

// AmendQuantity changes the quantity of a resting order. A zero
// quantity is rejected: use Cancel to remove an order outright.
func (c *Core) AmendQuantity(participant uuid.UUID, orderID uuid.UUID, side order.Side, instrument string, newQuantity decimal.Decimal) (bool, error) {
	if newQuantity.IsZero() {
		return false, ErrZeroQuantityAmend
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	slot, ok := c.slots[instrument]
	if !ok {
		return false, nil
	}
	var ok2 bool
	if side == order.Buy {
		ok2 = slot.Bids.AmendQuantity(participant, orderID, newQuantity)
	} else {
		ok2 = slot.Asks.AmendQuantity(participant, orderID, newQuantity)
	}
	if ok2 {
		c.orderLog = append(c.orderLog, fmt.Sprintf("AMEND-QTY %s %s -> %s", orderID, instrument, newQuantity))
	}
	return ok2, nil
}

// Cancel removes a resting order. It is a silent no-op, returning
// false, if the order is not found.
func (c *Core) Cancel(participant uuid.UUID, orderID uuid.UUID, side order.Side, instrument string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	slot, ok := c.slots[instrument]
	if !ok {
		return false
	}
	var removed bool
	if side == order.Buy {
		removed = slot.Bids.Remove(participant, orderID)
	} else {
		removed = slot.Asks.Remove(participant, orderID)
	}
	if removed {
		slot.refreshLiquidity()
		c.orderLog = append(c.orderLog, fmt.Sprintf("CANCEL %s %s", orderID, instrument))
	}
	return removed
}

// OrderBook returns a snapshot of both sides of one instrument's book.
func (c *Core) OrderBook(instrument string) (bids, asks []order.Order, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slot, ok := c.slots[instrument]
	if !ok {
		return nil, nil, false
	}
	return slot.Bids.Orders(), slot.Asks.Orders(), true
}

// OrderLog returns a copy of the append-only order log.
func (c *Core) OrderLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.orderLog))
	copy(out, c.orderLog)
	return out
}

// FillLog returns a copy of the append-only fill log.
func (c *Core) FillLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.fillLog))
	copy(out, c.fillLog)
	return out
}

// AppendFill records a fill in the fill log and refreshes the
// instrument's liquidity flag. Called by core/matching under the same
// lock it already holds while settling a trade.
func (c *Core) AppendFill(instrument, entry string) {
	c.fillLog = append(c.fillLog, entry)
	if slot, ok := c.slots[instrument]; ok {
		slot.refreshLiquidity()
	}
}

// Lock and Unlock expose Core's mutex to core/matching, which must
// hold it for the full peek-compute-settle sequence of a single match
// attempt on one instrument.
func (c *Core) Lock()   { c.mu.Lock() }
func (c *Core) Unlock() { c.mu.Unlock() }

// Slot returns the slot for an instrument, for use by core/matching
// while holding Core's lock.
func (c *Core) Slot(instrument string) (*Slot, bool) {
	s, ok := c.slots[instrument]
	return s, ok
}

// Close marks the exchange closed. Per the reference behavior,
// submissions are still accepted after Close; it is the matching
// engine's Stop, not Core.Close, that halts matching.
func (c *Core) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed reports whether Close has been called.
func (c *Core) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
