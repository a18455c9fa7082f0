// Package book implements the price-time priority queue that backs
// one side of one instrument's order book. It is not safe for
// concurrent use on its own: every method assumes the caller already
// holds the exchange core's mutex.
package book

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brokerlabs/xchange/core/order"
)

// DefaultCapacity is the floor a book's backing array never shrinks
// below, and the capacity a freshly constructed book starts at.
const DefaultCapacity = 10

// sequenceCounter hands out submission sequence numbers. It is shared
// by every book, so a bid's sequence and an ask's sequence can be
// compared to tell which of the two arrived first.
var sequenceCounter atomic.Uint64

// Book is a single side (bids or asks) of a single instrument's order
// book, kept sorted by execution priority: best price first, and
// among equal prices, earliest sequence first.
type Book struct {
	side        order.Side
	orders      []*order.Order
	capacity    int
	minCapacity int
}

// New constructs an empty book for the given side with the default
// starting capacity.
func New(side order.Side) *Book {
	return NewWithCapacity(side, DefaultCapacity)
}

// NewWithCapacity constructs an empty book whose backing array starts
// at (and never shrinks below) capacity.
func NewWithCapacity(side order.Side, capacity int) *Book {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Book{
		side:        side,
		orders:      make([]*order.Order, 0, capacity),
		capacity:    capacity,
		minCapacity: capacity,
	}
}

// Len reports the number of resting orders.
func (b *Book) Len() int { return len(b.orders) }

// Cap reports the current backing capacity.
func (b *Book) Cap() int { return b.capacity }

// Empty reports whether the book has no resting orders.
func (b *Book) Empty() bool { return len(b.orders) == 0 }

// Peek returns the order at the head of priority without removing it.
func (b *Book) Peek() (*order.Order, bool) {
	if len(b.orders) == 0 {
		return nil, false
	}
	return b.orders[0], true
}

// betterPriority reports whether candidate has strictly better
// execution priority than incumbent for this book's side.
func (b *Book) betterPriority(candidate, incumbent *order.Order) bool {
	cp, ip := candidate.Price(), incumbent.Price()
	if cp.Equal(ip) {
		return candidate.Sequence() < incumbent.Sequence()
	}
	if b.side == order.Buy {
		return cp.GreaterThan(ip)
	}
	return cp.LessThan(ip)
}

// Push inserts o in sorted position, assigning its sequence number
// and growing the backing array first if the book is at least 80%
// full.
func (b *Book) Push(o *order.Order) {
	if b.shouldGrow() {
		b.grow()
	}

	o.SetSequence(sequenceCounter.Add(1))
	b.insertSorted(o)
}

// shouldGrow reports whether the book has reached 80% of capacity.
func (b *Book) shouldGrow() bool {
	return 5*len(b.orders) >= 4*b.capacity
}

// grow expands capacity by a factor of 4/3, mirroring the original
// priority queue's resize rule.
func (b *Book) grow() {
	b.capacity = b.capacity + b.capacity/3
	grown := make([]*order.Order, len(b.orders), b.capacity)
	copy(grown, b.orders)
	b.orders = grown
}

// shrink contracts capacity toward 2/3 of its current value, floored
// at minCapacity, mirroring the original priority queue's resize rule.
func (b *Book) shrink() {
	if b.capacity <= b.minCapacity {
		return
	}
	newCap := 2 * b.capacity / 3
	if newCap < b.minCapacity {
		newCap = b.minCapacity
	}
	b.capacity = newCap
	shrunk := make([]*order.Order, len(b.orders), b.capacity)
	copy(shrunk, b.orders)
	b.orders = shrunk
}

// maybeShrink shrinks the backing array if occupancy has fallen to or
// below half of capacity.
func (b *Book) maybeShrink() {
	if 2*len(b.orders) <= b.capacity {
		b.shrink()
	}
}

// Pop removes and returns the order at the head of priority.
func (b *Book) Pop() (*order.Order, bool) {
	if len(b.orders) == 0 {
		return nil, false
	}
	head := b.orders[0]
	b.orders = append(b.orders[:0], b.orders[1:]...)
	b.maybeShrink()
	return head, true
}

// Locate returns the index of the resting order belonging to
// participant with the given id, if present.
func (b *Book) Locate(participant, orderID uuid.UUID) (int, bool) {
	for i, o := range b.orders {
		if o.Participant() == participant && o.ID() == orderID {
			return i, true
		}
	}
	return 0, false
}

// AmendPrice changes the price of a resting order owned by
// participant, re-sorting it into its new position. It is a silent
// no-op, returning false, if no such order is resting.
func (b *Book) AmendPrice(participant, orderID uuid.UUID, newPrice decimal.Decimal) bool {
	i, ok := b.Locate(participant, orderID)
	if !ok {
		return false
	}
	target := b.orders[i]
	b.orders = append(b.orders[:i], b.orders[i+1:]...)
	target.SetPrice(newPrice)
	b.insertSorted(target)
	return true
}

// AmendQuantity changes the quantity of a resting order owned by
// participant. Priority is re-sorted only when the new quantity is
// smaller than the current one: growing a resting order's size is not
// treated as arriving later, matching how a strict price-time venue
// protects an order that merely shrinks from losing its place.
func (b *Book) AmendQuantity(participant, orderID uuid.UUID, newQuantity decimal.Decimal) bool {
	i, ok := b.Locate(participant, orderID)
	if !ok {
		return false
	}
	target := b.orders[i]
	shrinking := newQuantity.LessThan(target.Quantity())
	target.SetQuantity(newQuantity)
	if shrinking {
		b.orders = append(b.orders[:i], b.orders[i+1:]...)
		b.insertSorted(target)
	}
	return true
}

// insertSorted re-inserts an order already removed from b.orders,
// without touching its sequence number.
func (b *Book) insertSorted(o *order.Order) {
	i := 0
	for ; i < len(b.orders); i++ {
		if b.betterPriority(o, b.orders[i]) {
			break
		}
	}
	b.orders = append(b.orders, nil)
	copy(b.orders[i+1:], b.orders[i:])
	b.orders[i] = o
}

// Orders returns a value-copy snapshot of every resting order, in
// priority order. Callers that need to read the book without racing
// the matching engine's next mutation use this instead of holding a
// pointer into the live slice.
func (b *Book) Orders() []order.Order {
	out := make([]order.Order, len(b.orders))
	for i, o := range b.orders {
		out[i] = o.Clone()
	}
	return out
}

// Remove deletes the resting order belonging to participant, if
// present, preserving sort order among the remaining orders.
func (b *Book) Remove(participant, orderID uuid.UUID) bool {
	i, ok := b.Locate(participant, orderID)
	if !ok {
		return false
	}
	b.orders = append(b.orders[:i], b.orders[i+1:]...)
	b.maybeShrink()
	return true
}
