// Package matching implements the continuously-scanning background
// loop that pairs resting bids and asks into trades.
package matching

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brokerlabs/xchange/core/exchange"
	"github.com/brokerlabs/xchange/core/ledger"
	"github.com/brokerlabs/xchange/core/order"
)

// Participants resolves a participant identity to its ledger entry.
// Supplied by the caller so the matching engine never has to own
// participant lifecycle.
type Participants interface {
	Get(id uuid.UUID) (*ledger.Participant, bool)
}

// Engine continuously scans every instrument's books for a crossable
// bid/ask pair and settles it. A single instance is meant to run on
// its own goroutine for the lifetime of the exchange.
type Engine struct {
	core         *exchange.Core
	participants Participants
	instruments  []string
	pollInterval time.Duration
	onFill       func()

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// New constructs an Engine over core, resolving participants through
// participants. pollInterval is the pause between sweeps when a
// sweep finds nothing to match; zero reproduces the reference's tight
// spin, a nonzero value trades latency for CPU.
func New(core *exchange.Core, participants Participants, pollInterval time.Duration) *Engine {
	return &Engine{
		core:         core,
		participants: participants,
		instruments:  core.Instruments(),
		pollInterval: pollInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// OnFill registers a callback invoked once after every settled trade,
// outside the core's mutex. Used to push a live order-book update (see
// internal/wsfeed) the instant liquidity changes, rather than waiting
// for the next polling tick.
func (e *Engine) OnFill(fn func()) {
	e.onFill = fn
}

// Run executes the matching loop until Stop is called or ctx is
// cancelled. It is meant to be called from its own goroutine.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		default:
		}

		matchedAny := false
		for _, instrument := range e.instruments {
			if e.sweep(instrument) {
				matchedAny = true
				if e.onFill != nil {
					e.onFill()
				}
			}
		}

		if !matchedAny && e.pollInterval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-e.stop:
				return
			case <-time.After(e.pollInterval):
			}
		}
	}
}

// Stop signals the loop to exit and blocks until it has.
func (e *Engine) Stop(ctx context.Context) error {
	e.once.Do(func() { close(e.stop) })
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sweep attempts one match on instrument's books, settling at most one
// trade. It reports whether a trade was settled.
func (e *Engine) sweep(instrument string) bool {
	e.core.Lock()
	defer e.core.Unlock()

	slot, ok := e.core.Slot(instrument)
	if !ok {
		return false
	}

	bid, hasBid := slot.Bids.Peek()
	ask, hasAsk := slot.Asks.Peek()
	if !hasBid || !hasAsk {
		return false
	}
	if bid.Price().LessThan(ask.Price()) {
		return false
	}

	buyer, ok := e.participants.Get(bid.Participant())
	if !ok {
		return false
	}
	seller, ok := e.participants.Get(ask.Participant())
	if !ok {
		return false
	}

	price := executionPrice(bid, ask)
	quantity := bid.Quantity()
	if ask.Quantity().LessThan(quantity) {
		quantity = ask.Quantity()
	}

	buyErr := buyer.Buy(price, quantity)
	if buyErr != nil {
		return false
	}
	sellErr := seller.Sell(price, quantity)
	if sellErr != nil {
		buyer.Reimburse(price.Mul(quantity))
		return false
	}

	bid.SetQuantity(bid.Quantity().Sub(quantity))
	ask.SetQuantity(ask.Quantity().Sub(quantity))
	if bid.Quantity().IsZero() {
		slot.Bids.Pop()
	}
	if ask.Quantity().IsZero() {
		slot.Asks.Pop()
	}

	e.core.AppendFill(instrument, fmt.Sprintf(
		"FILL %s %s bid=%s ask=%s @ %s x %s",
		instrument, price, bid.ID(), ask.ID(), price, quantity,
	))
	return true
}

// executionPrice resolves the unusual tie-break rule: when bid and ask
// cross, the trade executes at the price of whichever side submitted
// first. Most venues execute at the resting order's price; this venue
// deliberately does not.
func executionPrice(bid, ask *order.Order) decimal.Decimal {
	if bid.Sequence() < ask.Sequence() {
		return bid.Price()
	}
	return ask.Price()
}
