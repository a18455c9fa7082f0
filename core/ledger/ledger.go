// Package ledger tracks participant cash balances and the bookkeeping
// the matching engine needs to settle or unwind a trade.
package ledger

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeCash is returned by New when the initial balance is
	// negative. A participant's starting cash is a position, not a
	// running total, so it can never start below zero.
	ErrNegativeCash = errors.New("ledger: initial cash must be non-negative")

	// ErrNotEligible is returned by Buy/Sell when the participant's
	// balance is below the configured minimum-trade threshold.
	ErrNotEligible = errors.New("ledger: participant not eligible to trade")

	// ErrInsufficientBalance is returned by Buy when the participant
	// cannot cover the notional of the trade.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
)

// Participant holds one trader's cash balance and an append-only
// history of post-transaction balances.
type Participant struct {
	mu       sync.Mutex
	id       uuid.UUID
	balance  decimal.Decimal
	minTrade decimal.Decimal
	history  []decimal.Decimal
}

// New creates a participant with the given starting cash. minTrade is
// the minimum balance required for CanTrade to report true; it is
// injected per-participant rather than hardcoded, since the minimum a
// venue enforces is an operating parameter, not a constant of the
// ledger's logic.
func New(initialCash, minTrade decimal.Decimal) (*Participant, error) {
	if initialCash.IsNegative() {
		return nil, ErrNegativeCash
	}
	return &Participant{
		id:       uuid.New(),
		balance:  initialCash,
		minTrade: minTrade,
		history:  []decimal.Decimal{initialCash},
	}, nil
}

// ID returns the participant's identity.
func (p *Participant) ID() uuid.UUID {
	return p.id
}

// Balance returns the current cash balance.
func (p *Participant) Balance() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance
}

// CanTrade reports whether the participant's balance currently meets
// the minimum-trade threshold.
func (p *Participant) CanTrade() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance.GreaterThanOrEqual(p.minTrade)
}

// Buy debits price*quantity from the balance. It fails, leaving the
// balance untouched, if the participant is not eligible or cannot
// cover the notional.
func (p *Participant) Buy(price, quantity decimal.Decimal) error {
	notional := price.Mul(quantity)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.balance.LessThan(p.minTrade) {
		return ErrNotEligible
	}
	if p.balance.LessThan(notional) {
		return ErrInsufficientBalance
	}
	p.balance = p.balance.Sub(notional)
	p.history = append(p.history, p.balance)
	return nil
}

// Sell credits price*quantity to the balance. A seller never fails on
// balance grounds, only eligibility, since crediting cash can never
// drive a non-negative balance negative.
func (p *Participant) Sell(price, quantity decimal.Decimal) error {
	notional := price.Mul(quantity)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.balance.LessThan(p.minTrade) {
		return ErrNotEligible
	}
	p.balance = p.balance.Add(notional)
	p.history = append(p.history, p.balance)
	return nil
}

// Reimburse credits an amount back to the participant, unconditionally.
// The matching engine calls this when one leg of a trade succeeds and
// its counterparty leg then fails, to undo the half-completed trade.
func (p *Participant) Reimburse(amount decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance = p.balance.Add(amount)
	p.history = append(p.history, p.balance)
}

// Margins returns the first differences of the balance history: the
// signed size of every transaction applied to this participant, in
// the order they occurred.
func (p *Participant) Margins() []decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.history) < 2 {
		return nil
	}
	margins := make([]decimal.Decimal, 0, len(p.history)-1)
	for i := 1; i < len(p.history); i++ {
		margins = append(margins, p.history[i].Sub(p.history[i-1]))
	}
	return margins
}

// Registry is a concurrency-safe lookup from participant identity to
// ledger entry, shared between whatever constructs participants
// (internal/identity) and whatever settles trades against them
// (core/matching).
type Registry struct {
	mu           sync.RWMutex
	participants map[uuid.UUID]*Participant
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{participants: make(map[uuid.UUID]*Participant)}
}

// Add registers a participant, keyed by its own id.
func (r *Registry) Add(p *Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[p.ID()] = p
}

// Get retrieves a participant by id.
func (r *Registry) Get(id uuid.UUID) (*Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[id]
	return p, ok
}

// All returns a snapshot of every registered participant, in no
// particular order. Used by periodic balance-snapshotting, which
// needs to walk the whole registry rather than look up one id.
func (r *Registry) All() []*Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p)
	}
	return out
}
