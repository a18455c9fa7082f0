package exchange

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brokerlabs/xchange/core/order"
)

func newCore() *Core {
	return New([]string{"GOOGL", "AMZN", "TSLA", "DIS", "BABA"}, decimal.NewFromInt(1000), 10)
}

func TestSubmitRejectsUnknownInstrument(t *testing.T) {
	c := newCore()
	_, ok, err := c.Submit(uuid.New(), order.Buy, "NFLX", decimal.NewFromInt(100), decimal.NewFromInt(1))
	if ok || !errors.Is(err, ErrUnknownInstrument) {
		t.Fatalf("ok=%v err=%v, want rejected with ErrUnknownInstrument", ok, err)
	}
	if len(c.OrderLog()) != 0 {
		t.Fatal("rejected submit must not mutate the order log")
	}
}

func TestSubmitAcceptsKnownInstrument(t *testing.T) {
	c := newCore()
	id, ok, err := c.Submit(uuid.New(), order.Buy, "GOOGL", decimal.NewFromInt(100), decimal.NewFromInt(1))
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if id == uuid.Nil {
		t.Fatal("expected a non-nil order id")
	}
	bids, _, _ := c.OrderBook("GOOGL")
	if len(bids) != 1 {
		t.Fatalf("len(bids) = %d, want 1", len(bids))
	}
}

func TestCancelUnknownOrderIsNoOp(t *testing.T) {
	c := newCore()
	if c.Cancel(uuid.New(), uuid.New(), order.Buy, "GOOGL") {
		t.Fatal("expected Cancel of unknown order to return false")
	}
}

func TestAmendQuantityToZeroRejected(t *testing.T) {
	c := newCore()
	p := uuid.New()
	id, _, _ := c.Submit(p, order.Buy, "GOOGL", decimal.NewFromInt(100), decimal.NewFromInt(5))

	_, err := c.AmendQuantity(p, id, order.Buy, "GOOGL", decimal.Zero)
	if !errors.Is(err, ErrZeroQuantityAmend) {
		t.Fatalf("err = %v, want ErrZeroQuantityAmend", err)
	}
}

func TestLiquidityFlagTracksBook(t *testing.T) {
	c := newCore()
	p := uuid.New()
	id, _, _ := c.Submit(p, order.Sell, "TSLA", decimal.NewFromInt(200), decimal.NewFromInt(1))

	slot, _ := c.Slot("TSLA")
	if !slot.Liquidity() {
		t.Fatal("expected liquidity true after a resting order")
	}

	c.Cancel(p, id, order.Sell, "TSLA")
	if slot.Liquidity() {
		t.Fatal("expected liquidity false once the book is empty")
	}
}
