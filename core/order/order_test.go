package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestNewAssignsIdentity(t *testing.T) {
	p := uuid.New()
	o := New(p, Buy, "GOOGL", decimal.NewFromInt(100), decimal.NewFromInt(10))

	if o.ID() == uuid.Nil {
		t.Fatal("expected a non-nil order id")
	}
	if o.Participant() != p {
		t.Fatalf("participant = %s, want %s", o.Participant(), p)
	}
	if o.Sequence() != 0 {
		t.Fatalf("sequence = %d, want 0 before being pushed onto a book", o.Sequence())
	}
}

func TestSideString(t *testing.T) {
	if Buy.String() != "BUY" {
		t.Errorf("Buy.String() = %q", Buy.String())
	}
	if Sell.String() != "SELL" {
		t.Errorf("Sell.String() = %q", Sell.String())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	o := New(uuid.New(), Sell, "AMZN", decimal.NewFromInt(50), decimal.NewFromInt(5))
	snapshot := o.Clone()

	o.SetQuantity(decimal.NewFromInt(1))
	if snapshot.Quantity().Cmp(decimal.NewFromInt(5)) != 0 {
		t.Fatalf("clone was mutated alongside the original: %s", snapshot.Quantity())
	}
}
