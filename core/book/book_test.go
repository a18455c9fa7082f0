package book

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brokerlabs/xchange/core/order"
)

func mkOrder(side order.Side, price, qty int64) *order.Order {
	return order.New(uuid.New(), side, "GOOGL", decimal.NewFromInt(price), decimal.NewFromInt(qty))
}

func TestBuyBookSortsDescendingByPrice(t *testing.T) {
	b := New(order.Buy)
	b.Push(mkOrder(order.Buy, 100, 1))
	b.Push(mkOrder(order.Buy, 150, 1))
	b.Push(mkOrder(order.Buy, 120, 1))

	head, ok := b.Peek()
	if !ok || !head.Price().Equal(decimal.NewFromInt(150)) {
		t.Fatalf("head price = %v, want 150", head.Price())
	}
}

func TestSellBookSortsAscendingByPrice(t *testing.T) {
	b := New(order.Sell)
	b.Push(mkOrder(order.Sell, 100, 1))
	b.Push(mkOrder(order.Sell, 150, 1))
	b.Push(mkOrder(order.Sell, 90, 1))

	head, ok := b.Peek()
	if !ok || !head.Price().Equal(decimal.NewFromInt(90)) {
		t.Fatalf("head price = %v, want 90", head.Price())
	}
}

func TestEqualPriceTiesBreakByArrivalOrder(t *testing.T) {
	b := New(order.Buy)
	first := mkOrder(order.Buy, 100, 1)
	second := mkOrder(order.Buy, 100, 1)
	b.Push(first)
	b.Push(second)

	head, _ := b.Peek()
	if head.ID() != first.ID() {
		t.Fatal("expected the earlier-arrived order at equal price to have priority")
	}
}

func TestGrowthAt80Percent(t *testing.T) {
	b := NewWithCapacity(order.Buy, 10)
	for i := 0; i < 9; i++ {
		b.Push(mkOrder(order.Buy, int64(100+i), 1))
	}
	if b.Cap() == 10 {
		t.Fatalf("expected capacity to grow past 10 once 80%% full, got %d", b.Cap())
	}
	if b.Cap() != 13 {
		t.Errorf("cap = %d, want 13 (10 + 10/3)", b.Cap())
	}
}

func TestShrinkAt50PercentFlooredAtMinCapacity(t *testing.T) {
	b := NewWithCapacity(order.Buy, 10)
	orders := make([]*order.Order, 0, 9)
	for i := 0; i < 9; i++ {
		o := mkOrder(order.Buy, int64(100+i), 1)
		orders = append(orders, o)
		b.Push(o)
	}
	grownCap := b.Cap()
	if grownCap <= 10 {
		t.Fatalf("expected growth before shrink test, cap = %d", grownCap)
	}

	for _, o := range orders {
		b.Remove(o.Participant(), o.ID())
	}
	if b.Cap() != DefaultCapacity {
		t.Errorf("cap = %d, want floor of %d after full drain", b.Cap(), DefaultCapacity)
	}
}

func TestAmendPriceResorts(t *testing.T) {
	b := New(order.Buy)
	low := mkOrder(order.Buy, 100, 1)
	high := mkOrder(order.Buy, 150, 1)
	b.Push(low)
	b.Push(high)

	if !b.AmendPrice(low.Participant(), low.ID(), decimal.NewFromInt(200)) {
		t.Fatal("AmendPrice returned false for a resting order")
	}
	head, _ := b.Peek()
	if head.ID() != low.ID() {
		t.Fatal("expected amended order to take priority after price improvement")
	}
}

func TestAmendPriceMissingOrderIsNoOp(t *testing.T) {
	b := New(order.Buy)
	if b.AmendPrice(uuid.New(), uuid.New(), decimal.NewFromInt(100)) {
		t.Fatal("expected AmendPrice on missing order to return false")
	}
}

func TestAmendQuantityGrowingDoesNotResort(t *testing.T) {
	b := New(order.Buy)
	first := mkOrder(order.Buy, 100, 1)
	second := mkOrder(order.Buy, 100, 1)
	b.Push(first)
	b.Push(second)

	if !b.AmendQuantity(second.Participant(), second.ID(), decimal.NewFromInt(50)) {
		t.Fatal("AmendQuantity returned false for a resting order")
	}
	head, _ := b.Peek()
	if head.ID() != first.ID() {
		t.Fatal("growing quantity at an equal price must not jump the queue")
	}
}

func TestRemoveUnknownOrderIsNoOp(t *testing.T) {
	b := New(order.Sell)
	if b.Remove(uuid.New(), uuid.New()) {
		t.Fatal("expected Remove on missing order to return false")
	}
}

func TestLenNeverExceedsCap(t *testing.T) {
	b := New(order.Buy)
	for i := 0; i < 50; i++ {
		b.Push(mkOrder(order.Buy, int64(i), 1))
		if b.Len() > b.Cap() {
			t.Fatalf("len %d exceeded cap %d", b.Len(), b.Cap())
		}
	}
}
