package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/brokerlabs/xchange/core/exchange"
	"github.com/brokerlabs/xchange/core/order"
)

func TestParseSide(t *testing.T) {
	side, err := parseSide("buy")
	assert.NoError(t, err)
	assert.Equal(t, "BUY", side.String())

	side, err = parseSide("SELL")
	assert.NoError(t, err)
	assert.Equal(t, "SELL", side.String())

	_, err = parseSide("market")
	assert.Error(t, err)
}

func amendRequest(t *testing.T, participantID, orderID uuid.UUID, body map[string]string) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	assert.NoError(t, err)

	r := httptest.NewRequest(http.MethodPatch, "/orders/"+orderID.String(), bytes.NewReader(raw))
	r = r.WithContext(context.WithValue(r.Context(), participantKey{}, participantID))

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", orderID.String())
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestAmendOrderRejectsNeitherPriceNorQuantity(t *testing.T) {
	core := exchange.New([]string{"GOOGL"}, decimal.NewFromInt(1000), 10)
	h := New(core, nil, zap.NewNop())
	participantID := uuid.New()
	orderID, _, err := core.Submit(participantID, order.Buy, "GOOGL", decimal.NewFromInt(100), decimal.NewFromInt(1))
	assert.NoError(t, err)

	req := amendRequest(t, participantID, orderID, map[string]string{"side": "buy", "instrument": "GOOGL"})
	w := httptest.NewRecorder()
	h.AmendOrder(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAmendOrderRejectsBothPriceAndQuantity(t *testing.T) {
	core := exchange.New([]string{"GOOGL"}, decimal.NewFromInt(1000), 10)
	h := New(core, nil, zap.NewNop())
	participantID := uuid.New()
	orderID, _, err := core.Submit(participantID, order.Buy, "GOOGL", decimal.NewFromInt(100), decimal.NewFromInt(1))
	assert.NoError(t, err)

	req := amendRequest(t, participantID, orderID, map[string]string{
		"side": "buy", "instrument": "GOOGL", "price": "110", "quantity": "2",
	})
	w := httptest.NewRecorder()
	h.AmendOrder(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAmendOrderPriceUpdatesBook(t *testing.T) {
	core := exchange.New([]string{"GOOGL"}, decimal.NewFromInt(1000), 10)
	h := New(core, nil, zap.NewNop())
	participantID := uuid.New()
	orderID, _, err := core.Submit(participantID, order.Buy, "GOOGL", decimal.NewFromInt(100), decimal.NewFromInt(1))
	assert.NoError(t, err)

	req := amendRequest(t, participantID, orderID, map[string]string{
		"side": "buy", "instrument": "GOOGL", "price": "150",
	})
	w := httptest.NewRecorder()
	h.AmendOrder(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	bids, _, _ := core.OrderBook("GOOGL")
	assert.True(t, bids[0].Price().Equal(decimal.NewFromInt(150)))
}

func TestAmendOrderZeroQuantityRejected(t *testing.T) {
	core := exchange.New([]string{"GOOGL"}, decimal.NewFromInt(1000), 10)
	h := New(core, nil, zap.NewNop())
	participantID := uuid.New()
	orderID, _, err := core.Submit(participantID, order.Buy, "GOOGL", decimal.NewFromInt(100), decimal.NewFromInt(1))
	assert.NoError(t, err)

	req := amendRequest(t, participantID, orderID, map[string]string{
		"side": "buy", "instrument": "GOOGL", "quantity": "0",
	})
	w := httptest.NewRecorder()
	h.AmendOrder(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
