// Package httpapi exposes the exchange core over HTTP: submit, amend,
// cancel, order-book and log reads, plus registration and login.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/brokerlabs/xchange/core/exchange"
	"github.com/brokerlabs/xchange/core/order"
	"github.com/brokerlabs/xchange/internal/identity"
)

type participantKey struct{}

// Handler holds the dependencies every route needs.
type Handler struct {
	Core     *exchange.Core
	Identity *identity.Service
	Log      *zap.Logger
}

// New constructs a Handler.
func New(core *exchange.Core, ids *identity.Service, log *zap.Logger) *Handler {
	return &Handler{Core: core, Identity: ids, Log: log}
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		Password    string `json:"password"`
		InitialCash string `json:"initial_cash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cash := decimal.Zero
	if req.InitialCash != "" {
		parsed, err := decimal.NewFromString(req.InitialCash)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid initial_cash")
			return
		}
		cash = parsed
	}

	participant, err := h.Identity.Register(r.Context(), req.Username, req.Password, cash)
	if err != nil {
		h.Log.Warn("registration failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"participant_id": participant.ID().String(),
		"username":       req.Username,
	})
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.Identity.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// JWTAuthMiddleware verifies a session token and stashes the
// participant id it carries on the request context.
func (h *Handler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "authorization header required")
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		participantID, err := h.Identity.ParticipantFromToken(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), participantKey{}, participantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func participantFromContext(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(participantKey{}).(uuid.UUID)
	return id, ok
}

// PlaceOrder handles POST /orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	participantID, ok := participantFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Side       string `json:"side"`
		Instrument string `json:"instrument"`
		Price      string `json:"price"`
		Quantity   string `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	side, err := parseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || !price.IsPositive() {
		writeError(w, http.StatusBadRequest, "price must be a positive number")
		return
	}
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil || !quantity.IsPositive() {
		writeError(w, http.StatusBadRequest, "quantity must be a positive number")
		return
	}

	id, accepted, err := h.Core.Submit(participantID, side, req.Instrument, price, quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !accepted {
		writeError(w, http.StatusBadRequest, "order rejected")
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"order_id": id.String()})
}

// CancelOrder handles DELETE /orders/{id}.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	participantID, ok := participantFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	side, err := parseSide(r.URL.Query().Get("side"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	instrument := r.URL.Query().Get("instrument")

	if !h.Core.Cancel(participantID, orderID, side, instrument) {
		h.Log.Info("cancel found no matching resting order", zap.String("order_id", orderID.String()))
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "cancel processed"})
}

// AmendOrder handles PATCH /orders/{id}. The body selects whether this
// is a price amend or a quantity amend by supplying exactly one of
// "price" or "quantity"; supplying neither or both is a bad request.
func (h *Handler) AmendOrder(w http.ResponseWriter, r *http.Request) {
	participantID, ok := participantFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req struct {
		Side       string `json:"side"`
		Instrument string `json:"instrument"`
		Price      string `json:"price"`
		Quantity   string `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	side, err := parseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if (req.Price == "") == (req.Quantity == "") {
		writeError(w, http.StatusBadRequest, "amend requires exactly one of price or quantity")
		return
	}

	if req.Price != "" {
		price, err := decimal.NewFromString(req.Price)
		if err != nil || !price.IsPositive() {
			writeError(w, http.StatusBadRequest, "price must be a positive number")
			return
		}
		if !h.Core.AmendPrice(participantID, orderID, side, req.Instrument, price) {
			h.Log.Info("amend-price found no matching resting order", zap.String("order_id", orderID.String()))
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"message": "amend processed"})
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "quantity must be a number")
		return
	}
	_, err = h.Core.AmendQuantity(participantID, orderID, side, req.Instrument, quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "amend processed"})
}

// GetOrderBook handles GET /orderbook?instrument=GOOGL.
func (h *Handler) GetOrderBook(w http.ResponseWriter, r *http.Request) {
	instrument := r.URL.Query().Get("instrument")
	bids, asks, ok := h.Core.OrderBook(instrument)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown instrument")
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"bids": bids,
		"asks": asks,
	})
}

// GetOrderLog handles GET /logs/orders.
func (h *Handler) GetOrderLog(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.Core.OrderLog())
}

// GetFillLog handles GET /logs/fills.
func (h *Handler) GetFillLog(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.Core.FillLog())
}

func parseSide(raw string) (order.Side, error) {
	switch strings.ToUpper(raw) {
	case "BUY":
		return order.Buy, nil
	case "SELL":
		return order.Sell, nil
	default:
		return 0, errInvalidSide
	}
}

var errInvalidSide = httpError("side must be 'buy' or 'sell'")

type httpError string

func (e httpError) Error() string { return string(e) }

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
