// Package wsfeed broadcasts live order-book snapshots over WebSocket:
// on a fixed ticker, and immediately after any fill.
package wsfeed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/brokerlabs/xchange/core/exchange"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Feed manages connected WebSocket clients and pushes order-book
// snapshots to them.
type Feed struct {
	core        *exchange.Core
	log         *zap.Logger
	mu          sync.RWMutex
	clients     map[*client]bool
	instruments []string
}

// New constructs a Feed over core, watching the given instruments.
func New(core *exchange.Core, log *zap.Logger, instruments []string) *Feed {
	return &Feed{
		core:        core,
		log:         log,
		clients:     make(map[*client]bool),
		instruments: instruments,
	}
}

// Handler upgrades an HTTP request to a WebSocket connection and
// keeps it registered until the client disconnects.
func (f *Feed) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			f.log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		c := &client{conn: conn}

		f.mu.Lock()
		f.clients[c] = true
		f.mu.Unlock()

		f.sendSnapshot(c)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				f.mu.Lock()
				delete(f.clients, c)
				f.mu.Unlock()
				return
			}
		}
	}
}

// Run broadcasts a snapshot on every tick until stop is closed. Call it
// from its own goroutine.
func (f *Feed) Run(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			f.Broadcast()
		}
	}
}

// Broadcast pushes a fresh snapshot to every connected client. Called
// on the ticker in Run and, separately, by the matching engine's
// caller immediately after a fill so clients don't wait for the next
// tick to see liquidity change.
func (f *Feed) Broadcast() {
	snapshot := f.snapshot()
	data, err := json.Marshal(snapshot)
	if err != nil {
		f.log.Error("failed to marshal order book snapshot", zap.Error(err))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		c.mu.Lock()
		err := c.conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			delete(f.clients, c)
		}
	}
}

func (f *Feed) sendSnapshot(c *client) {
	snapshot := f.snapshot()
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteMessage(websocket.TextMessage, data)
}

func (f *Feed) snapshot() map[string]interface{} {
	books := make(map[string]interface{}, len(f.instruments))
	for _, instrument := range f.instruments {
		bids, asks, ok := f.core.OrderBook(instrument)
		if !ok {
			continue
		}
		books[instrument] = map[string]interface{}{
			"bids": bids,
			"asks": asks,
		}
	}
	return books
}
