package utils

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ActivityEvent is a point-affecting event pushed to admin dashboards.
type ActivityEvent struct {
	Type        string    `json:"type"` // redeemed, verified, refunded, donation
	DonorID     uuid.UUID `json:"donor_id"`
	Points      int       `json:"points"`
	VoucherCode string    `json:"voucher_code,omitempty"`
	At          time.Time `json:"at"`
}

// ActivityHub fans ledger and voucher events out to connected websocket
// clients. Connections that fail a write are dropped; delivery is
// best-effort and never blocks the caller's request path.
type ActivityHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func NewActivityHub() *ActivityHub {
	return &ActivityHub{conns: make(map[*websocket.Conn]bool)}
}

// Register adds a subscriber connection.
func (h *ActivityHub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = true
}

// Unregister removes and closes a subscriber connection.
func (h *ActivityHub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[conn] {
		delete(h.conns, conn)
		conn.Close()
	}
}

// Publish sends the event to all subscribers. Safe to call on a nil hub
// so services can treat the feed as optional.
func (h *ActivityHub) Publish(ev ActivityEvent) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// Count returns the number of connected subscribers.
func (h *ActivityHub) Count() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
