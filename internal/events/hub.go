// Package events broadcasts order lifecycle events to websocket
// subscribers. Slow subscribers drop events rather than block the
// engine's critical section.
package events

import (
	"sync"
	"time"
)

// Event types emitted by the order service.
const (
	TypeOrderAccepted  = "order_accepted"
	TypeOrderRejected  = "order_rejected"
	TypeOrderCancelled = "order_cancelled"
	TypeOrdersMatched  = "orders_matched"
	TypeLiquidation    = "liquidation"
)

// Event is one lifecycle notification.
type Event struct {
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// Subscription receives broadcast events on C until unsubscribed.
type Subscription struct {
	C chan Event
}

// Hub fans events out to all current subscriptions.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a subscription with the given channel buffer.
func (h *Hub) Subscribe(buffer int) *Subscription {
	sub := &Subscription{C: make(chan Event, buffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.C)
}

// Broadcast delivers the event to every subscription, skipping any
// whose buffer is full.
func (h *Hub) Broadcast(typ string, payload any) {
	ev := Event{Type: typ, At: time.Now().UTC(), Payload: payload}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.C <- ev:
		default:
		}
	}
}
