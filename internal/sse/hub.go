// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"

	"codeberg.org/oliverandrich/go-shop-backend/internal/metrics"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
)

// NotificationEvent is the event name used for new inbox records.
const NotificationEvent = "notification"

// client represents a connected SSE client with its channel and owner.
type client struct {
	ch    chan string
	owner models.PrincipalRef
}

// Hub manages SSE clients per connection key and principal.
// Tabs opened with the same bearer token share a connection key.
// A principal can hold several keys (different devices).
type Hub struct {
	clients    map[string][]client
	principals map[models.PrincipalRef][]string
	mu         sync.RWMutex
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string][]client),
		principals: make(map[models.PrincipalRef][]string),
	}
}

// Register adds a new client channel for the given key and principal.
// Returns the channel to receive events on.
func (h *Hub) Register(key string, owner models.PrincipalRef) chan string {
	ch := make(chan string, 10) // buffered to prevent blocking

	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[key] = append(h.clients[key], client{ch: ch, owner: owner})

	if !lo.Contains(h.principals[owner], key) {
		h.principals[owner] = append(h.principals[owner], key)
	}
	h.recordGauges()

	return ch
}

// Unregister removes a client channel for the given key. A channel already
// closed by CloseKey is left alone.
func (h *Hub) Unregister(key string, owner models.PrincipalRef, ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !lo.ContainsBy(h.clients[key], func(c client) bool { return c.ch == ch }) {
		return
	}

	h.clients[key] = lo.Filter(h.clients[key], func(c client, _ int) bool {
		return c.ch != ch
	})

	if len(h.clients[key]) == 0 {
		delete(h.clients, key)
		h.dropKey(owner, key)
	}

	close(ch)
	h.recordGauges()
}

// CloseKey disconnects every client of key. Stream handlers see their
// channel closed and end the response.
func (h *Hub) CloseKey(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[key]
	delete(h.clients, key)
	for _, c := range clients {
		h.dropKey(c.owner, key)
		close(c.ch)
	}
	h.recordGauges()

	return len(clients)
}

func (h *Hub) dropKey(owner models.PrincipalRef, key string) {
	h.principals[owner] = lo.Without(h.principals[owner], key)
	if len(h.principals[owner]) == 0 {
		delete(h.principals, owner)
	}
}

// recordGauges publishes the connection counts. Callers hold the write lock.
func (h *Hub) recordGauges() {
	metrics.StreamClients.Set(float64(h.clientCount()))
	metrics.StreamTokens.Set(float64(len(h.clients)))
	metrics.StreamPrincipals.Set(float64(len(h.principals)))
}

// SendToKey sends a message to all clients of the given key.
func (h *Hub) SendToKey(key string, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients[key] {
		select {
		case c.ch <- message:
		default:
			// Channel full, skip (prevents blocking)
		}
	}
}

// SendToPrincipal sends a message to every connection of owner.
func (h *Hub) SendToPrincipal(owner models.PrincipalRef, message string) {
	h.mu.RLock()
	keys := slices.Clone(h.principals[owner])
	h.mu.RUnlock()

	for _, key := range keys {
		h.SendToKey(key, message)
	}
}

// PublishNotification streams a stored inbox record to its owner.
func (h *Hub) PublishNotification(n *models.Notification) {
	msg, err := FormatJSONEvent(NotificationEvent, n)
	if err != nil {
		slog.Error("sse_encode_failed", "notification", n.ID, "error", err)
		return
	}
	h.SendToPrincipal(n.Owner(), msg)
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.clientCount()
}

func (h *Hub) clientCount() int {
	return lo.SumBy(lo.Values(h.clients), func(clients []client) int {
		return len(clients)
	})
}
