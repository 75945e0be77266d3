package ws

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"dm-service/internal/models"
)

// Client is a live connection handle that events can be queued on.
type Client interface {
	UserID() string
	// Send queues an event without blocking; false means it was dropped.
	Send(event models.Event) bool
}

// Hub is the connection registry: one live client per user id.
type Hub struct {
	clients map[string]Client
	mu      sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]Client)}
}

// Register stores client as the connection of userID and returns the
// client it replaced, if any. The last connection wins.
func (h *Hub) Register(userID string, client Client) Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.clients[userID]
	h.clients[userID] = client
	return prev
}

// Unregister drops whatever connection is registered for userID.
func (h *Hub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, userID)
}

// UnregisterIfCurrent drops the entry only while it still points at client,
// so a connection evicted by a newer one cannot remove its successor.
func (h *Hub) UnregisterIfCurrent(userID string, client Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.clients[userID]; !ok || current != client {
		return false
	}
	delete(h.clients, userID)
	return true
}

// Lookup returns the live connection of userID.
func (h *Hub) Lookup(userID string) (Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[userID]
	return client, ok
}

// OnlineIDs returns a sorted snapshot of connected user ids.
func (h *Hub) OnlineIDs() []string {
	h.mu.RLock()
	ids := lo.Keys(h.clients)
	h.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len reports the number of registered users.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendTo queues events, in order, on the connection of userID and reports
// whether the user was online. Events dropped by a full queue still count as delivered.
func (h *Hub) SendTo(userID string, events ...models.Event) bool {
	client, ok := h.Lookup(userID)
	if !ok {
		return false
	}
	for _, event := range events {
		client.Send(event)
	}
	return true
}

// Broadcast queues event on every registered connection.
func (h *Hub) Broadcast(event models.Event) {
	h.mu.RLock()
	clients := lo.Values(h.clients)
	h.mu.RUnlock()

	for _, client := range clients {
		client.Send(event)
	}
}
