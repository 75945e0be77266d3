package mocks

import (
	"sync"

	"dm-service/internal/models"
)

// ClientRecorder is an in-memory connection that keeps every queued event.
type ClientRecorder struct {
	ID string

	mu     sync.Mutex
	events []models.Event
}

func NewClientRecorder(userID string) *ClientRecorder {
	return &ClientRecorder{ID: userID}
}

func (c *ClientRecorder) UserID() string { return c.ID }

func (c *ClientRecorder) Send(event models.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return true
}

// Events returns a copy of everything sent so far.
func (c *ClientRecorder) Events() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Event(nil), c.events...)
}

// OfType returns the events with the given type, in send order.
func (c *ClientRecorder) OfType(eventType string) []models.Event {
	var out []models.Event
	for _, event := range c.Events() {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}
