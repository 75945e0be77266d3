package observability

import (
	"context"
	"log"
	"sync/atomic"
)

// Publisher sends JSON events to the message broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

type publisherHolder struct{ Publisher }

var defaultPublisher atomic.Pointer[publisherHolder]

// SetPublisher installs the process-wide broker publisher; nil disables publishing.
func SetPublisher(publisher Publisher) {
	if publisher == nil {
		defaultPublisher.Store(nil)
		return
	}
	defaultPublisher.Store(&publisherHolder{publisher})
}

// PublishEvent is a no-op until a publisher is installed. Failures are counted.
func PublishEvent(ctx context.Context, routingKey string, message any, headers map[string]string) error {
	holder := defaultPublisher.Load()
	if holder == nil {
		return nil
	}
	if err := holder.Publish(ctx, routingKey, message, headers); err != nil {
		IncAMQPPublishError()
		return err
	}
	return nil
}

// PublishWSEvent counts a websocket lifecycle event and ships it to the broker.
// Broker failures are logged and never reach the connection.
func PublishWSEvent(ctx context.Context, event WSEvent, identity Identity, requestID, traceID string) {
	IncWSEvent(event.Kind, event.Event)
	envelope := NewWSEventEnvelope(event, identity)
	if err := PublishEvent(ctx, WSEventsRoutingKey, envelope, BuildHeaders(requestID, traceID)); err != nil {
		log.Printf("ws event publish failed event=%s conn_id=%s: %v", event.Event, event.ConnID, err)
	}
}
