package sse

import (
	"context"

	"github.com/osse101/WorldEvents_Go/internal/event"
	"github.com/osse101/WorldEvents_Go/internal/logger"
)

// Subscriber bridges the internal event bus to the SSE hub
type Subscriber struct {
	hub *Hub
	bus event.Bus
}

// NewSubscriber creates a new SSE subscriber
func NewSubscriber(hub *Hub, bus event.Bus) *Subscriber {
	return &Subscriber{
		hub: hub,
		bus: bus,
	}
}

// Subscribe registers the hub for every notification type
func (s *Subscriber) Subscribe() {
	event.SubscribeAll(s.bus, s.handle)
	logger.Info(LogMsgSubscriberReady, "types", event.NotificationTypes())
}

func (s *Subscriber) handle(ctx context.Context, evt event.Event) error {
	zone := evt.Metadata.Zone
	s.hub.Broadcast(Event{
		Type:      string(evt.Type),
		Timestamp: evt.PublishedAt.Unix(),
		Zone:      &zone,
		Payload:   evt.Payload,
		recipient: evt.Metadata.Recipient,
	})

	logger.FromContext(ctx).Debug(LogMsgEventBroadcast,
		"event_type", evt.Type,
		"zone", zone.String(),
		"recipient", evt.Metadata.Recipient)
	return nil
}
