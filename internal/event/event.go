package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

// Type represents the type of an event
type Type string

// Metadata carries routing information alongside the payload
type Metadata struct {
	Zone      domain.ZoneKey `json:"zone"`
	Recipient string         `json:"recipient,omitempty"`
}

// Event represents an outbound notification travelling through the bus
type Event struct {
	Version     string    `json:"version"` // Event schema version (e.g., "1.0")
	Type        Type      `json:"type"`
	Payload     any       `json:"payload"`
	Metadata    Metadata  `json:"metadata"`
	PublishedAt time.Time `json:"published_at"`
}

// NotificationTypes is every event type the orchestrator publishes, for subscribers that
// want all of them.
func NotificationTypes() []Type {
	types := make([]Type, 0, len(domain.AllNotificationTypes))
	for _, t := range domain.AllNotificationTypes {
		types = append(types, Type(t))
	}
	return types
}

// NewNotificationEvent wraps a typed notification for publishing.
func NewNotificationEvent(n domain.Notification, now time.Time) Event {
	target := n.Target()
	return Event{
		Version:     EventSchemaVersion,
		Type:        Type(n.NotificationType()),
		Payload:     n,
		Metadata:    Metadata{Zone: target.Zone, Recipient: target.Recipient},
		PublishedAt: now,
	}
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for an event bus
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType Type, handler Handler)
}

// MemoryBus is an in-memory implementation of the Event Bus
type MemoryBus struct {
	handlers map[Type][]Handler
	mu       sync.RWMutex
}

// NewMemoryBus creates a new MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[Type][]Handler),
	}
}

// Publish runs every subscriber of the event type synchronously. Handlers must not call
// back into the publisher's caller.
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf(LogMsgHandlerErrorFormat, len(errs), event.Type, errs)
	}
	return nil
}

// Subscribe subscribes a handler to an event type
func (b *MemoryBus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll subscribes a handler to every notification type.
func SubscribeAll(bus Bus, handler Handler) {
	for _, t := range NotificationTypes() {
		bus.Subscribe(t, handler)
	}
}
