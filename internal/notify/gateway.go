// Package notify turns typed orchestrator notifications into bus events and forwards
// them to external listeners.
package notify

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/event"
	"github.com/osse101/WorldEvents_Go/internal/logger"
)

// Gateway publishes notifications on the event bus. It is the orchestrator's Notifier.
type Gateway struct {
	bus   event.Bus
	clock clockwork.Clock
}

// NewGateway creates a gateway over a bus, normally the resilient publisher.
func NewGateway(bus event.Bus, clock clockwork.Clock) *Gateway {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Gateway{bus: bus, clock: clock}
}

// Notify publishes n. Delivery failures are logged and never reach the caller, since
// the state behind the notification is already persisted.
func (g *Gateway) Notify(ctx context.Context, n domain.Notification) {
	evt := event.NewNotificationEvent(n, g.clock.Now().UTC())
	log := logger.FromContext(ctx)

	if err := g.bus.Publish(ctx, evt); err != nil {
		log.Error(LogMsgPublishFailed, "type", evt.Type, "zone", evt.Metadata.Zone.String(), "error", err)
		return
	}
	log.Debug(LogMsgNotificationSent, "type", evt.Type, "recipient", evt.Metadata.Recipient)
}
