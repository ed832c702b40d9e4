package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/osse101/WorldEvents_Go/internal/event"
	"github.com/osse101/WorldEvents_Go/internal/metrics"
	"github.com/osse101/WorldEvents_Go/internal/notify"
	"github.com/osse101/WorldEvents_Go/internal/scheduler"
	"github.com/osse101/WorldEvents_Go/internal/sse"
)

// EventHandlerDependencies holds the dependencies needed for event handler registration.
type EventHandlerDependencies struct {
	EventBus   event.Bus
	Hub        *sse.Hub
	Scheduler  *scheduler.Scheduler
	WebhookURL string
}

// RegisterEventHandlers subscribes every notification consumer:
// the SSE stream, the metrics collector, the optional outbound webhook and the chain
// trigger listener.
func RegisterEventHandlers(deps EventHandlerDependencies) error {
	sse.NewSubscriber(deps.Hub, deps.EventBus).Subscribe()
	slog.Info(LogMsgSSESubscriberRegistered)

	if err := metrics.NewEventMetricsCollector().Register(deps.EventBus); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedRegisterMetrics, err)
	}
	slog.Info(LogMsgMetricsCollectorRegistered)

	if deps.WebhookURL != "" {
		notify.NewWebhook(deps.WebhookURL).Subscribe(deps.EventBus)
		slog.Info(LogMsgWebhookRegistered, "url", deps.WebhookURL)
	}

	if deps.Scheduler != nil {
		deps.Scheduler.SubscribeChains(deps.EventBus)
		slog.Info(LogMsgChainListenerRegistered)
	}

	return nil
}
