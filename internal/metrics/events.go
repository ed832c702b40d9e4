package metrics

import (
	"context"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/event"
	"github.com/osse101/WorldEvents_Go/internal/logger"
)

// EventMetricsCollector subscribes to notifications and records metrics
type EventMetricsCollector struct{}

// NewEventMetricsCollector creates a new event metrics collector
func NewEventMetricsCollector() *EventMetricsCollector {
	return &EventMetricsCollector{}
}

// Register subscribes to every notification type
func (e *EventMetricsCollector) Register(bus event.Bus) error {
	event.SubscribeAll(bus, e.HandleEvent)
	return nil
}

// HandleEvent processes notifications and updates metrics
func (e *EventMetricsCollector) HandleEvent(ctx context.Context, evt event.Event) error {
	log := logger.FromContext(ctx)

	NotificationsPublished.WithLabelValues(string(evt.Type)).Inc()

	// Per-participant copies would count one outcome many times
	if evt.Metadata.Recipient != "" {
		return nil
	}

	switch p := evt.Payload.(type) {
	case domain.EventStarted:
		InstancesStarted.WithLabelValues(string(p.Type)).Inc()
	case domain.EventCompleted:
		InstancesFinished.WithLabelValues(string(p.State)).Inc()
	case domain.EventWaveUpdate:
		WaveUpdates.Inc()
	case domain.WorldBossSpawned:
		BossEncounters.WithLabelValues(OutcomeSpawned).Inc()
	case domain.WorldBossKilled:
		BossEncounters.WithLabelValues(OutcomeKilled).Inc()
	case domain.WorldBossDespawned:
		BossEncounters.WithLabelValues(OutcomeDespawned).Inc()
	case domain.Notification:
		// Objective, phase and contribution updates only feed the published counter
	default:
		log.Debug(LogMsgUnexpectedPayload, "type", evt.Type)
		return nil
	}

	log.Debug(LogMsgMetricsRecorded, "type", evt.Type)
	return nil
}
