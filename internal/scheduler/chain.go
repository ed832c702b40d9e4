package scheduler

import (
	"context"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/event"
	"github.com/osse101/WorldEvents_Go/internal/logger"
)

// SubscribeChains arms chain triggers when the event they follow completes successfully.
// Arming only writes the schedule row; the next Tick fires it once the delay passed.
func (s *Scheduler) SubscribeChains(bus event.Bus) {
	bus.Subscribe(event.Type(domain.NotifyEventCompleted), s.handleCompleted)
}

func (s *Scheduler) handleCompleted(ctx context.Context, evt event.Event) error {
	if evt.Metadata.Recipient != "" {
		return nil
	}
	log := logger.FromContext(ctx)

	done, err := event.DecodePayload[domain.EventCompleted](evt.Payload)
	if err != nil || !done.Success {
		return nil
	}

	schedules, err := s.store.ListSchedules(ctx)
	if err != nil {
		// Returning the error would re-deliver the notification to every subscriber.
		log.Error(LogMsgListSchedules, "error", err)
		return nil
	}

	for _, sch := range schedules {
		chain, ok := sch.Trigger.(domain.ChainTrigger)
		if !ok || !sch.Enabled || chain.AfterEventID != done.EventID {
			continue
		}
		if !chain.AnyZone && sch.Zone() != evt.Metadata.Zone {
			continue
		}
		if err := sch.Validate(); err != nil {
			log.Warn(LogMsgChainArmFailed, "event_id", sch.EventID, "after", done.EventID, "error", err)
			continue
		}
		at := done.CompletedAt.Add(chain.Delay.Std())
		if err := s.store.UpdateScheduleTrigger(ctx, sch.EventID, sch.ZoneID, sch.LastTriggeredAt, &at); err != nil {
			log.Error(LogMsgChainArmFailed, "event_id", sch.EventID, "after", done.EventID, "error", err)
			continue
		}
		log.Info(LogMsgChainArmed, "event_id", sch.EventID, "after", done.EventID, "fires_at", at)
	}
	return nil
}
