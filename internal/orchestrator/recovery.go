package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

// rehydrateWithRetry rebuilds the actor from the store, backing off between attempts.
// After the last failure the actor stays unloaded: every request retries the load first
// and fails with ErrZoneUnavailable while the store is still down, and a timer retries
// it in the background so persisted deadlines are re-armed without traffic.
func (a *zoneActor) rehydrateWithRetry() {
	ctx := a.background()
	var err error
	for attempt := 1; attempt <= RehydrateAttempts; attempt++ {
		if err = a.rehydrate(ctx); err == nil {
			a.hydrated = true
			return
		}
		a.log.Warn(LogMsgRehydrateFailed, "attempt", attempt, "error", err)
		a.timers.stopAll()
		a.reset()
		if attempt == RehydrateAttempts {
			break
		}
		select {
		case <-a.o.clock.After(RehydrateBackoff * time.Duration(attempt)):
		case <-a.stop:
			return
		}
	}
	a.log.Error(LogMsgRehydrateFailed, "attempts", RehydrateAttempts, "error", err)
	a.armHydrationRetry()
}

// ensureHydrated loads an unloaded actor before it serves a message.
func (a *zoneActor) ensureHydrated() error {
	if a.hydrated {
		return nil
	}
	if err := a.rehydrate(a.background()); err != nil {
		a.timers.stopAll()
		a.reset()
		a.armHydrationRetry()
		a.log.Warn(LogMsgZoneUnavailable, "error", err)
		return fmt.Errorf("%w: %s: %v", domain.ErrZoneUnavailable, a.zone, err)
	}
	a.hydrated = true
	return nil
}

// armHydrationRetry schedules an empty message; handle reloads the zone before running it.
func (a *zoneActor) armHydrationRetry() {
	a.timers.arm(hydrationTimerKey, HydrationRetryInterval, func(*zoneActor) {})
}

// rehydrate loads the open instances, boss rows and unclaimed rewards of the zone and
// re-arms every timer from persisted timestamps. Deadlines that passed while nothing was
// running fire immediately.
func (a *zoneActor) rehydrate(ctx context.Context) error {
	insts, err := a.o.store.ListOpenInstances(ctx, a.zone)
	if err != nil {
		return err
	}
	for _, inst := range insts {
		def, err := a.o.catalog.GetEvent(inst.EventID)
		if err != nil {
			a.log.Warn(LogMsgDefinitionMissing, "instance", inst.ID, "event_id", inst.EventID)
			continue
		}
		parts, err := a.o.store.ListParticipations(ctx, inst.ID)
		if err != nil {
			return err
		}
		st := newInstanceState(inst, def)
		for _, p := range parts {
			st.parts[p.ParticipantID] = p
		}
		a.instances[inst.ID] = st
		a.o.track(inst.ID, a.zone)
	}

	defs := a.o.catalog.BossesInZone(a.zone)
	for _, def := range defs {
		b, err := a.o.store.GetBossSpawn(ctx, def.ID)
		if err != nil {
			if !isNotFound(err) {
				return err
			}
			b = domain.NewBossSpawn(def)
		}
		a.bosses[def.ID] = b
	}

	unclaimed, err := a.o.store.ListUnclaimedRewards(ctx, a.zone)
	if err != nil {
		return err
	}

	for _, st := range a.instances {
		a.armInstanceTimers(st)
	}
	for _, def := range defs {
		a.armBossTimers(def, a.bosses[def.ID])
	}
	a.recoverRewards(ctx, unclaimed)

	a.log.Info(LogMsgRehydrated, "instances", len(a.instances), "bosses", len(a.bosses), "unclaimed_rewards", len(unclaimed))
	return nil
}

// recoverRewards re-enqueues grants that were tiered but never confirmed.
func (a *zoneActor) recoverRewards(ctx context.Context, parts []*domain.Participation) {
	if a.o.rewards == nil || len(parts) == 0 {
		return
	}
	defs := make(map[uuid.UUID]*domain.EventDefinition)
	enqueued := 0
	for _, p := range parts {
		if p.RewardTier == nil {
			continue
		}
		def, ok := defs[p.InstanceID]
		if !ok {
			inst, err := a.o.store.GetInstance(ctx, p.InstanceID)
			if err != nil {
				a.log.Warn(LogMsgRewardEnqueueFailed, "instance", p.InstanceID, "error", err)
				continue
			}
			if def, err = a.o.catalog.GetEvent(inst.EventID); err != nil {
				a.log.Warn(LogMsgDefinitionMissing, "instance", p.InstanceID, "event_id", inst.EventID)
				continue
			}
			defs[p.InstanceID] = def
		}
		grant := domain.RewardGrant{
			InstanceID:    p.InstanceID,
			EventID:       def.ID,
			ParticipantID: p.ParticipantID,
			Tier:          *p.RewardTier,
			Reward:        def.Rewards[*p.RewardTier],
		}
		if err := a.o.rewards.Enqueue(ctx, grant); err != nil {
			a.log.Error(LogMsgRewardEnqueueFailed, "instance", p.InstanceID, "participant", p.ParticipantID, "error", err)
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		a.log.Info(LogMsgRewardsRecovered, "count", enqueued)
	}
}
