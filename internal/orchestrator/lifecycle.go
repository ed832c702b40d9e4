package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/ledger"
)

func (a *zoneActor) create(ctx context.Context, def *domain.EventDefinition) (*domain.Instance, error) {
	for _, st := range a.instances {
		if st.inst.EventID == def.ID && !st.inst.State.IsTerminal() {
			return nil, fmt.Errorf("%w: event %d in zone %s", domain.ErrEventAlreadyRunning, def.ID, a.zone)
		}
	}

	inst := domain.NewInstance(def, a.zone, a.o.now())
	inst.Progress = domain.InitialProgress(&def.Phases[0])
	if err := a.o.store.CreateInstance(ctx, inst); err != nil {
		return nil, err
	}

	a.instances[inst.ID] = newInstanceState(inst, def)
	a.o.track(inst.ID, a.zone)
	a.log.Info(LogMsgInstanceCreated, "instance", inst.ID, "event_id", def.ID)
	return inst.Clone(), nil
}

func (a *zoneActor) start(ctx context.Context, id uuid.UUID, duration time.Duration) (*domain.Instance, error) {
	st, err := a.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if !st.inst.State.CanTransition(domain.StateActive) {
		return nil, domain.NewInvalidStateError("start", st.inst.State)
	}
	if duration <= 0 {
		duration = st.def.Duration.Std()
	}

	now := a.o.now()
	next := st.inst.Clone()
	next.State = domain.StateActive
	next.StartedAt = domain.TimePtr(now)
	next.EndsAt = domain.TimePtr(now.Add(duration))
	next.Difficulty = ledger.Difficulty(next.ParticipantCount)
	enterPhase(next, st.def, 0, nil, now)

	if err := a.o.store.SaveInstance(ctx, next, nil); err != nil {
		return nil, err
	}
	st.inst = next
	st.contributors = make(map[int]map[string]struct{})
	a.armInstanceTimers(st)

	a.log.Info(LogMsgInstanceStarted, "instance", id, "event_id", next.EventID, "duration", duration)
	a.notify(ctx, domain.EventStarted{
		Audience:   a.audience(),
		InstanceID: id,
		EventID:    next.EventID,
		Type:       st.def.Type,
		Phase:      next.PhaseIndex,
		Duration:   duration,
		EndsAt:     *next.EndsAt,
		Objectives: domain.ObjectiveViews(st.phase(), next.Progress),
	})
	a.spawnWave(ctx, st)
	return next.Clone(), nil
}

// enterPhase resets the phase-scoped fields of inst for phase idx.
func enterPhase(inst *domain.Instance, def *domain.EventDefinition, idx int, initial map[int]*domain.ObjectiveProgress, now time.Time) {
	phase := def.PhaseAt(idx)
	inst.PhaseIndex = idx
	inst.PhaseStartedAt = domain.TimePtr(now)
	inst.Progress = domain.InitialProgress(phase)
	for i, p := range initial {
		if _, ok := inst.Progress[i]; !ok || p == nil {
			continue
		}
		inst.Progress[i].Current = min(max(p.Current, 0), inst.Progress[i].Target)
	}

	inst.Wave = domain.WaveState{}
	if len(phase.Waves) > 0 {
		inst.Wave = domain.WaveState{
			Number:    1,
			Total:     len(phase.Waves),
			Spawned:   len(phase.Waves[0].CreatureIDs),
			StartedAt: domain.TimePtr(now),
		}
	}
}

func (a *zoneActor) advancePhase(ctx context.Context, id uuid.UUID, idx int, initial map[int]*domain.ObjectiveProgress) (*domain.Instance, error) {
	st, err := a.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.inst.State != domain.StateActive {
		return nil, domain.NewInvalidStateError("advance phase", st.inst.State)
	}
	if idx <= st.inst.PhaseIndex || idx >= len(st.def.Phases) {
		return nil, fmt.Errorf("%w: %d (current %d, phases %d)", domain.ErrPhaseOutOfRange, idx, st.inst.PhaseIndex, len(st.def.Phases))
	}
	if err := a.enterPhaseAndSave(ctx, st, idx, initial); err != nil {
		return nil, err
	}
	return st.inst.Clone(), nil
}

// enterPhaseAndSave persists the move to phase idx and then runs its side effects.
func (a *zoneActor) enterPhaseAndSave(ctx context.Context, st *instanceState, idx int, initial map[int]*domain.ObjectiveProgress) error {
	next := st.inst.Clone()
	enterPhase(next, st.def, idx, initial, a.o.now())
	if err := a.o.store.SaveInstance(ctx, next, nil); err != nil {
		return err
	}
	st.inst = next
	st.contributors = make(map[int]map[string]struct{})
	a.armPhaseTimers(st)

	a.log.Info(LogMsgPhaseAdvanced, "instance", next.ID, "phase", idx)
	a.notify(ctx, domain.EventPhaseChanged{
		Audience:   a.audience(),
		InstanceID: next.ID,
		Phase:      idx,
		Objectives: domain.ObjectiveViews(st.phase(), next.Progress),
	})
	a.spawnWave(ctx, st)

	// A phase may start complete when initial progress already meets every target.
	a.settle(ctx, st)
	return nil
}

// progress advances to the next phase or completes the instance once every objective of
// the current phase is at target.
func (a *zoneActor) progress(ctx context.Context, st *instanceState) error {
	if st.inst.State != domain.StateActive || !st.inst.PhaseComplete() {
		return nil
	}
	if st.inst.PhaseIndex+1 < len(st.def.Phases) {
		return a.enterPhaseAndSave(ctx, st, st.inst.PhaseIndex+1, nil)
	}
	_, err := a.finalize(ctx, st, domain.StateCompleted)
	return err
}

// settle runs progress and keeps retrying it from a timer while the store rejects the
// transition. The change that made the phase complete is already committed.
func (a *zoneActor) settle(ctx context.Context, st *instanceState) {
	if err := a.progress(ctx, st); err != nil {
		id := st.inst.ID
		a.log.Warn(LogMsgTimerTransitionFailed, "instance", id, "error", err)
		a.timers.arm(instanceTimerKey(id, timerRetry), PersistRetryDelay, func(a *zoneActor) {
			if st, ok := a.instances[id]; ok {
				a.settle(a.background(), st)
			}
		})
	}
}

func (a *zoneActor) terminate(ctx context.Context, id uuid.UUID, state domain.InstanceState) (*domain.Instance, error) {
	st, err := a.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if !st.inst.State.CanTransition(state) {
		return nil, domain.NewInvalidStateError(transitionOp(state), st.inst.State)
	}
	return a.finalize(ctx, st, state)
}

func transitionOp(state domain.InstanceState) string {
	switch state {
	case domain.StateCompleted:
		return "complete"
	case domain.StateFailed:
		return "fail"
	default:
		return "cancel"
	}
}

// finalize moves an instance into a terminal state. Successful completion assigns tiers
// and folds the result into every participant's completion history, all in one write.
func (a *zoneActor) finalize(ctx context.Context, st *instanceState, state domain.InstanceState) (*domain.Instance, error) {
	now := a.o.now()
	next := st.inst.Clone()
	next.State = state
	next.CompletedAt = domain.TimePtr(now)

	parts := st.sortedParticipants()
	var histories []*domain.CompletionHistory
	success := state == domain.StateCompleted
	if success {
		scores := make([]ledger.Score, 0, len(parts))
		for _, p := range parts {
			scores = append(scores, ledger.Score{ParticipantID: p.ParticipantID, Contribution: p.Contribution})
		}
		tiers := ledger.AssignTiers(scores)

		var took time.Duration
		if next.StartedAt != nil {
			took = now.Sub(*next.StartedAt)
		}
		for _, p := range parts {
			tier := tiers[p.ParticipantID]
			p.RewardTier = &tier

			h, err := a.o.store.GetCompletionHistory(ctx, p.ParticipantID, next.EventID)
			if err != nil {
				if !isNotFound(err) {
					a.log.Error(LogMsgHistoryLoadFailed, "participant", p.ParticipantID, "error", err)
					return nil, err
				}
				h = &domain.CompletionHistory{ParticipantID: p.ParticipantID, EventID: next.EventID}
			}
			h.Record(tier, p.Contribution, took, now)
			histories = append(histories, h)
		}
	}

	if err := a.o.store.FinalizeInstance(ctx, next, parts, histories); err != nil {
		return nil, err
	}

	st.inst = next
	st.parts = make(map[string]*domain.Participation, len(parts))
	for _, p := range parts {
		st.parts[p.ParticipantID] = p
	}
	st.contributors = make(map[int]map[string]struct{})
	a.timers.cancelPrefix(instanceTimerPrefix(next.ID))
	id := next.ID
	a.timers.arm(instanceTimerKey(id, timerEvict), a.o.cfg.CompletedGrace, func(a *zoneActor) { a.evict(id) })

	a.log.Info(LogMsgInstanceFinalized, "instance", id, "state", state, "participants", len(parts))
	a.notifyCompleted(ctx, st, parts)
	if success {
		a.enqueueRewards(ctx, st, parts)
	}
	return next.Clone(), nil
}

func (a *zoneActor) notifyCompleted(ctx context.Context, st *instanceState, parts []*domain.Participation) {
	inst := st.inst
	success := inst.State == domain.StateCompleted
	victor := inst.Victor()
	for _, p := range parts {
		n := domain.EventCompleted{
			Audience:     a.audienceFor(p.ParticipantID),
			InstanceID:   inst.ID,
			EventID:      inst.EventID,
			State:        inst.State,
			Success:      success,
			RewardTier:   p.RewardTier,
			Contribution: p.Contribution,
			Victor:       victor,
			CompletedAt:  *inst.CompletedAt,
		}
		if p.RewardTier != nil {
			if reward, ok := st.def.Rewards[*p.RewardTier]; ok {
				n.RewardSummary = &reward
			}
		}
		a.notify(ctx, n)
	}
	a.notify(ctx, domain.EventCompleted{
		Audience:    a.audience(),
		InstanceID:  inst.ID,
		EventID:     inst.EventID,
		State:       inst.State,
		Success:     success,
		Victor:      victor,
		CompletedAt: *inst.CompletedAt,
	})
}

func (a *zoneActor) enqueueRewards(ctx context.Context, st *instanceState, parts []*domain.Participation) {
	if a.o.rewards == nil {
		return
	}
	for _, p := range parts {
		if p.RewardTier == nil || p.RewardsClaimed {
			continue
		}
		grant := domain.RewardGrant{
			InstanceID:    st.inst.ID,
			EventID:       st.inst.EventID,
			ParticipantID: p.ParticipantID,
			Tier:          *p.RewardTier,
			Reward:        st.def.Rewards[*p.RewardTier],
		}
		if err := a.o.rewards.Enqueue(ctx, grant); err != nil {
			a.log.Error(LogMsgRewardEnqueueFailed, "instance", st.inst.ID, "participant", p.ParticipantID, "error", err)
		}
	}
}

// evict drops a terminal instance from memory once its grace period is over.
func (a *zoneActor) evict(id uuid.UUID) {
	st, ok := a.instances[id]
	if !ok || !st.inst.State.IsTerminal() {
		return
	}
	delete(a.instances, id)
	a.o.untrack(id)
}

// failOnTimer fails an active instance from a timer. Store failures re-arm a retry
// instead of surfacing an error.
func (a *zoneActor) failOnTimer(id uuid.UUID, still func(st *instanceState) bool) {
	st, ok := a.instances[id]
	if !ok || st.inst.State != domain.StateActive || (still != nil && !still(st)) {
		return
	}
	if _, err := a.finalize(a.background(), st, domain.StateFailed); err != nil {
		a.log.Warn(LogMsgTimerTransitionFailed, "instance", id, "error", err)
		a.timers.arm(instanceTimerKey(id, timerRetry), PersistRetryDelay, func(a *zoneActor) {
			a.failOnTimer(id, still)
		})
	}
}

// armInstanceTimers arms the deadline and phase timers of an active instance from its
// persisted timestamps.
func (a *zoneActor) armInstanceTimers(st *instanceState) {
	if st.inst.State != domain.StateActive {
		return
	}
	id := st.inst.ID
	if st.inst.EndsAt != nil {
		a.timers.armAt(instanceTimerKey(id, timerEnd), *st.inst.EndsAt, func(a *zoneActor) {
			a.failOnTimer(id, nil)
		})
	}
	a.armPhaseTimers(st)
}

func (a *zoneActor) armPhaseTimers(st *instanceState) {
	id := st.inst.ID
	for _, suffix := range []string{timerPhase, timerWave, timerTerritory} {
		a.timers.cancel(instanceTimerKey(id, suffix))
	}
	phase := st.phase()
	if phase == nil {
		return
	}

	phaseIdx := st.inst.PhaseIndex
	if phase.Duration > 0 && st.inst.PhaseStartedAt != nil {
		a.timers.armAt(instanceTimerKey(id, timerPhase), st.inst.PhaseStartedAt.Add(phase.Duration.Std()), func(a *zoneActor) {
			a.failOnTimer(id, func(st *instanceState) bool {
				return st.inst.PhaseIndex == phaseIdx && !st.inst.PhaseComplete()
			})
		})
	}
	a.armWaveTimer(st)
	if _, _, ok := phase.TerritoryObjective(); ok {
		a.armTerritoryTick(id)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
