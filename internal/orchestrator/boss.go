package orchestrator

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/ledger"
	"github.com/osse101/WorldEvents_Go/internal/logger"
)

func (a *zoneActor) bossIDs() []uint32 {
	ids := make([]uint32, 0, len(a.bosses))
	for id := range a.bosses {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// bossState returns the boss row, creating the initial waiting row for a boss this
// actor has not seen yet.
func (a *zoneActor) bossState(def *domain.WorldBossDefinition) *domain.BossSpawn {
	b, ok := a.bosses[def.ID]
	if !ok {
		b = domain.NewBossSpawn(def)
		a.bosses[def.ID] = b
	}
	return b
}

func (a *zoneActor) evaluateBoss(ctx context.Context, def *domain.WorldBossDefinition) (*domain.BossSpawn, error) {
	b := a.bossState(def)
	now := a.o.now()

	if b.State == domain.BossWaiting && !b.WindowOpen(now) &&
		(b.NextSpawnAfter == nil || !now.Before(*b.NextSpawnAfter)) {
		if start, end, ok := def.Window.Current(now); ok {
			next := b.Clone()
			next.WindowStart = domain.TimePtr(start)
			next.WindowEnd = domain.TimePtr(end)
			if err := a.o.store.SaveBossSpawn(ctx, next); err != nil {
				return nil, err
			}
			a.bosses[def.ID] = next
			a.armBossWindow(next)
			a.log.Info(LogMsgBossWindowOpened, logger.AttrKeyBoss, def.ID, "window_end", end)
		}
	}

	if err := a.trySpawn(ctx, def); err != nil {
		return nil, err
	}
	return a.bosses[def.ID].Clone(), nil
}

// trySpawn spawns a waiting boss whose window is open once enough participants are
// present. Health scales with the difficulty of the current population.
func (a *zoneActor) trySpawn(ctx context.Context, def *domain.WorldBossDefinition) error {
	b := a.bossState(def)
	now := a.o.now()
	if b.State != domain.BossWaiting || !b.WindowOpen(now) {
		return nil
	}
	pop := a.population()
	if pop < def.MinPlayers {
		return nil
	}

	difficulty := ledger.Difficulty(pop)
	next := b.Clone()
	next.State = domain.BossSpawned
	next.SpawnedAt = domain.TimePtr(now)
	next.EngagedAt = nil
	next.KilledAt = nil
	next.KillFactID = ""
	next.MaxHealth = int64(float64(def.MaxHealth) * difficulty)
	next.CurrentHealth = next.MaxHealth
	next.Phase = 0
	next.Enraged = false
	next.LinkedInstance = nil

	handles, err := a.spawn(ctx, domain.SpawnRequest{
		Zone:        a.zone,
		Group:       def.SpawnGroup,
		CreatureIDs: []uint32{def.CreatureID},
		Difficulty:  difficulty,
		AbilitySet:  def.InitialAbilitySet,
		SpawnPoints: a.o.catalog.GetSpawnPoints(def.ZoneID, def.SpawnGroup),
		BossID:      def.ID,
	})
	if err != nil {
		return fmt.Errorf("%w: boss %d: %v", domain.ErrSpawnFailed, def.ID, err)
	}
	next.EntityHandles = handles

	if def.EventID != 0 {
		if inst, err := a.startLinkedEvent(ctx, def.EventID); err != nil {
			a.log.Warn(LogMsgBossLinkedEventFailed, logger.AttrKeyBoss, def.ID, "event_id", def.EventID, "error", err)
		} else {
			id := inst.ID
			next.LinkedInstance = &id
		}
	}

	if err := a.o.store.SaveBossSpawn(ctx, next); err != nil {
		a.despawn(ctx, handles)
		if next.LinkedInstance != nil {
			a.cancelLinked(ctx, *next.LinkedInstance)
		}
		return err
	}
	a.bosses[def.ID] = next
	a.armEnrage(def, next)

	a.log.Info(LogMsgBossSpawned, logger.AttrKeyBoss, def.ID, "max_health", next.MaxHealth, "difficulty", difficulty)
	a.notify(ctx, domain.WorldBossSpawned{
		Audience:   a.audience(),
		BossID:     def.ID,
		MaxHealth:  next.MaxHealth,
		AbilitySet: def.InitialAbilitySet,
		Difficulty: difficulty,
		InstanceID: next.LinkedInstance,
	})
	return nil
}

func (a *zoneActor) startLinkedEvent(ctx context.Context, eventID uint32) (*domain.Instance, error) {
	def, err := a.o.catalog.GetEvent(eventID)
	if err != nil {
		return nil, err
	}
	inst, err := a.create(ctx, def)
	if err != nil {
		return nil, err
	}
	return a.start(ctx, inst.ID, 0)
}

func (a *zoneActor) cancelLinked(ctx context.Context, id uuid.UUID) {
	st, ok := a.instances[id]
	if !ok || st.inst.State.IsTerminal() {
		return
	}
	if _, err := a.finalize(ctx, st, domain.StateCancelled); err != nil {
		a.log.Warn(LogMsgBossLinkedEventFailed, "instance", id, "error", err)
	}
}

// liveBoss returns the spawned or engaged boss whose creature is targetID.
func (a *zoneActor) liveBoss(targetID uint32) (*domain.WorldBossDefinition, *domain.BossSpawn) {
	for _, id := range a.bossIDs() {
		b := a.bosses[id]
		if !b.State.Alive() {
			continue
		}
		def, err := a.o.catalog.GetWorldBoss(id)
		if err != nil || def.CreatureID != targetID {
			continue
		}
		return def, b
	}
	return nil, nil
}

// bossFacts applies hits on a live world boss and returns the facts the event instances
// of the zone should see. A kill of the boss creature becomes a boss kill; damage stays a
// damage fact and is followed by a boss kill when it drops the boss to zero. A retried
// fact that already killed the boss yields the same facts again without touching the boss.
func (a *zoneActor) bossFacts(ctx context.Context, f domain.Fact) ([]domain.Fact, error) {
	if f.Kind != domain.FactKill && f.Kind != domain.FactDamage {
		return []domain.Fact{f}, nil
	}
	if def := a.bossKilledBy(f); def != nil {
		return bossKillFacts(f, def), nil
	}
	def, b := a.liveBoss(f.TargetID)
	if def == nil {
		return []domain.Fact{f}, nil
	}

	if f.Kind == domain.FactKill {
		if err := a.killBoss(ctx, def, b.Clone(), f); err != nil {
			return nil, err
		}
		return bossKillFacts(f, def), nil
	}

	killed, err := a.damageBoss(ctx, def, b, f)
	if err != nil {
		return nil, err
	}
	if killed {
		return bossKillFacts(f, def), nil
	}
	return []domain.Fact{f}, nil
}

// bossKilledBy returns the boss whose recorded kill came from fact f.
func (a *zoneActor) bossKilledBy(f domain.Fact) *domain.WorldBossDefinition {
	if f.ID == "" {
		return nil
	}
	for _, id := range a.bossIDs() {
		b := a.bosses[id]
		if b.State != domain.BossKilled || b.KillFactID != f.ID {
			continue
		}
		def, err := a.o.catalog.GetWorldBoss(id)
		if err != nil || def.CreatureID != f.TargetID {
			continue
		}
		return def
	}
	return nil
}

// bossKillFacts is what the instances see for the hit that killed def.
func bossKillFacts(f domain.Fact, def *domain.WorldBossDefinition) []domain.Fact {
	bossKill := f
	bossKill.Kind = domain.FactBossKill
	bossKill.TargetID = def.ID
	bossKill.Amount = 0
	if f.Kind == domain.FactDamage {
		return []domain.Fact{f, bossKill}
	}
	return []domain.Fact{bossKill}
}

// damageBoss applies damage, engaging a freshly spawned boss and crossing every health
// phase the hit passes through.
func (a *zoneActor) damageBoss(ctx context.Context, def *domain.WorldBossDefinition, b *domain.BossSpawn, f domain.Fact) (bool, error) {
	now := a.o.now()
	next := b.Clone()
	engaged := false
	if next.State == domain.BossSpawned {
		next.State = domain.BossEngaged
		next.EngagedAt = domain.TimePtr(now)
		engaged = true
	}
	next.CurrentHealth = max(next.CurrentHealth-f.Units(), 0)

	var crossed []int
	for next.Phase < len(def.Phases) && next.HealthPercent() <= def.Phases[next.Phase].HealthPercent {
		crossed = append(crossed, next.Phase)
		next.Phase++
	}

	if next.CurrentHealth == 0 {
		return true, a.killBoss(ctx, def, next, f)
	}

	if err := a.o.store.SaveBossSpawn(ctx, next); err != nil {
		return false, err
	}
	a.bosses[def.ID] = next
	if engaged {
		a.timers.cancel(bossTimerKey(def.ID, timerWindow))
	}

	for _, i := range crossed {
		phase := def.Phases[i]
		a.log.Info(LogMsgBossPhaseChanged, logger.AttrKeyBoss, def.ID, "phase", i+1)
		a.notify(ctx, domain.WorldBossPhaseChanged{
			Audience:      a.audience(),
			BossID:        def.ID,
			Phase:         i + 1,
			HealthPercent: next.HealthPercent(),
			AbilitySet:    phase.AbilitySet,
			Enraged:       next.Enraged,
		})
		if len(phase.Adds) > 0 {
			if _, err := a.spawn(ctx, domain.SpawnRequest{
				Zone:        a.zone,
				Group:       def.SpawnGroup,
				CreatureIDs: phase.Adds,
				Difficulty:  ledger.Difficulty(a.population()),
				AbilitySet:  phase.AbilitySet,
				SpawnPoints: a.o.catalog.GetSpawnPoints(def.ZoneID, def.SpawnGroup),
				BossID:      def.ID,
			}); err != nil {
				a.log.Warn(LogMsgSpawnFailed, logger.AttrKeyBoss, def.ID, "phase", i+1, "error", err)
			}
		}
	}
	return false, nil
}

// killBoss persists the staged row as killed and starts the respawn cooldown.
func (a *zoneActor) killBoss(ctx context.Context, def *domain.WorldBossDefinition, next *domain.BossSpawn, f domain.Fact) error {
	now := a.o.now()
	killerID := f.ParticipantID
	next.State = domain.BossKilled
	next.KillFactID = f.ID
	next.KilledAt = domain.TimePtr(now)
	next.CurrentHealth = 0
	next.NextSpawnAfter = domain.TimePtr(now.Add(def.Cooldown.Std()))
	next.EntityHandles = nil
	if err := a.o.store.SaveBossSpawn(ctx, next); err != nil {
		return err
	}
	a.bosses[def.ID] = next
	a.timers.cancel(bossTimerKey(def.ID, timerWindow))
	a.timers.cancel(bossTimerKey(def.ID, timerEnrage))
	a.armCooldown(next)

	a.log.Info(LogMsgBossKilled, logger.AttrKeyBoss, def.ID, "killer", killerID, "next_spawn_after", *next.NextSpawnAfter)
	a.notify(ctx, domain.WorldBossKilled{
		Audience:       a.audience(),
		BossID:         def.ID,
		KillerID:       killerID,
		NextSpawnAfter: *next.NextSpawnAfter,
	})
	return nil
}

func (a *zoneActor) armBossWindow(b *domain.BossSpawn) {
	if b.WindowEnd == nil {
		return
	}
	id := b.BossID
	a.timers.armAt(bossTimerKey(id, timerWindow), *b.WindowEnd, func(a *zoneActor) {
		a.onWindowClose(id)
	})
}

func (a *zoneActor) armEnrage(def *domain.WorldBossDefinition, b *domain.BossSpawn) {
	if def.Enrage <= 0 || b.Enraged || b.SpawnedAt == nil {
		return
	}
	id := b.BossID
	a.timers.armAt(bossTimerKey(id, timerEnrage), b.SpawnedAt.Add(def.Enrage.Std()), func(a *zoneActor) {
		a.onEnrage(id)
	})
}

func (a *zoneActor) armCooldown(b *domain.BossSpawn) {
	at := a.o.now()
	if b.NextSpawnAfter != nil {
		at = *b.NextSpawnAfter
	}
	id := b.BossID
	a.timers.armAt(bossTimerKey(id, timerCooldown), at, func(a *zoneActor) {
		a.onCooldown(id)
	})
}

// armBossTimers re-arms the timers implied by a persisted boss row.
func (a *zoneActor) armBossTimers(def *domain.WorldBossDefinition, b *domain.BossSpawn) {
	switch b.State {
	case domain.BossWaiting:
		if b.WindowOpen(a.o.now()) {
			a.armBossWindow(b)
		}
	case domain.BossSpawned:
		a.armBossWindow(b)
		a.armEnrage(def, b)
	case domain.BossEngaged:
		a.armEnrage(def, b)
	case domain.BossKilled:
		a.armCooldown(b)
	}
}

// retryBoss re-runs a boss timer transition after the store rejected it.
func (a *zoneActor) retryBoss(id uint32, fn func(a *zoneActor)) {
	a.timers.arm(bossTimerKey(id, timerRetry), PersistRetryDelay, fn)
}

// onWindowClose ends a spawn window. A boss nobody engaged leaves the world; an engaged
// fight continues until the boss dies.
func (a *zoneActor) onWindowClose(id uint32) {
	b, ok := a.bosses[id]
	if !ok {
		return
	}
	ctx := a.background()
	switch b.State {
	case domain.BossWaiting:
		a.log.Info(LogMsgBossWindowClosed, logger.AttrKeyBoss, id)
	case domain.BossSpawned:
		next := b.Clone()
		next.State = domain.BossWaiting
		next.SpawnedAt = nil
		next.CurrentHealth = 0
		next.MaxHealth = 0
		next.Phase = 0
		next.Enraged = false
		next.EntityHandles = nil
		next.LinkedInstance = nil
		if err := a.o.store.SaveBossSpawn(ctx, next); err != nil {
			a.log.Warn(LogMsgTimerTransitionFailed, logger.AttrKeyBoss, id, "error", err)
			a.retryBoss(id, func(a *zoneActor) { a.onWindowClose(id) })
			return
		}
		a.bosses[id] = next
		a.timers.cancel(bossTimerKey(id, timerEnrage))

		a.log.Info(LogMsgBossDespawned, logger.AttrKeyBoss, id, "reason", DespawnReasonWindowClosed)
		a.notify(ctx, domain.WorldBossDespawned{
			Audience: a.audience(),
			BossID:   id,
			Reason:   DespawnReasonWindowClosed,
		})
		a.despawn(ctx, b.EntityHandles)
		if b.LinkedInstance != nil {
			a.cancelLinked(ctx, *b.LinkedInstance)
		}
	}
}

func (a *zoneActor) onEnrage(id uint32) {
	b, ok := a.bosses[id]
	if !ok || !b.State.Alive() || b.Enraged {
		return
	}
	def, err := a.o.catalog.GetWorldBoss(id)
	if err != nil {
		return
	}
	ctx := a.background()
	next := b.Clone()
	next.Enraged = true
	if err := a.o.store.SaveBossSpawn(ctx, next); err != nil {
		a.log.Warn(LogMsgTimerTransitionFailed, logger.AttrKeyBoss, id, "error", err)
		a.retryBoss(id, func(a *zoneActor) { a.onEnrage(id) })
		return
	}
	a.bosses[id] = next

	a.log.Info(LogMsgBossEnraged, logger.AttrKeyBoss, id)
	a.notify(ctx, domain.WorldBossPhaseChanged{
		Audience:      a.audience(),
		BossID:        id,
		Phase:         next.Phase,
		HealthPercent: next.HealthPercent(),
		AbilitySet:    def.EnrageAbilitySet,
		Enraged:       true,
	})
}

// onCooldown returns a killed boss to waiting and re-evaluates its spawn window.
func (a *zoneActor) onCooldown(id uint32) {
	b, ok := a.bosses[id]
	if !ok || b.State != domain.BossKilled {
		return
	}
	def, err := a.o.catalog.GetWorldBoss(id)
	if err != nil {
		return
	}
	ctx := a.background()
	next := domain.NewBossSpawn(def)
	next.NextSpawnAfter = b.NextSpawnAfter
	next.KilledAt = b.KilledAt
	if err := a.o.store.SaveBossSpawn(ctx, next); err != nil {
		a.log.Warn(LogMsgTimerTransitionFailed, logger.AttrKeyBoss, id, "error", err)
		a.retryBoss(id, func(a *zoneActor) { a.onCooldown(id) })
		return
	}
	a.bosses[id] = next
	a.log.Info(LogMsgBossCooldownEnded, logger.AttrKeyBoss, id)

	if _, err := a.evaluateBoss(ctx, def); err != nil {
		a.log.Warn(LogMsgSpawnFailed, logger.AttrKeyBoss, id, "error", err)
	}
}

// bossSnapshot is used by views; it never exposes the actor-owned row.
func (a *zoneActor) bossSnapshot(id uint32) (*domain.BossSpawn, bool) {
	b, ok := a.bosses[id]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}
