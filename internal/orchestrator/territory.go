package orchestrator

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/ledger"
	"github.com/osse101/WorldEvents_Go/internal/logger"
)

// handlePresence records where a participant is. Arrivals can make a waiting world boss
// eligible to spawn.
func (a *zoneActor) handlePresence(ctx context.Context, p domain.Presence) {
	if p.Left {
		delete(a.presence, p.ParticipantID)
		return
	}
	a.presence[p.ParticipantID] = presenceEntry{
		faction:  p.Faction,
		position: p.Position,
		seenAt:   a.o.now(),
	}

	for _, id := range a.bossIDs() {
		b := a.bosses[id]
		if b.State != domain.BossWaiting || !b.WindowOpen(a.o.now()) {
			continue
		}
		def, err := a.o.catalog.GetWorldBoss(id)
		if err != nil {
			continue
		}
		if err := a.trySpawn(ctx, def); err != nil {
			a.log.Warn(LogMsgSpawnFailed, logger.AttrKeyBoss, id, "error", err)
		}
	}
}

// livePresence drops entries older than the presence TTL and returns the rest.
func (a *zoneActor) livePresence() map[string]presenceEntry {
	cutoff := a.o.now().Add(-a.o.cfg.PresenceTTL)
	for pid, e := range a.presence {
		if e.seenAt.Before(cutoff) {
			delete(a.presence, pid)
		}
	}
	return a.presence
}

func (a *zoneActor) population() int {
	return len(a.livePresence())
}

func (a *zoneActor) armTerritoryTick(id uuid.UUID) {
	a.timers.arm(instanceTimerKey(id, timerTerritory), a.o.cfg.TerritoryTick, func(a *zoneActor) {
		a.territoryTick(id)
	})
}

type capture struct {
	point   string
	faction string
	members []string
}

// territoryTick advances control point holds from current presence. A point held by a
// single faction accumulates hold toward its capture time; contested and empty points
// follow the configured contest policy. A faction owning a strict majority of points
// accumulates majority hold and wins once it reaches the required hold.
func (a *zoneActor) territoryTick(id uuid.UUID) {
	st, ok := a.instances[id]
	if !ok || st.inst.State != domain.StateActive {
		return
	}
	phase := st.phase()
	idx, spec, ok := phase.TerritoryObjective()
	if !ok {
		return
	}

	ctx := a.background()
	tick := a.o.cfg.TerritoryTick
	now := a.o.now()
	next := st.inst.Clone()
	prog := next.Progress[idx]
	if prog.Territory == nil {
		prog.Territory = domain.InitialProgress(phase)[idx].Territory
	}
	tp := prog.Territory
	present := a.livePresence()

	var captures []capture
	dirty := false
	for _, cp := range spec.ControlPoints {
		state, ok := tp.Points[cp.ID]
		if !ok {
			state = &domain.ControlPointState{}
			tp.Points[cp.ID] = state
		}
		if state.Hold == nil {
			state.Hold = map[string]time.Duration{}
		}

		factions := make(map[string][]string)
		for pid, e := range present {
			if e.faction != "" && e.position.DistanceTo(cp.Position) <= cp.Radius {
				factions[e.faction] = append(factions[e.faction], pid)
			}
		}

		if len(factions) == 1 {
			for faction, members := range factions {
				if state.Owner == faction {
					continue
				}
				state.Hold[faction] += tick
				dirty = true
				if state.Hold[faction] >= cp.CaptureTime.Std() {
					state.Owner = faction
					state.Hold = map[string]time.Duration{}
					slices.Sort(members)
					captures = append(captures, capture{point: cp.ID, faction: faction, members: members})
				}
			}
			continue
		}
		if len(state.Hold) > 0 && a.o.cfg.ContestPolicy != domain.ContestFreeze {
			a.applyContestPolicy(state, tick)
			dirty = true
		}
	}

	owned := make(map[string]int)
	for _, s := range tp.Points {
		if s.Owner != "" {
			owned[s.Owner]++
		}
	}
	leader := ""
	for faction, n := range owned {
		if n*2 > len(spec.ControlPoints) {
			leader = faction
		}
	}
	if leader != tp.LeadingFaction {
		tp.LeadingFaction = leader
		tp.MajorityHold = 0
		dirty = true
	}
	victory := false
	if leader != "" {
		dirty = true
		tp.MajorityHold += tick
		if tp.MajorityHold >= spec.RequiredHold.Std() {
			tp.Victor = leader
			prog.Current = prog.Target
			victory = true
		}
	}

	if !dirty {
		a.armTerritoryTick(id)
		return
	}

	staged := make(map[string]*domain.Participation)
	weights := st.def.Weights
	for _, c := range captures {
		for _, pid := range c.members {
			p := a.stageParticipant(st, staged, pid, now)
			if p.Faction == "" {
				p.Faction = c.faction
			}
			p.AddContribution(ledger.ObjectivePoints(weights))
		}
	}
	if victory {
		ref := domain.ObjectiveRef{Phase: next.PhaseIndex, Index: idx}
		for _, pid := range sortedKeys(present) {
			if present[pid].faction != tp.Victor {
				continue
			}
			p := a.stageParticipant(st, staged, pid, now)
			if p.Faction == "" {
				p.Faction = tp.Victor
			}
			p.MarkObjective(ref)
		}
	}
	for pid := range staged {
		if _, ok := st.parts[pid]; !ok {
			next.ParticipantCount++
		}
	}
	next.Difficulty = ledger.Difficulty(next.ParticipantCount)

	parts := make([]*domain.Participation, 0, len(staged))
	for _, p := range staged {
		parts = append(parts, p)
	}
	if err := a.o.store.SaveInstance(ctx, next, parts); err != nil {
		a.log.Warn(LogMsgTimerTransitionFailed, "instance", id, "error", err)
		a.armTerritoryTick(id)
		return
	}
	st.inst = next
	for _, p := range parts {
		st.parts[p.ParticipantID] = p
	}

	for _, c := range captures {
		a.log.Info(LogMsgTerritoryCaptured, "instance", id, "point", c.point, "faction", c.faction)
	}
	if len(captures) > 0 || victory {
		a.notify(ctx, domain.EventObjectiveUpdate{
			Audience:       a.audience(),
			InstanceID:     id,
			Phase:          next.PhaseIndex,
			ObjectiveIndex: idx,
			Current:        prog.Current,
			TargetCount:    prog.Target,
		})
	}
	a.notifyContributions(ctx, st, parts)

	if victory {
		a.log.Info(LogMsgTerritoryVictory, "instance", id, "faction", tp.Victor)
	} else {
		a.armTerritoryTick(id)
	}
	a.settle(ctx, st)
}

func (a *zoneActor) applyContestPolicy(state *domain.ControlPointState, tick time.Duration) {
	switch a.o.cfg.ContestPolicy {
	case domain.ContestReset:
		clear(state.Hold)
	case domain.ContestDecay:
		decay := time.Duration(a.o.cfg.DecayRate * float64(tick))
		for faction, hold := range state.Hold {
			if hold <= decay {
				delete(state.Hold, faction)
				continue
			}
			state.Hold[faction] = hold - decay
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
