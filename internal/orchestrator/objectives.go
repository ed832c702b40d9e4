package orchestrator

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/ledger"
)

// handleFact resolves world-boss hits, then applies the fact to every active instance of
// the zone it concerns. A fact id is remembered only once every instance accepted it, so
// a retried fact after a store failure is applied again.
func (a *zoneActor) handleFact(ctx context.Context, f domain.Fact) error {
	if f.ID != "" && a.seenFacts.Contains(f.ID) {
		a.log.Debug(LogMsgDuplicateFact, "fact_id", f.ID)
		return nil
	}

	facts, err := a.bossFacts(ctx, f)
	if err != nil {
		return err
	}

	var errs []error
	for _, st := range a.activeInstances() {
		if f.InstanceID != nil && *f.InstanceID != st.inst.ID {
			continue
		}
		for _, fact := range facts {
			// An earlier fact may have finished the instance.
			if st.inst.State != domain.StateActive {
				break
			}
			if err := a.applyFact(ctx, st, fact); err != nil {
				a.log.Warn(LogMsgFactRejected, "instance", st.inst.ID, "kind", fact.Kind, "error", err)
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if f.ID != "" {
		a.seenFacts.Add(f.ID, struct{}{})
	}
	return nil
}

type objectiveHit struct {
	index   int
	applied int
}

// applyFact stages every effect of one fact on one instance, persists the instance with
// the touched participations, and only then commits and notifies.
func (a *zoneActor) applyFact(ctx context.Context, st *instanceState, f domain.Fact) error {
	phase := st.phase()
	if phase == nil {
		return nil
	}
	now := a.o.now()
	next := st.inst.Clone()
	weights := st.def.Weights

	points := ledger.FactPoints(weights, f)
	var hits, completed []objectiveHit
	matched := false
	for idx, obj := range phase.Objectives {
		units := obj.Units(f)
		if units <= 0 {
			continue
		}
		matched = true
		prog := next.Progress[idx]
		if prog == nil || prog.Done() {
			continue
		}
		applied := int(min(units, int64(prog.Target-prog.Current)))
		prog.Current += applied
		points += obj.PointsPerUnit * int64(applied)
		hit := objectiveHit{index: idx, applied: applied}
		hits = append(hits, hit)
		if prog.Done() {
			completed = append(completed, hit)
		}
	}

	waveChanged, waveAdvanced := countWaveKill(next, phase, f, now)
	joins := matched || points > 0
	if !joins && !waveChanged {
		return nil
	}

	staged := make(map[string]*domain.Participation)
	if joins {
		p := a.stageParticipant(st, staged, f.ParticipantID, now)
		if p.Faction == "" {
			p.Faction = f.Faction
		}
		switch f.Kind {
		case domain.FactKill, domain.FactBossKill:
			p.Kills++
		case domain.FactDamage:
			p.Damage += f.Units()
		case domain.FactHealing:
			p.Healing += f.Units()
		}
		p.AddContribution(points)
	}

	// Every contributor to an objective that just completed gets the completion bonus.
	for _, hit := range completed {
		ref := domain.ObjectiveRef{Phase: next.PhaseIndex, Index: hit.index}
		for _, pid := range contributorsWith(st.contributors[hit.index], f.ParticipantID) {
			p := a.stageParticipant(st, staged, pid, now)
			if p.MarkObjective(ref) {
				p.AddContribution(ledger.ObjectivePoints(weights))
			}
		}
	}

	newcomers := 0
	for pid := range staged {
		if _, ok := st.parts[pid]; !ok {
			newcomers++
		}
	}
	if newcomers > 0 {
		next.ParticipantCount += newcomers
		next.Difficulty = ledger.Difficulty(next.ParticipantCount)
	}

	parts := make([]*domain.Participation, 0, len(staged))
	for _, p := range staged {
		parts = append(parts, p)
	}
	if err := a.o.store.SaveInstance(ctx, next, parts); err != nil {
		return err
	}

	st.inst = next
	for _, p := range parts {
		st.parts[p.ParticipantID] = p
	}
	for _, hit := range hits {
		set, ok := st.contributors[hit.index]
		if !ok {
			set = make(map[string]struct{})
			st.contributors[hit.index] = set
		}
		set[f.ParticipantID] = struct{}{}
	}

	for _, hit := range hits {
		prog := next.Progress[hit.index]
		a.notify(ctx, domain.EventObjectiveUpdate{
			Audience:       a.audience(),
			InstanceID:     next.ID,
			Phase:          next.PhaseIndex,
			ObjectiveIndex: hit.index,
			Current:        prog.Current,
			TargetCount:    prog.Target,
		})
	}
	a.notifyContributions(ctx, st, parts)
	if waveAdvanced {
		a.waveStarted(ctx, st)
	} else if waveChanged {
		a.notifyWave(ctx, st)
	}

	a.settle(ctx, st)
	return nil
}

// stageParticipant returns the staged copy of a participation, creating the row when the
// participant has not joined yet.
func (a *zoneActor) stageParticipant(st *instanceState, staged map[string]*domain.Participation, pid string, now time.Time) *domain.Participation {
	if p, ok := staged[pid]; ok {
		p.LastActivityAt = now
		return p
	}
	var p *domain.Participation
	if existing, ok := st.parts[pid]; ok {
		p = existing.Clone()
	} else {
		p = &domain.Participation{
			InstanceID:    st.inst.ID,
			ParticipantID: pid,
			JoinedAt:      now,
		}
	}
	p.LastActivityAt = now
	staged[pid] = p
	return p
}

func contributorsWith(set map[string]struct{}, pid string) []string {
	out := make([]string, 0, len(set)+1)
	for id := range set {
		out = append(out, id)
	}
	if _, ok := set[pid]; !ok {
		out = append(out, pid)
	}
	slices.Sort(out)
	return out
}

// notifyContributions sends each touched participant its running total and the tier it
// would get if the event ended now.
func (a *zoneActor) notifyContributions(ctx context.Context, st *instanceState, touched []*domain.Participation) {
	if len(touched) == 0 {
		return
	}
	scores := make([]ledger.Score, 0, len(st.parts))
	for _, p := range st.parts {
		scores = append(scores, ledger.Score{ParticipantID: p.ParticipantID, Contribution: p.Contribution})
	}
	tiers := ledger.AssignTiers(scores)
	for _, p := range touched {
		a.notify(ctx, domain.ContributionUpdate{
			Audience:      a.audienceFor(p.ParticipantID),
			InstanceID:    st.inst.ID,
			ParticipantID: p.ParticipantID,
			Contribution:  p.Contribution,
			RewardTier:    tiers[p.ParticipantID],
		})
	}
}
