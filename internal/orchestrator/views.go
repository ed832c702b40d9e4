package orchestrator

import (
	"cmp"
	"slices"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

// eventList renders every in-memory instance: open ones plus terminal ones still in
// their grace period.
func (a *zoneActor) eventList() []domain.EventListEntry {
	states := make([]*instanceState, 0, len(a.instances))
	for _, st := range a.instances {
		states = append(states, st)
	}
	slices.SortFunc(states, func(x, y *instanceState) int {
		if c := x.inst.CreatedAt.Compare(y.inst.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(x.inst.ID.String(), y.inst.ID.String())
	})

	entries := make([]domain.EventListEntry, 0, len(states))
	for _, st := range states {
		inst := st.inst.Clone()
		entries = append(entries, domain.EventListEntry{
			InstanceID:       inst.ID,
			EventID:          inst.EventID,
			Type:             st.def.Type,
			State:            inst.State,
			Phase:            inst.PhaseIndex,
			Wave:             inst.Wave,
			ParticipantCount: inst.ParticipantCount,
			EndsAt:           inst.EndsAt,
			Objectives:       domain.ObjectiveViews(st.phase(), inst.Progress),
		})
	}
	return entries
}
