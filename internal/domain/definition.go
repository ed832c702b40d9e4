package domain

// EventType is the broad category of a public event.
type EventType string

const (
	EventTypeInvasion   EventType = "invasion"
	EventTypeCollection EventType = "collection"
	EventTypeTerritory  EventType = "territory"
	EventTypeWorldBoss  EventType = "world_boss"
	EventTypeDefense    EventType = "defense"
	EventTypeEscort     EventType = "escort"
)

// EventDefinition is immutable catalog content. It is never mutated at runtime.
type EventDefinition struct {
	ID         uint32              `json:"id"`
	Name       string              `json:"name"`
	Type       EventType           `json:"type"`
	ZoneID     uint32              `json:"zone_id"`
	Duration   Duration            `json:"duration"`
	Phases     []Phase             `json:"phases"`
	Rewards    RewardTable         `json:"rewards,omitempty"`
	SpawnGroup string              `json:"spawn_group,omitempty"`
	Weights    ContributionWeights `json:"contribution_weights"`
	Schedule   *ScheduleSeed       `json:"schedule,omitempty"`
}

// Phase is an ordered stage of an event.
type Phase struct {
	Name       string      `json:"name,omitempty"`
	Objectives []Objective `json:"objectives"`
	// Duration of zero means the phase is bounded only by the event duration.
	Duration Duration `json:"duration,omitempty"`
	Waves    []Wave   `json:"waves,omitempty"`
}

// Wave is a spawn batch within an invasion phase.
type Wave struct {
	CreatureIDs []uint32 `json:"creature_ids"`
	// Threshold is the fraction of the wave that must die before the next wave spawns.
	Threshold float64 `json:"threshold"`
	// Interval, when set, spawns the next wave after this long regardless of kills.
	Interval Duration `json:"interval,omitempty"`
}

// ContributionWeights converts raw combat counters into contribution points.
type ContributionWeights struct {
	Kill              float64 `json:"kill"`
	DamagePerPoint    float64 `json:"damage_per_point"`
	HealingPerPoint   float64 `json:"healing_per_point"`
	ObjectiveComplete float64 `json:"objective_complete"`
}

// DefaultContributionWeights is applied to catalog entries that omit their own weights.
var DefaultContributionWeights = ContributionWeights{
	Kill:              10,
	DamagePerPoint:    0.01,
	HealingPerPoint:   0.01,
	ObjectiveComplete: 50,
}

// PhaseAt returns the phase at index i, or nil when out of range.
func (d *EventDefinition) PhaseAt(i int) *Phase {
	if i < 0 || i >= len(d.Phases) {
		return nil
	}
	return &d.Phases[i]
}

// TerritoryObjective returns the territory objective of a phase, if it has one.
func (p *Phase) TerritoryObjective() (int, TerritorySpec, bool) {
	for i, obj := range p.Objectives {
		if spec, ok := obj.Spec.(TerritorySpec); ok {
			return i, spec, true
		}
	}
	return 0, TerritorySpec{}, false
}

// WaveCreatureSet returns the creature ids that count toward wave kills in this phase.
func (p *Phase) WaveCreatureSet(wave int) map[uint32]struct{} {
	if wave < 1 || wave > len(p.Waves) {
		return nil
	}
	set := make(map[uint32]struct{}, len(p.Waves[wave-1].CreatureIDs))
	for _, id := range p.Waves[wave-1].CreatureIDs {
		set[id] = struct{}{}
	}
	return set
}

// ItemGrant is one item line of a reward descriptor.
type ItemGrant struct {
	ItemID   uint32 `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// RewardDescriptor is what the loot collaborator turns into inventory changes.
type RewardDescriptor struct {
	Currency   int64       `json:"currency,omitempty"`
	Experience int64       `json:"experience,omitempty"`
	Items      []ItemGrant `json:"items,omitempty"`
	Title      string      `json:"title,omitempty"`
}

// IsEmpty reports whether the descriptor grants nothing.
func (r RewardDescriptor) IsEmpty() bool {
	return r.Currency == 0 && r.Experience == 0 && len(r.Items) == 0 && r.Title == ""
}

// RewardTable maps each tier to its reward.
type RewardTable map[RewardTier]RewardDescriptor

// ScheduleSeed is an optional default schedule carried by a catalog entry.
type ScheduleSeed struct {
	InstanceID uint32        `json:"instance_id,omitempty"`
	Enabled    bool          `json:"enabled"`
	Trigger    TriggerConfig `json:"-"`
}
