package domain

import (
	"encoding/json"
	"fmt"
	"slices"
)

// ObjectiveKind is the discriminator of an objective variant.
type ObjectiveKind string

const (
	ObjectiveKill      ObjectiveKind = "kill"
	ObjectiveKillBoss  ObjectiveKind = "kill_boss"
	ObjectiveCollect   ObjectiveKind = "collect"
	ObjectiveDefend    ObjectiveKind = "defend"
	ObjectiveEscort    ObjectiveKind = "escort"
	ObjectiveTerritory ObjectiveKind = "territory"
	ObjectiveDamage    ObjectiveKind = "damage"
)

// ObjectiveSpec is the kind-specific part of an objective. The set of implementations
// is closed; Objective.Units switches over all of them.
type ObjectiveSpec interface {
	Kind() ObjectiveKind
	isObjectiveSpec()
}

// KillSpec counts creature kills. An empty filter accepts any creature.
type KillSpec struct {
	CreatureIDs []uint32 `json:"creature_ids,omitempty"`
}

// KillBossSpec is satisfied by the death of a specific world boss.
type KillBossSpec struct {
	BossID uint32 `json:"boss_id"`
}

// CollectSpec counts items turned in.
type CollectSpec struct {
	ItemIDs []uint32 `json:"item_ids,omitempty"`
}

// DefendSpec counts defend ticks reported for a protected object.
type DefendSpec struct {
	TargetID uint32 `json:"target_id,omitempty"`
}

// EscortSpec counts escort ticks reported for an escorted entity.
type EscortSpec struct {
	TargetID uint32 `json:"target_id,omitempty"`
}

// DamageSpec accumulates damage dealt to matching creatures.
type DamageSpec struct {
	CreatureIDs []uint32 `json:"creature_ids,omitempty"`
}

// TerritorySpec is progressed by territory ticks rather than facts.
type TerritorySpec struct {
	ControlPoints []ControlPoint `json:"control_points"`
	RequiredHold  Duration       `json:"required_hold"`
}

// ControlPoint is a capturable location of a territory objective.
type ControlPoint struct {
	ID          string   `json:"id"`
	Position    Position `json:"position"`
	Radius      float64  `json:"radius"`
	CaptureTime Duration `json:"capture_time"`
}

func (KillSpec) Kind() ObjectiveKind      { return ObjectiveKill }
func (KillBossSpec) Kind() ObjectiveKind  { return ObjectiveKillBoss }
func (CollectSpec) Kind() ObjectiveKind   { return ObjectiveCollect }
func (DefendSpec) Kind() ObjectiveKind    { return ObjectiveDefend }
func (EscortSpec) Kind() ObjectiveKind    { return ObjectiveEscort }
func (DamageSpec) Kind() ObjectiveKind    { return ObjectiveDamage }
func (TerritorySpec) Kind() ObjectiveKind { return ObjectiveTerritory }

func (KillSpec) isObjectiveSpec()      {}
func (KillBossSpec) isObjectiveSpec()  {}
func (CollectSpec) isObjectiveSpec()   {}
func (DefendSpec) isObjectiveSpec()    {}
func (EscortSpec) isObjectiveSpec()    {}
func (DamageSpec) isObjectiveSpec()    {}
func (TerritorySpec) isObjectiveSpec() {}

// Objective is one measurable goal inside a phase.
type Objective struct {
	Target        int           `json:"target"`
	PointsPerUnit int64         `json:"points_per_unit"`
	Spec          ObjectiveSpec `json:"-"`
}

// Kind returns the variant discriminator.
func (o Objective) Kind() ObjectiveKind {
	if o.Spec == nil {
		return ""
	}
	return o.Spec.Kind()
}

// Units reports how many objective units a fact is worth, zero when it does not apply.
func (o Objective) Units(f Fact) int64 {
	switch spec := o.Spec.(type) {
	case KillSpec:
		if f.Kind == FactKill && matchesID(spec.CreatureIDs, f.TargetID) {
			return 1
		}
	case KillBossSpec:
		if f.Kind == FactBossKill && f.TargetID == spec.BossID {
			return 1
		}
	case CollectSpec:
		if f.Kind == FactCollect && matchesID(spec.ItemIDs, f.TargetID) {
			return f.Units()
		}
	case DefendSpec:
		if f.Kind == FactDefendTick && (spec.TargetID == 0 || spec.TargetID == f.TargetID) {
			return 1
		}
	case EscortSpec:
		if f.Kind == FactEscortTick && (spec.TargetID == 0 || spec.TargetID == f.TargetID) {
			return 1
		}
	case DamageSpec:
		if f.Kind == FactDamage && matchesID(spec.CreatureIDs, f.TargetID) {
			return f.Units()
		}
	case TerritorySpec:
		return 0
	}
	return 0
}

func matchesID(filter []uint32, id uint32) bool {
	return len(filter) == 0 || slices.Contains(filter, id)
}

type objectiveJSON struct {
	Type          ObjectiveKind  `json:"type"`
	Target        int            `json:"target"`
	PointsPerUnit int64          `json:"points_per_unit"`
	CreatureIDs   []uint32       `json:"creature_ids,omitempty"`
	BossID        uint32         `json:"boss_id,omitempty"`
	ItemIDs       []uint32       `json:"item_ids,omitempty"`
	TargetID      uint32         `json:"target_id,omitempty"`
	ControlPoints []ControlPoint `json:"control_points,omitempty"`
	RequiredHold  Duration       `json:"required_hold,omitempty"`
}

func (o *Objective) UnmarshalJSON(b []byte) error {
	var raw objectiveJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	o.Target = raw.Target
	o.PointsPerUnit = raw.PointsPerUnit
	switch raw.Type {
	case ObjectiveKill:
		o.Spec = KillSpec{CreatureIDs: raw.CreatureIDs}
	case ObjectiveKillBoss:
		o.Spec = KillBossSpec{BossID: raw.BossID}
	case ObjectiveCollect:
		o.Spec = CollectSpec{ItemIDs: raw.ItemIDs}
	case ObjectiveDefend:
		o.Spec = DefendSpec{TargetID: raw.TargetID}
	case ObjectiveEscort:
		o.Spec = EscortSpec{TargetID: raw.TargetID}
	case ObjectiveDamage:
		o.Spec = DamageSpec{CreatureIDs: raw.CreatureIDs}
	case ObjectiveTerritory:
		o.Spec = TerritorySpec{ControlPoints: raw.ControlPoints, RequiredHold: raw.RequiredHold}
		if o.Target == 0 {
			o.Target = 1
		}
	default:
		return fmt.Errorf("%w: unknown objective type %q", ErrInvalidCatalog, raw.Type)
	}
	return nil
}

func (o Objective) MarshalJSON() ([]byte, error) {
	raw := objectiveJSON{Type: o.Kind(), Target: o.Target, PointsPerUnit: o.PointsPerUnit}
	switch spec := o.Spec.(type) {
	case KillSpec:
		raw.CreatureIDs = spec.CreatureIDs
	case KillBossSpec:
		raw.BossID = spec.BossID
	case CollectSpec:
		raw.ItemIDs = spec.ItemIDs
	case DefendSpec:
		raw.TargetID = spec.TargetID
	case EscortSpec:
		raw.TargetID = spec.TargetID
	case DamageSpec:
		raw.CreatureIDs = spec.CreatureIDs
	case TerritorySpec:
		raw.ControlPoints = spec.ControlPoints
		raw.RequiredHold = spec.RequiredHold
	}
	return json.Marshal(raw)
}
