package domain

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// InstanceState is the lifecycle state of an event instance.
type InstanceState string

const (
	StatePending   InstanceState = "pending"
	StateActive    InstanceState = "active"
	StateCompleted InstanceState = "completed"
	StateFailed    InstanceState = "failed"
	StateCancelled InstanceState = "cancelled"
)

func (s InstanceState) String() string { return string(s) }

// IsTerminal reports whether no further transition is possible.
func (s InstanceState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// CanTransition reports whether s may move to next. Transitions are monotonic;
// only cancellation jumps from pending.
func (s InstanceState) CanTransition(next InstanceState) bool {
	switch s {
	case StatePending:
		return next == StateActive || next == StateCancelled
	case StateActive:
		return next == StateCompleted || next == StateFailed || next == StateCancelled
	default:
		return false
	}
}

// ObjectiveProgress is the runtime progress of one objective of the current phase.
type ObjectiveProgress struct {
	Current   int                `json:"current"`
	Target    int                `json:"target"`
	Territory *TerritoryProgress `json:"territory,omitempty"`
}

// Done reports whether the objective has reached its target.
func (p ObjectiveProgress) Done() bool { return p.Current >= p.Target }

// TerritoryProgress holds control point ownership and the instance-level majority hold.
type TerritoryProgress struct {
	Points         map[string]*ControlPointState `json:"points"`
	LeadingFaction string                        `json:"leading_faction,omitempty"`
	MajorityHold   time.Duration                 `json:"majority_hold"`
	Victor         string                        `json:"victor,omitempty"`
}

// ControlPointState is the runtime owner and per-faction hold accumulators of a point.
type ControlPointState struct {
	Owner string                   `json:"owner,omitempty"`
	Hold  map[string]time.Duration `json:"hold,omitempty"`
}

// WaveState tracks the current wave of an invasion phase.
type WaveState struct {
	Number    int        `json:"number"`
	Total     int        `json:"total"`
	Spawned   int        `json:"spawned"`
	Killed    int        `json:"killed"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// Remaining is the number of wave enemies still alive.
func (w WaveState) Remaining() int {
	if w.Killed >= w.Spawned {
		return 0
	}
	return w.Spawned - w.Killed
}

// Instance is the mutable runtime record of one event occurrence.
type Instance struct {
	ID               uuid.UUID                  `json:"id"`
	EventID          uint32                     `json:"event_id"`
	Zone             ZoneKey                    `json:"zone"`
	State            InstanceState              `json:"state"`
	PhaseIndex       int                        `json:"phase_index"`
	Wave             WaveState                  `json:"wave"`
	Progress         map[int]*ObjectiveProgress `json:"progress"`
	ParticipantCount int                        `json:"participant_count"`
	Difficulty       float64                    `json:"difficulty"`
	CreatedAt        time.Time                  `json:"created_at"`
	StartedAt        *time.Time                 `json:"started_at,omitempty"`
	EndsAt           *time.Time                 `json:"ends_at,omitempty"`
	PhaseStartedAt   *time.Time                 `json:"phase_started_at,omitempty"`
	CompletedAt      *time.Time                 `json:"completed_at,omitempty"`
}

// NewInstance builds a pending instance of def in zone.
func NewInstance(def *EventDefinition, zone ZoneKey, now time.Time) *Instance {
	return &Instance{
		ID:         uuid.New(),
		EventID:    def.ID,
		Zone:       zone,
		State:      StatePending,
		Progress:   map[int]*ObjectiveProgress{},
		Difficulty: 1.0,
		CreatedAt:  now,
	}
}

// PhaseComplete reports whether every objective of the current phase is at target.
func (i *Instance) PhaseComplete() bool {
	if len(i.Progress) == 0 {
		return false
	}
	for _, p := range i.Progress {
		if !p.Done() {
			return false
		}
	}
	return true
}

// Victor returns the faction that won a territory phase, if any.
func (i *Instance) Victor() string {
	for _, p := range i.Progress {
		if p.Territory != nil && p.Territory.Victor != "" {
			return p.Territory.Victor
		}
	}
	return ""
}

// Clone returns a deep copy so state changes can be staged before they are persisted.
func (i *Instance) Clone() *Instance {
	c := *i
	c.Wave.StartedAt = cloneTime(i.Wave.StartedAt)
	c.StartedAt = cloneTime(i.StartedAt)
	c.EndsAt = cloneTime(i.EndsAt)
	c.PhaseStartedAt = cloneTime(i.PhaseStartedAt)
	c.CompletedAt = cloneTime(i.CompletedAt)
	c.Progress = make(map[int]*ObjectiveProgress, len(i.Progress))
	for idx, p := range i.Progress {
		c.Progress[idx] = p.clone()
	}
	return &c
}

func (p *ObjectiveProgress) clone() *ObjectiveProgress {
	c := *p
	if p.Territory != nil {
		t := *p.Territory
		t.Points = make(map[string]*ControlPointState, len(p.Territory.Points))
		for id, pt := range p.Territory.Points {
			cp := ControlPointState{Owner: pt.Owner, Hold: maps.Clone(pt.Hold)}
			t.Points[id] = &cp
		}
		c.Territory = &t
	}
	return &c
}

// InitialProgress builds the starting progress map of a phase.
func InitialProgress(phase *Phase) map[int]*ObjectiveProgress {
	progress := make(map[int]*ObjectiveProgress, len(phase.Objectives))
	for idx, obj := range phase.Objectives {
		p := &ObjectiveProgress{Target: obj.Target}
		if spec, ok := obj.Spec.(TerritorySpec); ok {
			points := make(map[string]*ControlPointState, len(spec.ControlPoints))
			for _, cp := range spec.ControlPoints {
				points[cp.ID] = &ControlPointState{Hold: map[string]time.Duration{}}
			}
			p.Territory = &TerritoryProgress{Points: points}
			if p.Target <= 0 {
				p.Target = 1
			}
		}
		progress[idx] = p
	}
	return progress
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time { return &t }
