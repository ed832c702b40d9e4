package domain

import (
	"time"

	"github.com/google/uuid"
)

// FactKind classifies an inbound gameplay fact.
type FactKind string

const (
	FactKill       FactKind = "kill"
	FactDamage     FactKind = "damage"
	FactHealing    FactKind = "healing"
	FactCollect    FactKind = "collect"
	FactDefendTick FactKind = "defend_tick"
	FactEscortTick FactKind = "escort_tick"
	// FactBossKill is derived by the orchestrator when a kill lands on a live world boss.
	FactBossKill FactKind = "boss_kill"
)

// Fact is a zone/participant scoped report from a collaborator (combat, turn-in, escort).
// The orchestrator decides which instances and objectives it satisfies.
type Fact struct {
	// ID is an optional idempotency key; repeated IDs are ignored by the owning actor.
	ID            string     `json:"fact_id,omitempty"`
	Kind          FactKind   `json:"kind"`
	Zone          ZoneKey    `json:"zone"`
	InstanceID    *uuid.UUID `json:"instance_id,omitempty"`
	ParticipantID string     `json:"participant_id"`
	Faction       string     `json:"faction,omitempty"`
	TargetID      uint32     `json:"target_id,omitempty"`
	Amount        int64      `json:"amount,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// Units is the quantity a fact contributes; count-style facts default to one. A negative
// amount contributes nothing.
func (f Fact) Units() int64 {
	switch {
	case f.Amount < 0:
		return 0
	case f.Amount == 0:
		return 1
	}
	return f.Amount
}

// Presence reports where a participant currently is. Presence drives territory ticks,
// zone population and world-boss spawn eligibility.
type Presence struct {
	Zone          ZoneKey   `json:"zone"`
	ParticipantID string    `json:"participant_id"`
	Faction       string    `json:"faction,omitempty"`
	Position      Position  `json:"position"`
	Left          bool      `json:"left,omitempty"`
	ReportedAt    time.Time `json:"reported_at"`
}
