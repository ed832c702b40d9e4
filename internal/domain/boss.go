package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorldBossDefinition is catalog content for a world boss.
type WorldBossDefinition struct {
	ID                uint32      `json:"id"`
	Name              string      `json:"name"`
	ZoneID            uint32      `json:"zone_id"`
	InstanceID        uint32      `json:"instance_id,omitempty"`
	CreatureID        uint32      `json:"creature_id"`
	SpawnGroup        string      `json:"spawn_group,omitempty"`
	MaxHealth         int64       `json:"max_health"`
	Window            SpawnWindow `json:"window"`
	MinPlayers        int         `json:"min_players,omitempty"`
	InitialAbilitySet string      `json:"ability_set,omitempty"`
	Phases            []BossPhase `json:"phases,omitempty"`
	Enrage            Duration    `json:"enrage,omitempty"`
	EnrageAbilitySet  string      `json:"enrage_ability_set,omitempty"`
	Cooldown          Duration    `json:"cooldown"`
	// EventID links an event definition that runs alongside the encounter.
	EventID uint32 `json:"event_id,omitempty"`
}

// Zone returns the zone instance that owns this boss.
func (d *WorldBossDefinition) Zone() ZoneKey {
	return ZoneKey{ZoneID: d.ZoneID, InstanceID: d.InstanceID}
}

// BossPhase swaps the active ability set once health drops to HealthPercent or below.
type BossPhase struct {
	HealthPercent float64  `json:"health_percent"`
	AbilitySet    string   `json:"ability_set"`
	Adds          []uint32 `json:"adds,omitempty"`
}

// SpawnWindow is a daily UTC hour range. EndHour may be lower than StartHour to wrap
// past midnight; equal hours mean the window is open all day.
type SpawnWindow struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// Current returns the window occurrence containing now.
func (w SpawnWindow) Current(now time.Time) (time.Time, time.Time, bool) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	length := time.Duration(w.EndHour-w.StartHour) * time.Hour
	if length <= 0 {
		length += 24 * time.Hour
	}
	for _, offset := range []int{0, -1} {
		start := day.AddDate(0, 0, offset).Add(time.Duration(w.StartHour) * time.Hour)
		end := start.Add(length)
		if !now.Before(start) && now.Before(end) {
			return start, end, true
		}
	}
	return time.Time{}, time.Time{}, false
}

// BossState is the lifecycle state of a world boss.
type BossState string

const (
	BossWaiting BossState = "waiting"
	BossSpawned BossState = "spawned"
	BossEngaged BossState = "engaged"
	BossKilled  BossState = "killed"
)

func (s BossState) String() string { return string(s) }

// Alive reports whether the boss is in the world.
func (s BossState) Alive() bool { return s == BossSpawned || s == BossEngaged }

// BossSpawn is the persisted runtime row of one world boss.
type BossSpawn struct {
	BossID         uint32     `json:"boss_id"`
	Zone           ZoneKey    `json:"zone"`
	State          BossState  `json:"state"`
	WindowStart    *time.Time `json:"window_start,omitempty"`
	WindowEnd      *time.Time `json:"window_end,omitempty"`
	SpawnedAt      *time.Time `json:"spawned_at,omitempty"`
	EngagedAt      *time.Time `json:"engaged_at,omitempty"`
	KilledAt       *time.Time `json:"killed_at,omitempty"`
	NextSpawnAfter *time.Time `json:"next_spawn_after,omitempty"`
	MaxHealth      int64      `json:"max_health"`
	CurrentHealth  int64      `json:"current_health"`
	Phase          int        `json:"phase"`
	Enraged        bool       `json:"enraged"`
	EntityHandles  []string   `json:"entity_handles,omitempty"`
	LinkedInstance *uuid.UUID `json:"linked_instance,omitempty"`
	// KillFactID is the id of the fact that killed the boss, kept so a retry of that
	// fact still counts as the boss kill.
	KillFactID string `json:"kill_fact_id,omitempty"`
}

// NewBossSpawn returns the initial waiting row of a boss.
func NewBossSpawn(def *WorldBossDefinition) *BossSpawn {
	return &BossSpawn{BossID: def.ID, Zone: def.Zone(), State: BossWaiting}
}

// WindowOpen reports whether now falls inside the stored spawn window.
func (b *BossSpawn) WindowOpen(now time.Time) bool {
	return b.WindowStart != nil && b.WindowEnd != nil &&
		!now.Before(*b.WindowStart) && now.Before(*b.WindowEnd)
}

// HealthPercent returns remaining health in percent.
func (b *BossSpawn) HealthPercent() float64 {
	if b.MaxHealth <= 0 {
		return 0
	}
	return float64(b.CurrentHealth) * 100 / float64(b.MaxHealth)
}

// Clone returns a deep copy of the row.
func (b *BossSpawn) Clone() *BossSpawn {
	c := *b
	c.WindowStart = cloneTime(b.WindowStart)
	c.WindowEnd = cloneTime(b.WindowEnd)
	c.SpawnedAt = cloneTime(b.SpawnedAt)
	c.EngagedAt = cloneTime(b.EngagedAt)
	c.KilledAt = cloneTime(b.KilledAt)
	c.NextSpawnAfter = cloneTime(b.NextSpawnAfter)
	c.EntityHandles = append([]string(nil), b.EntityHandles...)
	if b.LinkedInstance != nil {
		id := *b.LinkedInstance
		c.LinkedInstance = &id
	}
	return &c
}

// SpawnPoint is a catalog placement location for spawned creatures.
type SpawnPoint struct {
	ID       uint32   `json:"id"`
	ZoneID   uint32   `json:"zone_id"`
	Group    string   `json:"group"`
	Position Position `json:"position"`
}
