package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType names an outbound notification record.
type NotificationType string

const (
	NotifyEventStarted          NotificationType = "event.started"
	NotifyEventObjectiveUpdate  NotificationType = "event.objective_update"
	NotifyEventPhaseChanged     NotificationType = "event.phase_changed"
	NotifyEventWaveUpdate       NotificationType = "event.wave_update"
	NotifyEventCompleted        NotificationType = "event.completed"
	NotifyContributionUpdate    NotificationType = "event.contribution_update"
	NotifyWorldBossSpawned      NotificationType = "world_boss.spawned"
	NotifyWorldBossPhaseChanged NotificationType = "world_boss.phase_changed"
	NotifyWorldBossKilled       NotificationType = "world_boss.killed"
	NotifyWorldBossDespawned    NotificationType = "world_boss.despawned"
)

// AllNotificationTypes lists every notification the orchestrator emits.
var AllNotificationTypes = []NotificationType{
	NotifyEventStarted,
	NotifyEventObjectiveUpdate,
	NotifyEventPhaseChanged,
	NotifyEventWaveUpdate,
	NotifyEventCompleted,
	NotifyContributionUpdate,
	NotifyWorldBossSpawned,
	NotifyWorldBossPhaseChanged,
	NotifyWorldBossKilled,
	NotifyWorldBossDespawned,
}

// Audience scopes a notification to a zone and optionally a single participant.
type Audience struct {
	Zone      ZoneKey `json:"zone"`
	Recipient string  `json:"recipient,omitempty"`
}

// Target returns the audience itself so embedding structs satisfy Notification.
func (a Audience) Target() Audience { return a }

// Notification is a typed record handed to the notification gateway.
type Notification interface {
	NotificationType() NotificationType
	Target() Audience
}

// ObjectiveView is the client-facing shape of one objective.
type ObjectiveView struct {
	Index   int           `json:"index"`
	Kind    ObjectiveKind `json:"kind"`
	Current int           `json:"current"`
	Target  int           `json:"target"`
}

// ObjectiveViews renders the current phase objectives of an instance.
func ObjectiveViews(phase *Phase, progress map[int]*ObjectiveProgress) []ObjectiveView {
	if phase == nil {
		return nil
	}
	views := make([]ObjectiveView, 0, len(phase.Objectives))
	for idx, obj := range phase.Objectives {
		v := ObjectiveView{Index: idx, Kind: obj.Kind(), Target: obj.Target}
		if p, ok := progress[idx]; ok {
			v.Current, v.Target = p.Current, p.Target
		}
		views = append(views, v)
	}
	return views
}

type EventStarted struct {
	Audience
	InstanceID uuid.UUID       `json:"instance_id"`
	EventID    uint32          `json:"event_id"`
	Type       EventType       `json:"type"`
	Phase      int             `json:"phase"`
	Duration   time.Duration   `json:"duration"`
	EndsAt     time.Time       `json:"ends_at"`
	Objectives []ObjectiveView `json:"objectives"`
}

type EventObjectiveUpdate struct {
	Audience
	InstanceID     uuid.UUID `json:"instance_id"`
	Phase          int       `json:"phase"`
	ObjectiveIndex int       `json:"objective_index"`
	Current        int       `json:"current"`
	TargetCount    int       `json:"target"`
}

type EventPhaseChanged struct {
	Audience
	InstanceID uuid.UUID       `json:"instance_id"`
	Phase      int             `json:"phase"`
	Objectives []ObjectiveView `json:"objectives"`
}

type EventWaveUpdate struct {
	Audience
	InstanceID       uuid.UUID `json:"instance_id"`
	WaveNumber       int       `json:"wave_number"`
	TotalWaves       int       `json:"total_waves"`
	EnemiesRemaining int       `json:"enemies_remaining"`
}

// EventCompleted is sent once per participant, plus once with no recipient as the
// zone-wide summary.
type EventCompleted struct {
	Audience
	InstanceID    uuid.UUID         `json:"instance_id"`
	EventID       uint32            `json:"event_id"`
	State         InstanceState     `json:"state"`
	Success       bool              `json:"success"`
	RewardTier    *RewardTier       `json:"reward_tier,omitempty"`
	Contribution  int64             `json:"contribution"`
	RewardSummary *RewardDescriptor `json:"reward_summary,omitempty"`
	Victor        string            `json:"victor,omitempty"`
	CompletedAt   time.Time         `json:"completed_at"`
}

type ContributionUpdate struct {
	Audience
	InstanceID    uuid.UUID  `json:"instance_id"`
	ParticipantID string     `json:"participant_id"`
	Contribution  int64      `json:"contribution"`
	RewardTier    RewardTier `json:"reward_tier"`
}

type WorldBossSpawned struct {
	Audience
	BossID     uint32     `json:"boss_id"`
	MaxHealth  int64      `json:"max_health"`
	AbilitySet string     `json:"ability_set,omitempty"`
	Difficulty float64    `json:"difficulty"`
	InstanceID *uuid.UUID `json:"instance_id,omitempty"`
}

type WorldBossPhaseChanged struct {
	Audience
	BossID        uint32  `json:"boss_id"`
	Phase         int     `json:"phase"`
	HealthPercent float64 `json:"health_percent"`
	AbilitySet    string  `json:"ability_set,omitempty"`
	Enraged       bool    `json:"enraged"`
}

type WorldBossKilled struct {
	Audience
	BossID         uint32    `json:"boss_id"`
	KillerID       string    `json:"killer_id,omitempty"`
	NextSpawnAfter time.Time `json:"next_spawn_after"`
}

type WorldBossDespawned struct {
	Audience
	BossID uint32 `json:"boss_id"`
	Reason string `json:"reason"`
}

func (EventStarted) NotificationType() NotificationType          { return NotifyEventStarted }
func (EventObjectiveUpdate) NotificationType() NotificationType  { return NotifyEventObjectiveUpdate }
func (EventPhaseChanged) NotificationType() NotificationType     { return NotifyEventPhaseChanged }
func (EventWaveUpdate) NotificationType() NotificationType       { return NotifyEventWaveUpdate }
func (EventCompleted) NotificationType() NotificationType        { return NotifyEventCompleted }
func (ContributionUpdate) NotificationType() NotificationType    { return NotifyContributionUpdate }
func (WorldBossSpawned) NotificationType() NotificationType      { return NotifyWorldBossSpawned }
func (WorldBossPhaseChanged) NotificationType() NotificationType { return NotifyWorldBossPhaseChanged }
func (WorldBossKilled) NotificationType() NotificationType       { return NotifyWorldBossKilled }
func (WorldBossDespawned) NotificationType() NotificationType    { return NotifyWorldBossDespawned }

// EventListEntry is one pending or active instance as shown to a late-joining client.
type EventListEntry struct {
	InstanceID       uuid.UUID       `json:"instance_id"`
	EventID          uint32          `json:"event_id"`
	Type             EventType       `json:"type"`
	State            InstanceState   `json:"state"`
	Phase            int             `json:"phase"`
	Wave             WaveState       `json:"wave"`
	ParticipantCount int             `json:"participant_count"`
	EndsAt           *time.Time      `json:"ends_at,omitempty"`
	Objectives       []ObjectiveView `json:"objectives"`
}
