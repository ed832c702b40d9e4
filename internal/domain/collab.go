package domain

import "github.com/google/uuid"

// SpawnRequest asks the creature spawner to place creatures in a zone instance.
type SpawnRequest struct {
	Zone        ZoneKey      `json:"zone"`
	Group       string       `json:"group,omitempty"`
	CreatureIDs []uint32     `json:"creature_ids"`
	Difficulty  float64      `json:"difficulty"`
	AbilitySet  string       `json:"ability_set,omitempty"`
	SpawnPoints []SpawnPoint `json:"spawn_points,omitempty"`
	// InstanceID is set for event waves, BossID for world boss encounters.
	InstanceID *uuid.UUID `json:"instance_id,omitempty"`
	BossID     uint32     `json:"boss_id,omitempty"`
}

// RewardGrant is one participant's reward handed to the loot collaborator.
type RewardGrant struct {
	InstanceID    uuid.UUID        `json:"instance_id"`
	EventID       uint32           `json:"event_id"`
	ParticipantID string           `json:"participant_id"`
	Tier          RewardTier       `json:"tier"`
	Reward        RewardDescriptor `json:"reward"`
}
