package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// RewardTier classifies a participant's reward magnitude.
type RewardTier string

const (
	TierGold          RewardTier = "gold"
	TierSilver        RewardTier = "silver"
	TierBronze        RewardTier = "bronze"
	TierParticipation RewardTier = "participation"
)

// Rank orders tiers; lower is better.
func (t RewardTier) Rank() int {
	switch t {
	case TierGold:
		return 0
	case TierSilver:
		return 1
	case TierBronze:
		return 2
	default:
		return 3
	}
}

// Better returns the better of two tiers.
func (t RewardTier) Better(o RewardTier) RewardTier {
	if o.Rank() < t.Rank() {
		return o
	}
	return t
}

// ObjectiveRef names one objective of one phase.
type ObjectiveRef struct {
	Phase int `json:"phase"`
	Index int `json:"index"`
}

// Participation is the per (instance, participant) contribution record.
type Participation struct {
	InstanceID          uuid.UUID      `json:"instance_id"`
	ParticipantID       string         `json:"participant_id"`
	Faction             string         `json:"faction,omitempty"`
	Contribution        int64          `json:"contribution"`
	Kills               int            `json:"kills"`
	Damage              int64          `json:"damage"`
	Healing             int64          `json:"healing"`
	CompletedObjectives []ObjectiveRef `json:"completed_objectives"`
	RewardTier          *RewardTier    `json:"reward_tier,omitempty"`
	RewardsClaimed      bool           `json:"rewards_claimed"`
	JoinedAt            time.Time      `json:"joined_at"`
	LastActivityAt      time.Time      `json:"last_activity_at"`
}

// Clone returns a deep copy of the participation.
func (p *Participation) Clone() *Participation {
	c := *p
	c.CompletedObjectives = slices.Clone(p.CompletedObjectives)
	if p.RewardTier != nil {
		t := *p.RewardTier
		c.RewardTier = &t
	}
	return &c
}

// AddContribution adds non-negative points. Contribution never decreases.
func (p *Participation) AddContribution(points int64) {
	if points > 0 {
		p.Contribution += points
	}
}

// MarkObjective records a completed objective once.
func (p *Participation) MarkObjective(ref ObjectiveRef) bool {
	if slices.Contains(p.CompletedObjectives, ref) {
		return false
	}
	p.CompletedObjectives = append(p.CompletedObjectives, ref)
	return true
}

// CompletionHistory aggregates every lifetime completion of one event by one participant.
type CompletionHistory struct {
	ParticipantID      string        `json:"participant_id"`
	EventID            uint32        `json:"event_id"`
	CompletionCount    int           `json:"completion_count"`
	GoldCount          int           `json:"gold_count"`
	SilverCount        int           `json:"silver_count"`
	BronzeCount        int           `json:"bronze_count"`
	ParticipationCount int           `json:"participation_count"`
	BestContribution   int64         `json:"best_contribution"`
	FastestCompletion  time.Duration `json:"fastest_completion"`
	LastCompletedAt    *time.Time    `json:"last_completed_at,omitempty"`
}

// Record folds one successful completion into the history.
func (h *CompletionHistory) Record(tier RewardTier, contribution int64, took time.Duration, at time.Time) {
	h.CompletionCount++
	switch tier {
	case TierGold:
		h.GoldCount++
	case TierSilver:
		h.SilverCount++
	case TierBronze:
		h.BronzeCount++
	default:
		h.ParticipationCount++
	}
	if contribution > h.BestContribution {
		h.BestContribution = contribution
	}
	if took > 0 && (h.FastestCompletion == 0 || took < h.FastestCompletion) {
		h.FastestCompletion = took
	}
	h.LastCompletedAt = &at
}
