// Package ledger holds the pure scoring rules: contribution weighting, reward tiering
// and the participant-count difficulty multiplier.
package ledger

import (
	"math"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

// Rank-based tier cutoffs as fractions of the participant count.
const (
	GoldRankFraction   = 0.10
	SilverRankFraction = 0.25
	BronzeRankFraction = 0.50
)

// Absolute score thresholds.
const (
	GoldScoreThreshold   int64 = 500
	SilverScoreThreshold int64 = 300
	BronzeScoreThreshold int64 = 100
)

// Score is one participant's frozen contribution at tiering time.
type Score struct {
	ParticipantID string
	Contribution  int64
}

// rankSlots returns how many ranks fall inside a fractional cutoff: ceil(fraction × n).
func rankSlots(fraction float64, n int) int {
	return int(math.Ceil(fraction * float64(n)))
}

// RankTier classifies a 1-based rank among n participants.
func RankTier(rank, n int) domain.RewardTier {
	switch {
	case rank <= rankSlots(GoldRankFraction, n):
		return domain.TierGold
	case rank <= rankSlots(SilverRankFraction, n):
		return domain.TierSilver
	case rank <= rankSlots(BronzeRankFraction, n):
		return domain.TierBronze
	default:
		return domain.TierParticipation
	}
}

// AbsoluteTier classifies a raw score.
func AbsoluteTier(score int64) domain.RewardTier {
	switch {
	case score >= GoldScoreThreshold:
		return domain.TierGold
	case score >= SilverScoreThreshold:
		return domain.TierSilver
	case score >= BronzeScoreThreshold:
		return domain.TierBronze
	default:
		return domain.TierParticipation
	}
}

// AssignTiers returns the tier of every participant: the better of the rank tier and the
// absolute tier. A participant's rank is 1 + the number of strictly greater scores, so
// equal scores share a tier and the result does not depend on input order. A zero
// score always yields the participation tier.
func AssignTiers(scores []Score) map[string]domain.RewardTier {
	tiers := make(map[string]domain.RewardTier, len(scores))
	n := len(scores)
	for _, s := range scores {
		if s.Contribution <= 0 {
			tiers[s.ParticipantID] = domain.TierParticipation
			continue
		}
		rank := 1
		for _, other := range scores {
			if other.Contribution > s.Contribution {
				rank++
			}
		}
		tiers[s.ParticipantID] = RankTier(rank, n).Better(AbsoluteTier(s.Contribution))
	}
	return tiers
}

// ProvisionalTier estimates the tier one participant would get if the event ended now.
func ProvisionalTier(participantID string, scores []Score) domain.RewardTier {
	if tier, ok := AssignTiers(scores)[participantID]; ok {
		return tier
	}
	return domain.TierParticipation
}

// Difficulty returns the enemy strength multiplier for a participant count.
func Difficulty(participants int) float64 {
	switch {
	case participants <= 10:
		return 1.0
	case participants <= 25:
		return 1.5
	case participants <= 50:
		return 2.0
	default:
		return 2.5
	}
}

// FactPoints converts the combat side of a fact into weighted contribution points.
// Objective points are added separately by the phase engine.
func FactPoints(w domain.ContributionWeights, f domain.Fact) int64 {
	var points float64
	switch f.Kind {
	case domain.FactKill, domain.FactBossKill:
		points = w.Kill
	case domain.FactDamage:
		points = w.DamagePerPoint * float64(f.Units())
	case domain.FactHealing:
		points = w.HealingPerPoint * float64(f.Units())
	}
	return nonNegative(points)
}

// ObjectivePoints is the bonus for helping complete an objective.
func ObjectivePoints(w domain.ContributionWeights) int64 {
	return nonNegative(w.ObjectiveComplete)
}

func nonNegative(points float64) int64 {
	if points <= 0 || math.IsNaN(points) {
		return 0
	}
	return int64(math.Round(points))
}
