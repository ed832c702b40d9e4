package ledger

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

func TestAssignTiers_ThreeParticipants(t *testing.T) {
	// Three participants: one gold rank slot, one silver slot, two bronze slots.
	tiers := AssignTiers([]Score{
		{ParticipantID: "p1", Contribution: 600},
		{ParticipantID: "p2", Contribution: 250},
		{ParticipantID: "p3", Contribution: 50},
	})

	assert.Equal(t, domain.TierGold, tiers["p1"])
	assert.Equal(t, domain.TierBronze, tiers["p2"], "rank 2 of 3 is inside ceil(1.5)=2 bronze slots and 250 clears 100")
	assert.Equal(t, domain.TierParticipation, tiers["p3"], "rank 3 misses every band and 50 is below 100")
}

func TestAssignTiers_TiesShareTier(t *testing.T) {
	scores := []Score{
		{ParticipantID: "a", Contribution: 80},
		{ParticipantID: "b", Contribution: 80},
		{ParticipantID: "c", Contribution: 80},
		{ParticipantID: "d", Contribution: 10},
		{ParticipantID: "e", Contribution: 5},
		{ParticipantID: "f", Contribution: 4},
		{ParticipantID: "g", Contribution: 3},
		{ParticipantID: "h", Contribution: 2},
		{ParticipantID: "i", Contribution: 1},
		{ParticipantID: "j", Contribution: 1},
		{ParticipantID: "k", Contribution: 1},
	}
	tiers := AssignTiers(scores)

	// n=11: gold slots ceil(1.1)=2, silver ceil(2.75)=3, bronze ceil(5.5)=6.
	assert.Equal(t, domain.TierGold, tiers["a"])
	assert.Equal(t, domain.TierGold, tiers["b"])
	assert.Equal(t, domain.TierGold, tiers["c"])
	assert.Equal(t, domain.TierBronze, tiers["d"])
	assert.Equal(t, domain.TierBronze, tiers["f"])
	assert.Equal(t, domain.TierParticipation, tiers["g"])
	assert.Equal(t, domain.TierParticipation, tiers["k"])
}

func TestAssignTiers_AbsoluteLiftsLargeRaids(t *testing.T) {
	scores := make([]Score, 0, 100)
	for i := 0; i < 100; i++ {
		scores = append(scores, Score{ParticipantID: string(rune('A' + i%26)) + string(rune('a'+i/26)), Contribution: int64(1000 - i)})
	}
	scores = append(scores, Score{ParticipantID: "late", Contribution: 320})

	tiers := AssignTiers(scores)
	assert.Equal(t, domain.TierSilver, tiers["late"], "last by rank but absolute >= 300")
}

func TestAssignTiers_ZeroScoreIsParticipation(t *testing.T) {
	tiers := AssignTiers([]Score{
		{ParticipantID: "idle", Contribution: 0},
	})
	assert.Equal(t, domain.TierParticipation, tiers["idle"])

	tiers = AssignTiers([]Score{
		{ParticipantID: "idle", Contribution: 0},
		{ParticipantID: "other", Contribution: 0},
	})
	assert.Equal(t, domain.TierParticipation, tiers["idle"])
	assert.Equal(t, domain.TierParticipation, tiers["other"])
}

func TestAssignTiers_DeterministicUnderPermutation(t *testing.T) {
	scores := []Score{
		{"a", 900}, {"b", 400}, {"c", 400}, {"d", 150}, {"e", 90},
		{"f", 90}, {"g", 30}, {"h", 0}, {"i", 310}, {"j", 99},
	}
	want := AssignTiers(scores)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := append([]Score(nil), scores...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, AssignTiers(shuffled))
	}
}

func TestDifficulty(t *testing.T) {
	tests := []struct {
		participants int
		want         float64
	}{
		{0, 1.0}, {1, 1.0}, {10, 1.0},
		{11, 1.5}, {25, 1.5},
		{26, 2.0}, {50, 2.0},
		{51, 2.5}, {500, 2.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Difficulty(tt.participants), "n=%d", tt.participants)
		assert.Equal(t, Difficulty(tt.participants), Difficulty(tt.participants))
	}
}

func TestFactPoints(t *testing.T) {
	w := domain.ContributionWeights{Kill: 10, DamagePerPoint: 0.1, HealingPerPoint: 0.05, ObjectiveComplete: 25}

	assert.Equal(t, int64(10), FactPoints(w, domain.Fact{Kind: domain.FactKill}))
	assert.Equal(t, int64(25), FactPoints(w, domain.Fact{Kind: domain.FactDamage, Amount: 250}))
	assert.Equal(t, int64(5), FactPoints(w, domain.Fact{Kind: domain.FactHealing, Amount: 100}))
	assert.Equal(t, int64(0), FactPoints(w, domain.Fact{Kind: domain.FactCollect, Amount: 100}))
	assert.Equal(t, int64(25), ObjectivePoints(w))

	negative := domain.ContributionWeights{Kill: -5}
	assert.Equal(t, int64(0), FactPoints(negative, domain.Fact{Kind: domain.FactKill}))
}
