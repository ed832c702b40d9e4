package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

// Scenario: one faction holds both control points uncontested for the full required hold.
func TestTerritoryMajorityHoldWins(t *testing.T) {
	h := newHarness(t, Config{TerritoryTick: time.Second})
	ctx := context.Background()
	inst := h.start(t, eventTerritory)

	h.present(t, "a1", "red", domain.Position{X: 1})
	h.present(t, "a2", "red", domain.Position{X: 99})

	// Captures land on tick 2; the majority hold reaches 3s on tick 4.
	for range 4 {
		require.NoError(t, h.clock.BlockUntilContext(ctx, 2))
		h.clock.Advance(time.Second)
	}
	eventually(t, func() bool {
		got, err := h.o.GetInstance(ctx, inst.ID)
		return err == nil && got.State == domain.StateCompleted
	}, "territory event should complete")

	got := h.get(t, inst.ID)
	assert.Equal(t, "red", got.Victor())
	tp := got.Progress[0].Territory
	require.NotNil(t, tp)
	assert.Equal(t, "red", tp.Points["north"].Owner)
	assert.Equal(t, "red", tp.Points["south"].Owner)
	assert.Equal(t, 3*time.Second, tp.MajorityHold)

	parts, err := h.o.Participants(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	for _, p := range parts {
		assert.Equal(t, int64(domain.DefaultContributionWeights.ObjectiveComplete), p.Contribution)
		assert.Equal(t, "red", p.Faction)
		assert.Equal(t, []domain.ObjectiveRef{{Phase: 0, Index: 0}}, p.CompletedObjectives)
	}

	completed := notificationsOf[domain.EventCompleted](h.notes)
	require.NotEmpty(t, completed)
	summary := completed[len(completed)-1]
	assert.True(t, summary.Success)
	assert.Equal(t, "red", summary.Victor)
}

func TestTerritoryEmptyPointsDoNotPersist(t *testing.T) {
	h := newHarness(t, Config{TerritoryTick: time.Second})
	ctx := context.Background()
	h.start(t, eventTerritory)
	writes := h.store.Writes()

	for range 3 {
		require.NoError(t, h.clock.BlockUntilContext(ctx, 2))
		h.clock.Advance(time.Second)
	}
	require.NoError(t, h.clock.BlockUntilContext(ctx, 2))
	assert.Equal(t, writes, h.store.Writes())
}

// territoryTicks advances n territory ticks and waits until the last one has been handled.
// Only for ticks that do not end the event, since a finished event stops re-arming.
func (h *harness) territoryTicks(t *testing.T, n int) {
	t.Helper()
	ctx := context.Background()
	for range n {
		require.NoError(t, h.clock.BlockUntilContext(ctx, 2))
		h.clock.Advance(time.Second)
	}
	require.NoError(t, h.clock.BlockUntilContext(ctx, 2))
}

func (h *harness) leave(t *testing.T, pid string) {
	t.Helper()
	require.NoError(t, h.o.ReportPresence(context.Background(), domain.Presence{
		Zone: testZone, ParticipantID: pid, Left: true,
	}))
}

func (h *harness) territory(t *testing.T, id uuid.UUID) *domain.TerritoryProgress {
	t.Helper()
	tp := h.get(t, id).Progress[0].Territory
	require.NotNil(t, tp)
	return tp
}

var (
	north = domain.Position{X: 1}
	south = domain.Position{X: 99}
)

// Scenario: a second faction walks onto a point mid-capture under the default policy.
func TestTerritoryContestedPointFreezes(t *testing.T) {
	h := newHarness(t, Config{TerritoryTick: time.Second})
	inst := h.start(t, eventTerritory)

	h.present(t, "r1", "red", north)
	h.territoryTicks(t, 1)
	assert.Equal(t, time.Second, h.territory(t, inst.ID).Points["north"].Hold["red"])

	h.present(t, "b1", "blue", north)
	writes := h.store.Writes()
	h.territoryTicks(t, 3)

	cp := h.territory(t, inst.ID).Points["north"]
	assert.Empty(t, cp.Owner, "a contested point is never captured")
	assert.Equal(t, time.Second, cp.Hold["red"])
	assert.Zero(t, cp.Hold["blue"])
	assert.Equal(t, writes, h.store.Writes(), "frozen ticks change nothing")

	h.leave(t, "b1")
	h.territoryTicks(t, 1)
	cp = h.territory(t, inst.ID).Points["north"]
	assert.Equal(t, "red", cp.Owner, "the frozen hold resumes where it stopped")
	assert.Empty(t, cp.Hold)
}

func TestTerritoryOwnershipFlips(t *testing.T) {
	h := newHarness(t, Config{TerritoryTick: time.Second})
	ctx := context.Background()
	inst := h.start(t, eventTerritory)

	h.present(t, "r1", "red", north)
	h.territoryTicks(t, 2)
	require.Equal(t, "red", h.territory(t, inst.ID).Points["north"].Owner)

	h.leave(t, "r1")
	h.present(t, "b1", "blue", north)
	h.territoryTicks(t, 1)
	cp := h.territory(t, inst.ID).Points["north"]
	assert.Equal(t, "red", cp.Owner, "the owner keeps the point until the capture completes")
	assert.Equal(t, time.Second, cp.Hold["blue"])

	h.territoryTicks(t, 1)
	cp = h.territory(t, inst.ID).Points["north"]
	assert.Equal(t, "blue", cp.Owner)
	assert.Empty(t, cp.Hold)

	updates := notificationsOf[domain.EventObjectiveUpdate](h.notes)
	assert.Len(t, updates, 2, "one update per capture")

	parts, err := h.o.Participants(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	byID := map[string]*domain.Participation{parts[0].ParticipantID: parts[0], parts[1].ParticipantID: parts[1]}
	assert.Equal(t, "red", byID["r1"].Faction)
	assert.Equal(t, "blue", byID["b1"].Faction)
	assert.Equal(t, int64(domain.DefaultContributionWeights.ObjectiveComplete), byID["b1"].Contribution)
}

func TestTerritoryLostMajorityResetsHold(t *testing.T) {
	h := newHarness(t, Config{TerritoryTick: time.Second})
	inst := h.start(t, eventTerritory)

	h.present(t, "r1", "red", north)
	h.present(t, "r2", "red", south)
	h.territoryTicks(t, 2)
	tp := h.territory(t, inst.ID)
	require.Equal(t, "red", tp.LeadingFaction)
	assert.Equal(t, time.Second, tp.MajorityHold)

	// Blue needs two ticks to take south; red keeps accumulating meanwhile.
	h.leave(t, "r2")
	h.present(t, "b1", "blue", south)
	h.territoryTicks(t, 1)
	assert.Equal(t, 2*time.Second, h.territory(t, inst.ID).MajorityHold)

	h.territoryTicks(t, 1)
	tp = h.territory(t, inst.ID)
	assert.Equal(t, "blue", tp.Points["south"].Owner)
	assert.Empty(t, tp.LeadingFaction, "one point each is no majority")
	assert.Zero(t, tp.MajorityHold)
	assert.Equal(t, domain.StateActive, h.get(t, inst.ID).State)

	h.leave(t, "r1")
	h.present(t, "b2", "blue", north)
	h.territoryTicks(t, 2)
	tp = h.territory(t, inst.ID)
	assert.Equal(t, "blue", tp.LeadingFaction)
	assert.Equal(t, time.Second, tp.MajorityHold, "blue starts from zero, not from red's hold")
	assert.Empty(t, tp.Victor)
}

func TestApplyContestPolicy(t *testing.T) {
	tick := time.Second
	tests := []struct {
		name   string
		policy domain.ContestPolicy
		want   map[string]time.Duration
	}{
		{name: "freeze", policy: domain.ContestFreeze, want: map[string]time.Duration{"red": 2 * time.Second, "blue": 500 * time.Millisecond}},
		{name: "decay", policy: domain.ContestDecay, want: map[string]time.Duration{"red": time.Second}},
		{name: "reset", policy: domain.ContestReset, want: map[string]time.Duration{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &zoneActor{o: &Orchestrator{cfg: Config{ContestPolicy: tt.policy, DecayRate: 1}.withDefaults()}}
			state := &domain.ControlPointState{Hold: map[string]time.Duration{"red": 2 * time.Second, "blue": 500 * time.Millisecond}}
			a.applyContestPolicy(state, tick)
			assert.Equal(t, tt.want, state.Hold)
		})
	}
}

func TestPopulationHonoursPresenceTTL(t *testing.T) {
	h := newHarness(t, Config{PresenceTTL: 10 * time.Second})
	ctx := context.Background()

	h.present(t, "p1", "", domain.Position{})
	h.present(t, "p2", "", domain.Position{})
	pop, err := h.o.Population(ctx, testZone)
	require.NoError(t, err)
	assert.Equal(t, 2, pop)

	require.NoError(t, h.o.ReportPresence(ctx, domain.Presence{Zone: testZone, ParticipantID: "p2", Left: true}))
	pop, err = h.o.Population(ctx, testZone)
	require.NoError(t, err)
	assert.Equal(t, 1, pop)

	h.clock.Advance(11 * time.Second)
	pop, err = h.o.Population(ctx, testZone)
	require.NoError(t, err)
	assert.Equal(t, 0, pop)
}
