// Package repotest holds the behavioural contract every repository.EventStore must meet.
// Backends call Run from their own tests.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/repository"
)

// Factory returns an empty, migrated store.
type Factory func(t *testing.T) repository.EventStore

// baseTime is millisecond aligned so every backend round-trips it exactly.
var baseTime = time.Date(2026, time.March, 14, 18, 30, 0, 0, time.UTC)

// Run executes the contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("InstanceRoundTrip", func(t *testing.T) { testInstanceRoundTrip(t, newStore(t)) })
	t.Run("OpenInstancesAndZones", func(t *testing.T) { testOpenInstances(t, newStore(t)) })
	t.Run("SaveInstanceWithParticipations", func(t *testing.T) { testSaveInstance(t, newStore(t)) })
	t.Run("ContributionNeverDecreases", func(t *testing.T) { testContributionMonotonic(t, newStore(t)) })
	t.Run("FinalizeAndUnclaimedRewards", func(t *testing.T) { testFinalize(t, newStore(t)) })
	t.Run("Schedules", func(t *testing.T) { testSchedules(t, newStore(t)) })
	t.Run("BossSpawns", func(t *testing.T) { testBossSpawns(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
}

func activeInstance(zone domain.ZoneKey, createdAt time.Time) *domain.Instance {
	started := createdAt.Add(time.Second)
	ends := started.Add(30 * time.Minute)
	return &domain.Instance{
		ID:         uuid.New(),
		EventID:    7,
		Zone:       zone,
		State:      domain.StateActive,
		PhaseIndex: 1,
		Wave:       domain.WaveState{Number: 2, Total: 3, Spawned: 4, Killed: 1, StartedAt: domain.TimePtr(started)},
		Progress: map[int]*domain.ObjectiveProgress{
			0: {Current: 3, Target: 10},
			1: {Current: 0, Target: 1, Territory: &domain.TerritoryProgress{
				Points: map[string]*domain.ControlPointState{
					"mill": {Owner: "red", Hold: map[string]time.Duration{"blue": 4 * time.Second}},
				},
				LeadingFaction: "red",
				MajorityHold:   90 * time.Second,
			}},
		},
		ParticipantCount: 12,
		Difficulty:       1.5,
		CreatedAt:        createdAt,
		StartedAt:        domain.TimePtr(started),
		EndsAt:           domain.TimePtr(ends),
		PhaseStartedAt:   domain.TimePtr(started),
	}
}

func participation(inst uuid.UUID, id string, contribution int64) *domain.Participation {
	return &domain.Participation{
		InstanceID:          inst,
		ParticipantID:       id,
		Faction:             "red",
		Contribution:        contribution,
		Kills:               3,
		Damage:              1200,
		Healing:             40,
		CompletedObjectives: []domain.ObjectiveRef{{Phase: 0, Index: 0}},
		JoinedAt:            baseTime,
		LastActivityAt:      baseTime.Add(time.Minute),
	}
}

func testInstanceRoundTrip(t *testing.T, store repository.EventStore) {
	ctx := context.Background()
	inst := activeInstance(domain.ZoneKey{ZoneID: 3, InstanceID: 1}, baseTime)
	require.NoError(t, store.CreateInstance(ctx, inst))

	got, err := store.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, inst, got)
}

func testOpenInstances(t *testing.T, store repository.EventStore) {
	ctx := context.Background()
	zoneA := domain.ZoneKey{ZoneID: 1}
	zoneB := domain.ZoneKey{ZoneID: 2, InstanceID: 4}

	first := activeInstance(zoneA, baseTime)
	second := activeInstance(zoneA, baseTime.Add(time.Minute))
	second.State = domain.StatePending
	second.StartedAt, second.EndsAt, second.PhaseStartedAt = nil, nil, nil
	done := activeInstance(zoneB, baseTime)
	for _, inst := range []*domain.Instance{first, second, done} {
		require.NoError(t, store.CreateInstance(ctx, inst))
	}

	done.State = domain.StateCompleted
	done.CompletedAt = domain.TimePtr(baseTime.Add(time.Hour))
	require.NoError(t, store.SaveInstance(ctx, done, nil))

	open, err := store.ListOpenInstances(ctx, zoneA)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, first.ID, open[0].ID)
	assert.Equal(t, second.ID, open[1].ID)

	none, err := store.ListOpenInstances(ctx, zoneB)
	require.NoError(t, err)
	assert.Empty(t, none)

	zones, err := store.ListOpenZones(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.ZoneKey{zoneA}, zones)
}

func testSaveInstance(t *testing.T, store repository.EventStore) {
	ctx := context.Background()
	inst := activeInstance(domain.ZoneKey{ZoneID: 5}, baseTime)
	require.NoError(t, store.CreateInstance(ctx, inst))

	inst.Progress[0].Current = 10
	inst.PhaseIndex = 2
	p1 := participation(inst.ID, "alice", 120)
	p2 := participation(inst.ID, "bob", 300)
	require.NoError(t, store.SaveInstance(ctx, inst, []*domain.Participation{p1, p2}))

	got, err := store.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Progress[0].Current)
	assert.Equal(t, 2, got.PhaseIndex)

	parts, err := store.ListParticipations(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, "bob", parts[0].ParticipantID, "ordered by contribution")
	assert.Equal(t, p1, parts[1])

	alice, err := store.GetParticipation(ctx, inst.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, p1, alice)
}

func testContributionMonotonic(t *testing.T, store repository.EventStore) {
	ctx := context.Background()
	inst := activeInstance(domain.ZoneKey{ZoneID: 6}, baseTime)
	require.NoError(t, store.CreateInstance(ctx, inst))
	require.NoError(t, store.SaveInstance(ctx, inst, []*domain.Participation{participation(inst.ID, "carol", 500)}))

	stale := participation(inst.ID, "carol", 200)
	require.NoError(t, store.SaveInstance(ctx, inst, []*domain.Participation{stale}))

	got, err := store.GetParticipation(ctx, inst.ID, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.Contribution)
}

func testFinalize(t *testing.T, store repository.EventStore) {
	ctx := context.Background()
	zone := domain.ZoneKey{ZoneID: 8, InstanceID: 2}
	inst := activeInstance(zone, baseTime)
	require.NoError(t, store.CreateInstance(ctx, inst))

	gold, bronze := domain.TierGold, domain.TierBronze
	p1 := participation(inst.ID, "alice", 600)
	p1.RewardTier = &gold
	p2 := participation(inst.ID, "bob", 150)
	p2.RewardTier = &bronze

	inst.State = domain.StateCompleted
	inst.CompletedAt = domain.TimePtr(baseTime.Add(20 * time.Minute))
	history := &domain.CompletionHistory{ParticipantID: "alice", EventID: inst.EventID}
	history.Record(gold, 600, 19*time.Minute, *inst.CompletedAt)

	require.NoError(t, store.FinalizeInstance(ctx, inst, []*domain.Participation{p1, p2}, []*domain.CompletionHistory{history}))

	got, err := store.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, got.State)

	h, err := store.GetCompletionHistory(ctx, "alice", inst.EventID)
	require.NoError(t, err)
	assert.Equal(t, history, h)

	unclaimed, err := store.ListUnclaimedRewards(ctx, zone)
	require.NoError(t, err)
	require.Len(t, unclaimed, 2)

	require.NoError(t, store.MarkRewardClaimed(ctx, inst.ID, "alice"))
	unclaimed, err = store.ListUnclaimedRewards(ctx, zone)
	require.NoError(t, err)
	require.Len(t, unclaimed, 1)
	assert.Equal(t, "bob", unclaimed[0].ParticipantID)
	assert.Equal(t, domain.TierBronze, *unclaimed[0].RewardTier)

	other, err := store.ListUnclaimedRewards(ctx, domain.ZoneKey{ZoneID: 8})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func testSchedules(t *testing.T, store repository.EventStore) {
	ctx := context.Background()
	sch := &domain.Schedule{
		EventID: 1,
		ZoneID:  4,
		Enabled: true,
		Trigger: domain.TimerTrigger{Interval: domain.Duration(time.Hour), Offset: domain.Duration(10 * time.Minute)},
	}
	require.NoError(t, store.InsertScheduleIfAbsent(ctx, sch))

	seedAgain := *sch
	seedAgain.Enabled = false
	require.NoError(t, store.InsertScheduleIfAbsent(ctx, &seedAgain))

	got, err := store.GetSchedule(ctx, 1, 4)
	require.NoError(t, err)
	assert.True(t, got.Enabled, "seeding never overwrites")
	assert.Equal(t, sch.Trigger, got.Trigger)

	last := baseTime
	next := baseTime.Add(time.Hour)
	require.NoError(t, store.UpdateScheduleTrigger(ctx, 1, 4, &last, &next))

	require.NoError(t, store.UpsertSchedule(ctx, &domain.Schedule{
		EventID: 2, ZoneID: 4, Enabled: true,
		Trigger: domain.ChainTrigger{AfterEventID: 1, Delay: domain.Duration(5 * time.Minute)},
	}))

	all, err := store.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, last, *all[0].LastTriggeredAt)
	assert.Equal(t, next, *all[0].NextTriggerAt)
	assert.Equal(t, domain.TriggerChain, all[1].Trigger.Type())

	require.NoError(t, store.UpdateScheduleTrigger(ctx, 2, 4, nil, nil))
	chain, err := store.GetSchedule(ctx, 2, 4)
	require.NoError(t, err)
	assert.Nil(t, chain.NextTriggerAt)
}

func testBossSpawns(t *testing.T, store repository.EventStore) {
	ctx := context.Background()
	linked := uuid.New()
	b := &domain.BossSpawn{
		BossID:         1,
		Zone:           domain.ZoneKey{ZoneID: 4},
		State:          domain.BossEngaged,
		WindowStart:    domain.TimePtr(baseTime),
		WindowEnd:      domain.TimePtr(baseTime.Add(4 * time.Hour)),
		SpawnedAt:      domain.TimePtr(baseTime.Add(time.Minute)),
		EngagedAt:      domain.TimePtr(baseTime.Add(2 * time.Minute)),
		MaxHealth:      150000,
		CurrentHealth:  90000,
		Phase:          1,
		EntityHandles:  []string{"npc-1", "npc-2"},
		LinkedInstance: &linked,
	}
	require.NoError(t, store.SaveBossSpawn(ctx, b))

	got, err := store.GetBossSpawn(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	b.State = domain.BossKilled
	b.CurrentHealth = 0
	b.KilledAt = domain.TimePtr(baseTime.Add(10 * time.Minute))
	b.NextSpawnAfter = domain.TimePtr(baseTime.Add(20 * time.Hour))
	b.EntityHandles = nil
	b.LinkedInstance = nil
	b.KillFactID = "kill-77"
	require.NoError(t, store.SaveBossSpawn(ctx, b))
	require.NoError(t, store.SaveBossSpawn(ctx, &domain.BossSpawn{BossID: 2, Zone: domain.ZoneKey{ZoneID: 9}, State: domain.BossWaiting}))

	all, err := store.ListBossSpawns(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, domain.BossKilled, all[0].State)
	assert.Empty(t, all[0].EntityHandles)
	assert.Nil(t, all[0].LinkedInstance)
	assert.Equal(t, baseTime.Add(20*time.Hour), *all[0].NextSpawnAfter)
	assert.Equal(t, "kill-77", all[0].KillFactID)
	assert.Empty(t, all[1].KillFactID)
}

func testNotFound(t *testing.T, store repository.EventStore) {
	ctx := context.Background()
	id := uuid.New()

	_, err := store.GetInstance(ctx, id)
	assert.ErrorIs(t, err, domain.ErrInstanceNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetParticipation(ctx, id, "nobody")
	assert.ErrorIs(t, err, domain.ErrParticipantNotFound)

	_, err = store.GetCompletionHistory(ctx, "nobody", 1)
	assert.ErrorIs(t, err, domain.ErrHistoryNotFound)

	_, err = store.GetSchedule(ctx, 1, 1)
	assert.ErrorIs(t, err, domain.ErrScheduleNotFound)

	_, err = store.GetBossSpawn(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrBossNotFound)

	err = store.SaveInstance(ctx, activeInstance(domain.ZoneKey{ZoneID: 1}, baseTime), nil)
	assert.ErrorIs(t, err, domain.ErrInstanceNotFound)

	err = store.UpdateScheduleTrigger(ctx, 5, 5, nil, nil)
	assert.ErrorIs(t, err, domain.ErrScheduleNotFound)
}
