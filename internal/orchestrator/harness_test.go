package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/osse101/WorldEvents_Go/internal/catalog"
	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/testing/memstore"
)

var (
	testZone = domain.ZoneKey{ZoneID: 7}
	// Inside the 18:00-20:00 window of testBoss.
	baseTime = time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
)

const (
	eventKill      uint32 = 1
	eventTwoPhase  uint32 = 2
	eventWaves     uint32 = 3
	eventTerritory uint32 = 4
	eventBoss      uint32 = 5
	eventResume    uint32 = 6

	testBossID     uint32 = 9
	bossCreatureID uint32 = 900
	goblinID       uint32 = 100
)

func killObjective(target int, points int64) domain.Objective {
	return domain.Objective{Target: target, PointsPerUnit: points, Spec: domain.KillSpec{CreatureIDs: []uint32{goblinID}}}
}

func testEvents() []domain.EventDefinition {
	return []domain.EventDefinition{
		{
			ID: eventKill, Name: "Goblin Raid", Type: domain.EventTypeInvasion, ZoneID: 7,
			Duration: domain.Duration(30 * time.Minute),
			Phases:   []domain.Phase{{Objectives: []domain.Objective{killObjective(10, 10)}}},
			Rewards: domain.RewardTable{
				domain.TierGold:          {Currency: 500},
				domain.TierParticipation: {Currency: 10},
			},
		},
		{
			ID: eventTwoPhase, Name: "Supply Run", Type: domain.EventTypeCollection, ZoneID: 7,
			Duration: domain.Duration(time.Hour),
			Phases: []domain.Phase{
				{
					Duration:   domain.Duration(5 * time.Minute),
					Objectives: []domain.Objective{{Target: 3, PointsPerUnit: 1, Spec: domain.CollectSpec{}}},
				},
				{Objectives: []domain.Objective{killObjective(2, 1)}},
			},
			Weights: domain.DefaultContributionWeights,
		},
		{
			ID: eventWaves, Name: "Siege", Type: domain.EventTypeInvasion, ZoneID: 7,
			Duration:   domain.Duration(time.Hour),
			SpawnGroup: "camp",
			Phases: []domain.Phase{{
				Objectives: []domain.Objective{killObjective(6, 1)},
				Waves: []domain.Wave{
					{CreatureIDs: []uint32{goblinID, goblinID, goblinID, goblinID}, Threshold: 0.5},
					{CreatureIDs: []uint32{goblinID, goblinID}, Threshold: 1},
				},
			}},
			Weights: domain.DefaultContributionWeights,
		},
		{
			ID: eventTerritory, Name: "Hold the Pass", Type: domain.EventTypeTerritory, ZoneID: 7,
			Duration: domain.Duration(time.Hour),
			Phases: []domain.Phase{{Objectives: []domain.Objective{{
				Target: 1,
				Spec: domain.TerritorySpec{
					RequiredHold: domain.Duration(3 * time.Second),
					ControlPoints: []domain.ControlPoint{
						{ID: "north", Position: domain.Position{X: 0}, Radius: 10, CaptureTime: domain.Duration(2 * time.Second)},
						{ID: "south", Position: domain.Position{X: 100}, Radius: 10, CaptureTime: domain.Duration(2 * time.Second)},
					},
				},
			}}}},
			Weights: domain.DefaultContributionWeights,
		},
		{
			ID: eventBoss, Name: "Slay the Wyrm", Type: domain.EventTypeWorldBoss, ZoneID: 7,
			Duration: domain.Duration(time.Hour),
			Phases: []domain.Phase{{Objectives: []domain.Objective{{
				Target: 1, Spec: domain.KillBossSpec{BossID: testBossID},
			}}}},
			Rewards: domain.RewardTable{domain.TierGold: {Title: "Wyrmslayer"}},
			Weights: domain.DefaultContributionWeights,
		},
		{
			ID: eventResume, Name: "Second Wave", Type: domain.EventTypeInvasion, ZoneID: 7,
			Duration: domain.Duration(time.Hour),
			Phases: []domain.Phase{
				{Objectives: []domain.Objective{{Target: 1, Spec: domain.CollectSpec{}}}},
				{Objectives: []domain.Objective{killObjective(10, 10)}},
			},
		},
	}
}

func testBosses() []domain.WorldBossDefinition {
	return []domain.WorldBossDefinition{{
		ID: testBossID, Name: "Ashen Wyrm", ZoneID: 7, CreatureID: bossCreatureID,
		MaxHealth:         1000,
		Window:            domain.SpawnWindow{StartHour: 18, EndHour: 20},
		MinPlayers:        2,
		InitialAbilitySet: "claws",
		Phases:            []domain.BossPhase{{HealthPercent: 50, AbilitySet: "burn", Adds: []uint32{901}}},
		Enrage:            domain.Duration(10 * time.Minute),
		EnrageAbilitySet:  "cataclysm",
		Cooldown:          domain.Duration(4 * time.Hour),
		EventID:           eventBoss,
	}}
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []domain.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recordingNotifier) all() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.got...)
}

func notificationsOf[T domain.Notification](r *recordingNotifier) []T {
	var out []T
	for _, n := range r.all() {
		if v, ok := n.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

type fakeSpawner struct {
	mu        sync.Mutex
	requests  []domain.SpawnRequest
	despawned [][]string
	n         int
}

func (f *fakeSpawner) Spawn(_ context.Context, req domain.SpawnRequest) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	handles := make([]string, 0, len(req.CreatureIDs))
	for range req.CreatureIDs {
		f.n++
		handles = append(handles, fmt.Sprintf("h-%d", f.n))
	}
	return handles, nil
}

func (f *fakeSpawner) Despawn(_ context.Context, _ domain.ZoneKey, handles []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.despawned = append(f.despawned, handles)
	return nil
}

func (f *fakeSpawner) spawnRequests() []domain.SpawnRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SpawnRequest(nil), f.requests...)
}

func (f *fakeSpawner) despawns() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.despawned...)
}

type fakeRewards struct {
	mu     sync.Mutex
	grants []domain.RewardGrant
}

func (f *fakeRewards) Enqueue(_ context.Context, g domain.RewardGrant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants = append(f.grants, g)
	return nil
}

func (f *fakeRewards) all() []domain.RewardGrant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.RewardGrant(nil), f.grants...)
}

type harness struct {
	o       *Orchestrator
	store   *memstore.Store
	clock   *clockwork.FakeClock
	notes   *recordingNotifier
	spawner *fakeSpawner
	rewards *fakeRewards
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	return newHarnessWithStore(t, cfg, memstore.New(), clockwork.NewFakeClockAt(baseTime))
}

func newHarnessWithStore(t *testing.T, cfg Config, store *memstore.Store, clock *clockwork.FakeClock) *harness {
	t.Helper()
	cat, err := catalog.New(testEvents(), testBosses(), []domain.SpawnPoint{
		{ID: 1, ZoneID: 7, Group: "camp", Position: domain.Position{X: 5}},
	})
	require.NoError(t, err)

	h := &harness{
		store:   store,
		clock:   clock,
		notes:   &recordingNotifier{},
		spawner: &fakeSpawner{},
		rewards: &fakeRewards{},
	}
	h.o = New(cfg, Dependencies{
		Catalog:  cat,
		Store:    store,
		Notifier: h.notes,
		Spawner:  h.spawner,
		Rewards:  h.rewards,
		Clock:    clock,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.o.Shutdown(ctx)
	})
	return h
}

func (h *harness) start(t *testing.T, eventID uint32) *domain.Instance {
	t.Helper()
	inst, err := h.o.CreateAndStart(context.Background(), eventID, testZone, 0)
	require.NoError(t, err)
	return inst
}

func (h *harness) get(t *testing.T, id uuid.UUID) *domain.Instance {
	t.Helper()
	inst, err := h.o.GetInstance(context.Background(), id)
	require.NoError(t, err)
	return inst
}

func (h *harness) kill(t *testing.T, pid string, creature uint32) {
	t.Helper()
	require.NoError(t, h.o.ReportFact(context.Background(), domain.Fact{
		Kind: domain.FactKill, Zone: testZone, ParticipantID: pid, TargetID: creature,
	}))
}

func (h *harness) present(t *testing.T, pid, faction string, pos domain.Position) {
	t.Helper()
	require.NoError(t, h.o.ReportPresence(context.Background(), domain.Presence{
		Zone: testZone, ParticipantID: pid, Faction: faction, Position: pos,
	}))
}

// eventually polls cond until it holds, failing the test after a few seconds.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 3*time.Second, 5*time.Millisecond, msg)
}
