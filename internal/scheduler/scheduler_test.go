package scheduler

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/event"
	"github.com/osse101/WorldEvents_Go/internal/testing/memstore"
)

type createCall struct {
	eventID uint32
	zone    domain.ZoneKey
}

type fakeOrchestrator struct {
	mu        sync.Mutex
	created   []createCall
	errFor    map[uint32]error
	pop       int
	bossEvals []uint32
}

func newFakeOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{errFor: make(map[uint32]error)}
}

func (f *fakeOrchestrator) CreateAndStart(_ context.Context, eventID uint32, zone domain.ZoneKey, _ time.Duration) (*domain.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor[eventID]; err != nil {
		return nil, err
	}
	f.created = append(f.created, createCall{eventID: eventID, zone: zone})
	return &domain.Instance{ID: uuid.New(), EventID: eventID, Zone: zone, State: domain.StateActive}, nil
}

func (f *fakeOrchestrator) Population(context.Context, domain.ZoneKey) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pop, nil
}

func (f *fakeOrchestrator) EvaluateBoss(_ context.Context, bossID uint32) (*domain.BossSpawn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bossEvals = append(f.bossEvals, bossID)
	return &domain.BossSpawn{BossID: bossID}, nil
}

func (f *fakeOrchestrator) setPop(n int) {
	f.mu.Lock()
	f.pop = n
	f.mu.Unlock()
}

func (f *fakeOrchestrator) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeOrchestrator) bossEvalCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bossEvals)
}

type fakeCatalog struct {
	events []*domain.EventDefinition
	bosses []*domain.WorldBossDefinition
}

func (c fakeCatalog) Events() []*domain.EventDefinition          { return c.events }
func (c fakeCatalog) WorldBosses() []*domain.WorldBossDefinition { return c.bosses }

type harness struct {
	store *memstore.Store
	orch  *fakeOrchestrator
	clock *clockwork.FakeClock
	sched *Scheduler
}

func newHarness(t *testing.T, catalog fakeCatalog) *harness {
	t.Helper()
	store := memstore.New()
	orch := newFakeOrchestrator()
	clock := clockwork.NewFakeClockAt(at(14, 10, 0))
	return &harness{
		store: store,
		orch:  orch,
		clock: clock,
		sched: New(Config{Interval: time.Second}, store, orch, catalog, clock, rand.New(rand.NewPCG(7, 7))),
	}
}

func (h *harness) upsert(t *testing.T, s *domain.Schedule) {
	t.Helper()
	require.NoError(t, h.store.UpsertSchedule(context.Background(), s))
}

func (h *harness) schedule(t *testing.T, eventID, zoneID uint32) *domain.Schedule {
	t.Helper()
	s, err := h.store.GetSchedule(context.Background(), eventID, zoneID)
	require.NoError(t, err)
	return s
}

func TestTick_TimerArmsThenFires(t *testing.T) {
	h := newHarness(t, fakeCatalog{})
	h.upsert(t, &domain.Schedule{
		EventID: 1, ZoneID: 7, InstanceID: 2, Enabled: true,
		Trigger: domain.TimerTrigger{Interval: domain.Duration(time.Hour)},
	})
	ctx := context.Background()

	h.sched.Tick(ctx)
	assert.Equal(t, 0, h.orch.createdCount(), "first pass only computes the fire time")
	s := h.schedule(t, 1, 7)
	require.NotNil(t, s.NextTriggerAt)
	assert.Equal(t, at(14, 11, 0), *s.NextTriggerAt)

	h.clock.Advance(30 * time.Minute)
	h.sched.Tick(ctx)
	assert.Equal(t, 0, h.orch.createdCount())

	h.clock.Advance(30 * time.Minute)
	h.sched.Tick(ctx)
	require.Equal(t, 1, h.orch.createdCount())
	assert.Equal(t, domain.ZoneKey{ZoneID: 7, InstanceID: 2}, h.orch.created[0].zone)

	s = h.schedule(t, 1, 7)
	require.NotNil(t, s.LastTriggeredAt)
	assert.Equal(t, at(14, 11, 0), *s.LastTriggeredAt)
	assert.Equal(t, at(14, 12, 0), *s.NextTriggerAt)
}

func TestTick_AlreadyRunningIsASkip(t *testing.T) {
	h := newHarness(t, fakeCatalog{})
	next := at(14, 9, 0)
	h.upsert(t, &domain.Schedule{
		EventID: 1, ZoneID: 7, Enabled: true, NextTriggerAt: &next,
		Trigger: domain.TimerTrigger{Interval: domain.Duration(time.Hour)},
	})
	h.orch.errFor[1] = domain.ErrEventAlreadyRunning

	h.sched.Tick(context.Background())

	s := h.schedule(t, 1, 7)
	assert.Nil(t, s.LastTriggeredAt)
	assert.Equal(t, at(14, 11, 0), *s.NextTriggerAt)
}

func TestTick_FailingRowDoesNotBlockOthers(t *testing.T) {
	h := newHarness(t, fakeCatalog{})
	due := at(14, 9, 0)
	for _, id := range []uint32{1, 2} {
		h.upsert(t, &domain.Schedule{
			EventID: id, ZoneID: 7, Enabled: true, NextTriggerAt: &due,
			Trigger: domain.TimerTrigger{Interval: domain.Duration(time.Hour)},
		})
	}
	h.orch.errFor[1] = errors.New("catalog lookup exploded")

	h.sched.Tick(context.Background())

	assert.Equal(t, due, *h.schedule(t, 1, 7).NextTriggerAt, "failed row retries next pass")
	require.Equal(t, 1, h.orch.createdCount())
	assert.Equal(t, uint32(2), h.orch.created[0].eventID)
}

func TestTick_StoreFailureIsIsolated(t *testing.T) {
	h := newHarness(t, fakeCatalog{bosses: []*domain.WorldBossDefinition{{ID: 9}}})
	h.store.FailNext("ListSchedules", errors.New("db down"))

	h.sched.Tick(context.Background())
	assert.Equal(t, 1, h.orch.bossEvalCount(), "boss pass still runs")
}

func TestTick_RandomWindow(t *testing.T) {
	h := newHarness(t, fakeCatalog{})
	h.upsert(t, &domain.Schedule{
		EventID: 3, ZoneID: 7, Enabled: true,
		Trigger: domain.RandomWindowTrigger{StartHour: 18, EndHour: 20},
	})
	ctx := context.Background()

	h.sched.Tick(ctx)
	next := *h.schedule(t, 3, 7).NextTriggerAt
	assert.False(t, next.Before(at(14, 18, 0)))
	assert.True(t, next.Before(at(14, 20, 0)))

	h.clock.Advance(next.Sub(h.clock.Now()))
	h.sched.Tick(ctx)
	require.Equal(t, 1, h.orch.createdCount())

	s := h.schedule(t, 3, 7)
	assert.False(t, s.NextTriggerAt.Before(at(15, 18, 0)), "once per day")
}

func TestTick_PlayerCountNeedsSustainedPopulation(t *testing.T) {
	h := newHarness(t, fakeCatalog{})
	h.upsert(t, &domain.Schedule{
		EventID: 4, ZoneID: 7, Enabled: true,
		Trigger: domain.PlayerCountTrigger{Threshold: 3, SustainFor: domain.Duration(time.Minute)},
	})
	ctx := context.Background()

	h.orch.setPop(3)
	h.sched.Tick(ctx)
	h.clock.Advance(30 * time.Second)
	h.sched.Tick(ctx)
	assert.Equal(t, 0, h.orch.createdCount())

	h.orch.setPop(2)
	h.clock.Advance(20 * time.Second)
	h.sched.Tick(ctx)

	h.orch.setPop(5)
	h.clock.Advance(20 * time.Second)
	h.sched.Tick(ctx)
	h.clock.Advance(50 * time.Second)
	h.sched.Tick(ctx)
	assert.Equal(t, 0, h.orch.createdCount(), "the dip restarted the streak")

	h.clock.Advance(10 * time.Second)
	h.sched.Tick(ctx)
	assert.Equal(t, 1, h.orch.createdCount())
	assert.NotNil(t, h.schedule(t, 4, 7).LastTriggeredAt)
}

func TestTick_PlayerCountCooldown(t *testing.T) {
	h := newHarness(t, fakeCatalog{})
	last := at(14, 9, 30)
	h.upsert(t, &domain.Schedule{
		EventID: 4, ZoneID: 7, Enabled: true, LastTriggeredAt: &last,
		Trigger: domain.PlayerCountTrigger{Threshold: 1, Cooldown: domain.Duration(time.Hour)},
	})
	h.orch.setPop(10)

	h.sched.Tick(context.Background())
	assert.Equal(t, 0, h.orch.createdCount())

	h.clock.Advance(30 * time.Minute)
	h.sched.Tick(context.Background())
	assert.Equal(t, 1, h.orch.createdCount())
}

func TestChain_ArmsOnSuccessAndFiresAfterDelay(t *testing.T) {
	h := newHarness(t, fakeCatalog{})
	h.upsert(t, &domain.Schedule{
		EventID: 5, ZoneID: 7, Enabled: true,
		Trigger: domain.ChainTrigger{AfterEventID: 1, Delay: domain.Duration(10 * time.Minute)},
	})
	bus := event.NewMemoryBus()
	h.sched.SubscribeChains(bus)
	ctx := context.Background()
	zone := domain.ZoneKey{ZoneID: 7}

	publish := func(n domain.Notification) {
		require.NoError(t, bus.Publish(ctx, event.NewNotificationEvent(n, h.clock.Now())))
	}

	publish(domain.EventCompleted{Audience: domain.Audience{Zone: zone}, EventID: 1, Success: false, CompletedAt: h.clock.Now()})
	publish(domain.EventCompleted{Audience: domain.Audience{Zone: domain.ZoneKey{ZoneID: 8}}, EventID: 1, Success: true, CompletedAt: h.clock.Now()})
	publish(domain.EventCompleted{Audience: domain.Audience{Zone: zone, Recipient: "alice"}, EventID: 1, Success: true, CompletedAt: h.clock.Now()})
	assert.Nil(t, h.schedule(t, 5, 7).NextTriggerAt, "failure, other zone and personal copies do not arm")

	publish(domain.EventCompleted{Audience: domain.Audience{Zone: zone}, EventID: 1, Success: true, CompletedAt: h.clock.Now()})
	require.NotNil(t, h.schedule(t, 5, 7).NextTriggerAt)
	assert.Equal(t, at(14, 10, 10), *h.schedule(t, 5, 7).NextTriggerAt)

	h.sched.Tick(ctx)
	assert.Equal(t, 0, h.orch.createdCount())

	h.clock.Advance(10 * time.Minute)
	h.sched.Tick(ctx)
	require.Equal(t, 1, h.orch.createdCount())
	assert.Equal(t, uint32(5), h.orch.created[0].eventID)
	assert.Nil(t, h.schedule(t, 5, 7).NextTriggerAt)

	h.sched.Tick(ctx)
	assert.Equal(t, 1, h.orch.createdCount(), "fires once per completion")
}

func TestChain_AnyZone(t *testing.T) {
	h := newHarness(t, fakeCatalog{})
	h.upsert(t, &domain.Schedule{
		EventID: 5, ZoneID: 7, Enabled: true,
		Trigger: domain.ChainTrigger{AfterEventID: 1, AnyZone: true},
	})
	bus := event.NewMemoryBus()
	h.sched.SubscribeChains(bus)

	n := domain.EventCompleted{Audience: domain.Audience{Zone: domain.ZoneKey{ZoneID: 99}}, EventID: 1, Success: true, CompletedAt: h.clock.Now()}
	require.NoError(t, bus.Publish(context.Background(), event.NewNotificationEvent(n, h.clock.Now())))

	assert.NotNil(t, h.schedule(t, 5, 7).NextTriggerAt)
}

func TestChain_SelfChainIsNeverArmedOrFired(t *testing.T) {
	h := newHarness(t, fakeCatalog{events: []*domain.EventDefinition{
		{ID: 4, ZoneID: 7, Schedule: &domain.ScheduleSeed{Enabled: true, Trigger: domain.ChainTrigger{AfterEventID: 4}}},
	}})
	ctx := context.Background()
	h.sched.Seed(ctx)
	_, err := h.store.GetSchedule(ctx, 4, 7)
	assert.ErrorIs(t, err, domain.ErrScheduleNotFound, "seed skips a self-chain")

	// A row written before validation existed.
	h.upsert(t, &domain.Schedule{
		EventID: 5, ZoneID: 7, Enabled: true,
		Trigger: domain.ChainTrigger{AfterEventID: 5},
	})
	bus := event.NewMemoryBus()
	h.sched.SubscribeChains(bus)

	n := domain.EventCompleted{Audience: domain.Audience{Zone: domain.ZoneKey{ZoneID: 7}}, EventID: 5, Success: true, CompletedAt: h.clock.Now()}
	require.NoError(t, bus.Publish(ctx, event.NewNotificationEvent(n, h.clock.Now())))
	assert.Nil(t, h.schedule(t, 5, 7).NextTriggerAt)

	_, err = h.sched.Fire(ctx, 5, 7)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, h.orch.createdCount())
}

func TestManualAndDisabledNeverAutoFire(t *testing.T) {
	h := newHarness(t, fakeCatalog{})
	due := at(14, 9, 0)
	h.upsert(t, &domain.Schedule{EventID: 6, ZoneID: 7, Enabled: true, Trigger: domain.ManualTrigger{}})
	h.upsert(t, &domain.Schedule{
		EventID: 7, ZoneID: 7, Enabled: false, NextTriggerAt: &due,
		Trigger: domain.TimerTrigger{Interval: domain.Duration(time.Minute)},
	})

	h.sched.Tick(context.Background())
	assert.Equal(t, 0, h.orch.createdCount())
}

func TestFire(t *testing.T) {
	h := newHarness(t, fakeCatalog{})
	h.upsert(t, &domain.Schedule{EventID: 6, ZoneID: 7, InstanceID: 1, Enabled: true, Trigger: domain.ManualTrigger{}})

	inst, err := h.sched.Fire(context.Background(), 6, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.ZoneKey{ZoneID: 7, InstanceID: 1}, inst.Zone)
	assert.Equal(t, at(14, 10, 0), *h.schedule(t, 6, 7).LastTriggeredAt)

	_, err = h.sched.Fire(context.Background(), 42, 7)
	assert.ErrorIs(t, err, domain.ErrScheduleNotFound)

	h.orch.errFor[6] = domain.ErrEventAlreadyRunning
	_, err = h.sched.Fire(context.Background(), 6, 7)
	assert.ErrorIs(t, err, domain.ErrEventAlreadyRunning)
}

func TestSeed_KeepsExistingRows(t *testing.T) {
	catalog := fakeCatalog{events: []*domain.EventDefinition{
		{ID: 1, ZoneID: 7, Schedule: &domain.ScheduleSeed{Enabled: true, Trigger: domain.TimerTrigger{Interval: domain.Duration(time.Hour)}}},
		{ID: 2, ZoneID: 7, Schedule: &domain.ScheduleSeed{InstanceID: 3, Enabled: true, Trigger: domain.ManualTrigger{}}},
		{ID: 3, ZoneID: 7},
	}}
	h := newHarness(t, catalog)
	h.upsert(t, &domain.Schedule{EventID: 1, ZoneID: 7, Enabled: false, Trigger: domain.ManualTrigger{}})

	h.sched.Seed(context.Background())

	kept := h.schedule(t, 1, 7)
	assert.False(t, kept.Enabled, "admin changes survive")
	assert.Equal(t, domain.TriggerManual, kept.Trigger.Type())

	seeded := h.schedule(t, 2, 7)
	assert.True(t, seeded.Enabled)
	assert.Equal(t, uint32(3), seeded.InstanceID)

	_, err := h.store.GetSchedule(context.Background(), 3, 7)
	assert.ErrorIs(t, err, domain.ErrScheduleNotFound)
}

func TestStartRunsPeriodically(t *testing.T) {
	store := memstore.New()
	orch := newFakeOrchestrator()
	sched := New(Config{Interval: 20 * time.Millisecond}, store, orch,
		fakeCatalog{bosses: []*domain.WorldBossDefinition{{ID: 9}}}, nil, nil)

	require.NoError(t, sched.Start(context.Background()))
	require.Eventually(t, func() bool { return orch.bossEvalCount() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, sched.Stop())
}
