// Package orchestrator runs public events. Every zone instance is owned by one actor
// goroutine that serializes all state changes for the events and world bosses in it.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/logger"
	"github.com/osse101/WorldEvents_Go/internal/metrics"
	"github.com/osse101/WorldEvents_Go/internal/repository"
)

// Catalog is the read-only definition lookup the orchestrator needs.
type Catalog interface {
	GetEvent(id uint32) (*domain.EventDefinition, error)
	GetWorldBoss(id uint32) (*domain.WorldBossDefinition, error)
	GetSpawnPoints(zoneID uint32, group string) []domain.SpawnPoint
	BossesInZone(zone domain.ZoneKey) []*domain.WorldBossDefinition
	BossZones() []domain.ZoneKey
	Events() []*domain.EventDefinition
}

// Notifier receives typed notifications after the state behind them is persisted.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// Spawner places and removes creatures in the world.
type Spawner interface {
	Spawn(ctx context.Context, req domain.SpawnRequest) ([]string, error)
	Despawn(ctx context.Context, zone domain.ZoneKey, handles []string) error
}

// RewardQueue accepts reward grants for asynchronous delivery.
type RewardQueue interface {
	Enqueue(ctx context.Context, grant domain.RewardGrant) error
}

// Config tunes actor behaviour.
type Config struct {
	TerritoryTick  time.Duration
	ContestPolicy  domain.ContestPolicy
	DecayRate      float64
	CompletedGrace time.Duration
	PresenceTTL    time.Duration
	MailboxSize    int
	FactDedupeSize int
}

func (c Config) withDefaults() Config {
	if c.TerritoryTick <= 0 {
		c.TerritoryTick = DefaultTerritoryTick
	}
	if c.ContestPolicy == "" {
		c.ContestPolicy = domain.ContestFreeze
	}
	if c.DecayRate <= 0 {
		c.DecayRate = DefaultDecayRate
	}
	if c.CompletedGrace < 0 {
		c.CompletedGrace = 0
	} else if c.CompletedGrace == 0 {
		c.CompletedGrace = DefaultCompletedGrace
	}
	if c.PresenceTTL <= 0 {
		c.PresenceTTL = DefaultPresenceTTL
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = DefaultMailboxSize
	}
	if c.FactDedupeSize <= 0 {
		c.FactDedupeSize = DefaultFactDedupeSize
	}
	return c
}

// Dependencies are the collaborators of the orchestrator.
type Dependencies struct {
	Catalog  Catalog
	Store    repository.EventStore
	Notifier Notifier
	Spawner  Spawner
	Rewards  RewardQueue
	Clock    clockwork.Clock
}

// Orchestrator routes requests to zone actors, starting them on demand.
type Orchestrator struct {
	cfg      Config
	catalog  Catalog
	store    repository.EventStore
	notifier Notifier
	spawner  Spawner
	rewards  RewardQueue
	clock    clockwork.Clock

	mu     sync.Mutex
	actors map[domain.ZoneKey]*zoneActor
	// index maps live instance ids to their owning zone.
	index  map[uuid.UUID]domain.ZoneKey
	closed bool
	wg     sync.WaitGroup
}

// New creates an orchestrator. No actor runs until it is first addressed or Recover is called.
func New(cfg Config, deps Dependencies) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &Orchestrator{
		cfg:      cfg.withDefaults(),
		catalog:  deps.Catalog,
		store:    deps.Store,
		notifier: deps.Notifier,
		spawner:  deps.Spawner,
		rewards:  deps.Rewards,
		clock:    deps.Clock,
		actors:   make(map[domain.ZoneKey]*zoneActor),
		index:    make(map[uuid.UUID]domain.ZoneKey),
	}
}

func (o *Orchestrator) now() time.Time {
	return o.clock.Now().UTC()
}

// Recover starts an actor for every zone with open instances, world bosses or catalog
// events, the last so that unclaimed rewards of finished events are re-enqueued. Each
// actor rehydrates from the store and re-arms its timers before serving requests.
func (o *Orchestrator) Recover(ctx context.Context) error {
	zones, err := o.store.ListOpenZones(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open zones: %w", err)
	}
	zones = append(zones, o.catalog.BossZones()...)
	for _, def := range o.catalog.Events() {
		zone := domain.ZoneKey{ZoneID: def.ZoneID}
		if def.Schedule != nil {
			zone.InstanceID = def.Schedule.InstanceID
		}
		zones = append(zones, zone)
	}
	for _, zone := range zones {
		if _, err := o.actorFor(zone); err != nil {
			return err
		}
	}
	return nil
}

// Zones returns the zone instances that currently have a running actor.
func (o *Orchestrator) Zones() []domain.ZoneKey {
	o.mu.Lock()
	defer o.mu.Unlock()
	zones := make([]domain.ZoneKey, 0, len(o.actors))
	for z := range o.actors {
		zones = append(zones, z)
	}
	return zones
}

func (o *Orchestrator) actorFor(zone domain.ZoneKey) (*zoneActor, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, domain.ErrOrchestratorClosed
	}
	if a, ok := o.actors[zone]; ok {
		return a, nil
	}
	a := newZoneActor(o, zone)
	o.actors[zone] = a
	metrics.ZoneActors.Inc()
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		a.run()
	}()
	return a, nil
}

func (o *Orchestrator) track(id uuid.UUID, zone domain.ZoneKey) {
	o.mu.Lock()
	o.index[id] = zone
	o.mu.Unlock()
}

func (o *Orchestrator) untrack(id uuid.UUID) {
	o.mu.Lock()
	delete(o.index, id)
	o.mu.Unlock()
}

// zoneOf finds the zone owning an instance, falling back to the store for instances
// no actor has loaded.
func (o *Orchestrator) zoneOf(ctx context.Context, id uuid.UUID) (domain.ZoneKey, error) {
	o.mu.Lock()
	zone, ok := o.index[id]
	o.mu.Unlock()
	if ok {
		return zone, nil
	}
	inst, err := o.store.GetInstance(ctx, id)
	if err != nil {
		return domain.ZoneKey{}, err
	}
	return inst.Zone, nil
}

type result[T any] struct {
	val T
	err error
}

// call runs fn inside the zone's actor and waits for its result.
func call[T any](ctx context.Context, o *Orchestrator, zone domain.ZoneKey, fn func(ctx context.Context, a *zoneActor) (T, error)) (T, error) {
	var zero T
	a, err := o.actorFor(zone)
	if err != nil {
		return zero, err
	}

	reply := make(chan result[T], 1)
	env := envelope{
		run: func(a *zoneActor) {
			v, err := fn(ctx, a)
			reply <- result[T]{val: v, err: err}
		},
		fail: func(err error) { reply <- result[T]{err: err} },
	}
	if err := a.send(ctx, env); err != nil {
		return zero, err
	}

	select {
	case r := <-reply:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-a.done:
		return zero, domain.ErrOrchestratorClosed
	}
}

func (o *Orchestrator) callInstance(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, a *zoneActor) (*domain.Instance, error)) (*domain.Instance, error) {
	zone, err := o.zoneOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return call(ctx, o, zone, fn)
}

// Create builds a pending instance of an event definition in a zone instance.
func (o *Orchestrator) Create(ctx context.Context, eventID uint32, zone domain.ZoneKey) (*domain.Instance, error) {
	def, err := o.catalog.GetEvent(eventID)
	if err != nil {
		return nil, err
	}
	return call(ctx, o, zone, func(ctx context.Context, a *zoneActor) (*domain.Instance, error) {
		return a.create(ctx, def)
	})
}

// Start activates a pending instance. A zero duration uses the definition's duration.
func (o *Orchestrator) Start(ctx context.Context, id uuid.UUID, duration time.Duration) (*domain.Instance, error) {
	return o.callInstance(ctx, id, func(ctx context.Context, a *zoneActor) (*domain.Instance, error) {
		return a.start(ctx, id, duration)
	})
}

// CreateAndStart creates and immediately starts an instance in one actor turn.
func (o *Orchestrator) CreateAndStart(ctx context.Context, eventID uint32, zone domain.ZoneKey, duration time.Duration) (*domain.Instance, error) {
	def, err := o.catalog.GetEvent(eventID)
	if err != nil {
		return nil, err
	}
	return call(ctx, o, zone, func(ctx context.Context, a *zoneActor) (*domain.Instance, error) {
		inst, err := a.create(ctx, def)
		if err != nil {
			return nil, err
		}
		return a.start(ctx, inst.ID, duration)
	})
}

// AdvancePhase moves an active instance to a later phase. A nil initial progress starts
// every objective of the phase at zero.
func (o *Orchestrator) AdvancePhase(ctx context.Context, id uuid.UUID, phaseIndex int, initial map[int]*domain.ObjectiveProgress) (*domain.Instance, error) {
	return o.callInstance(ctx, id, func(ctx context.Context, a *zoneActor) (*domain.Instance, error) {
		return a.advancePhase(ctx, id, phaseIndex, initial)
	})
}

// Complete finishes an active instance successfully.
func (o *Orchestrator) Complete(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	return o.callInstance(ctx, id, func(ctx context.Context, a *zoneActor) (*domain.Instance, error) {
		return a.terminate(ctx, id, domain.StateCompleted)
	})
}

// Fail ends an active instance unsuccessfully.
func (o *Orchestrator) Fail(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	return o.callInstance(ctx, id, func(ctx context.Context, a *zoneActor) (*domain.Instance, error) {
		return a.terminate(ctx, id, domain.StateFailed)
	})
}

// Cancel aborts a pending or active instance.
func (o *Orchestrator) Cancel(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	return o.callInstance(ctx, id, func(ctx context.Context, a *zoneActor) (*domain.Instance, error) {
		return a.terminate(ctx, id, domain.StateCancelled)
	})
}

// GetInstance returns the live view of an instance, or the stored row once it has left memory.
func (o *Orchestrator) GetInstance(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	return o.callInstance(ctx, id, func(ctx context.Context, a *zoneActor) (*domain.Instance, error) {
		st, err := a.lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		return st.inst.Clone(), nil
	})
}

// Participants returns the participation rows of an instance ordered by contribution.
func (o *Orchestrator) Participants(ctx context.Context, id uuid.UUID) ([]*domain.Participation, error) {
	zone, err := o.zoneOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return call(ctx, o, zone, func(ctx context.Context, a *zoneActor) ([]*domain.Participation, error) {
		if st, ok := a.instances[id]; ok {
			return st.sortedParticipants(), nil
		}
		return a.o.store.ListParticipations(ctx, id)
	})
}

// ReportFact applies a gameplay fact to every active instance it concerns in its zone.
func (o *Orchestrator) ReportFact(ctx context.Context, f domain.Fact) error {
	if f.ParticipantID == "" || f.Kind == "" {
		return fmt.Errorf("%w: fact needs kind and participant_id", domain.ErrInvalidInput)
	}
	if f.Amount < 0 {
		return fmt.Errorf("%w: fact amount %d is negative", domain.ErrInvalidInput, f.Amount)
	}
	if f.OccurredAt.IsZero() {
		f.OccurredAt = o.now()
	}
	_, err := call(ctx, o, f.Zone, func(ctx context.Context, a *zoneActor) (struct{}, error) {
		return struct{}{}, a.handleFact(ctx, f)
	})
	return err
}

// ReportPresence updates where a participant is.
func (o *Orchestrator) ReportPresence(ctx context.Context, p domain.Presence) error {
	if p.ParticipantID == "" {
		return fmt.Errorf("%w: presence needs participant_id", domain.ErrInvalidInput)
	}
	if p.ReportedAt.IsZero() {
		p.ReportedAt = o.now()
	}
	_, err := call(ctx, o, p.Zone, func(ctx context.Context, a *zoneActor) (struct{}, error) {
		a.handlePresence(ctx, p)
		return struct{}{}, nil
	})
	return err
}

// Population returns the number of participants currently present in a zone instance.
func (o *Orchestrator) Population(ctx context.Context, zone domain.ZoneKey) (int, error) {
	return call(ctx, o, zone, func(_ context.Context, a *zoneActor) (int, error) {
		return a.population(), nil
	})
}

// EventList returns the pending and active instances of a zone instance, plus terminal
// instances still inside their grace period.
func (o *Orchestrator) EventList(ctx context.Context, zone domain.ZoneKey) ([]domain.EventListEntry, error) {
	return call(ctx, o, zone, func(_ context.Context, a *zoneActor) ([]domain.EventListEntry, error) {
		return a.eventList(), nil
	})
}

// EvaluateBoss opens the spawn window of a world boss when it is due and spawns the boss
// once the zone is populated enough. It is a no-op outside the window.
func (o *Orchestrator) EvaluateBoss(ctx context.Context, bossID uint32) (*domain.BossSpawn, error) {
	def, err := o.catalog.GetWorldBoss(bossID)
	if err != nil {
		return nil, err
	}
	return call(ctx, o, def.Zone(), func(ctx context.Context, a *zoneActor) (*domain.BossSpawn, error) {
		return a.evaluateBoss(ctx, def)
	})
}

// BossStatus returns the runtime row of a world boss.
func (o *Orchestrator) BossStatus(ctx context.Context, bossID uint32) (*domain.BossSpawn, error) {
	def, err := o.catalog.GetWorldBoss(bossID)
	if err != nil {
		return nil, err
	}
	return call(ctx, o, def.Zone(), func(_ context.Context, a *zoneActor) (*domain.BossSpawn, error) {
		b, ok := a.bossSnapshot(bossID)
		if !ok {
			return nil, fmt.Errorf("%w: %d", domain.ErrBossNotFound, bossID)
		}
		return b, nil
	})
}

// Shutdown stops every actor. Armed timers are dropped; persisted timestamps re-arm them
// on the next start.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	for _, a := range o.actors {
		close(a.stop)
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		metrics.ZoneActors.Set(0)
		return nil
	case <-ctx.Done():
		logger.FromContext(ctx).Warn(LogMsgShutdownTimeout)
		return ctx.Err()
	}
}
