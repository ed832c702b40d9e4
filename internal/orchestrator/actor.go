package orchestrator

import (
	"cmp"
	"context"
	"log/slog"
	"runtime/debug"
	"slices"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/logger"
)

// envelope is one mailbox message. fail is called instead of a reply when run panics.
type envelope struct {
	run  func(a *zoneActor)
	fail func(err error)
}

// instanceState is the actor-owned runtime view of one instance.
type instanceState struct {
	inst  *domain.Instance
	def   *domain.EventDefinition
	parts map[string]*domain.Participation
	// contributors records, per objective of the current phase, who advanced it.
	// It is not persisted; after a restart only post-restart contributors are credited.
	contributors map[int]map[string]struct{}
}

func newInstanceState(inst *domain.Instance, def *domain.EventDefinition) *instanceState {
	return &instanceState{
		inst:         inst,
		def:          def,
		parts:        make(map[string]*domain.Participation),
		contributors: make(map[int]map[string]struct{}),
	}
}

func (st *instanceState) phase() *domain.Phase {
	return st.def.PhaseAt(st.inst.PhaseIndex)
}

func (st *instanceState) sortedParticipants() []*domain.Participation {
	out := make([]*domain.Participation, 0, len(st.parts))
	for _, p := range st.parts {
		out = append(out, p.Clone())
	}
	slices.SortFunc(out, func(a, b *domain.Participation) int {
		if c := cmp.Compare(b.Contribution, a.Contribution); c != 0 {
			return c
		}
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})
	return out
}

type presenceEntry struct {
	faction  string
	position domain.Position
	seenAt   time.Time
}

// zoneActor owns every instance and world boss of one zone instance. All fields below
// mailbox are touched only by the run goroutine.
type zoneActor struct {
	o       *Orchestrator
	zone    domain.ZoneKey
	log     *slog.Logger
	mailbox chan envelope
	stop    chan struct{}
	done    chan struct{}

	timers    *timerSet
	instances map[uuid.UUID]*instanceState
	bosses    map[uint32]*domain.BossSpawn
	presence  map[string]presenceEntry
	seenFacts *lru.Cache[string, struct{}]
	// hydrated is false until the zone has been loaded from the store. An unloaded
	// actor rejects requests with ErrZoneUnavailable instead of serving empty state.
	hydrated bool
}

func newZoneActor(o *Orchestrator, zone domain.ZoneKey) *zoneActor {
	a := &zoneActor{
		o:       o,
		zone:    zone,
		log:     logger.FromContext(context.Background()).With(logger.AttrKeyZone, zone.String()),
		mailbox: make(chan envelope, o.cfg.MailboxSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	a.timers = newTimerSet(o.clock, a.post)
	a.reset()
	return a
}

// reset drops all in-memory state.
func (a *zoneActor) reset() {
	a.hydrated = false
	a.instances = make(map[uuid.UUID]*instanceState)
	a.bosses = make(map[uint32]*domain.BossSpawn)
	a.presence = make(map[string]presenceEntry)
	// Only fails for a non-positive size, which withDefaults rules out.
	a.seenFacts, _ = lru.New[string, struct{}](a.o.cfg.FactDedupeSize)
}

// send enqueues a message, giving up when ctx ends or the actor stops.
func (a *zoneActor) send(ctx context.Context, env envelope) error {
	select {
	case a.mailbox <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-a.stop:
		return domain.ErrOrchestratorClosed
	}
}

// post enqueues a message from a timer goroutine.
func (a *zoneActor) post(env envelope) {
	select {
	case a.mailbox <- env:
	case <-a.stop:
	}
}

func (a *zoneActor) run() {
	defer close(a.done)
	a.log.Info(LogMsgActorStarted)
	a.rehydrateWithRetry()

	for {
		select {
		case env := <-a.mailbox:
			a.handle(env)
		case <-a.stop:
			a.timers.stopAll()
			a.log.Info(LogMsgActorStopped)
			return
		}
	}
}

// handle runs one message under the supervisor: a panic fails the message, drops all
// in-memory state and rebuilds it from the store.
func (a *zoneActor) handle(env envelope) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error(LogMsgActorPanic, "panic", r, "stack", string(debug.Stack()))
			if env.fail != nil {
				env.fail(domain.ErrZoneRestarted)
			}
			a.restart()
		}
	}()
	if err := a.ensureHydrated(); err != nil {
		if env.fail != nil {
			env.fail(err)
		}
		return
	}
	env.run(a)
}

func (a *zoneActor) restart() {
	a.timers.stopAll()
	a.reset()
	a.rehydrateWithRetry()
}

// background returns the context for actor-initiated work such as timer transitions.
func (a *zoneActor) background() context.Context {
	return logger.WithAttrs(context.Background(), logger.AttrKeyZone, a.zone.String())
}

func (a *zoneActor) notify(ctx context.Context, n domain.Notification) {
	if a.o.notifier != nil {
		a.o.notifier.Notify(ctx, n)
	}
}

func (a *zoneActor) audience() domain.Audience {
	return domain.Audience{Zone: a.zone}
}

func (a *zoneActor) audienceFor(participantID string) domain.Audience {
	return domain.Audience{Zone: a.zone, Recipient: participantID}
}

// lookup returns the in-memory state of an instance. Instances that already left memory
// are read from the store and returned detached, so callers only see their final state.
func (a *zoneActor) lookup(ctx context.Context, id uuid.UUID) (*instanceState, error) {
	if st, ok := a.instances[id]; ok {
		return st, nil
	}
	inst, err := a.o.store.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	def, err := a.o.catalog.GetEvent(inst.EventID)
	if err != nil {
		return nil, err
	}
	return newInstanceState(inst, def), nil
}

// activeInstances returns the active instances ordered by creation time.
func (a *zoneActor) activeInstances() []*instanceState {
	var out []*instanceState
	for _, st := range a.instances {
		if st.inst.State == domain.StateActive {
			out = append(out, st)
		}
	}
	slices.SortFunc(out, func(x, y *instanceState) int {
		if c := x.inst.CreatedAt.Compare(y.inst.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(x.inst.ID.String(), y.inst.ID.String())
	})
	return out
}
