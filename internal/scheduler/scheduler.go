// Package scheduler evaluates trigger schedules and world boss windows on a fixed
// interval and asks the orchestrator to start events when a trigger fires.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/logger"
	"github.com/osse101/WorldEvents_Go/internal/metrics"
	"github.com/osse101/WorldEvents_Go/internal/repository"
)

// Orchestrator is the part of the orchestrator the scheduler drives.
type Orchestrator interface {
	CreateAndStart(ctx context.Context, eventID uint32, zone domain.ZoneKey, duration time.Duration) (*domain.Instance, error)
	Population(ctx context.Context, zone domain.ZoneKey) (int, error)
	EvaluateBoss(ctx context.Context, bossID uint32) (*domain.BossSpawn, error)
}

// Catalog lists the definitions that carry schedules and spawn windows.
type Catalog interface {
	Events() []*domain.EventDefinition
	WorldBosses() []*domain.WorldBossDefinition
}

// Config tunes the scheduler.
type Config struct {
	Interval time.Duration
}

// Scheduler owns the periodic evaluation job.
type Scheduler struct {
	interval time.Duration
	store    repository.ScheduleStore
	orch     Orchestrator
	catalog  Catalog
	clock    clockwork.Clock

	mu  sync.Mutex
	rng *rand.Rand
	// streaks holds when each player-count schedule's zone first reached its threshold.
	streaks map[scheduleKey]time.Time

	cron gocron.Scheduler
}

type scheduleKey struct {
	eventID uint32
	zoneID  uint32
}

func keyOf(s *domain.Schedule) scheduleKey {
	return scheduleKey{eventID: s.EventID, zoneID: s.ZoneID}
}

// New creates a scheduler. A nil clock uses the wall clock; a nil rng is seeded randomly.
func New(cfg Config, store repository.ScheduleStore, orch Orchestrator, catalog Catalog, clock clockwork.Clock, rng *rand.Rand) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Scheduler{
		interval: cfg.Interval,
		store:    store,
		orch:     orch,
		catalog:  catalog,
		clock:    clock,
		rng:      rng,
		streaks:  make(map[scheduleKey]time.Time),
	}
}

// Seed inserts the default schedule of every catalog event that has one. Existing rows
// are left alone so admin changes survive restarts.
func (s *Scheduler) Seed(ctx context.Context) {
	log := logger.FromContext(ctx)
	for _, def := range s.catalog.Events() {
		if def.Schedule == nil {
			continue
		}
		row := &domain.Schedule{
			EventID:    def.ID,
			ZoneID:     def.ZoneID,
			InstanceID: def.Schedule.InstanceID,
			Enabled:    def.Schedule.Enabled,
			Trigger:    def.Schedule.Trigger,
		}
		if err := row.Validate(); err != nil {
			log.Error(LogMsgScheduleSeedFailed, "event_id", def.ID, "error", err)
			continue
		}
		if err := s.store.InsertScheduleIfAbsent(ctx, row); err != nil {
			log.Error(LogMsgScheduleSeedFailed, "event_id", def.ID, "error", err)
			continue
		}
		log.Debug(LogMsgScheduleSeeded, "event_id", def.ID, "trigger", row.Trigger.Type())
	}
}

// Start seeds schedules and begins evaluating them every interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.Seed(ctx)

	cron, err := gocron.NewScheduler(gocron.WithClock(s.clock), gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = cron.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.Tick, context.WithoutCancel(ctx)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("trigger-evaluation"),
	)
	if err != nil {
		_ = cron.Shutdown()
		return fmt.Errorf("register evaluation job: %w", err)
	}

	s.cron = cron
	cron.Start()
	logger.FromContext(ctx).Info(LogMsgSchedulerStarted, "interval", s.interval)
	return nil
}

// Stop halts the evaluation job and waits for a running pass to finish.
func (s *Scheduler) Stop() error {
	if s.cron == nil {
		return nil
	}
	err := s.cron.Shutdown()
	logger.Info(LogMsgSchedulerStopped)
	return err
}

// Tick runs one evaluation pass over every schedule row and world boss. A failing row
// is logged and never blocks the others.
func (s *Scheduler) Tick(ctx context.Context) {
	log := logger.FromContext(ctx)

	schedules, err := s.store.ListSchedules(ctx)
	if err != nil {
		log.Error(LogMsgListSchedules, "error", err)
	}
	for _, sch := range schedules {
		s.evaluate(ctx, sch)
	}

	for _, boss := range s.catalog.WorldBosses() {
		if _, err := s.orch.EvaluateBoss(ctx, boss.ID); err != nil {
			log.Error(LogMsgBossEvaluation, "boss_id", boss.ID, "error", err)
		}
	}
}

func (s *Scheduler) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *Scheduler) evaluate(ctx context.Context, sch *domain.Schedule) {
	if !sch.Enabled || sch.Trigger == nil {
		s.clearStreak(sch)
		return
	}
	now := s.now()

	switch t := sch.Trigger.(type) {
	case domain.TimerTrigger:
		if sch.NextTriggerAt == nil {
			next := nextTimerFire(now, t)
			s.updateTimes(ctx, sch, sch.LastTriggeredAt, &next)
			return
		}
		if now.Before(*sch.NextTriggerAt) {
			return
		}
		s.fire(ctx, sch, func(fired bool) *time.Time {
			next := nextTimerFire(now, t)
			return &next
		})

	case domain.RandomWindowTrigger:
		if sch.NextTriggerAt == nil {
			next := s.randomFire(now, sch.LastTriggeredAt, t)
			s.updateTimes(ctx, sch, sch.LastTriggeredAt, &next)
			return
		}
		if now.Before(*sch.NextTriggerAt) {
			return
		}
		s.fire(ctx, sch, func(fired bool) *time.Time {
			last := sch.LastTriggeredAt
			if fired {
				last = &now
			}
			next := s.randomFire(now, last, t)
			return &next
		})

	case domain.PlayerCountTrigger:
		s.evaluatePlayerCount(ctx, sch, t, now)

	case domain.ChainTrigger:
		if !chainDue(now, sch) {
			return
		}
		s.fire(ctx, sch, func(bool) *time.Time { return nil })

	case domain.ManualTrigger:
		// fired through Fire only
	}
}

func (s *Scheduler) evaluatePlayerCount(ctx context.Context, sch *domain.Schedule, t domain.PlayerCountTrigger, now time.Time) {
	pop, err := s.orch.Population(ctx, sch.Zone())
	if err != nil {
		logger.FromContext(ctx).Error(LogMsgPopulationFailed, "zone", sch.Zone().String(), "error", err)
		return
	}
	if pop < t.Threshold {
		s.clearStreak(sch)
		return
	}

	s.mu.Lock()
	since, ok := s.streaks[keyOf(sch)]
	if !ok {
		since = now
		s.streaks[keyOf(sch)] = now
	}
	s.mu.Unlock()

	if !sustained(now, since, t) || !cooledDown(now, sch.LastTriggeredAt, t) {
		return
	}
	s.clearStreak(sch)
	s.fire(ctx, sch, func(bool) *time.Time { return nil })
}

func (s *Scheduler) clearStreak(sch *domain.Schedule) {
	s.mu.Lock()
	delete(s.streaks, keyOf(sch))
	s.mu.Unlock()
}

func (s *Scheduler) randomFire(now time.Time, last *time.Time, t domain.RandomWindowTrigger) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nextRandomWindowFire(now, last, t, s.rng)
}

// fire creates and starts the schedule's event, then stores the fire time and the next
// fire time computed by next. A running instance of the same event counts as a skip:
// the next fire time still advances but the last fire time is kept.
func (s *Scheduler) fire(ctx context.Context, sch *domain.Schedule, next func(fired bool) *time.Time) {
	log := logger.FromContext(ctx).With("event_id", sch.EventID, "zone", sch.Zone().String(), "trigger", sch.Trigger.Type())
	now := s.now()

	inst, err := s.orch.CreateAndStart(ctx, sch.EventID, sch.Zone(), 0)
	switch {
	case errors.Is(err, domain.ErrEventAlreadyRunning):
		log.Info(LogMsgTriggerSkipped)
		s.updateTimes(ctx, sch, sch.LastTriggeredAt, next(false))
	case err != nil:
		metrics.TriggersFired.WithLabelValues(metrics.TriggerFireFailed).Inc()
		log.Error(LogMsgTriggerFailed, "error", err)
	default:
		metrics.TriggersFired.WithLabelValues(string(sch.Trigger.Type())).Inc()
		log.Info(LogMsgTriggerFired, "instance", inst.ID)
		s.updateTimes(ctx, sch, &now, next(true))
	}
}

func (s *Scheduler) updateTimes(ctx context.Context, sch *domain.Schedule, last, next *time.Time) {
	if err := s.store.UpdateScheduleTrigger(ctx, sch.EventID, sch.ZoneID, last, next); err != nil {
		logger.FromContext(ctx).Error(LogMsgScheduleUpdate, "event_id", sch.EventID, "zone_id", sch.ZoneID, "error", err)
		return
	}
	sch.LastTriggeredAt, sch.NextTriggerAt = last, next
}

// Fire starts a schedule's event immediately regardless of its trigger type or enabled
// flag. It is how manual triggers run.
func (s *Scheduler) Fire(ctx context.Context, eventID, zoneID uint32) (*domain.Instance, error) {
	sch, err := s.store.GetSchedule(ctx, eventID, zoneID)
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(); err != nil {
		return nil, err
	}

	inst, err := s.orch.CreateAndStart(ctx, sch.EventID, sch.Zone(), 0)
	if err != nil {
		return nil, err
	}
	metrics.TriggersFired.WithLabelValues(string(domain.TriggerManual)).Inc()

	now := s.now()
	next := sch.NextTriggerAt
	if _, ok := sch.Trigger.(domain.ChainTrigger); ok {
		next = nil
	}
	s.updateTimes(ctx, sch, &now, next)
	return inst, nil
}
