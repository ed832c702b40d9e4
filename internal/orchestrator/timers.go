package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type armedTimer struct {
	timer clockwork.Timer
	gen   uint64
}

// timerSet holds an actor's deferred messages. Each arm gets a fresh generation; a fire
// whose generation is no longer current for its key is dropped, so re-arming or
// cancelling a key always wins over a fire already in flight.
type timerSet struct {
	clock  clockwork.Clock
	post   func(envelope)
	timers map[string]armedTimer
	gen    uint64
}

func newTimerSet(clock clockwork.Clock, post func(envelope)) *timerSet {
	return &timerSet{clock: clock, post: post, timers: make(map[string]armedTimer)}
}

func instanceTimerKey(id uuid.UUID, suffix string) string {
	return fmt.Sprintf("inst:%s:%s", id, suffix)
}

func instanceTimerPrefix(id uuid.UUID) string {
	return fmt.Sprintf("inst:%s:", id)
}

func bossTimerKey(id uint32, suffix string) string {
	return fmt.Sprintf("boss:%d:%s", id, suffix)
}

// arm schedules fn to run inside the actor after d. A non-positive d fires immediately.
func (s *timerSet) arm(key string, d time.Duration, fn func(a *zoneActor)) {
	s.cancel(key)
	s.gen++
	gen := s.gen
	t := s.clock.AfterFunc(max(d, 0), func() {
		s.post(envelope{run: func(a *zoneActor) {
			if !a.timers.claim(key, gen) {
				return
			}
			fn(a)
		}})
	})
	s.timers[key] = armedTimer{timer: t, gen: gen}
}

// armAt schedules fn for an absolute time.
func (s *timerSet) armAt(key string, at time.Time, fn func(a *zoneActor)) {
	s.arm(key, at.Sub(s.clock.Now()), fn)
}

// claim removes the key if gen is still current and reports whether the fire is valid.
func (s *timerSet) claim(key string, gen uint64) bool {
	t, ok := s.timers[key]
	if !ok || t.gen != gen {
		return false
	}
	delete(s.timers, key)
	return true
}

func (s *timerSet) armed(key string) bool {
	_, ok := s.timers[key]
	return ok
}

func (s *timerSet) cancel(key string) {
	if t, ok := s.timers[key]; ok {
		t.timer.Stop()
		delete(s.timers, key)
	}
}

func (s *timerSet) cancelPrefix(prefix string) {
	for key := range s.timers {
		if strings.HasPrefix(key, prefix) {
			s.cancel(key)
		}
	}
}

// stopAll cancels everything. Generations keep counting so stale fires stay invalid.
func (s *timerSet) stopAll() {
	for key := range s.timers {
		s.cancel(key)
	}
}
