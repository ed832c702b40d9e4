// Package memstore is an in-memory repository.EventStore for tests. Every read and write
// deep-copies, so callers can never alias stored state.
package memstore

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/repository"
)

type partKey struct {
	instance    uuid.UUID
	participant string
}

type historyKey struct {
	participant string
	event       uint32
}

type scheduleKey struct {
	event uint32
	zone  uint32
}

// Store is a thread-safe in-memory event store.
type Store struct {
	mu        sync.Mutex
	instances map[uuid.UUID]*domain.Instance
	parts     map[partKey]*domain.Participation
	histories map[historyKey]*domain.CompletionHistory
	schedules map[scheduleKey]*domain.Schedule
	bosses    map[uint32]*domain.BossSpawn

	failures map[string]*failure
	writes   int
}

type failure struct {
	err  error
	left int
}

var _ repository.EventStore = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		instances: map[uuid.UUID]*domain.Instance{},
		parts:     map[partKey]*domain.Participation{},
		histories: map[historyKey]*domain.CompletionHistory{},
		schedules: map[scheduleKey]*domain.Schedule{},
		bosses:    map[uint32]*domain.BossSpawn{},
		failures:  map[string]*failure{},
	}
}

// FailNext makes the next call of the named method return err.
func (s *Store) FailNext(method string, err error) {
	s.FailTimes(method, 1, err)
}

// FailTimes makes the next n calls of the named method return err.
func (s *Store) FailTimes(method string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		delete(s.failures, method)
		return
	}
	s.failures[method] = &failure{err: err, left: n}
}

// FailuresLeft reports how many injected failures of the named method remain.
func (s *Store) FailuresLeft(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.failures[method]; ok {
		return f.left
	}
	return 0
}

// Writes returns the number of successful mutating calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Store) fail(method string) error {
	f, ok := s.failures[method]
	if !ok {
		return nil
	}
	f.left--
	if f.left <= 0 {
		delete(s.failures, method)
	}
	return f.err
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CreateInstance(_ context.Context, inst *domain.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateInstance"); err != nil {
		return err
	}
	if _, exists := s.instances[inst.ID]; exists {
		return fmt.Errorf("%w: duplicate instance %s", domain.ErrDatabaseError, inst.ID)
	}
	s.instances[inst.ID] = inst.Clone()
	s.writes++
	return nil
}

func (s *Store) GetInstance(_ context.Context, id uuid.UUID) (*domain.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrInstanceNotFound, id)
	}
	return inst.Clone(), nil
}

func isOpen(state domain.InstanceState) bool {
	return state == domain.StatePending || state == domain.StateActive
}

func (s *Store) ListOpenInstances(_ context.Context, zone domain.ZoneKey) ([]*domain.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListOpenInstances"); err != nil {
		return nil, err
	}
	var out []*domain.Instance
	for _, inst := range s.instances {
		if inst.Zone == zone && isOpen(inst.State) {
			out = append(out, inst.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *domain.Instance) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (s *Store) ListOpenZones(context.Context) ([]domain.ZoneKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zones []domain.ZoneKey
	for _, inst := range s.instances {
		if isOpen(inst.State) && !slices.Contains(zones, inst.Zone) {
			zones = append(zones, inst.Zone)
		}
	}
	slices.SortFunc(zones, func(a, b domain.ZoneKey) int {
		if c := cmp.Compare(a.ZoneID, b.ZoneID); c != 0 {
			return c
		}
		return cmp.Compare(a.InstanceID, b.InstanceID)
	})
	return zones, nil
}

func (s *Store) putParticipation(p *domain.Participation) {
	key := partKey{instance: p.InstanceID, participant: p.ParticipantID}
	c := p.Clone()
	if prev, ok := s.parts[key]; ok && prev.Contribution > c.Contribution {
		c.Contribution = prev.Contribution
	}
	s.parts[key] = c
}

func (s *Store) SaveInstance(_ context.Context, inst *domain.Instance, parts []*domain.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SaveInstance"); err != nil {
		return err
	}
	if _, ok := s.instances[inst.ID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrInstanceNotFound, inst.ID)
	}
	s.instances[inst.ID] = inst.Clone()
	for _, p := range parts {
		s.putParticipation(p)
	}
	s.writes++
	return nil
}

func (s *Store) FinalizeInstance(_ context.Context, inst *domain.Instance, parts []*domain.Participation, histories []*domain.CompletionHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("FinalizeInstance"); err != nil {
		return err
	}
	if _, ok := s.instances[inst.ID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrInstanceNotFound, inst.ID)
	}
	s.instances[inst.ID] = inst.Clone()
	for _, p := range parts {
		s.putParticipation(p)
	}
	for _, h := range histories {
		c := *h
		if h.LastCompletedAt != nil {
			at := *h.LastCompletedAt
			c.LastCompletedAt = &at
		}
		s.histories[historyKey{participant: h.ParticipantID, event: h.EventID}] = &c
	}
	s.writes++
	return nil
}

func sortParticipations(out []*domain.Participation) {
	slices.SortFunc(out, func(a, b *domain.Participation) int {
		if c := cmp.Compare(b.Contribution, a.Contribution); c != 0 {
			return c
		}
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})
}

func (s *Store) ListParticipations(_ context.Context, instanceID uuid.UUID) ([]*domain.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Participation
	for key, p := range s.parts {
		if key.instance == instanceID {
			out = append(out, p.Clone())
		}
	}
	sortParticipations(out)
	return out, nil
}

func (s *Store) GetParticipation(_ context.Context, instanceID uuid.UUID, participantID string) (*domain.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parts[partKey{instance: instanceID, participant: participantID}]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", domain.ErrParticipantNotFound, participantID, instanceID)
	}
	return p.Clone(), nil
}

func (s *Store) ListUnclaimedRewards(_ context.Context, zone domain.ZoneKey) ([]*domain.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Participation
	for key, p := range s.parts {
		inst, ok := s.instances[key.instance]
		if !ok || inst.Zone != zone || p.RewardTier == nil || p.RewardsClaimed {
			continue
		}
		out = append(out, p.Clone())
	}
	slices.SortFunc(out, func(a, b *domain.Participation) int {
		if c := cmp.Compare(a.InstanceID.String(), b.InstanceID.String()); c != 0 {
			return c
		}
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})
	return out, nil
}

func (s *Store) MarkRewardClaimed(_ context.Context, instanceID uuid.UUID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("MarkRewardClaimed"); err != nil {
		return err
	}
	p, ok := s.parts[partKey{instance: instanceID, participant: participantID}]
	if !ok {
		return fmt.Errorf("%w: %s in %s", domain.ErrParticipantNotFound, participantID, instanceID)
	}
	p.RewardsClaimed = true
	s.writes++
	return nil
}

func (s *Store) GetCompletionHistory(_ context.Context, participantID string, eventID uint32) (*domain.CompletionHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[historyKey{participant: participantID, event: eventID}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", domain.ErrHistoryNotFound, participantID, eventID)
	}
	c := *h
	if h.LastCompletedAt != nil {
		at := *h.LastCompletedAt
		c.LastCompletedAt = &at
	}
	return &c, nil
}

func cloneSchedule(sch *domain.Schedule) *domain.Schedule {
	c := *sch
	if sch.LastTriggeredAt != nil {
		t := *sch.LastTriggeredAt
		c.LastTriggeredAt = &t
	}
	if sch.NextTriggerAt != nil {
		t := *sch.NextTriggerAt
		c.NextTriggerAt = &t
	}
	return &c
}

func (s *Store) ListSchedules(context.Context) ([]*domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListSchedules"); err != nil {
		return nil, err
	}
	out := make([]*domain.Schedule, 0, len(s.schedules))
	for _, sch := range s.schedules {
		out = append(out, cloneSchedule(sch))
	}
	slices.SortFunc(out, func(a, b *domain.Schedule) int {
		if c := cmp.Compare(a.EventID, b.EventID); c != 0 {
			return c
		}
		return cmp.Compare(a.ZoneID, b.ZoneID)
	})
	return out, nil
}

func (s *Store) GetSchedule(_ context.Context, eventID, zoneID uint32) (*domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sch, ok := s.schedules[scheduleKey{event: eventID, zone: zoneID}]
	if !ok {
		return nil, fmt.Errorf("%w: event %d zone %d", domain.ErrScheduleNotFound, eventID, zoneID)
	}
	return cloneSchedule(sch), nil
}

func (s *Store) UpsertSchedule(_ context.Context, sch *domain.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sch.Trigger == nil {
		sch.Trigger = domain.ManualTrigger{}
	}
	s.schedules[scheduleKey{event: sch.EventID, zone: sch.ZoneID}] = cloneSchedule(sch)
	s.writes++
	return nil
}

func (s *Store) InsertScheduleIfAbsent(ctx context.Context, sch *domain.Schedule) error {
	s.mu.Lock()
	_, exists := s.schedules[scheduleKey{event: sch.EventID, zone: sch.ZoneID}]
	s.mu.Unlock()
	if exists {
		return nil
	}
	return s.UpsertSchedule(ctx, sch)
}

func (s *Store) UpdateScheduleTrigger(_ context.Context, eventID, zoneID uint32, last, next *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateScheduleTrigger"); err != nil {
		return err
	}
	sch, ok := s.schedules[scheduleKey{event: eventID, zone: zoneID}]
	if !ok {
		return fmt.Errorf("%w: event %d zone %d", domain.ErrScheduleNotFound, eventID, zoneID)
	}
	updated := cloneSchedule(&domain.Schedule{LastTriggeredAt: last, NextTriggerAt: next})
	sch.LastTriggeredAt = updated.LastTriggeredAt
	sch.NextTriggerAt = updated.NextTriggerAt
	s.writes++
	return nil
}

func (s *Store) GetBossSpawn(_ context.Context, bossID uint32) (*domain.BossSpawn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bosses[bossID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrBossNotFound, bossID)
	}
	return b.Clone(), nil
}

func (s *Store) ListBossSpawns(context.Context) ([]*domain.BossSpawn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.BossSpawn, 0, len(s.bosses))
	for _, b := range s.bosses {
		out = append(out, b.Clone())
	}
	slices.SortFunc(out, func(a, b *domain.BossSpawn) int { return cmp.Compare(a.BossID, b.BossID) })
	return out, nil
}

func (s *Store) SaveBossSpawn(_ context.Context, b *domain.BossSpawn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SaveBossSpawn"); err != nil {
		return err
	}
	s.bosses[b.BossID] = b.Clone()
	s.writes++
	return nil
}

type snapshot struct {
	Instances []*domain.Instance          `json:"instances"`
	Parts     []*domain.Participation     `json:"participations"`
	Histories []*domain.CompletionHistory `json:"histories"`
	Schedules []*domain.Schedule          `json:"schedules"`
	Bosses    []*domain.BossSpawn         `json:"bosses"`
}

// Snapshot serializes the full store deterministically, for byte-equality assertions.
func (s *Store) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap snapshot
	for _, inst := range s.instances {
		snap.Instances = append(snap.Instances, inst)
	}
	slices.SortFunc(snap.Instances, func(a, b *domain.Instance) int { return cmp.Compare(a.ID.String(), b.ID.String()) })
	for _, p := range s.parts {
		snap.Parts = append(snap.Parts, p)
	}
	slices.SortFunc(snap.Parts, func(a, b *domain.Participation) int {
		if c := cmp.Compare(a.InstanceID.String(), b.InstanceID.String()); c != 0 {
			return c
		}
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})
	for _, h := range s.histories {
		snap.Histories = append(snap.Histories, h)
	}
	slices.SortFunc(snap.Histories, func(a, b *domain.CompletionHistory) int {
		if c := cmp.Compare(a.ParticipantID, b.ParticipantID); c != 0 {
			return c
		}
		return cmp.Compare(a.EventID, b.EventID)
	})
	for _, sch := range s.schedules {
		snap.Schedules = append(snap.Schedules, sch)
	}
	slices.SortFunc(snap.Schedules, func(a, b *domain.Schedule) int {
		if c := cmp.Compare(a.EventID, b.EventID); c != 0 {
			return c
		}
		return cmp.Compare(a.ZoneID, b.ZoneID)
	})
	for _, b := range s.bosses {
		snap.Bosses = append(snap.Bosses, b)
	}
	slices.SortFunc(snap.Bosses, func(a, b *domain.BossSpawn) int { return cmp.Compare(a.BossID, b.BossID) })

	out, err := json.Marshal(snap)
	if err != nil {
		panic(fmt.Sprintf("memstore snapshot: %v", err))
	}
	return out
}
