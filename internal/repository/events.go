package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

// InstanceStore defines data access for event instances, participations and completion history.
type InstanceStore interface {
	CreateInstance(ctx context.Context, inst *domain.Instance) error
	GetInstance(ctx context.Context, id uuid.UUID) (*domain.Instance, error)
	// ListOpenInstances returns the pending and active instances of a zone instance.
	ListOpenInstances(ctx context.Context, zone domain.ZoneKey) ([]*domain.Instance, error)
	// ListOpenZones returns every zone instance holding a pending or active instance.
	ListOpenZones(ctx context.Context) ([]domain.ZoneKey, error)

	// SaveInstance writes the instance row and the given participation rows in one transaction.
	SaveInstance(ctx context.Context, inst *domain.Instance, parts []*domain.Participation) error
	// FinalizeInstance writes the terminal instance, its tiered participations and the
	// updated completion histories in one transaction.
	FinalizeInstance(ctx context.Context, inst *domain.Instance, parts []*domain.Participation, histories []*domain.CompletionHistory) error

	ListParticipations(ctx context.Context, instanceID uuid.UUID) ([]*domain.Participation, error)
	GetParticipation(ctx context.Context, instanceID uuid.UUID, participantID string) (*domain.Participation, error)
	// ListUnclaimedRewards returns tiered participations of a zone whose grant never succeeded.
	ListUnclaimedRewards(ctx context.Context, zone domain.ZoneKey) ([]*domain.Participation, error)
	MarkRewardClaimed(ctx context.Context, instanceID uuid.UUID, participantID string) error

	GetCompletionHistory(ctx context.Context, participantID string, eventID uint32) (*domain.CompletionHistory, error)
}

// ScheduleStore defines data access for trigger schedules.
type ScheduleStore interface {
	ListSchedules(ctx context.Context) ([]*domain.Schedule, error)
	GetSchedule(ctx context.Context, eventID, zoneID uint32) (*domain.Schedule, error)
	UpsertSchedule(ctx context.Context, s *domain.Schedule) error
	// InsertScheduleIfAbsent seeds a schedule without touching an existing row.
	InsertScheduleIfAbsent(ctx context.Context, s *domain.Schedule) error
	UpdateScheduleTrigger(ctx context.Context, eventID, zoneID uint32, last, next *time.Time) error
}

// BossStore defines data access for world boss spawn rows.
type BossStore interface {
	GetBossSpawn(ctx context.Context, bossID uint32) (*domain.BossSpawn, error)
	ListBossSpawns(ctx context.Context) ([]*domain.BossSpawn, error)
	SaveBossSpawn(ctx context.Context, b *domain.BossSpawn) error
}

// EventStore is the full persistence surface used by the orchestrator and scheduler.
type EventStore interface {
	InstanceStore
	ScheduleStore
	BossStore
	Ping(ctx context.Context) error
}
