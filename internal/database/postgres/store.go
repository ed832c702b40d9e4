// Package postgres implements the event store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/logger"
	"github.com/osse101/WorldEvents_Go/internal/repository"
)

// Store implements repository.EventStore for PostgreSQL
type Store struct {
	db *pgxpool.Pool
}

var _ repository.EventStore = (*Store)(nil)

// NewStore creates a new Store over an open pool
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// SafeRollback rolls back a transaction and logs any error that isn't ErrTxClosed
func SafeRollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logger.FromContext(ctx).Error(LogMsgFailedToRollback, "error", err)
	}
}

// withTx runs fn inside a transaction and commits when it returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, err)
	}
	defer SafeRollback(ctx, tx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToCommitTransaction, err)
	}
	return nil
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func wrapDBError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrDatabaseError, op, err)
}

// ---- Instances ----

func instanceArgs(inst *domain.Instance) (wave, progress []byte, err error) {
	wave, err = json.Marshal(inst.Wave)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal wave state: %w", err)
	}
	progress, err = json.Marshal(inst.Progress)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal progress: %w", err)
	}
	return wave, progress, nil
}

func (s *Store) CreateInstance(ctx context.Context, inst *domain.Instance) error {
	wave, progress, err := instanceArgs(inst)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, sqlInsertInstance,
		inst.ID, inst.EventID, inst.Zone.ZoneID, inst.Zone.InstanceID, string(inst.State), inst.PhaseIndex,
		wave, progress, inst.ParticipantCount, inst.Difficulty, inst.CreatedAt,
		inst.StartedAt, inst.EndsAt, inst.PhaseStartedAt, inst.CompletedAt)
	if err != nil {
		return wrapDBError("create instance", err)
	}
	return nil
}

func scanInstance(row rowScanner) (*domain.Instance, error) {
	var (
		inst           domain.Instance
		state          string
		wave, progress []byte
	)
	err := row.Scan(&inst.ID, &inst.EventID, &inst.Zone.ZoneID, &inst.Zone.InstanceID, &state, &inst.PhaseIndex,
		&wave, &progress, &inst.ParticipantCount, &inst.Difficulty, &inst.CreatedAt,
		&inst.StartedAt, &inst.EndsAt, &inst.PhaseStartedAt, &inst.CompletedAt)
	if err != nil {
		return nil, err
	}
	inst.State = domain.InstanceState(state)
	if err := json.Unmarshal(wave, &inst.Wave); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wave state: %w", err)
	}
	inst.Progress = map[int]*domain.ObjectiveProgress{}
	if err := json.Unmarshal(progress, &inst.Progress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	inst.CreatedAt = inst.CreatedAt.UTC()
	inst.Wave.StartedAt = utc(inst.Wave.StartedAt)
	inst.StartedAt = utc(inst.StartedAt)
	inst.EndsAt = utc(inst.EndsAt)
	inst.PhaseStartedAt = utc(inst.PhaseStartedAt)
	inst.CompletedAt = utc(inst.CompletedAt)
	return &inst, nil
}

func (s *Store) GetInstance(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	inst, err := scanInstance(s.db.QueryRow(ctx, sqlGetInstance, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInstanceNotFound, id)
		}
		return nil, wrapDBError("get instance", err)
	}
	return inst, nil
}

func (s *Store) ListOpenInstances(ctx context.Context, zone domain.ZoneKey) ([]*domain.Instance, error) {
	rows, err := s.db.Query(ctx, sqlListOpenInstances, zone.ZoneID, zone.InstanceID)
	if err != nil {
		return nil, wrapDBError("list open instances", err)
	}
	defer rows.Close()

	var out []*domain.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, wrapDBError("scan instance", err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (s *Store) ListOpenZones(ctx context.Context) ([]domain.ZoneKey, error) {
	rows, err := s.db.Query(ctx, sqlListOpenZones)
	if err != nil {
		return nil, wrapDBError("list open zones", err)
	}
	defer rows.Close()

	var zones []domain.ZoneKey
	for rows.Next() {
		var z domain.ZoneKey
		if err := rows.Scan(&z.ZoneID, &z.InstanceID); err != nil {
			return nil, wrapDBError("scan zone", err)
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

func updateInstance(ctx context.Context, tx pgx.Tx, inst *domain.Instance) error {
	wave, progress, err := instanceArgs(inst)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, sqlUpdateInstance,
		inst.ID, string(inst.State), inst.PhaseIndex, wave, progress, inst.ParticipantCount, inst.Difficulty,
		inst.StartedAt, inst.EndsAt, inst.PhaseStartedAt, inst.CompletedAt)
	if err != nil {
		return wrapDBError("update instance", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrInstanceNotFound, inst.ID)
	}
	return nil
}

func upsertParticipation(ctx context.Context, tx pgx.Tx, p *domain.Participation) error {
	objectives, err := json.Marshal(p.CompletedObjectives)
	if err != nil {
		return fmt.Errorf("failed to marshal completed objectives: %w", err)
	}
	var tier *string
	if p.RewardTier != nil {
		t := string(*p.RewardTier)
		tier = &t
	}
	_, err = tx.Exec(ctx, sqlUpsertParticipation,
		p.InstanceID, p.ParticipantID, p.Faction, p.Contribution, p.Kills, p.Damage, p.Healing,
		objectives, tier, p.RewardsClaimed, p.JoinedAt, p.LastActivityAt)
	if err != nil {
		return wrapDBError("save participation", err)
	}
	return nil
}

func (s *Store) SaveInstance(ctx context.Context, inst *domain.Instance, parts []*domain.Participation) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := updateInstance(ctx, tx, inst); err != nil {
			return err
		}
		for _, p := range parts {
			if err := upsertParticipation(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) FinalizeInstance(ctx context.Context, inst *domain.Instance, parts []*domain.Participation, histories []*domain.CompletionHistory) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := updateInstance(ctx, tx, inst); err != nil {
			return err
		}
		for _, p := range parts {
			if err := upsertParticipation(ctx, tx, p); err != nil {
				return err
			}
		}
		for _, h := range histories {
			_, err := tx.Exec(ctx, sqlUpsertHistory,
				h.ParticipantID, h.EventID, h.CompletionCount, h.GoldCount, h.SilverCount, h.BronzeCount,
				h.ParticipationCount, h.BestContribution, h.FastestCompletion.Milliseconds(), h.LastCompletedAt)
			if err != nil {
				return wrapDBError("save completion history", err)
			}
		}
		return nil
	})
}

// ---- Participations ----

func scanParticipation(row rowScanner) (*domain.Participation, error) {
	var (
		p          domain.Participation
		objectives []byte
		tier       *string
	)
	err := row.Scan(&p.InstanceID, &p.ParticipantID, &p.Faction, &p.Contribution, &p.Kills, &p.Damage, &p.Healing,
		&objectives, &tier, &p.RewardsClaimed, &p.JoinedAt, &p.LastActivityAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(objectives, &p.CompletedObjectives); err != nil {
		return nil, fmt.Errorf("failed to unmarshal completed objectives: %w", err)
	}
	if tier != nil {
		t := domain.RewardTier(*tier)
		p.RewardTier = &t
	}
	p.JoinedAt = p.JoinedAt.UTC()
	p.LastActivityAt = p.LastActivityAt.UTC()
	return &p, nil
}

func (s *Store) queryParticipations(ctx context.Context, op, query string, args ...any) ([]*domain.Participation, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(op, err)
	}
	defer rows.Close()

	var out []*domain.Participation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, wrapDBError(op, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListParticipations(ctx context.Context, instanceID uuid.UUID) ([]*domain.Participation, error) {
	return s.queryParticipations(ctx, "list participations", sqlListParticipations, instanceID)
}

func (s *Store) GetParticipation(ctx context.Context, instanceID uuid.UUID, participantID string) (*domain.Participation, error) {
	p, err := scanParticipation(s.db.QueryRow(ctx, sqlGetParticipation, instanceID, participantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s in %s", domain.ErrParticipantNotFound, participantID, instanceID)
		}
		return nil, wrapDBError("get participation", err)
	}
	return p, nil
}

func (s *Store) ListUnclaimedRewards(ctx context.Context, zone domain.ZoneKey) ([]*domain.Participation, error) {
	return s.queryParticipations(ctx, "list unclaimed rewards", sqlListUnclaimedRewards, zone.ZoneID, zone.InstanceID)
}

func (s *Store) MarkRewardClaimed(ctx context.Context, instanceID uuid.UUID, participantID string) error {
	tag, err := s.db.Exec(ctx, sqlMarkRewardClaimed, instanceID, participantID)
	if err != nil {
		return wrapDBError("mark reward claimed", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s in %s", domain.ErrParticipantNotFound, participantID, instanceID)
	}
	return nil
}

func (s *Store) GetCompletionHistory(ctx context.Context, participantID string, eventID uint32) (*domain.CompletionHistory, error) {
	var (
		h         domain.CompletionHistory
		fastestMS int64
	)
	err := s.db.QueryRow(ctx, sqlGetHistory, participantID, eventID).Scan(
		&h.ParticipantID, &h.EventID, &h.CompletionCount, &h.GoldCount, &h.SilverCount, &h.BronzeCount,
		&h.ParticipationCount, &h.BestContribution, &fastestMS, &h.LastCompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%d", domain.ErrHistoryNotFound, participantID, eventID)
		}
		return nil, wrapDBError("get completion history", err)
	}
	h.FastestCompletion = time.Duration(fastestMS) * time.Millisecond
	h.LastCompletedAt = utc(h.LastCompletedAt)
	return &h, nil
}

// ---- Schedules ----

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var (
		sch     domain.Schedule
		typ     string
		rawConf []byte
	)
	err := row.Scan(&sch.EventID, &sch.ZoneID, &sch.InstanceID, &sch.Enabled, &typ, &rawConf,
		&sch.LastTriggeredAt, &sch.NextTriggerAt)
	if err != nil {
		return nil, err
	}
	trigger, err := domain.DecodeTrigger(domain.TriggerType(typ), rawConf)
	if err != nil {
		return nil, err
	}
	sch.Trigger = trigger
	sch.LastTriggeredAt = utc(sch.LastTriggeredAt)
	sch.NextTriggerAt = utc(sch.NextTriggerAt)
	return &sch, nil
}

func (s *Store) ListSchedules(ctx context.Context) ([]*domain.Schedule, error) {
	rows, err := s.db.Query(ctx, sqlListSchedules)
	if err != nil {
		return nil, wrapDBError("list schedules", err)
	}
	defer rows.Close()

	var out []*domain.Schedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, wrapDBError("scan schedule", err)
		}
		out = append(out, sch)
	}
	return out, rows.Err()
}

func (s *Store) GetSchedule(ctx context.Context, eventID, zoneID uint32) (*domain.Schedule, error) {
	sch, err := scanSchedule(s.db.QueryRow(ctx, sqlGetSchedule, eventID, zoneID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: event %d zone %d", domain.ErrScheduleNotFound, eventID, zoneID)
		}
		return nil, wrapDBError("get schedule", err)
	}
	return sch, nil
}

func (s *Store) writeSchedule(ctx context.Context, query string, sch *domain.Schedule) error {
	typ, raw, err := domain.EncodeTrigger(sch.Trigger)
	if err != nil {
		return fmt.Errorf("failed to encode trigger: %w", err)
	}
	_, err = s.db.Exec(ctx, query, sch.EventID, sch.ZoneID, sch.InstanceID, sch.Enabled, string(typ), raw,
		sch.LastTriggeredAt, sch.NextTriggerAt)
	if err != nil {
		return wrapDBError("save schedule", err)
	}
	return nil
}

func (s *Store) UpsertSchedule(ctx context.Context, sch *domain.Schedule) error {
	return s.writeSchedule(ctx, sqlUpsertSchedule, sch)
}

func (s *Store) InsertScheduleIfAbsent(ctx context.Context, sch *domain.Schedule) error {
	return s.writeSchedule(ctx, sqlInsertScheduleIfAbsent, sch)
}

func (s *Store) UpdateScheduleTrigger(ctx context.Context, eventID, zoneID uint32, last, next *time.Time) error {
	tag, err := s.db.Exec(ctx, sqlUpdateScheduleTrigger, eventID, zoneID, last, next)
	if err != nil {
		return wrapDBError("update schedule trigger", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: event %d zone %d", domain.ErrScheduleNotFound, eventID, zoneID)
	}
	return nil
}

// ---- World bosses ----

func scanBossSpawn(row rowScanner) (*domain.BossSpawn, error) {
	var (
		b       domain.BossSpawn
		state   string
		handles []byte
	)
	err := row.Scan(&b.BossID, &b.Zone.ZoneID, &b.Zone.InstanceID, &state, &b.WindowStart, &b.WindowEnd,
		&b.SpawnedAt, &b.EngagedAt, &b.KilledAt, &b.NextSpawnAfter, &b.MaxHealth, &b.CurrentHealth,
		&b.Phase, &b.Enraged, &handles, &b.LinkedInstance, &b.KillFactID)
	if err != nil {
		return nil, err
	}
	b.State = domain.BossState(state)
	if err := json.Unmarshal(handles, &b.EntityHandles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity handles: %w", err)
	}
	b.WindowStart = utc(b.WindowStart)
	b.WindowEnd = utc(b.WindowEnd)
	b.SpawnedAt = utc(b.SpawnedAt)
	b.EngagedAt = utc(b.EngagedAt)
	b.KilledAt = utc(b.KilledAt)
	b.NextSpawnAfter = utc(b.NextSpawnAfter)
	return &b, nil
}

func (s *Store) GetBossSpawn(ctx context.Context, bossID uint32) (*domain.BossSpawn, error) {
	b, err := scanBossSpawn(s.db.QueryRow(ctx, sqlGetBossSpawn, bossID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", domain.ErrBossNotFound, bossID)
		}
		return nil, wrapDBError("get boss spawn", err)
	}
	return b, nil
}

func (s *Store) ListBossSpawns(ctx context.Context) ([]*domain.BossSpawn, error) {
	rows, err := s.db.Query(ctx, sqlListBossSpawns)
	if err != nil {
		return nil, wrapDBError("list boss spawns", err)
	}
	defer rows.Close()

	var out []*domain.BossSpawn
	for rows.Next() {
		b, err := scanBossSpawn(rows)
		if err != nil {
			return nil, wrapDBError("scan boss spawn", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) SaveBossSpawn(ctx context.Context, b *domain.BossSpawn) error {
	handles, err := json.Marshal(b.EntityHandles)
	if err != nil {
		return fmt.Errorf("failed to marshal entity handles: %w", err)
	}
	if b.EntityHandles == nil {
		handles = []byte("[]")
	}
	_, err = s.db.Exec(ctx, sqlUpsertBossSpawn,
		b.BossID, b.Zone.ZoneID, b.Zone.InstanceID, string(b.State), b.WindowStart, b.WindowEnd, b.SpawnedAt,
		b.EngagedAt, b.KilledAt, b.NextSpawnAfter, b.MaxHealth, b.CurrentHealth, b.Phase,
		b.Enraged, handles, b.LinkedInstance, b.KillFactID)
	if err != nil {
		return wrapDBError("save boss spawn", err)
	}
	return nil
}
