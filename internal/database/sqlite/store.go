// Package sqlite implements the event store on an embedded SQLite database. It backs
// single-node deployments and the store contract tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/logger"
	"github.com/osse101/WorldEvents_Go/internal/repository"
)

// Store implements repository.EventStore over database/sql with the modernc driver.
type Store struct {
	db *sql.DB
}

var _ repository.EventStore = (*Store)(nil)

// NewStore wraps an open, migrated database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func nullableMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

func timeFromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func wrapDBError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrDatabaseError, op, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBError("begin transaction", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logger.FromContext(ctx).Error("Failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapDBError("commit transaction", err)
	}
	return nil
}

// ---- Instances ----

func (s *Store) CreateInstance(ctx context.Context, inst *domain.Instance) error {
	wave, err := json.Marshal(inst.Wave)
	if err != nil {
		return fmt.Errorf("failed to marshal wave state: %w", err)
	}
	progress, err := json.Marshal(inst.Progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	_, err = s.db.ExecContext(ctx, sqlInsertInstance,
		inst.ID.String(), inst.EventID, inst.Zone.ZoneID, inst.Zone.InstanceID, string(inst.State), inst.PhaseIndex,
		string(wave), string(progress), inst.ParticipantCount, inst.Difficulty, toMillis(inst.CreatedAt),
		nullableMillis(inst.StartedAt), nullableMillis(inst.EndsAt), nullableMillis(inst.PhaseStartedAt),
		nullableMillis(inst.CompletedAt))
	if err != nil {
		return wrapDBError("create instance", err)
	}
	return nil
}

func scanInstance(row rowScanner) (*domain.Instance, error) {
	var (
		inst                                     domain.Instance
		id, state, wave, progress                string
		createdAt                                int64
		startedAt, endsAt, phaseStartedAt, endAt sql.NullInt64
	)
	err := row.Scan(&id, &inst.EventID, &inst.Zone.ZoneID, &inst.Zone.InstanceID, &state, &inst.PhaseIndex,
		&wave, &progress, &inst.ParticipantCount, &inst.Difficulty, &createdAt,
		&startedAt, &endsAt, &phaseStartedAt, &endAt)
	if err != nil {
		return nil, err
	}
	if inst.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid instance id %q: %w", id, err)
	}
	inst.State = domain.InstanceState(state)
	if err := json.Unmarshal([]byte(wave), &inst.Wave); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wave state: %w", err)
	}
	inst.Progress = map[int]*domain.ObjectiveProgress{}
	if err := json.Unmarshal([]byte(progress), &inst.Progress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	inst.CreatedAt = fromMillis(createdAt)
	inst.StartedAt = timeFromNull(startedAt)
	inst.EndsAt = timeFromNull(endsAt)
	inst.PhaseStartedAt = timeFromNull(phaseStartedAt)
	inst.CompletedAt = timeFromNull(endAt)
	return &inst, nil
}

func (s *Store) GetInstance(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	inst, err := scanInstance(s.db.QueryRowContext(ctx, sqlGetInstance, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInstanceNotFound, id)
		}
		return nil, wrapDBError("get instance", err)
	}
	return inst, nil
}

func (s *Store) ListOpenInstances(ctx context.Context, zone domain.ZoneKey) ([]*domain.Instance, error) {
	rows, err := s.db.QueryContext(ctx, sqlListOpenInstances, zone.ZoneID, zone.InstanceID)
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
	rows, err := s.db.QueryContext(ctx, sqlListOpenZones)
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

func updateInstance(ctx context.Context, tx *sql.Tx, inst *domain.Instance) error {
	wave, err := json.Marshal(inst.Wave)
	if err != nil {
		return fmt.Errorf("failed to marshal wave state: %w", err)
	}
	progress, err := json.Marshal(inst.Progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	res, err := tx.ExecContext(ctx, sqlUpdateInstance,
		string(inst.State), inst.PhaseIndex, string(wave), string(progress), inst.ParticipantCount, inst.Difficulty,
		nullableMillis(inst.StartedAt), nullableMillis(inst.EndsAt), nullableMillis(inst.PhaseStartedAt),
		nullableMillis(inst.CompletedAt), inst.ID.String())
	if err != nil {
		return wrapDBError("update instance", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrInstanceNotFound, inst.ID)
	}
	return nil
}

func upsertParticipation(ctx context.Context, tx *sql.Tx, p *domain.Participation) error {
	objectives, err := json.Marshal(p.CompletedObjectives)
	if err != nil {
		return fmt.Errorf("failed to marshal completed objectives: %w", err)
	}
	var tier any
	if p.RewardTier != nil {
		tier = string(*p.RewardTier)
	}
	_, err = tx.ExecContext(ctx, sqlUpsertParticipation,
		p.InstanceID.String(), p.ParticipantID, p.Faction, p.Contribution, p.Kills, p.Damage, p.Healing,
		string(objectives), tier, p.RewardsClaimed, toMillis(p.JoinedAt), toMillis(p.LastActivityAt))
	if err != nil {
		return wrapDBError("save participation", err)
	}
	return nil
}

func (s *Store) SaveInstance(ctx context.Context, inst *domain.Instance, parts []*domain.Participation) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
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
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := updateInstance(ctx, tx, inst); err != nil {
			return err
		}
		for _, p := range parts {
			if err := upsertParticipation(ctx, tx, p); err != nil {
				return err
			}
		}
		for _, h := range histories {
			_, err := tx.ExecContext(ctx, sqlUpsertHistory,
				h.ParticipantID, h.EventID, h.CompletionCount, h.GoldCount, h.SilverCount, h.BronzeCount,
				h.ParticipationCount, h.BestContribution, h.FastestCompletion.Milliseconds(),
				nullableMillis(h.LastCompletedAt))
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
		p                    domain.Participation
		instanceID, objs     string
		tier                 sql.NullString
		joinedAt, lastActive int64
	)
	err := row.Scan(&instanceID, &p.ParticipantID, &p.Faction, &p.Contribution, &p.Kills, &p.Damage, &p.Healing,
		&objs, &tier, &p.RewardsClaimed, &joinedAt, &lastActive)
	if err != nil {
		return nil, err
	}
	if p.InstanceID, err = uuid.Parse(instanceID); err != nil {
		return nil, fmt.Errorf("invalid instance id %q: %w", instanceID, err)
	}
	if err := json.Unmarshal([]byte(objs), &p.CompletedObjectives); err != nil {
		return nil, fmt.Errorf("failed to unmarshal completed objectives: %w", err)
	}
	if tier.Valid {
		t := domain.RewardTier(tier.String)
		p.RewardTier = &t
	}
	p.JoinedAt = fromMillis(joinedAt)
	p.LastActivityAt = fromMillis(lastActive)
	return &p, nil
}

func (s *Store) queryParticipations(ctx context.Context, op, query string, args ...any) ([]*domain.Participation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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
	return s.queryParticipations(ctx, "list participations", sqlListParticipations, instanceID.String())
}

func (s *Store) GetParticipation(ctx context.Context, instanceID uuid.UUID, participantID string) (*domain.Participation, error) {
	p, err := scanParticipation(s.db.QueryRowContext(ctx, sqlGetParticipation, instanceID.String(), participantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	res, err := s.db.ExecContext(ctx, sqlMarkRewardClaimed, instanceID.String(), participantID)
	if err != nil {
		return wrapDBError("mark reward claimed", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s in %s", domain.ErrParticipantNotFound, participantID, instanceID)
	}
	return nil
}

func (s *Store) GetCompletionHistory(ctx context.Context, participantID string, eventID uint32) (*domain.CompletionHistory, error) {
	var (
		h         domain.CompletionHistory
		fastestMS int64
		lastAt    sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, sqlGetHistory, participantID, eventID).Scan(
		&h.ParticipantID, &h.EventID, &h.CompletionCount, &h.GoldCount, &h.SilverCount, &h.BronzeCount,
		&h.ParticipationCount, &h.BestContribution, &fastestMS, &lastAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%d", domain.ErrHistoryNotFound, participantID, eventID)
		}
		return nil, wrapDBError("get completion history", err)
	}
	h.FastestCompletion = time.Duration(fastestMS) * time.Millisecond
	h.LastCompletedAt = timeFromNull(lastAt)
	return &h, nil
}

// ---- Schedules ----

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var (
		sch        domain.Schedule
		typ, raw   string
		last, next sql.NullInt64
	)
	err := row.Scan(&sch.EventID, &sch.ZoneID, &sch.InstanceID, &sch.Enabled, &typ, &raw, &last, &next)
	if err != nil {
		return nil, err
	}
	trigger, err := domain.DecodeTrigger(domain.TriggerType(typ), []byte(raw))
	if err != nil {
		return nil, err
	}
	sch.Trigger = trigger
	sch.LastTriggeredAt = timeFromNull(last)
	sch.NextTriggerAt = timeFromNull(next)
	return &sch, nil
}

func (s *Store) ListSchedules(ctx context.Context) ([]*domain.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, sqlListSchedules)
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
	sch, err := scanSchedule(s.db.QueryRowContext(ctx, sqlGetSchedule, eventID, zoneID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	_, err = s.db.ExecContext(ctx, query, sch.EventID, sch.ZoneID, sch.InstanceID, sch.Enabled, string(typ), string(raw),
		nullableMillis(sch.LastTriggeredAt), nullableMillis(sch.NextTriggerAt))
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
	res, err := s.db.ExecContext(ctx, sqlUpdateScheduleTrigger, nullableMillis(last), nullableMillis(next), eventID, zoneID)
	if err != nil {
		return wrapDBError("update schedule trigger", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: event %d zone %d", domain.ErrScheduleNotFound, eventID, zoneID)
	}
	return nil
}

// ---- World bosses ----

func scanBossSpawn(row rowScanner) (*domain.BossSpawn, error) {
	var (
		b                                  domain.BossSpawn
		state, handles                     string
		linked                             sql.NullString
		winStart, winEnd, spawned, engaged sql.NullInt64
		killed, nextSpawn                  sql.NullInt64
	)
	err := row.Scan(&b.BossID, &b.Zone.ZoneID, &b.Zone.InstanceID, &state, &winStart, &winEnd,
		&spawned, &engaged, &killed, &nextSpawn, &b.MaxHealth, &b.CurrentHealth,
		&b.Phase, &b.Enraged, &handles, &linked, &b.KillFactID)
	if err != nil {
		return nil, err
	}
	b.State = domain.BossState(state)
	if err := json.Unmarshal([]byte(handles), &b.EntityHandles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity handles: %w", err)
	}
	if linked.Valid {
		id, err := uuid.Parse(linked.String)
		if err != nil {
			return nil, fmt.Errorf("invalid linked instance %q: %w", linked.String, err)
		}
		b.LinkedInstance = &id
	}
	b.WindowStart = timeFromNull(winStart)
	b.WindowEnd = timeFromNull(winEnd)
	b.SpawnedAt = timeFromNull(spawned)
	b.EngagedAt = timeFromNull(engaged)
	b.KilledAt = timeFromNull(killed)
	b.NextSpawnAfter = timeFromNull(nextSpawn)
	return &b, nil
}

func (s *Store) GetBossSpawn(ctx context.Context, bossID uint32) (*domain.BossSpawn, error) {
	b, err := scanBossSpawn(s.db.QueryRowContext(ctx, sqlGetBossSpawn, bossID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", domain.ErrBossNotFound, bossID)
		}
		return nil, wrapDBError("get boss spawn", err)
	}
	return b, nil
}

func (s *Store) ListBossSpawns(ctx context.Context) ([]*domain.BossSpawn, error) {
	rows, err := s.db.QueryContext(ctx, sqlListBossSpawns)
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
	handles := []byte("[]")
	if len(b.EntityHandles) > 0 {
		var err error
		if handles, err = json.Marshal(b.EntityHandles); err != nil {
			return fmt.Errorf("failed to marshal entity handles: %w", err)
		}
	}
	var linked any
	if b.LinkedInstance != nil {
		linked = b.LinkedInstance.String()
	}
	_, err := s.db.ExecContext(ctx, sqlUpsertBossSpawn,
		b.BossID, b.Zone.ZoneID, b.Zone.InstanceID, string(b.State), nullableMillis(b.WindowStart),
		nullableMillis(b.WindowEnd), nullableMillis(b.SpawnedAt), nullableMillis(b.EngagedAt),
		nullableMillis(b.KilledAt), nullableMillis(b.NextSpawnAfter), b.MaxHealth, b.CurrentHealth, b.Phase,
		b.Enraged, string(handles), linked, b.KillFactID)
	if err != nil {
		return wrapDBError("save boss spawn", err)
	}
	return nil
}
