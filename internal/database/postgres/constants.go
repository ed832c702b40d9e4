package postgres

// Error Messages - Transaction Operations
const (
	ErrMsgFailedToBeginTransaction  = "failed to begin transaction"
	ErrMsgFailedToCommitTransaction = "failed to commit transaction"
	LogMsgFailedToRollback          = "Failed to rollback transaction"
)

// Instance queries
const (
	sqlInsertInstance = `
		INSERT INTO event_instances (
			id, event_id, zone_id, zone_instance_id, state, phase_index, wave_state, progress,
			participant_count, difficulty, created_at, started_at, ends_at, phase_started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	sqlUpdateInstance = `
		UPDATE event_instances SET
			state = $2, phase_index = $3, wave_state = $4, progress = $5, participant_count = $6,
			difficulty = $7, started_at = $8, ends_at = $9, phase_started_at = $10, completed_at = $11
		WHERE id = $1`

	sqlSelectInstanceColumns = `
		SELECT id, event_id, zone_id, zone_instance_id, state, phase_index, wave_state, progress,
		       participant_count, difficulty, created_at, started_at, ends_at, phase_started_at, completed_at
		FROM event_instances`

	sqlGetInstance = sqlSelectInstanceColumns + ` WHERE id = $1`

	sqlListOpenInstances = sqlSelectInstanceColumns + `
		WHERE zone_id = $1 AND zone_instance_id = $2 AND state IN ('pending', 'active')
		ORDER BY created_at, id`

	sqlListOpenZones = `
		SELECT DISTINCT zone_id, zone_instance_id
		FROM event_instances
		WHERE state IN ('pending', 'active')
		ORDER BY zone_id, zone_instance_id`
)

// Participation queries
const (
	sqlUpsertParticipation = `
		INSERT INTO event_participations (
			instance_id, participant_id, faction, contribution, kills, damage, healing,
			completed_objectives, reward_tier, rewards_claimed, joined_at, last_activity_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (instance_id, participant_id) DO UPDATE SET
			faction = EXCLUDED.faction,
			contribution = GREATEST(event_participations.contribution, EXCLUDED.contribution),
			kills = EXCLUDED.kills,
			damage = EXCLUDED.damage,
			healing = EXCLUDED.healing,
			completed_objectives = EXCLUDED.completed_objectives,
			reward_tier = EXCLUDED.reward_tier,
			rewards_claimed = EXCLUDED.rewards_claimed,
			last_activity_at = EXCLUDED.last_activity_at`

	sqlSelectParticipationColumns = `
		SELECT p.instance_id, p.participant_id, p.faction, p.contribution, p.kills, p.damage, p.healing,
		       p.completed_objectives, p.reward_tier, p.rewards_claimed, p.joined_at, p.last_activity_at
		FROM event_participations p`

	sqlListParticipations = sqlSelectParticipationColumns + `
		WHERE p.instance_id = $1
		ORDER BY p.contribution DESC, p.participant_id`

	sqlGetParticipation = sqlSelectParticipationColumns + `
		WHERE p.instance_id = $1 AND p.participant_id = $2`

	sqlListUnclaimedRewards = sqlSelectParticipationColumns + `
		JOIN event_instances i ON i.id = p.instance_id
		WHERE i.zone_id = $1 AND i.zone_instance_id = $2
		  AND p.reward_tier IS NOT NULL AND p.rewards_claimed = FALSE
		ORDER BY i.completed_at, p.participant_id`

	sqlMarkRewardClaimed = `
		UPDATE event_participations SET rewards_claimed = TRUE
		WHERE instance_id = $1 AND participant_id = $2`
)

// Completion history queries
const (
	sqlUpsertHistory = `
		INSERT INTO event_completion_history (
			participant_id, event_id, completion_count, gold_count, silver_count, bronze_count,
			participation_count, best_contribution, fastest_completion_ms, last_completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (participant_id, event_id) DO UPDATE SET
			completion_count = EXCLUDED.completion_count,
			gold_count = EXCLUDED.gold_count,
			silver_count = EXCLUDED.silver_count,
			bronze_count = EXCLUDED.bronze_count,
			participation_count = EXCLUDED.participation_count,
			best_contribution = EXCLUDED.best_contribution,
			fastest_completion_ms = EXCLUDED.fastest_completion_ms,
			last_completed_at = EXCLUDED.last_completed_at`

	sqlGetHistory = `
		SELECT participant_id, event_id, completion_count, gold_count, silver_count, bronze_count,
		       participation_count, best_contribution, fastest_completion_ms, last_completed_at
		FROM event_completion_history
		WHERE participant_id = $1 AND event_id = $2`
)

// Schedule queries
const (
	sqlSelectScheduleColumns = `
		SELECT event_id, zone_id, zone_instance_id, enabled, trigger_type, trigger_config,
		       last_triggered_at, next_trigger_at
		FROM event_schedules`

	sqlListSchedules = sqlSelectScheduleColumns + ` ORDER BY event_id, zone_id`

	sqlGetSchedule = sqlSelectScheduleColumns + ` WHERE event_id = $1 AND zone_id = $2`

	sqlInsertSchedule = `
		INSERT INTO event_schedules (
			event_id, zone_id, zone_instance_id, enabled, trigger_type, trigger_config,
			last_triggered_at, next_trigger_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	sqlUpsertSchedule = sqlInsertSchedule + `
		ON CONFLICT (event_id, zone_id) DO UPDATE SET
			zone_instance_id = EXCLUDED.zone_instance_id,
			enabled = EXCLUDED.enabled,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			last_triggered_at = EXCLUDED.last_triggered_at,
			next_trigger_at = EXCLUDED.next_trigger_at`

	sqlInsertScheduleIfAbsent = sqlInsertSchedule + ` ON CONFLICT (event_id, zone_id) DO NOTHING`

	sqlUpdateScheduleTrigger = `
		UPDATE event_schedules SET last_triggered_at = $3, next_trigger_at = $4
		WHERE event_id = $1 AND zone_id = $2`
)

// World boss queries
const (
	sqlSelectBossColumns = `
		SELECT boss_id, zone_id, zone_instance_id, state, window_start, window_end, spawned_at,
		       engaged_at, killed_at, next_spawn_after, max_health, current_health, boss_phase,
		       enraged, entity_handles, linked_instance, kill_fact_id
		FROM world_boss_spawns`

	sqlGetBossSpawn = sqlSelectBossColumns + ` WHERE boss_id = $1`

	sqlListBossSpawns = sqlSelectBossColumns + ` ORDER BY boss_id`

	sqlUpsertBossSpawn = `
		INSERT INTO world_boss_spawns (
			boss_id, zone_id, zone_instance_id, state, window_start, window_end, spawned_at,
			engaged_at, killed_at, next_spawn_after, max_health, current_health, boss_phase,
			enraged, entity_handles, linked_instance, kill_fact_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (boss_id) DO UPDATE SET
			zone_id = EXCLUDED.zone_id,
			zone_instance_id = EXCLUDED.zone_instance_id,
			state = EXCLUDED.state,
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			spawned_at = EXCLUDED.spawned_at,
			engaged_at = EXCLUDED.engaged_at,
			killed_at = EXCLUDED.killed_at,
			next_spawn_after = EXCLUDED.next_spawn_after,
			max_health = EXCLUDED.max_health,
			current_health = EXCLUDED.current_health,
			boss_phase = EXCLUDED.boss_phase,
			enraged = EXCLUDED.enraged,
			entity_handles = EXCLUDED.entity_handles,
			linked_instance = EXCLUDED.linked_instance,
			kill_fact_id = EXCLUDED.kill_fact_id`
)
