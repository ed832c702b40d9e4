package sqlite

const (
	sqlInsertInstance = `
		INSERT INTO event_instances (
			id, event_id, zone_id, zone_instance_id, state, phase_index, wave_state, progress,
			participant_count, difficulty, created_at, started_at, ends_at, phase_started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlUpdateInstance = `
		UPDATE event_instances SET
			state = ?, phase_index = ?, wave_state = ?, progress = ?, participant_count = ?,
			difficulty = ?, started_at = ?, ends_at = ?, phase_started_at = ?, completed_at = ?
		WHERE id = ?`

	sqlSelectInstanceColumns = `
		SELECT id, event_id, zone_id, zone_instance_id, state, phase_index, wave_state, progress,
		       participant_count, difficulty, created_at, started_at, ends_at, phase_started_at, completed_at
		FROM event_instances`

	sqlGetInstance = sqlSelectInstanceColumns + ` WHERE id = ?`

	sqlListOpenInstances = sqlSelectInstanceColumns + `
		WHERE zone_id = ? AND zone_instance_id = ? AND state IN ('pending', 'active')
		ORDER BY created_at, id`

	sqlListOpenZones = `
		SELECT DISTINCT zone_id, zone_instance_id
		FROM event_instances
		WHERE state IN ('pending', 'active')
		ORDER BY zone_id, zone_instance_id`

	sqlUpsertParticipation = `
		INSERT INTO event_participations (
			instance_id, participant_id, faction, contribution, kills, damage, healing,
			completed_objectives, reward_tier, rewards_claimed, joined_at, last_activity_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (instance_id, participant_id) DO UPDATE SET
			faction = excluded.faction,
			contribution = MAX(event_participations.contribution, excluded.contribution),
			kills = excluded.kills,
			damage = excluded.damage,
			healing = excluded.healing,
			completed_objectives = excluded.completed_objectives,
			reward_tier = excluded.reward_tier,
			rewards_claimed = excluded.rewards_claimed,
			last_activity_at = excluded.last_activity_at`

	sqlSelectParticipationColumns = `
		SELECT p.instance_id, p.participant_id, p.faction, p.contribution, p.kills, p.damage, p.healing,
		       p.completed_objectives, p.reward_tier, p.rewards_claimed, p.joined_at, p.last_activity_at
		FROM event_participations p`

	sqlListParticipations = sqlSelectParticipationColumns + `
		WHERE p.instance_id = ?
		ORDER BY p.contribution DESC, p.participant_id`

	sqlGetParticipation = sqlSelectParticipationColumns + `
		WHERE p.instance_id = ? AND p.participant_id = ?`

	sqlListUnclaimedRewards = sqlSelectParticipationColumns + `
		JOIN event_instances i ON i.id = p.instance_id
		WHERE i.zone_id = ? AND i.zone_instance_id = ?
		  AND p.reward_tier IS NOT NULL AND p.rewards_claimed = 0
		ORDER BY i.completed_at, p.participant_id`

	sqlMarkRewardClaimed = `
		UPDATE event_participations SET rewards_claimed = 1
		WHERE instance_id = ? AND participant_id = ?`

	sqlUpsertHistory = `
		INSERT INTO event_completion_history (
			participant_id, event_id, completion_count, gold_count, silver_count, bronze_count,
			participation_count, best_contribution, fastest_completion_ms, last_completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (participant_id, event_id) DO UPDATE SET
			completion_count = excluded.completion_count,
			gold_count = excluded.gold_count,
			silver_count = excluded.silver_count,
			bronze_count = excluded.bronze_count,
			participation_count = excluded.participation_count,
			best_contribution = excluded.best_contribution,
			fastest_completion_ms = excluded.fastest_completion_ms,
			last_completed_at = excluded.last_completed_at`

	sqlGetHistory = `
		SELECT participant_id, event_id, completion_count, gold_count, silver_count, bronze_count,
		       participation_count, best_contribution, fastest_completion_ms, last_completed_at
		FROM event_completion_history
		WHERE participant_id = ? AND event_id = ?`

	sqlSelectScheduleColumns = `
		SELECT event_id, zone_id, zone_instance_id, enabled, trigger_type, trigger_config,
		       last_triggered_at, next_trigger_at
		FROM event_schedules`

	sqlListSchedules = sqlSelectScheduleColumns + ` ORDER BY event_id, zone_id`

	sqlGetSchedule = sqlSelectScheduleColumns + ` WHERE event_id = ? AND zone_id = ?`

	sqlInsertSchedule = `
		INSERT INTO event_schedules (
			event_id, zone_id, zone_instance_id, enabled, trigger_type, trigger_config,
			last_triggered_at, next_trigger_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	sqlUpsertSchedule = sqlInsertSchedule + `
		ON CONFLICT (event_id, zone_id) DO UPDATE SET
			zone_instance_id = excluded.zone_instance_id,
			enabled = excluded.enabled,
			trigger_type = excluded.trigger_type,
			trigger_config = excluded.trigger_config,
			last_triggered_at = excluded.last_triggered_at,
			next_trigger_at = excluded.next_trigger_at`

	sqlInsertScheduleIfAbsent = sqlInsertSchedule + ` ON CONFLICT (event_id, zone_id) DO NOTHING`

	sqlUpdateScheduleTrigger = `
		UPDATE event_schedules SET last_triggered_at = ?, next_trigger_at = ?
		WHERE event_id = ? AND zone_id = ?`

	sqlSelectBossColumns = `
		SELECT boss_id, zone_id, zone_instance_id, state, window_start, window_end, spawned_at,
		       engaged_at, killed_at, next_spawn_after, max_health, current_health, boss_phase,
		       enraged, entity_handles, linked_instance, kill_fact_id
		FROM world_boss_spawns`

	sqlGetBossSpawn = sqlSelectBossColumns + ` WHERE boss_id = ?`

	sqlListBossSpawns = sqlSelectBossColumns + ` ORDER BY boss_id`

	sqlUpsertBossSpawn = `
		INSERT INTO world_boss_spawns (
			boss_id, zone_id, zone_instance_id, state, window_start, window_end, spawned_at,
			engaged_at, killed_at, next_spawn_after, max_health, current_health, boss_phase,
			enraged, entity_handles, linked_instance, kill_fact_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (boss_id) DO UPDATE SET
			zone_id = excluded.zone_id,
			zone_instance_id = excluded.zone_instance_id,
			state = excluded.state,
			window_start = excluded.window_start,
			window_end = excluded.window_end,
			spawned_at = excluded.spawned_at,
			engaged_at = excluded.engaged_at,
			killed_at = excluded.killed_at,
			next_spawn_after = excluded.next_spawn_after,
			max_health = excluded.max_health,
			current_health = excluded.current_health,
			boss_phase = excluded.boss_phase,
			enraged = excluded.enraged,
			entity_handles = excluded.entity_handles,
			linked_instance = excluded.linked_instance,
			kill_fact_id = excluded.kill_fact_id`
)
