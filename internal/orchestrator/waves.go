package orchestrator

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

// countWaveKill records a kill of a current-wave creature on inst and starts the next
// wave once the kill threshold is reached. It reports whether the wave state changed and
// whether a new wave started.
func countWaveKill(inst *domain.Instance, phase *domain.Phase, f domain.Fact, now time.Time) (changed, advanced bool) {
	if f.Kind != domain.FactKill || inst.Wave.Number == 0 || inst.Wave.Killed >= inst.Wave.Spawned {
		return false, false
	}
	if _, ok := phase.WaveCreatureSet(inst.Wave.Number)[f.TargetID]; !ok {
		return false, false
	}
	inst.Wave.Killed++
	if inst.Wave.Number < inst.Wave.Total && inst.Wave.Killed >= waveKillsNeeded(inst.Wave, phase.Waves[inst.Wave.Number-1]) {
		startNextWave(inst, phase, now)
		return true, true
	}
	return true, false
}

func waveKillsNeeded(state domain.WaveState, wave domain.Wave) int {
	return int(math.Ceil(wave.Threshold * float64(state.Spawned)))
}

func startNextWave(inst *domain.Instance, phase *domain.Phase, now time.Time) {
	n := inst.Wave.Number + 1
	inst.Wave = domain.WaveState{
		Number:    n,
		Total:     inst.Wave.Total,
		Spawned:   len(phase.Waves[n-1].CreatureIDs),
		StartedAt: domain.TimePtr(now),
	}
}

// waveStarted runs the post-commit effects of a new wave.
func (a *zoneActor) waveStarted(ctx context.Context, st *instanceState) {
	a.armWaveTimer(st)
	a.log.Info(LogMsgWaveStarted, "instance", st.inst.ID, "wave", st.inst.Wave.Number, "total", st.inst.Wave.Total)
	a.notifyWave(ctx, st)
	a.spawnWave(ctx, st)
}

func (a *zoneActor) notifyWave(ctx context.Context, st *instanceState) {
	a.notify(ctx, domain.EventWaveUpdate{
		Audience:         a.audience(),
		InstanceID:       st.inst.ID,
		WaveNumber:       st.inst.Wave.Number,
		TotalWaves:       st.inst.Wave.Total,
		EnemiesRemaining: st.inst.Wave.Remaining(),
	})
}

// armWaveTimer arms the interval of the current wave, if it has one and is not the last.
func (a *zoneActor) armWaveTimer(st *instanceState) {
	id := st.inst.ID
	key := instanceTimerKey(id, timerWave)
	a.timers.cancel(key)

	w := st.inst.Wave
	phase := st.phase()
	if phase == nil || w.Number == 0 || w.Number >= w.Total || w.StartedAt == nil {
		return
	}
	interval := phase.Waves[w.Number-1].Interval.Std()
	if interval <= 0 {
		return
	}
	phaseIdx, number := st.inst.PhaseIndex, w.Number
	a.timers.armAt(key, w.StartedAt.Add(interval), func(a *zoneActor) {
		a.onWaveInterval(id, phaseIdx, number)
	})
}

func (a *zoneActor) onWaveInterval(id uuid.UUID, phaseIdx, number int) {
	st, ok := a.instances[id]
	if !ok || st.inst.State != domain.StateActive || st.inst.PhaseIndex != phaseIdx ||
		st.inst.Wave.Number != number || number >= st.inst.Wave.Total {
		return
	}

	ctx := a.background()
	next := st.inst.Clone()
	startNextWave(next, st.phase(), a.o.now())
	if err := a.o.store.SaveInstance(ctx, next, nil); err != nil {
		a.log.Warn(LogMsgTimerTransitionFailed, "instance", id, "error", err)
		a.timers.arm(instanceTimerKey(id, timerRetry), PersistRetryDelay, func(a *zoneActor) {
			a.onWaveInterval(id, phaseIdx, number)
		})
		return
	}
	st.inst = next
	a.waveStarted(ctx, st)
}

// spawnWave asks the spawner for the creatures of the current wave. Failures are logged;
// the wave still counts as started.
func (a *zoneActor) spawnWave(ctx context.Context, st *instanceState) {
	phase := st.phase()
	w := st.inst.Wave
	if phase == nil || w.Number == 0 || w.Number > len(phase.Waves) {
		return
	}
	id := st.inst.ID
	_, err := a.spawn(ctx, domain.SpawnRequest{
		Zone:        a.zone,
		Group:       st.def.SpawnGroup,
		CreatureIDs: phase.Waves[w.Number-1].CreatureIDs,
		Difficulty:  st.inst.Difficulty,
		SpawnPoints: a.o.catalog.GetSpawnPoints(a.zone.ZoneID, st.def.SpawnGroup),
		InstanceID:  &id,
	})
	if err != nil {
		a.log.Warn(LogMsgSpawnFailed, "instance", id, "wave", w.Number, "error", err)
	}
}

// spawn calls the spawner with a bounded deadline. A missing spawner spawns nothing.
func (a *zoneActor) spawn(ctx context.Context, req domain.SpawnRequest) ([]string, error) {
	if a.o.spawner == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, CollaboratorTimeout)
	defer cancel()
	return a.o.spawner.Spawn(ctx, req)
}

func (a *zoneActor) despawn(ctx context.Context, handles []string) {
	if a.o.spawner == nil || len(handles) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, CollaboratorTimeout)
	defer cancel()
	if err := a.o.spawner.Despawn(ctx, a.zone, handles); err != nil {
		a.log.Warn(LogMsgDespawnFailed, "handles", len(handles), "error", err)
	}
}
