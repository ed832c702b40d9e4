package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

func TestWavesAdvanceOnKillThreshold(t *testing.T) {
	h := newHarness(t, Config{})
	inst := h.start(t, eventWaves)

	assert.Equal(t, domain.WaveState{Number: 1, Total: 2, Spawned: 4, StartedAt: &baseTime}, inst.Wave)
	reqs := h.spawner.spawnRequests()
	require.Len(t, reqs, 1)
	assert.Len(t, reqs[0].CreatureIDs, 4)
	assert.Equal(t, "camp", reqs[0].Group)
	assert.Len(t, reqs[0].SpawnPoints, 1)
	require.NotNil(t, reqs[0].InstanceID)
	assert.Equal(t, inst.ID, *reqs[0].InstanceID)

	h.kill(t, "p1", goblinID)
	assert.Equal(t, 1, h.get(t, inst.ID).Wave.Killed)

	// Half of four is enough to release the next wave.
	h.kill(t, "p2", goblinID)
	got := h.get(t, inst.ID)
	assert.Equal(t, 2, got.Wave.Number)
	assert.Equal(t, 2, got.Wave.Spawned)
	assert.Equal(t, 0, got.Wave.Killed)
	require.Len(t, h.spawner.spawnRequests(), 2)

	waves := notificationsOf[domain.EventWaveUpdate](h.notes)
	require.Len(t, waves, 2)
	assert.Equal(t, 3, waves[0].EnemiesRemaining)
	assert.Equal(t, 2, waves[1].WaveNumber)
	assert.Equal(t, 2, waves[1].EnemiesRemaining)

	for range 4 {
		h.kill(t, "p1", goblinID)
	}
	got = h.get(t, inst.ID)
	assert.Equal(t, domain.StateCompleted, got.State)
	assert.Equal(t, 2, got.Wave.Number, "last wave never advances")
	assert.Equal(t, 2, got.ParticipantCount)
}

func TestWaveKillsNeeded(t *testing.T) {
	tests := []struct {
		spawned   int
		threshold float64
		want      int
	}{
		{spawned: 4, threshold: 0.5, want: 2},
		{spawned: 5, threshold: 0.5, want: 3},
		{spawned: 3, threshold: 1, want: 3},
		{spawned: 10, threshold: 0.01, want: 1},
	}
	for _, tt := range tests {
		got := waveKillsNeeded(domain.WaveState{Spawned: tt.spawned}, domain.Wave{Threshold: tt.threshold})
		assert.Equal(t, tt.want, got)
	}
}
