package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Notification = EventStarted{}
	_ Notification = EventObjectiveUpdate{}
	_ Notification = EventPhaseChanged{}
	_ Notification = EventWaveUpdate{}
	_ Notification = EventCompleted{}
	_ Notification = ContributionUpdate{}
	_ Notification = WorldBossSpawned{}
	_ Notification = WorldBossPhaseChanged{}
	_ Notification = WorldBossKilled{}
	_ Notification = WorldBossDespawned{}
)

func TestEventObjectiveUpdate_Target(t *testing.T) {
	zone := ZoneKey{ZoneID: 1, InstanceID: 2}
	var n Notification = EventObjectiveUpdate{
		Audience:       Audience{Zone: zone},
		ObjectiveIndex: 1,
		Current:        3,
		TargetCount:    10,
	}

	assert.Equal(t, Audience{Zone: zone}, n.Target())
	assert.Equal(t, NotifyEventObjectiveUpdate, n.NotificationType())

	raw, err := json.Marshal(n)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.EqualValues(t, 10, decoded["target"])
	assert.EqualValues(t, 3, decoded["current"])
}
