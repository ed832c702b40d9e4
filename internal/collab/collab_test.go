package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

var zone = domain.ZoneKey{ZoneID: 7, InstanceID: 1}

func TestHTTPSpawner_Spawn(t *testing.T) {
	var got domain.SpawnRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathSpawn, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(spawnResponse{Handles: []string{"c1", "c2"}})
	}))
	defer srv.Close()

	s := NewHTTPSpawner(srv.URL + "/")
	handles, err := s.Spawn(context.Background(), domain.SpawnRequest{
		Zone:        zone,
		CreatureIDs: []uint32{100, 101},
		Difficulty:  1.5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, handles)
	assert.Equal(t, zone, got.Zone)
	assert.Equal(t, 1.5, got.Difficulty)
}

func TestHTTPSpawner_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPSpawner(srv.URL).Spawn(context.Background(), domain.SpawnRequest{Zone: zone})
	assert.ErrorIs(t, err, domain.ErrSpawnFailed)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPSpawner_Despawn(t *testing.T) {
	var got despawnRequest
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, PathDespawn, r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewHTTPSpawner(srv.URL)
	require.NoError(t, s.Despawn(context.Background(), zone, nil))
	assert.Equal(t, 0, calls, "nothing to despawn skips the call")

	require.NoError(t, s.Despawn(context.Background(), zone, []string{"c1"}))
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"c1"}, got.Handles)
}

func TestHTTPGranter_Grant(t *testing.T) {
	var got domain.RewardGrant
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathGrant, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	grant := domain.RewardGrant{
		InstanceID:    uuid.New(),
		ParticipantID: "alice",
		Tier:          domain.TierSilver,
		Reward:        domain.RewardDescriptor{Currency: 250},
	}
	require.NoError(t, NewHTTPGranter(srv.URL).Grant(context.Background(), grant))
	assert.Equal(t, grant.InstanceID, got.InstanceID)
	assert.Equal(t, int64(250), got.Reward.Currency)
}

func TestHTTPGranter_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	err := NewHTTPGranter(srv.URL).Grant(context.Background(), domain.RewardGrant{})
	assert.Error(t, err)
}

func TestLogFallbacks(t *testing.T) {
	s := &LogSpawner{}
	handles, err := s.Spawn(context.Background(), domain.SpawnRequest{Zone: zone, CreatureIDs: []uint32{1, 2, 3}})
	require.NoError(t, err)
	assert.Len(t, handles, 3)
	assert.NotEqual(t, handles[0], handles[1])
	assert.NoError(t, s.Despawn(context.Background(), zone, handles))

	assert.NoError(t, LogGranter{}.Grant(context.Background(), domain.RewardGrant{ParticipantID: "bob"}))
}
