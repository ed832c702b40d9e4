package collab

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/logger"
)

type spawnResponse struct {
	Handles []string `json:"handles"`
}

type despawnRequest struct {
	Zone    domain.ZoneKey `json:"zone"`
	Handles []string       `json:"handles"`
}

// HTTPSpawner asks the world server's spawner endpoint to place creatures.
type HTTPSpawner struct {
	c client
}

// NewHTTPSpawner creates a spawner for baseURL.
func NewHTTPSpawner(baseURL string) *HTTPSpawner {
	return &HTTPSpawner{c: newClient(baseURL)}
}

// Spawn places the requested creatures and returns their handles.
func (s *HTTPSpawner) Spawn(ctx context.Context, req domain.SpawnRequest) ([]string, error) {
	var resp spawnResponse
	if err := s.c.post(ctx, PathSpawn, req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSpawnFailed, err)
	}
	logger.FromContext(ctx).Debug(LogMsgSpawnRequested,
		"zone", req.Zone.String(),
		"creatures", len(req.CreatureIDs),
		"handles", len(resp.Handles))
	return resp.Handles, nil
}

// Despawn removes previously spawned creatures.
func (s *HTTPSpawner) Despawn(ctx context.Context, zone domain.ZoneKey, handles []string) error {
	if len(handles) == 0 {
		return nil
	}
	if err := s.c.post(ctx, PathDespawn, despawnRequest{Zone: zone, Handles: handles}, nil); err != nil {
		return fmt.Errorf("%w: despawn: %v", domain.ErrSpawnFailed, err)
	}
	logger.FromContext(ctx).Debug(LogMsgDespawnRequested, "zone", zone.String(), "handles", len(handles))
	return nil
}

// LogSpawner stands in for the spawner when none is configured. It logs each request
// and hands out local handles.
type LogSpawner struct {
	next atomic.Uint64
}

// Spawn logs the request and returns one handle per creature.
func (s *LogSpawner) Spawn(ctx context.Context, req domain.SpawnRequest) ([]string, error) {
	handles := make([]string, 0, len(req.CreatureIDs))
	for range req.CreatureIDs {
		handles = append(handles, fmt.Sprintf("local-%d", s.next.Add(1)))
	}
	logger.FromContext(ctx).Info(LogMsgSpawnRequested,
		"zone", req.Zone.String(),
		"group", req.Group,
		"creatures", req.CreatureIDs,
		"difficulty", req.Difficulty,
		"boss_id", req.BossID)
	return handles, nil
}

// Despawn logs the request.
func (s *LogSpawner) Despawn(ctx context.Context, zone domain.ZoneKey, handles []string) error {
	logger.FromContext(ctx).Info(LogMsgDespawnRequested, "zone", zone.String(), "handles", handles)
	return nil
}
