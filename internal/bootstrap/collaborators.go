package bootstrap

import (
	"log/slog"

	"github.com/osse101/WorldEvents_Go/internal/collab"
	"github.com/osse101/WorldEvents_Go/internal/config"
	"github.com/osse101/WorldEvents_Go/internal/orchestrator"
	"github.com/osse101/WorldEvents_Go/internal/reward"
)

// InitializeCollaborators picks the HTTP spawner and loot adapters when their URLs are
// configured and log-only stand-ins otherwise.
func InitializeCollaborators(cfg *config.Config) (orchestrator.Spawner, reward.Granter) {
	var spawner orchestrator.Spawner = &collab.LogSpawner{}
	spawnerMode := CollaboratorModeLogOnly
	if cfg.SpawnerURL != "" {
		spawner = collab.NewHTTPSpawner(cfg.SpawnerURL)
		spawnerMode = CollaboratorModeHTTP
	}
	slog.Info(LogMsgSpawnerConfigured, "mode", spawnerMode, "url", cfg.SpawnerURL)

	var granter reward.Granter = collab.LogGranter{}
	granterMode := CollaboratorModeLogOnly
	if cfg.LootURL != "" {
		granter = collab.NewHTTPGranter(cfg.LootURL)
		granterMode = CollaboratorModeHTTP
	}
	slog.Info(LogMsgGranterConfigured, "mode", granterMode, "url", cfg.LootURL)

	return spawner, granter
}
