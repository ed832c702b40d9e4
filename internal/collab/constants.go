package collab

import "time"

// HTTP client settings
const (
	DefaultTimeout = 5 * time.Second
)

// Collaborator endpoint paths, relative to the configured base URL
const (
	PathSpawn   = "/spawn"
	PathDespawn = "/despawn"
	PathGrant   = "/grants"
)

// Log messages
const (
	LogMsgSpawnRequested    = "Spawn requested"
	LogMsgDespawnRequested  = "Despawn requested"
	LogMsgRewardLogged      = "Reward grant (no loot service configured)"
	LogMsgCollaboratorError = "Collaborator request failed"
)

// Error messages
const (
	ErrMsgUnexpectedStatus = "unexpected status %d from %s"
)
