package orchestrator

import "time"

// Defaults applied by New when a Config field is left zero.
const (
	DefaultTerritoryTick  = time.Second
	DefaultCompletedGrace = 2 * time.Minute
	DefaultPresenceTTL    = 30 * time.Second
	DefaultMailboxSize    = 256
	DefaultFactDedupeSize = 4096
	DefaultDecayRate      = 1.0
)

const (
	// PersistRetryDelay is how long a timer-driven transition waits before retrying
	// after the store rejected it.
	PersistRetryDelay = 5 * time.Second

	// CollaboratorTimeout bounds spawner calls made from inside an actor turn.
	CollaboratorTimeout = 3 * time.Second

	// RehydrateAttempts bounds store reads when a zone actor restarts.
	RehydrateAttempts = 3
	RehydrateBackoff  = 500 * time.Millisecond

	// HydrationRetryInterval is how often a zone that could not be loaded tries again
	// while no requests arrive.
	HydrationRetryInterval = 5 * time.Second
)

// Timer key suffixes. Keys are "inst:<id>:<suffix>" or "boss:<id>:<suffix>".
const (
	timerEnd       = "end"
	timerPhase     = "phase"
	timerWave      = "wave"
	timerTerritory = "territory"
	timerEvict     = "evict"
	timerWindow    = "window"
	timerEnrage    = "enrage"
	timerCooldown  = "cooldown"
	timerRetry     = "retry"

	hydrationTimerKey = "zone:hydrate"
)

// Despawn reasons reported in WorldBossDespawned.
const (
	DespawnReasonWindowClosed = "window_closed"
)

// Log messages
const (
	LogMsgActorStarted          = "Zone actor started"
	LogMsgActorStopped          = "Zone actor stopped"
	LogMsgActorPanic            = "Zone actor panicked, restarting"
	LogMsgRehydrateFailed       = "Failed to rehydrate zone actor"
	LogMsgRehydrated            = "Zone actor rehydrated"
	LogMsgZoneUnavailable       = "Zone actor still unloaded, rejecting request"
	LogMsgDefinitionMissing     = "Event definition missing for persisted instance, skipping"
	LogMsgInstanceCreated       = "Event instance created"
	LogMsgInstanceStarted       = "Event instance started"
	LogMsgPhaseAdvanced         = "Event phase advanced"
	LogMsgWaveStarted           = "Event wave started"
	LogMsgInstanceFinalized     = "Event instance finalized"
	LogMsgTimerTransitionFailed = "Timer-driven transition failed, retrying"
	LogMsgFactRejected          = "Fact could not be applied"
	LogMsgDuplicateFact         = "Duplicate fact ignored"
	LogMsgSpawnFailed           = "Creature spawn failed"
	LogMsgDespawnFailed         = "Creature despawn failed"
	LogMsgRewardEnqueueFailed   = "Failed to enqueue reward grant"
	LogMsgRewardsRecovered      = "Re-enqueued unclaimed rewards"
	LogMsgHistoryLoadFailed     = "Failed to load completion history"
	LogMsgBossWindowOpened      = "World boss spawn window opened"
	LogMsgBossWindowClosed      = "World boss spawn window closed"
	LogMsgBossSpawned           = "World boss spawned"
	LogMsgBossDespawned         = "World boss despawned"
	LogMsgBossKilled            = "World boss killed"
	LogMsgBossPhaseChanged      = "World boss phase changed"
	LogMsgBossCooldownEnded     = "World boss cooldown ended"
	LogMsgBossEnraged           = "World boss enraged"
	LogMsgBossLinkedEventFailed = "Failed to start boss-linked event"
	LogMsgTerritoryCaptured     = "Control point captured"
	LogMsgTerritoryVictory      = "Territory victory"
	LogMsgShutdownTimeout       = "Orchestrator shutdown timed out"
)
