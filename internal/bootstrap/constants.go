package bootstrap

import "time"

// =============================================================================
// File System Permissions
// =============================================================================

const (
	// DirPermission is the standard permission for creating directories
	DirPermission = 0755

	// LogFilePermission is the permission for log files
	LogFilePermission = 0644
)

// =============================================================================
// Logger Configuration
// =============================================================================

const (
	// LogFileTimestampFormat is the timestamp format for log filenames (YYYY-MM-DD_HH-MM-SS)
	LogFileTimestampFormat = "2006-01-02_15-04-05"

	// LogFileNamePattern is the format string for log filenames
	LogFileNamePattern = "session_%s.log"

	// LogFileExtension is the file extension for log files
	LogFileExtension = ".log"

	// LogFileRetentionCount is the number of older log files kept next to the new one
	LogFileRetentionCount = 9
)

// Log messages for logger initialization
const (
	LogMsgLoggingInitialized   = "Logging initialized"
	LogMsgStartingWorldEvents  = "Starting WorldEvents"
	LogMsgConfigurationLoaded  = "Configuration loaded"
	LogMsgConfigurationWarning = "Configuration warning"
	LogMsgFailedCreateLogsDir  = "failed to create logs directory"
	LogMsgFailedOpenLogFile    = "failed to open log file"
	LogMsgFailedDeleteOldLog   = "Failed to delete old log file %s: %v\n"
)

// =============================================================================
// Storage Configuration
// =============================================================================

const (
	DBMaxConnIdleTime = 5 * time.Minute
	DBMaxConnLifetime = 30 * time.Minute
)

const (
	LogMsgStoreReady           = "Event store ready"
	LogMsgCatalogLoaded        = "Catalog loaded"
	ErrMsgFailedConnectDB      = "failed to connect to database"
	ErrMsgFailedOpenSQLite     = "failed to open sqlite store"
	ErrMsgFailedMigrate        = "failed to migrate event store"
	ErrMsgFailedMigrateRiver   = "failed to migrate reward job tables"
	ErrMsgFailedLoadCatalog    = "failed to load event catalog"
	ErrMsgRiverWithoutPostgres = "river reward queue requires a postgres pool"
)

// =============================================================================
// Event System Configuration
// =============================================================================

const (
	// EventDefaultRetryDelay is the base delay between retry attempts (exponential backoff)
	EventDefaultRetryDelay = 2 * time.Second

	// EventDefaultDeadLetterPath is the default file path for dead-letter notification logging
	EventDefaultDeadLetterPath = "logs/notifications_dead_letter.jsonl"
)

// Log messages for event system initialization
const (
	LogMsgEventSystemInitialized         = "Event system initialized"
	LogMsgFailedCreateResilientPublisher = "failed to create resilient publisher"
)

// =============================================================================
// Event Handler Configuration
// =============================================================================

const (
	LogMsgMetricsCollectorRegistered = "Metrics collector registered"
	LogMsgSSESubscriberRegistered    = "SSE subscriber registered"
	LogMsgWebhookRegistered          = "Notification webhook registered"
	LogMsgChainListenerRegistered    = "Chain trigger listener registered"
	ErrMsgFailedRegisterMetrics      = "failed to register metrics collector"
)

// =============================================================================
// Collaborators and Rewards
// =============================================================================

const (
	LogMsgSpawnerConfigured  = "Spawner configured"
	LogMsgGranterConfigured  = "Reward granter configured"
	LogMsgRewardQueueReady   = "Reward queue ready"
	ErrMsgFailedRewardQueue  = "failed to create reward queue"
	ErrMsgFailedStartRewards = "failed to start reward queue"
	CollaboratorModeHTTP     = "http"
	CollaboratorModeLogOnly  = "log-only"
)

// =============================================================================
// Shutdown Messages
// =============================================================================

const (
	LogMsgShuttingDownServer         = "Shutting down server..."
	LogMsgShuttingDownEventPublisher = "Shutting down event publisher..."
	LogMsgServerStopped              = "Server stopped"
	LogMsgServerForcedShutdown       = "Server forced to shutdown"
	LogMsgResilientPublisherFailed   = "Resilient publisher shutdown failed"
	LogMsgSchedulerStopFailed        = "Scheduler stop failed"

	ServiceNameOrchestrator = "orchestrator"
	ServiceNameRewards      = "reward queue"
)

// Shutdown log message format (service name will be prepended)
const (
	LogMsgServiceShutdownFailed = " shutdown failed"
)
