package reward

import "time"

// Queue kinds selectable in configuration
const (
	QueueKindPool  = "pool"
	QueueKindRiver = "river"
)

// Defaults applied when configuration leaves a value unset
const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 2 * time.Second
	DefaultPoolSize    = 16
	PoolIdleExpiry     = 10 * time.Second
	PoolReleaseTimeout = 30 * time.Second
)

// River job settings
const (
	JobKindRewardGrant = "reward_grant"
	RiverMaxWorkers    = 8
)

// Log messages
const (
	LogMsgRewardGranted      = "Reward granted"
	LogMsgRewardGrantRetry   = "Reward grant failed, retrying"
	LogMsgRewardUnresolved   = "Reward grant exhausted retries, needs manual reconciliation"
	LogMsgRewardEmptyClaimed = "Empty reward marked claimed"
	LogMsgRewardDuplicate    = "Reward grant already in flight"
	LogMsgWorkerPanic        = "Reward worker panic recovered"
	LogMsgPoolReleaseTimeout = "Reward pool shutdown timed out"
	LogMsgRiverStarted       = "River reward queue started"
	LogMsgRiverJobPanicked   = "River reward job panicked"
)
