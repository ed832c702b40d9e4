package scheduler

import "time"

// DefaultInterval is how often schedules are evaluated when no interval is configured.
const DefaultInterval = 15 * time.Second

// Log messages
const (
	LogMsgSchedulerStarted   = "Trigger scheduler started"
	LogMsgSchedulerStopped   = "Trigger scheduler stopped"
	LogMsgScheduleSeeded     = "Seeded schedule from catalog"
	LogMsgScheduleSeedFailed = "Failed to seed schedule"
	LogMsgListSchedules      = "Failed to list schedules"
	LogMsgTriggerFired       = "Schedule trigger fired"
	LogMsgTriggerSkipped     = "Schedule trigger skipped, event already running"
	LogMsgTriggerFailed      = "Schedule trigger failed"
	LogMsgScheduleUpdate     = "Failed to update schedule trigger times"
	LogMsgPopulationFailed   = "Failed to read zone population"
	LogMsgBossEvaluation     = "World boss evaluation failed"
	LogMsgChainArmed         = "Chain trigger armed"
	LogMsgChainArmFailed     = "Failed to arm chain trigger"
)
