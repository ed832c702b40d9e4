package metrics

// ============================================================================
// Metric Names
// ============================================================================

// HTTP metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"
)

// Notification metric names
const (
	MetricNameNotificationsPublished = "notifications_published_total"
	MetricNameEventHandlerErrors     = "event_handler_errors_total"
	MetricNameSSEClients             = "sse_clients"
	MetricNameSSEDropped             = "sse_events_dropped_total"
)

// Orchestration metric names
const (
	MetricNameInstancesStarted  = "event_instances_started_total"
	MetricNameInstancesFinished = "event_instances_finished_total"
	MetricNameWaveUpdates       = "event_wave_updates_total"
	MetricNameBossEncounters    = "world_boss_encounters_total"
	MetricNameFactsReceived     = "facts_received_total"
	MetricNameTriggersFired     = "schedule_triggers_fired_total"
	MetricNameRewardGrants      = "reward_grants_total"
	MetricNameZoneActors        = "zone_actors"
)

// ============================================================================
// Metric Help Text
// ============================================================================

// HTTP metric help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"
)

// Notification metric help text
const (
	HelpTextNotificationsPublished = "Total number of notifications published"
	HelpTextEventHandlerErrors     = "Total number of event handler errors"
	HelpTextSSEClients             = "Current number of connected SSE clients"
	HelpTextSSEDropped             = "Total number of SSE events dropped by reason"
)

// Orchestration metric help text
const (
	HelpTextInstancesStarted  = "Total number of event instances started"
	HelpTextInstancesFinished = "Total number of event instances that reached a terminal state"
	HelpTextWaveUpdates       = "Total number of invasion wave updates"
	HelpTextBossEncounters    = "Total number of world boss spawns, kills and despawns"
	HelpTextFactsReceived     = "Total number of gameplay facts received"
	HelpTextTriggersFired     = "Total number of schedule triggers fired"
	HelpTextRewardGrants      = "Total number of reward grant attempts by result"
	HelpTextZoneActors        = "Current number of running zone actors"
)

// ============================================================================
// Metric Label Names
// ============================================================================

// Common label names used across metrics
const (
	LabelMethod    = "method"
	LabelPath      = "path"
	LabelStatus    = "status"
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelState     = "state"
	LabelOutcome   = "outcome"
	LabelKind      = "kind"
	LabelTrigger   = "trigger"
	LabelResult    = "result"
	LabelReason    = "reason"
)

// Label values
const (
	OutcomeSpawned   = "spawned"
	OutcomeKilled    = "killed"
	OutcomeDespawned = "despawned"

	ResultGranted     = "granted"
	ResultRetried     = "retried"
	ResultUnresolved  = "unresolved"
	TriggerFireFailed = "failed"

	FactKindPresence = "presence"

	ReasonBroadcastFull = "broadcast_full"
	ReasonClientLagging = "client_lagging"
)

// ============================================================================
// Histogram Buckets
// ============================================================================

// HTTPLatencyBuckets defines the histogram buckets for HTTP request duration
// in seconds, from 1ms to 10s.
var HTTPLatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// ============================================================================
// Log Messages
// ============================================================================

// Debug log messages
const (
	LogMsgUnexpectedPayload = "Notification payload has unexpected type"
	LogMsgMetricsRecorded   = "Metrics recorded for event"
)
