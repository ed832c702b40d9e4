package handler

// Generic HTTP error messages for client responses.
// These messages intentionally do not expose internal error details.
const (
	ErrMsgInvalidRequest        = "Invalid request body"
	ErrMsgInvalidRequestSummary = "Invalid request"

	ErrMsgInvalidInstanceID = "Invalid instance ID"
	ErrMsgInvalidEventID    = "Invalid event ID"
	ErrMsgInvalidBossID     = "Invalid boss ID"
	ErrMsgInvalidZone       = "Invalid zone or zone instance"
	ErrMsgUnknownFactKind   = "Unknown fact kind '%s'. Valid options: kill, damage, healing, collect, escort, defend"
)

// Success messages for API responses
const (
	MsgFactAccepted     = "Fact accepted"
	MsgPresenceAccepted = "Presence accepted"
	MsgEventStarted     = "Event started"
	MsgEventCancelled   = "Event cancelled"
	MsgScheduleFired    = "Schedule fired"
)

// Log messages
const (
	LogMsgEventListCacheHit    = "Event list served from cache"
	LogMsgEncodeResponseFailed = "Failed to encode JSON response"
	LogMsgWriteResponseFailed  = "Failed to write response buffer"
)
