package sse

import "time"

// Buffer sizes
const (
	// BroadcastBufferSize is the buffer size for the broadcast channel
	BroadcastBufferSize = 256

	// ClientEventBuffer is the buffer size for each client's event channel
	ClientEventBuffer = 64

	// ReplayBufferSize is how many recent events are kept for reconnecting clients
	ReplayBufferSize = 128
)

// SSE connection settings
const (
	// KeepaliveInterval is how often to send keepalive pings
	KeepaliveInterval = 30 * time.Second
)

// Stream control event types. Notification types come from the domain package.
const (
	EventTypeConnected = "connected"
	EventTypeKeepalive = "keepalive"
)

// Query parameters accepted by the stream endpoint
const (
	QueryParamZone        = "zone"
	QueryParamParticipant = "participant"
	QueryParamTypes       = "types"
	QueryParamLastEventID = "last_event_id"

	// HeaderLastEventID is sent by EventSource on reconnect
	HeaderLastEventID = "Last-Event-ID"
)

// Log messages
const (
	LogMsgClientConnected    = "SSE client connected"
	LogMsgClientDisconnected = "SSE client disconnected"
	LogMsgEventBroadcast     = "Broadcasting SSE event"
	LogMsgWriteError         = "Failed to write SSE event"
	LogMsgBroadcastDropped   = "SSE broadcast buffer full, event dropped"
	LogMsgClientLagging      = "SSE client buffer full, event skipped"
	LogMsgSubscriberReady    = "SSE subscriber registered for notification types"
	LogMsgReplayExpired      = "SSE resume point no longer buffered, replay skipped"
)
