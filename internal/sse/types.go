package sse

import "github.com/osse101/WorldEvents_Go/internal/domain"

// Event represents an event sent over SSE
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Zone      *domain.ZoneKey `json:"zone,omitempty"`
	Payload   any             `json:"payload"`

	// recipient restricts delivery to one participant's streams.
	recipient string
}

// Filter selects which events a client receives. Zero values match everything, except
// that events addressed to a participant only reach that participant's streams.
type Filter struct {
	Zone        *domain.ZoneKey
	Participant string
	Types       map[string]bool
}

// Matches reports whether the filter lets e through.
func (f Filter) Matches(e Event) bool {
	if e.recipient != "" && e.recipient != f.Participant {
		return false
	}
	if f.Zone != nil && e.Zone != nil && *f.Zone != *e.Zone {
		return false
	}
	if len(f.Types) > 0 && !f.Types[e.Type] {
		return false
	}
	return true
}
