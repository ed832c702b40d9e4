package sse

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

// ParseFilter reads the zone, participant and types query parameters.
func ParseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var f Filter

	if raw := q.Get(QueryParamZone); raw != "" {
		zone, err := domain.ParseZoneKey(raw)
		if err != nil {
			return Filter{}, err
		}
		f.Zone = &zone
	}
	f.Participant = q.Get(QueryParamParticipant)

	if raw := q.Get(QueryParamTypes); raw != "" {
		f.Types = make(map[string]bool)
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Types[t] = true
			}
		}
	}
	return f, nil
}

// Handler returns an HTTP handler for SSE connections
func Handler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := ParseFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		lastID := r.Header.Get(HeaderLastEventID)
		if lastID == "" {
			lastID = r.URL.Query().Get(QueryParamLastEventID)
		}

		client := hub.Register(filter, lastID)
		slog.Info(LogMsgClientConnected,
			"client_id", client.ID,
			"zone", r.URL.Query().Get(QueryParamZone),
			"participant", filter.Participant,
			"resumed", lastID != "",
			"total_clients", hub.ClientCount())

		defer func() {
			hub.Unregister(client.ID)
			slog.Info(LogMsgClientDisconnected,
				"client_id", client.ID,
				"total_clients", hub.ClientCount())
		}()

		connectEvent := Event{
			Type:      EventTypeConnected,
			Timestamp: time.Now().Unix(),
			Zone:      filter.Zone,
			Payload: map[string]any{
				"client_id":   client.ID,
				"participant": filter.Participant,
			},
		}
		if msg, err := FormatSSEMessage(connectEvent); err == nil {
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}

		ticker := time.NewTicker(KeepaliveInterval)
		defer ticker.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-client.EventChannel:
				if !ok {
					// Hub is shutting down
					return
				}

				msg, err := FormatSSEMessage(event)
				if err != nil {
					slog.Error(LogMsgWriteError, "error", err)
					continue
				}
				if _, err := w.Write(msg); err != nil {
					slog.Warn(LogMsgWriteError, "error", err)
					return
				}
				flusher.Flush()

			case <-ticker.C:
				msg, _ := FormatSSEMessage(Event{Type: EventTypeKeepalive, Timestamp: time.Now().Unix()})
				if _, err := w.Write(msg); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
