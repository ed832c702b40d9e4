package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/logger"
)

// EventService is the orchestrator surface the HTTP handlers call.
type EventService interface {
	ReportFact(ctx context.Context, f domain.Fact) error
	ReportPresence(ctx context.Context, p domain.Presence) error
	EventList(ctx context.Context, zone domain.ZoneKey) ([]domain.EventListEntry, error)
	GetInstance(ctx context.Context, id uuid.UUID) (*domain.Instance, error)
	Participants(ctx context.Context, id uuid.UUID) ([]*domain.Participation, error)
	CreateAndStart(ctx context.Context, eventID uint32, zone domain.ZoneKey, duration time.Duration) (*domain.Instance, error)
	Cancel(ctx context.Context, id uuid.UUID) (*domain.Instance, error)
	BossStatus(ctx context.Context, bossID uint32) (*domain.BossSpawn, error)
}

// HistoryReader reads participant completion history.
type HistoryReader interface {
	GetCompletionHistory(ctx context.Context, participantID string, eventID uint32) (*domain.CompletionHistory, error)
}

// EventHandlers serves fact intake and read-side queries.
type EventHandlers struct {
	service EventService
	history HistoryReader
	cache   *eventListCache
}

// NewEventHandlers creates the event handlers. cacheSize and cacheTTL of zero use defaults.
func NewEventHandlers(service EventService, history HistoryReader, cacheSize int, cacheTTL time.Duration) *EventHandlers {
	return &EventHandlers{
		service: service,
		history: history,
		cache:   newEventListCache(cacheSize, cacheTTL),
	}
}

// HandleEventList returns the pending and active events of a zone instance.
// GET /api/v1/zones/{zone}/instances/{instance}/events
func (h *EventHandlers) HandleEventList(w http.ResponseWriter, r *http.Request) {
	zone, ok := zoneParams(w, r)
	if !ok {
		return
	}

	if entries, hit := h.cache.Get(zone); hit {
		logger.FromContext(r.Context()).Debug(LogMsgEventListCacheHit, "zone", zone.String())
		respondJSON(w, http.StatusOK, DataResponse{Data: entries})
		return
	}

	entries, err := h.service.EventList(r.Context(), zone)
	if err != nil {
		respondServiceError(w, r, "Event list", err)
		return
	}
	if entries == nil {
		entries = []domain.EventListEntry{}
	}
	h.cache.Set(zone, entries)
	respondJSON(w, http.StatusOK, DataResponse{Data: entries})
}

// HandleGetInstance returns one event instance.
// GET /api/v1/events/{id}
func (h *EventHandlers) HandleGetInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", ErrMsgInvalidInstanceID)
	if !ok {
		return
	}
	inst, err := h.service.GetInstance(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, "Get instance", err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: inst})
}

// HandleParticipants returns an instance's participants ordered by contribution.
// GET /api/v1/events/{id}/participants
func (h *EventHandlers) HandleParticipants(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", ErrMsgInvalidInstanceID)
	if !ok {
		return
	}
	parts, err := h.service.Participants(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, "List participants", err)
		return
	}
	if parts == nil {
		parts = []*domain.Participation{}
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: parts})
}

// HandleHistory returns a participant's completion history for one event.
// GET /api/v1/history/{participant}/{event}
func (h *EventHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	participant := chi.URLParam(r, "participant")
	eventID, ok := uint32Param(w, r, "event", ErrMsgInvalidEventID)
	if !ok {
		return
	}
	hist, err := h.history.GetCompletionHistory(r.Context(), participant, eventID)
	if err != nil {
		respondServiceError(w, r, "Completion history", err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: hist})
}
