package handler

import (
	"context"
	"net/http"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/logger"
)

// ScheduleFirer fires a trigger schedule on demand.
type ScheduleFirer interface {
	Fire(ctx context.Context, eventID, zoneID uint32) (*domain.Instance, error)
}

// AdminHandlers serves operator actions: manual starts, cancels, schedule fires and boss status.
type AdminHandlers struct {
	service   EventService
	scheduler ScheduleFirer
	events    *EventHandlers
}

// NewAdminHandlers creates admin handlers. Writes invalidate the zone list cache held by events.
func NewAdminHandlers(service EventService, scheduler ScheduleFirer, events *EventHandlers) *AdminHandlers {
	return &AdminHandlers{service: service, scheduler: scheduler, events: events}
}

// StartEventRequest starts an event outside its schedule.
type StartEventRequest struct {
	EventID        uint32          `json:"event_id" validate:"required"`
	ZoneID         uint32          `json:"zone_id"`
	ZoneInstanceID uint32          `json:"zone_instance_id"`
	Duration       domain.Duration `json:"duration" validate:"gte=0"`
}

// FireScheduleRequest fires the schedule row of an event in a zone.
type FireScheduleRequest struct {
	EventID uint32 `json:"event_id" validate:"required"`
	ZoneID  uint32 `json:"zone_id"`
}

// HandleStartEvent creates and starts an event instance.
// POST /api/v1/admin/events
func (h *AdminHandlers) HandleStartEvent(w http.ResponseWriter, r *http.Request) {
	var req StartEventRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Start event"); err != nil {
		return
	}
	zone := domain.ZoneKey{ZoneID: req.ZoneID, InstanceID: req.ZoneInstanceID}

	inst, err := h.service.CreateAndStart(r.Context(), req.EventID, zone, req.Duration.Std())
	if err != nil {
		respondServiceError(w, r, "Start event", err)
		return
	}
	h.invalidate(zone)

	logger.FromContext(r.Context()).Info("Admin started event",
		"event_id", req.EventID, "zone", zone.String(), "instance", inst.ID)
	respondJSON(w, http.StatusCreated, DataResponse{Message: MsgEventStarted, Data: inst})
}

// HandleCancelEvent cancels an instance without rewards.
// POST /api/v1/admin/events/{id}/cancel
func (h *AdminHandlers) HandleCancelEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", ErrMsgInvalidInstanceID)
	if !ok {
		return
	}
	inst, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, "Cancel event", err)
		return
	}
	h.invalidate(inst.Zone)

	logger.FromContext(r.Context()).Info("Admin cancelled event", "instance", id)
	respondJSON(w, http.StatusOK, DataResponse{Message: MsgEventCancelled, Data: inst})
}

// HandleFireSchedule fires a schedule regardless of its trigger type.
// POST /api/v1/admin/schedules/fire
func (h *AdminHandlers) HandleFireSchedule(w http.ResponseWriter, r *http.Request) {
	var req FireScheduleRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Fire schedule"); err != nil {
		return
	}
	inst, err := h.scheduler.Fire(r.Context(), req.EventID, req.ZoneID)
	if err != nil {
		respondServiceError(w, r, "Fire schedule", err)
		return
	}
	h.invalidate(inst.Zone)
	respondJSON(w, http.StatusCreated, DataResponse{Message: MsgScheduleFired, Data: inst})
}

// HandleBossStatus returns the runtime row of a world boss.
// GET /api/v1/admin/bosses/{id}
func (h *AdminHandlers) HandleBossStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uint32Param(w, r, "id", ErrMsgInvalidBossID)
	if !ok {
		return
	}
	boss, err := h.service.BossStatus(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, "Boss status", err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: boss})
}

func (h *AdminHandlers) invalidate(zone domain.ZoneKey) {
	if h.events != nil {
		h.events.cache.Invalidate(zone)
	}
}
