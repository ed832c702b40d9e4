package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/logger"
	"github.com/osse101/WorldEvents_Go/internal/metrics"
)

// factKinds maps the route segment of the fact intake endpoint to the fact kind.
var factKinds = map[string]domain.FactKind{
	"kill":    domain.FactKill,
	"damage":  domain.FactDamage,
	"healing": domain.FactHealing,
	"collect": domain.FactCollect,
	"escort":  domain.FactEscortTick,
	"defend":  domain.FactDefendTick,
}

// FactRequest is the body collaborators post for a gameplay fact.
type FactRequest struct {
	FactID         string     `json:"fact_id" validate:"max=128"`
	ZoneID         uint32     `json:"zone_id"`
	ZoneInstanceID uint32     `json:"zone_instance_id"`
	InstanceID     *uuid.UUID `json:"instance_id,omitempty"`
	ParticipantID  string     `json:"participant_id" validate:"required,max=128,excludesall=\x00\n\r\t"`
	Faction        string     `json:"faction" validate:"faction"`
	TargetID       uint32     `json:"target_id"`
	Amount         int64      `json:"amount" validate:"gte=0"`
	OccurredAt     *time.Time `json:"occurred_at,omitempty"`
}

func (req FactRequest) toFact(kind domain.FactKind) domain.Fact {
	f := domain.Fact{
		ID:            req.FactID,
		Kind:          kind,
		Zone:          domain.ZoneKey{ZoneID: req.ZoneID, InstanceID: req.ZoneInstanceID},
		InstanceID:    req.InstanceID,
		ParticipantID: req.ParticipantID,
		Faction:       req.Faction,
		TargetID:      req.TargetID,
		Amount:        req.Amount,
	}
	if req.OccurredAt != nil {
		f.OccurredAt = req.OccurredAt.UTC()
	}
	return f
}

// PresenceRequest reports a participant's position in a zone instance.
type PresenceRequest struct {
	ZoneID         uint32          `json:"zone_id"`
	ZoneInstanceID uint32          `json:"zone_instance_id"`
	ParticipantID  string          `json:"participant_id" validate:"required,max=128,excludesall=\x00\n\r\t"`
	Faction        string          `json:"faction" validate:"faction"`
	Position       domain.Position `json:"position"`
	Left           bool            `json:"left"`
}

// HandleReportFact accepts a kill, damage, healing, collect, escort or defend fact.
// POST /api/v1/facts/{kind}
func (h *EventHandlers) HandleReportFact(w http.ResponseWriter, r *http.Request) {
	segment := chi.URLParam(r, "kind")
	kind, ok := factKinds[segment]
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf(ErrMsgUnknownFactKind, segment))
		return
	}

	var req FactRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Report fact"); err != nil {
		return
	}
	fact := req.toFact(kind)

	log := logger.FromContext(r.Context())
	LogRequestFields(log, "kind", kind, "participant_id", fact.ParticipantID, "zone", fact.Zone.String(), "fact_id", fact.ID)

	if err := h.service.ReportFact(r.Context(), fact); err != nil {
		respondServiceError(w, r, "Report fact", err)
		return
	}
	metrics.FactsReceived.WithLabelValues(string(kind)).Inc()
	h.cache.Invalidate(fact.Zone)

	respondJSON(w, http.StatusAccepted, SuccessResponse{Message: MsgFactAccepted})
}

// HandleReportPresence records where a participant currently is.
// POST /api/v1/facts/presence
func (h *EventHandlers) HandleReportPresence(w http.ResponseWriter, r *http.Request) {
	var req PresenceRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Report presence"); err != nil {
		return
	}
	p := domain.Presence{
		Zone:          domain.ZoneKey{ZoneID: req.ZoneID, InstanceID: req.ZoneInstanceID},
		ParticipantID: req.ParticipantID,
		Faction:       req.Faction,
		Position:      req.Position,
		Left:          req.Left,
	}

	if err := h.service.ReportPresence(r.Context(), p); err != nil {
		respondServiceError(w, r, "Report presence", err)
		return
	}
	metrics.FactsReceived.WithLabelValues(metrics.FactKindPresence).Inc()

	respondJSON(w, http.StatusAccepted, SuccessResponse{Message: MsgPresenceAccepted})
}
