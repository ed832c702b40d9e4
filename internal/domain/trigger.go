package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TriggerType is the discriminator of a schedule trigger.
type TriggerType string

const (
	TriggerTimer        TriggerType = "timer"
	TriggerRandomWindow TriggerType = "random_window"
	TriggerPlayerCount  TriggerType = "player_count"
	TriggerChain        TriggerType = "chain"
	TriggerManual       TriggerType = "manual"
)

// TriggerConfig is the type-specific configuration of a schedule row.
type TriggerConfig interface {
	Type() TriggerType
	isTriggerConfig()
}

// TimerTrigger fires every Interval, phase-shifted by Offset from the unix epoch.
type TimerTrigger struct {
	Interval Duration `json:"interval"`
	Offset   Duration `json:"offset,omitempty"`
}

// RandomWindowTrigger fires once at a random moment inside a daily UTC hour range,
// never sooner than MinGap after the previous fire.
type RandomWindowTrigger struct {
	StartHour int      `json:"start_hour"`
	EndHour   int      `json:"end_hour"`
	MinGap    Duration `json:"min_gap,omitempty"`
}

// PlayerCountTrigger fires once zone population stays at or above Threshold for SustainFor.
type PlayerCountTrigger struct {
	Threshold  int      `json:"threshold"`
	SustainFor Duration `json:"sustain_for,omitempty"`
	Cooldown   Duration `json:"cooldown,omitempty"`
}

// ChainTrigger fires Delay after another event completes successfully.
type ChainTrigger struct {
	AfterEventID uint32   `json:"after_event_id"`
	Delay        Duration `json:"delay,omitempty"`
	// AnyZone accepts completions from every zone instead of only the schedule's zone.
	AnyZone bool `json:"any_zone,omitempty"`
}

// ManualTrigger never fires on its own.
type ManualTrigger struct{}

func (TimerTrigger) Type() TriggerType        { return TriggerTimer }
func (RandomWindowTrigger) Type() TriggerType { return TriggerRandomWindow }
func (PlayerCountTrigger) Type() TriggerType  { return TriggerPlayerCount }
func (ChainTrigger) Type() TriggerType        { return TriggerChain }
func (ManualTrigger) Type() TriggerType       { return TriggerManual }

func (TimerTrigger) isTriggerConfig()        {}
func (RandomWindowTrigger) isTriggerConfig() {}
func (PlayerCountTrigger) isTriggerConfig()  {}
func (ChainTrigger) isTriggerConfig()        {}
func (ManualTrigger) isTriggerConfig()       {}

// DecodeTrigger builds the typed trigger for a persisted (type, config) pair.
func DecodeTrigger(typ TriggerType, raw []byte) (TriggerConfig, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	var (
		cfg TriggerConfig
		err error
	)
	switch typ {
	case TriggerTimer:
		var t TimerTrigger
		err = json.Unmarshal(raw, &t)
		if err == nil && t.Interval <= 0 {
			err = fmt.Errorf("timer interval must be positive")
		}
		cfg = t
	case TriggerRandomWindow:
		var t RandomWindowTrigger
		err = json.Unmarshal(raw, &t)
		if err == nil && (t.StartHour < 0 || t.StartHour > 23 || t.EndHour < 0 || t.EndHour > 24) {
			err = fmt.Errorf("random window hours out of range")
		}
		cfg = t
	case TriggerPlayerCount:
		var t PlayerCountTrigger
		err = json.Unmarshal(raw, &t)
		if err == nil && t.Threshold <= 0 {
			err = fmt.Errorf("player count threshold must be positive")
		}
		cfg = t
	case TriggerChain:
		var t ChainTrigger
		err = json.Unmarshal(raw, &t)
		if err == nil && t.AfterEventID == 0 {
			err = fmt.Errorf("chain trigger needs after_event_id")
		}
		cfg = t
	case TriggerManual:
		cfg = ManualTrigger{}
	default:
		return nil, fmt.Errorf("%w: unknown trigger type %q", ErrInvalidInput, typ)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s trigger: %v", ErrInvalidInput, typ, err)
	}
	return cfg, nil
}

// EncodeTrigger serializes a trigger's configuration for persistence.
func EncodeTrigger(cfg TriggerConfig) (TriggerType, []byte, error) {
	if cfg == nil {
		cfg = ManualTrigger{}
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", nil, err
	}
	return cfg.Type(), raw, nil
}

// Schedule is the per (event, zone) trigger row evaluated by the scheduler.
type Schedule struct {
	EventID         uint32
	ZoneID          uint32
	InstanceID      uint32
	Enabled         bool
	Trigger         TriggerConfig
	LastTriggeredAt *time.Time
	NextTriggerAt   *time.Time
}

// Zone returns the zone instance the schedule creates events in.
func (s *Schedule) Zone() ZoneKey {
	return ZoneKey{ZoneID: s.ZoneID, InstanceID: s.InstanceID}
}

// Validate rejects a row whose trigger can never run sensibly for its own event.
func (s *Schedule) Validate() error {
	return ValidateChain(s.EventID, s.Trigger)
}

// ValidateChain rejects a chain trigger that follows the event it starts. Such a chain
// would re-arm itself on every completion.
func ValidateChain(eventID uint32, cfg TriggerConfig) error {
	if chain, ok := cfg.(ChainTrigger); ok && chain.AfterEventID == eventID {
		return fmt.Errorf("%w: event %d cannot chain after itself", ErrInvalidInput, eventID)
	}
	return nil
}

type scheduleJSON struct {
	EventID         uint32          `json:"event_id"`
	ZoneID          uint32          `json:"zone_id"`
	InstanceID      uint32          `json:"instance_id"`
	Enabled         bool            `json:"enabled"`
	TriggerType     TriggerType     `json:"trigger_type"`
	TriggerConfig   json.RawMessage `json:"trigger_config"`
	LastTriggeredAt *time.Time      `json:"last_triggered_at,omitempty"`
	NextTriggerAt   *time.Time      `json:"next_trigger_at,omitempty"`
}

func (s Schedule) MarshalJSON() ([]byte, error) {
	typ, raw, err := EncodeTrigger(s.Trigger)
	if err != nil {
		return nil, err
	}
	return json.Marshal(scheduleJSON{
		EventID:         s.EventID,
		ZoneID:          s.ZoneID,
		InstanceID:      s.InstanceID,
		Enabled:         s.Enabled,
		TriggerType:     typ,
		TriggerConfig:   raw,
		LastTriggeredAt: s.LastTriggeredAt,
		NextTriggerAt:   s.NextTriggerAt,
	})
}

type scheduleSeedJSON struct {
	InstanceID    uint32          `json:"instance_id,omitempty"`
	Enabled       bool            `json:"enabled"`
	TriggerType   TriggerType     `json:"trigger_type"`
	TriggerConfig json.RawMessage `json:"trigger_config,omitempty"`
}

func (s *ScheduleSeed) UnmarshalJSON(b []byte) error {
	var raw scheduleSeedJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	trigger, err := DecodeTrigger(raw.TriggerType, raw.TriggerConfig)
	if err != nil {
		return err
	}
	s.InstanceID = raw.InstanceID
	s.Enabled = raw.Enabled
	s.Trigger = trigger
	return nil
}

func (s ScheduleSeed) MarshalJSON() ([]byte, error) {
	typ, raw, err := EncodeTrigger(s.Trigger)
	if err != nil {
		return nil, err
	}
	return json.Marshal(scheduleSeedJSON{
		InstanceID:    s.InstanceID,
		Enabled:       s.Enabled,
		TriggerType:   typ,
		TriggerConfig: raw,
	})
}
