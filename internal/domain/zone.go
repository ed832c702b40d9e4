package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ZoneKey identifies one zone instance. Each key is owned by exactly one orchestrator actor.
type ZoneKey struct {
	ZoneID     uint32 `json:"zone_id"`
	InstanceID uint32 `json:"instance_id"`
}

func (k ZoneKey) String() string {
	return fmt.Sprintf("%d/%d", k.ZoneID, k.InstanceID)
}

// ParseZoneKey parses the "zone/instance" form produced by String.
func ParseZoneKey(s string) (ZoneKey, error) {
	zonePart, instPart, ok := strings.Cut(s, "/")
	if !ok {
		instPart = "0"
	}
	zone, err := strconv.ParseUint(zonePart, 10, 32)
	if err != nil {
		return ZoneKey{}, fmt.Errorf("%w: zone key %q", ErrInvalidInput, s)
	}
	inst, err := strconv.ParseUint(instPart, 10, 32)
	if err != nil {
		return ZoneKey{}, fmt.Errorf("%w: zone key %q", ErrInvalidInput, s)
	}
	return ZoneKey{ZoneID: uint32(zone), InstanceID: uint32(inst)}, nil
}

// Position is a world-space coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceTo returns the euclidean distance between two positions.
func (p Position) DistanceTo(o Position) float64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Duration is a time.Duration that decodes from either a Go duration string ("90s")
// or a number of seconds, which is how catalog tables express timings.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value * float64(time.Second)))
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: duration %q", ErrInvalidInput, value)
		}
		*d = Duration(parsed)
	case nil:
		*d = 0
	default:
		return fmt.Errorf("%w: duration %s", ErrInvalidInput, string(b))
	}
	return nil
}
