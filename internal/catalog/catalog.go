// Package catalog is the read-only lookup of event, world boss and spawn point
// definitions, loaded once at startup.
package catalog

import (
	"cmp"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/validation"
)

// File names inside the catalog directory.
const (
	FileEvents      = "events.json"
	FileWorldBosses = "world_bosses.json"
	FileSpawnPoints = "spawn_points.json"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var schemas = validation.NewSchemaValidator(schemaFS)

func schemaFor(file string) string {
	return "schemas/" + strings.TrimSuffix(file, ".json") + ".schema.json"
}

type spawnKey struct {
	zoneID uint32
	group  string
}

// Catalog holds immutable definitions keyed by id.
type Catalog struct {
	events      map[uint32]*domain.EventDefinition
	bosses      map[uint32]*domain.WorldBossDefinition
	spawnPoints map[spawnKey][]domain.SpawnPoint
}

// catalogEvent detects whether contribution weights were given explicitly.
type catalogEvent struct {
	domain.EventDefinition
	Weights *domain.ContributionWeights `json:"contribution_weights"`
}

// Load reads and validates the catalog files in dir. The world boss and spawn point
// files are optional.
func Load(dir string) (*Catalog, error) {
	var rawEvents []catalogEvent
	if err := readJSON(filepath.Join(dir, FileEvents), &rawEvents, false); err != nil {
		return nil, err
	}
	events := make([]domain.EventDefinition, 0, len(rawEvents))
	for _, raw := range rawEvents {
		def := raw.EventDefinition
		def.Weights = domain.DefaultContributionWeights
		if raw.Weights != nil {
			def.Weights = *raw.Weights
		}
		events = append(events, def)
	}

	var bosses []domain.WorldBossDefinition
	if err := readJSON(filepath.Join(dir, FileWorldBosses), &bosses, true); err != nil {
		return nil, err
	}

	var points []domain.SpawnPoint
	if err := readJSON(filepath.Join(dir, FileSpawnPoints), &points, true); err != nil {
		return nil, err
	}

	return New(events, bosses, points)
}

func readJSON(path string, target any, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read catalog file %s: %w", filepath.Base(path), err)
	}
	if err := schemas.ValidateBytes(data, schemaFor(filepath.Base(path))); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidCatalog, filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: failed to parse %s: %v", domain.ErrInvalidCatalog, filepath.Base(path), err)
	}
	return nil
}

// New validates definitions and builds a catalog from them.
func New(events []domain.EventDefinition, bosses []domain.WorldBossDefinition, points []domain.SpawnPoint) (*Catalog, error) {
	c := &Catalog{
		events:      make(map[uint32]*domain.EventDefinition, len(events)),
		bosses:      make(map[uint32]*domain.WorldBossDefinition, len(bosses)),
		spawnPoints: make(map[spawnKey][]domain.SpawnPoint),
	}

	for i := range events {
		def := &events[i]
		if _, dup := c.events[def.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate event id %d", domain.ErrInvalidCatalog, def.ID)
		}
		if err := validateEvent(def); err != nil {
			return nil, fmt.Errorf("%w: event %d: %v", domain.ErrInvalidCatalog, def.ID, err)
		}
		c.events[def.ID] = def
	}

	for i := range bosses {
		def := &bosses[i]
		if _, dup := c.bosses[def.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate world boss id %d", domain.ErrInvalidCatalog, def.ID)
		}
		if err := c.validateBoss(def); err != nil {
			return nil, fmt.Errorf("%w: world boss %d: %v", domain.ErrInvalidCatalog, def.ID, err)
		}
		c.bosses[def.ID] = def
	}

	for _, p := range points {
		key := spawnKey{zoneID: p.ZoneID, group: p.Group}
		c.spawnPoints[key] = append(c.spawnPoints[key], p)
	}

	return c, nil
}

func validateEvent(def *domain.EventDefinition) error {
	if def.ID == 0 {
		return fmt.Errorf("id must be non-zero")
	}
	if def.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if len(def.Phases) == 0 {
		return fmt.Errorf("no phases defined")
	}
	for pi, phase := range def.Phases {
		if len(phase.Objectives) == 0 {
			return fmt.Errorf("phase %d has no objectives", pi)
		}
		for oi, obj := range phase.Objectives {
			if obj.Spec == nil {
				return fmt.Errorf("phase %d objective %d has no type", pi, oi)
			}
			if obj.Target <= 0 {
				return fmt.Errorf("phase %d objective %d target must be positive", pi, oi)
			}
			if obj.PointsPerUnit < 0 {
				return fmt.Errorf("phase %d objective %d points_per_unit must not be negative", pi, oi)
			}
			if spec, ok := obj.Spec.(domain.TerritorySpec); ok {
				if err := validateTerritory(spec); err != nil {
					return fmt.Errorf("phase %d objective %d: %v", pi, oi, err)
				}
			}
		}
		for wi, wave := range phase.Waves {
			if len(wave.CreatureIDs) == 0 {
				return fmt.Errorf("phase %d wave %d has no creatures", pi, wi)
			}
			if wave.Threshold <= 0 || wave.Threshold > 1 {
				return fmt.Errorf("phase %d wave %d threshold must be in (0, 1]", pi, wi)
			}
		}
	}
	if def.Schedule != nil {
		if err := domain.ValidateChain(def.ID, def.Schedule.Trigger); err != nil {
			return fmt.Errorf("schedule: %v", err)
		}
	}
	w := def.Weights
	if w.Kill < 0 || w.DamagePerPoint < 0 || w.HealingPerPoint < 0 || w.ObjectiveComplete < 0 {
		return fmt.Errorf("contribution weights must not be negative")
	}
	return nil
}

func validateTerritory(spec domain.TerritorySpec) error {
	if len(spec.ControlPoints) == 0 {
		return fmt.Errorf("territory objective has no control points")
	}
	if spec.RequiredHold <= 0 {
		return fmt.Errorf("territory required_hold must be positive")
	}
	seen := make(map[string]bool, len(spec.ControlPoints))
	for _, cp := range spec.ControlPoints {
		if cp.ID == "" || seen[cp.ID] {
			return fmt.Errorf("control point ids must be unique and non-empty")
		}
		seen[cp.ID] = true
		if cp.Radius <= 0 || cp.CaptureTime <= 0 {
			return fmt.Errorf("control point %q needs positive radius and capture_time", cp.ID)
		}
	}
	return nil
}

func (c *Catalog) validateBoss(def *domain.WorldBossDefinition) error {
	if def.ID == 0 || def.CreatureID == 0 {
		return fmt.Errorf("id and creature_id must be non-zero")
	}
	if def.MaxHealth <= 0 {
		return fmt.Errorf("max_health must be positive")
	}
	if def.Window.StartHour < 0 || def.Window.StartHour > 23 || def.Window.EndHour < 0 || def.Window.EndHour > 24 {
		return fmt.Errorf("window hours out of range")
	}
	if def.Cooldown < 0 || def.Enrage < 0 {
		return fmt.Errorf("cooldown and enrage must not be negative")
	}
	for i := 1; i < len(def.Phases); i++ {
		if def.Phases[i].HealthPercent >= def.Phases[i-1].HealthPercent {
			return fmt.Errorf("phase thresholds must be strictly descending")
		}
	}
	if def.EventID != 0 {
		if _, ok := c.events[def.EventID]; !ok {
			return fmt.Errorf("linked event %d is not defined", def.EventID)
		}
	}
	return nil
}

// GetEvent returns the event definition with the given id.
func (c *Catalog) GetEvent(id uint32) (*domain.EventDefinition, error) {
	def, ok := c.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrEventDefinitionNotFound, id)
	}
	return def, nil
}

// GetWorldBoss returns the world boss definition with the given id.
func (c *Catalog) GetWorldBoss(id uint32) (*domain.WorldBossDefinition, error) {
	def, ok := c.bosses[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrBossNotFound, id)
	}
	return def, nil
}

// GetSpawnPoints returns the spawn points of a group in a zone.
func (c *Catalog) GetSpawnPoints(zoneID uint32, group string) []domain.SpawnPoint {
	return slices.Clone(c.spawnPoints[spawnKey{zoneID: zoneID, group: group}])
}

// Events returns every event definition ordered by id.
func (c *Catalog) Events() []*domain.EventDefinition {
	out := make([]*domain.EventDefinition, 0, len(c.events))
	for _, def := range c.events {
		out = append(out, def)
	}
	slices.SortFunc(out, func(a, b *domain.EventDefinition) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// WorldBosses returns every world boss definition ordered by id.
func (c *Catalog) WorldBosses() []*domain.WorldBossDefinition {
	out := make([]*domain.WorldBossDefinition, 0, len(c.bosses))
	for _, def := range c.bosses {
		out = append(out, def)
	}
	slices.SortFunc(out, func(a, b *domain.WorldBossDefinition) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// BossesInZone returns the world bosses owned by one zone instance.
func (c *Catalog) BossesInZone(zone domain.ZoneKey) []*domain.WorldBossDefinition {
	var out []*domain.WorldBossDefinition
	for _, def := range c.WorldBosses() {
		if def.Zone() == zone {
			out = append(out, def)
		}
	}
	return out
}

// BossZones returns every zone instance that owns a world boss.
func (c *Catalog) BossZones() []domain.ZoneKey {
	var zones []domain.ZoneKey
	for _, def := range c.WorldBosses() {
		if !slices.Contains(zones, def.Zone()) {
			zones = append(zones, def.Zone())
		}
	}
	return zones
}
