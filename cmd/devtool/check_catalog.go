package main

import (
	"fmt"
	"os"

	"github.com/osse101/WorldEvents_Go/internal/catalog"
)

const defaultCatalogDir = "configs/catalog"

type CheckCatalogCommand struct{}

func (c *CheckCatalogCommand) Name() string {
	return "check-catalog"
}

func (c *CheckCatalogCommand) Description() string {
	return "Validate the event, world boss and spawn point files [dir]"
}

func (c *CheckCatalogCommand) Run(args []string) error {
	dir := os.Getenv("CATALOG_DIR")
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		dir = defaultCatalogDir
	}

	PrintHeader(fmt.Sprintf("Checking catalog in %s", dir))
	cat, err := catalog.Load(dir)
	if err != nil {
		return err
	}

	for _, line := range summarizeCatalog(cat) {
		PrintInfo("%s", line)
	}
	PrintSuccess("Catalog is valid")
	return nil
}

// summarizeCatalog lists every event with its type, zone and trigger, then every world boss.
func summarizeCatalog(cat *catalog.Catalog) []string {
	var lines []string
	for _, def := range cat.Events() {
		trigger := "none"
		if def.Schedule != nil {
			trigger = string(def.Schedule.Trigger.Type())
			if !def.Schedule.Enabled {
				trigger += " (disabled)"
			}
		}
		lines = append(lines, fmt.Sprintf("event %d %q: %s in zone %d, %d phase(s), trigger %s",
			def.ID, def.Name, def.Type, def.ZoneID, len(def.Phases), trigger))
	}
	for _, boss := range cat.WorldBosses() {
		lines = append(lines, fmt.Sprintf("boss %d %q: zone %s, window %02d-%02d UTC, cooldown %s",
			boss.ID, boss.Name, boss.Zone(), boss.Window.StartHour, boss.Window.EndHour, boss.Cooldown.Std()))
	}
	if len(lines) == 0 {
		lines = append(lines, "no definitions")
	}
	return lines
}
