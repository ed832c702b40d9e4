package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/osse101/WorldEvents_Go/internal/catalog"
	"github.com/osse101/WorldEvents_Go/internal/config"
)

// LoadCatalog reads and validates the static event, boss and spawn point tables.
// A catalog that fails validation stops startup.
func LoadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	c, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedLoadCatalog, err)
	}
	slog.Info(LogMsgCatalogLoaded,
		"dir", cfg.CatalogDir,
		"events", len(c.Events()),
		"world_bosses", len(c.WorldBosses()))
	return c, nil
}
