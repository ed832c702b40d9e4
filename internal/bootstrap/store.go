package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/WorldEvents_Go/internal/config"
	"github.com/osse101/WorldEvents_Go/internal/database"
	"github.com/osse101/WorldEvents_Go/internal/database/postgres"
	"github.com/osse101/WorldEvents_Go/internal/database/sqlite"
	"github.com/osse101/WorldEvents_Go/internal/repository"
)

// Storage is the selected event store plus the connection handles behind it.
type Storage struct {
	Store repository.EventStore
	// Pool is set for the postgres backend; the river reward queue shares it.
	Pool *pgxpool.Pool
	db   *sql.DB
}

// Close releases the underlying connections.
func (s *Storage) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

// InitializeStorage opens the configured backend and applies its migrations.
func InitializeStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg.UsesPostgres() {
		pool, err := database.NewPool(ctx, cfg.GetDBConnString(), cfg.DBMaxConns, DBMaxConnIdleTime, DBMaxConnLifetime)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedConnectDB, err)
		}
		if err := database.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedMigrate, err)
		}
		slog.Info(LogMsgStoreReady, "driver", config.StoreDriverPostgres)
		return &Storage{Store: postgres.NewStore(pool), Pool: pool}, nil
	}

	db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedOpenSQLite, err)
	}
	if err := database.MigrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedMigrate, err)
	}
	slog.Info(LogMsgStoreReady, "driver", config.StoreDriverSQLite, "path", cfg.SQLitePath)
	return &Storage{Store: sqlite.NewStore(db), db: db}, nil
}
