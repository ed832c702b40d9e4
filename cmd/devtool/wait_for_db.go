package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/osse101/WorldEvents_Go/internal/bootstrap"
	"github.com/osse101/WorldEvents_Go/internal/config"
	"github.com/osse101/WorldEvents_Go/internal/database"
)

const (
	waitForDBDefaultRetries = 30
	waitForDBRetryInterval  = 2 * time.Second
)

type WaitForDBCommand struct{}

func (c *WaitForDBCommand) Name() string {
	return "wait-for-db"
}

func (c *WaitForDBCommand) Description() string {
	return "Wait for the postgres store to accept connections [retries]"
}

func (c *WaitForDBCommand) Run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.UsesPostgres() {
		PrintInfo("Store driver is %s, nothing to wait for", cfg.Store)
		return nil
	}

	maxRetries := waitForDBDefaultRetries
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid retry count %q", args[0])
		}
		maxRetries = n
	}

	PrintHeader("Waiting for database...")
	for i := range maxRetries {
		ctx, cancel := context.WithTimeout(context.Background(), waitForDBRetryInterval)
		pool, err := database.NewPool(ctx, cfg.GetDBConnString(), 1, bootstrap.DBMaxConnIdleTime, bootstrap.DBMaxConnLifetime)
		cancel()
		if err == nil {
			pool.Close()
			PrintSuccess("Database is ready")
			return nil
		}

		fmt.Printf("Database not ready (%d/%d): %v\n", i+1, maxRetries, err)
		time.Sleep(waitForDBRetryInterval)
	}

	return fmt.Errorf("database failed to become ready after %d attempts", maxRetries)
}
