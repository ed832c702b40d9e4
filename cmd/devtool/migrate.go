package main

import (
	"context"
	"fmt"

	"github.com/osse101/WorldEvents_Go/internal/bootstrap"
	"github.com/osse101/WorldEvents_Go/internal/config"
	"github.com/osse101/WorldEvents_Go/internal/database"
)

type MigrateCommand struct{}

func (c *MigrateCommand) Name() string {
	return "migrate"
}

func (c *MigrateCommand) Description() string {
	return "Apply event store migrations (and river job tables when REWARD_QUEUE=river)"
}

func (c *MigrateCommand) Run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	PrintHeader(fmt.Sprintf("Migrating %s store", cfg.Store))
	ctx := context.Background()

	storage, err := bootstrap.InitializeStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()
	PrintSuccess("Event store migrations applied")

	if cfg.RewardQueue == config.RewardQueueRiver && storage.Pool != nil {
		if err := database.MigrateRiver(ctx, storage.Pool); err != nil {
			return err
		}
		PrintSuccess("River job tables migrated")
	}
	return nil
}
