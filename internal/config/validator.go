package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

// Validate checks enums, required values and positive durations.
func (c *Config) Validate() error {
	var errs []error

	if c.APIKey == "" {
		errs = append(errs, errors.New(ErrMsgAPIKeyRequired))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf(ErrMsgInvalidPort, c.Port))
	}
	if !slices.Contains(ValidStoreDrivers, c.Store) {
		errs = append(errs, fmt.Errorf(ErrMsgInvalidChoice, "STORE_DRIVER", c.Store, ValidStoreDrivers))
	}
	if !slices.Contains(ValidRewardQueues, c.RewardQueue) {
		errs = append(errs, fmt.Errorf(ErrMsgInvalidChoice, "REWARD_QUEUE", c.RewardQueue, ValidRewardQueues))
	}
	if c.RewardQueue == RewardQueueRiver && c.Store != StoreDriverPostgres {
		errs = append(errs, errors.New(ErrMsgRiverNeedsPostgres))
	}
	if _, err := domain.ParseContestPolicy(c.ContestPolicy); err != nil {
		errs = append(errs, err)
	}

	positive := map[string]int64{
		"SCHEDULER_INTERVAL":  int64(c.SchedulerInterval),
		"TERRITORY_TICK":      int64(c.TerritoryTick),
		"PRESENCE_TTL":        int64(c.PresenceTTL),
		"ACTOR_MAILBOX_SIZE":  int64(c.MailboxSize),
		"FACT_DEDUPE_SIZE":    int64(c.FactDedupeSize),
		"REWARD_MAX_ATTEMPTS": int64(c.RewardMaxAttempts),
		"REWARD_POOL_SIZE":    int64(c.RewardPoolSize),
		"DB_MAX_CONNS":        int64(c.DBMaxConns),
	}
	for _, name := range slices.Sorted(maps.Keys(positive)) {
		if positive[name] <= 0 {
			errs = append(errs, fmt.Errorf(ErrMsgMustBePositive, name))
		}
	}
	if c.CompletedGrace < 0 {
		errs = append(errs, fmt.Errorf(ErrMsgMustBePositive, "COMPLETED_GRACE"))
	}
	if c.DecayRate < 0 {
		errs = append(errs, fmt.Errorf(ErrMsgMustBePositive, "TERRITORY_DECAY_RATE"))
	}

	return errors.Join(errs...)
}

// Warnings returns non-fatal configuration concerns worth logging at startup.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.DBPassword == "postgres" && c.Store == StoreDriverPostgres && c.Environment == "prod" {
		warnings = append(warnings, WarnDefaultDBPassword)
	}
	if c.SpawnerURL == "" {
		warnings = append(warnings, WarnNoSpawner)
	}
	if c.LootURL == "" {
		warnings = append(warnings, WarnNoLoot)
	}
	return warnings
}
