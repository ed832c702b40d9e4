package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	require.NoError(t, os.Unsetenv(key))
}

func validConfig() *Config {
	return &Config{
		Port:              8080,
		APIKey:            "key",
		Store:             StoreDriverPostgres,
		RewardQueue:       RewardQueuePool,
		ContestPolicy:     "freeze",
		SchedulerInterval: time.Second,
		TerritoryTick:     time.Second,
		PresenceTTL:       time.Second,
		MailboxSize:       16,
		FactDedupeSize:    16,
		RewardMaxAttempts: 3,
		RewardPoolSize:    2,
		DBMaxConns:        4,
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Port = 70000
	cfg.Store = "mysql"
	cfg.ContestPolicy = "explode"
	cfg.TerritoryTick = 0
	cfg.MailboxSize = -1

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "invalid PORT")
	assert.Contains(t, msg, "STORE_DRIVER")
	assert.Contains(t, msg, "contest policy")
	assert.Contains(t, msg, "TERRITORY_TICK must be positive")
	assert.Contains(t, msg, "ACTOR_MAILBOX_SIZE must be positive")
}

func TestWarnings(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = "prod"
	cfg.DBPassword = "postgres"

	warnings := cfg.Warnings()
	assert.Contains(t, warnings, WarnDefaultDBPassword)
	assert.Contains(t, warnings, WarnNoSpawner)
	assert.Contains(t, warnings, WarnNoLoot)

	cfg.SpawnerURL = "http://spawner"
	cfg.LootURL = "http://loot"
	cfg.DBPassword = "s3cret"
	assert.Empty(t, cfg.Warnings())
}
