package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	APIKey      string `env:"API_KEY"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	Version     string `env:"VERSION" envDefault:"dev"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	// LogDir receives one session log file per run; empty logs to stdout only.
	LogDir string `env:"LOG_DIR" envDefault:"logs"`

	// Store selects the persistence backend: "postgres" or "sqlite".
	Store      string `env:"STORE_DRIVER" envDefault:"postgres"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBName     string `env:"DB_NAME" envDefault:"worldevents"`
	DBMaxConns int    `env:"DB_MAX_CONNS" envDefault:"20"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/worldevents.db"`

	CatalogDir string `env:"CATALOG_DIR" envDefault:"configs/catalog"`

	SchedulerInterval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"15s"`

	TerritoryTick  time.Duration `env:"TERRITORY_TICK" envDefault:"1s"`
	ContestPolicy  string        `env:"TERRITORY_CONTEST_POLICY" envDefault:"freeze"`
	DecayRate      float64       `env:"TERRITORY_DECAY_RATE" envDefault:"1.0"`
	CompletedGrace time.Duration `env:"COMPLETED_GRACE" envDefault:"2m"`
	PresenceTTL    time.Duration `env:"PRESENCE_TTL" envDefault:"30s"`
	MailboxSize    int           `env:"ACTOR_MAILBOX_SIZE" envDefault:"256"`
	FactDedupeSize int           `env:"FACT_DEDUPE_SIZE" envDefault:"4096"`

	// RewardQueue selects grant delivery: "river" (durable, postgres only) or "pool".
	RewardQueue       string        `env:"REWARD_QUEUE" envDefault:"pool"`
	RewardMaxAttempts int           `env:"REWARD_MAX_ATTEMPTS" envDefault:"5"`
	RewardRetryDelay  time.Duration `env:"REWARD_RETRY_DELAY" envDefault:"2s"`
	RewardPoolSize    int           `env:"REWARD_POOL_SIZE" envDefault:"16"`

	DeadLetterPath string `env:"EVENT_DEAD_LETTER_PATH" envDefault:"logs/notifications_dead_letter.jsonl"`
	PublishRetries int    `env:"EVENT_PUBLISH_RETRIES" envDefault:"3"`

	SpawnerURL string `env:"SPAWNER_URL"`
	LootURL    string `env:"LOOT_URL"`

	NotifyWebhookURL string `env:"NOTIFY_WEBHOOK_URL"`

	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists, but don't fail if it doesn't (could be real env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf(ErrMsgParseEnv, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetDBConnString returns the PostgreSQL connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}

// UsesPostgres reports whether the postgres backend is selected.
func (c *Config) UsesPostgres() bool {
	return c.Store == StoreDriverPostgres
}
