package config

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Reward queue kinds
const (
	RewardQueueRiver = "river"
	RewardQueuePool  = "pool"
)

var (
	ValidStoreDrivers = []string{StoreDriverPostgres, StoreDriverSQLite}
	ValidRewardQueues = []string{RewardQueueRiver, RewardQueuePool}
)

// Catalog file names inside CATALOG_DIR
const (
	CatalogFileEvents      = "events.json"
	CatalogFileWorldBosses = "world_bosses.json"
	CatalogFileSpawnPoints = "spawn_points.json"
)

// Error messages
const (
	ErrMsgParseEnv           = "failed to parse environment: %w"
	ErrMsgAPIKeyRequired     = "API_KEY environment variable must be set for security"
	ErrMsgInvalidPort        = "invalid PORT value: %d"
	ErrMsgInvalidChoice      = "invalid %s %q, expected one of %v"
	ErrMsgMustBePositive     = "%s must be positive"
	ErrMsgRiverNeedsPostgres = "REWARD_QUEUE=river requires STORE_DRIVER=postgres"
)

// Startup warnings
const (
	WarnDefaultDBPassword = "DB_PASSWORD is the default value in a production environment"
	WarnNoSpawner         = "SPAWNER_URL is not set; spawn requests are only logged"
	WarnNoLoot            = "LOOT_URL is not set; reward grants are only logged"
)
