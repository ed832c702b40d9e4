package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/WorldEvents_Go/internal/config"
	"github.com/osse101/WorldEvents_Go/internal/database"
	"github.com/osse101/WorldEvents_Go/internal/orchestrator"
	"github.com/osse101/WorldEvents_Go/internal/reward"
)

// RewardQueue is a started reward queue the orchestrator enqueues into.
type RewardQueue interface {
	orchestrator.RewardQueue
	Shutdown(ctx context.Context) error
}

// InitializeRewardQueue builds and starts the configured reward queue. The river queue
// persists grants in postgres and needs its job tables migrated first.
func InitializeRewardQueue(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, granter reward.Granter, claimer reward.Claimer) (RewardQueue, error) {
	if cfg.RewardQueue == config.RewardQueueRiver {
		if pool == nil {
			return nil, errors.New(ErrMsgRiverWithoutPostgres)
		}
		if err := database.MigrateRiver(ctx, pool); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedMigrateRiver, err)
		}
		q, err := reward.NewRiverQueue(pool, reward.RiverConfig{
			MaxAttempts: cfg.RewardMaxAttempts,
			RetryDelay:  cfg.RewardRetryDelay,
		}, granter, claimer)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedRewardQueue, err)
		}
		if err := q.Start(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedStartRewards, err)
		}
		slog.Info(LogMsgRewardQueueReady, "kind", reward.QueueKindRiver, "max_attempts", cfg.RewardMaxAttempts)
		return q, nil
	}

	q, err := reward.NewPoolQueue(reward.PoolConfig{
		Size:        cfg.RewardPoolSize,
		MaxAttempts: cfg.RewardMaxAttempts,
		RetryDelay:  cfg.RewardRetryDelay,
	}, granter, claimer, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedRewardQueue, err)
	}
	slog.Info(LogMsgRewardQueueReady, "kind", reward.QueueKindPool, "size", cfg.RewardPoolSize)
	return q, nil
}
