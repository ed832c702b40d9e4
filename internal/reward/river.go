package reward

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/event"
	"github.com/osse101/WorldEvents_Go/internal/logger"
	"github.com/osse101/WorldEvents_Go/internal/metrics"
)

// GrantArgs is the durable job carrying one reward grant.
type GrantArgs struct {
	Grant       domain.RewardGrant `json:"grant"`
	MaxAttempts int                `json:"-"`
}

// Kind returns the job kind identifier for reward grants.
func (GrantArgs) Kind() string { return JobKindRewardGrant }

// InsertOpts makes a participation's grant unique while it is still pending.
func (a GrantArgs) InsertOpts() river.InsertOpts {
	maxAttempts := a.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: maxAttempts,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	}
}

// GrantWorker delivers reward grant jobs.
type GrantWorker struct {
	river.WorkerDefaults[GrantArgs]
	granter    Granter
	claimer    Claimer
	retryDelay time.Duration
}

// NewGrantWorker creates a worker. Non-positive retryDelay falls back to the default.
func NewGrantWorker(granter Granter, claimer Claimer, retryDelay time.Duration) *GrantWorker {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &GrantWorker{granter: granter, claimer: claimer, retryDelay: retryDelay}
}

// Work grants the reward and marks it claimed. Errors make river retry the job.
func (w *GrantWorker) Work(ctx context.Context, job *river.Job[GrantArgs]) error {
	if w == nil || w.granter == nil || w.claimer == nil {
		return fmt.Errorf("reward grant worker is not initialized")
	}
	if err := deliver(ctx, w.granter, w.claimer, job.Args.Grant); err != nil {
		if job.Attempt < job.MaxAttempts {
			metrics.RewardGrants.WithLabelValues(metrics.ResultRetried).Inc()
		}
		return err
	}
	return nil
}

// NextRetry uses the same exponential backoff as the in-process queue.
func (w *GrantWorker) NextRetry(job *river.Job[GrantArgs]) time.Time {
	return time.Now().Add(event.CalculateRetryDelay(w.retryDelay, job.Attempt))
}

// grantErrorHandler logs grants that used their last attempt.
type grantErrorHandler struct{}

func (grantErrorHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	if job.Attempt >= job.MaxAttempts {
		reportExhausted(ctx, job, err)
	}
	return nil
}

func (grantErrorHandler) HandlePanic(ctx context.Context, job *rivertype.JobRow, panicVal any, trace string) *river.ErrorHandlerResult {
	logger.FromContext(ctx).Error(LogMsgRiverJobPanicked, "job_id", job.ID, "panic", panicVal, "trace", trace)
	if job.Attempt >= job.MaxAttempts {
		reportExhausted(ctx, job, fmt.Errorf("panic: %v", panicVal))
	}
	return nil
}

func reportExhausted(ctx context.Context, job *rivertype.JobRow, err error) {
	var args GrantArgs
	if decodeErr := decodeArgs(job.EncodedArgs, &args); decodeErr != nil {
		logger.FromContext(ctx).Error(LogMsgRewardUnresolved, "job_id", job.ID, "error", err)
		return
	}
	unresolved(ctx, args.Grant, job.Attempt, err)
}

// RiverQueue stores grants as river jobs in postgres, so pending rewards survive restarts.
type RiverQueue struct {
	client      *river.Client[pgx.Tx]
	maxAttempts int
}

// RiverConfig tunes the durable queue.
type RiverConfig struct {
	MaxWorkers  int
	MaxAttempts int
	RetryDelay  time.Duration
}

// NewRiverQueue creates a river client with the grant worker registered. The river
// tables must already exist (see database.MigrateRiver).
func NewRiverQueue(pool *pgxpool.Pool, cfg RiverConfig, granter Granter, claimer Claimer) (*RiverQueue, error) {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = RiverMaxWorkers
	}

	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, NewGrantWorker(granter, claimer, cfg.RetryDelay)); err != nil {
		return nil, fmt.Errorf("register reward worker: %w", err)
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers:      workers,
		ErrorHandler: grantErrorHandler{},
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	return &RiverQueue{client: client, maxAttempts: cfg.MaxAttempts}, nil
}

// Start begins working jobs.
func (q *RiverQueue) Start(ctx context.Context) error {
	if err := q.client.Start(ctx); err != nil {
		return fmt.Errorf("start river client: %w", err)
	}
	logger.FromContext(ctx).Info(LogMsgRiverStarted)
	return nil
}

// Enqueue inserts a grant job. Unique args turn a recovery re-enqueue into a no-op
// while the original job is still pending.
func (q *RiverQueue) Enqueue(ctx context.Context, grant domain.RewardGrant) error {
	if _, err := q.client.Insert(ctx, GrantArgs{Grant: grant, MaxAttempts: q.maxAttempts}, nil); err != nil {
		return fmt.Errorf("insert reward job: %w", err)
	}
	return nil
}

// Shutdown stops fetching new jobs and waits for running ones.
func (q *RiverQueue) Shutdown(ctx context.Context) error {
	return q.client.Stop(ctx)
}
