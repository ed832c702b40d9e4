package reward

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/panjf2000/ants/v2"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/event"
	"github.com/osse101/WorldEvents_Go/internal/logger"
	"github.com/osse101/WorldEvents_Go/internal/metrics"
)

// PoolConfig tunes the in-process queue.
type PoolConfig struct {
	Size        int
	MaxAttempts int
	RetryDelay  time.Duration
}

// PoolQueue delivers grants on an ants worker pool. Failed attempts are re-submitted
// after an exponential backoff without holding a worker while they wait.
type PoolQueue struct {
	pool    *ants.Pool
	granter Granter
	claimer Claimer
	clock   clockwork.Clock
	cfg     PoolConfig

	// serviceCtx outlives the enqueueing request and ends at Shutdown.
	serviceCtx    context.Context
	serviceCancel context.CancelFunc

	mu       sync.Mutex
	inflight map[string]struct{}
	backoff  map[string]clockwork.Timer
	wg       sync.WaitGroup
}

// NewPoolQueue creates a pool-backed reward queue.
func NewPoolQueue(cfg PoolConfig, granter Granter, claimer Claimer, clock clockwork.Clock) (*PoolQueue, error) {
	if cfg.Size <= 0 {
		cfg.Size = DefaultPoolSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	pool, err := ants.NewPool(cfg.Size,
		ants.WithPanicHandler(func(p any) {
			logger.Error(LogMsgWorkerPanic, "panic", p)
		}),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(PoolIdleExpiry),
	)
	if err != nil {
		return nil, err
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	return &PoolQueue{
		pool:          pool,
		granter:       granter,
		claimer:       claimer,
		clock:         clock,
		cfg:           cfg,
		serviceCtx:    serviceCtx,
		serviceCancel: cancel,
		inflight:      make(map[string]struct{}),
		backoff:       make(map[string]clockwork.Timer),
	}, nil
}

// Enqueue schedules a grant. A grant already in flight for the same participation is
// ignored, so recovery re-enqueueing cannot double-deliver within one process.
func (q *PoolQueue) Enqueue(ctx context.Context, grant domain.RewardGrant) error {
	key := grantKey(grant)
	q.mu.Lock()
	if _, ok := q.inflight[key]; ok {
		q.mu.Unlock()
		logger.FromContext(ctx).Debug(LogMsgRewardDuplicate, "instance", grant.InstanceID, "participant", grant.ParticipantID)
		return nil
	}
	q.inflight[key] = struct{}{}
	q.mu.Unlock()

	if err := q.submit(grant, 1); err != nil {
		q.release(key)
		return err
	}
	return nil
}

func (q *PoolQueue) submit(grant domain.RewardGrant, attempt int) error {
	q.wg.Add(1)
	err := q.pool.Submit(func() {
		defer q.wg.Done()
		q.attempt(grant, attempt)
	})
	if err != nil {
		q.wg.Done()
	}
	return err
}

func (q *PoolQueue) attempt(grant domain.RewardGrant, attempt int) {
	ctx := q.serviceCtx
	if ctx.Err() != nil {
		// Left unclaimed; the next start re-enqueues it.
		q.release(grantKey(grant))
		return
	}

	err := deliver(ctx, q.granter, q.claimer, grant)
	if err == nil {
		q.release(grantKey(grant))
		return
	}

	if attempt >= q.cfg.MaxAttempts {
		unresolved(ctx, grant, attempt, err)
		q.release(grantKey(grant))
		return
	}

	delay := event.CalculateRetryDelay(q.cfg.RetryDelay, attempt)
	metrics.RewardGrants.WithLabelValues(metrics.ResultRetried).Inc()
	logger.FromContext(ctx).Warn(LogMsgRewardGrantRetry,
		"participant", grant.ParticipantID,
		"attempt", attempt,
		"next_in", delay,
		"error", err)

	key := grantKey(grant)
	q.mu.Lock()
	defer q.mu.Unlock()
	if ctx.Err() != nil {
		delete(q.inflight, key)
		return
	}
	q.wg.Add(1)
	q.backoff[key] = q.clock.AfterFunc(delay, func() {
		defer q.wg.Done()
		q.mu.Lock()
		delete(q.backoff, key)
		q.mu.Unlock()
		if err := q.submit(grant, attempt+1); err != nil {
			unresolved(q.serviceCtx, grant, attempt, err)
			q.release(key)
		}
	})
}

func (q *PoolQueue) release(key string) {
	q.mu.Lock()
	delete(q.inflight, key)
	q.mu.Unlock()
}

// Pending returns the number of grants not yet resolved.
func (q *PoolQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inflight)
}

// Shutdown stops accepting retries and waits for running attempts. Pending grants stay
// unclaimed in the store and are recovered on the next start.
func (q *PoolQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.serviceCancel()
	for key, timer := range q.backoff {
		if timer.Stop() {
			q.wg.Done()
			delete(q.inflight, key)
		}
		delete(q.backoff, key)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn(LogMsgPoolReleaseTimeout)
		return ctx.Err()
	}

	if err := q.pool.ReleaseTimeout(PoolReleaseTimeout); err != nil {
		logger.Warn(LogMsgPoolReleaseTimeout, "error", err)
		return err
	}
	return nil
}
