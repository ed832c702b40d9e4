package reward

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

type mockGranter struct {
	mock.Mock
}

func (m *mockGranter) Grant(ctx context.Context, grant domain.RewardGrant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

type fakeClaimer struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func newFakeClaimer() *fakeClaimer {
	return &fakeClaimer{claimed: make(map[string]bool)}
}

func (c *fakeClaimer) MarkRewardClaimed(_ context.Context, instanceID uuid.UUID, participantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.claimed[instanceID.String()+":"+participantID] = true
	return nil
}

func (c *fakeClaimer) isClaimed(g domain.RewardGrant) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.claimed[grantKey(g)]
}

func testGrant(participant string) domain.RewardGrant {
	return domain.RewardGrant{
		InstanceID:    uuid.New(),
		EventID:       1,
		ParticipantID: participant,
		Tier:          domain.TierGold,
		Reward:        domain.RewardDescriptor{Currency: 500},
	}
}

func newTestQueue(t *testing.T, cfg PoolConfig, granter Granter, claimer Claimer, clock clockwork.Clock) *PoolQueue {
	t.Helper()
	q, err := NewPoolQueue(cfg, granter, claimer, clock)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = q.Shutdown(ctx)
	})
	return q
}

func TestPoolQueue_GrantsAndClaims(t *testing.T) {
	granter := &mockGranter{}
	granter.On("Grant", mock.Anything, mock.Anything).Return(nil)
	claimer := newFakeClaimer()
	q := newTestQueue(t, PoolConfig{Size: 2}, granter, claimer, nil)

	g := testGrant("alice")
	require.NoError(t, q.Enqueue(context.Background(), g))

	require.Eventually(t, func() bool { return claimer.isClaimed(g) }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return q.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)
	granter.AssertCalled(t, "Grant", mock.Anything, g)
}

func TestPoolQueue_EmptyRewardSkipsGranter(t *testing.T) {
	granter := &mockGranter{}
	claimer := newFakeClaimer()
	q := newTestQueue(t, PoolConfig{}, granter, claimer, nil)

	g := testGrant("bob")
	g.Reward = domain.RewardDescriptor{}
	require.NoError(t, q.Enqueue(context.Background(), g))

	require.Eventually(t, func() bool { return claimer.isClaimed(g) }, 2*time.Second, 5*time.Millisecond)
	granter.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything)
}

func TestPoolQueue_RetriesWithBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	granter := &mockGranter{}
	granter.On("Grant", mock.Anything, mock.Anything).Return(errors.New("loot service down")).Once()
	granter.On("Grant", mock.Anything, mock.Anything).Return(nil)
	claimer := newFakeClaimer()
	q := newTestQueue(t, PoolConfig{MaxAttempts: 3, RetryDelay: time.Second}, granter, claimer, clock)

	g := testGrant("carol")
	require.NoError(t, q.Enqueue(context.Background(), g))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1), "first failure arms a backoff timer")
	assert.False(t, claimer.isClaimed(g))

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return claimer.isClaimed(g) }, 2*time.Second, 5*time.Millisecond)
	granter.AssertNumberOfCalls(t, "Grant", 2)
}

func TestPoolQueue_GivesUpAfterMaxAttempts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	granter := &mockGranter{}
	granter.On("Grant", mock.Anything, mock.Anything).Return(errors.New("inventory full"))
	claimer := newFakeClaimer()
	q := newTestQueue(t, PoolConfig{MaxAttempts: 2, RetryDelay: time.Second}, granter, claimer, clock)

	g := testGrant("dave")
	require.NoError(t, q.Enqueue(context.Background(), g))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)

	require.Eventually(t, func() bool { return q.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, claimer.isClaimed(g))
	granter.AssertNumberOfCalls(t, "Grant", 2)
}

func TestPoolQueue_ClaimFailureRetries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	granter := &mockGranter{}
	granter.On("Grant", mock.Anything, mock.Anything).Return(nil)
	claimer := newFakeClaimer()
	claimer.err = errors.New("db down")
	q := newTestQueue(t, PoolConfig{MaxAttempts: 2, RetryDelay: time.Second}, granter, claimer, clock)

	require.NoError(t, q.Enqueue(context.Background(), testGrant("erin")))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, 1, q.Pending())
}

func TestPoolQueue_DeduplicatesInFlight(t *testing.T) {
	release := make(chan struct{})
	granter := &mockGranter{}
	granter.On("Grant", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(nil)
	claimer := newFakeClaimer()
	q := newTestQueue(t, PoolConfig{Size: 4}, granter, claimer, nil)

	g := testGrant("frank")
	require.NoError(t, q.Enqueue(context.Background(), g))
	require.NoError(t, q.Enqueue(context.Background(), g))
	close(release)

	require.Eventually(t, func() bool { return claimer.isClaimed(g) }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return q.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)
	granter.AssertNumberOfCalls(t, "Grant", 1)
}

func TestPoolQueue_ShutdownCancelsBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	granter := &mockGranter{}
	granter.On("Grant", mock.Anything, mock.Anything).Return(errors.New("down"))
	q, err := NewPoolQueue(PoolConfig{MaxAttempts: 5, RetryDelay: time.Hour}, granter, newFakeClaimer(), clock)
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(context.Background(), testGrant("gina")))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	require.NoError(t, q.Shutdown(ctx))
	assert.Equal(t, 0, q.Pending())
}

func TestGrantArgs(t *testing.T) {
	args := GrantArgs{Grant: testGrant("hank"), MaxAttempts: 7}
	assert.Equal(t, JobKindRewardGrant, args.Kind())

	opts := args.InsertOpts()
	assert.Equal(t, river.QueueDefault, opts.Queue)
	assert.Equal(t, 7, opts.MaxAttempts)
	assert.True(t, opts.UniqueOpts.ByArgs)

	assert.Equal(t, DefaultMaxAttempts, GrantArgs{}.InsertOpts().MaxAttempts)

	encoded, err := json.Marshal(args)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "MaxAttempts", "attempt limit is not part of the unique args")
}

func riverJob(g domain.RewardGrant, attempt, maxAttempts int) *river.Job[GrantArgs] {
	return &river.Job[GrantArgs]{
		JobRow: &rivertype.JobRow{ID: 1, Attempt: attempt, MaxAttempts: maxAttempts},
		Args:   GrantArgs{Grant: g},
	}
}

func TestGrantWorker_Work(t *testing.T) {
	granter := &mockGranter{}
	granter.On("Grant", mock.Anything, mock.Anything).Return(nil)
	claimer := newFakeClaimer()
	w := NewGrantWorker(granter, claimer, 0)
	assert.Equal(t, DefaultRetryDelay, w.retryDelay)

	g := testGrant("ivy")
	require.NoError(t, w.Work(context.Background(), riverJob(g, 1, 5)))
	assert.True(t, claimer.isClaimed(g))
}

func TestGrantWorker_WorkFailure(t *testing.T) {
	granter := &mockGranter{}
	granter.On("Grant", mock.Anything, mock.Anything).Return(errors.New("nope"))
	w := NewGrantWorker(granter, newFakeClaimer(), time.Second)

	err := w.Work(context.Background(), riverJob(testGrant("jo"), 1, 5))
	assert.ErrorIs(t, err, domain.ErrRewardGrantFailed)

	next := w.NextRetry(riverJob(testGrant("jo"), 3, 5))
	assert.WithinDuration(t, time.Now().Add(4*time.Second), next, time.Second)
}

func TestGrantWorker_Uninitialized(t *testing.T) {
	var w *GrantWorker
	err := w.Work(context.Background(), riverJob(testGrant("kim"), 1, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestGrantErrorHandler(t *testing.T) {
	encoded, err := json.Marshal(GrantArgs{Grant: testGrant("lee")})
	require.NoError(t, err)

	h := grantErrorHandler{}
	row := &rivertype.JobRow{ID: 3, Attempt: 5, MaxAttempts: 5, EncodedArgs: encoded}
	assert.Nil(t, h.HandleError(context.Background(), row, errors.New("final failure")))
	assert.Nil(t, h.HandlePanic(context.Background(), row, "boom", "trace"))

	row.EncodedArgs = []byte("{")
	assert.Nil(t, h.HandleError(context.Background(), row, errors.New("undecodable")))
}
