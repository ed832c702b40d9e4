package event

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

// flakyBus fails the calls for which failOn returns true.
type flakyBus struct {
	mu     sync.Mutex
	calls  []Event
	failOn func(call int) bool
}

func (b *flakyBus) Publish(_ context.Context, event Event) error {
	b.mu.Lock()
	b.calls = append(b.calls, event)
	n := len(b.calls)
	b.mu.Unlock()

	if b.failOn != nil && b.failOn(n) {
		return errors.New("subscriber unavailable")
	}
	return nil
}

func (b *flakyBus) Subscribe(Type, Handler) {}

func (b *flakyBus) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func testEvent(id int) Event {
	return NewNotificationEvent(domain.EventWaveUpdate{
		Audience:   domain.Audience{Zone: domain.ZoneKey{ZoneID: 3}},
		WaveNumber: id,
	}, time.Unix(0, 0).UTC())
}

func readDeadLetters(t *testing.T, path string) []DeadLetterEntry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	entries, err := ReadDeadLetters(f)
	require.NoError(t, err)
	return entries
}

func waitForRetryTimer(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
}

func TestResilientPublisher_SuccessfulPublish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dead.jsonl")
	bus := &flakyBus{}

	rp, err := NewResilientPublisher(bus, 3, time.Second, path)
	require.NoError(t, err)

	require.NoError(t, rp.Publish(context.Background(), testEvent(1)))
	require.NoError(t, rp.Shutdown(context.Background()))

	assert.Equal(t, 1, bus.CallCount())
	assert.Empty(t, readDeadLetters(t, path))
}

func TestResilientPublisher_DefaultsMaxRetries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dead.jsonl")
	clock := clockwork.NewFakeClock()
	bus := &flakyBus{failOn: func(int) bool { return true }}

	rp, err := NewResilientPublisher(bus, 0, time.Second, path, WithClock(clock))
	require.NoError(t, err)
	assert.Equal(t, RetryMaxAttempts, rp.MaxRetries())

	rp.PublishWithRetry(context.Background(), testEvent(1))
	for attempt := 1; attempt <= RetryMaxAttempts; attempt++ {
		waitForRetryTimer(t, clock)
		clock.Advance(CalculateRetryDelay(time.Second, attempt))
	}
	assert.Eventually(t, func() bool {
		data, _ := os.ReadFile(path)
		return len(data) > 0
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, rp.Shutdown(context.Background()))

	entries := readDeadLetters(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, RetryMaxAttempts+1, entries[0].Attempts)
}

func TestResilientPublisher_RetrySuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dead.jsonl")
	clock := clockwork.NewFakeClock()
	bus := &flakyBus{failOn: func(call int) bool { return call == 1 }}

	rp, err := NewResilientPublisher(bus, 3, time.Second, path, WithClock(clock))
	require.NoError(t, err)

	rp.PublishWithRetry(context.Background(), testEvent(1))
	waitForRetryTimer(t, clock)
	clock.Advance(time.Second)

	assert.Eventually(t, func() bool { return bus.CallCount() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, rp.Shutdown(context.Background()))
	assert.Empty(t, readDeadLetters(t, path))
}

func TestResilientPublisher_RetryExhaustion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dead.jsonl")
	clock := clockwork.NewFakeClock()
	bus := &flakyBus{failOn: func(int) bool { return true }}

	rp, err := NewResilientPublisher(bus, 3, time.Second, path, WithClock(clock))
	require.NoError(t, err)

	rp.PublishWithRetry(context.Background(), testEvent(7))
	for attempt := 1; attempt <= 3; attempt++ {
		waitForRetryTimer(t, clock)
		clock.Advance(CalculateRetryDelay(time.Second, attempt))
	}

	assert.Eventually(t, func() bool {
		data, _ := os.ReadFile(path)
		return len(data) > 0
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, rp.Shutdown(context.Background()))

	entries := readDeadLetters(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, 4, entries[0].Attempts, "initial attempt plus three retries")
	assert.Equal(t, Type(domain.NotifyEventWaveUpdate), entries[0].Event.Type)
	assert.Equal(t, uint32(3), entries[0].Event.Metadata.Zone.ZoneID)
	assert.Contains(t, entries[0].LastError, "subscriber unavailable")
	assert.Equal(t, 4, bus.CallCount())
}

func TestResilientPublisher_ExponentialBackoff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dead.jsonl")
	clock := clockwork.NewFakeClock()
	bus := &flakyBus{failOn: func(call int) bool { return call <= 2 }}

	rp, err := NewResilientPublisher(bus, 5, time.Second, path, WithClock(clock))
	require.NoError(t, err)
	defer rp.Shutdown(context.Background())

	rp.PublishWithRetry(context.Background(), testEvent(1))

	waitForRetryTimer(t, clock)
	clock.Advance(time.Second)
	assert.Eventually(t, func() bool { return bus.CallCount() == 2 }, time.Second, 5*time.Millisecond)

	// Second retry waits twice as long.
	waitForRetryTimer(t, clock)
	clock.Advance(time.Second)
	assert.Never(t, func() bool { return bus.CallCount() > 2 }, 50*time.Millisecond, 5*time.Millisecond)
	clock.Advance(time.Second)
	assert.Eventually(t, func() bool { return bus.CallCount() == 3 }, time.Second, 5*time.Millisecond)
}

func TestResilientPublisher_QueueOverflow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dead.jsonl")
	dl, err := NewDeadLetterWriter(path)
	require.NoError(t, err)

	// No worker drains the queue, so everything past its capacity overflows.
	rp := &ResilientPublisher{
		bus:        &flakyBus{failOn: func(int) bool { return true }},
		clock:      clockwork.NewFakeClock(),
		retryQueue: make(chan retryEntry, 2),
		maxRetries: 3,
		retryDelay: time.Second,
		deadLetter: dl,
		shutdown:   make(chan struct{}),
	}

	for i := range 5 {
		rp.PublishWithRetry(context.Background(), testEvent(i))
	}
	assert.Len(t, rp.retryQueue, 2)
	require.NoError(t, dl.Close())

	assert.Len(t, readDeadLetters(t, path), 3)
}

func TestResilientPublisher_ShutdownFlushesQueue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dead.jsonl")
	bus := &flakyBus{failOn: func(call int) bool { return call <= 3 }}

	rp, err := NewResilientPublisher(bus, 5, time.Hour, path)
	require.NoError(t, err)

	for i := range 3 {
		rp.PublishWithRetry(context.Background(), testEvent(i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rp.Shutdown(ctx))

	assert.Equal(t, 6, bus.CallCount(), "each queued event gets one final attempt")
	assert.Empty(t, readDeadLetters(t, path))
}

func TestResilientPublisher_ConcurrentPublishes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dead.jsonl")
	bus := &flakyBus{}
	rp, err := NewResilientPublisher(bus, 3, time.Second, path)
	require.NoError(t, err)

	const goroutines, perGoroutine = 10, 5
	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range perGoroutine {
				rp.PublishWithRetry(context.Background(), testEvent(g*perGoroutine+j))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, rp.Shutdown(context.Background()))

	assert.Equal(t, goroutines*perGoroutine, bus.CallCount())
}

func TestCalculateRetryDelay(t *testing.T) {
	base := 2 * time.Second
	assert.Equal(t, 2*time.Second, CalculateRetryDelay(base, 1))
	assert.Equal(t, 4*time.Second, CalculateRetryDelay(base, 2))
	assert.Equal(t, 16*time.Second, CalculateRetryDelay(base, 4))
	assert.Equal(t, 2*time.Second, CalculateRetryDelay(base, 0))
}

func TestReadDeadLetters_SkipsBlankAndReportsBadLine(t *testing.T) {
	good := `{"schema_version":"1.0","event":{"type":"event.wave_update"},"attempts":4}`
	entries, err := ReadDeadLetters(strings.NewReader(good + "\n\n" + good + "\n"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = ReadDeadLetters(strings.NewReader(good + "\n{oops\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Len(t, entries, 1)
}

func TestSummarizeDeadLetters(t *testing.T) {
	at := func(sec int64) time.Time { return time.Unix(sec, 0).UTC() }
	entries := []DeadLetterEntry{
		{Event: Event{Type: "event.completed"}, Timestamp: at(5)},
		{Event: Event{Type: "event.wave_update"}, Timestamp: at(1)},
		{Event: Event{Type: "event.wave_update"}, Timestamp: at(9)},
		{Event: Event{Type: "boss.spawned"}, Timestamp: at(2)},
	}

	got := SummarizeDeadLetters(entries)
	require.Len(t, got, 3)
	assert.Equal(t, DeadLetterCount{Type: "event.wave_update", Count: 2, Latest: at(9)}, got[0])
	assert.Equal(t, Type("boss.spawned"), got[1].Type)
	assert.Equal(t, Type("event.completed"), got[2].Type)
}
