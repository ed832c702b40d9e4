package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/event"
)

var (
	zoneA = domain.ZoneKey{ZoneID: 1}
	zoneB = domain.ZoneKey{ZoneID: 2}
)

func TestFilter_Matches(t *testing.T) {
	wave := Event{Type: string(domain.NotifyEventWaveUpdate), Zone: &zoneA}
	personal := Event{Type: string(domain.NotifyEventCompleted), Zone: &zoneA, recipient: "alice"}

	tests := []struct {
		name   string
		filter Filter
		event  Event
		want   bool
	}{
		{"empty filter", Filter{}, wave, true},
		{"same zone", Filter{Zone: &zoneA}, wave, true},
		{"other zone", Filter{Zone: &zoneB}, wave, false},
		{"type allowed", Filter{Types: map[string]bool{string(domain.NotifyEventWaveUpdate): true}}, wave, true},
		{"type excluded", Filter{Types: map[string]bool{"world_boss.killed": true}}, wave, false},
		{"personal to owner", Filter{Participant: "alice"}, personal, true},
		{"personal to stranger", Filter{Participant: "bob"}, personal, false},
		{"personal to anonymous", Filter{}, personal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.event))
		})
	}
}

func TestHub_DeliversToMatchingClients(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	inA := hub.Register(Filter{Zone: &zoneA}, "")
	inB := hub.Register(Filter{Zone: &zoneB}, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(Event{Type: "event.started", Zone: &zoneA})

	select {
	case e := <-inA.EventChannel:
		assert.Equal(t, "event.started", e.Type)
		assert.NotEmpty(t, e.ID)
	case <-time.After(time.Second):
		t.Fatal("zone A client received nothing")
	}

	select {
	case e := <-inB.EventChannel:
		t.Fatalf("zone B client received %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	c := hub.Register(Filter{}, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(c.ID)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-c.EventChannel
	assert.False(t, open)
}

func TestSubscriber_ForwardsBusNotifications(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	bus := event.NewMemoryBus()
	NewSubscriber(hub, bus).Subscribe()

	alice := hub.Register(Filter{Zone: &zoneA, Participant: "alice"}, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	n := domain.ContributionUpdate{Audience: domain.Audience{Zone: zoneA, Recipient: "alice"}, ParticipantID: "alice", Contribution: 40}
	require.NoError(t, bus.Publish(context.Background(), event.NewNotificationEvent(n, time.Now())))

	select {
	case e := <-alice.EventChannel:
		assert.Equal(t, string(domain.NotifyContributionUpdate), e.Type)
		require.NotNil(t, e.Zone)
		assert.Equal(t, zoneA, *e.Zone)
	case <-time.After(time.Second):
		t.Fatal("no event forwarded")
	}
}

func TestHub_ReplaysAfterLastEventID(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	watcher := hub.Register(Filter{}, "")
	for _, id := range []string{"e1", "e2", "e3"} {
		zone := zoneA
		if id == "e3" {
			zone = zoneB
		}
		hub.Broadcast(Event{ID: id, Type: "event.started", Zone: &zone})
	}
	for range 3 {
		select {
		case <-watcher.EventChannel:
		case <-time.After(time.Second):
			t.Fatal("broadcast not delivered")
		}
	}

	resumed := hub.Register(Filter{Zone: &zoneA}, "e1")
	select {
	case e := <-resumed.EventChannel:
		assert.Equal(t, "e2", e.ID)
	case <-time.After(time.Second):
		t.Fatal("nothing replayed")
	}
	select {
	case e := <-resumed.EventChannel:
		t.Fatalf("unexpected replay of %s", e.ID)
	default:
	}

	unknown := hub.Register(Filter{}, "gone")
	select {
	case e := <-unknown.EventChannel:
		t.Fatalf("unexpected replay of %s", e.ID)
	default:
	}
}

func TestReplayRing_Wraps(t *testing.T) {
	r := newReplayRing(2)
	r.add(Event{ID: "a"})
	r.add(Event{ID: "b"})
	r.add(Event{ID: "c"})

	_, found := r.after("a")
	assert.False(t, found)

	events, found := r.after("b")
	require.True(t, found)
	require.Len(t, events, 1)
	assert.Equal(t, "c", events[0].ID)
}

func TestHub_StopClosesClientsAndRejectsLateRegister(t *testing.T) {
	hub := NewHub()
	hub.Start()
	c := hub.Register(Filter{}, "")
	hub.Stop()
	hub.Stop()

	_, open := <-c.EventChannel
	assert.False(t, open)

	late := hub.Register(Filter{}, "")
	_, open = <-late.EventChannel
	assert.False(t, open)
	assert.Zero(t, hub.ClientCount())
}

func TestFormatSSEMessage_OmitsEmptyID(t *testing.T) {
	msg, err := FormatSSEMessage(Event{Type: EventTypeKeepalive})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(msg), "event: keepalive\n"))
}

func TestFormatSSEMessage(t *testing.T) {
	msg, err := FormatSSEMessage(Event{ID: "1", Type: "keepalive", Timestamp: 5})
	require.NoError(t, err)
	s := string(msg)
	assert.True(t, strings.HasPrefix(s, "id: 1\nevent: keepalive\ndata: {"))
	assert.True(t, strings.HasSuffix(s, "\n\n"))
	assert.NotContains(t, s, "recipient")
}

func TestParseFilter(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/stream?zone=7/2&participant=alice&types=event.started,%20event.completed", nil)
	f, err := ParseFilter(r)
	require.NoError(t, err)
	require.NotNil(t, f.Zone)
	assert.Equal(t, domain.ZoneKey{ZoneID: 7, InstanceID: 2}, *f.Zone)
	assert.Equal(t, "alice", f.Participant)
	assert.True(t, f.Types["event.completed"])

	_, err = ParseFilter(httptest.NewRequest(http.MethodGet, "/stream?zone=north", nil))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHandler_StreamsEvents(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	srv := httptest.NewServer(Handler(hub))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?zone=1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEventType := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "event: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event: "))
			}
		}
	}

	assert.Equal(t, EventTypeConnected, readEventType())
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(Event{Type: "world_boss.spawned", Zone: &zoneA})
	assert.Equal(t, "world_boss.spawned", readEventType())
}

func TestHandler_BadZone(t *testing.T) {
	hub := NewHub()
	rec := httptest.NewRecorder()
	Handler(hub)(rec, httptest.NewRequest(http.MethodGet, "/stream?zone=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
