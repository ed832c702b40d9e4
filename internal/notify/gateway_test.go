package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/event"
)

var zone = domain.ZoneKey{ZoneID: 3, InstanceID: 1}

func TestGateway_PublishesTypedEvent(t *testing.T) {
	bus := event.NewMemoryBus()
	var got []event.Event
	event.SubscribeAll(bus, func(_ context.Context, e event.Event) error {
		got = append(got, e)
		return nil
	})

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	g := NewGateway(bus, clockwork.NewFakeClockAt(now))
	id := uuid.New()
	g.Notify(context.Background(), domain.EventWaveUpdate{
		Audience:   domain.Audience{Zone: zone},
		InstanceID: id,
		WaveNumber: 2,
		TotalWaves: 3,
	})

	require.Len(t, got, 1)
	assert.Equal(t, event.Type(domain.NotifyEventWaveUpdate), got[0].Type)
	assert.Equal(t, zone, got[0].Metadata.Zone)
	assert.Equal(t, now, got[0].PublishedAt)
	payload, err := event.DecodePayload[domain.EventWaveUpdate](got[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, id, payload.InstanceID)
	assert.Equal(t, 2, payload.WaveNumber)
}

func TestGateway_SwallowsBusErrors(t *testing.T) {
	bus := event.NewMemoryBus()
	bus.Subscribe(event.Type(domain.NotifyWorldBossKilled), func(context.Context, event.Event) error {
		return errors.New("subscriber down")
	})

	g := NewGateway(bus, nil)
	assert.NotPanics(t, func() {
		g.Notify(context.Background(), domain.WorldBossKilled{Audience: domain.Audience{Zone: zone}, BossID: 9})
	})
}

func TestWebhook_ForwardsZoneWideOnly(t *testing.T) {
	var mu sync.Mutex
	var received []event.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e event.Event
		if err := json.NewDecoder(r.Body).Decode(&e); err == nil {
			mu.Lock()
			received = append(received, e)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	bus := event.NewMemoryBus()
	NewWebhook(srv.URL).Subscribe(bus)
	g := NewGateway(bus, nil)

	g.Notify(context.Background(), domain.EventCompleted{Audience: domain.Audience{Zone: zone, Recipient: "alice"}, EventID: 1})
	g.Notify(context.Background(), domain.EventCompleted{Audience: domain.Audience{Zone: zone}, EventID: 1, Success: true})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, event.Type(domain.NotifyEventCompleted), received[0].Type)
	assert.Empty(t, received[0].Metadata.Recipient)
}

func TestWebhook_ErrorStatusDoesNotFailBus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	bus := event.NewMemoryBus()
	NewWebhook(srv.URL).Subscribe(bus)

	err := bus.Publish(context.Background(), event.NewNotificationEvent(
		domain.WorldBossDespawned{Audience: domain.Audience{Zone: zone}, BossID: 9, Reason: "window_closed"}, time.Now()))
	assert.NoError(t, err)
}

func TestWebhook_SendReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL).send(context.Background(), event.Event{Type: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
