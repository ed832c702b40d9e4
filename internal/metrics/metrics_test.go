package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/event"
)

func publish(t *testing.T, bus event.Bus, n domain.Notification) {
	t.Helper()
	require.NoError(t, bus.Publish(context.Background(), event.NewNotificationEvent(n, time.Now())))
}

func TestEventMetricsCollector(t *testing.T) {
	bus := event.NewMemoryBus()
	require.NoError(t, NewEventMetricsCollector().Register(bus))

	zone := domain.Audience{Zone: domain.ZoneKey{ZoneID: 1}}
	started := InstancesStarted.WithLabelValues(string(domain.EventTypeInvasion))
	completed := InstancesFinished.WithLabelValues(string(domain.StateCompleted))
	killed := BossEncounters.WithLabelValues(OutcomeKilled)
	beforeStarted := testutil.ToFloat64(started)
	beforeCompleted := testutil.ToFloat64(completed)
	beforeKilled := testutil.ToFloat64(killed)

	publish(t, bus, domain.EventStarted{Audience: zone, Type: domain.EventTypeInvasion})
	publish(t, bus, domain.EventCompleted{Audience: zone, State: domain.StateCompleted, Success: true})
	publish(t, bus, domain.EventCompleted{
		Audience: domain.Audience{Zone: zone.Zone, Recipient: "alice"},
		State:    domain.StateCompleted,
	})
	publish(t, bus, domain.WorldBossKilled{Audience: zone, BossID: 9})

	assert.Equal(t, beforeStarted+1, testutil.ToFloat64(started))
	assert.Equal(t, beforeCompleted+1, testutil.ToFloat64(completed), "per-participant copies are not outcomes")
	assert.Equal(t, beforeKilled+1, testutil.ToFloat64(killed))
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/events/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/events/{id}", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/abc", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestMiddleware_KeepsStreamsFlushable(t *testing.T) {
	var flushable bool
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		f, ok := w.(http.Flusher)
		flushable = ok
		if ok {
			f.Flush()
		}
	}))

	counter := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/stream", "200")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))

	assert.True(t, flushable)
	assert.True(t, rec.Flushed)
	assert.Equal(t, before+1, testutil.ToFloat64(counter), "implicit 200 is recorded")
}
