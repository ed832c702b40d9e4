package sse

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/WorldEvents_Go/internal/logger"
	"github.com/osse101/WorldEvents_Go/internal/metrics"
)

// Client is one open stream. EventChannel is closed when the client is
// unregistered or the hub stops.
type Client struct {
	ID           string
	EventChannel chan Event
	Filter       Filter
}

// Hub fans notifications out to stream clients. Delivery runs on a single
// goroutine so every client sees events in publish order, and the most recent
// events are kept for clients that reconnect with a Last-Event-ID.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*Client
	recent  *replayRing
	stopped bool

	queue    chan Event
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHub creates a hub. Call Start before broadcasting.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		recent:  newReplayRing(ReplayBufferSize),
		queue:   make(chan Event, BroadcastBufferSize),
		done:    make(chan struct{}),
	}
}

// Start launches the delivery loop.
func (h *Hub) Start() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case e := <-h.queue:
				h.deliver(e)
			case <-h.done:
				return
			}
		}
	}()
}

// Stop ends delivery and closes every client channel. Safe to call twice.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		h.mu.Lock()
		defer h.mu.Unlock()
		h.stopped = true
		for id, c := range h.clients {
			close(c.EventChannel)
			delete(h.clients, id)
		}
		metrics.SSEClients.Set(0)
	})
}

func (h *Hub) deliver(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.recent.add(e)
	for _, c := range h.clients {
		if c.Filter.Matches(e) {
			h.offer(c, e)
		}
	}
}

// offer never blocks: a lagging client misses the event. Caller holds mu.
func (h *Hub) offer(c *Client, e Event) {
	select {
	case c.EventChannel <- e:
	default:
		metrics.SSEDropped.WithLabelValues(metrics.ReasonClientLagging).Inc()
		logger.Debug(LogMsgClientLagging, "client_id", c.ID, "event_type", e.Type)
	}
}

// Register opens a client. When lastEventID names an event still held in the
// replay buffer, the matching events published after it are queued first.
func (h *Hub) Register(filter Filter, lastEventID string) *Client {
	c := &Client{
		ID:           uuid.NewString(),
		EventChannel: make(chan Event, ClientEventBuffer),
		Filter:       filter,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		close(c.EventChannel)
		return c
	}

	if lastEventID != "" {
		missed, found := h.recent.after(lastEventID)
		if !found {
			logger.Debug(LogMsgReplayExpired, "client_id", c.ID, "last_event_id", lastEventID)
		}
		for _, e := range missed {
			if filter.Matches(e) {
				h.offer(c, e)
			}
		}
	}

	h.clients[c.ID] = c
	metrics.SSEClients.Set(float64(len(h.clients)))
	return c
}

// Unregister closes and forgets a client. Unknown ids are ignored.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	close(c.EventChannel)
	delete(h.clients, clientID)
	metrics.SSEClients.Set(float64(len(h.clients)))
}

// Broadcast stamps the event and queues it for delivery. It never blocks; a
// full queue drops the event.
func (h *Hub) Broadcast(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().Unix()
	}

	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.queue <- e:
	default:
		metrics.SSEDropped.WithLabelValues(metrics.ReasonBroadcastFull).Inc()
		logger.Warn(LogMsgBroadcastDropped, "event_type", e.Type)
	}
}

// ClientCount reports the open streams.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// FormatSSEMessage renders one event in text/event-stream framing. The id
// field is omitted for events without an id so control frames do not reset
// the browser's Last-Event-ID.
func FormatSSEMessage(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(data) + len(e.ID) + len(e.Type) + 20)
	if e.ID != "" {
		buf.WriteString("id: ")
		buf.WriteString(e.ID)
		buf.WriteByte('\n')
	}
	buf.WriteString("event: ")
	buf.WriteString(e.Type)
	buf.WriteString("\ndata: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// replayRing holds the last N delivered events.
type replayRing struct {
	events []Event
	next   int
	full   bool
}

func newReplayRing(size int) *replayRing {
	return &replayRing{events: make([]Event, size)}
}

func (r *replayRing) add(e Event) {
	if len(r.events) == 0 {
		return
	}
	r.events[r.next] = e
	r.next = (r.next + 1) % len(r.events)
	if r.next == 0 {
		r.full = true
	}
}

// ordered returns the held events oldest first.
func (r *replayRing) ordered() []Event {
	if !r.full {
		return r.events[:r.next]
	}
	out := make([]Event, 0, len(r.events))
	out = append(out, r.events[r.next:]...)
	return append(out, r.events[:r.next]...)
}

// after returns the events that followed id. found is false when id has
// already been evicted or was never seen.
func (r *replayRing) after(id string) (events []Event, found bool) {
	held := r.ordered()
	for i, e := range held {
		if e.ID == id {
			return append([]Event(nil), held[i+1:]...), true
		}
	}
	return nil, false
}
