// Package livefeed pushes match updates to people watching a court.
// Clients subscribe per court; handlers publish when a match is created at the
// court or a player joins one. The HTTP side streams events as Server-Sent
// Events (see handlers.CourtFeed).
package livefeed

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Subscriber is one connected watcher of a court.
type Subscriber struct {
	CourtID string
	Send    chan []byte // Closed by the hub when the subscriber is dropped
}

// Event is a payload for every subscriber of CourtID.
type Event struct {
	CourtID string
	Data    []byte
}

// Hub fans published events out to subscribers, grouped by court.
// All changes to the subscriber map happen on the Run goroutine.
type Hub struct {
	subscribers map[string]map[*Subscriber]bool

	publish     chan *Event
	subscribe   chan *Subscriber
	unsubscribe chan *Subscriber
	done        chan struct{}

	// mu guards subscribers for readers outside Run (SubscriberCount).
	mu sync.RWMutex

	logger *slog.Logger
}

// NewHub creates a hub. Call Run in its own goroutine before using it.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Subscriber]bool),
		publish:     make(chan *Event, 256),
		subscribe:   make(chan *Subscriber),
		unsubscribe: make(chan *Subscriber),
		done:        make(chan struct{}),
		logger:      logger.With("component", "livefeed"),
	}
}

// Run processes subscriptions and events until stop is closed. On return every
// remaining subscriber channel is closed.
func (h *Hub) Run(stop <-chan struct{}) {
	defer func() {
		h.mu.Lock()
		for court, subs := range h.subscribers {
			for s := range subs {
				close(s.Send)
			}
			delete(h.subscribers, court)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-stop:
			return

		case s := <-h.subscribe:
			h.mu.Lock()
			if h.subscribers[s.CourtID] == nil {
				h.subscribers[s.CourtID] = make(map[*Subscriber]bool)
			}
			h.subscribers[s.CourtID][s] = true
			h.mu.Unlock()

		case s := <-h.unsubscribe:
			h.mu.Lock()
			h.remove(s)
			h.mu.Unlock()

		case ev := <-h.publish:
			h.mu.Lock()
			for s := range h.subscribers[ev.CourtID] {
				select {
				case s.Send <- ev.Data:
				default:
					// Full buffer: the watcher is too slow to keep up.
					h.logger.Warn("dropping slow feed subscriber", "court_id", s.CourtID)
					h.remove(s)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops s and closes its channel. Removing twice is a no-op.
// The caller holds mu.
func (h *Hub) remove(s *Subscriber) {
	subs, ok := h.subscribers[s.CourtID]
	if !ok || !subs[s] {
		return
	}
	delete(subs, s)
	close(s.Send)
	if len(subs) == 0 {
		delete(h.subscribers, s.CourtID)
	}
}

// Subscribe registers a watcher of courtID with a send buffer of size buffer.
// It returns nil once the hub has stopped.
func (h *Hub) Subscribe(courtID string, buffer int) *Subscriber {
	s := &Subscriber{CourtID: courtID, Send: make(chan []byte, buffer)}
	select {
	case h.subscribe <- s:
		return s
	case <-h.done:
		return nil
	}
}

// Unsubscribe removes s. Safe to call after the hub dropped s or stopped.
func (h *Hub) Unsubscribe(s *Subscriber) {
	select {
	case h.unsubscribe <- s:
	case <-h.done:
	}
}

// Publish queues data for every subscriber of courtID. It never blocks; when
// the queue is full the event is discarded.
func (h *Hub) Publish(courtID string, data []byte) {
	select {
	case h.publish <- &Event{CourtID: courtID, Data: data}:
	default:
		h.logger.Warn("feed queue full, event discarded", "court_id", courtID)
	}
}

// PublishJSON encodes v and publishes it to courtID.
func (h *Hub) PublishJSON(courtID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Publish(courtID, data)
	return nil
}

// SubscriberCount reports how many watchers courtID currently has.
func (h *Hub) SubscriberCount(courtID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[courtID])
}
