// Package events provides an SSE event broadcaster for namespace changes.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/fruitsalade/memfs/internal/metrics"
	"github.com/fruitsalade/memfs/pkg/namespace"
)

const (
	EventCreate = "create"
	EventDelete = "delete"
	EventMove   = "move"
	EventCopy   = "copy"
	EventRename = "rename"
	EventWrite  = "write"
	EventLoad   = "load"
)

// bufferSize is the per-subscriber queue length. Events beyond it are
// dropped for that subscriber.
const bufferSize = 64

// Event represents a namespace change.
type Event struct {
	Type      string `json:"type"`
	Path      string `json:"path"`
	Target    string `json:"target,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"timestamp"`
}

// Broadcaster manages SSE subscribers and publishes events.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewBroadcaster creates a new event broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe adds a new subscriber and returns its event channel.
// The caller must call Unsubscribe when done.
func (b *Broadcaster) Subscribe() chan Event {
	ch := make(chan Event, bufferSize)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	n := len(b.subscribers)
	b.mu.Unlock()
	metrics.SetSSEConnectionsActive(int64(n))
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	n := len(b.subscribers)
	b.mu.Unlock()
	metrics.SetSSEConnectionsActive(int64(n))
}

// Publish sends an event to all subscribers. Non-blocking: drops events
// for slow consumers.
func (b *Broadcaster) Publish(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
	metrics.RecordSSEEvent(event.Type)
}

// Count returns the current number of subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Observer returns a namespace observer that publishes every successful
// mutation. Queries and failed operations are not published.
func (b *Broadcaster) Observer() namespace.Observer {
	return namespace.ObserverFunc(func(ev namespace.Event) {
		if ev.Err != nil || !ev.Op.Mutating() {
			return
		}
		e := Event{
			Type:   string(ev.Op),
			Path:   ev.Path,
			Target: ev.Target,
			Size:   ev.Size,
			Seq:    ev.Seq,
		}
		if ev.Kind != 0 {
			e.Kind = ev.Kind.String()
		}
		b.Publish(e)
	})
}

// MarshalEvent serializes an event to JSON.
func MarshalEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}
