package events

import (
	"sync"
	"time"
)

// Type labels a notification.
type Type string

const (
	TypeIndexProgress Type = "index-progress"
	TypeIndexComplete Type = "index-complete"
	TypeFileChanged   Type = "file-changed"
	TypeError         Type = "error"
)

// Event is a discrete, timestamped notification.
type Event struct {
	Type    Type      `json:"type"`
	Time    time.Time `json:"time"`
	File    string    `json:"file,omitempty"`
	Current int       `json:"current,omitempty"`
	Total   int       `json:"total,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Bus fans events out to subscribers. Delivery is best-effort: a
// subscriber whose buffer is full misses the event rather than blocking
// the publisher.
type Bus struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

func NewBus() *Bus { return &Bus{} }

// Subscribe returns a channel receiving future events.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Publish delivers e to all subscribers without blocking.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Close ends all subscriptions.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
