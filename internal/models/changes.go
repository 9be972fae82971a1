package models

import (
	"sync"
	"time"
)

// ChangeType is the kind of write that happened on the collection
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Change is pushed to subscribers after a successful write
type Change struct {
	Type   ChangeType `json:"type"`
	ItemID string     `json:"itemId"`
	At     time.Time  `json:"at"`
}

// Broker fans change events out to subscribers. Slow subscribers miss events
// instead of blocking writers; every event triggers a full reload anyway.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int]chan Change
	nextID int
}

// NewBroker creates an empty broker
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Change)}
}

// Subscribe registers a new listener. The returned func unsubscribes and closes the channel.
func (b *Broker) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Change, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers the change to every subscriber without blocking
func (b *Broker) Publish(change Change) {
	if change.At.IsZero() {
		change.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- change:
		default:
		}
	}
}
