// Package events fans chain events out to any number of subscribers.
package events

import (
	"fmt"
	"sync"
)

// subscriberBuffer is how many events a subscriber can fall behind before
// events are dropped for it.
const subscriberBuffer = 100

// Events maintains a mapping of unique id and channels so goroutines
// can subscribe to chain events.
type Events struct {
	m  map[string]chan string
	mu sync.RWMutex
}

// New constructs an empty set of subscribers.
func New() *Events {
	return &Events{
		m: make(map[string]chan string),
	}
}

// Shutdown closes and removes every subscriber channel.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire returns the channel for the id, creating it the first time the id
// is seen.
func (evt *Events) Acquire(id string) <-chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.m[id]; exists {
		return ch
	}

	ch := make(chan string, subscriberBuffer)
	evt.m[id] = ch

	return ch
}

// Release closes and removes the channel for the id.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)

	return nil
}

// Send formats the event and delivers it to every subscriber that has room
// for it. Send never blocks.
func (evt *Events) Send(v string, args ...any) {
	s := fmt.Sprintf(v, args...)

	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.m {
		select {
		case ch <- s:
		default:
		}
	}
}
