// Package pubsub fans out change events to in-process subscribers.
package pubsub

import (
	"log/slog"
	"sync"
)

const defaultBuffer = 16

// Broker delivers published values to every current subscriber.
// Publishing never blocks: a subscriber whose buffer is full misses the value.
type Broker[T any] struct {
	mu     sync.RWMutex
	subs   map[int64]chan T
	nextID int64
	buffer int
	name   string
	closed bool
}

// NewBroker creates a broker whose subscriber channels hold buffer values.
func NewBroker[T any](name string, buffer int) *Broker[T] {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broker[T]{
		subs:   make(map[int64]chan T),
		buffer: buffer,
		name:   name,
	}
}

// Subscribe registers a new subscriber. The returned cancel func removes it
// and closes the channel; calling it more than once is safe.
func (b *Broker[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.nextID++
	id := b.nextID
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Broker[T]) remove(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish sends v to all subscribers without waiting on any of them.
func (b *Broker[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- v:
		default:
			slog.Warn("Subscriber buffer full, dropping event", "broker", b.name, "subscriber", id)
		}
	}
}

// Len returns the number of active subscribers.
func (b *Broker[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close removes every subscriber and closes their channels.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
