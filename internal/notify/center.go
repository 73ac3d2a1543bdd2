// Package notify keeps the single transient notification shown to the user.
package notify

import (
	"sync"
	"time"

	"github.com/ashureev/assistant-studio/internal/metrics"
	"github.com/ashureev/assistant-studio/internal/pubsub"
	"github.com/google/uuid"
)

// DefaultTTL is how long a notification stays up when nobody dismisses it.
const DefaultTTL = 3 * time.Second

// Kind is the visual category of a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is a transient message for the user.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Event reports a change of the current notification. Notification is nil
// when it was dismissed or expired.
type Event struct {
	Notification *Notification `json:"notification"`
}

// Center holds at most one notification. Showing a new one replaces the
// previous one instead of queueing behind it.
type Center struct {
	mu     sync.Mutex
	ttl    time.Duration
	cur    *Notification
	timer  *time.Timer
	events *pubsub.Broker[Event]
}

// New creates a center whose notifications expire after ttl.
func New(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{
		ttl:    ttl,
		events: pubsub.NewBroker[Event]("notify", 16),
	}
}

// Success shows a success notification.
func (c *Center) Success(message string) Notification {
	return c.Show(KindSuccess, message)
}

// Error shows an error notification.
func (c *Center) Error(message string) Notification {
	return c.Show(KindError, message)
}

// Show replaces the current notification and schedules its expiry.
func (c *Center) Show(kind Kind, message string) Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.cur = &n
	c.timer = time.AfterFunc(c.ttl, func() { c.Dismiss(n.ID) })

	c.events.Publish(Event{Notification: &n})
	metrics.NotificationShown(string(kind))
	return n
}

// Current returns the notification on display, if any.
func (c *Center) Current() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return Notification{}, false
	}
	return *c.cur, true
}

// Dismiss clears the notification with the given id. It reports false when
// that notification is no longer the current one.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil || c.cur.ID != id {
		return false
	}
	c.cur = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.events.Publish(Event{})
	return true
}

// Subscribe returns a channel of notification changes.
func (c *Center) Subscribe() (<-chan Event, func()) {
	return c.events.Subscribe()
}

// Close stops the expiry timer and ends subscriptions.
func (c *Center) Close() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	c.events.Close()
}
