// Package notify holds transient operator feedback messages.
package notify

import (
	"sync"
	"time"
)

// Kind classifies a notification.
type Kind string

const (
	// KindSuccess marks a confirmation message.
	KindSuccess Kind = "success"
	// KindError marks a failure message.
	KindError Kind = "error"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 3 * time.Second

// Notification is a single transient status message.
type Notification struct {
	Message   string    `json:"message"`
	Kind      Kind      `json:"kind"`
	ShownAt   time.Time `json:"shown_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type entry struct {
	note  Notification
	timer *time.Timer
}

// Center keeps at most one live notification per scope (an operator
// session). A newer notification replaces the current one and restarts
// the expiry timer; messages never stack.
type Center struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*entry
}

// NewCenter constructs a Center with the given display duration. A
// non-positive ttl falls back to DefaultTTL.
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{ttl: ttl, entries: make(map[string]*entry)}
}

// Notify replaces any current notification for scope and schedules its
// expiry. The most recent call wins.
func (c *Center) Notify(scope, message string, kind Kind) Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries[scope]; ok {
		prev.timer.Stop()
	}

	now := time.Now()
	note := Notification{
		Message:   message,
		Kind:      kind,
		ShownAt:   now,
		ExpiresAt: now.Add(c.ttl),
	}
	e := &entry{note: note}
	e.timer = time.AfterFunc(c.ttl, func() {
		c.expire(scope, e)
	})
	c.entries[scope] = e
	return note
}

// Current returns the live notification for scope, if any.
func (c *Center) Current(scope string) (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[scope]
	if !ok {
		return Notification{}, false
	}
	return e.note, true
}

// Clear drops the notification for scope immediately.
func (c *Center) Clear(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[scope]; ok {
		e.timer.Stop()
		delete(c.entries, scope)
	}
}

// TTL reports the configured display duration.
func (c *Center) TTL() time.Duration {
	return c.ttl
}

// expire removes the entry only if it is still the one the timer was
// armed for; a replacement issued in the meantime stays.
func (c *Center) expire(scope string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.entries[scope]; ok && current == e {
		delete(c.entries, scope)
	}
}
