// ABOUTME: Named, best-effort pub/sub channel between the orchestrator and its subscriber
// ABOUTME: Carries bot-reply progress events one way and cancellation signals the other

package events

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrNoSubscribers is returned by Emit when no handler is registered for the
// event name. It means nobody received the payload, not that delivery can be
// retried against a transient condition.
var ErrNoSubscribers = errors.New("no subscribers for event")

// Handler receives the payload of one emitted event. It is invoked once per
// emission; multiple emissions invoke it multiple times.
type Handler func(payload string)

// Channel provides named, two-directional, best-effort signaling scoped to
// one subscriber context. Emissions of the same name from the same goroutine
// are delivered in order; no ordering is guaranteed across different names.
type Channel struct {
	mu       sync.RWMutex
	handlers map[string]map[string]Handler // eventName -> subID -> handler
	logger   *slog.Logger
}

// NewChannel creates a channel. Pass nil logger for default.
func NewChannel(logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		handlers: make(map[string]map[string]Handler),
		logger:   logger.With("component", "events"),
	}
}

// Emit delivers a payload to every handler currently registered for the
// event name. Handlers run synchronously on the caller's goroutine.
// Returns ErrNoSubscribers if nobody is registered.
func (c *Channel) Emit(name, payload string) error {
	c.mu.RLock()
	subs := c.handlers[name]
	if len(subs) == 0 {
		c.mu.RUnlock()
		return ErrNoSubscribers
	}

	// Copy handlers under the read lock so a handler may subscribe or
	// unsubscribe without deadlocking.
	targets := make([]Handler, 0, len(subs))
	for _, h := range subs {
		targets = append(targets, h)
	}
	c.mu.RUnlock()

	for _, h := range targets {
		h(payload)
	}
	return nil
}

// Subscribe registers a handler for the given event name and returns a
// subscription ID for later unsubscription.
func (c *Channel) Subscribe(name string, h Handler) string {
	subID := uuid.New().String()

	c.mu.Lock()
	if _, ok := c.handlers[name]; !ok {
		c.handlers[name] = make(map[string]Handler)
	}
	c.handlers[name][subID] = h
	c.mu.Unlock()

	c.logger.Debug("subscriber added", "event", name, "sub_id", subID)
	return subID
}

// Unsubscribe removes a subscription. Idempotent; safe to call for a
// subscription that was already removed or never signaled.
func (c *Channel) Unsubscribe(name, subID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs, ok := c.handlers[name]
	if !ok {
		return
	}
	if _, exists := subs[subID]; !exists {
		return
	}

	delete(subs, subID)
	if len(subs) == 0 {
		delete(c.handlers, name)
	}

	c.logger.Debug("subscriber removed", "event", name, "sub_id", subID)
}

// HasSubscribers reports whether any handler is registered for the event name.
func (c *Channel) HasSubscribers(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handlers[name]) > 0
}

// Close drops all subscriptions.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name := range c.handlers {
		delete(c.handlers, name)
	}

	c.logger.Debug("event channel closed")
}
