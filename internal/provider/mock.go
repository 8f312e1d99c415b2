// ABOUTME: Mock Client implementation for testing the orchestrator without a network
// ABOUTME: Scriptable reply/error, call counting, optional blocking for cancellation tests

package provider

import (
	"context"
	"sync"

	"github.com/itsharex/Kaas/internal/store"
)

// Mock is an in-memory Client that returns a scripted reply or error.
// When Block is set, calls park until the context is cancelled, which lets
// tests exercise out-of-band cancellation; Started is closed (once) when the
// first call begins.
type Mock struct {
	mu      sync.Mutex
	Reply   string
	Err     error
	Block   bool
	Started chan struct{}

	calls       int
	lastMessage store.Message
	lastOptions string
	started     bool
}

// NewMock creates a mock that replies with the given text.
func NewMock(reply string) *Mock {
	return &Mock{Reply: reply, Started: make(chan struct{})}
}

// Complete returns the scripted reply or error.
func (m *Mock) Complete(ctx context.Context, message store.Message, options string, config store.Model) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastMessage = message
	m.lastOptions = options
	if !m.started {
		m.started = true
		if m.Started != nil {
			close(m.Started)
		}
	}
	block := m.Block
	reply, err := m.Reply, m.Err
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

// CompleteWithConfig behaves like Complete without options.
func (m *Mock) CompleteWithConfig(ctx context.Context, message store.Message, config store.Model) (string, error) {
	return m.Complete(ctx, message, "", config)
}

// Calls returns how many completion calls were made.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastMessage returns the message passed to the most recent call.
func (m *Mock) LastMessage() store.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMessage
}

// LastOptions returns the options blob passed to the most recent call.
func (m *Mock) LastOptions() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOptions
}

// Ensure Mock implements Client
var _ Client = (*Mock)(nil)
