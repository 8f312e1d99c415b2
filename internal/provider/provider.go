// ABOUTME: Completion Client boundary for external language-model providers
// ABOUTME: Defines the Client interface and the single opaque completion failure

package provider

import (
	"context"

	"github.com/itsharex/Kaas/internal/store"
)

// Error is the single opaque failure surfaced by a completion call.
// Callers never branch on anything beyond the kind; Cause is for humans.
type Error struct {
	Cause string
}

func (e *Error) Error() string {
	return "completion failed: " + e.Cause
}

// Client performs a single-shot completion call against an external model
// provider. The provider call may stream internally, but this boundary
// returns the fully assembled text or fails. No retry happens inside a
// Client; retry, if any, is the caller's responsibility.
type Client interface {
	// Complete sends the message with per-conversation options (a serialized
	// blob parsed at this boundary) and the conversation's model config.
	Complete(ctx context.Context, message store.Message, options string, config store.Model) (string, error)

	// CompleteWithConfig is the legacy two-argument form used when no
	// per-conversation options exist.
	CompleteWithConfig(ctx context.Context, message store.Message, config store.Model) (string, error)
}
