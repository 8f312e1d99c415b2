// ABOUTME: Tagged failures returned by the command surface
// ABOUTME: Three opaque kinds: storage, completion, invalid_state

package command

import (
	"errors"

	"github.com/itsharex/Kaas/internal/bot"
	"github.com/itsharex/Kaas/internal/provider"
)

// Kind tags a command failure. Callers branch on the kind, never on the
// message or any inner structure.
type Kind string

const (
	KindStorage      Kind = "storage"
	KindCompletion   Kind = "completion"
	KindInvalidState Kind = "invalid_state"
)

// Error is the single failure shape of the command surface: a kind tag plus
// a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// storageErr wraps any persistence failure.
func storageErr(err error) *Error {
	return &Error{Kind: KindStorage, Message: err.Error()}
}

// botErr classifies a reply-orchestration failure by its source layer.
func botErr(err error) *Error {
	if errors.Is(err, bot.ErrInvalidState) {
		return &Error{Kind: KindInvalidState, Message: err.Error()}
	}
	var provErr *provider.Error
	if errors.As(err, &provErr) {
		return &Error{Kind: KindCompletion, Message: provErr.Cause}
	}
	return &Error{Kind: KindStorage, Message: err.Error()}
}
