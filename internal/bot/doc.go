// Package bot orchestrates bot replies for conversations.
//
// # Overview
//
// The bot package is the control-flow core of Kaas: it validates a
// conversation's state, invokes the completion provider, streams framed
// progress events to the GUI subscriber, honors out-of-band cancellation,
// and persists the reply exactly once.
//
// # Run lifecycle
//
// One run moves through a fixed sequence:
//
//  1. Preflight: fetch the conversation's last message and fail unless it is
//     user-authored; fetch the options blob and model config. Any failure
//     here aborts before an external call is made or an event is emitted.
//  2. Completion: a single-shot call to the provider client.
//  3. Delivery: framed events on the "bot-reply" channel.
//  4. Persistence: the reply is stored as a RoleBot message on success.
//
// # Delivery modes
//
// Blocking mode (Reply, ReplyToConversation) runs the whole sequence on the
// caller's goroutine and returns the persisted bot message.
//
// Detached mode (ReplyDetached) acknowledges the caller after preflight and
// runs the rest on its own goroutine, communicating solely through the event
// channel:
//
//	[[START]]            run accepted, completion in flight
//	<reply text>         the assembled reply
//	[[DONE]]             run finished successfully
//	[[ERROR]]<cause>     completion failed; nothing was persisted
//
// Each emission is attempted at most twice (deliver-with-one-retry); a
// double failure is swallowed because delivery is best-effort, and
// persistence proceeds regardless of delivery outcome.
//
// # Cancellation
//
// A detached run subscribes to "stop-bot" for its duration. The signal
// cancels the run's context, which aborts the in-flight provider call; a
// cancelled run emits nothing further and persists nothing, so the
// subscriber sees an unresolved sequence (no [[DONE]], no [[ERROR]]). The
// subscription is released on every exit path.
//
// # Concurrency
//
// Runs for the same conversation are mutually exclusive. Blocking callers
// wait for the active run; a second detached start fails fast with
// ErrInvalidState instead of queueing.
package bot
