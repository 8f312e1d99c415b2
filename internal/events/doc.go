// Package events provides the named, best-effort pub/sub channel between
// the reply orchestrator and its subscriber (the GUI shell).
//
// The channel is duplex by convention: the orchestrator emits progress on
// "bot-reply" while the subscriber emits cancellation intent on "stop-bot".
// Delivery is fire-and-forget; Emit returns ErrNoSubscribers when nobody is
// registered, and that failure is final, not retriable.
//
// Ordering is guaranteed only for repeated emissions of the same event name
// from the same goroutine. Handlers run synchronously on the emitter's
// goroutine, so they must not block.
package events
