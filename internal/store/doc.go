// Package store provides persistent storage for Kaas using SQLite.
//
// # Data model
//
//   - Model: a provider configuration (provider name, credentials, endpoint)
//   - Conversation: a thread of messages owned by exactly one Model, with a
//     serialized provider-options blob that this package never interprets
//   - Message: one turn, RoleUser (0) or RoleBot (1) on the wire
//   - Setting: a key/value application setting
//
// Entities are append-only: nothing is deleted or mutated after creation
// except the conversation options blob, which is replaceable via
// UpdateConversationOptions, and setting values, which upsert by key.
//
// # Guarantees
//
//   - CreateConversationWithMessage creates the conversation and its seed
//     message in one transaction; a failure leaves neither visible.
//   - ListConversations joins each conversation to its model's provider name
//     (inner join: a conversation without a model does not appear) and to a
//     message count (outer join: zero-message conversations still appear).
//   - GetLastMessage returns ErrNotFound for a conversation with no messages.
//
// # Errors
//
// Failures are opaque wrapped errors carrying a cause; ErrNotFound is the
// only sentinel callers may branch on.
package store
