// ABOUTME: Store interface and data types for Kaas persistence
// ABOUTME: Defines Model, Conversation, Message, Setting and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Role identifies the author of a message. The wire encoding is fixed:
// 0 is the user, 1 is the bot.
type Role int

const (
	RoleUser Role = 0
	RoleBot  Role = 1
)

// String returns a human-readable role name.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleBot:
		return "bot"
	default:
		return "unknown"
	}
}

// Model is a provider configuration: which completion service to call and
// the credentials/endpoint to call it with. Conversations reference exactly
// one model.
type Model struct {
	ID        int64
	Provider  string
	APIKey    string
	Endpoint  string
	CreatedAt time.Time
}

// Conversation groups messages under one model configuration.
// Options holds the serialized per-conversation provider options blob; it is
// opaque at this layer and parsed only by the completion client.
type Conversation struct {
	ID        int64
	ModelID   int64
	Subject   string
	Options   string
	CreatedAt time.Time
}

// Message is a single turn within a conversation.
type Message struct {
	ID             int64
	ConversationID int64
	Role           Role
	Content        string
	CreatedAt      time.Time
}

// NewMessage is the insert shape for a message; ID and CreatedAt are
// assigned by the store.
type NewMessage struct {
	ConversationID int64
	Role           Role
	Content        string
}

// Setting is a key/value application setting.
type Setting struct {
	Key   string
	Value string
}

// ConversationListItem is the list-view projection: a conversation joined to
// its model's provider name and its message count.
type ConversationListItem struct {
	Conversation
	ModelProvider string
	MessageCount  int
}

// Store defines the interface for Kaas persistence.
// A failed operation surfaces one opaque error carrying a cause; the only
// error callers may branch on is ErrNotFound.
type Store interface {
	// Models
	CreateModel(ctx context.Context, model Model) (Model, error)
	ListModels(ctx context.Context) ([]Model, error)

	// Settings
	ListSettings(ctx context.Context) ([]Setting, error)
	UpsertSetting(ctx context.Context, setting Setting) (Setting, error)

	// Conversations
	CreateConversationWithMessage(ctx context.Context, conversation Conversation, firstMessage NewMessage) (Conversation, Message, error)
	ListConversations(ctx context.Context) ([]ConversationListItem, error)
	GetConversationOptions(ctx context.Context, conversationID int64) (string, error)
	GetConversationConfig(ctx context.Context, conversationID int64) (Model, error)
	UpdateConversationOptions(ctx context.Context, conversationID int64, options string) (string, error)

	// Messages
	CreateMessage(ctx context.Context, msg NewMessage) (Message, error)
	ListMessages(ctx context.Context, conversationID int64) ([]Message, error)
	GetLastMessage(ctx context.Context, conversationID int64) (Message, error)
	GetModelOfMessage(ctx context.Context, msg Message) (Model, error)

	// Close releases any resources held by the store
	Close() error
}
