// ABOUTME: Command surface consumed by the GUI shell and the CLI
// ABOUTME: Thin, uniformly tagged wrappers over the store and the reply orchestrator

package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/itsharex/Kaas/internal/bot"
	"github.com/itsharex/Kaas/internal/store"
)

// NewConversation is the caller's shape for starting a conversation: a model
// reference and the first user message, which also becomes the subject.
type NewConversation struct {
	ModelID int64
	Message string
}

// Commands exposes every operation of the Kaas core as a method returning a
// success value or a tagged *Error.
type Commands struct {
	store  store.Store
	bot    *bot.Service
	logger *slog.Logger
}

// New creates the command surface. Pass nil logger for default.
func New(st store.Store, botSvc *bot.Service, logger *slog.Logger) *Commands {
	if logger == nil {
		logger = slog.Default()
	}
	return &Commands{
		store:  st,
		bot:    botSvc,
		logger: logger.With("component", "command"),
	}
}

// CreateModel registers a new model configuration.
func (c *Commands) CreateModel(ctx context.Context, model store.Model) (store.Model, error) {
	result, err := c.store.CreateModel(ctx, model)
	if err != nil {
		return store.Model{}, storageErr(err)
	}
	return result, nil
}

// ListModels returns all model configurations.
func (c *Commands) ListModels(ctx context.Context) ([]store.Model, error) {
	result, err := c.store.ListModels(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return result, nil
}

// ListSettings returns all application settings.
func (c *Commands) ListSettings(ctx context.Context) ([]store.Setting, error) {
	result, err := c.store.ListSettings(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return result, nil
}

// UpsertSetting inserts or updates a setting by key.
func (c *Commands) UpsertSetting(ctx context.Context, setting store.Setting) (store.Setting, error) {
	result, err := c.store.UpsertSetting(ctx, setting)
	if err != nil {
		return store.Setting{}, storageErr(err)
	}
	return result, nil
}

// CreateConversation creates a conversation seeded with its first user
// message; the message text doubles as the subject.
func (c *Commands) CreateConversation(ctx context.Context, nc NewConversation) (store.Conversation, error) {
	conv, _, err := c.store.CreateConversationWithMessage(ctx,
		store.Conversation{ModelID: nc.ModelID, Subject: nc.Message},
		store.NewMessage{Role: store.RoleUser, Content: nc.Message})
	if err != nil {
		return store.Conversation{}, storageErr(err)
	}
	return conv, nil
}

// ListConversations returns the conversation list view.
func (c *Commands) ListConversations(ctx context.Context) ([]store.ConversationListItem, error) {
	start := time.Now()
	result, err := c.store.ListConversations(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	c.logger.Debug("listed conversations", "count", len(result), "elapsed", time.Since(start))
	return result, nil
}

// CreateMessage appends a message to a conversation.
func (c *Commands) CreateMessage(ctx context.Context, msg store.NewMessage) (store.Message, error) {
	start := time.Now()
	result, err := c.store.CreateMessage(ctx, msg)
	if err != nil {
		return store.Message{}, storageErr(err)
	}
	c.logger.Debug("created message", "id", result.ID, "elapsed", time.Since(start))
	return result, nil
}

// ListMessages returns all messages of a conversation in creation order.
func (c *Commands) ListMessages(ctx context.Context, conversationID int64) ([]store.Message, error) {
	result, err := c.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, storageErr(err)
	}
	return result, nil
}

// CallBot is the legacy blocking invocation: reply to one user message with
// the model resolved through its conversation.
func (c *Commands) CallBot(ctx context.Context, userMessage store.Message) (store.Message, error) {
	result, err := c.bot.Reply(ctx, userMessage)
	if err != nil {
		return store.Message{}, botErr(err)
	}
	return result, nil
}

// CallBotWithConversation runs a blocking reply for the conversation's last
// message and returns the persisted bot message.
func (c *Commands) CallBotWithConversation(ctx context.Context, conversationID int64) (store.Message, error) {
	start := time.Now()
	result, err := c.bot.ReplyToConversation(ctx, conversationID)
	if err != nil {
		return store.Message{}, botErr(err)
	}
	c.logger.Debug("bot call finished", "conversation_id", conversationID, "elapsed", time.Since(start))
	return result, nil
}

// CallBotDetached starts a detached reply run. Preflight failures are
// returned here; everything after the acknowledgment flows through the
// event channel.
func (c *Commands) CallBotDetached(ctx context.Context, conversationID int64) error {
	if err := c.bot.ReplyDetached(ctx, conversationID); err != nil {
		return botErr(err)
	}
	return nil
}

// GetOptions returns a conversation's serialized provider options blob.
func (c *Commands) GetOptions(ctx context.Context, conversationID int64) (string, error) {
	result, err := c.store.GetConversationOptions(ctx, conversationID)
	if err != nil {
		return "", storageErr(err)
	}
	return result, nil
}

// UpdateOptions replaces a conversation's provider options blob and returns
// the stored value.
func (c *Commands) UpdateOptions(ctx context.Context, conversationID int64, options string) (string, error) {
	result, err := c.store.UpdateConversationOptions(ctx, conversationID, options)
	if err != nil {
		return "", storageErr(err)
	}
	return result, nil
}
