// ABOUTME: Reply orchestrator: validates a conversation, calls the completion
// ABOUTME: provider, streams framed progress events, and persists the bot reply

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/itsharex/Kaas/internal/events"
	"github.com/itsharex/Kaas/internal/provider"
	"github.com/itsharex/Kaas/internal/store"
)

// Event names and sentinel payloads on the wire to the GUI subscriber.
// Sentinels frame the protocol: everything else on EventReply is reply text.
const (
	EventReply = "bot-reply"
	EventStop  = "stop-bot"

	PayloadStart = "[[START]]"
	PayloadDone  = "[[DONE]]"
	PayloadError = "[[ERROR]]"
)

// ErrInvalidState is returned when a reply is requested for a conversation
// whose last message is not user-authored, or while another run is already
// in flight for the conversation.
var ErrInvalidState = errors.New("invalid conversation state")

// persistTimeout bounds the write of the bot reply after a detached run; the
// run's own context may already be gone by then.
const persistTimeout = 5 * time.Second

// ConversationStore defines what the orchestrator needs from storage.
type ConversationStore interface {
	GetLastMessage(ctx context.Context, conversationID int64) (store.Message, error)
	GetConversationOptions(ctx context.Context, conversationID int64) (string, error)
	GetConversationConfig(ctx context.Context, conversationID int64) (store.Model, error)
	GetModelOfMessage(ctx context.Context, msg store.Message) (store.Model, error)
	CreateMessage(ctx context.Context, msg store.NewMessage) (store.Message, error)
}

// Service orchestrates bot replies: read-validate-call-persist, with framed
// progress events and out-of-band cancellation in detached mode.
type Service struct {
	store  ConversationStore
	client provider.Client
	events *events.Channel
	logger *slog.Logger

	// One run at a time per conversation. Blocking callers wait;
	// detached callers fail fast instead of queueing. The channel is
	// closed on release to wake waiters.
	mu      sync.Mutex
	running map[int64]chan struct{}
}

// New creates a reply orchestrator. Pass nil logger for default.
func New(store ConversationStore, client provider.Client, ch *events.Channel, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		client:  client,
		events:  ch,
		logger:  logger.With("component", "bot"),
		running: make(map[int64]chan struct{}),
	}
}

// preflight holds everything a run needs, resolved before any external call.
type preflight struct {
	lastMessage store.Message
	options     string
	config      store.Model
}

// Reply is the legacy blocking form: complete the given user message using
// the model resolved through its conversation, persist and return the bot
// reply. No per-conversation options are applied.
func (s *Service) Reply(ctx context.Context, userMessage store.Message) (store.Message, error) {
	if err := s.acquire(ctx, userMessage.ConversationID); err != nil {
		return store.Message{}, err
	}
	defer s.release(userMessage.ConversationID)

	config, err := s.store.GetModelOfMessage(ctx, userMessage)
	if err != nil {
		return store.Message{}, fmt.Errorf("resolving model of message %d: %w", userMessage.ID, err)
	}

	reply, err := s.client.CompleteWithConfig(ctx, userMessage, config)
	if err != nil {
		return store.Message{}, err
	}

	return s.persistReply(ctx, userMessage.ConversationID, reply)
}

// ReplyToConversation runs a blocking reply for the conversation's last
// message. The caller waits for the full round trip; on success the new bot
// message has been persisted.
func (s *Service) ReplyToConversation(ctx context.Context, conversationID int64) (store.Message, error) {
	if err := s.acquire(ctx, conversationID); err != nil {
		return store.Message{}, err
	}
	defer s.release(conversationID)

	pf, err := s.preflight(ctx, conversationID)
	if err != nil {
		return store.Message{}, err
	}

	s.logger.Info("calling bot",
		"conversation_id", conversationID,
		"message_id", pf.lastMessage.ID,
		"provider", pf.config.Provider)

	reply, err := s.client.Complete(ctx, pf.lastMessage, pf.options, pf.config)
	if err != nil {
		return store.Message{}, err
	}

	return s.persistReply(ctx, conversationID, reply)
}

// ReplyDetached starts a detached run for the conversation. Preflight
// failures are returned to the caller before any event is emitted; after
// that the run communicates solely through the event channel:
// Start, then reply text and Done on success, or Error on failure.
// A stop-bot signal cancels the run; a cancelled run emits nothing further
// and persists nothing.
func (s *Service) ReplyDetached(ctx context.Context, conversationID int64) error {
	if !s.tryAcquire(conversationID) {
		return fmt.Errorf("%w: a reply is already in progress for conversation %d",
			ErrInvalidState, conversationID)
	}

	pf, err := s.preflight(ctx, conversationID)
	if err != nil {
		s.release(conversationID)
		return err
	}

	go s.run(conversationID, pf)
	return nil
}

// run executes one detached orchestration. It owns the conversation lock,
// the run context, and the stop-bot subscription for its duration.
func (s *Service) run(conversationID int64, pf preflight) {
	defer s.release(conversationID)

	s.emitWithRetry(EventReply, PayloadStart)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subID := s.events.Subscribe(EventStop, func(string) {
		s.logger.Info("stop signal received", "conversation_id", conversationID)
		cancel()
	})
	defer s.events.Unsubscribe(EventStop, subID)

	s.logger.Info("calling bot",
		"conversation_id", conversationID,
		"message_id", pf.lastMessage.ID,
		"provider", pf.config.Provider)

	reply, err := s.client.Complete(runCtx, pf.lastMessage, pf.options, pf.config)

	if runCtx.Err() != nil {
		// Cancelled: the subscriber sees an unresolved sequence, which is
		// exactly what it should treat a stopped run as.
		s.logger.Info("run cancelled", "conversation_id", conversationID)
		return
	}

	if err != nil {
		s.emitWithRetry(EventReply, PayloadError+causeOf(err))
		return
	}

	s.emitWithRetry(EventReply, reply)
	s.emitWithRetry(EventReply, PayloadDone)

	// Persist independent of how emission went; the reply text is the
	// durable outcome of the run.
	persistCtx, cancelPersist := context.WithTimeout(context.Background(), persistTimeout)
	defer cancelPersist()
	if _, err := s.persistReply(persistCtx, conversationID, reply); err != nil {
		s.logger.Error("failed to persist bot reply",
			"error", err,
			"conversation_id", conversationID)
	}
}

// preflight fetches and validates everything a run needs. Any failure here
// aborts before an external call is made or an event is emitted.
func (s *Service) preflight(ctx context.Context, conversationID int64) (preflight, error) {
	last, err := s.store.GetLastMessage(ctx, conversationID)
	if err != nil {
		return preflight{}, fmt.Errorf("fetching last message: %w", err)
	}
	if last.Role != store.RoleUser {
		return preflight{}, fmt.Errorf("%w: the last message of conversation %d is not from the user",
			ErrInvalidState, conversationID)
	}

	options, err := s.store.GetConversationOptions(ctx, conversationID)
	if err != nil {
		return preflight{}, fmt.Errorf("fetching conversation options: %w", err)
	}

	config, err := s.store.GetConversationConfig(ctx, conversationID)
	if err != nil {
		return preflight{}, fmt.Errorf("fetching conversation config: %w", err)
	}

	return preflight{lastMessage: last, options: options, config: config}, nil
}

// persistReply stores the bot's reply as a new message on the conversation.
func (s *Service) persistReply(ctx context.Context, conversationID int64, reply string) (store.Message, error) {
	msg, err := s.store.CreateMessage(ctx, store.NewMessage{
		ConversationID: conversationID,
		Role:           store.RoleBot,
		Content:        reply,
	})
	if err != nil {
		return store.Message{}, fmt.Errorf("persisting bot reply: %w", err)
	}

	s.logger.Debug("bot reply persisted",
		"conversation_id", conversationID,
		"message_id", msg.ID)
	return msg, nil
}

// emitWithRetry delivers an event with at most one retry. A double failure
// is logged and swallowed: emission failure is not fatal to a run.
func (s *Service) emitWithRetry(name, payload string) {
	if err := s.events.Emit(name, payload); err != nil {
		s.logger.Warn("event emission failed, retrying once", "event", name, "error", err)
		if err := s.events.Emit(name, payload); err != nil {
			s.logger.Warn("event emission failed after retry, dropping", "event", name, "error", err)
		}
	}
}

// acquire takes the per-conversation run slot, waiting until it frees up or
// the context ends.
func (s *Service) acquire(ctx context.Context, conversationID int64) error {
	for {
		s.mu.Lock()
		done, busy := s.running[conversationID]
		if !busy {
			s.running[conversationID] = make(chan struct{})
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// tryAcquire takes the run slot without waiting.
func (s *Service) tryAcquire(conversationID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.running[conversationID]; busy {
		return false
	}
	s.running[conversationID] = make(chan struct{})
	return true
}

// release frees the run slot and wakes any waiters.
func (s *Service) release(conversationID int64) {
	s.mu.Lock()
	done := s.running[conversationID]
	delete(s.running, conversationID)
	s.mu.Unlock()

	if done != nil {
		close(done)
	}
}

// causeOf extracts the human-readable cause for the error event payload.
func causeOf(err error) string {
	var provErr *provider.Error
	if errors.As(err, &provErr) {
		return provErr.Cause
	}
	return err.Error()
}
