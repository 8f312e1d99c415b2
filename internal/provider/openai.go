// ABOUTME: OpenAI-compatible Client implementation built on go-openai
// ABOUTME: Builds a per-call client from the conversation's model config

package provider

import (
	"context"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/itsharex/Kaas/internal/store"
)

const defaultChatModel = "gpt-4o-mini"

// OpenAIConfig holds fallback defaults applied when a model row leaves a
// field empty.
type OpenAIConfig struct {
	BaseURL   string
	ChatModel string
	Timeout   time.Duration
}

// OpenAI implements Client against any OpenAI-compatible chat completion
// endpoint. The endpoint and credentials come from the conversation's model
// config, so one OpenAI value serves every configured provider.
type OpenAI struct {
	defaults OpenAIConfig
	logger   *slog.Logger
}

// NewOpenAI creates an OpenAI completion client. Pass nil logger for default.
func NewOpenAI(defaults OpenAIConfig, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}
	if defaults.ChatModel == "" {
		defaults.ChatModel = defaultChatModel
	}
	if defaults.Timeout == 0 {
		defaults.Timeout = 60 * time.Second
	}
	return &OpenAI{
		defaults: defaults,
		logger:   logger.With("component", "provider"),
	}
}

// Complete performs a single-shot chat completion with parsed options.
func (o *OpenAI) Complete(ctx context.Context, message store.Message, options string, config store.Model) (string, error) {
	opts, err := ParseOptions(options)
	if err != nil {
		return "", err
	}
	return o.complete(ctx, message, opts, config)
}

// CompleteWithConfig performs a completion with no per-conversation options.
func (o *OpenAI) CompleteWithConfig(ctx context.Context, message store.Message, config store.Model) (string, error) {
	return o.complete(ctx, message, Options{}, config)
}

func (o *OpenAI) complete(ctx context.Context, message store.Message, opts Options, config store.Model) (string, error) {
	client := o.newClient(config)

	model := opts.Model
	if model == "" {
		model = o.defaults.ChatModel
	}

	var messages []openai.ChatCompletionMessage
	if opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message.Content,
	})

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}

	callCtx, cancel := context.WithTimeout(ctx, o.defaults.Timeout)
	defer cancel()

	o.logger.Debug("calling completion provider",
		"provider", config.Provider,
		"model", model,
		"conversation_id", message.ConversationID)

	resp, err := client.CreateChatCompletion(callCtx, req)
	if err != nil {
		// Surface caller cancellation as-is so the orchestrator can tell a
		// stopped run from a provider failure. A timeout of our own is a
		// completion failure like any other.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &Error{Cause: err.Error()}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Cause: "empty chat response"}
	}

	return resp.Choices[0].Message.Content, nil
}

// newClient builds a go-openai client for one model config.
func (o *OpenAI) newClient(config store.Model) *openai.Client {
	cc := openai.DefaultConfig(config.APIKey)
	if config.Endpoint != "" {
		cc.BaseURL = config.Endpoint
	} else if o.defaults.BaseURL != "" {
		cc.BaseURL = o.defaults.BaseURL
	}
	return openai.NewClientWithConfig(cc)
}

// Ensure OpenAI implements Client
var _ Client = (*OpenAI)(nil)
