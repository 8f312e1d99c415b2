// ABOUTME: Entry point for the Kaas chat client core
// ABOUTME: Wires config, store, completion provider and the reply orchestrator

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/itsharex/Kaas/internal/bot"
	"github.com/itsharex/Kaas/internal/command"
	"github.com/itsharex/Kaas/internal/config"
	"github.com/itsharex/Kaas/internal/events"
	"github.com/itsharex/Kaas/internal/provider"
	"github.com/itsharex/Kaas/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  _  __
 | |/ /__ _  __ _ ___
 | ' // _' |/ _' / __|
 | . \ (_| | (_| \__ \
 |_|\_\__,_|\__,_|___/
`

const defaultConfig = `database:
  path: ${HOME}/.local/share/kaas/kaas.db

provider:
  base_url: https://api.openai.com/v1
  api_key: ${OPENAI_API_KEY}
  chat_model: gpt-4o-mini
  timeout: 60s

logging:
  level: info
  format: text
`

// getConfigPath returns the path to the Kaas config file.
// Priority: KAAS_CONFIG env var > XDG_CONFIG_HOME/kaas/kaas.yaml > ~/.config/kaas/kaas.yaml
func getConfigPath() string {
	if envPath := os.Getenv("KAAS_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "kaas.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "kaas", "kaas.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: kaas <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  init                        Create a starter config file")
		fmt.Println("  models                      List configured models")
		fmt.Println("  conversations               List conversations")
		fmt.Println("  ask <conversation-id> TEXT  Send a message and print the bot reply")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit()
	case "models":
		err = runModels(ctx)
	case "conversations":
		err = runConversations(ctx)
	case "ask":
		err = runAsk(ctx, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInit() error {
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Wrote %s\n", configPath)
	return nil
}

// setupCommands loads config and wires store, provider, event channel and
// orchestrator into the command surface. The caller must Close the store.
func setupCommands() (*command.Commands, *store.SQLiteStore, error) {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	client := provider.NewOpenAI(provider.OpenAIConfig{
		BaseURL:   cfg.Provider.BaseURL,
		ChatModel: cfg.Provider.ChatModel,
		Timeout:   cfg.Provider.Timeout,
	}, logger)

	ch := events.NewChannel(logger)
	botSvc := bot.New(st, client, ch, logger)

	return command.New(st, botSvc, logger), st, nil
}

func runModels(ctx context.Context) error {
	cmds, st, err := setupCommands()
	if err != nil {
		return err
	}
	defer st.Close()

	models, err := cmds.ListModels(ctx)
	if err != nil {
		return err
	}

	if len(models) == 0 {
		fmt.Println("No models configured")
		return nil
	}
	for _, m := range models {
		fmt.Printf("%4d  %-12s %s\n", m.ID, m.Provider, m.Endpoint)
	}
	return nil
}

func runConversations(ctx context.Context) error {
	cmds, st, err := setupCommands()
	if err != nil {
		return err
	}
	defer st.Close()

	items, err := cmds.ListConversations(ctx)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Println("No conversations yet")
		return nil
	}
	for _, item := range items {
		fmt.Printf("%4d  %-10s %3d msgs  %s\n", item.ID, item.ModelProvider, item.MessageCount, item.Subject)
	}
	return nil
}

func runAsk(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: kaas ask <conversation-id> TEXT")
	}

	conversationID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid conversation id %q", args[0])
	}
	text := strings.Join(args[1:], " ")

	cmds, st, err := setupCommands()
	if err != nil {
		return err
	}
	defer st.Close()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	if _, err := cmds.CreateMessage(ctx, store.NewMessage{
		ConversationID: conversationID,
		Role:           store.RoleUser,
		Content:        text,
	}); err != nil {
		return err
	}

	reply, err := cmds.CallBotWithConversation(ctx, conversationID)
	if err != nil {
		return err
	}

	fmt.Println(reply.Content)
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
