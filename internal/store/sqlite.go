// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides model/conversation/message/setting persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them:
	// WAL for concurrent reads, foreign keys for referential integrity.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS models (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			provider TEXT NOT NULL,
			api_key TEXT NOT NULL DEFAULT '',
			endpoint TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			model_id INTEGER NOT NULL,
			subject TEXT NOT NULL,
			options TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			FOREIGN KEY (model_id) REFERENCES models(id)
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_model_id
			ON conversations(model_id);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id INTEGER NOT NULL,
			role INTEGER NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation_id
			ON messages(conversation_id);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// CreateModel inserts a new model configuration and returns it with its
// assigned ID and creation timestamp.
func (s *SQLiteStore) CreateModel(ctx context.Context, model Model) (Model, error) {
	model.CreatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO models (provider, api_key, endpoint, created_at)
		VALUES (?, ?, ?, ?)
	`, model.Provider, model.APIKey, model.Endpoint, model.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Model{}, fmt.Errorf("inserting model: %w", err)
	}

	model.ID, err = result.LastInsertId()
	if err != nil {
		return Model{}, fmt.Errorf("getting model id: %w", err)
	}

	s.logger.Debug("created model", "id", model.ID, "provider", model.Provider)
	return model, nil
}

// ListModels returns all model configurations in creation order.
func (s *SQLiteStore) ListModels(ctx context.Context) ([]Model, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider, api_key, endpoint, created_at
		FROM models
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying models: %w", err)
	}
	defer rows.Close()

	var models []Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating model rows: %w", err)
	}
	return models, nil
}

// scanner abstracts *sql.Row and *sql.Rows for the shared scan helpers
type scanner interface {
	Scan(dest ...any) error
}

func scanModel(row scanner) (Model, error) {
	var m Model
	var createdAtStr string

	if err := row.Scan(&m.ID, &m.Provider, &m.APIKey, &m.Endpoint, &createdAtStr); err != nil {
		return Model{}, fmt.Errorf("scanning model row: %w", err)
	}

	var err error
	m.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return Model{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return m, nil
}

// ListSettings returns all settings ordered by key.
func (s *SQLiteStore) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.Key, &st.Value); err != nil {
			return nil, fmt.Errorf("scanning setting row: %w", err)
		}
		settings = append(settings, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating setting rows: %w", err)
	}
	return settings, nil
}

// UpsertSetting inserts a setting or, if the key already exists, replaces
// its value. Last write wins on the value column only.
func (s *SQLiteStore) UpsertSetting(ctx context.Context, setting Setting) (Setting, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, setting.Key, setting.Value)
	if err != nil {
		return Setting{}, fmt.Errorf("upserting setting: %w", err)
	}

	s.logger.Debug("upserted setting", "key", setting.Key)
	return setting, nil
}

// CreateConversationWithMessage creates a conversation and its seed message
// in one transaction. If either insert fails, neither entity is visible to
// subsequent reads. The options blob always starts out empty.
func (s *SQLiteStore) CreateConversationWithMessage(ctx context.Context, conversation Conversation, firstMessage NewMessage) (Conversation, Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Conversation{}, Message{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	conversation.Options = ""
	conversation.CreatedAt = time.Now().UTC()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (model_id, subject, options, created_at)
		VALUES (?, ?, ?, ?)
	`, conversation.ModelID, conversation.Subject, conversation.Options,
		conversation.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Conversation{}, Message{}, fmt.Errorf("inserting conversation: %w", err)
	}

	conversation.ID, err = result.LastInsertId()
	if err != nil {
		return Conversation{}, Message{}, fmt.Errorf("getting conversation id: %w", err)
	}

	msg := Message{
		ConversationID: conversation.ID,
		Role:           firstMessage.Role,
		Content:        firstMessage.Content,
		CreatedAt:      time.Now().UTC(),
	}

	result, err = tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`, msg.ConversationID, int(msg.Role), msg.Content, msg.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Conversation{}, Message{}, fmt.Errorf("inserting first message: %w", err)
	}

	msg.ID, err = result.LastInsertId()
	if err != nil {
		return Conversation{}, Message{}, fmt.Errorf("getting message id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Conversation{}, Message{}, fmt.Errorf("committing conversation: %w", err)
	}

	s.logger.Debug("created conversation", "id", conversation.ID, "model_id", conversation.ModelID)
	return conversation, msg, nil
}

// ListConversations returns the list-view projection: each conversation
// joined to its model's provider name and a count of its messages.
// Conversations with zero messages still appear; conversations whose model
// row is missing do not.
func (s *SQLiteStore) ListConversations(ctx context.Context) ([]ConversationListItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.model_id, c.subject, c.options, c.created_at,
		       m.provider, COUNT(msg.id)
		FROM conversations c
		INNER JOIN models m ON m.id = c.model_id
		LEFT JOIN messages msg ON msg.conversation_id = c.id
		GROUP BY c.id
		ORDER BY c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var items []ConversationListItem
	for rows.Next() {
		var item ConversationListItem
		var createdAtStr string

		if err := rows.Scan(&item.ID, &item.ModelID, &item.Subject, &item.Options,
			&createdAtStr, &item.ModelProvider, &item.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}

		item.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}
	return items, nil
}

// GetConversationOptions returns the serialized provider options blob for a
// conversation. Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) GetConversationOptions(ctx context.Context, conversationID int64) (string, error) {
	var options string
	err := s.db.QueryRowContext(ctx,
		`SELECT options FROM conversations WHERE id = ?`, conversationID).Scan(&options)

	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying conversation options: %w", err)
	}
	return options, nil
}

// GetConversationConfig returns the model configuration referenced by a
// conversation. Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) GetConversationConfig(ctx context.Context, conversationID int64) (Model, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT m.id, m.provider, m.api_key, m.endpoint, m.created_at
		FROM models m
		INNER JOIN conversations c ON c.model_id = m.id
		WHERE c.id = ?
	`, conversationID)

	m, err := scanModelRow(row)
	if err != nil {
		return Model{}, fmt.Errorf("querying conversation config: %w", err)
	}
	return m, nil
}

// UpdateConversationOptions replaces the stored options blob and returns the
// updated value. Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) UpdateConversationOptions(ctx context.Context, conversationID int64, options string) (string, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET options = ? WHERE id = ?`, options, conversationID)
	if err != nil {
		return "", fmt.Errorf("updating conversation options: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return "", ErrNotFound
	}

	s.logger.Debug("updated conversation options", "conversation_id", conversationID)
	return options, nil
}

// CreateMessage appends a message to a conversation. Role ordering is not
// validated here; that is the orchestrator's concern.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg NewMessage) (Message, error) {
	saved := Message{
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		CreatedAt:      time.Now().UTC(),
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`, saved.ConversationID, int(saved.Role), saved.Content, saved.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Message{}, fmt.Errorf("inserting message: %w", err)
	}

	saved.ID, err = result.LastInsertId()
	if err != nil {
		return Message{}, fmt.Errorf("getting message id: %w", err)
	}

	s.logger.Debug("created message", "id", saved.ID, "conversation_id", saved.ConversationID, "role", saved.Role.String())
	return saved, nil
}

// ListMessages returns all messages of a conversation in creation order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY id
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var role int
		var createdAtStr string

		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		msg.Role = Role(role)

		msg.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing message created_at: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}

// GetLastMessage returns the most recent message of a conversation.
// Returns ErrNotFound if the conversation has no messages.
func (s *SQLiteStore) GetLastMessage(ctx context.Context, conversationID int64) (Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, conversationID)

	var msg Message
	var role int
	var createdAtStr string

	err := row.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &createdAtStr)
	if err == sql.ErrNoRows {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, fmt.Errorf("querying last message: %w", err)
	}
	msg.Role = Role(role)

	msg.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return Message{}, fmt.Errorf("parsing message created_at: %w", err)
	}
	return msg, nil
}

// GetModelOfMessage resolves the model configuration transitively via the
// message's conversation.
func (s *SQLiteStore) GetModelOfMessage(ctx context.Context, msg Message) (Model, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT m.id, m.provider, m.api_key, m.endpoint, m.created_at
		FROM models m
		INNER JOIN conversations c ON c.model_id = m.id
		INNER JOIN messages msg ON msg.conversation_id = c.id
		WHERE msg.id = ?
	`, msg.ID)

	m, err := scanModelRow(row)
	if err != nil {
		return Model{}, fmt.Errorf("querying model of message: %w", err)
	}
	return m, nil
}

// scanModelRow scans a single model row, translating sql.ErrNoRows into
// ErrNotFound.
func scanModelRow(row *sql.Row) (Model, error) {
	var m Model
	var createdAtStr string

	err := row.Scan(&m.ID, &m.Provider, &m.APIKey, &m.Endpoint, &createdAtStr)
	if err == sql.ErrNoRows {
		return Model{}, ErrNotFound
	}
	if err != nil {
		return Model{}, err
	}

	m.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return Model{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return m, nil
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
