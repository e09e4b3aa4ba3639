package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/team3/messenger-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
//
// Chats keep their membership set as a JSON array column so member mutations
// happen in a single UPDATE, giving the document-level atomicity the domain
// relies on. Message meta, reactions and attachments are embedded JSON.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	nickname   TEXT PRIMARY KEY,
	avatar     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chats (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	title      TEXT NOT NULL,
	avatar     TEXT NOT NULL DEFAULT '',
	members    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	chat_id     TEXT NOT NULL,
	author      TEXT NOT NULL,
	text        TEXT NOT NULL,
	meta        TEXT NOT NULL DEFAULT '{}',
	reactions   TEXT NOT NULL DEFAULT '[]',
	attachments TEXT NOT NULL DEFAULT '[]',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (chat_id) REFERENCES chats(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, seq);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply or extend the schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; this also serializes
	// writes to the same chat document.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// EnsureUser inserts a user unless the nickname already exists.
func (s *SQLiteStore) EnsureUser(ctx context.Context, nickname, avatar string) (*store.User, error) {
	query := `
		INSERT INTO users (nickname, avatar)
		VALUES (?, ?)
		ON CONFLICT(nickname) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, nickname, avatar); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUser(ctx, nickname)
}

// GetUser retrieves a user by nickname.
func (s *SQLiteStore) GetUser(ctx context.Context, nickname string) (*store.User, error) {
	query := `
		SELECT nickname, avatar, created_at
		FROM users
		WHERE nickname = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, nickname).Scan(
		&user.Nickname,
		&user.Avatar,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// UpdateUserAvatar replaces a user's avatar URL.
func (s *SQLiteStore) UpdateUserAvatar(ctx context.Context, nickname, avatar string) (*store.User, error) {
	query := `
		UPDATE users SET avatar = ? WHERE nickname = ?
	`
	result, err := s.db.ExecContext(ctx, query, avatar, nickname)
	if err != nil {
		return nil, fmt.Errorf("update user avatar: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetUser(ctx, nickname)
}

// ==== ChatStore implementation ====

// CreateChat persists a new chat with an empty message sequence.
func (s *SQLiteStore) CreateChat(ctx context.Context, chat *store.Chat) error {
	members, err := json.Marshal(chat.Members)
	if err != nil {
		return fmt.Errorf("marshal members: %w", err)
	}

	query := `
		INSERT INTO chats (id, type, title, avatar, members)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, chat.ID, string(chat.Type), chat.Title, chat.Avatar, string(members)); err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}

	stored, err := s.GetChat(ctx, chat.ID)
	if err != nil {
		return err
	}
	chat.CreatedAt = stored.CreatedAt

	return nil
}

// GetChat retrieves a chat by ID.
func (s *SQLiteStore) GetChat(ctx context.Context, id string) (*store.Chat, error) {
	query := `
		SELECT id, type, title, avatar, members, created_at
		FROM chats
		WHERE id = ?
	`
	return s.scanChat(s.db.QueryRowContext(ctx, query, id))
}

// ListChatsByMember lists chats containing nickname, newest first.
func (s *SQLiteStore) ListChatsByMember(ctx context.Context, nickname string) ([]*store.Chat, error) {
	// Membership filtering happens server-side; EXISTS over the JSON
	// members array never trusts a client-provided filter.
	query := `
		SELECT id, type, title, avatar, members, created_at
		FROM chats
		WHERE EXISTS (
			SELECT 1 FROM json_each(chats.members) WHERE json_each.value = ?
		)
		ORDER BY created_at DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query, nickname)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	chats := make([]*store.Chat, 0)
	for rows.Next() {
		chat, err := s.scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}

	return chats, nil
}

// UpdateChatTitle replaces a chat's title.
func (s *SQLiteStore) UpdateChatTitle(ctx context.Context, id, title string) (*store.Chat, error) {
	return s.updateChat(ctx, id, `UPDATE chats SET title = ? WHERE id = ?`, title)
}

// UpdateChatAvatar replaces a chat's avatar URL.
func (s *SQLiteStore) UpdateChatAvatar(ctx context.Context, id, avatar string) (*store.Chat, error) {
	return s.updateChat(ctx, id, `UPDATE chats SET avatar = ? WHERE id = ?`, avatar)
}

// AddChatMember appends nickname to the members array in a single UPDATE.
// Adding a nickname that is already present is a no-op.
func (s *SQLiteStore) AddChatMember(ctx context.Context, id, nickname string) (*store.Chat, error) {
	query := `
		UPDATE chats
		SET members = json_insert(members, '$[#]', ?)
		WHERE id = ?
		  AND NOT EXISTS (
			SELECT 1 FROM json_each(chats.members) WHERE json_each.value = ?
		  )
	`
	if _, err := s.db.ExecContext(ctx, query, nickname, id, nickname); err != nil {
		return nil, fmt.Errorf("add chat member: %w", err)
	}

	return s.GetChat(ctx, id)
}

// RemoveChatMember removes nickname from the members array in a single UPDATE.
func (s *SQLiteStore) RemoveChatMember(ctx context.Context, id, nickname string) (*store.Chat, error) {
	query := `
		UPDATE chats
		SET members = (
			SELECT COALESCE(json_group_array(value), '[]')
			FROM json_each(chats.members)
			WHERE value <> ?
		)
		WHERE id = ?
	`
	if _, err := s.db.ExecContext(ctx, query, nickname, id); err != nil {
		return nil, fmt.Errorf("remove chat member: %w", err)
	}

	return s.GetChat(ctx, id)
}

// ==== MessageStore implementation ====

// AppendMessage persists a message at the tail of its chat's sequence.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	meta, err := json.Marshal(msg.Meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	reactions, err := json.Marshal(emptyIfNil(msg.Reactions))
	if err != nil {
		return fmt.Errorf("marshal reactions: %w", err)
	}
	attachments, err := json.Marshal(emptyIfNil(msg.Attachments))
	if err != nil {
		return fmt.Errorf("marshal attachments: %w", err)
	}

	query := `
		INSERT INTO messages (id, chat_id, author, text, meta, reactions, attachments, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		msg.ID, msg.ChatID, msg.Author, msg.Text,
		string(meta), string(reactions), string(attachments), msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return nil
}

// ListMessages retrieves all messages of a chat in creation order.
func (s *SQLiteStore) ListMessages(ctx context.Context, chatID string) ([]*store.Message, error) {
	query := `
		SELECT id, chat_id, author, text, meta, reactions, attachments, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var (
			msg                   store.Message
			meta, reactions, atts string
		)
		err := rows.Scan(
			&msg.ID, &msg.ChatID, &msg.Author, &msg.Text,
			&meta, &reactions, &atts, &msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &msg.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal meta: %w", err)
		}
		if err := json.Unmarshal([]byte(reactions), &msg.Reactions); err != nil {
			return nil, fmt.Errorf("unmarshal reactions: %w", err)
		}
		if err := json.Unmarshal([]byte(atts), &msg.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshal attachments: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// ==== helpers ====

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanChat(row rowScanner) (*store.Chat, error) {
	var (
		chat    store.Chat
		members string
	)
	err := row.Scan(&chat.ID, &chat.Type, &chat.Title, &chat.Avatar, &members, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan chat: %w", err)
	}
	if err := json.Unmarshal([]byte(members), &chat.Members); err != nil {
		return nil, fmt.Errorf("unmarshal members: %w", err)
	}

	return &chat, nil
}

func (s *SQLiteStore) updateChat(ctx context.Context, id, query string, value string) (*store.Chat, error) {
	result, err := s.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return nil, fmt.Errorf("update chat: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetChat(ctx, id)
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
