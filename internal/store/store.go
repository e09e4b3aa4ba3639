package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// User represents an entry in the user directory.
// Nickname is the primary key; users are created on first API reference.
type User struct {
	Nickname  string
	Avatar    string
	CreatedAt time.Time
}

// ChatType defines the kind of a chat.
type ChatType string

const (
	ChatTypePrivate ChatType = "private"
	ChatTypeGroup   ChatType = "group"
)

// Known reports whether t is one of the supported chat types.
func (t ChatType) Known() bool {
	return t == ChatTypePrivate || t == ChatTypeGroup
}

// Chat represents a conversation with its membership set.
// Avatar is empty for private chats.
type Chat struct {
	ID        string
	Type      ChatType
	Title     string
	Avatar    string
	Members   []string
	CreatedAt time.Time
}

// HasMember reports whether nickname is in the chat's membership set.
func (c *Chat) HasMember(nickname string) bool {
	for _, m := range c.Members {
		if m == nickname {
			return true
		}
	}
	return false
}

// Message is a single entry in a chat's message sequence.
// Text holds sanitized HTML as stored at write time.
type Message struct {
	ID          string
	ChatID      string
	Author      string
	Text        string
	Meta        LinkMeta
	Reactions   []Reaction
	Attachments []string
	CreatedAt   time.Time
}

// LinkMeta is link-preview metadata extracted from message text.
// All fields are empty when the text carries no link or extraction failed.
type LinkMeta struct {
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Reaction is an opaque sub-document embedded in a message.
// Stored and returned verbatim; there is no mutation API for reactions.
type Reaction struct {
	By    string `json:"by"`
	Emoji string `json:"emoji"`
}

// UserStore handles user directory persistence.
type UserStore interface {
	// EnsureUser inserts a user with the given avatar unless the nickname
	// already exists, then returns the stored record. Duplicate calls must
	// not fail and must not overwrite the existing avatar.
	EnsureUser(ctx context.Context, nickname, avatar string) (*User, error)

	// GetUser retrieves a user by nickname. Returns ErrNotFound when absent.
	GetUser(ctx context.Context, nickname string) (*User, error)

	// UpdateUserAvatar replaces a user's avatar URL.
	// Returns ErrNotFound when the nickname is unknown.
	UpdateUserAvatar(ctx context.Context, nickname, avatar string) (*User, error)
}

// ChatStore handles chat persistence. Member mutations must be atomic at the
// chat-document level; the store is the only writer of chat records.
type ChatStore interface {
	// CreateChat persists a new chat with an empty message sequence.
	CreateChat(ctx context.Context, chat *Chat) error

	// GetChat retrieves a chat by ID. Returns ErrNotFound when absent.
	GetChat(ctx context.Context, id string) (*Chat, error)

	// ListChatsByMember lists chats that contain nickname in their
	// membership set, newest first.
	ListChatsByMember(ctx context.Context, nickname string) ([]*Chat, error)

	// UpdateChatTitle replaces a chat's title. Returns ErrNotFound when absent.
	UpdateChatTitle(ctx context.Context, id, title string) (*Chat, error)

	// UpdateChatAvatar replaces a chat's avatar URL. Returns ErrNotFound when absent.
	UpdateChatAvatar(ctx context.Context, id, avatar string) (*Chat, error)

	// AddChatMember appends nickname to the chat's membership set in a
	// single statement. Adding an existing member is a no-op.
	AddChatMember(ctx context.Context, id, nickname string) (*Chat, error)

	// RemoveChatMember removes nickname from the chat's membership set in a
	// single statement.
	RemoveChatMember(ctx context.Context, id, nickname string) (*Chat, error)
}

// MessageStore handles the append-only message sequence owned by a chat.
type MessageStore interface {
	// AppendMessage persists a message at the tail of its chat's sequence.
	AppendMessage(ctx context.Context, msg *Message) error

	// ListMessages retrieves all messages of a chat in creation order.
	ListMessages(ctx context.Context, chatID string) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ChatStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
