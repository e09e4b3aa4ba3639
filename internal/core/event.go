package core

import "github.com/team3/messenger-server/internal/store"

// EventKind is a notification the core fans out to connected clients.
type EventKind int

const (
	// EventMessageAppended notifies chat members about a new message.
	EventMessageAppended EventKind = iota
	// EventChatCreated notifies members that a chat became visible to them,
	// either at creation time or when they were added later.
	EventChatCreated
)

// Event describes a domain change to push to live connections.
// Delivery is fire-and-forget: offline members catch up over REST.
type Event struct {
	Kind    EventKind
	Chat    *store.Chat
	Message *store.Message

	// Recipients lists the nicknames whose identity rooms receive a chat
	// event. Unused for message events, which go to the chat room.
	Recipients []string
}

// ChatRoom returns the hub room name for a chat.
func ChatRoom(chatID string) string {
	return "chat:" + chatID
}

// UserRoom returns the hub room name for a user's own sessions.
func UserRoom(nickname string) string {
	return "user:" + nickname
}
