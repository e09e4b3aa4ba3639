package http

import (
	"time"

	"github.com/team3/messenger-server/internal/core"
	"github.com/team3/messenger-server/internal/proto"
	"github.com/team3/messenger-server/internal/store"
)

// UserResponse represents a user in API responses.
type UserResponse struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// ChatResponse represents a chat in API responses and socket events.
// Avatar is omitted for private chats.
type ChatResponse struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Avatar    string            `json:"avatar,omitempty"`
	Members   []string          `json:"members"`
	Messages  []MessageResponse `json:"messages"`
	CreatedAt string            `json:"created_at"`
}

// MessageResponse represents a message in API responses and socket events.
type MessageResponse struct {
	ID          string           `json:"id"`
	ChatID      string           `json:"chat_id"`
	Author      string           `json:"author"`
	Text        string           `json:"text"`
	Meta        store.LinkMeta   `json:"meta"`
	Reactions   []store.Reaction `json:"reactions"`
	Attachments []string         `json:"attachments"`
	Date        string           `json:"date"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func toUserResponse(user *store.User) UserResponse {
	return UserResponse{
		Nickname: user.Nickname,
		Avatar:   user.Avatar,
	}
}

func toChatResponse(chat *store.Chat, messages []*store.Message) ChatResponse {
	msgs := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, toMessageResponse(m))
	}
	return ChatResponse{
		ID:        chat.ID,
		Type:      string(chat.Type),
		Title:     chat.Title,
		Avatar:    chat.Avatar,
		Members:   chat.Members,
		Messages:  msgs,
		CreatedAt: chat.CreatedAt.Format(time.RFC3339),
	}
}

func toMessageResponse(msg *store.Message) MessageResponse {
	reactions := msg.Reactions
	if reactions == nil {
		reactions = []store.Reaction{}
	}
	attachments := msg.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return MessageResponse{
		ID:          msg.ID,
		ChatID:      msg.ChatID,
		Author:      msg.Author,
		Text:        msg.Text,
		Meta:        msg.Meta,
		Reactions:   reactions,
		Attachments: attachments,
		Date:        msg.CreatedAt.Format(time.RFC3339),
	}
}

// outboundFromEvent converts a hub event into its socket envelope.
func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessageAppended:
		return proto.Outbound{
			Event: proto.EventMessage,
			Data:  toMessageResponse(event.Message),
		}
	case core.EventChatCreated:
		return proto.Outbound{
			Event: proto.EventChat,
			Data:  toChatResponse(event.Chat, nil),
		}
	default:
		return proto.Outbound{}
	}
}
