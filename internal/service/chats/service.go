// Package chats implements the chat and message domain: creation and
// membership rules, message posting with sanitization and link previews, and
// membership-gated reads. Every mutating operation validates its invariants
// before touching storage; no partial mutation is ever committed.
package chats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/team3/messenger-server/internal/avatar"
	"github.com/team3/messenger-server/internal/metrics"
	"github.com/team3/messenger-server/internal/sanitize"
	"github.com/team3/messenger-server/internal/store"
)

// Domain errors. Handlers map these to the API's contractual status codes:
// ErrNoIdentity to 401, everything else to 400.
var (
	ErrChatNotFound       = errors.New("chat not found")
	ErrMembersRequired    = errors.New("members are required")
	ErrUnknownChatType    = errors.New("unknown chat type")
	ErrPrivateMemberCount = errors.New("private chat requires exactly two members")
	ErrPrivateImmutable   = errors.New("private chat membership is frozen")
	ErrUnknownUser        = errors.New("unknown user")
	ErrNotMember          = errors.New("not a chat member")
	ErrNoIdentity         = errors.New("caller identity is missing")
)

// Events receives domain events for real-time fan-out. Implementations must
// not block: delivery is fire-and-forget relative to the HTTP response.
type Events interface {
	ChatCreated(chat *store.Chat)
	MemberAdded(chat *store.Chat, nickname string)
	MessageAppended(chat *store.Chat, msg *store.Message)
}

// MetaExtractor produces link-preview metadata for a message text.
type MetaExtractor interface {
	Extract(ctx context.Context, text string) (store.LinkMeta, error)
}

// ImageStore uploads an image and returns its public URL.
type ImageStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Service provides chat and message business logic.
type Service struct {
	store  store.Store
	events Events
	meta   MetaExtractor
	images ImageStore
	log    *zerolog.Logger
}

// New creates a chat service.
func New(st store.Store, events Events, meta MetaExtractor, images ImageStore, logger *zerolog.Logger) *Service {
	return &Service{
		store:  st,
		events: events,
		meta:   meta,
		images: images,
		log:    logger,
	}
}

// CreateChat validates and persists a new chat with an empty message
// sequence, then notifies all members' live sessions.
//
// Group chats get a generated avatar; private chats never carry one.
// Member nicknames are not required to exist yet: users are created on first
// API reference, so a chat may name a member who registers later.
func (s *Service) CreateChat(ctx context.Context, chatType store.ChatType, title string, members []string) (*store.Chat, error) {
	if len(members) == 0 {
		return nil, ErrMembersRequired
	}
	if !chatType.Known() {
		return nil, ErrUnknownChatType
	}
	if chatType == store.ChatTypePrivate && len(members) != 2 {
		return nil, ErrPrivateMemberCount
	}

	chat := &store.Chat{
		ID:      uuid.NewString(),
		Type:    chatType,
		Title:   title,
		Members: members,
	}
	if chatType == store.ChatTypeGroup {
		chat.Avatar = avatar.URL(chat.ID)
	}

	if err := s.store.CreateChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	metrics.ChatsCreated.WithLabelValues(string(chatType)).Inc()
	s.events.ChatCreated(chat)

	return chat, nil
}

// ListChats returns the chats where forUser is a member. The membership
// filter is applied server-side and never replaced by client input.
func (s *Service) ListChats(ctx context.Context, forUser string) ([]*store.Chat, error) {
	if forUser == "" {
		return nil, ErrNoIdentity
	}

	chats, err := s.store.ListChatsByMember(ctx, forUser)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

// UpdateTitle replaces a chat's title.
func (s *Service) UpdateTitle(ctx context.Context, chatID, title string) (*store.Chat, error) {
	chat, err := s.store.UpdateChatTitle(ctx, chatID, title)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("update title: %w", err)
	}
	return chat, nil
}

// UpdateAvatar uploads a new chat avatar image and stores its URL.
func (s *Service) UpdateAvatar(ctx context.Context, chatID, contentType string, image []byte) (*store.Chat, error) {
	if _, err := s.getChat(ctx, chatID); err != nil {
		return nil, err
	}

	url, err := s.images.Upload(ctx, chatID+"_avatar", contentType, image)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	chat, err := s.store.UpdateChatAvatar(ctx, chatID, url)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("update avatar: %w", err)
	}
	return chat, nil
}

// AddMember appends a known user to a group chat's membership set.
// Adding a nickname that is already a member succeeds without change.
func (s *Service) AddMember(ctx context.Context, chatID, nickname string) (*store.Chat, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Type == store.ChatTypePrivate {
		return nil, ErrPrivateImmutable
	}
	if _, err := s.store.GetUser(ctx, nickname); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if chat.HasMember(nickname) {
		return chat, nil
	}

	updated, err := s.store.AddChatMember(ctx, chatID, nickname)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}

	s.events.MemberAdded(updated, nickname)

	return updated, nil
}

// RemoveMember removes a nickname from a group chat's membership set.
func (s *Service) RemoveMember(ctx context.Context, chatID, nickname string) (*store.Chat, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Type == store.ChatTypePrivate {
		return nil, ErrPrivateImmutable
	}

	updated, err := s.store.RemoveChatMember(ctx, chatID, nickname)
	if err != nil {
		return nil, fmt.Errorf("remove member: %w", err)
	}

	return updated, nil
}

// PostMessage appends a message to a chat the author belongs to.
//
// The text goes through best-effort link-preview extraction (failure
// degrades to empty metadata) and allow-list sanitization; the timestamp is
// server-assigned. All members' live sessions are notified.
func (s *Service) PostMessage(ctx context.Context, chatID, author, text string, attachments []string) (*store.Message, error) {
	if author == "" {
		return nil, ErrNoIdentity
	}

	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(author) {
		return nil, ErrNotMember
	}

	linkMeta, err := s.meta.Extract(ctx, text)
	if err != nil {
		s.log.Warn().Err(err).Str("chat_id", chatID).Msg("link preview extraction failed")
		linkMeta = store.LinkMeta{}
	}

	msg := &store.Message{
		ID:          uuid.NewString(),
		ChatID:      chat.ID,
		Author:      author,
		Text:        sanitize.HTML(text),
		Meta:        linkMeta,
		Attachments: attachments,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	metrics.MessagesPosted.Inc()
	s.events.MessageAppended(chat, msg)

	return msg, nil
}

// ListMessages returns a chat's messages in creation order. The requester
// must be a member; stored text is returned without re-sanitization.
func (s *Service) ListMessages(ctx context.Context, chatID, requester string) ([]*store.Message, error) {
	if requester == "" {
		return nil, ErrNoIdentity
	}

	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(requester) {
		return nil, ErrNotMember
	}

	messages, err := s.store.ListMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func (s *Service) getChat(ctx context.Context, chatID string) (*store.Chat, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return chat, nil
}
