package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/team3/messenger-server/internal/store"
)

// Hub owns all rooms and live clients. It runs as a single goroutine, so
// room and membership maps never need locking; everything reaches it
// through channels.
type Hub struct {
	log *zerolog.Logger

	register   chan *registration
	unregister chan *Client
	events     chan *Event

	rooms       map[string]*Room
	clientRooms map[*Client]map[string]struct{}
}

type registration struct {
	client *Client
	rooms  []string
}

// NewHub creates a hub ready to Run.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		log:         logger,
		register:    make(chan *registration),
		unregister:  make(chan *Client),
		events:      make(chan *Event, 256),
		rooms:       make(map[string]*Room),
		clientRooms: make(map[*Client]map[string]struct{}),
	}
}

// Run processes registrations and events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case reg := <-h.register:
			h.handleRegister(reg)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case event := <-h.events:
			h.handleEvent(event)
		case <-ctx.Done():
			return
		}
	}
}

// Register subscribes a client to the given rooms.
// The websocket handler passes the rooms of every chat the user belongs to
// plus the user's identity room.
func (h *Hub) Register(client *Client, rooms []string) {
	h.register <- &registration{client: client, rooms: rooms}
}

// Unregister removes a client from all rooms.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish hands an event to the hub without blocking the caller.
// When the hub is saturated the event is dropped; connected clients catch
// up over REST like offline ones do.
func (h *Hub) Publish(event *Event) {
	select {
	case h.events <- event:
	default:
		h.log.Warn().Int("kind", int(event.Kind)).Msg("hub saturated, event dropped")
	}
}

// ChatCreated notifies every member's live sessions about a new chat.
// Implements the chats service event sink.
func (h *Hub) ChatCreated(chat *store.Chat) {
	h.Publish(&Event{Kind: EventChatCreated, Chat: chat, Recipients: chat.Members})
}

// MemberAdded notifies only the invited user's live sessions.
func (h *Hub) MemberAdded(chat *store.Chat, nickname string) {
	h.Publish(&Event{Kind: EventChatCreated, Chat: chat, Recipients: []string{nickname}})
}

// MessageAppended notifies all sessions subscribed to the chat's room.
func (h *Hub) MessageAppended(chat *store.Chat, msg *store.Message) {
	h.Publish(&Event{Kind: EventMessageAppended, Chat: chat, Message: msg})
}

func (h *Hub) handleRegister(reg *registration) {
	for _, name := range reg.rooms {
		h.joinRoom(reg.client, name)
	}
	h.log.Debug().Str("client_id", reg.client.ID).Str("nickname", reg.client.Nickname).
		Int("rooms", len(reg.rooms)).Msg("client registered")
}

func (h *Hub) handleUnregister(client *Client) {
	for name := range h.clientRooms[client] {
		if room, ok := h.rooms[name]; ok {
			room.RemoveClient(client)
			if room.Empty() {
				delete(h.rooms, name)
			}
		}
	}
	delete(h.clientRooms, client)
	close(client.Events)
	h.log.Debug().Str("client_id", client.ID).Msg("client unregistered")
}

func (h *Hub) handleEvent(event *Event) {
	switch event.Kind {
	case EventMessageAppended:
		if room, ok := h.rooms[ChatRoom(event.Chat.ID)]; ok {
			room.Broadcast(event)
		}
	case EventChatCreated:
		chatRoom := ChatRoom(event.Chat.ID)
		for _, nickname := range event.Recipients {
			room, ok := h.rooms[UserRoom(nickname)]
			if !ok {
				continue
			}
			room.Broadcast(event)
			// Subscribe the member's sessions to the new chat so later
			// messages reach them without a reconnect.
			for client := range room.clients {
				h.joinRoom(client, chatRoom)
			}
		}
	}
}

func (h *Hub) joinRoom(client *Client, name string) {
	room, ok := h.rooms[name]
	if !ok {
		room = NewRoom(name)
		h.rooms[name] = room
	}
	room.AddClient(client)

	joined, ok := h.clientRooms[client]
	if !ok {
		joined = make(map[string]struct{})
		h.clientRooms[client] = joined
	}
	joined[name] = struct{}{}
}
