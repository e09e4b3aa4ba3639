package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/team3/messenger-server/internal/core"
	"github.com/team3/messenger-server/internal/service/chats"
)

// WSHandler upgrades HTTP connections and bridges them to the fan-out hub.
// The channel is push-only: clients receive message and chat events for the
// rooms they belong to and send nothing but close frames.
type WSHandler struct {
	hub   *core.Hub
	chats *chats.Service
	log   *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, svc *chats.Service, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, chats: svc, log: logger}
}

// Handle serves GET /ws.
func (h *WSHandler) Handle(c *gin.Context) {
	nickname := callerNickname(c)
	if nickname == "" {
		// Browsers cannot set headers on websocket dials; the upstream
		// proxy may pass identity as a query parameter instead.
		nickname = c.Query("user")
	}
	if nickname == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "caller identity is missing"})
		return
	}

	// Join one room per chat the user belongs to, plus the identity room
	// that receives invites to chats created after this connect.
	memberChats, err := h.chats.ListChats(c.Request.Context(), nickname)
	if err != nil {
		h.log.Error().Err(err).Str("nickname", nickname).Msg("failed to load chats for ws connect")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	rooms := make([]string, 0, len(memberChats)+1)
	rooms = append(rooms, core.UserRoom(nickname))
	for _, chat := range memberChats {
		rooms = append(rooms, core.ChatRoom(chat.ID))
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := core.NewClient(uuid.NewString(), nickname)
	h.hub.Register(client, rooms)
	defer h.hub.Unregister(client)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			status = websocket.StatusInternalError
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop drains inbound frames so pings and close frames are processed.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
