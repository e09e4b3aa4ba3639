package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/team3/messenger-server/internal/service/chats"
)

// MessageHandlers provides HTTP handlers for chat message endpoints.
type MessageHandlers struct {
	chats *chats.Service
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(svc *chats.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		chats: svc,
		log:   logger,
	}
}

// PostMessageRequest represents the post message request body.
type PostMessageRequest struct {
	Text        string   `json:"text"`
	Attachments []string `json:"attachments"`
}

// PostMessage appends a message to a chat the caller belongs to.
// POST /api/chats/:id/messages
func (h *MessageHandlers) PostMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid post message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.chats.PostMessage(c.Request.Context(), c.Param("id"), callerNickname(c), req.Text, req.Attachments)
	if err != nil {
		h.writeError(c, err, "failed to post message")
		return
	}

	c.JSON(http.StatusOK, toMessageResponse(msg))
}

// ListMessages returns a chat's messages in creation order.
// GET /api/chats/:id/messages
func (h *MessageHandlers) ListMessages(c *gin.Context) {
	messages, err := h.chats.ListMessages(c.Request.Context(), c.Param("id"), callerNickname(c))
	if err != nil {
		h.writeError(c, err, "failed to list messages")
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, toMessageResponse(msg))
	}

	c.JSON(http.StatusOK, response)
}

func (h *MessageHandlers) writeError(c *gin.Context, err error, logMsg string) {
	writeChatError(c, h.log, err, logMsg)
}
