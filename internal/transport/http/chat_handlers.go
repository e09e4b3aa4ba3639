package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/team3/messenger-server/internal/service/chats"
	"github.com/team3/messenger-server/internal/store"
)

// ChatHandlers provides HTTP handlers for chat management endpoints.
type ChatHandlers struct {
	chats *chats.Service
	log   *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(svc *chats.Service, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		chats: svc,
		log:   logger,
	}
}

// CreateChatRequest represents the create chat request body.
// Validation of members and type happens in the service layer so the API
// reports the same errors for missing, null, and empty members.
type CreateChatRequest struct {
	Type    string   `json:"type"`
	Title   string   `json:"title"`
	Members []string `json:"members"`
}

// UpdateTitleRequest represents the title update request body.
type UpdateTitleRequest struct {
	Title string `json:"title" binding:"required"`
}

// CreateChat handles chat creation.
// POST /api/chats
func (h *ChatHandlers) CreateChat(c *gin.Context) {
	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create chat request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	chat, err := h.chats.CreateChat(c.Request.Context(), store.ChatType(req.Type), req.Title, req.Members)
	if err != nil {
		h.writeError(c, err, "failed to create chat")
		return
	}

	h.log.Info().Str("chat_id", chat.ID).Str("type", string(chat.Type)).Msg("chat created")
	c.JSON(http.StatusOK, toChatResponse(chat, nil))
}

// ListChats lists the chats where the caller is a member.
// GET /api/chats
func (h *ChatHandlers) ListChats(c *gin.Context) {
	caller := callerNickname(c)

	chatList, err := h.chats.ListChats(c.Request.Context(), caller)
	if err != nil {
		h.writeError(c, err, "failed to list chats")
		return
	}

	response := make([]ChatResponse, 0, len(chatList))
	for _, chat := range chatList {
		messages, err := h.chats.ListMessages(c.Request.Context(), chat.ID, caller)
		if err != nil {
			h.writeError(c, err, "failed to load chat messages")
			return
		}
		response = append(response, toChatResponse(chat, messages))
	}

	c.JSON(http.StatusOK, response)
}

// UpdateTitle replaces a chat's title.
// PATCH /api/chats/:id/title
func (h *ChatHandlers) UpdateTitle(c *gin.Context) {
	var req UpdateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update title request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	chat, err := h.chats.UpdateTitle(c.Request.Context(), c.Param("id"), req.Title)
	if err != nil {
		h.writeError(c, err, "failed to update chat title")
		return
	}

	c.JSON(http.StatusOK, toChatResponse(chat, nil))
}

// UpdateAvatar replaces a chat's avatar with an uploaded image.
// PATCH /api/chats/:id/avatar (multipart field "chatAvatar")
func (h *ChatHandlers) UpdateAvatar(c *gin.Context) {
	contentType, image, ok := readUploadedImage(c, "chatAvatar")
	if !ok {
		return
	}

	chat, err := h.chats.UpdateAvatar(c.Request.Context(), c.Param("id"), contentType, image)
	if err != nil {
		h.writeError(c, err, "failed to update chat avatar")
		return
	}

	c.JSON(http.StatusOK, toChatResponse(chat, nil))
}

// AddMember appends a user to a group chat.
// POST /api/chats/:id/members/:nickname
func (h *ChatHandlers) AddMember(c *gin.Context) {
	chat, err := h.chats.AddMember(c.Request.Context(), c.Param("id"), c.Param("nickname"))
	if err != nil {
		h.writeError(c, err, "failed to add chat member")
		return
	}

	c.JSON(http.StatusOK, toChatResponse(chat, nil))
}

// RemoveMember removes a user from a group chat.
// DELETE /api/chats/:id/members/:nickname
func (h *ChatHandlers) RemoveMember(c *gin.Context) {
	chat, err := h.chats.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("nickname"))
	if err != nil {
		h.writeError(c, err, "failed to remove chat member")
		return
	}

	c.JSON(http.StatusOK, toChatResponse(chat, nil))
}

func (h *ChatHandlers) writeError(c *gin.Context, err error, logMsg string) {
	writeChatError(c, h.log, err, logMsg)
}

// writeChatError maps chat domain errors onto the API's contractual status
// codes: missing identity is 401, every other domain violation is 400, and
// anything unexpected is 500.
func writeChatError(c *gin.Context, logger *zerolog.Logger, err error, logMsg string) {
	switch {
	case errors.Is(err, chats.ErrNoIdentity):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	case errors.Is(err, chats.ErrChatNotFound),
		errors.Is(err, chats.ErrMembersRequired),
		errors.Is(err, chats.ErrUnknownChatType),
		errors.Is(err, chats.ErrPrivateMemberCount),
		errors.Is(err, chats.ErrPrivateImmutable),
		errors.Is(err, chats.ErrUnknownUser),
		errors.Is(err, chats.ErrNotMember):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		logger.Error().Err(err).Msg(logMsg)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
