package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/team3/messenger-server/internal/service/users"
)

// UserHandlers provides HTTP handlers for the user directory.
type UserHandlers struct {
	users *users.Service
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(svc *users.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		users: svc,
		log:   logger,
	}
}

// EnsureUser creates a user on first reference and is idempotent after that.
// POST /api/users/:nickname
func (h *UserHandlers) EnsureUser(c *gin.Context) {
	nickname := c.Param("nickname")

	user, err := h.users.EnsureUser(c.Request.Context(), nickname)
	if err != nil {
		h.log.Error().Err(err).Str("nickname", nickname).Msg("failed to ensure user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// GetUser looks up a user by nickname.
// GET /api/users/:nickname
func (h *UserHandlers) GetUser(c *gin.Context) {
	nickname := c.Param("nickname")

	user, err := h.users.GetUser(c.Request.Context(), nickname)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Str("nickname", nickname).Msg("failed to get user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateAvatar replaces a user's avatar with an uploaded image.
// PATCH /api/users/:nickname/avatar (multipart field "userAvatar")
func (h *UserHandlers) UpdateAvatar(c *gin.Context) {
	nickname := c.Param("nickname")

	contentType, image, ok := readUploadedImage(c, "userAvatar")
	if !ok {
		return
	}

	user, err := h.users.UpdateAvatar(c.Request.Context(), nickname, contentType, image)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Str("nickname", nickname).Msg("failed to update user avatar")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// readUploadedImage pulls a multipart image out of the request. On failure
// it writes the error response and returns ok=false.
func readUploadedImage(c *gin.Context, field string) (contentType string, image []byte, ok bool) {
	header, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "image file is required"})
		return "", nil, false
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot read image file"})
		return "", nil, false
	}
	defer file.Close()

	image, err = io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot read image file"})
		return "", nil, false
	}

	return header.Header.Get("Content-Type"), image, true
}
