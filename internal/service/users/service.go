// Package users implements the user directory: idempotent registration by
// nickname and avatar management.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/team3/messenger-server/internal/avatar"
	"github.com/team3/messenger-server/internal/store"
)

// ErrUserNotFound is returned when no user exists for a nickname.
var ErrUserNotFound = errors.New("user not found")

// ImageStore uploads an image and returns its public URL.
type ImageStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Service provides user directory business logic.
type Service struct {
	store  store.UserStore
	images ImageStore
}

// New creates a user directory service.
func New(st store.UserStore, images ImageStore) *Service {
	return &Service{
		store:  st,
		images: images,
	}
}

// EnsureUser creates a user on first reference and returns the stored record
// on every call after that. The first call assigns a generated avatar
// derived from the nickname; later calls never overwrite it.
func (s *Service) EnsureUser(ctx context.Context, nickname string) (*store.User, error) {
	user, err := s.store.EnsureUser(ctx, nickname, avatar.URL(nickname))
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by nickname.
func (s *Service) GetUser(ctx context.Context, nickname string) (*store.User, error) {
	user, err := s.store.GetUser(ctx, nickname)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateAvatar uploads a new avatar image for an existing user and stores
// its URL. Upload failure is fatal for the operation.
func (s *Service) UpdateAvatar(ctx context.Context, nickname, contentType string, image []byte) (*store.User, error) {
	if _, err := s.store.GetUser(ctx, nickname); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	url, err := s.images.Upload(ctx, nickname+"_profile", contentType, image)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	user, err := s.store.UpdateUserAvatar(ctx, nickname, url)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update avatar: %w", err)
	}
	return user, nil
}
