package users

import (
	"context"
	"errors"
	"testing"

	"github.com/team3/messenger-server/internal/store/sqlite"
)

type fakeImages struct {
	fail bool
	keys []string
}

func (f *fakeImages) Upload(_ context.Context, key, _ string, _ []byte) (string, error) {
	if f.fail {
		return "", errors.New("upload failed")
	}
	f.keys = append(f.keys, key)
	return "https://cdn.test/" + key, nil
}

func newTestService(t *testing.T, images *fakeImages) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return New(st, images)
}

func TestEnsureUserAssignsGeneratedAvatarOnce(t *testing.T) {
	svc := newTestService(t, &fakeImages{})
	ctx := context.Background()

	first, err := svc.EnsureUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if first.Nickname != "alice" || first.Avatar == "" {
		t.Fatalf("unexpected user: %+v", first)
	}

	second, err := svc.EnsureUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ensure user again: %v", err)
	}
	if second.Avatar != first.Avatar {
		t.Errorf("avatar changed between calls: %q -> %q", first.Avatar, second.Avatar)
	}
}

func TestGetUserNotFound(t *testing.T) {
	svc := newTestService(t, &fakeImages{})

	if _, err := svc.GetUser(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateAvatar(t *testing.T) {
	images := &fakeImages{}
	svc := newTestService(t, images)
	ctx := context.Background()

	if _, err := svc.UpdateAvatar(ctx, "ghost", "image/png", []byte("img")); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(images.keys) != 0 {
		t.Fatalf("upload attempted for unknown user")
	}

	if _, err := svc.EnsureUser(ctx, "alice"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	user, err := svc.UpdateAvatar(ctx, "alice", "image/png", []byte("img"))
	if err != nil {
		t.Fatalf("update avatar: %v", err)
	}
	if user.Avatar != "https://cdn.test/alice_profile" {
		t.Errorf("avatar = %q", user.Avatar)
	}
}

func TestUpdateAvatarUploadFailureIsFatal(t *testing.T) {
	svc := newTestService(t, &fakeImages{fail: true})
	ctx := context.Background()

	if _, err := svc.EnsureUser(ctx, "alice"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	if _, err := svc.UpdateAvatar(ctx, "alice", "image/png", []byte("img")); err == nil {
		t.Fatal("expected error when upload fails")
	}

	// The stored avatar must be untouched after a failed upload.
	user, err := svc.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Avatar == "" || user.Avatar == "https://cdn.test/alice_profile" {
		t.Errorf("avatar unexpectedly changed: %q", user.Avatar)
	}
}
