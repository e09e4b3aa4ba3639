package http

import (
	"net/http"
	"strings"
	"testing"
)

func TestEnsureUser(t *testing.T) {
	srv := newTestServer(t)

	user := srv.mustUser(t, "alice")
	if user.Nickname != "alice" {
		t.Errorf("nickname = %q, want alice", user.Nickname)
	}
	if !strings.Contains(user.Avatar, "seed=alice") {
		t.Errorf("avatar %q does not embed the nickname seed", user.Avatar)
	}
}

func TestEnsureUserIdempotent(t *testing.T) {
	srv := newTestServer(t)

	first := srv.mustUser(t, "alice")
	second := srv.mustUser(t, "alice")
	if first.Avatar != second.Avatar {
		t.Errorf("repeated create changed avatar: %q vs %q", first.Avatar, second.Avatar)
	}
}

func TestGetUser(t *testing.T) {
	srv := newTestServer(t)
	srv.mustUser(t, "alice")

	resp := srv.do(t, http.MethodGet, "/api/users/alice", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.Code, http.StatusOK)
	}

	var user UserResponse
	decodeBody(t, resp, &user)
	if user.Nickname != "alice" {
		t.Errorf("nickname = %q, want alice", user.Nickname)
	}
}

func TestGetUserNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodGet, "/api/users/ghost", "", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.Code, http.StatusNotFound)
	}
}

func TestUpdateUserAvatar(t *testing.T) {
	srv := newTestServer(t)
	srv.mustUser(t, "alice")

	resp := srv.doMultipart(t, http.MethodPatch, "/api/users/alice/avatar", "userAvatar")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", resp.Code, http.StatusOK, resp.Body.String())
	}

	var user UserResponse
	decodeBody(t, resp, &user)
	if user.Avatar != "https://cdn.test/alice_profile" {
		t.Errorf("avatar = %q, want uploaded object URL", user.Avatar)
	}
}

func TestUpdateUserAvatarUnknownUser(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.doMultipart(t, http.MethodPatch, "/api/users/ghost/avatar", "userAvatar")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.Code, http.StatusBadRequest)
	}
}

func TestUpdateUserAvatarMissingFile(t *testing.T) {
	srv := newTestServer(t)
	srv.mustUser(t, "alice")

	resp := srv.do(t, http.MethodPatch, "/api/users/alice/avatar", "", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.Code, http.StatusBadRequest)
	}
}
