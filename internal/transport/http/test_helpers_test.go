package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/team3/messenger-server/internal/config"
	"github.com/team3/messenger-server/internal/core"
	"github.com/team3/messenger-server/internal/service/chats"
	"github.com/team3/messenger-server/internal/service/users"
	"github.com/team3/messenger-server/internal/store"
	"github.com/team3/messenger-server/internal/store/sqlite"
)

type stubMeta struct{}

func (stubMeta) Extract(context.Context, string) (store.LinkMeta, error) {
	return store.LinkMeta{}, nil
}

type stubImages struct {
	fail bool
}

func (s stubImages) Upload(_ context.Context, key, _ string, _ []byte) (string, error) {
	if s.fail {
		return "", errors.New("upload failed")
	}
	return "https://cdn.test/" + key, nil
}

type testServer struct {
	handler http.Handler
	ts      *httptest.Server
	store   store.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := zerolog.New(nil)

	hub := core.NewHub(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	userSvc := users.New(st, stubImages{})
	chatSvc := chats.New(st, hub, stubMeta{}, stubImages{}, &logger)

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second

	server := NewServer(hub, userSvc, chatSvc, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{handler: server.Handler, ts: ts, store: st}
}

// do runs a JSON request against the in-process handler. An empty caller
// leaves the identity header unset.
func (s *testServer) do(t *testing.T, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		req.Header.Set(HeaderUser, caller)
	}

	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

// doMultipart sends a single-file multipart request, the shape of avatar
// uploads.
func (s *testServer) doMultipart(t *testing.T, method, path, field string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, "avatar.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake-png-bytes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func (s *testServer) mustUser(t *testing.T, nickname string) UserResponse {
	t.Helper()

	resp := s.do(t, http.MethodPost, "/api/users/"+nickname, "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("create user %s: status %d: %s", nickname, resp.Code, resp.Body.String())
	}

	var user UserResponse
	decodeBody(t, resp, &user)
	return user
}

func (s *testServer) mustChat(t *testing.T, chatType, title string, members []string) ChatResponse {
	t.Helper()

	resp := s.do(t, http.MethodPost, "/api/chats", "", CreateChatRequest{
		Type:    chatType,
		Title:   title,
		Members: members,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("create chat: status %d: %s", resp.Code, resp.Body.String())
	}

	var chat ChatResponse
	decodeBody(t, resp, &chat)
	return chat
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder, v any) {
	t.Helper()

	if err := json.Unmarshal(resp.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal response %q: %v", resp.Body.String(), err)
	}
}

func (s *testServer) wsURL(user string) string {
	return strings.Replace(s.ts.URL, "http", "ws", 1) + "/ws?user=" + user
}
