package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/team3/messenger-server/internal/proto"
)

type outboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readFrame(ctx context.Context, t *testing.T, conn *websocket.Conn) outboundFrame {
	t.Helper()

	var frame outboundFrame
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read outbound frame: %v", err)
	}
	return frame
}

func dialWS(ctx context.Context, t *testing.T, srv *testServer, user string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, srv.wsURL(user), nil)
	if err != nil {
		t.Fatalf("dial as %s: %v", user, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	// The handshake completes before the server registers the client with
	// the hub, so give it a beat before publishing events.
	time.Sleep(50 * time.Millisecond)
	return conn
}

func TestWebSocketRequiresIdentity(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, resp, err := websocket.Dial(ctx, srv.wsURL(""), nil)
	if err == nil {
		conn.Close(websocket.StatusNormalClosure, "done")
		t.Fatal("dial without identity succeeded")
	}
	if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestWebSocketMessageFanOut(t *testing.T) {
	srv := newTestServer(t)
	srv.mustUser(t, "alice")
	srv.mustUser(t, "bob")
	chat := srv.mustChat(t, "private", "", []string{"alice", "bob"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialWS(ctx, t, srv, "alice")
	connB := dialWS(ctx, t, srv, "bob")

	postResp := srv.do(t, http.MethodPost, "/api/chats/"+chat.ID+"/messages", "alice", PostMessageRequest{Text: "hi there"})
	if postResp.Code != http.StatusOK {
		t.Fatalf("post message: status %d: %s", postResp.Code, postResp.Body.String())
	}

	for name, conn := range map[string]*websocket.Conn{"alice": connA, "bob": connB} {
		frame := readFrame(ctx, t, conn)
		if frame.Event != proto.EventMessage {
			t.Fatalf("%s received event %q, want %q", name, frame.Event, proto.EventMessage)
		}

		var msg MessageResponse
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			t.Fatalf("unmarshal message for %s: %v", name, err)
		}
		if msg.ChatID != chat.ID || msg.Author != "alice" || msg.Text != "hi there" {
			t.Fatalf("%s received unexpected message: %+v", name, msg)
		}
	}
}

func TestWebSocketChatCreatedPush(t *testing.T) {
	srv := newTestServer(t)
	srv.mustUser(t, "alice")
	srv.mustUser(t, "carol")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connC := dialWS(ctx, t, srv, "carol")

	chat := srv.mustChat(t, "group", "news", []string{"alice", "carol"})

	frame := readFrame(ctx, t, connC)
	if frame.Event != proto.EventChat {
		t.Fatalf("received event %q, want %q", frame.Event, proto.EventChat)
	}

	var pushed ChatResponse
	if err := json.Unmarshal(frame.Data, &pushed); err != nil {
		t.Fatalf("unmarshal chat: %v", err)
	}
	if pushed.ID != chat.ID {
		t.Fatalf("pushed chat id = %q, want %q", pushed.ID, chat.ID)
	}

	// Delivery of the chat event also subscribes the connection to the new
	// chat, so a follow-up message arrives without reconnecting.
	postResp := srv.do(t, http.MethodPost, "/api/chats/"+chat.ID+"/messages", "alice", PostMessageRequest{Text: "welcome"})
	if postResp.Code != http.StatusOK {
		t.Fatalf("post message: status %d: %s", postResp.Code, postResp.Body.String())
	}

	frame = readFrame(ctx, t, connC)
	if frame.Event != proto.EventMessage {
		t.Fatalf("received event %q, want %q", frame.Event, proto.EventMessage)
	}

	var msg MessageResponse
	if err := json.Unmarshal(frame.Data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if msg.Text != "welcome" {
		t.Fatalf("message text = %q, want welcome", msg.Text)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.ts.Client().Get(srv.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}
