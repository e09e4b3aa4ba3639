package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Smoke checks the live-update path against a running server: ensure a user,
// open a socket, post a message over REST and wait until it comes back on
// the socket.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	user := flag.String("user", "tester", "nickname to connect as")
	chat := flag.String("chat", "", "chat id to post into (skip posting when empty)")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := ensureUser(ctx, *addr, *user); err != nil {
		return err
	}

	wsAddr := strings.Replace(*addr, "http", "ws", 1) + "/ws?user=" + *user
	conn, _, err := websocket.Dial(ctx, wsAddr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if *chat != "" {
		if err := postMessage(ctx, *addr, *chat, *user, *text); err != nil {
			return err
		}
	}

	for {
		var outbound struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: event=%s\n", outbound.Event)
		fmt.Printf("Raw data: %s\n", string(outbound.Data))

		if outbound.Event == "message" {
			return nil
		}
	}
}

func ensureUser(ctx context.Context, addr, user string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/api/users/"+user, nil)
	if err != nil {
		return fmt.Errorf("build user request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ensure user: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func postMessage(ctx context.Context, addr, chat, user, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/api/chats/"+chat+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", user)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post message: unexpected status %d", resp.StatusCode)
	}
	return nil
}
