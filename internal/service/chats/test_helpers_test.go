package chats

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/team3/messenger-server/internal/store"
	"github.com/team3/messenger-server/internal/store/sqlite"
)

type recordedEvents struct {
	chatsCreated []*store.Chat
	membersAdded []string
	messages     []*store.Message
}

func (r *recordedEvents) ChatCreated(chat *store.Chat) {
	r.chatsCreated = append(r.chatsCreated, chat)
}

func (r *recordedEvents) MemberAdded(_ *store.Chat, nickname string) {
	r.membersAdded = append(r.membersAdded, nickname)
}

func (r *recordedEvents) MessageAppended(_ *store.Chat, msg *store.Message) {
	r.messages = append(r.messages, msg)
}

type stubMeta struct {
	meta store.LinkMeta
	fail bool
}

func (s *stubMeta) Extract(context.Context, string) (store.LinkMeta, error) {
	if s.fail {
		return store.LinkMeta{}, errors.New("extraction failed")
	}
	return s.meta, nil
}

type stubImages struct {
	fail bool
}

func (s *stubImages) Upload(_ context.Context, key, _ string, _ []byte) (string, error) {
	if s.fail {
		return "", errors.New("upload failed")
	}
	return "https://cdn.test/" + key, nil
}

type testEnv struct {
	svc    *Service
	store  store.Store
	events *recordedEvents
	meta   *stubMeta
	images *stubImages
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	events := &recordedEvents{}
	extractor := &stubMeta{}
	images := &stubImages{}
	logger := zerolog.New(nil)

	return &testEnv{
		svc:    New(st, events, extractor, images, &logger),
		store:  st,
		events: events,
		meta:   extractor,
		images: images,
	}
}

func (e *testEnv) mustUser(t *testing.T, nickname string) {
	t.Helper()

	if _, err := e.store.EnsureUser(context.Background(), nickname, "https://avatars.test/"+nickname); err != nil {
		t.Fatalf("ensure user %s: %v", nickname, err)
	}
}

func (e *testEnv) mustChat(t *testing.T, chatType store.ChatType, title string, members ...string) *store.Chat {
	t.Helper()

	chat, err := e.svc.CreateChat(context.Background(), chatType, title, members)
	if err != nil {
		t.Fatalf("create %s chat: %v", chatType, err)
	}
	return chat
}
