package server

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/pollchat/internal/presence"
	"github.com/matheus3301/pollchat/internal/store"
	"github.com/matheus3301/pollchat/internal/wire"
)

type fixture struct {
	svc    *Service
	db     *store.DB
	chatID string
	alice  context.Context
	bob    context.Context
	carol  context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, u := range []store.User{
		{ID: "u1", Username: "alice", Email: "alice@example.com"},
		{ID: "u2", Username: "bob", Email: "bob@example.com"},
		{ID: "u3", Username: "carol"},
	} {
		if err := db.UpsertUser(ctx, &u); err != nil {
			t.Fatal(err)
		}
	}
	f := &fixture{
		svc:   New(db, presence.NewMemory(), 0, nil),
		db:    db,
		alice: WithUserID(ctx, "u1"),
		bob:   WithUserID(ctx, "u2"),
		carol: WithUserID(ctx, "u3"),
	}
	resp, err := f.svc.CreateChat(f.alice, &wire.CreateChatRequest{RecipientID: "u2"})
	if err != nil {
		t.Fatal(err)
	}
	f.chatID = resp.Chat.ID
	return f
}

func (f *fixture) send(t *testing.T, content string) *wire.Message {
	t.Helper()
	m, err := f.svc.SendMessage(f.alice, &wire.SendMessageRequest{ChatID: f.chatID, Content: content, ReceiverID: "u2"})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestUnauthenticatedCallsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Sync(ctx, &wire.SyncRequest{}); !errors.Is(err, wire.ErrUnauthorized) {
		t.Errorf("Sync error = %v, want unauthorized", err)
	}
	if _, err := f.svc.ListChats(ctx, &wire.ListChatsRequest{}); !errors.Is(err, wire.ErrUnauthorized) {
		t.Errorf("ListChats error = %v, want unauthorized", err)
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tok, err := f.db.CreateToken(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}

	id, err := f.svc.Authenticate(ctx, tok)
	if err != nil || id != "u1" {
		t.Errorf("Authenticate = %q, %v", id, err)
	}
	for _, bad := range []string{"", "nope"} {
		if _, err := f.svc.Authenticate(ctx, bad); !errors.Is(err, wire.ErrUnauthorized) {
			t.Errorf("Authenticate(%q) error = %v, want unauthorized", bad, err)
		}
	}
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t)

	m := f.send(t, "  hello  ")
	if m.Content != "hello" {
		t.Errorf("content = %q, want trimmed", m.Content)
	}
	if m.Status != wire.StatusSent || m.ReceiverID != "u2" {
		t.Errorf("message = %+v", m)
	}
	if m.Sender == nil || m.Sender.Username != "alice" || m.Receiver == nil || m.Receiver.Username != "bob" {
		t.Errorf("summaries not resolved: %+v %+v", m.Sender, m.Receiver)
	}

	tests := []struct {
		name string
		ctx  context.Context
		req  wire.SendMessageRequest
		want error
	}{
		{"blank content", f.alice, wire.SendMessageRequest{ChatID: f.chatID, Content: "   "}, wire.ErrInvalidArgument},
		{"missing chat", f.alice, wire.SendMessageRequest{ChatID: "nope", Content: "x"}, wire.ErrNotFound},
		{"outsider", f.carol, wire.SendMessageRequest{ChatID: f.chatID, Content: "x"}, wire.ErrForbidden},
		{"wrong receiver", f.alice, wire.SendMessageRequest{ChatID: f.chatID, Content: "x", ReceiverID: "u3"}, wire.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.SendMessage(tt.ctx, &tt.req); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	m := f.send(t, "hi")

	if _, err := f.svc.UpdateStatus(f.alice, &wire.UpdateStatusRequest{MessageID: m.ID, Status: wire.StatusSeen}); !errors.Is(err, wire.ErrForbidden) {
		t.Fatalf("sender transition error = %v, want forbidden", err)
	}
	got, err := f.db.GetMessage(context.Background(), m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != wire.StatusSent {
		t.Errorf("forbidden transition changed status to %s", got.Status)
	}

	delivered, err := f.svc.UpdateStatus(f.bob, &wire.UpdateStatusRequest{MessageID: m.ID, Status: wire.StatusDelivered})
	if err != nil {
		t.Fatal(err)
	}
	if delivered.Status != wire.StatusDelivered {
		t.Errorf("status = %s, want delivered", delivered.Status)
	}

	again, err := f.svc.UpdateStatus(f.bob, &wire.UpdateStatusRequest{MessageID: m.ID, Status: wire.StatusDelivered})
	if err != nil {
		t.Fatalf("repeated status error = %v", err)
	}
	if !again.UpdatedAt.Equal(delivered.UpdatedAt) {
		t.Error("repeated status should not re-stamp the message")
	}

	if _, err := f.svc.UpdateStatus(f.bob, &wire.UpdateStatusRequest{MessageID: m.ID, Status: wire.StatusSeen}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.UpdateStatus(f.bob, &wire.UpdateStatusRequest{MessageID: m.ID, Status: wire.StatusDelivered}); !errors.Is(err, wire.ErrInvalidArgument) {
		t.Errorf("backward transition error = %v, want invalid argument", err)
	}
	if _, err := f.svc.UpdateStatus(f.bob, &wire.UpdateStatusRequest{MessageID: "nope", Status: wire.StatusSeen}); !errors.Is(err, wire.ErrNotFound) {
		t.Errorf("missing message error = %v, want not found", err)
	}
}

func TestSyncFiltersForeignChats(t *testing.T) {
	f := newFixture(t)
	f.send(t, "hi")
	other, err := f.svc.CreateChat(f.carol, &wire.CreateChatRequest{RecipientID: "u2"})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := f.svc.Sync(f.alice, &wire.SyncRequest{ChatIDs: []string{f.chatID, other.Chat.ID}})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Messages) != 1 || len(resp.Chats) != 1 || resp.Chats[0].ID != f.chatID {
		t.Errorf("sync = %d messages, chats %+v", len(resp.Messages), resp.Chats)
	}
	if resp.Timestamp == nil {
		t.Fatal("timestamp missing")
	}

	empty, err := f.svc.Sync(f.alice, &wire.SyncRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(empty.Messages) != 0 || len(empty.Chats) != 0 {
		t.Errorf("empty id list returned %+v", empty)
	}
}

func TestSyncTimestampNeverBeforeCursor(t *testing.T) {
	f := newFixture(t)
	f.send(t, "hi")
	cursor := time.Now().Add(time.Hour).Truncate(time.Microsecond)

	tests := []struct {
		name    string
		chatIDs []string
	}{
		{"joined chat", []string{f.chatID}},
		{"no chats", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.svc.Sync(f.alice, &wire.SyncRequest{ChatIDs: tt.chatIDs, Cursor: wire.CursorFrom(cursor)})
			if err != nil {
				t.Fatal(err)
			}
			if len(resp.Messages) != 0 {
				t.Errorf("got %d messages past a future cursor", len(resp.Messages))
			}
			if got := resp.Timestamp.AsTime(); got.Before(cursor) {
				t.Errorf("timestamp %v is before cursor %v", got, cursor)
			}
		})
	}
}

// TestStatusEchoReachesSender walks the echo relay: the receiver marks a
// message seen and the sender's next delta carries the new status.
func TestStatusEchoReachesSender(t *testing.T) {
	f := newFixture(t)
	m := f.send(t, "hi")

	first, err := f.svc.Sync(f.alice, &wire.SyncRequest{ChatIDs: []string{f.chatID}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.UpdateStatus(f.bob, &wire.UpdateStatusRequest{MessageID: m.ID, Status: wire.StatusSeen}); err != nil {
		t.Fatal(err)
	}
	next, err := f.svc.Sync(f.alice, &wire.SyncRequest{Cursor: first.Timestamp, ChatIDs: []string{f.chatID}})
	if err != nil {
		t.Fatal(err)
	}
	if len(next.Messages) != 1 || next.Messages[0].ID != m.ID || next.Messages[0].Status != wire.StatusSeen {
		t.Errorf("echo = %+v", next.Messages)
	}
	if !next.Timestamp.AsTime().After(first.Timestamp.AsTime()) {
		t.Error("cursor did not move forward")
	}
}

func TestCreateChat(t *testing.T) {
	f := newFixture(t)

	again, err := f.svc.CreateChat(f.bob, &wire.CreateChatRequest{RecipientID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if again.Created || again.Chat.ID != f.chatID {
		t.Errorf("second create = %+v", again)
	}
	if len(again.Chat.Participants) != 2 {
		t.Errorf("participants = %+v", again.Chat.Participants)
	}

	if _, err := f.svc.CreateChat(f.alice, &wire.CreateChatRequest{RecipientID: "u1"}); !errors.Is(err, wire.ErrInvalidArgument) {
		t.Errorf("self chat error = %v", err)
	}
	if _, err := f.svc.CreateChat(f.alice, &wire.CreateChatRequest{RecipientID: "ghost"}); !errors.Is(err, wire.ErrNotFound) {
		t.Errorf("unknown recipient error = %v", err)
	}
}

func TestListChatsCarriesLastMessage(t *testing.T) {
	f := newFixture(t)
	f.send(t, "latest")

	resp, err := f.svc.ListChats(f.bob, &wire.ListChatsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Chats) != 1 {
		t.Fatalf("chats = %d", len(resp.Chats))
	}
	lm := resp.Chats[0].LastMessage
	if lm == nil || lm.Content != "latest" || lm.SenderName != "alice" {
		t.Errorf("last message = %+v", lm)
	}
	if other := resp.Chats[0].Other("u2"); other == nil || other.ID != "u1" {
		t.Errorf("other participant = %+v", other)
	}
}

func TestListMessages(t *testing.T) {
	f := newFixture(t)
	for _, c := range []string{"a", "b", "c"} {
		f.send(t, c)
	}

	resp, err := f.svc.ListMessages(f.bob, &wire.ListMessagesRequest{ChatID: f.chatID, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.HasMore || len(resp.Messages) != 2 || resp.Messages[0].Content != "b" || resp.Messages[1].Content != "c" {
		t.Errorf("page 1 = %+v", resp)
	}
	if _, err := f.svc.ListMessages(f.carol, &wire.ListMessagesRequest{ChatID: f.chatID}); !errors.Is(err, wire.ErrForbidden) {
		t.Errorf("outsider error = %v, want forbidden", err)
	}
}

func TestPresence(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.SetPresence(f.bob, &wire.SetPresenceRequest{Online: true})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Online || resp.LastSeen.IsZero() {
		t.Errorf("presence = %+v", resp)
	}

	online, err := f.svc.OnlineUsers(f.alice, &wire.OnlineUsersRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(online.Users) != 1 || online.Users[0].ID != "u2" || !online.Users[0].Online {
		t.Errorf("online = %+v", online.Users)
	}
	self, err := f.svc.OnlineUsers(f.bob, &wire.OnlineUsersRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(self.Users) != 0 {
		t.Errorf("caller should be excluded, got %+v", self.Users)
	}
}

func TestSearchAndProfile(t *testing.T) {
	f := newFixture(t)

	me, err := f.svc.UpsertProfile(f.alice, &wire.UpsertProfileRequest{Username: " alicia ", Avatar: "a.png"})
	if err != nil {
		t.Fatal(err)
	}
	if me.Username != "alicia" || me.Avatar != "a.png" || me.Email != "alice@example.com" {
		t.Errorf("profile = %+v", me)
	}
	if _, err := f.svc.UpsertProfile(f.alice, &wire.UpsertProfileRequest{}); !errors.Is(err, wire.ErrInvalidArgument) {
		t.Errorf("empty username error = %v", err)
	}

	found, err := f.svc.SearchUsers(f.bob, &wire.SearchUsersRequest{Query: "ALIC"})
	if err != nil {
		t.Fatal(err)
	}
	if len(found.Users) != 1 || found.Users[0].ID != "u1" {
		t.Errorf("search = %+v", found.Users)
	}
}
