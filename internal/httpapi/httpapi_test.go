package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/pollchat/internal/presence"
	"github.com/matheus3301/pollchat/internal/server"
	"github.com/matheus3301/pollchat/internal/store"
	"github.com/matheus3301/pollchat/internal/uploads"
	"github.com/matheus3301/pollchat/internal/wire"
	"go.uber.org/zap"
)

type testAPI struct {
	srv    *httptest.Server
	tokens map[string]string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "chat.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	api := &testAPI{tokens: map[string]string{}}
	for _, u := range []store.User{{ID: "u1", Username: "alice"}, {ID: "u2", Username: "bob"}} {
		if err := db.UpsertUser(ctx, &u); err != nil {
			t.Fatal(err)
		}
		tok, err := db.CreateToken(ctx, u.ID)
		if err != nil {
			t.Fatal(err)
		}
		api.tokens[u.ID] = tok
	}

	svc := server.New(db, presence.NewMemory(), 0, nil)
	var h http.Handler
	api.srv = httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r)
	}))
	api.srv.Start()
	t.Cleanup(api.srv.Close)

	signer := uploads.NewSigner("test-secret", api.srv.URL, time.Minute)
	h = New(svc, signer, uploads.NewDir(filepath.Join(dir, "blobs"), 1<<10), Options{}, nil)
	return api
}

func (a *testAPI) do(t *testing.T, user, method, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[user])
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	a := newTestAPI(t)
	if resp := a.do(t, "", http.MethodGet, "/healthz", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	a := newTestAPI(t)
	if resp := a.do(t, "", http.MethodGet, "/api/chats", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestChatMessageAndSyncFlow(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, "u1", http.MethodPost, "/api/chats", map[string]string{"recipientId": "u2"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create chat status = %d, want 201", resp.StatusCode)
	}
	chat := decodeBody[wire.Chat](t, resp)

	if resp := a.do(t, "u2", http.MethodPost, "/api/chats", map[string]string{"recipientId": "u1"}); resp.StatusCode != http.StatusOK {
		t.Errorf("existing chat status = %d, want 200", resp.StatusCode)
	}

	resp = a.do(t, "u1", http.MethodPost, "/api/messages", wire.SendMessageRequest{ChatID: chat.ID, Content: "hi", ReceiverID: "u2"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send status = %d, want 201", resp.StatusCode)
	}
	msg := decodeBody[wire.Message](t, resp)

	resp = a.do(t, "u1", http.MethodGet, "/api/messages/sync?chatIds="+chat.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sync status = %d", resp.StatusCode)
	}
	first := decodeBody[syncResponse](t, resp)
	if len(first.Messages) != 1 || first.Timestamp == "" {
		t.Fatalf("sync = %+v", first)
	}

	if resp := a.do(t, "u1", http.MethodPatch, "/api/messages", wire.UpdateStatusRequest{MessageID: msg.ID, Status: wire.StatusSeen}); resp.StatusCode != http.StatusForbidden {
		t.Errorf("sender status change = %d, want 403", resp.StatusCode)
	}
	if resp := a.do(t, "u2", http.MethodPatch, "/api/messages", wire.UpdateStatusRequest{MessageID: msg.ID, Status: "read"}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad target = %d, want 400", resp.StatusCode)
	}
	if resp := a.do(t, "u2", http.MethodPatch, "/api/messages", wire.UpdateStatusRequest{MessageID: msg.ID, Status: wire.StatusSeen}); resp.StatusCode != http.StatusOK {
		t.Fatalf("receiver status change = %d", resp.StatusCode)
	}

	resp = a.do(t, "u1", http.MethodGet, "/api/messages/sync?chatIds="+chat.ID+"&lastSync="+url.QueryEscape(first.Timestamp), nil)
	next := decodeBody[syncResponse](t, resp)
	if len(next.Messages) != 1 || next.Messages[0].Status != wire.StatusSeen {
		t.Errorf("echo = %+v", next.Messages)
	}

	if resp := a.do(t, "u1", http.MethodGet, "/api/messages/sync?lastSync=yesterday", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad cursor = %d, want 400", resp.StatusCode)
	}

	resp = a.do(t, "u2", http.MethodGet, "/api/messages?chatId="+chat.ID, nil)
	page := decodeBody[wire.ListMessagesResponse](t, resp)
	if len(page.Messages) != 1 || page.HasMore {
		t.Errorf("history = %+v", page)
	}
}

func TestPresenceRoutes(t *testing.T) {
	a := newTestAPI(t)

	if resp := a.do(t, "u2", http.MethodPatch, "/api/users/status", map[string]bool{"isOnline": true}); resp.StatusCode != http.StatusOK {
		t.Fatalf("set presence = %d", resp.StatusCode)
	}
	users := decodeBody[[]wire.UserSummary](t, a.do(t, "u1", http.MethodGet, "/api/users/status", nil))
	if len(users) != 1 || users[0].ID != "u2" {
		t.Errorf("online = %+v", users)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, "u1", http.MethodPost, "/api/uploads/sign", signUploadRequest{Name: "cat.png", Type: "image/png"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sign status = %d", resp.StatusCode)
	}
	ticket := decodeBody[wire.UploadTicket](t, resp)

	req, _ := http.NewRequest(http.MethodPut, ticket.UploadURL, bytes.NewReader([]byte("png-bytes")))
	req.Header.Set("Content-Type", "image/png")
	put, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = put.Body.Close()
	if put.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d", put.StatusCode)
	}

	get := a.do(t, "", http.MethodGet, "/"+ticket.Key, nil)
	b, _ := io.ReadAll(get.Body)
	if get.StatusCode != http.StatusOK || string(b) != "png-bytes" {
		t.Errorf("get = %d %q", get.StatusCode, b)
	}

	if resp := a.do(t, "u1", http.MethodPost, "/api/uploads/sign", signUploadRequest{Name: "x.pdf", Type: "application/pdf"}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-image sign = %d, want 400", resp.StatusCode)
	}

	forged, _ := http.NewRequest(http.MethodPut, a.srv.URL+"/"+ticket.Key+"?type=image/png&expires=9999999999&sig=00", bytes.NewReader(nil))
	forged.Header.Set("Content-Type", "image/png")
	fr, err := http.DefaultClient.Do(forged)
	if err != nil {
		t.Fatal(err)
	}
	_ = fr.Body.Close()
	if fr.StatusCode != http.StatusForbidden {
		t.Errorf("forged put = %d, want 403", fr.StatusCode)
	}
}

func TestRecoverJSON(t *testing.T) {
	h := &Handler{logger: zap.NewNop()}
	rec := httptest.NewRecorder()
	h.recoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Error == "" {
		t.Errorf("body = %+v, %v", body, err)
	}
}
