package httpapi

import (
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/matheus3301/pollchat/internal/server"
	"github.com/matheus3301/pollchat/internal/wire"
	"go.uber.org/zap"
)

// syncResponse is the REST form of wire.SyncResponse with an ISO-8601 cursor.
type syncResponse struct {
	Messages  []wire.Message `json:"messages"`
	Chats     []wire.Chat    `json:"chats"`
	Timestamp string         `json:"timestamp"`
	HasMore   bool           `json:"hasMore,omitempty"`
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &wire.SyncRequest{}
	if v := q.Get("lastSync"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "lastSync must be an RFC 3339 timestamp")
			return
		}
		req.Cursor = wire.CursorFrom(t)
	}
	for _, id := range strings.Split(q.Get("chatIds"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			req.ChatIDs = append(req.ChatIDs, id)
		}
	}

	resp, err := h.svc.Sync(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{
		Messages:  resp.Messages,
		Chats:     resp.Chats,
		Timestamp: wire.CursorTime(resp.Timestamp).UTC().Format(time.RFC3339Nano),
		HasMore:   resp.HasMore,
	})
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chatId")
	if chatID == "" {
		writeError(w, http.StatusBadRequest, "chatId is required")
		return
	}
	resp, err := h.svc.ListMessages(r.Context(), &wire.ListMessagesRequest{
		ChatID: chatID,
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", server.DefaultPageSize),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req wire.SendMessageRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	m, err := h.svc.SendMessage(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req wire.UpdateStatusRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	m, err := h.svc.UpdateStatus(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) listChats(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.ListChats(r.Context(), &wire.ListChatsRequest{})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp.Chats)
}

func (h *Handler) createChat(w http.ResponseWriter, r *http.Request) {
	var req wire.CreateChatRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	resp, err := h.svc.CreateChat(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	code := http.StatusOK
	if resp.Created {
		code = http.StatusCreated
	}
	writeJSON(w, code, resp.Chat)
}

func (h *Handler) searchUsers(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.SearchUsers(r.Context(), &wire.SearchUsersRequest{Query: r.URL.Query().Get("q")})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp.Users)
}

func (h *Handler) upsertProfile(w http.ResponseWriter, r *http.Request) {
	var req wire.UpsertProfileRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.svc.UpsertProfile(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Me(r.Context(), &wire.MeRequest{})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) onlineUsers(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.OnlineUsers(r.Context(), &wire.OnlineUsersRequest{})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp.Users)
}

func (h *Handler) setPresence(w http.ResponseWriter, r *http.Request) {
	var req wire.SetPresenceRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	resp, err := h.svc.SetPresence(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type signUploadRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (h *Handler) signUpload(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		writeError(w, http.StatusServiceUnavailable, "uploads are not configured")
		return
	}
	var req signUploadRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	ticket, err := h.signer.Sign(req.Name, req.Type)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func uploadKey(r *http.Request) string {
	return "uploads/" + chi.URLParam(r, "*")
}

func (h *Handler) putUpload(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil || h.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "uploads are not configured")
		return
	}
	key := uploadKey(r)
	q := r.URL.Query()
	contentType := q.Get("type")
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != contentType {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("content type %q does not match signed type", ct))
		return
	}
	if err := h.signer.Verify(key, contentType, q.Get("expires"), q.Get("sig")); err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.blobs.Put(key, r.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("upload stored", zap.String("key", key), zap.Int64("bytes", n))
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "size": n})
}

func (h *Handler) getUpload(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	key := uploadKey(r)
	f, err := h.blobs.Open(key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer func() { _ = f.Close() }()
	st, err := f.Stat()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.ServeContent(w, r, path.Base(key), st.ModTime(), f)
}
