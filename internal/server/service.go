// Package server holds the authoritative chat state operations: delta sync,
// message send, delivery status transitions, chats, users and presence.
// Transports (gRPC in internal/api, HTTP in internal/httpapi) translate
// requests into calls on Service and its error kinds into their own codes.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/pollchat/internal/presence"
	"github.com/matheus3301/pollchat/internal/store"
	"github.com/matheus3301/pollchat/internal/wire"
	"go.uber.org/zap"
)

const (
	DefaultPageSize    = 50
	maxHistoryLimit    = 100
	searchLimitQuery   = 20
	searchLimitListing = 50
)

// Service implements the server side of the chat protocol.
type Service struct {
	db       *store.DB
	presence presence.Store
	logger   *zap.Logger
	pageSize int
	now      func() time.Time
}

// New creates a service over db. pageSize caps messages per delta; zero uses
// DefaultPageSize.
func New(db *store.DB, p presence.Store, pageSize int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p == nil {
		p = presence.NewMemory()
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{db: db, presence: p, logger: logger, pageSize: pageSize, now: time.Now}
}

// summaries resolves user IDs to wire summaries with their online flag.
// A presence lookup failure degrades to everyone offline.
func (s *Service) summaries(ctx context.Context, ids []string) (map[string]wire.UserSummary, error) {
	users, err := s.db.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	online, err := s.presence.Online(ctx, ids)
	if err != nil {
		s.logger.Warn("presence lookup failed", zap.Error(err))
		online = nil
	}
	out := make(map[string]wire.UserSummary, len(users))
	for id, u := range users {
		out[id] = userSummary(u, online[id])
	}
	return out, nil
}

func userSummary(u store.User, online bool) wire.UserSummary {
	return wire.UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Avatar:   u.Avatar,
		Online:   online,
		LastSeen: store.FromMicros(u.LastSeen),
	}
}

func summaryRef(users map[string]wire.UserSummary, id string) *wire.UserSummary {
	u, ok := users[id]
	if !ok {
		return nil
	}
	return &u
}

func toWireMessage(m store.Message, users map[string]wire.UserSummary) wire.Message {
	return wire.Message{
		ID:         m.ID,
		ChatID:     m.ChatID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Status:     m.Status,
		Timestamp:  store.FromMicros(m.Timestamp),
		CreatedAt:  store.FromMicros(m.CreatedAt),
		UpdatedAt:  store.FromMicros(m.UpdatedAt),
		Sender:     summaryRef(users, m.SenderID),
		Receiver:   summaryRef(users, m.ReceiverID),
	}
}

func toWireChat(c store.Chat, users map[string]wire.UserSummary) wire.Chat {
	wc := wire.Chat{
		ID:        c.ID,
		CreatedAt: store.FromMicros(c.CreatedAt),
		UpdatedAt: store.FromMicros(c.UpdatedAt),
	}
	for _, id := range []string{c.ParticipantA, c.ParticipantB} {
		if u, ok := users[id]; ok {
			wc.Participants = append(wc.Participants, u)
		} else {
			wc.Participants = append(wc.Participants, wire.UserSummary{ID: id})
		}
	}
	if c.LastMessageAt != 0 {
		wc.LastMessage = &wire.LastMessage{
			Content:    c.LastMessage,
			Timestamp:  store.FromMicros(c.LastMessageAt),
			SenderName: c.LastSenderName,
		}
	}
	return wc
}

// userIDs collects the distinct participant IDs of messages and chats.
func userIDs(msgs []store.Message, chats []store.Chat) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, m := range msgs {
		add(m.SenderID)
		add(m.ReceiverID)
	}
	for _, c := range chats {
		add(c.ParticipantA)
		add(c.ParticipantB)
	}
	return ids
}

// participantChat loads chatID and checks userID takes part in it.
func (s *Service) participantChat(ctx context.Context, chatID, userID string) (*store.Chat, error) {
	if chatID == "" {
		return nil, fmt.Errorf("%w: chat id is required", wire.ErrInvalidArgument)
	}
	c, err := s.db.GetChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("chat %q: %w", chatID, wire.ErrNotFound)
	}
	if !c.Has(userID) {
		return nil, fmt.Errorf("%w: not a participant of chat %q", wire.ErrForbidden, chatID)
	}
	return c, nil
}
