package server

import (
	"context"
	"fmt"

	"github.com/matheus3301/pollchat/internal/store"
	"github.com/matheus3301/pollchat/internal/wire"
	"go.uber.org/zap"
)

// Sync returns the messages and chats among req.ChatIDs that changed after
// req.Cursor. IDs of chats the caller does not take part in are dropped
// without error. The response timestamp is the caller's next cursor.
func (s *Service) Sync(ctx context.Context, req *wire.SyncRequest) (*wire.SyncResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	allowed, err := s.db.FilterParticipantChats(ctx, userID, req.ChatIDs)
	if err != nil {
		return nil, fmt.Errorf("filter chats: %w", err)
	}
	cursor := store.Micros(wire.CursorTime(req.Cursor))

	d, err := s.db.Delta(ctx, allowed, cursor, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("delta: %w", err)
	}

	users, err := s.summaries(ctx, userIDs(d.Messages, d.Chats))
	if err != nil {
		return nil, err
	}
	resp := &wire.SyncResponse{
		Messages:  make([]wire.Message, 0, len(d.Messages)),
		Chats:     make([]wire.Chat, 0, len(d.Chats)),
		Timestamp: wire.CursorFrom(store.FromMicros(d.Timestamp)),
		HasMore:   d.HasMore,
	}
	for _, m := range d.Messages {
		resp.Messages = append(resp.Messages, toWireMessage(m, users))
	}
	for _, c := range d.Chats {
		resp.Chats = append(resp.Chats, toWireChat(c, users))
	}

	if dropped := len(req.ChatIDs) - len(allowed); dropped > 0 {
		s.logger.Debug("sync dropped chat ids",
			zap.String("user", userID),
			zap.Int("requested", len(req.ChatIDs)),
			zap.Int("allowed", len(allowed)),
		)
	}
	return resp, nil
}
