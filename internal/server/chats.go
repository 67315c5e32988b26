package server

import (
	"context"
	"fmt"

	"github.com/matheus3301/pollchat/internal/wire"
	"go.uber.org/zap"
)

// ListChats returns the caller's chats, most recently updated first.
func (s *Service) ListChats(ctx context.Context, _ *wire.ListChatsRequest) (*wire.ListChatsResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	chats, err := s.db.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	users, err := s.summaries(ctx, userIDs(nil, chats))
	if err != nil {
		return nil, err
	}
	resp := &wire.ListChatsResponse{Chats: make([]wire.Chat, 0, len(chats))}
	for _, c := range chats {
		resp.Chats = append(resp.Chats, toWireChat(c, users))
	}
	return resp, nil
}

// CreateChat opens a chat between the caller and req.RecipientID, or returns
// the one they already share.
func (s *Service) CreateChat(ctx context.Context, req *wire.CreateChatRequest) (*wire.CreateChatResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.RecipientID == "" {
		return nil, fmt.Errorf("%w: recipient id is required", wire.ErrInvalidArgument)
	}
	if req.RecipientID == userID {
		return nil, fmt.Errorf("%w: cannot open a chat with yourself", wire.ErrInvalidArgument)
	}
	recipient, err := s.db.GetUser(ctx, req.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("get recipient: %w", err)
	}
	if recipient == nil {
		return nil, fmt.Errorf("user %q: %w", req.RecipientID, wire.ErrNotFound)
	}

	c, created, err := s.db.CreateChat(ctx, userID, recipient.ID)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("chat created", zap.String("chat", c.ID), zap.String("by", userID))
	}
	users, err := s.summaries(ctx, []string{c.ParticipantA, c.ParticipantB})
	if err != nil {
		return nil, err
	}
	return &wire.CreateChatResponse{Chat: toWireChat(*c, users), Created: created}, nil
}
