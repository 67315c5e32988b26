package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/pollchat/internal/status"
	"github.com/matheus3301/pollchat/internal/store"
	"github.com/matheus3301/pollchat/internal/wire"
	"go.uber.org/zap"
)

// SendMessage persists a message from the caller with status sent.
// ReceiverID may be empty, in which case the chat's other participant is used.
func (s *Service) SendMessage(ctx context.Context, req *wire.SendMessageRequest) (*wire.Message, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", wire.ErrInvalidArgument)
	}
	c, err := s.participantChat(ctx, req.ChatID, userID)
	if err != nil {
		return nil, err
	}
	receiver := c.Other(userID)
	if req.ReceiverID != "" && req.ReceiverID != receiver {
		return nil, fmt.Errorf("%w: receiver is not the other participant", wire.ErrInvalidArgument)
	}

	m := &store.Message{
		ChatID:     c.ID,
		SenderID:   userID,
		ReceiverID: receiver,
		Content:    content,
	}
	if err := s.db.InsertMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	s.logger.Debug("message sent", zap.String("chat", c.ID), zap.String("message", m.ID))
	return s.resolveMessage(ctx, *m)
}

// UpdateStatus advances a message's delivery status on behalf of its
// receiver. Requesting the current status succeeds without changes.
func (s *Service) UpdateStatus(ctx context.Context, req *wire.UpdateStatusRequest) (*wire.Message, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.MessageID == "" {
		return nil, fmt.Errorf("%w: message id is required", wire.ErrInvalidArgument)
	}
	m, err := s.db.UpdateMessageStatus(ctx, req.MessageID, req.Status, func(cur *store.Message) (bool, error) {
		return status.Transition(cur.Status, cur.ReceiverID, userID, req.Status)
	})
	if err != nil {
		return nil, err
	}
	return s.resolveMessage(ctx, *m)
}

// ListMessages returns one page of a chat's history in chronological order.
func (s *Service) ListMessages(ctx context.Context, req *wire.ListMessagesRequest) (*wire.ListMessagesResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.participantChat(ctx, req.ChatID, userID)
	if err != nil {
		return nil, err
	}
	page := max(req.Page, 1)
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, maxHistoryLimit)

	msgs, hasMore, err := s.db.ListChatMessages(ctx, c.ID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	users, err := s.summaries(ctx, []string{c.ParticipantA, c.ParticipantB})
	if err != nil {
		return nil, err
	}
	resp := &wire.ListMessagesResponse{
		Messages: make([]wire.Message, 0, len(msgs)),
		Page:     page,
		HasMore:  hasMore,
	}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, toWireMessage(m, users))
	}
	return resp, nil
}

func (s *Service) resolveMessage(ctx context.Context, m store.Message) (*wire.Message, error) {
	users, err := s.summaries(ctx, []string{m.SenderID, m.ReceiverID})
	if err != nil {
		return nil, err
	}
	out := toWireMessage(m, users)
	return &out, nil
}
