package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/pollchat/internal/store"
	"github.com/matheus3301/pollchat/internal/wire"
	"go.uber.org/zap"
)

// Me returns the caller's own profile.
func (s *Service) Me(ctx context.Context, _ *wire.MeRequest) (*wire.UserSummary, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.summary(ctx, userID)
}

// UpsertProfile updates the caller's username, email and avatar.
func (s *Service) UpsertProfile(ctx context.Context, req *wire.UpsertProfileRequest) (*wire.UserSummary, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Username)
	if name == "" {
		return nil, fmt.Errorf("%w: username is required", wire.ErrInvalidArgument)
	}
	u := &store.User{
		ID:       userID,
		Username: name,
		Email:    strings.TrimSpace(req.Email),
		Avatar:   strings.TrimSpace(req.Avatar),
	}
	if err := s.db.UpsertUser(ctx, u); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return s.summary(ctx, userID)
}

// SearchUsers finds other users by username or email substring.
func (s *Service) SearchUsers(ctx context.Context, req *wire.SearchUsersRequest) (*wire.SearchUsersResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	limit := searchLimitListing
	if strings.TrimSpace(req.Query) != "" {
		limit = searchLimitQuery
	}
	users, err := s.db.SearchUsers(ctx, userID, req.Query, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return s.userList(ctx, users)
}

// SetPresence flips the caller's online flag and bumps their last-seen time.
func (s *Service) SetPresence(ctx context.Context, req *wire.SetPresenceRequest) (*wire.SetPresenceResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.db.TouchLastSeen(ctx, userID, store.Micros(now)); err != nil {
		return nil, err
	}
	changed, err := s.presence.SetOnline(ctx, userID, req.Online)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wire.ErrTransient, err)
	}
	if changed {
		s.logger.Debug("presence changed", zap.String("user", userID), zap.Bool("online", req.Online))
	}
	return &wire.SetPresenceResponse{Online: req.Online, LastSeen: store.FromMicros(store.Micros(now))}, nil
}

// OnlineUsers lists online users other than the caller.
func (s *Service) OnlineUsers(ctx context.Context, _ *wire.OnlineUsersRequest) (*wire.SearchUsersResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := s.presence.ListOnline(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wire.ErrTransient, err)
	}
	others := ids[:0:0]
	for _, id := range ids {
		if id != userID {
			others = append(others, id)
		}
	}
	byID, err := s.summaries(ctx, others)
	if err != nil {
		return nil, err
	}
	resp := &wire.SearchUsersResponse{Users: make([]wire.UserSummary, 0, len(others))}
	for _, id := range others {
		if u, ok := byID[id]; ok {
			resp.Users = append(resp.Users, u)
		}
	}
	return resp, nil
}

func (s *Service) summary(ctx context.Context, userID string) (*wire.UserSummary, error) {
	users, err := s.summaries(ctx, []string{userID})
	if err != nil {
		return nil, err
	}
	u, ok := users[userID]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", userID, wire.ErrNotFound)
	}
	return &u, nil
}

func (s *Service) userList(ctx context.Context, users []store.User) (*wire.SearchUsersResponse, error) {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	online, err := s.presence.Online(ctx, ids)
	if err != nil {
		s.logger.Warn("presence lookup failed", zap.Error(err))
		online = nil
	}
	resp := &wire.SearchUsersResponse{Users: make([]wire.UserSummary, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, userSummary(u, online[u.ID]))
	}
	return resp, nil
}
