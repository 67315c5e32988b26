package server

import (
	"context"
	"fmt"

	"github.com/matheus3301/pollchat/internal/wire"
)

type userIDKey struct{}

// WithUserID returns a context carrying the authenticated caller.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the authenticated caller, or "" if there is none.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

func caller(ctx context.Context) (string, error) {
	id := UserID(ctx)
	if id == "" {
		return "", fmt.Errorf("%w: no identity on request", wire.ErrUnauthorized)
	}
	return id, nil
}

// Authenticate resolves a bearer token to a user ID.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: missing token", wire.ErrUnauthorized)
	}
	id, err := s.db.ResolveToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("resolve token: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: unknown token", wire.ErrUnauthorized)
	}
	return id, nil
}
