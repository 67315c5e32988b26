// Package presence tracks which users are currently online.
// Implementations: Redis (shared between server replicas) and an in-memory set
// for single-process deployments and tests.
package presence

import (
	"context"
	"strings"
)

// Store holds the online set. SetOnline is idempotent and reports whether the
// flag actually changed.
type Store interface {
	SetOnline(ctx context.Context, userID string, online bool) (changed bool, err error)
	Online(ctx context.Context, userIDs []string) (map[string]bool, error)
	ListOnline(ctx context.Context) ([]string, error)
	Close() error
}

// Open returns a Redis store when url is set, otherwise an in-memory one.
func Open(ctx context.Context, url string) (Store, error) {
	if strings.TrimSpace(url) == "" {
		return NewMemory(), nil
	}
	return NewRedis(ctx, url)
}
