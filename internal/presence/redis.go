package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const onlineKey = "presence:online"

// Redis keeps the online set in a Redis SET.
type Redis struct {
	cli *redis.Client
}

// NewRedis connects to url (redis://...) and verifies the connection.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{cli: cli}, nil
}

func (r *Redis) Close() error {
	return r.cli.Close()
}

func (r *Redis) SetOnline(ctx context.Context, userID string, online bool) (bool, error) {
	var n int64
	var err error
	if online {
		n, err = r.cli.SAdd(ctx, onlineKey, userID).Result()
	} else {
		n, err = r.cli.SRem(ctx, onlineKey, userID).Result()
	}
	if err != nil {
		return false, fmt.Errorf("set online: %w", err)
	}
	return n > 0, nil
}

func (r *Redis) Online(ctx context.Context, userIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	members := make([]any, len(userIDs))
	for i, id := range userIDs {
		members[i] = id
	}
	flags, err := r.cli.SMIsMember(ctx, onlineKey, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("online lookup: %w", err)
	}
	for i, ok := range flags {
		if ok {
			out[userIDs[i]] = true
		}
	}
	return out, nil
}

func (r *Redis) ListOnline(ctx context.Context) ([]string, error) {
	ids, err := r.cli.SMembers(ctx, onlineKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list online: %w", err)
	}
	return ids, nil
}
