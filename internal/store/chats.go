package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/matheus3301/pollchat/internal/wire"
)

// pairKey identifies an unordered participant pair.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

const chatColumns = `id, participant_a, participant_b, last_message, last_message_at, last_sender_name, created_at, updated_at`

func scanChat(row interface{ Scan(...any) error }) (Chat, error) {
	var c Chat
	err := row.Scan(&c.ID, &c.ParticipantA, &c.ParticipantB, &c.LastMessage, &c.LastMessageAt, &c.LastSenderName, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateChat returns the chat between from and to, creating it if the pair has
// none. created reports whether a new chat was inserted.
func (db *DB) CreateChat(ctx context.Context, from, to string) (chat *Chat, created bool, err error) {
	if from == "" || to == "" || from == to {
		return nil, false, fmt.Errorf("%w: chat needs two distinct participants", wire.ErrInvalidArgument)
	}
	key := pairKey(from, to)
	err = db.write(ctx, func(tx *sql.Tx, now int64) error {
		c, err := scanChat(tx.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chats WHERE pair_key = ?`, key))
		if err == nil {
			chat = &c
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		c = Chat{ID: uuid.NewString(), ParticipantA: from, ParticipantB: to, CreatedAt: now, UpdatedAt: now}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chats (id, participant_a, participant_b, pair_key, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.ParticipantA, c.ParticipantB, key, now, now); err != nil {
			return fmt.Errorf("insert chat: %w", err)
		}
		chat, created = &c, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return chat, created, nil
}

// GetChat returns a single chat by ID, or nil if it does not exist.
func (db *DB) GetChat(ctx context.Context, id string) (*Chat, error) {
	c, err := scanChat(db.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChatsForUser returns the chats userID takes part in, most recently
// updated first.
func (db *DB) ListChatsForUser(ctx context.Context, userID string) ([]Chat, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+chatColumns+` FROM chats
		WHERE participant_a = ? OR participant_b = ?
		ORDER BY updated_at DESC, id`, userID, userID)
	if err != nil {
		return nil, err
	}
	return collectChats(rows)
}

// FilterParticipantChats returns the subset of ids naming chats userID takes
// part in, in input order without duplicates.
func (db *DB) FilterParticipantChats(ctx context.Context, userID string, ids []string) ([]string, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	args := append(toArgs(ids), userID, userID)
	rows, err := db.QueryContext(ctx, `
		SELECT id FROM chats
		WHERE id IN (`+placeholders(len(ids))+`) AND (participant_a = ? OR participant_b = ?)`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	allowed := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		allowed[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(allowed))
	for _, id := range ids {
		if allowed[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func collectChats(rows *sql.Rows) ([]Chat, error) {
	defer func() { _ = rows.Close() }()
	var chats []Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ChatCount returns the total number of chats.
func (db *DB) ChatCount(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`).Scan(&count)
	return count, err
}
