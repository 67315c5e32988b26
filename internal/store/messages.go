package store

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/matheus3301/pollchat/internal/wire"
)

const messageColumns = `id, chat_id, sender_id, receiver_id, content, status, timestamp, created_at, updated_at`

func scanMessage(row interface{ Scan(...any) error }) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Status, &m.Timestamp, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func collectMessages(rows *sql.Rows) ([]Message, error) {
	defer func() { _ = rows.Close() }()
	var msgs []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// InsertMessage persists m with status sent and refreshes the chat's
// last-message summary in the same transaction. ID, Timestamp, CreatedAt and
// UpdatedAt are filled in when unset.
func (db *DB) InsertMessage(ctx context.Context, m *Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Status = wire.StatusSent
	return db.write(ctx, func(tx *sql.Tx, now int64) error {
		if m.Timestamp == 0 {
			m.Timestamp = now
		}
		m.CreatedAt, m.UpdatedAt = now, now
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, chat_id, sender_id, receiver_id, content, status, timestamp, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.ChatID, m.SenderID, m.ReceiverID, m.Content, m.Status, m.Timestamp, m.CreatedAt, m.UpdatedAt); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE chats SET
				last_message = ?,
				last_message_at = ?,
				last_sender_name = COALESCE((SELECT username FROM users WHERE id = ?), ''),
				updated_at = ?
			WHERE id = ?`,
			m.Content, m.Timestamp, m.SenderID, now, m.ChatID)
		if err != nil {
			return fmt.Errorf("update chat summary: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("chat %q: %w", m.ChatID, wire.ErrNotFound)
		}
		return nil
	})
}

// GetMessage returns a message by ID, or nil if it does not exist.
func (db *DB) GetMessage(ctx context.Context, id string) (*Message, error) {
	m, err := scanMessage(db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMessageStatus moves message id to target. allow sees the current row
// under the write lock and decides whether the move happens; returning false
// with a nil error leaves the row, including its stamp, untouched. The
// returned message reflects the row after the call.
func (db *DB) UpdateMessageStatus(ctx context.Context, id string, target wire.Status, allow func(*Message) (bool, error)) (*Message, error) {
	var out *Message
	err := db.write(ctx, func(tx *sql.Tx, now int64) error {
		m, err := scanMessage(tx.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("message %q: %w", id, wire.ErrNotFound)
		}
		if err != nil {
			return err
		}
		ok, err := allow(&m)
		if err != nil {
			return err
		}
		out = &m
		if !ok {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `UPDATE messages SET status = ?, updated_at = ? WHERE id = ?`, target, now, id); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		m.Status, m.UpdatedAt = target, now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListChatMessages returns one page of a chat's history. Page 1 holds the
// newest limit messages; each page is returned in chronological order.
func (db *DB) ListChatMessages(ctx context.Context, chatID string, page, limit int) ([]Message, bool, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE chat_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?`, chatID, limit+1, (page-1)*limit)
	if err != nil {
		return nil, false, err
	}
	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, false, err
	}
	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	slices.Reverse(msgs)
	return msgs, hasMore, nil
}

// Delta returns what changed in chatIDs after cursor (exclusive, unix micro).
//
// At most limit messages are returned, those modified earliest. When more
// remain, HasMore is set and Timestamp is the stamp of the last message
// returned, so the next call continues where this one stopped. Otherwise
// Timestamp is a fresh stamp, never before cursor. Chats are bounded by the
// same Timestamp.
// Messages are ordered by timestamp then id; chats by updated_at descending.
func (db *DB) Delta(ctx context.Context, chatIDs []string, cursor int64, limit int) (*Delta, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	d := &Delta{Timestamp: max(db.stamp(), cursor)}
	chatIDs = dedupe(chatIDs)
	if len(chatIDs) == 0 {
		return d, nil
	}
	if limit <= 0 {
		limit = 50
	}

	in := placeholders(len(chatIDs))
	args := append(toArgs(chatIDs), cursor, d.Timestamp, limit+1)
	rows, err := db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE chat_id IN (`+in+`) AND updated_at > ? AND updated_at <= ?
		ORDER BY updated_at, id
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("delta messages: %w", err)
	}
	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, fmt.Errorf("delta messages: %w", err)
	}
	if len(msgs) > limit {
		msgs = msgs[:limit]
		d.HasMore = true
		d.Timestamp = msgs[len(msgs)-1].UpdatedAt
	}
	slices.SortFunc(msgs, func(a, b Message) int {
		return cmp.Or(cmp.Compare(a.Timestamp, b.Timestamp), strings.Compare(a.ID, b.ID))
	})
	d.Messages = msgs

	args = append(toArgs(chatIDs), cursor, d.Timestamp)
	rows, err = db.QueryContext(ctx, `
		SELECT `+chatColumns+` FROM chats
		WHERE id IN (`+in+`) AND updated_at > ? AND updated_at <= ?
		ORDER BY updated_at DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("delta chats: %w", err)
	}
	if d.Chats, err = collectChats(rows); err != nil {
		return nil, fmt.Errorf("delta chats: %w", err)
	}
	return d, nil
}

// MessageCount returns the total number of messages.
func (db *DB) MessageCount(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
