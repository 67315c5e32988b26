package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/matheus3301/pollchat/internal/wire"
)

// UpsertUser inserts or updates a user profile. Empty email and avatar keep
// the stored values. A user without an ID gets a fresh one.
func (db *DB) UpsertUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return db.write(ctx, func(tx *sql.Tx, now int64) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, username, email, avatar, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				username = excluded.username,
				email = CASE WHEN excluded.email != '' THEN excluded.email ELSE users.email END,
				avatar = CASE WHEN excluded.avatar != '' THEN excluded.avatar ELSE users.avatar END,
				updated_at = excluded.updated_at`,
			u.ID, u.Username, u.Email, u.Avatar, now, now)
		if err != nil {
			return fmt.Errorf("upsert user %q: %w", u.ID, err)
		}
		return tx.QueryRowContext(ctx, `SELECT email, avatar, last_seen, created_at, updated_at FROM users WHERE id = ?`, u.ID).
			Scan(&u.Email, &u.Avatar, &u.LastSeen, &u.CreatedAt, &u.UpdatedAt)
	})
}

const userColumns = `id, username, email, avatar, last_seen, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Avatar, &u.LastSeen, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetUser returns a user by ID, or nil if it does not exist.
func (db *DB) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUsers returns the users with the given IDs keyed by ID. Missing IDs are
// absent from the map.
func (db *DB) GetUsers(ctx context.Context, ids []string) (map[string]User, error) {
	out := make(map[string]User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders(len(ids))+`)`, toArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

// SearchUsers returns users other than exclude whose username or email
// contains query, case-insensitively. An empty query lists everyone.
func (db *DB) SearchUsers(ctx context.Context, exclude, query string, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + userColumns + ` FROM users WHERE id != ?`
	args := []any{exclude}
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + escapeLike(strings.ToLower(query)) + "%"
		q += ` AND (LOWER(username) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`
		args = append(args, like, like)
	}
	q += ` ORDER BY username COLLATE NOCASE, id LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// TouchLastSeen records at (unix micro) as the user's last activity.
func (db *DB) TouchLastSeen(ctx context.Context, id string, at int64) error {
	res, err := db.ExecContext(ctx, `UPDATE users SET last_seen = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("touch last seen: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %q: %w", id, wire.ErrNotFound)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
