package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// CreateToken issues a new opaque bearer token for userID.
func (db *DB) CreateToken(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(buf)
	_, err := db.ExecContext(ctx, `INSERT INTO tokens (token, user_id, created_at) VALUES (?, ?, ?)`,
		token, userID, time.Now().UnixMicro())
	if err != nil {
		return "", fmt.Errorf("insert token: %w", err)
	}
	return token, nil
}

// ResolveToken returns the user ID a token belongs to, or "" if the token is unknown.
func (db *DB) ResolveToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", nil
	}
	var userID string
	err := db.QueryRowContext(ctx, `SELECT user_id FROM tokens WHERE token = ?`, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return userID, err
}

// RevokeTokens deletes every token of userID.
func (db *DB) RevokeTokens(ctx context.Context, userID string) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM tokens WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
