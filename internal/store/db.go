package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database behind chat.db.
//
// Every row carries an updated_at stamp taken from a strictly increasing
// clock. Writers hold mu exclusively from taking their stamp until commit, and
// delta readers hold it shared from taking theirs until their queries finish,
// so a stamp handed out as a cursor is never undercut by a later commit.
type DB struct {
	*sql.DB

	mu   sync.RWMutex
	last atomic.Int64
	now  func() time.Time
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: db, now: time.Now}, nil
}

// SetClock replaces the wall clock used for stamps. Tests only.
func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}

// stamp returns a unix-microsecond time strictly greater than any stamp
// returned before.
func (db *DB) stamp() int64 {
	now := db.now().UnixMicro()
	for {
		last := db.last.Load()
		next := max(now, last+1)
		if db.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

// seedClock moves the clock past every persisted stamp so a wall clock that
// stepped backwards across restarts cannot reissue old values.
func (db *DB) seedClock(ctx context.Context) error {
	var high int64
	err := db.QueryRowContext(ctx, `
		SELECT MAX(v) FROM (
			SELECT COALESCE(MAX(updated_at), 0) AS v FROM messages
			UNION ALL
			SELECT COALESCE(MAX(updated_at), 0) FROM chats
		)`).Scan(&high)
	if err != nil {
		return fmt.Errorf("seed clock: %w", err)
	}
	for {
		last := db.last.Load()
		if last >= high || db.last.CompareAndSwap(last, high) {
			return nil
		}
	}
}

// write runs fn in a transaction while holding the write lock. now is the
// stamp for every row fn touches.
func (db *DB) write(ctx context.Context, fn func(tx *sql.Tx, now int64) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx, db.stamp()); err != nil {
		return err
	}
	return tx.Commit()
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// FromMicros converts a stored stamp to time. Zero stays the zero time.
func FromMicros(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

// Micros converts t to a stored stamp. The zero time maps to 0.
func Micros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}
