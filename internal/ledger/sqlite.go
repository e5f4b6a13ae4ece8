package ledger

import (
	"context"
	"database/sql"
)

// SQLite persists dedup entries in the bot's database, so slots stay consumed
// across restarts. It borrows the store's connection; the store owns its
// lifecycle.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an already-open database. The sent_log table is created by
// the store's migrations.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) AlreadySent(ctx context.Context, userID int64, day, slot string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM sent_log
		WHERE user_id = ? AND day = ? AND slot = ?`,
		userID, day, slot,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLite) RecordSent(ctx context.Context, userID int64, day, slot string) error {
	// Second insert of the same triple is a no-op, not an error.
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sent_log (user_id, day, slot)
		VALUES (?, ?, ?)`,
		userID, day, slot,
	)
	return err
}

func (s *SQLite) Prune(ctx context.Context, beforeDay string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sent_log WHERE day < ?`, beforeDay)
	return err
}

// Close is a no-op: the database handle belongs to the store.
func (s *SQLite) Close() error { return nil }
