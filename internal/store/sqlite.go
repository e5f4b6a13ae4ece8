package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/jaloliddin1006/psyBot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and
// concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// DB exposes the underlying handle for components that share the database,
// such as the SQLite dedup ledger.
func (r *SQLiteRepo) DB() *sql.DB { return r.db }

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error { return r.db.Close() }

const profileColumns = `telegram_id, full_name, timezone_offset, timezone_label,
	notification_frequency, is_premium, trial_start, trial_end, trial_expired,
	registration_complete, last_activity, created_at`

// UpsertProfile inserts or updates a user's profile.
func (r *SQLiteRepo) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	if p == nil {
		return errors.New("nil profile")
	}

	created := p.CreatedAt.UTC().Unix()
	if p.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			full_name              = excluded.full_name,
			timezone_offset        = excluded.timezone_offset,
			timezone_label         = excluded.timezone_label,
			notification_frequency = excluded.notification_frequency,
			is_premium             = excluded.is_premium,
			trial_start            = excluded.trial_start,
			trial_end              = excluded.trial_end,
			trial_expired          = excluded.trial_expired,
			registration_complete  = excluded.registration_complete,
			last_activity          = excluded.last_activity`,
		p.TelegramID, p.FullName, p.TimezoneOffset, p.TimezoneLabel,
		p.NotificationFrequency, boolToInt(p.IsPremium),
		toNullInt64(p.TrialStart), toNullInt64(p.TrialEnd), boolToInt(p.TrialExpired),
		boolToInt(p.RegistrationComplete), toNullInt64(p.LastActivity), created,
	)
	return err
}

func scanProfile(row interface{ Scan(...any) error }) (*domain.Profile, error) {
	var (
		p          domain.Profile
		isPremium  int
		trialStart sql.NullInt64
		trialEnd   sql.NullInt64
		expired    int
		regDone    int
		activity   sql.NullInt64
		createdAt  int64
	)
	if err := row.Scan(
		&p.TelegramID, &p.FullName, &p.TimezoneOffset, &p.TimezoneLabel,
		&p.NotificationFrequency, &isPremium, &trialStart, &trialEnd, &expired,
		&regDone, &activity, &createdAt,
	); err != nil {
		return nil, err
	}
	p.IsPremium = isPremium != 0
	p.TrialStart = fromNullInt64(trialStart)
	p.TrialEnd = fromNullInt64(trialEnd)
	p.TrialExpired = expired != 0
	p.RegistrationComplete = regDone != 0
	p.LastActivity = fromNullInt64(activity)
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

// GetProfile returns a user's profile by Telegram ID or an error if not
// found.
func (r *SQLiteRepo) GetProfile(ctx context.Context, telegramID int64) (*domain.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM users
		WHERE telegram_id = ?`,
		telegramID,
	)
	return scanProfile(row)
}

// ListActiveScheduleProfiles returns registered users whose trial has not
// been marked expired (premium users included).
func (r *SQLiteRepo) ListActiveScheduleProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM users
		WHERE registration_complete = 1
		  AND full_name != ''
		  AND (is_premium = 1 OR trial_expired = 0)
		ORDER BY telegram_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// UpdateEntitlement writes a new entitlement state for the user. Premium and
// revocation come from the administrative surface; the expiry transition
// comes from the eligibility filter.
func (r *SQLiteRepo) UpdateEntitlement(ctx context.Context, telegramID int64, state domain.EntitlementState) error {
	var premium, expired int
	switch state {
	case domain.Premium:
		premium, expired = 1, 0
	case domain.TrialExpired:
		premium, expired = 0, 1
	case domain.TrialActive, domain.NoTrial:
		premium, expired = 0, 0
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET is_premium = ?, trial_expired = ?
		WHERE telegram_id = ?`,
		premium, expired, telegramID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetFrequency updates the reminders-per-day setting.
func (r *SQLiteRepo) SetFrequency(ctx context.Context, telegramID int64, frequency int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET notification_frequency = ?
		WHERE telegram_id = ?`,
		frequency, telegramID,
	)
	return err
}

// SetTimezone updates the stored UTC offset and its display label.
func (r *SQLiteRepo) SetTimezone(ctx context.Context, telegramID int64, offsetHours int, label string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET timezone_offset = ?, timezone_label = ?
		WHERE telegram_id = ?`,
		offsetHours, label, telegramID,
	)
	return err
}

// TouchActivity records the last time the user interacted with the bot.
func (r *SQLiteRepo) TouchActivity(ctx context.Context, telegramID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET last_activity = ?
		WHERE telegram_id = ?`,
		at.UTC().Unix(), telegramID,
	)
	return err
}

// AddEmotionEntry stores one logged emotional state.
func (r *SQLiteRepo) AddEmotionEntry(ctx context.Context, e *domain.EmotionEntry) error {
	if e == nil {
		return errors.New("nil entry")
	}
	created := e.CreatedAt.UTC().Unix()
	if e.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO emotion_entries (user_id, emotion, note, created_at)
		VALUES (?, ?, ?, ?)`,
		e.UserID, e.Emotion, e.Note, created,
	)
	return err
}

// ListEmotionsSince returns the user's entries created at or after the given
// instant, oldest first.
func (r *SQLiteRepo) ListEmotionsSince(ctx context.Context, telegramID int64, since time.Time) ([]domain.EmotionEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, emotion, note, created_at
		FROM emotion_entries
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at ASC`,
		telegramID, since.UTC().Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.EmotionEntry
	for rows.Next() {
		var (
			e       domain.EmotionEntry
			created int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Emotion, &e.Note, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(created, 0).UTC()
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
