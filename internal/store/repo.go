package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jaloliddin1006/psyBot/internal/domain"
)

// Repo defines storage operations for user profiles, entitlements and
// emotion entries. Both the conversational path and the scheduler go through
// it; the database is the single source of truth.
type Repo interface {
	UpsertProfile(ctx context.Context, p *domain.Profile) error
	GetProfile(ctx context.Context, telegramID int64) (*domain.Profile, error)

	// ListActiveScheduleProfiles returns registered users the scheduler
	// should consider on a tick. Expired trials are filtered out up front;
	// the eligibility filter re-checks per user.
	ListActiveScheduleProfiles(ctx context.Context) ([]domain.Profile, error)

	UpdateEntitlement(ctx context.Context, telegramID int64, state domain.EntitlementState) error
	SetFrequency(ctx context.Context, telegramID int64, frequency int) error
	SetTimezone(ctx context.Context, telegramID int64, offsetHours int, label string) error
	TouchActivity(ctx context.Context, telegramID int64, at time.Time) error

	AddEmotionEntry(ctx context.Context, e *domain.EmotionEntry) error
	ListEmotionsSince(ctx context.Context, telegramID int64, since time.Time) ([]domain.EmotionEntry, error)

	// DB exposes the underlying handle so the dedup ledger can share it.
	DB() *sql.DB
	Close() error
}
