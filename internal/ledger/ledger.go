// Package ledger tracks notifications already sent so that each (user, local
// day, slot) triple is delivered at most once. Slot keys are date-scoped:
// entries for past local days can be pruned without affecting correctness.
package ledger

import (
	"context"
	"fmt"
	"time"
)

// Ledger is the dedup bookkeeping behind the scheduler. Recording the same
// triple twice is a no-op; recording for different users concurrently is
// safe.
type Ledger interface {
	AlreadySent(ctx context.Context, userID int64, day, slot string) (bool, error)
	RecordSent(ctx context.Context, userID int64, day, slot string) error
	// Prune discards entries whose day is strictly before the given day.
	Prune(ctx context.Context, beforeDay string) error
	Close() error
}

// Slot keys for the non-daily categories. Daily reminders use the "HH:MM"
// slot time itself.
const (
	WarnThreeDays = "warn:3d"
	WarnOneDay    = "warn:1d"
)

// WeekKey builds the weekly-motivation slot key from the local time's ISO
// week, so the message fires once per ISO week.
func WeekKey(local time.Time) string {
	year, week := local.ISOWeek()
	return fmt.Sprintf("week:%04d-W%02d", year, week)
}

// ReflectKey builds the weekly-reflection slot key for the local time's ISO
// week.
func ReflectKey(local time.Time) string {
	year, week := local.ISOWeek()
	return fmt.Sprintf("reflect:%04d-W%02d", year, week)
}
