// Package eligibility decides, per tick and per user, whether notifications
// may be sent, and owns the one-shot trial-expiry transition.
package eligibility

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jaloliddin1006/psyBot/internal/domain"
	"github.com/jaloliddin1006/psyBot/internal/ledger"
)

// Warning thresholds for trial expiry, checked against remaining trial time.
const (
	threeDayThreshold = 72 * time.Hour
	oneDayThreshold   = 24 * time.Hour
)

// EntitlementWriter persists entitlement transitions. The account store
// implements it.
type EntitlementWriter interface {
	UpdateEntitlement(ctx context.Context, telegramID int64, state domain.EntitlementState) error
}

// Filter evaluates entitlement per user. It is cheap (no network I/O) and
// re-run every tick; the expiry write-back is idempotent.
type Filter struct {
	store EntitlementWriter
	log   *zap.Logger
}

// New creates a Filter writing transitions through the given store.
func New(store EntitlementWriter, log *zap.Logger) *Filter {
	return &Filter{store: store, log: log}
}

// Evaluate reports whether the profile qualifies for notifications at the
// given instant, with the ineligibility reason otherwise. Crossing the trial
// end performs the one-shot TrialActive → TrialExpired write-back; if the
// write fails it is logged, ineligible is assumed for this tick, and the
// write is retried on the next tick (the profile flag is only flipped after
// a successful write).
func (f *Filter) Evaluate(ctx context.Context, p *domain.Profile, now time.Time) (bool, domain.EntitlementState) {
	state, _ := p.Entitlement(now)
	switch state {
	case domain.Premium, domain.TrialActive:
		return true, state
	case domain.TrialExpired:
		if !p.TrialExpired {
			// First tick at/after the trial end instant.
			if err := f.store.UpdateEntitlement(ctx, p.TelegramID, domain.TrialExpired); err != nil {
				f.log.Error("trial expiry write-back failed",
					zap.Int64("user", p.TelegramID), zap.Error(err))
			} else {
				p.TrialExpired = true
				f.log.Info("trial expired", zap.Int64("user", p.TelegramID))
			}
		}
		return false, state
	default:
		return false, state
	}
}

// WarningDue returns the trial warning kinds due for the profile, in
// threshold order. A kind is due when the remaining trial time has dropped to
// or below its threshold; both kinds are returned when both thresholds have
// been crossed (e.g. after scheduler downtime). Dedup against the ledger is
// the caller's job.
func (f *Filter) WarningDue(p *domain.Profile, now time.Time) []string {
	state, _ := p.Entitlement(now)
	if state != domain.TrialActive {
		return nil
	}
	remaining := p.TrialRemaining(now)
	if remaining <= 0 {
		return nil
	}
	var due []string
	if remaining <= threeDayThreshold {
		due = append(due, ledger.WarnThreeDays)
	}
	if remaining <= oneDayThreshold {
		due = append(due, ledger.WarnOneDay)
	}
	return due
}
