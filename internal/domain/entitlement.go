package domain

import "time"

// EntitlementState is the user's current access tier.
type EntitlementState int

const (
	// NoTrial means registration never completed, so no trial was started.
	NoTrial EntitlementState = iota
	// TrialActive means the trial window is still open.
	TrialActive
	// TrialExpired means the trial window closed and no premium was granted.
	TrialExpired
	// Premium means unlimited access, granted administratively.
	Premium
)

func (s EntitlementState) String() string {
	switch s {
	case Premium:
		return "premium"
	case TrialActive:
		return "trial_active"
	case TrialExpired:
		return "trial_expired"
	default:
		return "no_trial"
	}
}

// Entitlement derives the profile's access tier at the given instant and, for
// active trials, the number of whole days remaining. Premium reports -1 days
// (unlimited). The derivation is pure; persisting the TrialActive →
// TrialExpired transition is the eligibility filter's job.
func (p *Profile) Entitlement(now time.Time) (EntitlementState, int) {
	if p.IsPremium {
		return Premium, -1
	}
	if p.TrialStart == nil || p.TrialEnd == nil {
		return NoTrial, 0
	}
	if p.TrialExpired || !now.Before(*p.TrialEnd) {
		return TrialExpired, 0
	}
	days := int(p.TrialEnd.Sub(now) / (24 * time.Hour))
	return TrialActive, days
}

// TrialRemaining returns the time left on an active trial, or zero if the
// profile has no open trial window.
func (p *Profile) TrialRemaining(now time.Time) time.Duration {
	if p.IsPremium || p.TrialExpired || p.TrialEnd == nil {
		return 0
	}
	rem := p.TrialEnd.Sub(now)
	if rem < 0 {
		return 0
	}
	return rem
}

// StartTrial opens the trial window. Called once, when registration
// completes.
func (p *Profile) StartTrial(now time.Time, d time.Duration) {
	start := now.UTC()
	end := start.Add(d)
	p.TrialStart = &start
	p.TrialEnd = &end
	p.IsPremium = false
	p.TrialExpired = false
}
