package domain

import "time"

// Profile is the subset of a user record the bot works with: identity,
// schedule settings, and entitlement fields. The scheduler only reads it;
// writes go through the store.
type Profile struct {
	TelegramID     int64
	FullName       string
	TimezoneOffset int    // whole hours from UTC
	TimezoneLabel  string // display form, e.g. "UTC+3"

	// NotificationFrequency is reminders per day: one of 0, 1, 2, 4, 6.
	// 0 means reminders are disabled.
	NotificationFrequency int

	IsPremium    bool
	TrialStart   *time.Time // UTC, set when registration completes
	TrialEnd     *time.Time // UTC
	TrialExpired bool

	RegistrationComplete bool
	LastActivity         *time.Time // UTC, updated on every incoming update
	CreatedAt            time.Time  // UTC
}

// ActiveWithin reports whether the user interacted with the bot within d
// before now. Users mid-conversation are not nudged.
func (p *Profile) ActiveWithin(now time.Time, d time.Duration) bool {
	if p.LastActivity == nil {
		return false
	}
	return now.Sub(*p.LastActivity) <= d
}

// EmotionEntry is a single logged emotional state.
type EmotionEntry struct {
	ID        int64
	UserID    int64 // Telegram ID
	Emotion   string
	Note      string
	CreatedAt time.Time // UTC
}
