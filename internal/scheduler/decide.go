package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/jaloliddin1006/psyBot/internal/domain"
)

// Category classifies a notification event.
type Category string

const (
	CategoryEmotionReminder  Category = "emotion-reminder"
	CategoryWeeklyMotivation Category = "weekly-motivation"
	CategoryWeeklyReflection Category = "weekly-reflection"
	CategoryTrialWarning     Category = "trial-warning"
)

// Event is an ephemeral notification: produced during a tick, handed to the
// delivery sink, and discarded. Not persisted beyond the attempt.
type Event struct {
	ID       string
	UserID   int64
	Category Category
	Body     string
}

func newEvent(userID int64, cat Category, body string) Event {
	return Event{ID: uuid.NewString(), UserID: userID, Category: cat, Body: body}
}

// Due lists what a user is owed at one local instant, before dedup and
// eligibility are applied. Pure output of decide.
type Due struct {
	Slots      []string // daily reminder slots matching the local minute
	Weekly     bool     // weekly motivation minute
	Reflection bool     // weekly reflection minute
}

// decide computes what is due for a profile at the given local wall-clock
// time. Matching is exact to the minute; the tick cadence is one minute and
// ticks never overlap, so a minute is evaluated at most once.
func decide(p *domain.Profile, local time.Time, table domain.SlotTable, cfg Config) Due {
	clock := domain.ClockKey(local)

	var d Due
	for _, slot := range table.SlotsFor(p.NotificationFrequency) {
		if slot == clock {
			d.Slots = append(d.Slots, slot)
		}
	}
	if local.Weekday() == cfg.WeeklyDay {
		d.Weekly = clock == cfg.WeeklyTime
		d.Reflection = clock == cfg.ReflectionTime
	}
	return d
}
