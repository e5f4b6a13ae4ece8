// Package scheduler runs the once-per-minute background pass that delivers
// emotion diary reminders, weekly messages and trial warnings in every user's
// local time, at most once per slot per local day.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jaloliddin1006/psyBot/internal/domain"
	"github.com/jaloliddin1006/psyBot/internal/eligibility"
	"github.com/jaloliddin1006/psyBot/internal/ledger"
)

// Sink delivers one message to one user. A failure affects only that
// delivery; it is never retried within the tick.
type Sink interface {
	Send(ctx context.Context, userID int64, text string) error
}

// ProfileSource lists the users a tick should consider.
type ProfileSource interface {
	ListActiveScheduleProfiles(ctx context.Context) ([]domain.Profile, error)
}

// Config carries the scheduler's fixed knobs.
type Config struct {
	WeeklyDay      time.Weekday // weekly motivation day (local)
	WeeklyTime     string       // "HH:MM" local
	ReflectionTime string       // "HH:MM" local, same weekday
	ActivityGrace  time.Duration
	SendTimeout    time.Duration
}

// Logical states of the loop.
const (
	stateIdle int32 = iota
	stateTicking
)

// Scheduler owns the tick loop. Ticks are driven by a cron entry on a
// one-minute cadence; SkipIfStillRunning guarantees a slow tick defers the
// next one instead of overlapping it.
type Scheduler struct {
	src    ProfileSource
	ledger ledger.Ledger
	filter *eligibility.Filter
	sink   Sink
	slots  domain.SlotTable
	cfg    Config
	log    *zap.Logger

	cron  *cron.Cron
	state atomic.Int32
	wg    sync.WaitGroup // tracks the startup tick, which runs outside cron

	now          func() time.Time
	lastPruneDay string
}

// New assembles a Scheduler. All collaborators are injected; nothing here
// touches the network directly.
func New(src ProfileSource, led ledger.Ledger, filter *eligibility.Filter, sink Sink, slots domain.SlotTable, cfg Config, log *zap.Logger) *Scheduler {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Scheduler{
		src:    src,
		ledger: led,
		filter: filter,
		sink:   sink,
		slots:  slots,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// Start registers the minute cron entry and fires an immediate first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	logger := cron.PrintfLogger(zap.NewStdLog(s.log.Named("cron")))
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(logger),
		cron.Recover(logger),
	))
	_, err := s.cron.AddFunc("* * * * *", func() { s.Tick(ctx) })
	if err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Tick(ctx)
	}()
	s.cron.Start()
	s.log.Info("scheduler started",
		zap.String("weekly_day", s.cfg.WeeklyDay.String()),
		zap.String("weekly_time", s.cfg.WeeklyTime),
	)
	return nil
}

// Stop halts the cadence and waits for an in-flight tick to finish its
// current user set.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// Tick performs one batch pass over all users. Only a failure to load the
// user list aborts the tick; per-user failures are contained.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.state.CompareAndSwap(stateIdle, stateTicking) {
		return
	}
	defer s.state.Store(stateIdle)

	now := s.now().UTC()

	users, err := s.src.ListActiveScheduleProfiles(ctx)
	if err != nil {
		// Retried on the next minute boundary.
		s.log.Error("list profiles failed, skipping tick", zap.Error(err))
		return
	}

	for i := range users {
		// Shutdown lets the current user finish, then stops the batch.
		if ctx.Err() != nil {
			s.log.Info("tick interrupted by shutdown")
			return
		}
		s.processUser(ctx, now, &users[i])
	}

	s.pruneAtRollover(ctx, now)
}

// processUser evaluates and delivers everything one user is owed on this
// tick. Any error is logged and contained here.
func (s *Scheduler) processUser(ctx context.Context, now time.Time, p *domain.Profile) {
	local := domain.LocalTime(now, p.TimezoneOffset)
	day := domain.DayKey(local)

	// One eligibility evaluation governs every event in this tick, including
	// the events of the very tick on which the trial expires.
	eligible, state := s.filter.Evaluate(ctx, p, now)
	if !eligible {
		s.log.Debug("user ineligible",
			zap.Int64("user", p.TelegramID),
			zap.String("state", state.String()),
		)
		return
	}

	due := decide(p, local, s.slots, s.cfg)

	if len(due.Slots) > 0 && p.ActiveWithin(now, s.cfg.ActivityGrace) {
		// Mid-conversation users are not nudged; the slot is left unconsumed
		// in case the activity window clears before the minute ends.
		due.Slots = nil
	}

	for _, slot := range due.Slots {
		ev := newEvent(p.TelegramID, CategoryEmotionReminder,
			reminderText(domain.BandFor(local.Hour()), p.FullName))
		s.attempt(ctx, p, ev, day, slot, local)
	}

	if due.Weekly {
		_, week := local.ISOWeek()
		ev := newEvent(p.TelegramID, CategoryWeeklyMotivation,
			motivationText(p.FullName, week))
		s.attempt(ctx, p, ev, day, ledger.WeekKey(local), local)
	}

	if due.Reflection {
		ev := newEvent(p.TelegramID, CategoryWeeklyReflection,
			reflectionText(p.FullName))
		s.attempt(ctx, p, ev, day, ledger.ReflectKey(local), local)
	}

	// Warnings are keyed by the trial end date, not the current day, so each
	// fires once per trial lifecycle and survives day-scoped pruning.
	if p.TrialEnd != nil {
		warnDay := domain.DayKey(p.TrialEnd.UTC())
		for _, kind := range s.filter.WarningDue(p, now) {
			ev := newEvent(p.TelegramID, CategoryTrialWarning, warningText(kind))
			s.attempt(ctx, p, ev, warnDay, kind, local)
		}
	}
}

// attempt delivers one event unless its slot is already consumed. The slot is
// recorded on any outcome: a failed delivery still consumes it, deliberately
// trading a lost message for the absence of retry storms (at-most-once).
func (s *Scheduler) attempt(ctx context.Context, p *domain.Profile, ev Event, day, slot string, local time.Time) {
	sent, err := s.ledger.AlreadySent(ctx, p.TelegramID, day, slot)
	if err != nil {
		s.log.Error("ledger lookup failed",
			zap.Int64("user", p.TelegramID), zap.String("slot", slot), zap.Error(err))
		return
	}
	if sent {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	err = s.sink.Send(sendCtx, ev.UserID, ev.Body)
	cancel()

	if err != nil {
		s.log.Error("delivery failed",
			zap.String("event", ev.ID),
			zap.String("category", string(ev.Category)),
			zap.Int64("user", p.TelegramID),
			zap.Error(err),
		)
	} else {
		s.log.Info("delivered",
			zap.String("event", ev.ID),
			zap.String("category", string(ev.Category)),
			zap.Int64("user", p.TelegramID),
			zap.String("local_time", domain.ClockKey(local)),
			zap.String("tz", p.TimezoneLabel),
		)
	}

	if err := s.ledger.RecordSent(ctx, p.TelegramID, day, slot); err != nil {
		s.log.Error("record sent failed",
			zap.Int64("user", p.TelegramID), zap.String("slot", slot), zap.Error(err))
	}
}

// pruneAtRollover discards ledger entries older than two days, once per
// server day.
func (s *Scheduler) pruneAtRollover(ctx context.Context, now time.Time) {
	today := domain.DayKey(now)
	if s.lastPruneDay == "" {
		s.lastPruneDay = today
		return
	}
	if s.lastPruneDay == today {
		return
	}
	s.lastPruneDay = today

	cutoff := domain.DayKey(now.Add(-48 * time.Hour))
	if err := s.ledger.Prune(ctx, cutoff); err != nil {
		s.log.Error("ledger prune failed", zap.Error(err))
		return
	}
	s.log.Info("ledger pruned", zap.String("before", cutoff))
}
