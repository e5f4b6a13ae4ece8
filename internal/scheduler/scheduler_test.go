package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jaloliddin1006/psyBot/internal/domain"
	"github.com/jaloliddin1006/psyBot/internal/eligibility"
	"github.com/jaloliddin1006/psyBot/internal/ledger"
)

type fakeSource struct {
	profiles []domain.Profile
	err      error
}

func (f *fakeSource) ListActiveScheduleProfiles(context.Context) ([]domain.Profile, error) {
	return f.profiles, f.err
}

type sent struct {
	userID int64
	text   string
}

type fakeSink struct {
	mu      sync.Mutex
	sends   []sent
	failFor map[int64]bool
}

func (f *fakeSink) Send(_ context.Context, userID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sent{userID, text})
	if f.failFor[userID] {
		return errors.New("transport error")
	}
	return nil
}

func (f *fakeSink) count(userID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sends {
		if s.userID == userID {
			n++
		}
	}
	return n
}

func (f *fakeSink) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

type fakeWriter struct {
	states []domain.EntitlementState
}

func (f *fakeWriter) UpdateEntitlement(_ context.Context, _ int64, state domain.EntitlementState) error {
	f.states = append(f.states, state)
	return nil
}

func testConfig() Config {
	return Config{
		WeeklyDay:      time.Sunday,
		WeeklyTime:     "10:00",
		ReflectionTime: "17:00",
		ActivityGrace:  15 * time.Minute,
		SendTimeout:    time.Second,
	}
}

type fixture struct {
	src    *fakeSource
	sink   *fakeSink
	led    *ledger.Memory
	writer *fakeWriter
	sched  *Scheduler
}

func newFixture(profiles ...domain.Profile) *fixture {
	f := &fixture{
		src:    &fakeSource{profiles: profiles},
		sink:   &fakeSink{failFor: map[int64]bool{}},
		led:    ledger.NewMemory(),
		writer: &fakeWriter{},
	}
	filter := eligibility.New(f.writer, zap.NewNop())
	f.sched = New(f.src, f.led, filter, f.sink, domain.DefaultSlotTable(), testConfig(), zap.NewNop())
	return f
}

func (f *fixture) tickAt(t *testing.T, at time.Time) {
	t.Helper()
	f.sched.now = func() time.Time { return at }
	f.sched.Tick(context.Background())
}

func premiumProfile(id int64, offset, freq int) domain.Profile {
	return domain.Profile{
		TelegramID:            id,
		FullName:              "Alex",
		TimezoneOffset:        offset,
		TimezoneLabel:         domain.FormatOffset(offset),
		NotificationFrequency: freq,
		IsPremium:             true,
		RegistrationComplete:  true,
	}
}

// Monday, so weekly messages stay out of daily-reminder tests.
var monday = time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)

func at(base time.Time, hour, min int) time.Time {
	return time.Date(base.Year(), base.Month(), base.Day(), hour, min, 0, 0, time.UTC)
}

func TestTick_FrequencyZeroNeverFires(t *testing.T) {
	f := newFixture(premiumProfile(1, 0, 0))

	// Sweep every slot minute of the default table.
	for _, slots := range domain.DefaultSlotTable() {
		for _, s := range slots {
			m, _ := domain.ParseClock(s)
			f.tickAt(t, at(monday, m/60, m%60))
		}
	}
	if f.sink.total() != 0 {
		t.Fatalf("frequency 0 must never fire, got %d sends", f.sink.total())
	}
}

func TestTick_SlotFiresInUserLocalTime(t *testing.T) {
	// Offset +5: server 11:00 is local 16:00, the single daily slot.
	f := newFixture(premiumProfile(1, 5, 1), premiumProfile(2, 0, 1))

	f.tickAt(t, at(monday, 11, 0))
	if got := f.sink.count(1); got != 1 {
		t.Fatalf("offset +5 user: want 1 send at local 16:00, got %d", got)
	}
	if got := f.sink.count(2); got != 0 {
		t.Fatalf("offset 0 user at 11:00: want 0 sends, got %d", got)
	}

	// Five hours later it is the UTC user's turn; the +5 user is at 21:00.
	f.tickAt(t, at(monday, 16, 0))
	if got := f.sink.count(1); got != 1 {
		t.Fatalf("offset +5 user must not fire again, got %d", got)
	}
	if got := f.sink.count(2); got != 1 {
		t.Fatalf("offset 0 user: want 1 send at 16:00, got %d", got)
	}
}

func TestTick_DuplicateMinuteSuppressed(t *testing.T) {
	f := newFixture(premiumProfile(1, 0, 1))

	f.tickAt(t, at(monday, 16, 0))
	f.tickAt(t, at(monday, 16, 0))
	if got := f.sink.count(1); got != 1 {
		t.Fatalf("same slot twice in a day: want 1 send, got %d", got)
	}

	// The same slot the next day is a fresh triple.
	f.tickAt(t, at(monday.Add(24*time.Hour), 16, 0))
	if got := f.sink.count(1); got != 2 {
		t.Fatalf("next day: want 2 sends total, got %d", got)
	}
}

func TestTick_GreetingFollowsLocalBand(t *testing.T) {
	f := newFixture(premiumProfile(1, 0, 2)) // slots 12:00 and 17:00

	f.tickAt(t, at(monday, 12, 0))
	f.tickAt(t, at(monday, 17, 0))

	if f.sink.total() != 2 {
		t.Fatalf("want 2 sends, got %d", f.sink.total())
	}
	if !strings.HasPrefix(f.sink.sends[0].text, "Good afternoon") {
		t.Fatalf("12:00 send should greet the afternoon, got %q", f.sink.sends[0].text)
	}
	if !strings.HasPrefix(f.sink.sends[1].text, "Good evening") {
		t.Fatalf("17:00 send should greet the evening, got %q", f.sink.sends[1].text)
	}
}

func TestTick_FailureIsolatedAndSlotConsumed(t *testing.T) {
	f := newFixture(premiumProfile(1, 0, 1), premiumProfile(2, 0, 1))
	f.sink.failFor[1] = true

	f.tickAt(t, at(monday, 16, 0))

	if got := f.sink.count(2); got != 1 {
		t.Fatalf("user 2 must still receive, got %d", got)
	}
	// User 1's failed attempt consumed the slot: no retry storm.
	f.tickAt(t, at(monday, 16, 0))
	if got := f.sink.count(1); got != 1 {
		t.Fatalf("failed slot must stay consumed, got %d attempts", got)
	}
}

func TestTick_ListFailureAbortsTick(t *testing.T) {
	f := newFixture(premiumProfile(1, 0, 1))
	f.src.err = errors.New("db down")

	f.tickAt(t, at(monday, 16, 0))
	if f.sink.total() != 0 {
		t.Fatal("a failed list must abort the tick")
	}

	// Next minute boundary retries.
	f.src.err = nil
	f.tickAt(t, at(monday, 16, 0))
	if got := f.sink.count(1); got != 1 {
		t.Fatalf("recovered tick: want 1 send, got %d", got)
	}
}

func TestTick_ActiveUserNotNudged(t *testing.T) {
	p := premiumProfile(1, 0, 1)
	tickTime := at(monday, 16, 0)
	recent := tickTime.Add(-5 * time.Minute)
	p.LastActivity = &recent
	f := newFixture(p)

	f.tickAt(t, tickTime)
	if f.sink.total() != 0 {
		t.Fatal("mid-conversation user must not be nudged")
	}
	// The slot was not consumed either.
	if sentAlready, _ := f.led.AlreadySent(context.Background(), 1, "2025-05-05", "16:00"); sentAlready {
		t.Fatal("skipped slot must stay unconsumed")
	}
}

func TestTick_WeeklyMotivationOncePerISOWeek(t *testing.T) {
	// Sunday 2025-05-11, local 10:00 for a UTC user.
	sunday := time.Date(2025, time.May, 11, 0, 0, 0, 0, time.UTC)
	f := newFixture(premiumProfile(1, 0, 0)) // reminders off, weekly still applies

	f.tickAt(t, at(sunday, 10, 0))
	if got := f.sink.count(1); got != 1 {
		t.Fatalf("want weekly motivation once, got %d", got)
	}

	// A restart mid-week shares the ledger: no duplicate on a repeated tick.
	filter := eligibility.New(f.writer, zap.NewNop())
	restarted := New(f.src, f.led, filter, f.sink, domain.DefaultSlotTable(), testConfig(), zap.NewNop())
	restarted.now = func() time.Time { return at(sunday, 10, 0) }
	restarted.Tick(context.Background())
	if got := f.sink.count(1); got != 1 {
		t.Fatalf("restart must not re-send the weekly message, got %d", got)
	}

	// Next ISO week fires again.
	f.tickAt(t, at(sunday.Add(7*24*time.Hour), 10, 0))
	if got := f.sink.count(1); got != 2 {
		t.Fatalf("next week: want 2 sends total, got %d", got)
	}
}

func TestTick_WeeklyReflectionPrompt(t *testing.T) {
	sunday := time.Date(2025, time.May, 11, 0, 0, 0, 0, time.UTC)
	f := newFixture(premiumProfile(1, 0, 0))

	f.tickAt(t, at(sunday, 17, 0))
	f.tickAt(t, at(sunday, 17, 0))
	if got := f.sink.count(1); got != 1 {
		t.Fatalf("want reflection prompt once, got %d", got)
	}
	if !strings.Contains(f.sink.sends[0].text, "weekly reflection") {
		t.Fatalf("unexpected reflection text: %q", f.sink.sends[0].text)
	}
}

func trialUser(id int64, freq int, end time.Time) domain.Profile {
	start := end.Add(-14 * 24 * time.Hour)
	return domain.Profile{
		TelegramID:            id,
		FullName:              "Sam",
		NotificationFrequency: freq,
		TrialStart:            &start,
		TrialEnd:              &end,
		RegistrationComplete:  true,
	}
}

func TestTick_TrialBoundary(t *testing.T) {
	slotTime := at(monday, 16, 0)

	// Before the end (and outside the warning windows) the user is served.
	f := newFixture(trialUser(1, 1, slotTime.Add(4*24*time.Hour)))
	f.tickAt(t, slotTime)
	if got := f.sink.count(1); got != 1 {
		t.Fatalf("still in trial at slot time: want 1 send, got %d", got)
	}
	if len(f.writer.states) != 0 {
		t.Fatal("no transition should happen before the end instant")
	}

	// A trial ending exactly at the tick instant transitions and gets nothing.
	f2 := newFixture(trialUser(2, 1, slotTime))
	f2.tickAt(t, slotTime)
	if got := f2.sink.count(2); got != 0 {
		t.Fatalf("expired at tick instant: want 0 sends, got %d", got)
	}
	if len(f2.writer.states) != 1 || f2.writer.states[0] != domain.TrialExpired {
		t.Fatalf("want one TrialExpired write-back, got %v", f2.writer.states)
	}

	// Later ticks do not repeat the write-back.
	f2.src.profiles[0].TrialExpired = true
	f2.tickAt(t, slotTime.Add(time.Minute))
	if len(f2.writer.states) != 1 {
		t.Fatalf("transition must be one-shot, got %v", f2.writer.states)
	}
}

func TestTick_TrialWarningsOncePerLifecycle(t *testing.T) {
	end := at(monday, 12, 0).Add(60 * time.Hour) // inside the 3-day window
	f := newFixture(trialUser(1, 0, end))

	f.tickAt(t, at(monday, 12, 0))
	if got := f.sink.count(1); got != 1 {
		t.Fatalf("want one 3-day warning, got %d", got)
	}
	f.tickAt(t, at(monday, 12, 1))
	if got := f.sink.count(1); got != 1 {
		t.Fatalf("3-day warning must not repeat, got %d", got)
	}

	// Two days later the 1-day threshold is crossed; only that one fires.
	f.tickAt(t, at(monday.Add(48*time.Hour), 12, 0))
	if got := f.sink.count(1); got != 2 {
		t.Fatalf("want the 1-day warning too, got %d sends", got)
	}
}

func TestTick_BothWarningsAfterDowntime(t *testing.T) {
	// Scheduler was down past both thresholds: both fire, once each.
	end := at(monday, 12, 0).Add(10 * time.Hour)
	f := newFixture(trialUser(1, 0, end))

	f.tickAt(t, at(monday, 12, 0))
	if got := f.sink.count(1); got != 2 {
		t.Fatalf("want both warnings delivered once each, got %d", got)
	}
	f.tickAt(t, at(monday, 12, 1))
	if got := f.sink.count(1); got != 2 {
		t.Fatalf("warnings must not repeat, got %d", got)
	}
}

func TestTick_PruneKeepsWarningDedup(t *testing.T) {
	// Warning dedup is keyed by the trial end date, so a day rollover prune
	// must not resurrect it.
	end := at(monday, 12, 0).Add(60 * time.Hour)
	f := newFixture(trialUser(1, 0, end))

	f.tickAt(t, at(monday, 12, 0)) // 3-day warning
	// Two day rollovers trigger prunes of past days; the second rollover is
	// already inside the 1-day window, so that warning fires there.
	f.tickAt(t, at(monday.Add(24*time.Hour), 3, 0))
	f.tickAt(t, at(monday.Add(48*time.Hour), 3, 0))

	f.tickAt(t, at(monday.Add(48*time.Hour), 12, 0))
	if got := f.sink.count(1); got != 2 {
		t.Fatalf("want 3-day then 1-day warning only, got %d sends", got)
	}
}

type blockingSink struct {
	inner   *fakeSink
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSink) Send(ctx context.Context, userID int64, text string) error {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.inner.Send(ctx, userID, text)
}

// The immediate tick fired by Start runs outside cron, so Stop must wait for
// it too; returning early would let the process close the ledger under a
// delivery whose slot is not yet recorded.
func TestStop_WaitsForStartupTick(t *testing.T) {
	f := newFixture(premiumProfile(1, 0, 1))
	block := &blockingSink{
		inner:   f.sink,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	filter := eligibility.New(f.writer, zap.NewNop())
	s := New(f.src, f.led, filter, block, domain.DefaultSlotTable(), testConfig(), zap.NewNop())
	s.now = func() time.Time { return at(monday, 16, 0) }

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-block.started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the startup tick was mid-delivery")
	case <-time.After(50 * time.Millisecond):
	}

	close(block.release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the tick finished")
	}

	if sent, _ := f.led.AlreadySent(context.Background(), 1, "2025-05-05", "16:00"); !sent {
		t.Fatal("slot must be recorded before shutdown completes")
	}
}

func TestTick_StateReturnsToIdle(t *testing.T) {
	f := newFixture(premiumProfile(1, 0, 1))
	f.tickAt(t, at(monday, 16, 0))
	if got := f.sched.state.Load(); got != stateIdle {
		t.Fatalf("scheduler must be idle between ticks, state=%d", got)
	}
}
