package telegram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/jaloliddin1006/psyBot/internal/domain"
)

const defaultFrequency = 1

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	_, _ = r.bot.Send(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// registeredProfile loads the profile and tells the user to register when it
// is missing or incomplete.
func (r *Router) registeredProfile(ctx context.Context, chatID int64) *domain.Profile {
	p, err := r.repo.GetProfile(ctx, chatID)
	if err != nil || !p.RegistrationComplete {
		r.sendText(chatID, notRegisteredText)
		return nil
	}
	return p
}

// --- Registration ---

// handleStart creates the profile if needed and walks the user through
// registration: name first, then timezone, with the trial starting once the
// name is known. A fresh profile is only written when the lookup reports
// not-found; any other lookup error must not overwrite an existing row with a
// blank one.
func (r *Router) handleStart(ctx context.Context, chatID int64) {
	p, err := r.repo.GetProfile(ctx, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		now := time.Now().UTC()
		p = &domain.Profile{
			TelegramID:            chatID,
			TimezoneLabel:         domain.FormatOffset(0),
			NotificationFrequency: defaultFrequency,
			CreatedAt:             now,
		}
		if err := r.repo.UpsertProfile(ctx, p); err != nil {
			r.log.Error("create profile failed", zap.Int64("user", chatID), zap.Error(err))
			r.sendText(chatID, "Profile initialization error. Please try again later.")
			return
		}
	case err != nil:
		r.log.Error("load profile failed", zap.Int64("user", chatID), zap.Error(err))
		r.sendText(chatID, "Something went wrong. Please try /start again.")
		return
	}

	if p.RegistrationComplete {
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(welcomeFmt, p.FullName, r.opts.TrialDays))
		msg.ReplyMarkup = mainMenuKeyboard()
		_, _ = r.bot.Send(msg)
		return
	}

	r.setPending(chatID, pendingName)
	r.sendText(chatID, startText)
}

func (r *Router) completeRegistration(ctx context.Context, chatID int64, name string) {
	p, err := r.repo.GetProfile(ctx, chatID)
	if err != nil {
		r.log.Error("load profile failed", zap.Int64("user", chatID), zap.Error(err))
		r.sendText(chatID, "Something went wrong. Please try /start again.")
		return
	}

	now := time.Now().UTC()
	p.FullName = name
	p.RegistrationComplete = true
	p.StartTrial(now, time.Duration(r.opts.TrialDays)*24*time.Hour)

	if err := r.repo.UpsertProfile(ctx, p); err != nil {
		r.log.Error("save profile failed", zap.Int64("user", chatID), zap.Error(err))
		r.sendText(chatID, "Could not save your profile. Please try /start again.")
		return
	}
	r.log.Info("registration complete", zap.Int64("user", chatID))

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(welcomeFmt, p.FullName, r.opts.TrialDays))
	msg.ReplyMarkup = mainMenuKeyboard()
	_, _ = r.bot.Send(msg)

	// Timezone right away: reminders in server time surprise people.
	r.setPending(chatID, pendingTime)
	r.sendText(chatID, askLocalTimeText)
}

// --- Notification settings ---

func (r *Router) handleNotify(ctx context.Context, chatID int64) {
	p := r.registeredProfile(ctx, chatID)
	if p == nil {
		return
	}
	body := fmt.Sprintf(
		"Notification settings:\n\n📅 Reminders: %s\n🌍 Timezone: %s\n\nHow often should I remind you about the emotion diary?",
		frequencyLabel(p.NotificationFrequency), p.TimezoneLabel,
	)
	msg := tgbotapi.NewMessage(chatID, body)
	msg.ReplyMarkup = frequencyKeyboard()
	_, _ = r.bot.Send(msg)
}

func (r *Router) handleFrequencyCallback(ctx context.Context, chatID int64, data, cbID string) {
	_ = r.answerCallback(cbID, "")
	freq, err := strconv.Atoi(strings.TrimPrefix(data, "freq:"))
	if err != nil {
		return
	}
	if _, ok := frequencyLabels[freq]; !ok {
		return
	}
	if err := r.repo.SetFrequency(ctx, chatID, freq); err != nil {
		r.log.Error("set frequency failed", zap.Int64("user", chatID), zap.Error(err))
		r.sendText(chatID, "Could not save the setting.")
		return
	}
	if freq == 0 {
		r.sendText(chatID, "Reminders turned off. You can re-enable them anytime with /notify.")
		return
	}
	r.sendText(chatID, "Done! I will remind you "+frequencyLabel(freq)+".")
}

func (r *Router) askLocalTime(_ context.Context, chatID int64, cbID string) {
	_ = r.answerCallback(cbID, "")
	r.setPending(chatID, pendingTime)
	r.sendText(chatID, askLocalTimeText)
}

func (r *Router) updateTimezone(ctx context.Context, chatID int64, text string) {
	offset, label, err := domain.OffsetFromLocalClock(text, time.Now())
	if err != nil {
		r.sendText(chatID, "That doesn't look like a time. Please send it as HH:MM, e.g. 16:54.")
		r.setPending(chatID, pendingTime)
		return
	}
	if err := r.repo.SetTimezone(ctx, chatID, offset, label); err != nil {
		r.log.Error("set timezone failed", zap.Int64("user", chatID), zap.Error(err))
		r.sendText(chatID, "Could not save your timezone.")
		return
	}
	r.sendText(chatID, "Timezone saved: "+label+". Reminders will arrive in your local time.")
}

// --- Emotion diary ---

func (r *Router) handleEmotion(ctx context.Context, chatID int64) {
	p := r.registeredProfile(ctx, chatID)
	if p == nil {
		return
	}
	if state, _ := p.Entitlement(time.Now().UTC()); state == domain.TrialExpired {
		r.sendText(chatID, expiredText)
		return
	}
	msg := tgbotapi.NewMessage(chatID, "How do you feel right now?")
	msg.ReplyMarkup = emotionKeyboard()
	_, _ = r.bot.Send(msg)
}

func (r *Router) handleEmotionCallback(ctx context.Context, chatID int64, data, cbID string) {
	_ = r.answerCallback(cbID, "")
	emotion := strings.TrimPrefix(data, "emotion:")
	valid := false
	for _, e := range emotionOptions {
		if e == emotion {
			valid = true
			break
		}
	}
	if !valid {
		return
	}
	r.setPending(chatID, notePrefix+emotion)
	r.sendText(chatID, "Noted: "+emotionEmoji[emotion]+" "+emotion+".\nAdd a short note about it, or send /skip.")
}

func (r *Router) saveEmotion(ctx context.Context, chatID int64, emotion, note string) {
	entry := &domain.EmotionEntry{
		UserID:    chatID,
		Emotion:   emotion,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.repo.AddEmotionEntry(ctx, entry); err != nil {
		r.log.Error("save emotion failed", zap.Int64("user", chatID), zap.Error(err))
		r.sendText(chatID, "Could not save the entry.")
		return
	}
	r.sendText(chatID, "Saved. Every entry helps you understand yourself better 🌱")
}

func (r *Router) handleSkip(ctx context.Context, chatID int64) {
	pending := r.getPending(chatID)
	if !strings.HasPrefix(pending, notePrefix) {
		return
	}
	r.clearPending(chatID)
	r.saveEmotion(ctx, chatID, strings.TrimPrefix(pending, notePrefix), "")
}

// --- Weekly summary ---

func (r *Router) handleSummary(ctx context.Context, chatID int64) {
	p := r.registeredProfile(ctx, chatID)
	if p == nil {
		return
	}
	if state, _ := p.Entitlement(time.Now().UTC()); state == domain.TrialExpired {
		r.sendText(chatID, expiredText)
		return
	}

	since := time.Now().UTC().Add(-7 * 24 * time.Hour)
	entries, err := r.repo.ListEmotionsSince(ctx, chatID, since)
	if err != nil {
		r.log.Error("list emotions failed", zap.Int64("user", chatID), zap.Error(err))
		r.sendText(chatID, "Could not build your summary.")
		return
	}
	if len(entries) == 0 {
		r.sendText(chatID, "No entries in the last 7 days yet. Log one with /emotion!")
		return
	}

	summary := buildSummary(entries)
	r.sendText(chatID, summary)

	if r.advisor != nil {
		comment, err := r.advisor.Comment(ctx, summary)
		if err != nil {
			r.log.Warn("advice call failed", zap.Int64("user", chatID), zap.Error(err))
			return
		}
		r.sendText(chatID, "💡 "+comment)
	}
}

func buildSummary(entries []domain.EmotionEntry) string {
	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.Emotion]++
	}
	emotions := make([]string, 0, len(counts))
	for e := range counts {
		emotions = append(emotions, e)
	}
	sort.Slice(emotions, func(i, j int) bool {
		if counts[emotions[i]] != counts[emotions[j]] {
			return counts[emotions[i]] > counts[emotions[j]]
		}
		return emotions[i] < emotions[j]
	})

	var b strings.Builder
	fmt.Fprintf(&b, "🗓 Your last 7 days: %d entr", len(entries))
	if len(entries) == 1 {
		b.WriteString("y\n")
	} else {
		b.WriteString("ies\n")
	}
	for _, e := range emotions {
		fmt.Fprintf(&b, "• %s %s — %d\n", emotionEmoji[e], e, counts[e])
	}
	return b.String()
}

// --- Administrative entitlement actions ---

// handleEntitlementCommand serves /premium <id> and /revoke <id>. It bypasses
// trial arithmetic entirely: premium can be granted from any state, and a
// revocation drops the user back to whatever their trial dates imply.
func (r *Router) handleEntitlementCommand(ctx context.Context, chatID int64, text string, grant bool) {
	if !r.isAdmin(chatID) {
		return
	}
	fields := strings.Fields(text)
	if len(fields) != 2 {
		r.sendText(chatID, "Usage: "+fields[0]+" <telegram_id>")
		return
	}
	target, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		r.sendText(chatID, "Invalid user id.")
		return
	}

	state := domain.TrialActive
	if grant {
		state = domain.Premium
	}
	if err := r.repo.UpdateEntitlement(ctx, target, state); err != nil {
		r.log.Error("entitlement update failed",
			zap.Int64("admin", chatID), zap.Int64("target", target), zap.Error(err))
		r.sendText(chatID, "Update failed: "+err.Error())
		return
	}
	r.log.Info("entitlement updated by admin",
		zap.Int64("admin", chatID), zap.Int64("target", target), zap.String("state", state.String()))
	if grant {
		r.sendText(chatID, fmt.Sprintf("User %d upgraded to premium.", target))
	} else {
		r.sendText(chatID, fmt.Sprintf("Premium revoked for user %d.", target))
	}
}

// --- Status ---

func (r *Router) handleStatus(ctx context.Context, chatID int64) {
	p := r.registeredProfile(ctx, chatID)
	if p == nil {
		return
	}
	state, daysLeft := p.Entitlement(time.Now().UTC())
	body := fmt.Sprintf(statusFmt,
		frequencyLabel(p.NotificationFrequency),
		p.TimezoneLabel,
		accessLabel(state, daysLeft),
	)
	msg := tgbotapi.NewMessage(chatID, body)
	msg.ReplyMarkup = mainMenuKeyboard()
	_, _ = r.bot.Send(msg)
}

// --- Free-form dispatcher (pending flows) ---

func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	pending := r.getPending(chatID)
	switch {
	case pending == pendingName:
		r.clearPending(chatID)
		name := strings.TrimSpace(text)
		if name == "" || len(name) > 64 {
			r.sendText(chatID, "Please send a name up to 64 characters.")
			r.setPending(chatID, pendingName)
			return
		}
		r.completeRegistration(ctx, chatID, name)

	case pending == pendingTime:
		r.clearPending(chatID)
		r.updateTimezone(ctx, chatID, text)

	case strings.HasPrefix(pending, notePrefix):
		r.clearPending(chatID)
		if len(text) > 512 {
			r.sendText(chatID, "Too long. Please keep the note under 512 characters.")
			r.setPending(chatID, pending)
			return
		}
		r.saveEmotion(ctx, chatID, strings.TrimPrefix(pending, notePrefix), text)

	default:
		// No pending flow: ignore free-form message
	}
}
