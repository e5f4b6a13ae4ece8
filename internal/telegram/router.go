package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/jaloliddin1006/psyBot/internal/advice"
	"github.com/jaloliddin1006/psyBot/internal/store"
)

// Pending state keys used in conversational flows.
const (
	pendingName = "await_name_text"
	pendingTime = "await_local_time_text"
	notePrefix  = "await_note:" // followed by the chosen emotion
)

// Options carries the router's configuration.
type Options struct {
	TrialDays int
	AdminIDs  []int64
}

// BotClient is the slice of the Telegram client the router needs.
// *tgbotapi.BotAPI satisfies it.
type BotClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Router wires Telegram updates to handlers and holds minimal in-memory
// state. Every update also refreshes the user's last-activity timestamp so
// the scheduler does not nudge mid-conversation users.
type Router struct {
	bot     BotClient
	log     *zap.Logger
	repo    store.Repo
	advisor advice.Advisor
	opts    Options

	state map[int64]string // chatID -> pending state
	mu    sync.RWMutex
}

// NewRouter creates a new Telegram router.
func NewRouter(bot BotClient, log *zap.Logger, repo store.Repo, advisor advice.Advisor, opts Options) *Router {
	return &Router{
		bot:     bot,
		log:     log,
		repo:    repo,
		advisor: advisor,
		opts:    opts,
		state:   make(map[int64]string),
	}
}

func (r *Router) setPending(chatID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = s
}

func (r *Router) getPending(chatID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[chatID]
}

func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
}

func (r *Router) isAdmin(userID int64) bool {
	for _, id := range r.opts.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID
		text := strings.TrimSpace(msg.Text)
		r.touchActivity(ctx, chatID)

		switch {
		case strings.HasPrefix(text, "/start"):
			r.handleStart(ctx, chatID)
		case strings.HasPrefix(text, "/notify"):
			r.handleNotify(ctx, chatID)
		case strings.HasPrefix(text, "/emotion"):
			r.handleEmotion(ctx, chatID)
		case strings.HasPrefix(text, "/summary"):
			r.handleSummary(ctx, chatID)
		case strings.HasPrefix(text, "/status"):
			r.handleStatus(ctx, chatID)
		case strings.HasPrefix(text, "/skip"):
			r.handleSkip(ctx, chatID)
		case strings.HasPrefix(text, "/premium"):
			r.handleEntitlementCommand(ctx, chatID, text, true)
		case strings.HasPrefix(text, "/revoke"):
			r.handleEntitlementCommand(ctx, chatID, text, false)
		default:
			// Free-form text used in pending flows (name/time/note).
			r.handleFreeForm(ctx, chatID, text)
		}
		return
	}

	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		data := cb.Data
		chatID := cb.Message.Chat.ID
		r.touchActivity(ctx, chatID)

		switch {
		case strings.HasPrefix(data, "freq:"):
			r.handleFrequencyCallback(ctx, chatID, data, cb.ID)
		case data == "set_tz":
			r.askLocalTime(ctx, chatID, cb.ID)
		case strings.HasPrefix(data, "emotion:"):
			r.handleEmotionCallback(ctx, chatID, data, cb.ID)
		default:
			// Unknown callback — ignore silently
		}
		return
	}
}

func (r *Router) touchActivity(ctx context.Context, chatID int64) {
	if err := r.repo.TouchActivity(ctx, chatID, time.Now().UTC()); err != nil {
		r.log.Debug("touch activity failed", zap.Int64("user", chatID), zap.Error(err))
	}
}

// SendMessage sends a plain text message to the given chat.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
