package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Sender is the scheduler's delivery sink. Consecutive sends are spaced by a
// token-bucket limiter to respect the transport's outbound throughput limits;
// the bot client's HTTP timeout bounds each attempt.
type Sender struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
}

// NewSender wraps a bot with a messages-per-second limit.
func NewSender(bot *tgbotapi.BotAPI, perSecond float64) *Sender {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Sender{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Send delivers one plain-text message. Waiting for a rate token honors the
// context, so a shutdown or send timeout is not stalled by the limiter.
func (s *Sender) Send(ctx context.Context, userID int64, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.bot.Send(tgbotapi.NewMessage(userID, text))
	return err
}
