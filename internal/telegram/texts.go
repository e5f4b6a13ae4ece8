package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jaloliddin1006/psyBot/internal/domain"
)

// UI texts in English
const (
	startText = "👋 I am an emotion diary bot.\n\n" +
		"I will remind you to log how you feel and build weekly summaries of your entries.\n\n" +
		"First, what should I call you? Send me your name."

	welcomeFmt = "Nice to meet you, %s! 🌟\n\n" +
		"Your %d-day trial has started. Use /notify to choose how often I remind you, " +
		"/emotion to log how you feel, and /summary to look back at your week."

	askLocalTimeText = "To send reminders at the right moments I need your timezone.\n\n" +
		"⏰ What time is it for you right now? Send it as HH:MM (for example 16:54)."

	statusFmt = "🧾 Your settings:\n" +
		"• Reminders: %s\n" +
		"• Timezone: %s\n" +
		"• Access: %s\n"

	expiredText = "Your trial period has ended. To keep using the diary and reminders, a subscription is required."

	notRegisteredText = "Please finish registration with /start first."
)

var frequencyLabels = map[int]string{
	0: "off",
	1: "once a day",
	2: "twice a day",
	4: "4 times a day",
	6: "6 times a day",
}

func frequencyLabel(freq int) string {
	if l, ok := frequencyLabels[freq]; ok {
		return l
	}
	return "not set"
}

func accessLabel(state domain.EntitlementState, daysLeft int) string {
	switch state {
	case domain.Premium:
		return "premium ✨"
	case domain.TrialActive:
		return fmt.Sprintf("trial, %d day(s) left", daysLeft)
	case domain.TrialExpired:
		return "trial expired"
	default:
		return "no trial"
	}
}

// Emotions offered by the diary keyboard.
var emotionOptions = []string{"joy", "calm", "sadness", "anxiety", "anger"}

var emotionEmoji = map[string]string{
	"joy":     "😊",
	"calm":    "😌",
	"sadness": "😢",
	"anxiety": "😰",
	"anger":   "😠",
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/emotion"),
			tgbotapi.NewKeyboardButton("/summary"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/notify"),
			tgbotapi.NewKeyboardButton("/status"),
		),
	)
}

func frequencyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("1× a day", "freq:1"),
			tgbotapi.NewInlineKeyboardButtonData("2× a day", "freq:2"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("4× a day", "freq:4"),
			tgbotapi.NewInlineKeyboardButtonData("6× a day", "freq:6"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔕 Turn off", "freq:0"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌍 Change timezone", "set_tz"),
		),
	)
}

func emotionKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(emotionOptions))
	for _, e := range emotionOptions {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(emotionEmoji[e]+" "+e, "emotion:"+e),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
