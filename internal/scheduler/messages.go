package scheduler

import (
	"fmt"

	"github.com/jaloliddin1006/psyBot/internal/domain"
	"github.com/jaloliddin1006/psyBot/internal/ledger"
)

// reminderText builds the emotion diary reminder, greeting by the local
// time-of-day band.
func reminderText(band domain.GreetingBand, name string) string {
	var greeting, context string
	switch band {
	case domain.BandMorning:
		greeting, context = "Good morning", "How has your day started?"
	case domain.BandAfternoon:
		greeting, context = "Good afternoon", "How is your day going?"
	case domain.BandEvening:
		greeting, context = "Good evening", "How was your day?"
	default:
		greeting, context = "Hi", "How are you feeling?"
	}
	return fmt.Sprintf(
		"%s, %s! 🌟\n\n"+
			"Time for your emotion diary. %s\n\n"+
			"Use /emotion to log how you feel right now.\n\n"+
			"💡 Remember: tracking emotions helps you understand yourself better!",
		greeting, name, context,
	)
}

// motivationTexts rotate weekly; the message is picked by ISO week number
// modulo the list length, so every user gets the same message in a given
// week and the rotation is deterministic.
var motivationTexts = []string{
	"Hi, %s! 🌈\n\nAnother week of keeping your emotion diary. Remember: every step toward understanding yourself is a real achievement! 💪",
	"%s, you are doing important work! 🌟\n\nTracking emotions is a skill that helps you understand and manage your state.",
	"Hi, %s! 🦋\n\nChange happens gradually. Every diary entry is an investment in your mental health.",
	"%s, remember: there are no 'right' or 'wrong' emotions! 💝\n\nAll feelings matter. Keep observing yourself with kindness.",
	"Hi, %s! 🌱\n\nYou grow a little every day, and the diary helps you see that progress. Keep it up!",
}

func motivationText(name string, isoWeek int) string {
	idx := isoWeek % len(motivationTexts)
	if idx < 0 {
		idx = 0
	}
	return fmt.Sprintf(motivationTexts[idx], name)
}

func reflectionText(name string) string {
	return fmt.Sprintf(
		"Hi, %s! 🌟\n\n"+
			"Sunday evening is a perfect time for a weekly reflection.\n\n"+
			"Use /summary to look back at the week and recall the moments that brought you joy and gratitude.",
		name,
	)
}

func warningText(kind string) string {
	switch kind {
	case ledger.WarnThreeDays:
		return "⏳ Trial reminder\n\n" +
			"Your trial period ends in 3 days. After that, access to reminders and the diary will be limited.\n\n" +
			"To keep using the bot without interruption, consider a subscription."
	case ledger.WarnOneDay:
		return "⏳ Last day of your trial\n\n" +
			"Your trial access ends tomorrow. Don't lose your progress — subscribe today to keep working with the bot."
	default:
		return ""
	}
}
