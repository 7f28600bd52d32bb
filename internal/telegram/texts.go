package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Graey-GamerZ/TimeTaskTracker/internal/domain"
	"github.com/Graey-GamerZ/TimeTaskTracker/internal/scheduler"
)

// UI texts in English
const (
	startText = "👋 I mirror your task alerts.\n\n" +
		"You will get a message 5 minutes before a task is due and when it is due.\n" +
		"Use /tasks for what is coming up and /status for the alert state."
	helpText      = "Commands: /start, /tasks, /status"
	noTasksText   = "Nothing coming up 🎉"
	upcomingTitle = "🗓 Next 7 days:"
	maxListed     = 10

	upcomingWindow = 7 * 24 * time.Hour
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/tasks"),
			tgbotapi.NewKeyboardButton("/status"),
		),
	)
}

func alertText(a scheduler.Alert) string {
	icon := "⏰"
	if a.Kind == scheduler.KindDue {
		icon = "🚨"
	}
	return icon + " " + a.Title + "\n" + a.Body
}

// upcomingText lists incomplete tasks due within upcomingWindow, soonest
// first. tasks are expected in scheduled order.
func upcomingText(tasks []domain.Task, now time.Time, loc *time.Location) string {
	var b strings.Builder
	n := 0
	for _, t := range tasks {
		if !domain.DueWithin(t, now, upcomingWindow) {
			continue
		}
		if n == maxListed {
			b.WriteString("…\n")
			break
		}
		if n == 0 {
			b.WriteString(upcomingTitle + "\n")
		}
		fmt.Fprintf(&b, "• %s %s · %s (%s)\n",
			t.ScheduledDate.In(loc).Format("Jan 2"),
			domain.LocalizeTime(t.ScheduledDate, loc),
			t.Title,
			domain.Title(string(t.Priority)),
		)
		n++
	}
	if n == 0 {
		return noTasksText
	}
	return strings.TrimRight(b.String(), "\n")
}

func statusText(granted bool, scheduled int) string {
	perm := "✅ granted"
	if !granted {
		perm = "⏸ not granted"
	}
	return fmt.Sprintf("🧾 Alerts\n• Browser notifications: %s\n• Pending alerts: %d", perm, scheduled)
}
