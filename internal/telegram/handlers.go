package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Graey-GamerZ/TimeTaskTracker/internal/store"
)

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("telegram send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

// --- Commands ---

func (r *Router) handleStart(ctx context.Context, chatID int64) {
	if err := r.repo.SetSetting(ctx, store.SettingTelegramChatID, strconv.FormatInt(chatID, 10)); err != nil {
		r.log.Error("save telegram chat failed", zap.Error(err))
		r.sendText(chatID, "Could not subscribe this chat. Please try again later.")
		return
	}

	r.mu.Lock()
	r.chatID = chatID
	r.mu.Unlock()
	r.log.Info("telegram chat subscribed", zap.Int64("chatID", chatID))

	msg := tgbotapi.NewMessage(chatID, startText)
	msg.ReplyMarkup = mainMenuKeyboard()
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("telegram send failed", zap.Error(err))
	}
}

func (r *Router) handleTasks(ctx context.Context, chatID int64) {
	tasks, err := r.repo.ListTasks(ctx)
	if err != nil {
		r.log.Error("list tasks failed", zap.Error(err))
		r.sendText(chatID, "Error reading your tasks.")
		return
	}
	r.sendText(chatID, upcomingText(tasks, r.now(), r.loc))
}

func (r *Router) handleStatus(chatID int64) {
	r.sendText(chatID, statusText(r.status.HasPermission(), r.status.Count()))
}
