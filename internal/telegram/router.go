package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Graey-GamerZ/TimeTaskTracker/internal/scheduler"
	"github.com/Graey-GamerZ/TimeTaskTracker/internal/store"
)

// Bot is the slice of *tgbotapi.BotAPI the router needs.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Status reports the scheduler state shown by /status.
type Status interface {
	HasPermission() bool
	Count() int
}

// Router wires Telegram updates to handlers and mirrors fired alerts to the
// subscribed chat.
type Router struct {
	bot    Bot
	log    *zap.Logger
	repo   store.Repo
	status Status
	loc    *time.Location
	now    func() time.Time

	mu     sync.RWMutex
	chatID int64 // 0 until configured or /start
}

// Options configure a Router.
type Options struct {
	ChatID   int64 // fixed chat; /start does not override it
	Location *time.Location
	Now      func() time.Time
}

// NewRouter creates a new Telegram router.
func NewRouter(bot Bot, log *zap.Logger, repo store.Repo, status Status, opts Options) *Router {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Router{
		bot:    bot,
		log:    log,
		repo:   repo,
		status: status,
		loc:    opts.Location,
		now:    opts.Now,
		chatID: opts.ChatID,
	}
}

// HandleUpdate routes a single update to the matching command.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	chatID := upd.Message.Chat.ID
	text := strings.TrimSpace(upd.Message.Text)

	switch {
	case strings.HasPrefix(text, "/start"):
		r.handleStart(ctx, chatID)
	case strings.HasPrefix(text, "/tasks"):
		r.handleTasks(ctx, chatID)
	case strings.HasPrefix(text, "/status"):
		r.handleStatus(chatID)
	default:
		r.sendText(chatID, helpText)
	}
}

// SendAlert mirrors a fired alert to the subscribed chat.
// This makes Router satisfy scheduler.Sender.
func (r *Router) SendAlert(a scheduler.Alert) error {
	chatID, err := r.subscriber(context.Background())
	if err != nil {
		return err
	}
	if chatID == 0 {
		r.log.Debug("telegram mirror: no chat subscribed", zap.String("alertID", a.ID))
		return nil
	}
	_, err = r.bot.Send(tgbotapi.NewMessage(chatID, alertText(a)))
	return err
}

// subscriber returns the chat alerts go to, loading it from settings once.
func (r *Router) subscriber(ctx context.Context) (int64, error) {
	r.mu.RLock()
	id := r.chatID
	r.mu.RUnlock()
	if id != 0 {
		return id, nil
	}

	v, err := r.repo.GetSetting(ctx, store.SettingTelegramChatID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	id, err = strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.log.Warn("stored telegram chat id is invalid", zap.String("value", v))
		return 0, nil
	}

	r.mu.Lock()
	if r.chatID == 0 {
		r.chatID = id
	}
	id = r.chatID
	r.mu.Unlock()
	return id, nil
}
