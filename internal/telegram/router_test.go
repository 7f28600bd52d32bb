package telegram

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Graey-GamerZ/TimeTaskTracker/internal/domain"
	"github.com/Graey-GamerZ/TimeTaskTracker/internal/scheduler"
	"github.com/Graey-GamerZ/TimeTaskTracker/internal/store"
)

var now = time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)

type fakeBot struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return tgbotapi.Message{}, b.err
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) messages() []tgbotapi.MessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), b.sent...)
}

type fakeStatus struct {
	granted bool
	count   int
}

func (s fakeStatus) HasPermission() bool { return s.granted }
func (s fakeStatus) Count() int          { return s.count }

func newRouter(t *testing.T, opts Options) (*Router, *fakeBot, *store.SQLiteRepo) {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	opts.Now = func() time.Time { return now }
	bot := &fakeBot{}
	return NewRouter(bot, zap.NewNop(), repo, fakeStatus{granted: true, count: 3}, opts), bot, repo
}

func command(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: chatID}}}
}

func dueAlert() scheduler.Alert {
	return scheduler.Alert{
		ID:    "a1",
		Kind:  scheduler.KindDue,
		Title: "Due now: Pay rent",
		Body:  "Due at 12:00 · Priority: High · Category: Personal",
	}
}

func TestSendAlert_NoChatIsNoop(t *testing.T) {
	r, bot, _ := newRouter(t, Options{})

	require.NoError(t, r.SendAlert(dueAlert()))
	assert.Empty(t, bot.messages())
}

func TestStartSubscribesChat(t *testing.T) {
	r, bot, repo := newRouter(t, Options{})

	r.HandleUpdate(context.Background(), command(42, "/start"))

	v, err := repo.GetSetting(context.Background(), store.SettingTelegramChatID)
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	require.NoError(t, r.SendAlert(dueAlert()))
	msgs := bot.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(42), msgs[1].ChatID)
	assert.Equal(t, "🚨 Due now: Pay rent\nDue at 12:00 · Priority: High · Category: Personal", msgs[1].Text)
}

func TestSendAlert_LoadsStoredChat(t *testing.T) {
	r, bot, repo := newRouter(t, Options{})
	require.NoError(t, repo.SetSetting(context.Background(), store.SettingTelegramChatID, "7"))

	require.NoError(t, r.SendAlert(dueAlert()))
	msgs := bot.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(7), msgs[0].ChatID)
}

func TestSendAlert_ConfiguredChat(t *testing.T) {
	r, bot, _ := newRouter(t, Options{ChatID: 99})

	require.NoError(t, r.SendAlert(dueAlert()))
	require.Len(t, bot.messages(), 1)
	assert.Equal(t, int64(99), bot.messages()[0].ChatID)
}

func TestSendAlert_PropagatesSendError(t *testing.T) {
	r, bot, _ := newRouter(t, Options{ChatID: 99})
	bot.err = errors.New("flood wait")

	assert.Error(t, r.SendAlert(dueAlert()))
}

func TestTasksCommand(t *testing.T) {
	r, bot, repo := newRouter(t, Options{})
	ctx := context.Background()
	for _, task := range []*domain.Task{
		{Title: "past", ScheduledDate: now.Add(-time.Hour), Priority: domain.PriorityLow, Category: domain.CategoryWork, CreatedAt: now},
		{Title: "gym", ScheduledDate: now.Add(2 * time.Hour), Priority: domain.PriorityHigh, Category: domain.CategoryHealth, CreatedAt: now},
		{Title: "later", ScheduledDate: now.Add(8 * 24 * time.Hour), Priority: domain.PriorityLow, Category: domain.CategoryWork, CreatedAt: now},
		{Title: "done", ScheduledDate: now.Add(time.Hour), Priority: domain.PriorityLow, Category: domain.CategoryWork, Completed: true, CreatedAt: now},
	} {
		require.NoError(t, repo.CreateTask(ctx, task))
	}

	r.HandleUpdate(ctx, command(1, "/tasks"))

	msgs := bot.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "🗓 Next 7 days:\n• May 5 14:00 · gym (High)", msgs[0].Text)
}

func TestUpcomingText_Empty(t *testing.T) {
	assert.Equal(t, noTasksText, upcomingText(nil, now, time.UTC))
}

func TestStatusCommand(t *testing.T) {
	r, bot, _ := newRouter(t, Options{})

	r.HandleUpdate(context.Background(), command(1, "/status"))

	msgs := bot.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "granted")
	assert.Contains(t, msgs[0].Text, "Pending alerts: 3")
}

func TestUnknownTextGetsHelp(t *testing.T) {
	r, bot, _ := newRouter(t, Options{})

	r.HandleUpdate(context.Background(), command(1, "hello"))

	require.Len(t, bot.messages(), 1)
	assert.Equal(t, helpText, bot.messages()[0].Text)
}
