package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Graey-GamerZ/TimeTaskTracker/internal/api"
	"github.com/Graey-GamerZ/TimeTaskTracker/internal/config"
	"github.com/Graey-GamerZ/TimeTaskTracker/internal/domain"
	"github.com/Graey-GamerZ/TimeTaskTracker/internal/push"
	"github.com/Graey-GamerZ/TimeTaskTracker/internal/scheduler"
	"github.com/Graey-GamerZ/TimeTaskTracker/internal/store"
	"github.com/Graey-GamerZ/TimeTaskTracker/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI // nil when the Telegram mirror is disabled
	httpSrv *http.Server
	repo    store.Repo
	hub     *push.Hub
	sched   *scheduler.Scheduler
	api     *api.Server
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}
	if cfg.TelegramToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			return nil, err
		}
		bot.Debug = false
		a.bot = bot
	}
	if _, err := domain.ValidateTZ(cfg.DefaultTZ); err != nil {
		log.Warn("invalid DEFAULT_TZ, using UTC", zap.String("tz", cfg.DefaultTZ), zap.Error(err))
	}
	return a, nil
}

// wire opens the store and connects hub, scheduler, API and Telegram router.
func (a *App) wire(ctx context.Context) error {
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))

	loc := a.cfg.Location()
	a.hub = push.NewHub(ctx, repo, a.log.Named("push"))

	var senders []scheduler.Sender
	if a.bot != nil {
		a.router = telegram.NewRouter(a.bot, a.log.Named("telegram"), repo, schedStatus{a},
			telegram.Options{ChatID: a.cfg.TelegramChatID, Location: loc})
		senders = append(senders, a.router)
	}

	a.sched = scheduler.New(a.hub, a.log.Named("scheduler"), scheduler.Options{
		Chime:         a.hub,
		Senders:       senders,
		Location:      loc,
		ReminderLead:  a.cfg.ReminderLead,
		DueCloseAfter: a.cfg.DueAlertCloseAfter,
		OnGranted:     a.resync,
	})
	a.hub.OnPermission(func(scheduler.Permission) { a.sched.Refresh() })
	a.hub.OnAlertEvent(a.sched.Observe)

	a.api = api.NewServer(api.Deps{
		Repo:      repo,
		Scheduler: a.sched,
		Push:      a.hub,
		Log:       a.log.Named("api"),
		Location:  loc,
		Mode:      a.cfg.GinMode,
	})
	a.httpSrv = &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return nil
}

// resync reloads tasks into the scheduler once notifications are allowed.
func (a *App) resync() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.api.Resync(ctx); err != nil {
		a.log.Error("resync failed", zap.Error(err))
		return
	}
	a.log.Info("alerts resynced", zap.Int("scheduled", a.sched.Count()))
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting taskd",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Bool("telegram", a.bot != nil),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.wire(ctx); err != nil {
		a.log.Error("startup failed", zap.Error(err))
		return err
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	// Alerts for tasks loaded from disk; a no-op until permission is granted.
	a.resync()

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	var updCh tgbotapi.UpdatesChannel
	if a.bot != nil {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 30
		updCh = a.bot.GetUpdatesChan(u)
	}

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.shutdown()
			stopHub()
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

func (a *App) shutdown() {
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := a.httpSrv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}

	if a.bot != nil {
		a.bot.StopReceivingUpdates()
	}
	a.sched.ClearAll()
	if a.repo != nil {
		_ = a.repo.Close()
	}
}

// schedStatus exposes scheduler state to the Telegram router, which is
// built before the scheduler it mirrors.
type schedStatus struct{ a *App }

func (s schedStatus) HasPermission() bool { return s.a.sched.HasPermission() }
func (s schedStatus) Count() int          { return s.a.sched.Count() }
