package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/bulatfbi/coffee-bot/internal/config"
	"github.com/bulatfbi/coffee-bot/internal/dialog"
	"github.com/bulatfbi/coffee-bot/internal/httpapi"
	"github.com/bulatfbi/coffee-bot/internal/rotation"
	"github.com/bulatfbi/coffee-bot/internal/scheduler"
	"github.com/bulatfbi/coffee-bot/internal/store"
	"github.com/bulatfbi/coffee-bot/internal/telegram"
)

type App struct {
	cfg      config.Config
	schedule config.Schedule
	log      *zap.Logger
	bot      *tgbotapi.BotAPI
	repo     store.Repo
	router   *telegram.Router
	engine   *rotation.Engine
}

// New connects to Telegram, opens the store and wires the components.
// A store initialisation failure is returned as an error.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.RequireBotToken(); err != nil {
		return nil, err
	}
	sched, err := cfg.Schedule()
	if err != nil {
		return nil, err
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := repo.EnsureRotationDefault(ctx, cfg.RotationDefault); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("rotation flag: %w", err)
	}
	log.Info("sqlite ready", zap.String("path", cfg.DBPath))

	router := telegram.NewRouter(bot, log)
	engine := rotation.New(repo, router, log.Named("rotation"))
	router.Attach(dialog.New(repo, engine, router, log.Named("dialog"), dialog.Schedule{
		Morning: sched.Morning,
		Evening: sched.Evening,
		Days:    sched.Days,
		TZ:      sched.Location.String(),
	}))

	return &App{
		cfg:      cfg,
		schedule: sched,
		log:      log,
		bot:      bot,
		repo:     repo,
		router:   router,
		engine:   engine,
	}, nil
}

// Engine exposes the rotation engine for one-off batch runs.
func (a *App) Engine() *rotation.Engine { return a.engine }

// Store exposes the repository.
func (a *App) Store() store.Repo { return a.repo }

// Close releases the store.
func (a *App) Close() error {
	return a.repo.Close()
}

// Scheduler builds the weekday batch scheduler.
func (a *App) Scheduler() *scheduler.Scheduler {
	return scheduler.New(a.repo, a.log.Named("scheduler"), a.schedule.Location,
		scheduler.Trigger{Name: rotation.BatchMorning, At: a.schedule.Morning, Days: a.schedule.Days, Run: a.engine.RunMorning},
		scheduler.Trigger{Name: rotation.BatchEvening, At: a.schedule.Evening, Days: a.schedule.Days, Run: a.engine.RunEvening},
	)
}

// Run serves updates, the scheduler and the HTTP probes until SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting coffee-bot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("morning", a.schedule.Morning.String()),
		zap.String("evening", a.schedule.Evening.String()),
		zap.String("days", a.schedule.Days.String()),
		zap.String("tz", a.schedule.Location.String()),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := httpapi.NewServer(a.cfg.HTTPAddr, a.repo, a.log.Named("http"))
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		a.Scheduler().Run(ctx)
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.bot.StopReceivingUpdates()

			// Create a short-lived shutdown context and cancel it immediately after use.
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := httpSrv.Shutdown(shCtx)
			cancel()
			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}

			// Wait for an in-flight batch to finish before closing the store.
			<-schedDone
			if err := a.repo.Close(); err != nil {
				a.log.Warn("store close error", zap.Error(err))
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
