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

	"github.com/jaloliddin1006/psyBot/internal/advice"
	"github.com/jaloliddin1006/psyBot/internal/config"
	"github.com/jaloliddin1006/psyBot/internal/domain"
	"github.com/jaloliddin1006/psyBot/internal/eligibility"
	"github.com/jaloliddin1006/psyBot/internal/ledger"
	"github.com/jaloliddin1006/psyBot/internal/scheduler"
	"github.com/jaloliddin1006/psyBot/internal/store"
	"github.com/jaloliddin1006/psyBot/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server

	repo   store.Repo
	ledger ledger.Ledger
	router *telegram.Router
	sched  *scheduler.Scheduler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	// The HTTP client timeout bounds every outbound call, so a single
	// unresponsive send cannot stall a scheduler batch.
	httpClient := &http.Client{Timeout: cfg.SendTimeout + 5*time.Second}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

// openLedger picks the dedup ledger backend. SQLite shares the store's
// database so dedup state survives restarts.
func (a *App) openLedger(ctx context.Context, repo store.Repo) (ledger.Ledger, error) {
	switch a.cfg.LedgerBackend {
	case "sqlite":
		return ledger.NewSQLite(repo.DB()), nil
	case "memory":
		return ledger.NewMemory(), nil
	case "redis":
		return ledger.NewRedis(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", a.cfg.LedgerBackend)
	}
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting psybot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("ledger", a.cfg.LedgerBackend),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	led, err := a.openLedger(ctx, repo)
	if err != nil {
		a.log.Error("open ledger failed", zap.Error(err))
		return err
	}
	a.ledger = led

	slots, err := domain.LoadSlotTable(a.cfg.SlotsPath)
	if err != nil {
		a.log.Error("load slot table failed", zap.Error(err))
		return err
	}

	var advisor advice.Advisor
	if a.cfg.OpenAIKey != "" {
		advisor = advice.NewOpenAI(a.cfg.OpenAIKey, a.cfg.OpenAIBaseURL, a.cfg.OpenAIModel)
		a.log.Info("ai advisor enabled")
	}

	a.router = telegram.NewRouter(a.bot, a.log, a.repo, advisor, telegram.Options{
		TrialDays: a.cfg.TrialDays,
		AdminIDs:  a.cfg.AdminIDs,
	})

	// Scheduler matching compares these against ClockKey output, so values
	// like "9:00" must be normalized up front or they would never fire.
	weeklyTime, err := domain.NormalizeClock(a.cfg.WeeklyTime)
	if err != nil {
		a.log.Error("invalid weekly time", zap.String("value", a.cfg.WeeklyTime), zap.Error(err))
		return err
	}
	reflectionTime, err := domain.NormalizeClock(a.cfg.ReflectionTime)
	if err != nil {
		a.log.Error("invalid reflection time", zap.String("value", a.cfg.ReflectionTime), zap.Error(err))
		return err
	}

	filter := eligibility.New(a.repo, a.log)
	sink := telegram.NewSender(a.bot, a.cfg.SendPerSecond)
	a.sched = scheduler.New(a.repo, a.ledger, filter, sink, slots, scheduler.Config{
		WeeklyDay:      time.Weekday(a.cfg.WeeklyDay),
		WeeklyTime:     weeklyTime,
		ReflectionTime: reflectionTime,
		ActivityGrace:  a.cfg.ActivityGrace,
		SendTimeout:    a.cfg.SendTimeout,
	}, a.log)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.sched.Start(ctx); err != nil {
		a.log.Error("scheduler start failed", zap.Error(err))
		return err
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.shutdown()
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

// shutdown lets an in-flight tick finish its current user, then releases
// resources in dependency order.
func (a *App) shutdown() {
	a.sched.Stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := a.httpSrv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}

	if a.ledger != nil {
		_ = a.ledger.Close()
	}
	if a.repo != nil {
		_ = a.repo.Close()
	}
}
