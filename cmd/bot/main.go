package main

import (
	"context"
	"github.com/myrjola/portrait/internal/chat/telegram"
	"github.com/myrjola/portrait/internal/config"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/myrjola/portrait/internal/logging"
	"github.com/myrjola/portrait/internal/orchestrator"
	"github.com/myrjola/portrait/internal/pprofserver"
	"github.com/myrjola/portrait/internal/session"
	"golang.org/x/sync/errgroup"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

type application struct {
	logger       *slog.Logger
	cfg          *config.Config
	orchestrator *orchestrator.Orchestrator
	sessions     *session.Store
	bot          *telegram.Bot
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Stdout, os.LookupEnv); err != nil {
		logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stderr, nil)))
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		stop()
		os.Exit(1) //nolint:gocritic // stop is called above
	}
}

func run(ctx context.Context, logSink io.Writer, lookupEnv func(string) (string, bool)) error {
	cfg, err := config.Load(".env", lookupEnv)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "parse log level")
	}
	logger := logging.NewLogger(logSink, level, cfg.LogFormat)
	logger.LogAttrs(ctx, slog.LevelInfo, "configuration loaded", slog.Any("config", cfg))

	if cfg.PprofAddr != "" {
		pprofserver.Launch(ctx, cfg.PprofAddr, logger)
	}

	bot, err := telegram.New(cfg.TelegramToken, logger)
	if err != nil {
		return errors.Wrap(err, "connect to telegram")
	}
	orch, sessions, err := newOrchestrator(ctx, logger, cfg, bot)
	if err != nil {
		return err
	}

	app := &application{
		logger:       logger,
		cfg:          cfg,
		orchestrator: orch,
		sessions:     sessions,
		bot:          bot,
	}
	return app.serve(ctx)
}

// serve runs the event loop, the session janitor, the HTTP server and the update source until ctx is done.
func (app *application) serve(ctx context.Context) error {
	go app.orchestrator.Start(ctx)
	defer func() {
		app.orchestrator.Stop()
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second) //nolint:mnd // scratch cleanup
		defer cancel()
		app.sessions.Close(closeCtx)
		app.logger.LogAttrs(closeCtx, slog.LevelInfo, "stopped")
	}()
	go app.sessions.RunJanitor(ctx, janitorInterval(app.cfg.SessionTimeout))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.configureAndStartServer(gctx, app.cfg.HTTPAddr)
	})
	switch app.cfg.TelegramMode {
	case config.ModeWebhook:
		if err := app.bot.RegisterWebhook(app.cfg.WebhookURL); err != nil {
			return err
		}
		app.logger.LogAttrs(ctx, slog.LevelInfo, "webhook registered", slog.String("url", app.cfg.WebhookURL))
	default:
		g.Go(func() error {
			return app.bot.Poll(gctx, app.orchestrator.Submit)
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "serve")
	}
	return nil
}

// janitorInterval sweeps often enough that an idle session outlives its timeout by at most a tenth.
func janitorInterval(timeout time.Duration) time.Duration {
	interval := timeout / 10 //nolint:mnd // a tenth of the timeout
	if interval < time.Second {
		return time.Second
	}
	return interval
}
