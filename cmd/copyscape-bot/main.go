package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/copyscape-bot/internal/cache/memory"
	"github.com/kitbuilder587/copyscape-bot/internal/config"
	"github.com/kitbuilder587/copyscape-bot/internal/metrics"
	"github.com/kitbuilder587/copyscape-bot/internal/plagiarism/copyscape"
	"github.com/kitbuilder587/copyscape-bot/internal/repository"
	pgRepo "github.com/kitbuilder587/copyscape-bot/internal/repository/postgres"
	"github.com/kitbuilder587/copyscape-bot/internal/service"
	"github.com/kitbuilder587/copyscape-bot/internal/telegram"
	"github.com/kitbuilder587/copyscape-bot/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	client := copyscape.New(copyscape.Config{
		BaseURL:         cfg.Copyscape.BaseURL,
		Credentials:     cfg.Copyscape.Credentials(),
		ConnectTimeout:  cfg.Copyscape.ConnectTimeout,
		DefaultEncoding: cfg.Copyscape.DefaultEncoding,
	}, logger.Named("copyscape"), m)

	var docs repository.DocumentRepository
	if cfg.Database.Enabled() {
		db, err := pgRepo.New(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		docs = pgRepo.NewDocumentRepo(db)
		logger.Info("document registry enabled")
	} else {
		logger.Info("DATABASE_URL not set, private index commands disabled")
	}

	checkSvc := service.NewCheckService(client, docs, m, logger.Named("service"))

	g, gctx := errgroup.WithContext(ctx)

	server := web.NewServer(web.Config{
		Addr:              cfg.HTTP.Addr,
		RunExamples:       cfg.RunExamples,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
	}, client, checkSvc, logger.Named("web"), m, nil)
	g.Go(func() error {
		return server.Run(gctx)
	})

	if cfg.Telegram.Enabled() {
		sessions := memory.NewWithContext[int64, []string](gctx)
		defer sessions.Stop()

		bot, err := telegram.New(telegram.BotConfig{
			Token:             cfg.Telegram.Token,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			SessionTTL:        cfg.Session.TTL,
		}, checkSvc, sessions, logger.Named("telegram"), m)
		if err != nil {
			stop()
			g.Wait()
			return err
		}
		g.Go(func() error {
			return bot.Run(gctx)
		})
	}

	logger.Info("copyscape bot started",
		zap.String("http_addr", cfg.HTTP.Addr),
		zap.Bool("telegram", cfg.Telegram.Enabled()),
		zap.Bool("run_examples", cfg.RunExamples),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
