package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skymarchbot/skymarch/internal/bsky"
	"github.com/skymarchbot/skymarch/internal/bus"
	"github.com/skymarchbot/skymarch/internal/config"
	"github.com/skymarchbot/skymarch/internal/firehose"
	"github.com/skymarchbot/skymarch/internal/genai"
	"github.com/skymarchbot/skymarch/internal/media"
	"github.com/skymarchbot/skymarch/internal/pipeline"
)

func runBot() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("bot exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config) error {
	social := bsky.NewClient(cfg.Bluesky.ServiceURL)
	if err := social.Login(ctx, cfg.Bluesky.Handle, cfg.Bluesky.Password); err != nil {
		// No alert channel exists before login succeeds; an unauthenticated
		// client cannot DM or post, so this failure is log-and-exit only.
		return fmt.Errorf("bluesky login: %w", err)
	}
	slog.Info("logged in", "handle", social.Handle(), "did", social.DID())

	var genOpts []genai.Option
	if cfg.GenAI.BaseURL != "" {
		genOpts = append(genOpts, genai.WithBaseURL(cfg.GenAI.BaseURL))
	}
	gen := genai.NewClient(cfg.GenAI.APIKey, genOpts...)
	fetcher := media.NewFetcher(&http.Client{Timeout: 60 * time.Second})

	stats := &bus.Stats{}
	queue := bus.NewQueue(cfg.Pipeline.QueueCapacity, stats)
	limiter := pipeline.NewRateLimiter(cfg.GenAI.MinInterval, cfg.Bluesky.MinInterval)
	dedup := pipeline.NewDedupCache(cfg.Pipeline.DedupCapacity)
	notifier := pipeline.NewNotifier(social, limiter, cfg.Developer.DID, cfg.Developer.Handle, social.Handle())

	pipe := pipeline.New(pipeline.Deps{
		Social:   social,
		Gen:      gen,
		Fetch:    fetcher,
		Limiter:  limiter,
		Dedup:    dedup,
		Queue:    queue,
		Stats:    stats,
		Notifier: notifier,
	}, cfg.Pipeline, cfg.GenAI)

	notifier.Notify(ctx, fmt.Sprintf("✅ skymarch %s online as @%s", Version, social.Handle()))

	if err := pipe.CatchUp(ctx); err != nil && ctx.Err() == nil {
		slog.Error("catch-up scan failed", "error", err)
	}

	consumer := firehose.NewConsumer(
		cfg.Firehose.Endpoint,
		cfg.Firehose.ReconnectDelay,
		firehose.Filter{BotDID: social.DID(), BotHandle: social.Handle()},
		queue,
		notifier,
	)
	reporter := pipeline.NewHealthReporter(queue, stats, notifier, cfg.Pipeline.StatsInterval)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Run(ctx) })
	g.Go(func() error { return pipe.RunWorkers(ctx) })
	g.Go(func() error { return reporter.Run(ctx) })
	g.Go(func() error { return pipe.RunDMCommands(ctx) })
	g.Go(func() error { return pipe.RunAutoPost(ctx) })

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		notifier.AlertCritical(context.Background(), err.Error(), "BOT CRASHED")
	}
	return err
}
