package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/stashboard/internal/config"
	"github.com/jonathan/stashboard/internal/events"
	"github.com/jonathan/stashboard/internal/fetch"
	"github.com/jonathan/stashboard/internal/generators"
	"github.com/jonathan/stashboard/internal/hoard"
	"github.com/jonathan/stashboard/internal/llm"
	"github.com/jonathan/stashboard/internal/observability"
	"github.com/jonathan/stashboard/internal/processor"
	"github.com/jonathan/stashboard/internal/queue"
	"github.com/jonathan/stashboard/internal/server"
	"github.com/jonathan/stashboard/internal/watcher"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pipeline and its REST API",
	Long:  `Start the job queue, hoard watcher and HTTP server. Runs until interrupted; queued jobs survive restarts.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	logger := observability.NewLogger(observability.LoggerConfig{
		FilePath:   cfg.LogPath,
		Production: cfg.Production,
	})
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	store := hoard.NewStore(cfg.HoardPath, logger)
	broadcaster := events.NewBroadcaster(logger)
	defer func() { _ = broadcaster.Close() }()

	proc := processor.New(client, store, broadcaster, logger)
	jobQueue, err := queue.NewJobQueue(cfg.QueueDir,
		time.Duration(cfg.PollIntervalSeconds)*time.Second, proc, broadcaster, logger)
	if err != nil {
		return err
	}

	sessions := generators.NewSessions(cfg.SessionDir, logger)
	freeform := generators.NewFreeform(client, store, sessions, broadcaster, logger, cfg.ResumeDataPath)
	templatized := generators.NewTemplatized(client, store, sessions, logger, cfg.TemplateDir, cfg.ResumeDataPath)

	fetchOpts := fetch.DefaultOptions()
	fetchOpts.UseBrowser = cfg.UseBrowser
	fetcher := fetch.NewCachedFetcher(fetch.NewFetcher(fetchOpts, logger), 0, logger)

	srv := server.New(cfg.Port, server.Deps{
		Store:       store,
		Broadcaster: broadcaster,
		JobQueue:    jobQueue,
		GenQueue:    queue.NewGenerationQueue(logger),
		Freeform:    freeform,
		Templatized: templatized,
		Fetcher:     fetcher,
		Logger:      logger,
	})

	hoardWatcher := watcher.New(store, broadcaster, logger)

	logger.Info("stashboard starting",
		zap.Int("port", cfg.Port),
		zap.String("hoard", cfg.HoardPath),
		zap.String("queue", cfg.QueueDir))

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return jobQueue.Run(ctx) })
	group.Go(func() error { return hoardWatcher.Run(ctx) })
	group.Go(func() error { return srv.Run(ctx) })

	if err := group.Wait(); err != nil && err != context.Canceled {
		return err
	}
	logger.Info("stashboard stopped")
	return nil
}
