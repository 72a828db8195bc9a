package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/farm-ledger/internal/api"
	"github.com/dvloznov/farm-ledger/internal/app"
	"github.com/dvloznov/farm-ledger/internal/backup"
	"github.com/dvloznov/farm-ledger/internal/bot"
	"github.com/dvloznov/farm-ledger/internal/config"
	"github.com/dvloznov/farm-ledger/internal/gcsuploader"
	"github.com/dvloznov/farm-ledger/internal/jobs"
	"github.com/dvloznov/farm-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/farm-ledger/internal/logger"
	"github.com/dvloznov/farm-ledger/internal/metrics"
	"github.com/dvloznov/farm-ledger/internal/mirror"
	"github.com/dvloznov/farm-ledger/internal/nlu"
	"github.com/dvloznov/farm-ledger/internal/pending"
	pendingmem "github.com/dvloznov/farm-ledger/internal/pending/inmemory"
	"github.com/dvloznov/farm-ledger/internal/pending/redisstore"
	"github.com/dvloznov/farm-ledger/internal/telegram"
	"github.com/rs/zerolog"
)

const (
	dispatchBuffer = 100
	sweepSchedule  = "@every 5m"
	taskTimeout    = 5 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	log := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	if len(cfg.AllowedUsers) == 0 {
		log.Warn().Msg("ALLOWED_USERS is empty - every message will be rejected")
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	// Initialize stores
	books, err := app.OpenBooks(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open spreadsheet")
	}

	model, err := nlu.NewModel(ctx, cfg.LLMProvider, cfg.LLMAPIKey, cfg.LLMModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create language model")
	}
	analyzer := nlu.NewAnalyzer(model, cfg.Timezone)

	pendingStore, closePending, err := openPending(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open pending store")
	}
	defer closePending()

	m := metrics.New()

	sink, closeMirrors := openMirrors(ctx, cfg, log)
	defer closeMirrors()

	exporter := backup.NewBuilder(books.Ledger, books.Livestock)

	service := bot.New(bot.Deps{
		Analyzer:  analyzer,
		Ledger:    books.Ledger,
		Livestock: books.Livestock,
		Pending:   pendingStore,
		Exporter:  exporter,
		Mirror:    sink,
		Metrics:   m,
	}, bot.Options{
		AllowedUsers: cfg.AllowedUsers,
		UserNames:    cfg.UserNames,
	})

	// Initialize job infrastructure
	botAPI, err := telegram.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Telegram")
	}

	jobStore := inmemory.NewStore(inmemory.DefaultCapacity)
	jobQueue := inmemory.NewQueue(dispatchBuffer, cfg.DispatchWorkers, jobStore)
	adapter := telegram.NewAdapter(botAPI, service, jobQueue)

	// Workers outlive polling so updates already queued are answered on shutdown.
	workerCtx, cancelWorkers := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancelWorkers()
	if err := jobQueue.Start(workerCtx, adapter.Dispatch); err != nil {
		log.Fatal().Err(err).Msg("Failed to start dispatch workers")
	}

	// Scheduled tasks
	scheduler := jobs.NewScheduler(ctx, cfg.Timezone, taskTimeout)
	if err := scheduler.Add("pending-sweep", sweepSchedule, func(ctx context.Context) error {
		n, err := pendingStore.Sweep(ctx)
		if err != nil {
			return err
		}
		m.PendingEvicted(n)
		return nil
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule pending sweep")
	}

	if cfg.BackupBucket != "" {
		storage, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer storage.Close()

		backupJob := backup.NewJob(exporter, storage, cfg.BackupBucket, cfg.Timezone, m)
		if err := scheduler.Add("backup", cfg.BackupSchedule, func(ctx context.Context) error {
			_, err := backupJob.Run(ctx)
			return err
		}); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule backup")
		}
	} else {
		log.Warn().Msg("No BACKUP_BUCKET configured - scheduled backups are disabled")
	}
	scheduler.Start()

	// HTTP server
	routerCfg := api.RouterConfig{
		Metrics: m.Handler(),
		Jobs:    jobStore,
		Log:     log,
	}
	if cfg.WebhookMode() {
		routerCfg.Webhook = adapter.WebhookHandler(cfg.WebhookSecret)
		routerCfg.WebhookPath = cfg.WebhookPath()
	}

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Updates
	if cfg.WebhookMode() {
		if err := adapter.SetWebhook(cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			log.Fatal().Err(err).Msg("Failed to register webhook")
		}
		log.Info().Str("path", cfg.WebhookPath()).Msg("Webhook registered")
	} else {
		go func() {
			if err := adapter.Poll(ctx); err != nil {
				log.Error().Err(err).Msg("Polling stopped with error")
			}
		}()
	}

	log.Info().
		Str("model", analyzer.ModelName()).
		Str("pending_backend", cfg.PendingBackend).
		Int("workers", cfg.DispatchWorkers).
		Int("scheduled_tasks", scheduler.Len()).
		Msg("Bot started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Stop taking updates: polling ends and the webhook stops accepting
	cancel()

	// Graceful shutdown
	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping scheduler")
	}

	// Answer the updates already queued, then release the workers
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Job queue did not drain before the deadline")
	}
	cancelWorkers()
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Bot exited")
}

// openPending opens the configured pending store and returns its closer.
func openPending(ctx context.Context, cfg config.Config) (pending.Store, func(), error) {
	if cfg.PendingBackend == config.PendingBackendRedis {
		store, err := redisstore.Open(ctx, cfg.RedisURL, cfg.PendingTTL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
	return pendingmem.NewStore(cfg.PendingTTL), func() {}, nil
}

// openMirrors builds the configured mirror sinks. A sink that cannot be created
// is logged and left out; the result is nil when no sink is available.
func openMirrors(ctx context.Context, cfg config.Config, log zerolog.Logger) (mirror.Sink, func()) {
	var sinks mirror.Fanout
	closers := []func(){}

	if cfg.BigQueryProject != "" && cfg.BigQueryDataset != "" {
		bq, err := mirror.NewBigQuerySink(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			log.Error().Err(err).Msg("BigQuery mirror disabled")
		} else {
			sinks = append(sinks, bq)
			closers = append(closers, func() { _ = bq.Close() })
		}
	}

	if cfg.NotionToken != "" && cfg.NotionDatabaseID != "" {
		sinks = append(sinks, mirror.NewNotionSink(mirror.NewNotionClient(cfg.NotionToken), cfg.NotionDatabaseID))
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(sinks) == 0 {
		return nil, closeAll
	}
	log.Info().Int("sinks", len(sinks)).Msg("Mirrors enabled")
	return sinks, closeAll
}
