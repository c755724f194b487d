package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tourdesk/internal/api"
	"tourdesk/internal/config"
	"tourdesk/internal/database"
	"tourdesk/internal/events"
	"tourdesk/internal/logging"
	"tourdesk/internal/metrics"
	"tourdesk/internal/notify"
	"tourdesk/internal/sheets"
	"tourdesk/internal/sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	logger := baseLogger.With().Str("component", "main").Logger()

	metrics.Register()

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sheetClient, err := sheets.NewService(ctx, cfg.Google.CredentialsFile, cfg.Google.SpreadsheetID, cfg.Google.WriteRPS)
	if err != nil {
		return fmt.Errorf("init sheets client: %w", err)
	}
	if err := sheetClient.TestConnection(ctx, cfg.Google.RequestsSheet); err != nil {
		logger.Warn().Err(err).Msg("Sheets connection test failed; sync runs will retry")
	}

	sheetMap := sync.SheetMap{
		Requests: cfg.Google.RequestsSheet,
		Costs:    cfg.Google.CostsSheet,
		Revenues: cfg.Google.RevenuesSheet,
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	deadLetter := sync.NewDeadLetter(redisClient, cfg.Sync.DeadLetterKey, baseLogger)

	var notifier sync.FailureNotifier
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatIDs, baseLogger)
		if err != nil {
			return fmt.Errorf("init telegram notifier: %w", err)
		}
		notifier = tg
	}

	var backup *database.BackupService
	if cfg.Backup.Enabled {
		backup = database.NewBackupService(cfg.Database.Path, cfg.Backup, baseLogger)
	}

	processor := sync.NewProcessor(db, sheetClient, sheetMap, baseLogger)
	dispatcher := sync.NewDispatcher(db, processor, cfg.Sync, sheetMap, deadLetter, notifier, backup, baseLogger)
	importer := sync.NewImporter(db, sheetClient, sheetMap, baseLogger)

	// The CRUD layer publishes entity mutations here; the subscriber
	// turns them into outbox items.
	bus := events.NewEventBus()
	sync.RegisterOutbox(bus, db, baseLogger)

	server := api.NewServer(cfg.API, cfg.Sync, db, dispatcher, importer, cfg.Exports.Path, baseLogger)

	startMetrics(ctx, cfg, &logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown")
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		logger.Info().Msg("redis not configured, dead-letter sink disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, dead-letter sink disabled")
		_ = client.Close()
		return nil
	}
	return client
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("metrics listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
