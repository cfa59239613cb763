package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"gemini-bot/internal/bot"
	"gemini-bot/internal/config"
	"gemini-bot/internal/dashboard"
	"gemini-bot/internal/database"
	"gemini-bot/internal/gemini"
	"gemini-bot/internal/history"
	"gemini-bot/internal/logger"
	"gemini-bot/internal/referral"
	"gemini-bot/internal/search"
	"gemini-bot/internal/storage"
	"gemini-bot/internal/worker"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.BotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("could not open storage", "backend", cfg.StorageBackend, "error", err)
	}
	defer closeStore()

	// Redis is optional; without it the update guard and report lock are off.
	rdb, err := database.ConnectRedis(cfg, log)
	if err != nil {
		log.Warn("redis unavailable, running without update dedup", "error", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	ai, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.ExternalTimeout,
		Retries: cfg.ExternalRetries,
	}, log)
	if err != nil {
		log.Fatal("could not create gemini client", "error", err)
	}

	var providers []search.Provider
	if cfg.SerpAPIKey != "" {
		providers = append(providers, search.NewSerpAPI(cfg.SerpAPIKey, cfg.ExternalTimeout))
	}
	providers = append(providers, search.NewDuckDuckGo(cfg.ExternalTimeout))
	searcher := search.NewService(ai, cfg.SearchResults, log, providers...)

	agg := dashboard.NewAggregator(store)
	server, err := dashboard.NewServer(agg, log, cfg.DashboardCIDR)
	if err != nil {
		log.Fatal("could not create dashboard", "error", err)
	}

	tgBot, err := bot.NewBot(cfg.BotToken, bot.Deps{
		Referrals: referral.NewEngine(store, log),
		Phones:    store,
		History:   history.NewRecorder(store),
		AI:        ai,
		Search:    searcher,
	}, bot.NewUpdateGuard(rdb, cfg.DedupTTL, log), log)
	if err != nil {
		log.Fatal("could not create bot", "error", err)
	}

	reporter := worker.NewReporter(agg, rdb, tgBot.Instance, cfg.AdminChatID, cfg.ReportEvery, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tgBot.Start(ctx) })
	g.Go(func() error { return server.Run(ctx, cfg.DashboardAddr) })
	g.Go(func() error { return reporter.Run(ctx) })

	log.Info("Service started successfully", "storage", cfg.StorageBackend)
	if err := g.Wait(); err != nil {
		log.Error("service stopped with error", "error", err)
		return
	}
	log.Info("Service stopped")
}

// openStore connects the configured backend and migrates its schema.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (storage.Store, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendMongo:
		client, err := database.ConnectMongo(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewMongoStore(client.Database(cfg.MongoDB))
		if err := store.Migrate(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("failed to migrate mongo: %w", err)
		}
		return store, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.BackendPostgres:
		db, err := database.ConnectPostgres(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewGormStore(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return store, closeDB, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
