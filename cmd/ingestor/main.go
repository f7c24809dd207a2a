package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blockedby/listings-os/internal/config"
	"github.com/blockedby/listings-os/internal/database"
	"github.com/blockedby/listings-os/internal/fetcher"
	"github.com/blockedby/listings-os/internal/logger"
	"github.com/blockedby/listings-os/internal/migrator"
	"github.com/blockedby/listings-os/internal/models"
	"github.com/blockedby/listings-os/internal/nats"
	"github.com/blockedby/listings-os/internal/profiles"
	"github.com/blockedby/listings-os/internal/publisher"
	"github.com/blockedby/listings-os/internal/repository"
	"github.com/blockedby/listings-os/internal/scraper"
	"github.com/blockedby/listings-os/migrations"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting listings ingestor")

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Run migrations and connect to database
	mig, err := migrator.New(migrations.FS, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init migrator")
	}
	if err := mig.Up(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// 5. Connect to NATS
	nc, err := nats.New(ctx, cfg.NatsURL)
	if err != nil {
		log.Warn().Err(err).Msg("failed to connect to nats, publishing disabled")
	} else {
		defer nc.Close()
		if err := nc.EnsureStream(ctx, nats.StreamListings, []string{nats.SubjectListingsWildcard}); err != nil {
			log.Warn().Err(err).Msg("failed to ensure listings stream")
		}
	}

	var pub scraper.EventPublisher
	if nc != nil {
		pub = publisher.NewNATSPublisher(nc.Conn)
	}

	// 6. Initialize repositories
	sourcesRepo := repository.NewSourcesRepository(db.Pool)
	listingsRepo := repository.NewListingsRepository(db.Pool, db.GORM)
	scansRepo := repository.NewScansRepository(db.Pool)

	// 7. Initialize browser fetcher
	browserCfg := fetcher.DefaultBrowserConfig()
	browserCfg.MaxTabs = cfg.BrowserTabs
	browserCfg.RPS = cfg.RateLimitRPS
	browserCfg.Timeout = time.Duration(cfg.FetchTimeoutSec) * time.Second

	browser := fetcher.NewBrowser(browserCfg, log)
	defer browser.Close()

	// 8. Initialize scraper service & manager
	svcCfg := scraper.DefaultServiceConfig()
	svcCfg.Workers = cfg.Workers
	svcCfg.MaxPages = cfg.MaxPages
	svcCfg.FetchRetry.MaxAttempts = cfg.FetchRetries

	svc := scraper.NewService(
		browser,
		sourcesRepo,
		listingsRepo,
		scansRepo,
		pub,
		log,
		svcCfg,
	)
	manager := scraper.NewScrapeManager(svc)

	// 9. Optional curated profiles file
	var namedProfiles map[string]models.SearchProfile
	if cfg.ProfilesFile != "" {
		namedProfiles, err = profiles.Load(cfg.ProfilesFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.ProfilesFile).Msg("invalid profiles file")
		}
		log.Info().Int("profiles", len(namedProfiles)).Msg("loaded search profiles")
	}

	handler := scraper.NewHandler(manager, sourcesRepo, listingsRepo, namedProfiles)

	// 10. Start HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: scraper.NewRouter(handler),
	}

	log.Info().Int("port", cfg.HTTPPort).Msg("starting http server")
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// 11. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down...")

	manager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown failed")
	}

	log.Info().Msg("shutdown complete")
}
