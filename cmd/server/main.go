package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cinetrail/api"
	"cinetrail/config"
	"cinetrail/handlers"
	"cinetrail/internal/database"
	"cinetrail/internal/logging"
	"cinetrail/services/accounts"
	authsvc "cinetrail/services/auth"
	"cinetrail/services/favorites"
	"cinetrail/services/metadata"
	"cinetrail/services/scheduler"
	"cinetrail/services/searchstats"
	"cinetrail/services/sessions"
	"cinetrail/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config.yaml (defaults to $CONFIG_FILE or ./config.yaml)")
	flag.Parse()

	if err := run(configPath); err != nil {
		log.Fatalf("cinetrail: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logCloser := logging.Setup(cfg.Logging)
	defer logCloser.Close()

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	db, err := database.NewDB(database.Config{DatabasePath: cfg.Storage.DatabasePath})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	accountsSvc, err := accounts.NewService(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("init accounts: %w", err)
	}
	sessionsSvc, err := sessions.NewService(cfg.Storage.DataDir, cfg.SessionDuration())
	if err != nil {
		return fmt.Errorf("init sessions: %w", err)
	}

	// The bootstrap account is also the only one allowed to run jobs.
	var adminID string
	if cfg.Auth.BootstrapEmail != "" {
		account, password, err := accountsSvc.EnsureBootstrapAccount(cfg.Auth.BootstrapEmail)
		if err != nil {
			return fmt.Errorf("bootstrap account: %w", err)
		}
		if password != "" {
			log.Printf("[main] created account %s with generated password %s; change it after first login", account.Email, password)
		}
		adminID = account.ID
	}

	proxies, err := api.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return fmt.Errorf("server.trusted_proxies: %w", err)
	}

	metadataSvc := metadata.NewService(metadata.Options{
		APIKey:            cfg.TMDB.APIKey,
		Language:          cfg.TMDB.Language,
		BaseURL:           cfg.TMDB.BaseURL,
		CacheDir:          filepath.Join(cfg.Storage.DataDir, "cache"),
		CacheTTLHours:     cfg.Storage.CacheTTLHours,
		RequestsPerSecond: cfg.TMDB.RequestsPerSecond,
		HTTPClient:        &http.Client{Timeout: cfg.TMDB.Timeout},
	})
	if !metadataSvc.IsConfigured() {
		log.Printf("[main] TMDB_API_KEY is not set; movie endpoints will answer 503")
	}

	favoritesSvc := favorites.NewService(favorites.NewSQLiteStore(db.Favorites))
	searchesSvc := searchstats.NewService(db.Searches)
	loginLimiter := api.PerMinute(cfg.Auth.LoginRatePerMinute)

	sched := scheduler.NewService()
	if err := registerJobs(sched, sessionsSvc, metadataSvc, loginLimiter); err != nil {
		return err
	}

	router := utils.NewRouter(utils.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Health: func() map[string]any {
			return map[string]any{"tmdbConfigured": metadataSvc.IsConfigured()}
		},
	})
	handlers.RegisterRoutes(router, handlers.Routes{
		Auth:           handlers.NewAuthHandler(authsvc.NewProvider(accountsSvc, sessionsSvc), accountsSvc, sessionsSvc, favoritesSvc),
		Movies:         handlers.NewMoviesHandler(metadataSvc, searchesSvc),
		Favorites:      handlers.NewFavoritesHandler(favoritesSvc),
		Jobs:           handlers.NewJobsHandler(sched),
		Sessions:       sessionsSvc,
		LoginLimiter:   loginLimiter,
		TrustedProxies: proxies,
		JobsAccountID:  adminID,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	reloader := &metadataReloader{path: configPath, svc: metadataSvc, apiKey: cfg.TMDB.APIKey, language: cfg.TMDB.Language}
	go reloader.watch(ctx)

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[main] listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Println("[main] shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] graceful shutdown failed: %v", err)
		_ = srv.Close()
	}
	_ = sched.Stop(shutdownCtx)
	log.Println("[main] server stopped")
	return nil
}
