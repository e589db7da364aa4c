package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/naplog/sleep-server-go/internal/config"
	"github.com/naplog/sleep-server-go/internal/database"
	"github.com/naplog/sleep-server-go/internal/handler"
	"github.com/naplog/sleep-server-go/internal/jobs"
	"github.com/naplog/sleep-server-go/internal/middleware"
	"github.com/naplog/sleep-server-go/internal/notify"
	"github.com/naplog/sleep-server-go/internal/redis"
	"github.com/naplog/sleep-server-go/internal/repository"
	"github.com/naplog/sleep-server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.ConnectWithRetry(cfg.DatabaseURL, config.DBConnectAttempts, config.DBConnectInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("database connected")

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	var statsCache *redis.StatsCache
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		statsCache = redis.NewStatsCache(redisClient, config.StatsCacheTTL)
		log.Info().Msg("redis connected, stats cache enabled")
	}

	sessionRepo := repository.NewSessionRepository(db.DB)
	settingsRepo := repository.NewSettingsRepository(db.DB)

	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.WebhookEnabled() {
		notifier = notify.NewWebhookNotifier(cfg.WebhookBaseURL, cfg.WebhookToken, config.WebhookTimeout)
		log.Info().Str("base_url", cfg.WebhookBaseURL).Msg("webhook notifications enabled")
	}

	lifecycleService := service.NewLifecycleService(db, sessionRepo, notifier, statsCache)
	statsService := service.NewStatsService(sessionRepo, cfg.NightStartHour)
	settingsService := service.NewSettingsService(settingsRepo)

	authMiddleware := middleware.NewAuthMiddleware(cfg.APISecret)

	healthHandler := handler.NewHealthHandler(db)
	sleepHandler := handler.NewSleepHandler(lifecycleService)
	statsHandler := handler.NewStatsHandler(statsService, statsCache)
	settingsHandler := handler.NewSettingsHandler(settingsService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

	r.Route("/api", func(api chi.Router) {
		api.Use(authMiddleware.Handler)

		api.Get("/health", healthHandler.Health)

		api.Route("/sleep", func(sleep chi.Router) {
			sleep.Mount("/stats", statsHandler.Routes())
			sleep.Mount("/", sleepHandler.Routes())
		})

		api.Mount("/settings", settingsHandler.Routes())
	})

	r.NotFound(handler.StaticFileServer(cfg.StaticDir).ServeHTTP)

	watchdog := jobs.NewWatchdog(sessionRepo, config.WatchdogInterval, config.WatchdogThreshold)
	watchdog.Start()
	defer watchdog.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
