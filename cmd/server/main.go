package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-quotes/auth"
	"github.com/diewo77/go-quotes/internal/config"
	"github.com/diewo77/go-quotes/internal/db"
	"github.com/diewo77/go-quotes/internal/handlers"
	"github.com/diewo77/go-quotes/internal/logger"
	"github.com/diewo77/go-quotes/internal/metrics"
	"github.com/diewo77/go-quotes/internal/policy"
	"github.com/diewo77/go-quotes/internal/services"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const sessionTTL = 7 * 24 * time.Hour

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	dbConn, err := db.Open(cfg.Database, logger.Component(log, "db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if *migrateOnlyFlag {
		if err := migrate(cfg, dbConn); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Msg("migrations completed successfully")
		return
	}

	if cfg.App.Migrations {
		if err := migrate(cfg, dbConn); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Bool("sql", cfg.App.SQLMigrations).Msg("migrations completed")
	}

	secret := cfg.App.SessionSecret
	if secret == "" {
		if !cfg.App.Dev {
			log.Fatal().Msg("SESSION_SECRET is required outside dev mode")
		}
		secret = uuid.NewString()
		log.Warn().Msg("SESSION_SECRET not set, sessions will not survive a restart")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	quotes := services.NewQuoteService(dbConn, policy.NewQuoteGate(),
		services.WithLockTimeout(cfg.Versioning.LockTimeout),
		services.WithListLimit(cfg.Versioning.ListLimit),
		services.WithMetrics(metrics.New(reg)),
		services.WithLogger(logger.Component(log, "quotes")),
	)

	sessions := auth.NewSessions(secret, sessionTTL)
	authHandler := handlers.NewAuthHandler(dbConn, sessions, logger.Component(log, "auth"))
	sessions.SetUserVerifier(authHandler.UserExists)

	app := NewApp(Deps{
		Quotes:   quotes,
		Auth:     authHandler,
		Sessions: sessions,
		Registry: reg,
		Log:      logger.Component(log, "http"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Bool("dev", cfg.App.Dev).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	waitForShutdown(log, srv)
}

func migrate(cfg *config.Config, dbConn *gorm.DB) error {
	if cfg.App.SQLMigrations {
		return db.MigrateSQL(cfg.Database, cfg.App.MigrationsDir)
	}
	return db.Migrate(dbConn)
}

func waitForShutdown(log zerolog.Logger, srv *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server stopped gracefully")
}
