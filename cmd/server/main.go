// Command codetrack-server starts the CodeTrack REST server.
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

	"go.uber.org/zap"

	"github.com/cpcoders/codetrack/internal/config"
	"github.com/cpcoders/codetrack/internal/limiter"
	"github.com/cpcoders/codetrack/internal/migrate"
	"github.com/cpcoders/codetrack/internal/repository/postgres"
	"github.com/cpcoders/codetrack/internal/server/httpapi"
	"github.com/cpcoders/codetrack/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, runs migrations, and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Flags override the environment.
	addr := flag.String("addr", cfg.HTTPAddr, "listen address")
	dsn := flag.String("dsn", cfg.DatabaseURL, "PostgreSQL DSN")
	accessTTL := flag.Duration("access-ttl", cfg.AccessTTL, "access token TTL")
	maxBulk := flag.Int("max-bulk", cfg.MaxBulk, "max bulk insert batch size")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, *dsn); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	db, err := postgres.New(ctx, *dsn)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()

	userRepo := postgres.NewUserRepo(db)
	questRepo := postgres.NewQuestionRepo(db)

	lim := limiter.NewPG(db.Pool, 15*time.Minute, 5, 15*time.Minute)

	// Services
	var google service.GoogleVerifier
	if cfg.GoogleClientID != "" {
		google = service.NewTokenInfoVerifier(cfg.GoogleClientID)
	}
	authSvc := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), *accessTTL, lim, google)
	questSvc := service.NewQuestionService(questRepo, *maxBulk)

	handler := httpapi.NewRouter(logger, authSvc, questSvc, httpapi.Options{
		SignKey:              []byte(cfg.JWTSecret),
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		CORSAllowCredentials: cfg.CORSAllowCredentials,
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
