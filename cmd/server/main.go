package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"librarian/internal/api"
	"librarian/internal/app/service"
	"librarian/internal/common/security"
	"librarian/internal/domain/repository"
	"librarian/internal/platform/cache"
	"librarian/internal/platform/config"
	"librarian/internal/platform/database"
	"librarian/internal/platform/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Environment)
	log.Info().Msg("configuration loaded")

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()
	log.Info().Msg("database connected")

	reportCache, err := cache.Connect(cfg, log)
	if err != nil {
		// Reports fall back to hitting the database directly.
		log.Warn().Err(err).Msg("redis unavailable, running without report cache")
		reportCache = nil
	} else {
		defer reportCache.Close()
		log.Info().Msg("redis connected")
	}

	tokens := security.NewTokenService(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)

	userRepo := repository.NewPgUserRepository(db)
	bookRepo := repository.NewPgBookRepository(db)
	borrowRepo := repository.NewPgBorrowRepository(db)

	authService := service.NewAuthService(userRepo, tokens, log)
	bookService := service.NewBookService(bookRepo, borrowRepo, log)
	borrowService := service.NewBorrowService(borrowRepo, bookRepo, reportCache, log)
	reportService := service.NewReportService(borrowRepo, bookRepo, reportCache, cfg.ReportCacheTTL, log)

	router := api.NewRouter(cfg, log, tokens, authService, bookService, borrowService, reportService)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.APIPort).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-stop
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server shutdown failed")
	}

	log.Info().Msg("server stopped gracefully")
}
