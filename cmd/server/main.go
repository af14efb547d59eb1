package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/WatchParty/internal/adapters/auth"
	router "github.com/dkeye/WatchParty/internal/adapters/http"
	"github.com/dkeye/WatchParty/internal/adapters/mail"
	syncws "github.com/dkeye/WatchParty/internal/adapters/sync"
	"github.com/dkeye/WatchParty/internal/app"
	"github.com/dkeye/WatchParty/internal/config"
	"github.com/dkeye/WatchParty/internal/core"
	"github.com/dkeye/WatchParty/internal/repository/sqlite"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	repo := sqlite.NewRepository(db)

	tokens := auth.NewTokenManager(cfg.Secret, cfg.TokenTTL)
	resolver := auth.NewResolver(tokens, repo)

	registry := app.NewRegistry()
	orch := &app.Orchestrator{
		Registry: registry,
		Sessions: core.NewSessionRegistry(),
		Chat:     core.NewChatBuffer(),
		Rooms:    repo,
		Pub:      app.NewPublisher(registry),
	}

	var mailer mail.Mailer = mail.Noop{}
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, cfg.SMTP.BaseURL)
	}

	cleaner := app.NewCleaner(repo, orch, cfg.RoomMaxAge)
	if err := cleaner.Start(cfg.CleanupSpec); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule room cleanup")
	}
	defer cleaner.Stop()

	authH := &router.AuthHandlers{Repo: repo, Tokens: tokens, Mailer: mailer}
	roomH := &router.RoomHandlers{Repo: repo, Orch: orch}
	syncCtl := syncws.NewController(orch, resolver, cfg.ReadLimit, cfg.PingPeriod)

	r := router.SetupRouter(ctx, cfg, resolver, authH, roomH, syncCtl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("WatchParty server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
