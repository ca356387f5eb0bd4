package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/tavernkeep/tavern/internal/adapters/http"
	"github.com/tavernkeep/tavern/internal/app"
	"github.com/tavernkeep/tavern/internal/config"
	"github.com/tavernkeep/tavern/internal/core"
	"github.com/tavernkeep/tavern/internal/storage/sqlite"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so everything below can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	hub := core.NewHub()
	logs := app.NewCombatLog(store, hub)

	// The directory serializes its own source; combat rolls use the
	// package-level source, which is safe across sessions.
	codeRng := rand.New(rand.NewSource(time.Now().UnixNano()))

	coord := &app.Coordinator{
		Store:     store,
		Hub:       hub,
		Registry:  app.NewRegistry(),
		Directory: app.NewDirectory(store, codeRng),
		Combat:    app.NewCombat(store, hub, logs, func() int { return rand.Intn(20) + 1 }),
		Logs:      logs,
	}

	r := router.Setup(ctx, cfg, coord)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("tavern server started")
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
