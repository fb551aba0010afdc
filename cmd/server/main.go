// Spike backend: answers natural-language questions about a website by
// routing them to a GA4 analytics agent and an SEO crawl agent.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/rs/zerolog/log"

	"github.com/spikeai/spike/backend/internal/config"
	"github.com/spikeai/spike/backend/internal/logging"
	"github.com/spikeai/spike/backend/pkg/server"
)

func main() {
	cfg := config.Load()

	logCloser := logging.Setup(cfg.Log)
	defer logCloser.Close()

	log.Info().Str("version", cfg.Version).Msg("🚀 Spike AI Backend starting...")

	if cfg.GopsEnabled {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Warn().Err(err).Msg("gops agent failed to start")
		} else {
			defer agent.Close()
			log.Info().Msg("🩺 gops agent listening")
		}
	}

	ctx := context.Background()
	srv, err := server.NewWithConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	// Streaming queries can outlive a short write timeout, so the
	// write deadline tracks the query timeout.
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", srv.Port),
		Handler:      srv.Handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.QueryTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("🛑 Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP shutdown failed")
		}
	}()

	log.Info().
		Int("port", srv.Port).
		Str("strategy", string(srv.Orchestrator.Strategy())).
		Msg("🔥 Spike is ready for questions")

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.ShutdownFunc(flushCtx); err != nil {
		log.Warn().Err(err).Msg("Shutdown cleanup failed")
	}
}
