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

	router "github.com/voxmesh/meetrelay/internal/adapters/http"
	"github.com/voxmesh/meetrelay/internal/app"
	"github.com/voxmesh/meetrelay/internal/config"
	"github.com/voxmesh/meetrelay/internal/summarize"
	"github.com/voxmesh/meetrelay/internal/transcribe"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var transcriber transcribe.Transcriber = transcribe.Static{}
	if cfg.WhisperURL != "" {
		transcriber = transcribe.NewWhisper(cfg.WhisperURL, cfg.WhisperKey)
	}
	var summarizer summarize.Summarizer = summarize.Local{}
	if cfg.GeminiKey != "" {
		summarizer = summarize.NewGemini(cfg.GeminiKey)
	}
	log.Info().Str("transcriber", transcriber.Name()).Str("summarizer", summarizer.Name()).Msg("collaborators wired")

	reg := app.NewRegistry(ctx, app.RegistryOptions{
		QueueSize:       cfg.QueueSize,
		KeepTranscripts: cfg.KeepTranscripts,
		Worker: app.WorkerConfig{
			FlushInterval:     cfg.FlushInterval,
			FlushCount:        cfg.FlushCount,
			MinFlushBytes:     cfg.MinFlushBytes,
			TranscribeTimeout: cfg.TranscribeTimeout,
		},
	}, transcriber)

	orch := &app.Orchestrator{
		Registry:   reg,
		Summarizer: summarizer,
	}

	r := router.SetupRouter(ctx, cfg, orch)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("meetrelay server started")
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
