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

	"github.com/nimbusrtc/sfucore/internal/config"
	"github.com/nimbusrtc/sfucore/internal/httpapi"
	"github.com/nimbusrtc/sfucore/internal/mw"
	"github.com/nimbusrtc/sfucore/internal/registry"
	"github.com/nimbusrtc/sfucore/internal/signaling"
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

	worker, err := mw.NewWorker(mw.WorkerConfig{
		ListenIP:               cfg.ListenIP,
		AnnouncedIP:            cfg.AnnouncedIP,
		RTCMinPort:             cfg.RTCMinPort,
		RTCMaxPort:             cfg.RTCMaxPort,
		InitialOutgoingBitrate: 800000,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start media worker")
	}
	defer worker.Close()

	reg := registry.New()
	rooms := signaling.NewRoomManager(reg, worker, cfg.AudioObserverIntervalMs, cfg.AudioObserverThresholdDBFS)
	dispatcher := signaling.NewDispatcher(reg, rooms)

	r := httpapi.NewRouter(httpapi.Config{
		ReleaseMode:   cfg.Mode == "release",
		SessionSecret: cfg.SessionSecret,
	}, reg, dispatcher)

	addr := fmt.Sprintf(":%d", cfg.SignalPort)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("sfucore signaling server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited gracefully")
}
