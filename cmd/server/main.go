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

	router "github.com/dkeye/Jam/internal/adapters/http"
	wssignal "github.com/dkeye/Jam/internal/adapters/signal"
	"github.com/dkeye/Jam/internal/app"
	"github.com/dkeye/Jam/internal/app/orch"
	"github.com/dkeye/Jam/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	rooms := app.NewRoomManager(app.RoomDefaults{
		MaxUsers:    cfg.Rooms.DefaultMaxUsers,
		MaxUsersCap: cfg.Rooms.MaxUsersCap,
		Tempo:       cfg.Rooms.DefaultTempo,
	})
	coordinator := orch.New(app.NewRegistry(), rooms, app.PolicyByName(cfg.Backpressure))
	ctrl := wssignal.NewSignalWSController(coordinator, wssignal.Options{
		ServerVersion: cfg.ServerVersion,
		Features:      cfg.Features,
		ReadLimit:     cfg.ReadLimit,
		PingPeriod:    cfg.PingPeriod,
		SendBuffer:    cfg.SendBuffer,
		RatePerSecond: cfg.Rate.PerSecond,
		RateBurst:     cfg.Rate.Burst,
	})

	r := router.SetupRouter(ctx, cfg, coordinator, ctrl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("version", cfg.ServerVersion).Msg("Jam server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	// Hijacked websocket connections are not tracked by http.Server.
	ctrl.Shutdown()
	log.Info().Msg("Server exited gracefully")
}
