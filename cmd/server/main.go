// Command server runs the matching engine behind the HTTP/websocket
// gateway, shutting down cleanly on SIGTERM/SIGINT.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"matchengine/internal/config"
	"matchengine/internal/engine"
	"matchengine/internal/eventbus"
	"matchengine/internal/gateway"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional; defaults + env alone if omitted)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	reg := prometheus.NewRegistry()
	bus := eventbus.New(reg, eventbus.WithSubscriberBufferSize(cfg.EventBus.SubscriberBufferSize))
	defer bus.Close()

	eng := engine.New(bus, cfg.Symbols...)
	hub := gateway.NewHub(bus)
	srv := gateway.New(cfg.Addr(), eng, hub, reg, cfg.ShutdownTimeout)

	log.Info().Str("addr", cfg.Addr()).Strs("symbols", cfg.Symbols).Msg("matchengine starting")

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("gateway server exited with error")
		os.Exit(1)
	}
}
