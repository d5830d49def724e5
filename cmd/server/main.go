package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vervegrand/feedsync/config"
	"github.com/vervegrand/feedsync/internal/app"
	"github.com/vervegrand/feedsync/internal/logging"
)

func main() {
	configFile := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.SetDefault(logging.NewFromConfig(cfg.Log.Level, cfg.Log.Format, nil))
	log := logging.Component("server")

	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Dur("cache_ttl", cfg.Cache.TTL).
		Msg("Starting feedsync server v1.0.0")

	application, err := app.New(cfg, app.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Serve(ctx); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		application.Close()
		os.Exit(1)
	}
}
