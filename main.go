// Command ugc2notion serves POST /create-ugc, which captures an Instagram
// post and stores it in a Notion database.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/ibeckermayer/ugc2notion/internal/app"
	"github.com/ibeckermayer/ugc2notion/internal/config"
	"github.com/ibeckermayer/ugc2notion/internal/logging"
	"github.com/ibeckermayer/ugc2notion/internal/server"
)

func main() {
	defaultPath, err := config.ConfigPath()
	if err != nil {
		defaultPath = ""
	}
	configPath := flag.String("config", defaultPath, "path to config.toml (optional)")
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	if err := cfg.Validate(true); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	a, err := app.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build pipeline")
	}

	logger.Info().
		Str("listen_addr", cfg.Server.ListenAddr).
		Str("media_strategy", cfg.Notion.MediaStrategy).
		Str("profile", cfg.Browser.Profile).
		Msg("ugc2notion starting...")

	if err := server.RunApp(context.Background(), a, *configPath, logger); err != nil {
		logger.Error().Err(err).Msg("Server stopped")
		os.Exit(1)
	}
}
