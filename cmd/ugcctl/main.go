// Command ugcctl is a dev CLI for capturing posts and maintaining the
// ugc2notion setup.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/ugc2notion/internal/app"
	"github.com/ibeckermayer/ugc2notion/internal/config"
	"github.com/ibeckermayer/ugc2notion/internal/logging"
)

var (
	cfgFile string
	debug   bool
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ugcctl",
		Short:         "Capture Instagram posts into Notion",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the user config dir)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newCaptureCmd(),
		newServeCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newBotTestCmd(),
		newOpenCmd(),
	)
	return root
}

// configPath returns the --config value or the default location
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.ConfigPath()
}

// loadConfig reads config and sets up logging for a command
func loadConfig() (*config.Config, zerolog.Logger, error) {
	path, err := configPath()
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	// Commands are run by hand, so always log for humans
	logger := logging.Setup(level, true)
	return cfg, logger, nil
}

func loadApp(requireNotion bool) (*app.App, zerolog.Logger, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, logger, err
	}
	if err := cfg.Validate(requireNotion); err != nil {
		return nil, logger, err
	}

	a, err := app.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, logger, err
	}
	return a, logger, nil
}
