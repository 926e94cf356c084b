package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ibeckermayer/ugc2notion/internal/app"
	"github.com/ibeckermayer/ugc2notion/internal/config"
)

// ConfigFrom converts the [server] config section
func ConfigFrom(c config.ServerConfig) Config {
	return Config{
		ListenAddr:      c.ListenAddr,
		AllowedOrigins:  c.AllowedOrigins,
		RequestTimeout:  c.RequestTimeout.Duration,
		ShutdownTimeout: c.ShutdownTimeout.Duration,
	}
}

// RunApp serves a until ctx is done or SIGINT/SIGTERM arrives. SIGHUP
// reloads the pipeline from configPath without dropping connections.
func RunApp(ctx context.Context, a *app.App, configPath string, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	go func() {
		for {
			select {
			case <-hup:
				if err := a.ReloadConfig(configPath); err != nil {
					log.Error().Err(err).Msg("Config reload failed, keeping current config")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	s := New(ConfigFrom(a.Config().Server), a, log)
	return s.Run(ctx)
}
