package main

import (
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/ugc2notion/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := loadApp(true)
			if err != nil {
				return err
			}
			path, err := configPath()
			if err != nil {
				return err
			}
			return server.RunApp(cmd.Context(), a, path, logger)
		},
	}
}
