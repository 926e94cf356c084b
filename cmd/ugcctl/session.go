package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to Instagram in a browser window and save the session cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := loadApp(false)
			if err != nil {
				return err
			}
			return a.TriggerLogin(cmd.Context())
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved Instagram session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := loadApp(false)
			if err != nil {
				return err
			}
			if !a.IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved session")
			}
			return a.TriggerLogout()
		},
	}
}
