package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newCaptureCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "capture <post-url>",
		Short: "Capture one post and store it in Notion",
		Long: `Renders the post in a headless browser, normalizes it and creates a
Notion page for it.

Example:
  # Store a post
  ugcctl capture https://www.instagram.com/bob/p/C1a2b3c4d5/

  # Print the record without touching Notion
  ugcctl capture --dry-run https://www.instagram.com/bob/p/C1a2b3c4d5/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := loadApp(!dryRun)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if dryRun {
				rec, err := a.Capture(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return enc.Encode(rec)
			}

			res, err := a.Create(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := enc.Encode(res); err != nil {
				return err
			}
			if len(res.FailedMedia) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d media item(s) could not be attached\n", len(res.FailedMedia))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "extract and normalize only, print the record")
	return cmd
}
