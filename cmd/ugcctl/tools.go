package main

import (
	"bufio"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/ugc2notion/internal/browser"
)

func newBotTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot-test",
		Short: "Open bot.sannysoft.com to audit the browser fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			logger.Info().Msg("Opening bot.sannysoft.com with stealth browser options...")

			opts := browser.AllocatorOptions(browser.Options{
				Headless:  false, // visible so you can see it
				ExecPath:  cfg.Browser.ExecPath,
				UserAgent: cfg.Browser.UserAgent,
				Profile:   cfg.Browser.Profile,
			})

			allocCtx, cancel := chromedp.NewExecAllocator(cmd.Context(), opts...)
			defer cancel()

			ctx, cancel := chromedp.NewContext(allocCtx)
			defer cancel()

			err = chromedp.Run(ctx,
				chromedp.Navigate("https://bot.sannysoft.com"),
				chromedp.WaitVisible("body", chromedp.ByQuery),
			)
			if err != nil {
				return fmt.Errorf("failed to navigate: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Press Enter to close the browser...")
			_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')

			logger.Info().Msg("Done.")
			return nil
		},
	}
}

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "open <config|dir>",
		Short:     "Open the config file or the config directory",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"config", "dir"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := loadApp(false)
			if err != nil {
				return err
			}
			if args[0] == "config" {
				return a.OpenConfig()
			}
			return a.OpenConfigDir()
		},
	}
}
