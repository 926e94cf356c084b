// Package browser provides the chromedp-backed browser sessions used to
// render post pages, with anti-bot-detection launch options.
package browser

import (
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultUserAgent is a realistic Chrome user agent
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Launch profiles
const (
	// ProfileDesktop is a normal desktop-sized stealth browser
	ProfileDesktop = "desktop"
	// ProfileLambda runs Chrome inside a constrained ephemeral sandbox
	// (single process, no zygote, writable state under /tmp)
	ProfileLambda = "lambda"
)

// ParseProfile validates a launch profile name; empty means desktop
func ParseProfile(s string) (string, error) {
	switch s {
	case ProfileDesktop, ProfileLambda:
		return s, nil
	case "":
		return ProfileDesktop, nil
	default:
		return "", fmt.Errorf("unknown browser profile %q", s)
	}
}

// Options configures how browser sessions are started
type Options struct {
	Headless      bool
	ExecPath      string
	RemoteURL     string // connect to an existing DevTools endpoint instead of launching
	UserAgent     string
	Profile       string
	LaunchTimeout time.Duration
}

// lambdaFlags keeps Chrome alive in sandboxes without /dev/shm, GPU or a
// writable home directory.
var lambdaFlags = []string{
	"disable-dev-shm-usage",
	"single-process",
	"no-sandbox",
	"disable-setuid-sandbox",
	"no-zygote",
	"disable-audio-output",
	"disable-background-timer-throttling",
	"disable-background-networking",
	"disable-breakpad",
	"disable-component-extensions-with-background-pages",
	"disable-notifications",
	"disable-sync",
	"in-process-gpu",
}

// AllocatorOptions returns chromedp allocator options with anti-bot-detection measures.
// All browser instances should use this to ensure consistent stealth configuration.
func AllocatorOptions(o Options) []chromedp.ExecAllocatorOption {
	ua := o.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),

		// Prevent navigator.webdriver = true detection
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		chromedp.UserAgent(ua),

		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	switch o.Profile {
	case ProfileLambda:
		for _, f := range lambdaFlags {
			opts = append(opts, chromedp.Flag(f, true))
		}
		opts = append(opts,
			chromedp.Flag("use-gl", "swiftshader"),
			chromedp.WindowSize(507, 384),
			chromedp.Env("HOME=/tmp"),
		)
	default:
		opts = append(opts, chromedp.WindowSize(1920, 1080))
	}

	if o.Headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}

	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}

	return opts
}
