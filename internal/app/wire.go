package app

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/ibeckermayer/ugc2notion/internal/auth"
	"github.com/ibeckermayer/ugc2notion/internal/browser"
	"github.com/ibeckermayer/ugc2notion/internal/config"
	"github.com/ibeckermayer/ugc2notion/internal/notion"
	"github.com/ibeckermayer/ugc2notion/internal/publisher"
	"github.com/ibeckermayer/ugc2notion/internal/scraper"
)

type pipeline struct {
	extractor   Extractor
	publisher   Publisher
	cookies     *auth.CookieStore
	browserOpts browser.Options
}

// NewFromConfig builds the full pipeline described by cfg.
func NewFromConfig(cfg *config.Config, log zerolog.Logger) (*App, error) {
	p, err := buildPipeline(cfg, log)
	if err != nil {
		return nil, err
	}

	cookies := p.cookies
	if cookies == nil {
		path, err := cookiePath(cfg)
		if err != nil {
			return nil, err
		}
		cookies = auth.NewCookieStore(path)
	}
	authManager := auth.NewManager(cookies, p.browserOpts, log)

	return New(cfg, authManager, p.extractor, p.publisher, log), nil
}

func cookiePath(cfg *config.Config) (string, error) {
	if cfg.Browser.CookiesFile != "" {
		return cfg.Browser.CookiesFile, nil
	}
	return auth.DefaultCookieStorePath()
}

func browserOptions(cfg *config.Config) browser.Options {
	return browser.Options{
		Headless:      cfg.Browser.Headless,
		ExecPath:      cfg.Browser.ExecPath,
		RemoteURL:     cfg.Browser.RemoteURL,
		UserAgent:     cfg.Browser.UserAgent,
		Profile:       cfg.Browser.Profile,
		LaunchTimeout: cfg.Browser.NavTimeout.Duration,
	}
}

func buildPipeline(cfg *config.Config, log zerolog.Logger) (*pipeline, error) {
	strategy, err := scraper.ParseImageStrategy(cfg.Browser.ImageStrategy)
	if err != nil {
		return nil, err
	}
	blocked, err := browser.ParseResourceTypes(cfg.Browser.BlockResources)
	if err != nil {
		return nil, fmt.Errorf("invalid browser.block_resources: %w", err)
	}
	mediaStrategy, err := publisher.ParseMediaStrategy(cfg.Notion.MediaStrategy)
	if err != nil {
		return nil, err
	}

	bopts := browserOptions(cfg)
	launcher := browser.NewChrome(bopts, log)

	sopts := scraper.Options{
		NavTimeout:     cfg.Browser.NavTimeout.Duration,
		LaunchAttempts: cfg.Browser.LaunchAttempts,
		Strategy:       strategy,
		UserAgent:      cfg.Browser.UserAgent,
		BlockedTypes:   blocked,
	}

	// Only inject cookies when a login has been saved or a file was named
	var cookies *auth.CookieStore
	path, err := cookiePath(cfg)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); cfg.Browser.CookiesFile != "" || !errors.Is(statErr, os.ErrNotExist) {
		cookies = auth.NewCookieStore(path)
		sopts.Cookies = cookies
	}

	httpClient := &http.Client{Timeout: cfg.Notion.RequestTimeout.Duration}
	store := notion.New(notion.Options{
		APIKey:         cfg.Notion.APIKey,
		DatabaseID:     cfg.Notion.DatabaseID,
		LinkProperties: cfg.Notion.LinkProperties,
		ContentLimit:   cfg.Notion.ContentLimit,
		HTTPClient:     httpClient,
	}, log)

	ua := cfg.Browser.UserAgent
	if ua == "" {
		ua = browser.DefaultUserAgent
	}
	downloader := publisher.NewHTTPDownloader(httpClient, ua, cfg.Notion.MaxMediaBytes)

	return &pipeline{
		extractor:   scraper.New(launcher, sopts, log),
		publisher:   publisher.New(store, downloader, mediaStrategy, log),
		cookies:     cookies,
		browserOpts: bopts,
	}, nil
}
