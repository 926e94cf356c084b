package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"

	"github.com/ibeckermayer/ugc2notion/internal/auth"
	"github.com/ibeckermayer/ugc2notion/internal/config"
	"github.com/ibeckermayer/ugc2notion/internal/errs"
	"github.com/ibeckermayer/ugc2notion/internal/normalizer"
	"github.com/ibeckermayer/ugc2notion/internal/types"
)

// Extractor reads a post page
type Extractor interface {
	Extract(ctx context.Context, targetURL string) (types.RawExtraction, error)
}

// Publisher stores a record and its media
type Publisher interface {
	Publish(ctx context.Context, rec types.Record) (types.PublishResult, error)
}

// Result is the outcome of a successful Create
type Result struct {
	Record      types.Record         `json:"record"`
	PageID      string               `json:"page_id"`
	FailedMedia []types.MediaFailure `json:"failed_media"`
}

// App holds the application state.
type App struct {
	mu          sync.RWMutex
	authManager *auth.Manager // immutable after creation, may be nil
	log         zerolog.Logger

	// Mutable fields - use getSnapshot() for concurrent access.
	config    *config.Config
	extractor Extractor
	publisher Publisher
}

// snapshot holds fields that may be replaced by ReloadConfig.
// Use getSnapshot() to obtain a consistent, point-in-time copy.
type snapshot struct {
	config    *config.Config
	extractor Extractor
	publisher Publisher
}

// getSnapshot returns a snapshot of mutable fields under read lock.
func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{
		config:    a.config,
		extractor: a.extractor,
		publisher: a.publisher,
	}
}

// New creates a new App instance.
func New(cfg *config.Config, authManager *auth.Manager, ex Extractor, pub Publisher, log zerolog.Logger) *App {
	return &App{
		config:      cfg,
		authManager: authManager,
		extractor:   ex,
		publisher:   pub,
		log:         log.With().Str("component", "app").Logger(),
	}
}

// ValidateURL checks that raw is an absolute http(s) URL and returns it
// trimmed of surrounding space.
func ValidateURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errs.Validation("post URL is required")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", errs.Validation("invalid post URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errs.Validation("post URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errs.Validation("post URL has no host")
	}

	return trimmed, nil
}

// Capture extracts and normalizes a post without storing it.
func (a *App) Capture(ctx context.Context, postURL string) (types.Record, error) {
	target, err := ValidateURL(postURL)
	if err != nil {
		return types.Record{}, err
	}

	s := a.getSnapshot()
	raw, err := s.extractor.Extract(ctx, target)
	if err != nil {
		return types.Record{}, err
	}

	return normalizer.Normalize(raw, target), nil
}

// Create captures a post and publishes it. A record whose media partly
// failed to attach is still a success; see Result.FailedMedia.
func (a *App) Create(ctx context.Context, postURL string) (Result, error) {
	rec, err := a.Capture(ctx, postURL)
	if err != nil {
		return Result{}, err
	}

	s := a.getSnapshot()
	if s.publisher == nil {
		return Result{}, errs.New(errs.KindPublish, "publish", errors.New("no store configured"))
	}

	res, err := s.publisher.Publish(ctx, rec)
	if err != nil {
		return Result{}, err
	}

	failed := res.FailedMedia
	if failed == nil {
		failed = []types.MediaFailure{}
	}
	return Result{Record: rec, PageID: res.RecordID, FailedMedia: failed}, nil
}

// IsAuthenticated checks if Instagram credentials are stored.
func (a *App) IsAuthenticated() bool {
	return a.authManager != nil && a.authManager.IsAuthenticated()
}

// TriggerLogin starts the Instagram login flow.
func (a *App) TriggerLogin(ctx context.Context) error {
	if a.authManager == nil {
		return fmt.Errorf("login is not available")
	}
	a.log.Info().Msg("Login triggered - opening browser for Instagram authentication")
	if err := a.authManager.Login(ctx); err != nil {
		a.log.Error().Err(err).Msg("Login failed")
		return err
	}
	a.log.Info().Msg("Login successful - cookies saved")
	return nil
}

// TriggerLogout clears stored Instagram credentials.
func (a *App) TriggerLogout() error {
	if a.authManager == nil {
		return nil
	}
	if err := a.authManager.Logout(); err != nil {
		a.log.Error().Err(err).Msg("Logout failed")
		return err
	}
	a.log.Info().Msg("Logout successful - cookies cleared")
	return nil
}

// OpenConfig opens the config file, writing the defaults first if it does
// not exist yet.
func (a *App) OpenConfig() error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := config.Default().Save(); err != nil {
			return fmt.Errorf("failed to write default config: %w", err)
		}
		a.log.Info().Str("path", path).Msg("Created default config")
	}
	return browser.OpenFile(path)
}

// OpenConfigDir opens the directory holding config and cookies.
func (a *App) OpenConfigDir() error {
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	return browser.OpenFile(dir)
}

// ReloadConfig reloads the configuration from path and rebuilds the
// pipeline. In-flight requests finish on the old one.
func (a *App) ReloadConfig(path string) error {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(true); err != nil {
		return err
	}

	p, err := buildPipeline(cfg, a.log)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.config = cfg
	a.extractor = p.extractor
	a.publisher = p.publisher
	a.mu.Unlock()

	a.log.Info().Msg("Configuration reloaded")
	return nil
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	return a.getSnapshot().config
}
