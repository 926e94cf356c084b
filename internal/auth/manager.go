package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/ibeckermayer/ugc2notion/internal/browser"
)

const (
	loginURL     = "https://www.instagram.com/accounts/login/"
	loginTimeout = 5 * time.Minute
	pollInterval = 2 * time.Second
)

// Manager handles the Instagram login flow
type Manager struct {
	cookieStore *CookieStore
	browserOpts browser.Options
	log         zerolog.Logger
}

// NewManager creates a new auth manager. Login always runs headful,
// whatever opts.Headless says.
func NewManager(cookieStore *CookieStore, opts browser.Options, log zerolog.Logger) *Manager {
	opts.Headless = false
	return &Manager{
		cookieStore: cookieStore,
		browserOpts: opts,
		log:         log.With().Str("component", "auth").Logger(),
	}
}

// IsAuthenticated checks if we have valid stored credentials
func (m *Manager) IsAuthenticated() bool {
	return m.cookieStore.IsValid()
}

// Login opens a browser window for the user to log in to Instagram and
// saves the session cookies once the login completes.
func (m *Manager) Login(ctx context.Context) error {
	opts := append(browser.AllocatorOptions(m.browserOpts),
		chromedp.Flag("start-maximized", true),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(loginURL)); err != nil {
		return fmt.Errorf("failed to navigate to login page: %w", err)
	}
	m.log.Info().Msg("Waiting for Instagram login in the browser window")

	if err := m.waitForLogin(browserCtx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cookies, err := extractCookies(browserCtx)
	if err != nil {
		return fmt.Errorf("failed to extract cookies: %w", err)
	}

	if err := m.cookieStore.Save(cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}

	m.log.Info().Str("path", m.cookieStore.Path()).Int("cookies", len(cookies)).Msg("Saved Instagram session")
	return nil
}

// waitForLogin polls until the browser has left the login page and holds a
// session cookie.
func (m *Manager) waitForLogin(ctx context.Context) error {
	timeout := time.After(loginTimeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return fmt.Errorf("login timeout exceeded")
		case <-ticker.C:
			var url string
			if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
				continue
			}
			if strings.Contains(url, "/accounts/login") {
				continue
			}

			cookies, err := extractCookies(ctx)
			if err != nil {
				continue
			}
			if hasSession(cookies) {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func hasSession(cookies []*network.Cookie) bool {
	for _, c := range cookies {
		if c.Name == SessionCookie && c.Value != "" && isInstagramDomain(c.Domain) {
			return true
		}
	}
	return false
}

// extractCookies gets all cookies from the browser
func extractCookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)

	return cookies, err
}

// Logout clears stored credentials
func (m *Manager) Logout() error {
	return m.cookieStore.Clear()
}
