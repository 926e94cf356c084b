package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/ibeckermayer/ugc2notion/internal/config"
)

// Instagram cookies that identify a logged in session
const (
	SessionCookie = "sessionid"
	CSRFCookie    = "csrftoken"
)

// ErrExpired is returned when the stored session is past its expiry
var ErrExpired = errors.New("stored instagram session has expired")

// CookieStore handles storage of Instagram session cookies
type CookieStore struct {
	path string
	now  func() time.Time
}

// StoredCookies represents the persisted cookie data
type StoredCookies struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// NewCookieStore creates a cookie store at the given path
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path, now: time.Now}
}

// DefaultCookieStorePath returns the default path for cookie storage
func DefaultCookieStorePath() (string, error) {
	configDir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cookies.json"), nil
}

// Path returns where cookies are stored
func (cs *CookieStore) Path() string {
	return cs.path
}

// Save persists cookies to disk
// TODO: Encrypt cookies at rest
func (cs *CookieStore) Save(cookies []*network.Cookie) error {
	dir := filepath.Dir(cs.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	// Session cookies (Expires <= 0) never bound the expiry
	var earliestExpiry time.Time
	for _, c := range cookies {
		if (c.Name == SessionCookie || c.Name == CSRFCookie) && c.Expires > 0 {
			exp := time.Unix(int64(c.Expires), 0)
			if earliestExpiry.IsZero() || exp.Before(earliestExpiry) {
				earliestExpiry = exp
			}
		}
	}

	stored := StoredCookies{
		Cookies:    cookies,
		CapturedAt: cs.now(),
		ExpiresAt:  earliestExpiry,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cs.path, data, 0600)
}

// Load retrieves cookies from disk
func (cs *CookieStore) Load() (*StoredCookies, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		return nil, err
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", cs.path, err)
	}

	return &stored, nil
}

// IsValid checks if stored cookies are present, unexpired and carry a session
func (cs *CookieStore) IsValid() bool {
	stored, err := cs.Load()
	if err != nil {
		return false
	}
	if cs.expired(stored) {
		return false
	}

	for _, c := range stored.Cookies {
		if c.Name == SessionCookie && c.Value != "" {
			return true
		}
	}
	return false
}

func (cs *CookieStore) expired(stored *StoredCookies) bool {
	return !stored.ExpiresAt.IsZero() && cs.now().After(stored.ExpiresAt)
}

// Clear removes stored cookies
func (cs *CookieStore) Clear() error {
	err := os.Remove(cs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Cookies returns only the instagram.com cookies for injection into a page
func (cs *CookieStore) Cookies() ([]*network.Cookie, error) {
	stored, err := cs.Load()
	if err != nil {
		return nil, err
	}
	if cs.expired(stored) {
		return nil, ErrExpired
	}

	var igCookies []*network.Cookie
	for _, c := range stored.Cookies {
		if isInstagramDomain(c.Domain) {
			igCookies = append(igCookies, c)
		}
	}

	return igCookies, nil
}

func isInstagramDomain(domain string) bool {
	d := strings.TrimPrefix(domain, ".")
	return d == "instagram.com" || strings.HasSuffix(d, ".instagram.com")
}
