package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/chromedp/cdproto/network"
	"github.com/rs/zerolog"

	"github.com/ibeckermayer/ugc2notion/internal/browser"
	"github.com/ibeckermayer/ugc2notion/internal/errs"
	"github.com/ibeckermayer/ugc2notion/internal/retry"
	"github.com/ibeckermayer/ugc2notion/internal/types"
)

// ImageStrategy selects which media selectors are tried
type ImageStrategy string

const (
	// StrategyCarousel reads every carousel slide, falling back to the primary image
	StrategyCarousel ImageStrategy = "carousel"
	// StrategySingleImage reads only the primary image
	StrategySingleImage ImageStrategy = "singleImage"
)

const (
	DefaultNavTimeout     = 30 * time.Second
	DefaultLaunchAttempts = 3
)

// DefaultBlockedTypes are not needed to read a post and are failed at the
// network layer to save bandwidth and memory.
var DefaultBlockedTypes = []network.ResourceType{
	network.ResourceTypeImage,
	network.ResourceTypeStylesheet,
	network.ResourceTypeFont,
	network.ResourceTypeMedia,
}

// ParseImageStrategy validates a configured strategy name
func ParseImageStrategy(s string) (ImageStrategy, error) {
	switch ImageStrategy(s) {
	case StrategyCarousel, StrategySingleImage:
		return ImageStrategy(s), nil
	case "":
		return StrategyCarousel, nil
	default:
		return "", fmt.Errorf("unknown image strategy %q", s)
	}
}

// CookieSource supplies session cookies injected before navigation
type CookieSource interface {
	Cookies() ([]*network.Cookie, error)
}

// Options tunes extraction
type Options struct {
	// NavTimeout bounds navigation, the content wait and the field read, each
	NavTimeout     time.Duration
	LaunchAttempts int
	Strategy       ImageStrategy
	UserAgent      string
	BlockedTypes   []network.ResourceType
	Cookies        CookieSource // optional
}

// Scraper handles extracting a single post from Instagram
type Scraper struct {
	launcher browser.Launcher
	opts     Options
	script   string
	log      zerolog.Logger
}

// New creates a new scraper. Zero option values take defaults.
func New(launcher browser.Launcher, opts Options, log zerolog.Logger) *Scraper {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = DefaultNavTimeout
	}
	if opts.LaunchAttempts <= 0 {
		opts.LaunchAttempts = DefaultLaunchAttempts
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyCarousel
	}
	if opts.UserAgent == "" {
		opts.UserAgent = browser.DefaultUserAgent
	}
	if opts.BlockedTypes == nil {
		opts.BlockedTypes = DefaultBlockedTypes
	}

	return &Scraper{
		launcher: launcher,
		opts:     opts,
		script:   extractScript(opts.Strategy),
		log:      log.With().Str("component", "scraper").Logger(),
	}
}

// Extract renders targetURL in a fresh browser session and reads the post
// fields. The page and then the session are closed on every return path.
func (s *Scraper) Extract(ctx context.Context, targetURL string) (types.RawExtraction, error) {
	log := s.log.With().Str("url", targetURL).Logger()
	start := time.Now()

	sess, err := s.acquire(ctx, log)
	if err != nil {
		return types.RawExtraction{}, err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close browser session")
		}
	}()

	pageCtx, cancel := context.WithTimeout(ctx, s.opts.NavTimeout)
	pg, err := sess.NewPage(pageCtx)
	cancel()
	if err != nil {
		return types.RawExtraction{}, errs.New(errs.KindSession, "open page", err)
	}
	defer func() {
		if err := pg.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close page")
		}
	}()

	if err := s.prepare(ctx, pg, log); err != nil {
		return types.RawExtraction{}, err
	}

	log.Info().Msg("Navigating")
	if err := s.navigate(ctx, pg, targetURL); err != nil {
		return types.RawExtraction{}, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.opts.NavTimeout)
	err = pg.WaitFor(waitCtx, WaitForContent)
	cancel()
	if err != nil {
		return types.RawExtraction{}, errs.New(errs.KindStructural, "wait for content region", err)
	}

	raw, err := s.readFields(ctx, pg)
	if err != nil {
		return types.RawExtraction{}, err
	}

	log.Info().
		Int("media", len(raw.MediaURLs)).
		Int("caption_len", utf8.RuneCountInString(raw.RawText)).
		Dur("took", time.Since(start)).
		Msg("Extracted post")
	return raw, nil
}

// acquire launches a browser, retrying when the launch fails or the browser
// comes up without any page.
func (s *Scraper) acquire(ctx context.Context, log zerolog.Logger) (browser.Session, error) {
	var sess browser.Session

	err := retry.Do(ctx, s.opts.LaunchAttempts, func(attempt int) error {
		candidate, err := s.launcher.Launch(ctx)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("Browser launch failed")
			return err
		}

		countCtx, cancel := context.WithTimeout(ctx, s.opts.NavTimeout)
		n, err := candidate.PageCount(countCtx)
		cancel()
		if err == nil && n == 0 {
			err = errors.New("browser started without any pages")
		}
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("Discarding unusable browser")
			if cerr := candidate.Close(); cerr != nil {
				log.Warn().Err(cerr).Msg("Failed to close discarded browser")
			}
			return err
		}

		log.Debug().Int("attempt", attempt).Int("pages", n).Msg("Browser launched")
		sess = candidate
		return nil
	})
	if err != nil {
		return nil, errs.New(errs.KindSession, "acquire browser session", err)
	}

	return sess, nil
}

func (s *Scraper) prepare(ctx context.Context, pg browser.Page, log zerolog.Logger) error {
	settings := browser.PageSettings{
		UserAgent:    s.opts.UserAgent,
		DisableCache: true,
		BlockedTypes: s.opts.BlockedTypes,
	}

	if s.opts.Cookies != nil {
		cookies, err := s.opts.Cookies.Cookies()
		if err != nil {
			// Public posts render without a login, so carry on anonymously
			log.Warn().Err(err).Msg("Could not load session cookies")
		} else {
			settings.Cookies = cookies
		}
	}

	prepCtx, cancel := context.WithTimeout(ctx, s.opts.NavTimeout)
	defer cancel()
	if err := pg.Prepare(prepCtx, settings); err != nil {
		return errs.New(errs.KindSession, "prepare page", err)
	}
	return nil
}

func (s *Scraper) navigate(ctx context.Context, pg browser.Page, targetURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavTimeout)
	defer cancel()

	status, err := pg.Navigate(navCtx, targetURL)
	if err != nil {
		return errs.WithStatus(errs.KindNavigation, "navigate", status, err)
	}
	if status != 0 && (status < 200 || status >= 300) {
		return errs.WithStatus(errs.KindNavigation, "navigate", status,
			fmt.Errorf("failed to load page: %s", http.StatusText(status)))
	}
	return nil
}

// readFields runs the extraction script, racing it against the budget so a
// hung evaluation cannot stall the request.
func (s *Scraper) readFields(ctx context.Context, pg browser.Page) (types.RawExtraction, error) {
	evalCtx, cancel := context.WithTimeout(ctx, s.opts.NavTimeout)
	defer cancel()

	type result struct {
		raw rawPost
		err error
	}
	done := make(chan result, 1)
	go func() {
		var rp rawPost
		err := pg.Evaluate(evalCtx, s.script, &rp)
		done <- result{raw: rp, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return types.RawExtraction{}, errs.New(errs.KindStructural, "read post fields", r.err)
		}
		return r.raw.toRaw(), nil
	case <-evalCtx.Done():
		return types.RawExtraction{}, errs.New(errs.KindStructural, "read post fields",
			fmt.Errorf("extraction timed out: %w", evalCtx.Err()))
	}
}
