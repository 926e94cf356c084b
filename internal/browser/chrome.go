package browser

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

const (
	defaultLaunchTimeout = 30 * time.Second

	// lambdaProfileRoot is the only writable location in the sandbox
	lambdaProfileRoot = "/tmp"
)

// Chrome launches a fresh chromedp browser per session
type Chrome struct {
	opts        Options
	profileRoot string
	log         zerolog.Logger
}

// NewChrome creates a launcher
func NewChrome(opts Options, log zerolog.Logger) *Chrome {
	if opts.LaunchTimeout <= 0 {
		opts.LaunchTimeout = defaultLaunchTimeout
	}
	return &Chrome{
		opts:        opts,
		profileRoot: lambdaProfileRoot,
		log:         log.With().Str("component", "browser").Logger(),
	}
}

// execOptions returns the allocator options for one local launch. The lambda
// profile gets its own user data directory, returned so the session can
// remove it; otherwise chromedp creates and removes a temporary one itself.
func (c *Chrome) execOptions() ([]chromedp.ExecAllocatorOption, string, error) {
	opts := AllocatorOptions(c.opts)
	if c.opts.Profile != ProfileLambda {
		return opts, "", nil
	}

	dir, err := os.MkdirTemp(c.profileRoot, "chromium-")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create profile dir: %w", err)
	}
	return append(opts, chromedp.UserDataDir(dir)), dir, nil
}

// Launch starts a browser and waits until its first tab is attached.
// Every session is isolated: local launches get their own profile, remote
// ones their own browser context. The browser is torn down when ctx is
// cancelled or Close is called.
func (c *Chrome) Launch(ctx context.Context) (Session, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
		profileDir  string
	)
	if c.opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, c.opts.RemoteURL)
	} else {
		opts, dir, err := c.execOptions()
		if err != nil {
			return nil, err
		}
		profileDir = dir
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(c.logf(zerolog.DebugLevel)),
		chromedp.WithErrorf(c.logf(zerolog.DebugLevel)),
	)

	sess := &chromeSession{
		ctx:         browserCtx,
		cancel:      browserCancel,
		rootCancel:  func() {},
		allocCancel: allocCancel,
		profileDir:  profileDir,
		log:         c.log,
		timeout:     c.opts.LaunchTimeout,
	}

	// The first Run allocates the browser; it must use the long-lived
	// context, so the launch budget is enforced from outside.
	if err := within(c.opts.LaunchTimeout, func() error { return chromedp.Run(browserCtx) }); err != nil {
		sess.release()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	if c.opts.RemoteURL != "" {
		// A shared remote browser keeps cookies in its default context, so
		// each session works in a throwaway one.
		isolatedCtx, isolatedCancel := chromedp.NewContext(browserCtx, chromedp.WithNewBrowserContext())
		sess.ctx = isolatedCtx
		sess.cancel = isolatedCancel
		sess.rootCancel = browserCancel
		if err := within(c.opts.LaunchTimeout, func() error { return chromedp.Run(isolatedCtx) }); err != nil {
			sess.release()
			return nil, fmt.Errorf("failed to create browser context: %w", err)
		}
	}

	return sess, nil
}

func (c *Chrome) logf(level zerolog.Level) func(string, ...any) {
	return func(format string, args ...any) {
		c.log.WithLevel(level).Msgf(format, args...)
	}
}

// within runs fn and gives up after d. fn keeps running in the background
// until the caller cancels whatever it is blocked on.
func within(d time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("timed out after %s: %w", d, context.DeadlineExceeded)
	}
}

type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	rootCancel  context.CancelFunc // remote only: the connection context
	allocCancel context.CancelFunc
	profileDir  string // lambda only, removed on close
	log         zerolog.Logger
	timeout     time.Duration

	closeOnce sync.Once
	closeErr  error
}

func (s *chromeSession) PageCount(ctx context.Context) (int, error) {
	runCtx, done := derive(s.ctx, ctx)
	defer done()

	targets, err := chromedp.Targets(runCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to list targets: %w", err)
	}

	n := 0
	for _, t := range targets {
		if t.Type == "page" {
			n++
		}
	}
	return n, nil
}

func (s *chromeSession) NewPage(ctx context.Context) (Page, error) {
	pageCtx, cancel := chromedp.NewContext(s.ctx)

	p := &chromePage{
		ctx:    pageCtx,
		cancel: cancel,
		log:    s.log,
		idle:   make(chan struct{}),
	}
	chromedp.ListenTarget(pageCtx, p.onEvent)

	timeout := s.timeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if err := within(timeout, func() error { return chromedp.Run(pageCtx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	return p, nil
}

// Close shuts the browser down, or disposes the browser context for remote
// sessions, and releases the allocator (killing the process for local
// launches). Safe to call more than once.
func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.ctx)
		s.release()
	})
	return s.closeErr
}

// release cancels every context and removes the profile directory. The
// allocator must be gone before the directory is removed.
func (s *chromeSession) release() {
	s.cancel()
	s.rootCancel()
	s.allocCancel()
	if s.profileDir != "" {
		if err := os.RemoveAll(s.profileDir); err != nil {
			s.log.Warn().Err(err).Str("dir", s.profileDir).Msg("Failed to remove browser profile")
		}
	}
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	mu         sync.Mutex
	blocked    map[network.ResourceType]bool
	mainFrame  cdp.FrameID
	loaderID   cdp.LoaderID
	domLoaded  bool
	idle       chan struct{}
	idleClosed bool

	closeOnce sync.Once
	closeErr  error
}

// derive returns a context that carries the chromedp target of base but
// stops when caller is done or its deadline passes.
func derive(base, caller context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(base)
	if dl, ok := caller.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, dl)
		prev := cancel
		cancel = func() { cancelDeadline(); prev() }
	}
	stop := context.AfterFunc(caller, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, done := derive(p.ctx, ctx)
	defer done()
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Prepare(ctx context.Context, s PageSettings) error {
	p.mu.Lock()
	p.blocked = make(map[network.ResourceType]bool, len(s.BlockedTypes))
	for _, rt := range s.BlockedTypes {
		p.blocked[rt] = true
	}
	p.mu.Unlock()

	tasks := chromedp.Tasks{
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
	}
	if s.DisableCache {
		tasks = append(tasks, network.SetCacheDisabled(true))
	}
	if s.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(s.UserAgent))
	}
	if len(s.BlockedTypes) > 0 {
		patterns := make([]*fetch.RequestPattern, 0, len(s.BlockedTypes))
		for _, rt := range s.BlockedTypes {
			patterns = append(patterns, &fetch.RequestPattern{
				URLPattern:   "*",
				ResourceType: rt,
				RequestStage: fetch.RequestStageRequest,
			})
		}
		tasks = append(tasks, fetch.Enable().WithPatterns(patterns))
	}
	if len(s.Cookies) > 0 {
		tasks = append(tasks, setCookies(s.Cookies))
	}

	if err := p.run(ctx, tasks); err != nil {
		return fmt.Errorf("failed to prepare page: %w", err)
	}
	return nil
}

func setCookies(cookies []*network.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly).
				WithSameSite(c.SameSite).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	})
}

func (p *chromePage) Navigate(ctx context.Context, url string) (int, error) {
	p.resetIdle()

	runCtx, done := derive(p.ctx, ctx)
	defer done()

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		return 0, err
	}

	status := 0
	if resp != nil {
		status = int(resp.Status)
	}
	if status != 0 && (status < 200 || status >= 300) {
		return status, nil
	}

	select {
	case <-p.idleCh():
		return status, nil
	case <-runCtx.Done():
		return status, fmt.Errorf("network never went idle: %w", runCtx.Err())
	}
}

func (p *chromePage) WaitFor(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (p *chromePage) Evaluate(ctx context.Context, script string, out any) error {
	return p.run(ctx, chromedp.Evaluate(script, out))
}

// Close closes the tab. Safe to call more than once.
func (p *chromePage) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = chromedp.Cancel(p.ctx)
		p.cancel()
	})
	return p.closeErr
}

func (p *chromePage) resetIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mainFrame = ""
	p.loaderID = ""
	p.domLoaded = false
	p.idle = make(chan struct{})
	p.idleClosed = false
}

func (p *chromePage) idleCh() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idle
}

func (p *chromePage) onEvent(ev any) {
	switch ev := ev.(type) {
	case *page.EventFrameNavigated:
		if ev.Frame == nil || ev.Frame.ParentID != "" {
			return
		}
		p.mu.Lock()
		p.mainFrame = ev.Frame.ID
		p.loaderID = ev.Frame.LoaderID
		p.domLoaded = false
		p.mu.Unlock()

	case *page.EventLifecycleEvent:
		p.mu.Lock()
		defer p.mu.Unlock()
		if ev.FrameID != p.mainFrame || ev.LoaderID != p.loaderID {
			return
		}
		switch ev.Name {
		case "DOMContentLoaded":
			p.domLoaded = true
		case "networkIdle":
			if p.domLoaded && !p.idleClosed {
				close(p.idle)
				p.idleClosed = true
			}
		}

	case *fetch.EventRequestPaused:
		// Listener callbacks must not block, so answer from a goroutine
		go p.answerPaused(ev)
	}
}

func (p *chromePage) answerPaused(ev *fetch.EventRequestPaused) {
	c := chromedp.FromContext(p.ctx)
	if c == nil || c.Target == nil {
		return
	}
	execCtx := cdp.WithExecutor(p.ctx, c.Target)

	if err := p.interceptAction(ev).Do(execCtx); err != nil && p.ctx.Err() == nil {
		url := ""
		if ev.Request != nil {
			url = ev.Request.URL
		}
		p.log.Debug().Err(err).Str("url", url).Msg("failed to answer intercepted request")
	}
}

// interceptAction fails a paused request whose resource type is blocked
// and lets every other one through.
func (p *chromePage) interceptAction(ev *fetch.EventRequestPaused) chromedp.Action {
	p.mu.Lock()
	blocked := p.blocked[ev.ResourceType]
	p.mu.Unlock()

	if blocked {
		return fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient)
	}
	return fetch.ContinueRequest(ev.RequestID)
}
