// Package playwright implements the most expensive tier (C7, cost=25): a
// full browser. The concrete browser automation engine is deliberately out
// of scope for this system (it is the one collaborator treated purely as
// an adapter) — Browser is the three-method boundary a real driver (e.g. a
// CDP or Playwright-protocol client) implements; this package supplies the
// tier's own concerns: the warm-page pool ceiling, per-domain circuit
// breaking, session injection from C6, and running C1 over the rendered
// DOM.
package playwright

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kailas-cloud/fetchcascade/internal/adapter"
	domainfetch "github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
	domainsession "github.com/kailas-cloud/fetchcascade/internal/domain/session"
	"github.com/kailas-cloud/fetchcascade/internal/extract"
)

// RenderOptions are the Playwright-specific hints passed to the browser driver.
type RenderOptions struct {
	WaitForSelector string
	ScrollToLoad    bool
	CaptureNetwork  bool
	CaptureConsole  bool
	Cookies         []domainsession.Cookie
	LocalStorage    map[string]string
	SessionStorage  map[string]string
}

// RenderedPage is what the browser driver hands back after a navigation.
type RenderedPage struct {
	FinalURL string
	HTML     string
	Network  []adapter.NetworkEntry
	Console  []string
}

// Browser is the three-method boundary to a concrete browser automation
// engine. Navigate performs one page load with the given options; Close
// releases the underlying page/context back to the driver's own pool.
type Browser interface {
	Navigate(ctx context.Context, url string, opts RenderOptions) (RenderedPage, error)
	InjectSession(ctx context.Context, snapshot domainsession.Snapshot) error
	Close(ctx context.Context) error
}

// BrowserFactory acquires one warm Browser instance for a single Fetch
// call. Implementations typically draw from a pre-warmed pool rather than
// launching a new browser process per request.
type BrowserFactory func(ctx context.Context) (Browser, error)

// SessionRepo is the subset of the session store (C6) this adapter uses to
// inject a cookie/storage snapshot when the request carries a profile.
type SessionRepo interface {
	Load(domain, profile string) (domainsession.Snapshot, bool, error)
}

// Adapter is the playwright-tier render adapter.
type Adapter struct {
	newBrowser  BrowserFactory
	sessions    SessionRepo
	state       *adapter.State
	maxPages    int
	pageTickets chan struct{}
}

// New creates a playwright Adapter. maxConcurrentPages enforces §5's
// backpressure ceiling: beyond it, new Fetch calls block on the semaphore
// until a page frees up, counting against the caller's own deadline.
func New(newBrowser BrowserFactory, sessions SessionRepo, maxConcurrentPages int) *Adapter {
	if maxConcurrentPages <= 0 {
		maxConcurrentPages = 4
	}
	return &Adapter{
		newBrowser:  newBrowser,
		sessions:    sessions,
		state:       adapter.NewState(string(domainfetch.TierPlaywright)),
		maxPages:    maxConcurrentPages,
		pageTickets: make(chan struct{}, maxConcurrentPages),
	}
}

// Tier reports this adapter's tier.
func (a *Adapter) Tier() domainfetch.Tier { return domainfetch.TierPlaywright }

// Fetch acquires a page ticket (queueing if the pool is saturated),
// injects the request's session profile if any, navigates under the
// domain's circuit breaker, and runs C1 over the rendered DOM.
func (a *Adapter) Fetch(ctx context.Context, rawURL string, opts adapter.Options, deadline time.Time) (adapter.Output, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return adapter.Output{}, adapter.NewError(domainfetch.ReasonUnknown, err)
	}

	ctx, cancel := adapter.WithDeadline(ctx, deadline)
	defer cancel()

	select {
	case a.pageTickets <- struct{}{}:
		defer func() { <-a.pageTickets }()
	case <-ctx.Done():
		return adapter.Output{}, adapter.NewError(domainfetch.ReasonTimeout, ctx.Err())
	}

	breaker := a.state.BreakerFor(u.Hostname())
	result, err := breaker.Execute(func() (any, error) {
		return a.render(ctx, rawURL, opts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return adapter.Output{}, adapter.NewError(domainfetch.ReasonBotChallenge, err)
		}
		var adapterErr *adapter.Error
		if errors.As(err, &adapterErr) {
			return adapter.Output{}, adapterErr
		}
		return adapter.Output{}, adapter.NewError(domainfetch.ReasonUnknown, err)
	}
	return result.(adapter.Output), nil
}

func (a *Adapter) render(ctx context.Context, rawURL string, opts adapter.Options) (adapter.Output, error) {
	browser, err := a.newBrowser(ctx)
	if err != nil {
		return adapter.Output{}, adapter.NewError(domainfetch.ReasonNetwork, err)
	}
	defer browser.Close(ctx)

	renderOpts := RenderOptions{
		WaitForSelector: opts.WaitHints.WaitForSelector,
		ScrollToLoad:    opts.WaitHints.ScrollToLoad,
		CaptureNetwork:  opts.WaitHints.CaptureNetwork,
		CaptureConsole:  opts.WaitHints.CaptureConsole,
	}

	if opts.SessionProfile != "" && a.sessions != nil {
		u, _ := url.Parse(rawURL)
		if snap, ok, err := a.sessions.Load(u.Hostname(), opts.SessionProfile); err == nil && ok {
			renderOpts.Cookies = snap.Cookies()
			renderOpts.LocalStorage = snap.LocalStorage()
			renderOpts.SessionStorage = snap.SessionStorage()
			if err := browser.InjectSession(ctx, snap); err != nil {
				return adapter.Output{}, adapter.NewError(domainfetch.ReasonUnknown, err)
			}
		}
	}

	page, err := browser.Navigate(ctx, rawURL, renderOpts)
	if err != nil {
		return adapter.Output{}, classifyNavigateError(err)
	}

	extracted, err := extract.Extract(page.HTML)
	if err != nil {
		return adapter.Output{}, adapter.NewError(domainfetch.ReasonSelector, err)
	}

	return adapter.Output{
		FinalURL:   page.FinalURL,
		Title:      extracted.Title,
		HTML:       page.HTML,
		Text:       extracted.Text,
		Markdown:   extracted.Markdown,
		Tables:     extracted.Tables,
		Structured: extracted.Structured,
		Network:    page.Network,
		Console:    page.Console,
	}, nil
}

func classifyNavigateError(err error) error {
	var adapterErr *adapter.Error
	if errors.As(err, &adapterErr) {
		return adapterErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return adapter.NewError(domainfetch.ReasonTimeout, err)
	}
	return adapter.NewError(domainfetch.ReasonNetwork, err)
}
