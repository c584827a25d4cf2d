package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/leadharvest/scrape/pkg/models"
)

// BrowserSession drives a real Chrome over a persistent per-portal profile.
// The profile directory carries cookies and device trust across runs, which
// is what lets a manually-solved challenge stay solved.
type BrowserSession struct {
	portal      string
	navTimeout  time.Duration
	allocCancel context.CancelFunc
	ctxCancel   context.CancelFunc
	ctx         context.Context
}

func openBrowser(ctx context.Context, portal string, opts Options) (*BrowserSession, error) {
	dir, err := profileDir(opts.ProfileBaseDir, portal)
	if err != nil {
		return nil, err
	}

	chromePath := opts.ChromePath
	if chromePath == "" {
		chromePath = FindChrome()
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserDataDir(dir),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("lang", "es-ES"),
		chromedp.Flag("window-size", "1366,768"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("log-level", "3"),
	}
	if chromePath != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(chromePath)}, allocOpts...)
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, ctxCancel := chromedp.NewContext(allocCtx)

	s := &BrowserSession{
		portal:      portal,
		navTimeout:  opts.NavTimeout,
		allocCancel: allocCancel,
		ctxCancel:   ctxCancel,
		ctx:         browserCtx,
	}

	// Start the browser and pin the fingerprint to a Spanish desktop user.
	err = chromedp.Run(browserCtx,
		emulation.SetTimezoneOverride("Europe/Madrid"),
		emulation.SetLocaleOverride().WithLocale("es-ES"),
		network.Enable(),
		network.SetExtraHTTPHeaders(map[string]interface{}{
			"Accept-Language": "es-ES,es;q=0.9,en;q=0.8",
		}),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser for %s: %w", portal, err)
	}

	log.Debug().
		Str("portal", portal).
		Str("profile", dir).
		Bool("headless", opts.Headless).
		Msg("Browser session opened")
	return s, nil
}

// Navigate loads req.URL and returns the rendered page. Only GET navigation
// is supported in the browser path; form portals use the client session.
func (s *BrowserSession) Navigate(ctx context.Context, req models.PageRequest) (models.FetchResult, error) {
	navCtx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()
	go func() {
		// Propagate caller cancellation into the chromedp context.
		select {
		case <-ctx.Done():
			cancel()
		case <-navCtx.Done():
		}
	}()

	// The listener runs on chromedp's event goroutine, so the status hand-off
	// must be atomic.
	var status atomic.Int64
	chromedp.ListenTarget(navCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok && resp.Type == network.ResourceTypeDocument {
			status.Store(resp.Response.Status)
		}
	})

	var html, finalURL string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(req.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return models.FetchResult{}, fmt.Errorf("navigation failed: %w", err)
	}

	return models.FetchResult{
		StatusCode: int(status.Load()),
		Body:       html,
		FinalURL:   finalURL,
	}, nil
}

// Content re-reads the current document without navigating.
func (s *BrowserSession) Content(ctx context.Context) (string, error) {
	runCtx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

// CurrentURL reports the browser's current location.
func (s *BrowserSession) CurrentURL(ctx context.Context) (string, error) {
	runCtx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()

	var loc string
	if err := chromedp.Run(runCtx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Text returns the inner text of the first node matching sel, or "" when
// the selector matches nothing.
func (s *BrowserSession) Text(ctx context.Context, sel string) (string, error) {
	runCtx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()

	var out string
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); return el ? el.innerText : ""; })()`, sel)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &out)); err != nil {
		return "", err
	}
	return out, nil
}

// TextAll returns the inner text of every node matching sel.
func (s *BrowserSession) TextAll(ctx context.Context, sel string) ([]string, error) {
	runCtx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()

	var out []string
	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(el => el.innerText)`, sel)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &out)); err != nil {
		return nil, err
	}
	return out, nil
}

// Click clicks the first node matching sel.
func (s *BrowserSession) Click(ctx context.Context, sel string) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Click(sel, chromedp.ByQuery))
}

// Type focuses sel, clears it and types text with a small per-key delay so
// autocomplete widgets fire their suggestion queries.
func (s *BrowserSession) Type(ctx context.Context, sel, text string) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()

	actions := []chromedp.Action{
		chromedp.Click(sel, chromedp.ByQuery),
		chromedp.SetValue(sel, "", chromedp.ByQuery),
	}
	for _, r := range text {
		actions = append(actions,
			chromedp.SendKeys(sel, string(r), chromedp.ByQuery),
			chromedp.Sleep(50*time.Millisecond),
		)
	}
	return chromedp.Run(runCtx, actions...)
}

// Sleep pauses inside the browser context, letting in-page scripts settle.
func (s *BrowserSession) Sleep(ctx context.Context, d time.Duration) error {
	runCtx, cancel := context.WithTimeout(s.ctx, d+s.navTimeout)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Sleep(d))
}

// Close shuts the browser down. The profile directory stays behind; that is
// the persistence the whole design leans on.
func (s *BrowserSession) Close() error {
	s.ctxCancel()
	s.allocCancel()
	log.Debug().Str("portal", s.portal).Msg("Browser session closed")
	return nil
}
