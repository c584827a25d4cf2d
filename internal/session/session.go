// Package session owns the long-lived browsing identities used to crawl
// portals. One identity exists per portal, persisted on disk across runs so
// manually-solved challenges (cookies, device trust) survive restarts.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/leadharvest/scrape/pkg/models"
)

// Kind selects the transport a portal is crawled with.
type Kind int

const (
	// KindBrowser drives a real Chrome with a persistent profile.
	KindBrowser Kind = iota
	// KindClient uses a plain HTTP client with a persisted cookie jar.
	KindClient
)

// Session is one live browsing identity. It is owned exclusively by the run
// that opened it and must be closed on every exit path.
type Session interface {
	// Navigate performs one page request and returns the resulting content.
	Navigate(ctx context.Context, req models.PageRequest) (models.FetchResult, error)

	// Content re-reads the current page without navigating. Used by the
	// challenge waiter to observe manual resolution.
	Content(ctx context.Context) (string, error)

	// CurrentURL reports the session's current location.
	CurrentURL(ctx context.Context) (string, error)

	// Close releases all resources backing the identity.
	Close() error
}

// Interactive is the optional in-page interaction surface of a browser
// session; portals whose navigation is widget-driven (autocomplete search)
// assert it.
type Interactive interface {
	Session
	Text(ctx context.Context, sel string) (string, error)
	TextAll(ctx context.Context, sel string) ([]string, error)
	Click(ctx context.Context, sel string) error
	Type(ctx context.Context, sel, text string) error
	Sleep(ctx context.Context, d time.Duration) error
}

// Options configures how sessions are opened.
type Options struct {
	ProfileBaseDir string
	Headless       bool
	ChromePath     string
	NavTimeout     time.Duration
	HTTPTimeout    time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

func (o *Options) withDefaults() {
	if o.ProfileBaseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		o.ProfileBaseDir = filepath.Join(home, ".leadharvest")
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = 30 * time.Second
	}
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = 30 * time.Second
	}
	if o.RateLimitRPS <= 0 {
		o.RateLimitRPS = 0.5
	}
	if o.RateLimitBurst <= 0 {
		o.RateLimitBurst = 1
	}
}

// Open creates or resumes the persistent identity for a portal. An open
// failure is fatal for that portal's run.
func Open(ctx context.Context, portal string, kind Kind, opts Options) (Session, error) {
	if portal == "" {
		return nil, fmt.Errorf("portal name is required")
	}
	opts.withDefaults()

	switch kind {
	case KindBrowser:
		return openBrowser(ctx, portal, opts)
	case KindClient:
		return openClient(portal, opts)
	default:
		return nil, fmt.Errorf("unknown session kind %d", kind)
	}
}

// profileDir returns (creating if absent) the per-portal identity directory.
func profileDir(base, portal string) (string, error) {
	dir := filepath.Join(base, "chrome-profile-"+portal)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create profile dir: %w", err)
	}
	return dir, nil
}
