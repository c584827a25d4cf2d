// Package crawler contains the shared crawl-orchestration engine: the
// pagination controller, deduplicator and coordinator that every portal run
// is built from. Portal-specific markup knowledge stays behind the Strategy
// interface in internal/portals.
package crawler

import (
	"context"

	"github.com/leadharvest/scrape/internal/session"
	"github.com/leadharvest/scrape/pkg/models"
)

// Scope is one unit of outer iteration for a portal: a city, a search term
// or a category. Inner pagination is exhausted before the next scope starts.
type Scope struct {
	// Label names the scope in logs.
	Label string
	// Value is the portal-specific handle (slug, query term, category path).
	Value string
}

// PageOutcome is what a strategy extracted from one result page.
type PageOutcome struct {
	Items []models.RawItem
	// HasNext reports whether the page carried a "next" affordance (link,
	// cursor or a full card count). False ends the scope.
	HasNext bool
}

// Fetcher is the guarded fetch the coordinator hands to strategies: it runs
// the pacing delay, the rate-limit retrier and the challenge waiter around
// one session navigation. Strategies never touch those collaborators
// directly.
type Fetcher func(ctx context.Context, req models.PageRequest) (models.FetchResult, error)

// Strategy bundles a portal's scope enumerator, pagination controller inputs
// and extractor. Extraction must be side-effect-free with respect to crawl
// state; item dedup and normalization belong to the engine.
type Strategy interface {
	// Name is the portal identifier stamped on emitted records.
	Name() string

	// SessionKind selects the transport this portal requires.
	SessionKind() session.Kind

	// Scopes enumerates the outer iteration for this run.
	Scopes(ctx context.Context, cfg models.CrawlConfig) ([]Scope, error)

	// PageRequest builds the request for the given page of a scope.
	// Pages are 1-based.
	PageRequest(cfg models.CrawlConfig, scope Scope, page int) models.PageRequest

	// ExtractPage pulls candidate items out of one fetched page.
	ExtractPage(res models.FetchResult, scope Scope, cfg models.CrawlConfig) (PageOutcome, error)

	// MaxPages is the per-scope page ceiling guarding against broken next
	// detection. 0 means no ceiling.
	MaxPages() int
}

// Warmer is implemented by strategies whose portal needs a homepage visit
// (challenge gate, cookie banner) before result pages work.
type Warmer interface {
	Warmup(ctx context.Context, sess session.Session, fetch Fetcher, cfg models.CrawlConfig) error
}

// ScopeLister is implemented by strategies that discover scopes from the
// portal itself (e.g. a region's city list) instead of configuration.
type ScopeLister interface {
	ListScopes(ctx context.Context, fetch Fetcher, cfg models.CrawlConfig) ([]Scope, error)
}

// PageFetcher overrides the default request-based page fetch for portals
// that need in-page interaction to reach a result set (autocomplete search).
// The guarded fetch must still be used for plain navigations.
type PageFetcher interface {
	FetchPage(ctx context.Context, sess session.Session, fetch Fetcher, cfg models.CrawlConfig, scope Scope, page int) (models.FetchResult, error)
}

// DetailExtractor is implemented by strategies whose items reference a
// detail page. The coordinator performs the detail fetch through the same
// guarded path and hands the body back for a second extraction pass.
type DetailExtractor interface {
	ExtractDetail(res models.FetchResult, item *models.RawItem) error
}

// DetailFetcher overrides the default detail-page fetch for portals where
// reaching an item requires interaction rather than a URL.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, sess session.Session, fetch Fetcher, item models.RawItem) (models.FetchResult, error)
}

// Keyer customizes the canonical dedup key for portals whose legal names
// are unreliable (slug or URL keyed portals).
type Keyer interface {
	DedupKey(item models.RawItem) string
}
