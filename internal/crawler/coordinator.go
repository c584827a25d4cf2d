package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leadharvest/scrape/internal/challenge"
	"github.com/leadharvest/scrape/internal/pacing"
	"github.com/leadharvest/scrape/internal/retry"
	"github.com/leadharvest/scrape/internal/session"
	"github.com/leadharvest/scrape/pkg/models"
)

// Sink receives normalized records as they are accepted.
type Sink interface {
	Emit(rec models.Record) error
}

// Normalizer turns a raw item into a record, rejecting unusable ones.
type Normalizer func(item models.RawItem, portal string) (models.Record, bool)

// SessionFactory opens the session for a portal run. Injectable for tests.
type SessionFactory func(ctx context.Context, portal string, kind session.Kind) (session.Session, error)

// Options wires the coordinator's collaborators.
type Options struct {
	Pacer            pacing.Scheduler
	Waiter           *challenge.Waiter
	Retry            retry.Config
	ChallengeTimeout time.Duration
	OpenSession      SessionFactory
	Normalize        Normalizer
}

// Coordinator composes the session manager, pacing, retrier, challenge
// waiter, deduplicator and normalizer into one sequential portal run. The
// crawl is deliberately single-flow: it shares one browsing identity and
// must stay at a human-plausible request rate.
type Coordinator struct {
	opts  Options
	first bool
}

// New builds a coordinator, filling unset collaborators with defaults.
func New(opts Options) *Coordinator {
	if opts.Pacer == nil {
		opts.Pacer = pacing.NewUniform(0, 0)
	}
	if opts.Waiter == nil {
		opts.Waiter = challenge.NewWaiter(nil)
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.ChallengeTimeout <= 0 {
		opts.ChallengeTimeout = 5 * time.Minute
	}
	if opts.OpenSession == nil {
		opts.OpenSession = func(ctx context.Context, portal string, kind session.Kind) (session.Session, error) {
			return session.Open(ctx, portal, kind, session.Options{})
		}
	}
	return &Coordinator{opts: opts}
}

// Run executes one portal crawl and returns the number of records emitted.
// A session-open failure is fatal; everything else degrades to skipped
// pages, scopes or items. The session is closed on every exit path.
func (c *Coordinator) Run(ctx context.Context, cfg models.CrawlConfig, strat Strategy, sink Sink) (int, error) {
	sess, err := c.opts.OpenSession(ctx, cfg.Portal, strat.SessionKind())
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrSessionOpen, cfg.Portal, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("portal", cfg.Portal).Msg("Error closing session")
		}
	}()

	c.first = true
	fetch := c.guardedFetch(sess, strat.SessionKind())
	dedup := NewDeduplicator()
	emitted := 0

	if w, ok := strat.(Warmer); ok {
		if err := w.Warmup(ctx, sess, fetch, cfg); err != nil {
			if ctx.Err() != nil {
				return emitted, ctx.Err()
			}
			log.Error().Err(err).Str("portal", cfg.Portal).Msg("Portal warmup failed, aborting run")
			return emitted, nil
		}
	}

	scopes, err := c.scopes(ctx, strat, fetch, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return emitted, ctx.Err()
		}
		log.Error().Err(err).Str("portal", cfg.Portal).Msg("Failed to enumerate scopes")
		return emitted, nil
	}

	for _, scope := range scopes {
		if limitReached(cfg, emitted) || ctx.Err() != nil {
			break
		}
		n, err := c.crawlScope(ctx, cfg, strat, sess, fetch, scope, dedup, sink, &emitted)
		if err != nil {
			return emitted, err
		}
		log.Info().
			Str("portal", cfg.Portal).
			Str("scope", scope.Label).
			Int("records", n).
			Msg("Scope finished")
	}

	if ctx.Err() != nil {
		return emitted, ctx.Err()
	}
	return emitted, nil
}

// crawlScope drives one scope's pagination to exhaustion. The returned error
// is only non-nil for fatal conditions (cancelled context, broken sink);
// per-page failures end the scope and are absorbed here.
func (c *Coordinator) crawlScope(
	ctx context.Context,
	cfg models.CrawlConfig,
	strat Strategy,
	sess session.Session,
	fetch Fetcher,
	scope Scope,
	dedup *Deduplicator,
	sink Sink,
	emitted *int,
) (int, error) {
	start := *emitted
	for page := 1; ; page++ {
		if limitReached(cfg, *emitted) {
			return *emitted - start, nil
		}
		if ceiling := strat.MaxPages(); ceiling > 0 && page > ceiling {
			log.Debug().Str("scope", scope.Label).Int("ceiling", ceiling).Msg("Page ceiling reached")
			return *emitted - start, nil
		}

		log.Info().
			Str("portal", cfg.Portal).
			Str("scope", scope.Label).
			Int("page", page).
			Msg("Fetching page")

		res, err := c.fetchPage(ctx, strat, sess, fetch, cfg, scope, page)
		if err != nil {
			if ctx.Err() != nil {
				return *emitted - start, ctx.Err()
			}
			// Transport failure or challenge timeout: abandon the scope,
			// never the run.
			scopeErr := &ScopeError{Portal: cfg.Portal, Scope: scope.Label, Page: page, Err: err}
			log.Warn().Err(scopeErr).Msg("Page fetch failed, ending scope")
			return *emitted - start, nil
		}
		if !res.OK() {
			log.Warn().
				Int("status", res.StatusCode).
				Str("scope", scope.Label).
				Int("page", page).
				Msg("Failing status, ending scope")
			return *emitted - start, nil
		}

		outcome, err := strat.ExtractPage(res, scope, cfg)
		if err != nil {
			log.Warn().Err(err).Str("scope", scope.Label).Int("page", page).Msg("Extraction failed, ending scope")
			return *emitted - start, nil
		}
		if len(outcome.Items) == 0 {
			return *emitted - start, nil
		}

		for _, item := range outcome.Items {
			if limitReached(cfg, *emitted) {
				return *emitted - start, nil
			}
			if ctx.Err() != nil {
				return *emitted - start, ctx.Err()
			}

			c.enrichItem(ctx, strat, sess, fetch, &item)

			rec, ok := c.opts.Normalize(item, strat.Name())
			if !ok {
				continue
			}
			if !dedup.Accept(keyFor(strat, item)) {
				log.Debug().Str("name", rec.LegalName).Msg("Duplicate record suppressed")
				continue
			}
			if err := sink.Emit(rec); err != nil {
				return *emitted - start, fmt.Errorf("sink failed: %w", err)
			}
			*emitted++
			log.Debug().Str("name", rec.LegalName).Int("total", *emitted).Msg("Record emitted")
		}

		if !outcome.HasNext {
			return *emitted - start, nil
		}
	}
}

// enrichItem performs the optional detail fetch and second extraction pass.
// Failures leave the item with its listing fields only.
func (c *Coordinator) enrichItem(ctx context.Context, strat Strategy, sess session.Session, fetch Fetcher, item *models.RawItem) {
	de, ok := strat.(DetailExtractor)
	if !ok {
		return
	}
	if item.DetailURL == "" {
		return
	}

	var res models.FetchResult
	var err error
	if df, ok := strat.(DetailFetcher); ok {
		res, err = df.FetchDetail(ctx, sess, fetch, *item)
	} else {
		res, err = fetch(ctx, models.PageRequest{URL: item.DetailURL})
	}
	if err != nil || !res.OK() {
		log.Debug().Err(err).Str("url", item.DetailURL).Msg("Detail fetch failed, keeping listing fields")
		return
	}
	if err := de.ExtractDetail(res, item); err != nil {
		log.Debug().Err(err).Str("url", item.DetailURL).Msg("Detail extraction failed")
	}
}

// fetchPage routes through the strategy's interactive fetch when it has one.
func (c *Coordinator) fetchPage(ctx context.Context, strat Strategy, sess session.Session, fetch Fetcher, cfg models.CrawlConfig, scope Scope, page int) (models.FetchResult, error) {
	if pf, ok := strat.(PageFetcher); ok {
		return pf.FetchPage(ctx, sess, fetch, cfg, scope, page)
	}
	return fetch(ctx, strat.PageRequest(cfg, scope, page))
}

func (c *Coordinator) scopes(ctx context.Context, strat Strategy, fetch Fetcher, cfg models.CrawlConfig) ([]Scope, error) {
	if sl, ok := strat.(ScopeLister); ok {
		return sl.ListScopes(ctx, fetch, cfg)
	}
	return strat.Scopes(ctx, cfg)
}

// guardedFetch wraps one session navigation with the pacing delay, the
// rate-limit retrier and the challenge gate. The very first request of a
// session skips the delay.
func (c *Coordinator) guardedFetch(sess session.Session, kind session.Kind) Fetcher {
	return func(ctx context.Context, req models.PageRequest) (models.FetchResult, error) {
		if c.first {
			c.first = false
		} else if err := c.opts.Pacer.Wait(ctx); err != nil {
			return models.FetchResult{}, err
		}

		res, err := retry.Fetch(ctx, c.opts.Retry, func() (models.FetchResult, error) {
			return sess.Navigate(ctx, req)
		})
		if err != nil {
			return res, err
		}

		// Only browser sessions can be un-challenged in place: a human
		// solves the checkpoint in the live window while we poll.
		if kind == session.KindBrowser && c.opts.Waiter.Detector().Classify(res.Body) == models.StateChallenged {
			if err := c.opts.Waiter.AwaitClear(ctx, sess, c.opts.ChallengeTimeout); err != nil {
				return res, err
			}
			body, err := sess.Content(ctx)
			if err != nil {
				return res, err
			}
			res.Body = body
			res.StatusCode = 0 // navigation succeeded after manual solve
		}
		return res, nil
	}
}

func limitReached(cfg models.CrawlConfig, emitted int) bool {
	return cfg.Limit > 0 && emitted >= cfg.Limit
}

// Errors that end a scope but not a run (exported for tests and callers
// that want to distinguish).
var scopeEnders = []error{challenge.ErrTimeout, ErrBadStatus}

// IsScopeEnder reports whether err is one of the non-fatal page failures.
func IsScopeEnder(err error) bool {
	for _, e := range scopeEnders {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
