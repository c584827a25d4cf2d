package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	browser "github.com/EDDYCJY/fake-useragent"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"

	"github.com/leadharvest/scrape/internal/ratelimit"
	"github.com/leadharvest/scrape/pkg/models"
)

// ClientSession crawls portals that tolerate a plain HTTP client. The jar is
// snapshotted per portal on close and restored on open so cookies issued
// after a manual challenge solve keep working across runs.
type ClientSession struct {
	portal   string
	client   *resty.Client
	jar      http.CookieJar
	limiter  ratelimit.Limiter
	store    *Store
	lastBody string
	lastURL  string
	hosts    map[string]*url.URL
}

func openClient(portal string, opts Options) (*ClientSession, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetTimeout(opts.HTTPTimeout)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeaders(map[string]string{
		"User-Agent":      browser.Chrome(),
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "es-ES,es;q=0.9,en;q=0.8",
		"Referer":         "https://www.google.com/",
	})
	// 429 handling lives in the retrier; the client must hand the status back.
	client.SetRetryCount(0)

	store, err := NewStore(opts.ProfileBaseDir)
	if err != nil {
		return nil, err
	}

	s := &ClientSession{
		portal:  portal,
		client:  client,
		jar:     jar,
		limiter: ratelimit.NewHostLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		store:   store,
		hosts:   make(map[string]*url.URL),
	}

	if cookies, err := store.LoadCookies(portal); err == nil && len(cookies) > 0 {
		client.SetCookies(cookies)
		log.Debug().Str("portal", portal).Int("cookies", len(cookies)).Msg("Restored cookie snapshot")
	}

	return s, nil
}

// Navigate performs one GET or form POST and returns the response body. A
// non-2xx status is not an error; the caller inspects the status.
func (s *ClientSession) Navigate(ctx context.Context, req models.PageRequest) (models.FetchResult, error) {
	if err := s.limiter.Wait(ctx, req.URL); err != nil {
		return models.FetchResult{}, err
	}

	r := s.client.R().SetContext(ctx)
	if req.Referer != "" {
		r.SetHeader("Referer", req.Referer)
	}
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}

	var resp *resty.Response
	var err error
	if req.Method == http.MethodPost {
		if len(req.Form) > 0 {
			r.SetFormData(req.Form)
		} else {
			r.SetHeader("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
		}
		resp, err = r.Post(req.URL)
	} else {
		resp, err = r.Get(req.URL)
	}
	if err != nil {
		return models.FetchResult{}, fmt.Errorf("request failed: %w", err)
	}

	final := req.URL
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		final = raw.Request.URL.String()
	}
	if u, perr := url.Parse(final); perr == nil {
		s.hosts[u.Host] = u
	}

	s.lastBody = resp.String()
	s.lastURL = final
	return models.FetchResult{
		StatusCode: resp.StatusCode(),
		Body:       s.lastBody,
		FinalURL:   final,
	}, nil
}

// Content returns the body of the last response. The HTTP path has no live
// page to re-read; challenge recovery here means re-fetching, which callers
// do through Navigate.
func (s *ClientSession) Content(ctx context.Context) (string, error) {
	return s.lastBody, nil
}

// CurrentURL reports the final URL of the last response.
func (s *ClientSession) CurrentURL(ctx context.Context) (string, error) {
	return s.lastURL, nil
}

// Close snapshots the cookie jar for the next run.
func (s *ClientSession) Close() error {
	var cookies []*http.Cookie
	for _, u := range s.hosts {
		for _, c := range s.jar.Cookies(u) {
			c.Domain = u.Hostname()
			c.Path = "/"
			cookies = append(cookies, c)
		}
	}
	if len(cookies) > 0 {
		if err := s.store.SaveCookies(s.portal, cookies); err != nil {
			log.Warn().Err(err).Str("portal", s.portal).Msg("Failed to save cookie snapshot")
		} else {
			log.Debug().Str("portal", s.portal).Int("cookies", len(cookies)).Msg("Cookie snapshot saved")
		}
	}
	return nil
}
