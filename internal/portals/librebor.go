package portals

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/leadharvest/scrape/internal/config"
	"github.com/leadharvest/scrape/internal/crawler"
	"github.com/leadharvest/scrape/internal/session"
	"github.com/leadharvest/scrape/pkg/models"
)

var (
	liberborLinkRe = regexp.MustCompile(`href="(/borme/empresa/[^"]+)"`)
	liberborCIFRe  = regexp.MustCompile(`CIF:\s*([A-Z]\d{7,8})`)
	liberborCNAERe = regexp.MustCompile(`CNAE:\s*(\d{3,4})`)
)

// liberborPage is one page of the registry API. CNAE arrives as either a
// string or a number depending on the record.
type liberborPage struct {
	Results []struct {
		Name string      `json:"name"`
		URL  string      `json:"url"`
		CIF  string      `json:"cif"`
		CNAE interface{} `json:"cnae"`
	} `json:"results"`
	Next *string `json:"next"`
}

// Librebor crawls the public BORME mirror through its JSON API. The API
// sits behind the same challenge wall as the site, so it is driven through
// the browser session; when a response turns out not to be JSON the
// strategy falls back to scraping company links out of the HTML.
type Librebor struct {
	pc config.Portal
}

// NewLibrebor builds the strategy from its portal constants.
func NewLibrebor(pc config.Portal) *Librebor {
	return &Librebor{pc: pc}
}

func (l *Librebor) Name() string { return "librebor" }

func (l *Librebor) SessionKind() session.Kind { return session.KindBrowser }

func (l *Librebor) MaxPages() int { return l.pc.MaxPages }

// Warmup visits the homepage so the challenge gate can be cleared before
// API requests start.
func (l *Librebor) Warmup(ctx context.Context, sess session.Session, fetch crawler.Fetcher, cfg models.CrawlConfig) error {
	res, err := fetch(ctx, models.PageRequest{URL: l.pc.BaseURL})
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("homepage returned status %d", res.StatusCode)
	}
	return nil
}

// Scopes yields the single province listing.
func (l *Librebor) Scopes(ctx context.Context, cfg models.CrawlConfig) ([]crawler.Scope, error) {
	slug := l.pc.ProvinceSlug(strings.ToUpper(cfg.Region))
	return []crawler.Scope{{Label: cfg.Region, Value: slug}}, nil
}

// PageRequest builds the API page URL.
func (l *Librebor) PageRequest(cfg models.CrawlConfig, scope crawler.Scope, page int) models.PageRequest {
	return models.PageRequest{
		URL: fmt.Sprintf("%s/borme/api/v1/empresa/provincia/%s/?page=%d", l.pc.BaseURL, scope.Value, page),
	}
}

// ExtractPage decodes the API payload, or falls back to harvesting company
// links when the body is not JSON.
func (l *Librebor) ExtractPage(res models.FetchResult, scope crawler.Scope, cfg models.CrawlConfig) (crawler.PageOutcome, error) {
	raw := jsonText(res.Body)

	var pg liberborPage
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&pg); err != nil {
		return l.extractLinks(res, cfg), nil
	}

	var items []models.RawItem
	for _, r := range pg.Results {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		item := models.NewRawItem()
		item.Set("legal_name", name)
		placeFields(item, cfg.Region)
		item.Set("source_url", r.URL)
		item.Set("cif", r.CIF)
		if r.CNAE != nil {
			if cnae := fmt.Sprint(r.CNAE); len(cnae) <= 20 {
				item.Set("cnae_code", cnae)
			}
		}
		items = append(items, item)
	}
	return crawler.PageOutcome{Items: items, HasNext: pg.Next != nil && *pg.Next != ""}, nil
}

// extractLinks is the non-JSON fallback: company links become items whose
// fields come from the detail page.
func (l *Librebor) extractLinks(res models.FetchResult, cfg models.CrawlConfig) crawler.PageOutcome {
	var items []models.RawItem
	for _, m := range liberborLinkRe.FindAllStringSubmatch(res.Body, -1) {
		item := models.NewRawItem()
		item.DetailURL = l.pc.BaseURL + m[1]
		item.Set("source_url", item.DetailURL)
		placeFields(item, cfg.Region)
		items = append(items, item)
	}
	return crawler.PageOutcome{Items: items, HasNext: len(items) > 0}
}

// ExtractDetail reads name, CIF and CNAE off a company page reached through
// the fallback path.
func (l *Librebor) ExtractDetail(res models.FetchResult, item *models.RawItem) error {
	d, err := doc(res)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(d.Find("h1").First().Text())
	if name == "" {
		return fmt.Errorf("company page carries no name")
	}
	item.Set("legal_name", name)

	text := d.Text()
	if m := liberborCIFRe.FindStringSubmatch(text); m != nil {
		item.Set("cif", m[1])
	}
	if m := liberborCNAERe.FindStringSubmatch(text); m != nil {
		item.Set("cnae_code", m[1])
	}
	return nil
}

// jsonText strips the HTML shell the browser wraps raw JSON responses in.
func jsonText(body string) string {
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return trimmed
	}
	if start := strings.Index(trimmed, "<pre"); start >= 0 {
		if open := strings.Index(trimmed[start:], ">"); open >= 0 {
			rest := trimmed[start+open+1:]
			if end := strings.Index(rest, "</pre>"); end >= 0 {
				return strings.TrimSpace(rest[:end])
			}
		}
	}
	return trimmed
}
