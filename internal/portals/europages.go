package portals

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/leadharvest/scrape/internal/config"
	"github.com/leadharvest/scrape/internal/crawler"
	"github.com/leadharvest/scrape/internal/session"
	"github.com/leadharvest/scrape/pkg/models"
)

var (
	companyLinkRe = regexp.MustCompile(`href="(/es/company/[^"]+)"`)
	productsRe    = regexp.MustCompile(`/products/.*`)
	employeesRe   = regexp.MustCompile(`Empleados:\s*([\d\s\-–]+)`)
	addressEsRe   = regexp.MustCompile(`([\w\s/.,-]+\d{4,5})\s*\n?\s*España`)
)

// Europages crawls a B2B marketplace by iterating generic Spanish search
// terms. Listing pages only carry company links; every field comes from the
// per-company detail page.
type Europages struct {
	pc   config.Portal
	seen map[string]bool
}

// NewEuropages builds the strategy from its portal constants.
func NewEuropages(pc config.Portal) *Europages {
	return &Europages{pc: pc, seen: make(map[string]bool)}
}

func (e *Europages) Name() string { return "europages" }

func (e *Europages) SessionKind() session.Kind { return session.KindBrowser }

func (e *Europages) MaxPages() int { return e.pc.MaxPages }

// Scopes iterates the configured search terms.
func (e *Europages) Scopes(ctx context.Context, cfg models.CrawlConfig) ([]crawler.Scope, error) {
	scopes := make([]crawler.Scope, 0, len(e.pc.SearchTerms))
	for _, term := range e.pc.SearchTerms {
		scopes = append(scopes, crawler.Scope{Label: term, Value: term})
	}
	return scopes, nil
}

// PageRequest builds the search URL for a term page.
func (e *Europages) PageRequest(cfg models.CrawlConfig, scope crawler.Scope, page int) models.PageRequest {
	location := cfg.City
	if location == "" {
		location = cfg.Region
	}
	u := fmt.Sprintf("%s/es/search?q=%s&location=%s",
		e.pc.BaseURL, url.QueryEscape(scope.Value), url.QueryEscape(titled(location)))
	if page > 1 {
		u += fmt.Sprintf("&page=%d", page)
	}
	return models.PageRequest{URL: u}
}

// ExtractPage collects unseen company slugs; each becomes an item whose
// fields are filled from its detail page.
func (e *Europages) ExtractPage(res models.FetchResult, scope crawler.Scope, cfg models.CrawlConfig) (crawler.PageOutcome, error) {
	var items []models.RawItem
	for _, m := range companyLinkRe.FindAllStringSubmatch(res.Body, -1) {
		slug := productsRe.ReplaceAllString(m[1], "")
		if e.seen[slug] {
			continue
		}
		e.seen[slug] = true

		item := models.NewRawItem()
		item.Set("source_url", e.pc.BaseURL+slug)
		placeFields(item, cfg.Region)
		item.DetailURL = e.pc.BaseURL + slug
		items = append(items, item)
	}

	hasNext := false
	if d, err := doc(res); err == nil {
		hasNext = d.Find(`a[rel="next"], [aria-label="Next"]`).Length() > 0
	}
	return crawler.PageOutcome{Items: items, HasNext: hasNext}, nil
}

// ExtractDetail reads the company profile: name, employees, website,
// address, description and phone.
func (e *Europages) ExtractDetail(res models.FetchResult, item *models.RawItem) error {
	d, err := doc(res)
	if err != nil {
		return err
	}

	name := ""
	for _, sel := range []string{"h1", "h2"} {
		raw := strings.TrimSpace(d.Find(sel).First().Text())
		if strings.HasPrefix(strings.ToUpper(raw), "SOBRE ") {
			raw = strings.TrimSpace(raw[6:])
		}
		if raw != "" {
			name = raw
			break
		}
	}
	if name == "" {
		return fmt.Errorf("company page has no usable name")
	}
	item.Set("legal_name", name)

	text := d.Text()
	if m := employeesRe.FindStringSubmatch(text); m != nil {
		item.Set("employee_count", strings.TrimSpace(m[1]))
	}
	if m := addressEsRe.FindStringSubmatch(text); m != nil {
		item.Set("address", strings.TrimSpace(m[1]))
	}

	d.Find(`a[href*="http"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.Contains(sel.Text(), "Visitar") {
			return true
		}
		href, _ := sel.Attr("href")
		if href != "" && !strings.Contains(href, "europages") {
			item.Set("website_url", href)
			return false
		}
		return true
	})

	if desc := strings.TrimSpace(d.Find(`div[class*="description"], div[class*="about"] p`).First().Text()); desc != "" {
		item.Set("summary", desc)
	}

	if href, ok := d.Find(`a[href^="tel:"]`).First().Attr("href"); ok {
		item.Set("phone", href)
	}
	return nil
}

// DedupKey keys europages items by company URL; marketplace display names
// repeat across franchises.
func (e *Europages) DedupKey(item models.RawItem) string {
	return item.Fields["source_url"]
}
