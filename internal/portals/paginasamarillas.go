package portals

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/leadharvest/scrape/internal/config"
	"github.com/leadharvest/scrape/internal/crawler"
	"github.com/leadharvest/scrape/internal/session"
	"github.com/leadharvest/scrape/pkg/models"
)

// PaginasAmarillas crawls a yellow-pages directory by category. The site
// fronts everything with an aggressive challenge wall, so the run starts
// with a homepage warmup that gives the operator a chance to clear it.
type PaginasAmarillas struct {
	pc   config.Portal
	seen map[string]bool
}

// NewPaginasAmarillas builds the strategy from its portal constants.
func NewPaginasAmarillas(pc config.Portal) *PaginasAmarillas {
	return &PaginasAmarillas{pc: pc, seen: make(map[string]bool)}
}

func (p *PaginasAmarillas) Name() string { return "paginasamarillas" }

func (p *PaginasAmarillas) SessionKind() session.Kind { return session.KindBrowser }

func (p *PaginasAmarillas) MaxPages() int { return p.pc.MaxPages }

// Warmup visits the homepage so the challenge gate can be cleared before
// search URLs are issued.
func (p *PaginasAmarillas) Warmup(ctx context.Context, sess session.Session, fetch crawler.Fetcher, cfg models.CrawlConfig) error {
	res, err := fetch(ctx, models.PageRequest{URL: p.pc.BaseURL})
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("homepage returned status %d", res.StatusCode)
	}
	return nil
}

// Scopes iterates the configured categories.
func (p *PaginasAmarillas) Scopes(ctx context.Context, cfg models.CrawlConfig) ([]crawler.Scope, error) {
	scopes := make([]crawler.Scope, 0, len(p.pc.Categories))
	for _, cat := range p.pc.Categories {
		scopes = append(scopes, crawler.Scope{Label: cat, Value: cat})
	}
	return scopes, nil
}

// PageRequest builds the category search URL for a page.
func (p *PaginasAmarillas) PageRequest(cfg models.CrawlConfig, scope crawler.Scope, page int) models.PageRequest {
	prov := p.pc.ProvinceSlug(strings.ToUpper(cfg.Region))
	return models.PageRequest{
		URL: fmt.Sprintf("%s/search/%s/all-ma/%s/all-is/%s/all-ba/all-pu/all-nc/%d",
			p.pc.BaseURL, scope.Value, prov, prov, page),
	}
}

// ExtractPage reads listing cards. Only names unseen this run become items,
// so a page of repeats ends the scope the same way an empty page does.
func (p *PaginasAmarillas) ExtractPage(res models.FetchResult, scope crawler.Scope, cfg models.CrawlConfig) (crawler.PageOutcome, error) {
	d, err := doc(res)
	if err != nil {
		return crawler.PageOutcome{}, err
	}

	var items []models.RawItem
	d.Find("div.listado-item, div.search-result, article, [data-name]").Each(func(_ int, li *goquery.Selection) {
		name := strings.TrimSpace(li.Find(`h2 a, h2 span, [itemprop="name"]`).First().Text())
		if name == "" || p.seen[strings.ToUpper(name)] {
			return
		}
		p.seen[strings.ToUpper(name)] = true

		item := models.NewRawItem()
		item.Set("legal_name", name)
		placeFields(item, cfg.Region)

		if ph := li.Find(`a[href^="tel:"], [itemprop="telephone"]`).First(); ph.Length() > 0 {
			raw, ok := ph.Attr("href")
			if !ok || raw == "" {
				raw = ph.Text()
			}
			item.Set("phone", raw)
		}

		if addr := li.Find(`[itemprop="address"], span.address`).First(); addr.Length() > 0 {
			item.Set("address", strings.TrimSpace(addr.Text()))
			if city := strings.TrimSpace(addr.Find(`[itemprop="addressLocality"]`).Text()); city != "" {
				item.Fields["city"] = titled(city)
			}
		}

		if href, ok := li.Find(`a[data-type="web"], a.web`).First().Attr("href"); ok {
			if strings.HasPrefix(href, "http") && !strings.Contains(href, "paginasamarillas") {
				item.Set("website_url", href)
			}
		}
		items = append(items, item)
	})

	hasNext := d.Find(`a.next, a[rel="next"]`).Length() > 0
	return crawler.PageOutcome{Items: items, HasNext: hasNext}, nil
}
