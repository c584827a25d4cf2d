package portals

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/leadharvest/scrape/internal/config"
	"github.com/leadharvest/scrape/internal/crawler"
	"github.com/leadharvest/scrape/internal/session"
	"github.com/leadharvest/scrape/pkg/models"
)

var (
	einformaLinkRe = regexp.MustCompile(`href="(/informes-empresa/[^"]+)"`)
	einformaSlugRe = regexp.MustCompile(`/informes-empresa/([^/"]+)`)
	cifRe          = regexp.MustCompile(`[A-Z]\d{7,8}`)
)

// Einforma crawls the einforma registry listings. A province has one flat
// paginated listing, so there is a single scope per run. Rows carry the CIF
// alongside the name; when the row markup is absent the strategy falls back
// to report links found anywhere in the page.
type Einforma struct {
	pc config.Portal
}

// NewEinforma builds the strategy from its portal constants.
func NewEinforma(pc config.Portal) *Einforma {
	return &Einforma{pc: pc}
}

func (e *Einforma) Name() string { return "einforma" }

func (e *Einforma) SessionKind() session.Kind { return session.KindBrowser }

func (e *Einforma) MaxPages() int { return e.pc.MaxPages }

// Warmup visits the homepage and dismisses the cookie banner when present.
func (e *Einforma) Warmup(ctx context.Context, sess session.Session, fetch crawler.Fetcher, cfg models.CrawlConfig) error {
	res, err := fetch(ctx, models.PageRequest{URL: e.pc.BaseURL})
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("homepage returned status %d", res.StatusCode)
	}
	if in, ok := sess.(session.Interactive); ok {
		if strings.Contains(res.Body, "onetrust-accept-btn-handler") {
			if err := in.Click(ctx, "button#onetrust-accept-btn-handler"); err == nil {
				_ = in.Sleep(ctx, 2*time.Second)
			}
		}
	}
	return nil
}

// Scopes yields the single province listing.
func (e *Einforma) Scopes(ctx context.Context, cfg models.CrawlConfig) ([]crawler.Scope, error) {
	slug := e.pc.ProvinceSlug(strings.ToUpper(cfg.Region))
	return []crawler.Scope{{Label: cfg.Region, Value: slug}}, nil
}

// PageRequest builds the province listing URL. Page one has no suffix.
func (e *Einforma) PageRequest(cfg models.CrawlConfig, scope crawler.Scope, page int) models.PageRequest {
	if page == 1 {
		return models.PageRequest{URL: fmt.Sprintf("%s/informes-empresas/%s.html", e.pc.BaseURL, scope.Value)}
	}
	return models.PageRequest{URL: fmt.Sprintf("%s/informes-empresas/%s-%d.html", e.pc.BaseURL, scope.Value, page)}
}

// ExtractPage reads listing rows, or falls back to bare report links when
// the table is missing.
func (e *Einforma) ExtractPage(res models.FetchResult, scope crawler.Scope, cfg models.CrawlConfig) (crawler.PageOutcome, error) {
	d, err := doc(res)
	if err != nil {
		return crawler.PageOutcome{}, err
	}

	var items []models.RawItem
	d.Find("table tbody tr, .empresa-item, .result-row").Each(func(_ int, row *goquery.Selection) {
		link := row.Find(`a[href*="/informes-empresa/"], td:first-child a`).First()
		name := strings.TrimSpace(link.Text())
		if name == "" {
			return
		}
		item := models.NewRawItem()
		item.Set("legal_name", name)
		placeFields(item, cfg.Region)
		if href, ok := link.Attr("href"); ok {
			item.Set("source_url", absURL(e.pc.BaseURL, href))
		}
		if cell := row.Find(".cif, td:nth-child(2)").First(); cell.Length() > 0 {
			item.Set("cif", cifRe.FindString(cell.Text()))
		}
		items = append(items, item)
	})

	if len(items) == 0 {
		for _, m := range einformaLinkRe.FindAllStringSubmatch(res.Body, -1) {
			href := m[1]
			sm := einformaSlugRe.FindStringSubmatch(href)
			if sm == nil {
				continue
			}
			name := strings.TrimSpace(strings.ReplaceAll(sm[1], "-", " "))
			if name == "" {
				continue
			}
			item := models.NewRawItem()
			item.Set("legal_name", name)
			item.Set("source_url", absURL(e.pc.BaseURL, href))
			placeFields(item, cfg.Region)
			items = append(items, item)
		}
	}

	hasNext := d.Find(`a[rel="next"]`).Length() > 0
	if !hasNext {
		d.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if strings.Contains(a.Text(), "Siguiente") {
				hasNext = true
				return false
			}
			return true
		})
	}
	return crawler.PageOutcome{Items: items, HasNext: hasNext}, nil
}
