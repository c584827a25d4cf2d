package portals

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"

	"github.com/leadharvest/scrape/internal/config"
	"github.com/leadharvest/scrape/internal/crawler"
	"github.com/leadharvest/scrape/internal/session"
	"github.com/leadharvest/scrape/pkg/models"
)

var (
	localidadRe = regexp.MustCompile(`/localidad/([^/]+)/`)
	cnaeDataRe  = regexp.MustCompile(`'CNAE'\s*:\s*'(\d+)'[\s\S]*?'GRUPO_SECTOR'\s*:\s*'([^']*)'`)
)

// Empresite crawls the business directory of a newspaper's company index.
// It is the one portal served over the plain HTTP path: the site tolerates a
// browser-impersonating client, and listing pages answer form POSTs.
type Empresite struct {
	pc config.Portal
}

// NewEmpresite builds the strategy from its portal constants.
func NewEmpresite(pc config.Portal) *Empresite {
	return &Empresite{pc: pc}
}

func (e *Empresite) Name() string { return "empresite" }

func (e *Empresite) SessionKind() session.Kind { return session.KindClient }

func (e *Empresite) MaxPages() int { return e.pc.MaxPages }

// Scopes is unused; the city list comes from the portal via ListScopes.
func (e *Empresite) Scopes(ctx context.Context, cfg models.CrawlConfig) ([]crawler.Scope, error) {
	return nil, nil
}

// ListScopes enumerates the region's cities, or the single configured city.
func (e *Empresite) ListScopes(ctx context.Context, fetch crawler.Fetcher, cfg models.CrawlConfig) ([]crawler.Scope, error) {
	if cfg.City != "" {
		slug := strings.ToLower(cfg.City)
		return []crawler.Scope{{Label: cfg.City, Value: slug}}, nil
	}

	res, err := fetch(ctx, models.PageRequest{
		URL: fmt.Sprintf("%s/provincia/%s/", e.pc.BaseURL, strings.ToUpper(cfg.Region)),
	})
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, fmt.Errorf("city list fetch returned status %d", res.StatusCode)
	}

	d, err := doc(res)
	if err != nil {
		return nil, err
	}

	var scopes []crawler.Scope
	seen := make(map[string]bool)
	d.Find("a[href*='/localidad/']").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		m := localidadRe.FindStringSubmatch(href)
		if m == nil || seen[m[1]] {
			return
		}
		seen[m[1]] = true
		name := strings.TrimSpace(strings.SplitN(sel.Text(), "(", 2)[0])
		scopes = append(scopes, crawler.Scope{Label: name, Value: m[1]})
	})
	return scopes, nil
}

// PageRequest builds the filtered listing POST for a city page.
func (e *Empresite) PageRequest(cfg models.CrawlConfig, scope crawler.Scope, page int) models.PageRequest {
	path := fmt.Sprintf("/localidad/%s/", scope.Value)
	if page > 1 {
		path += fmt.Sprintf("PgNum-%d/", page)
	}

	empMin, empMax := cfg.EmployeeMin, cfg.EmployeeMax
	if empMin == 0 && empMax == 0 {
		empMin, empMax = e.pc.EmployeeMin, e.pc.EmployeeMax
	}

	return models.PageRequest{
		URL:     fmt.Sprintf("%s%s?testfiltros=1&emp_empleados_number=%d-%d", e.pc.BaseURL, path, empMin, empMax),
		Method:  http.MethodPost,
		Referer: fmt.Sprintf("%s/localidad/%s/", e.pc.BaseURL, scope.Value),
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded;charset=UTF-8",
		},
	}
}

// ExtractPage pulls company cards off a listing page. A page shorter than
// the portal's full card count is the last one of its scope.
func (e *Empresite) ExtractPage(res models.FetchResult, scope crawler.Scope, cfg models.CrawlConfig) (crawler.PageOutcome, error) {
	d, err := doc(res)
	if err != nil {
		return crawler.PageOutcome{}, err
	}

	var items []models.RawItem
	cards := d.Find("div.cardCompanyBox")
	cards.Each(func(_ int, card *goquery.Selection) {
		name, _ := card.Find(`meta[itemprop="name"]`).Attr("content")
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}

		item := models.NewRawItem()
		item.Set("legal_name", name)
		item.Set("city", titled(strings.SplitN(scope.Value, "-", 2)[0]))
		item.Set("province", titled(cfg.Region))
		item.Set("region", titled(cfg.Region))
		item.Set("address", strings.TrimSpace(card.Find(`span[itemprop="address"]`).Text()))
		item.Set("summary", strings.TrimSpace(card.Find("span.line-clamp-2").Text()))

		if href, ok := card.Find("h3 a").Attr("href"); ok {
			detail := absURL(e.pc.BaseURL, href)
			item.Set("source_url", detail)
			if cfg.Details {
				item.DetailURL = detail
			}
		}
		items = append(items, item)
	})

	return crawler.PageOutcome{
		Items:   items,
		HasNext: cards.Length() >= e.pc.MinFullPage,
	}, nil
}

// ExtractDetail enriches an item from its company page: the CNAE data layer
// plus phone, email and website.
func (e *Empresite) ExtractDetail(res models.FetchResult, item *models.RawItem) error {
	d, err := doc(res)
	if err != nil {
		return err
	}

	if code, sector, ok := extractDataLayer(d); ok {
		item.Set("cnae_code", code)
		item.Set("industry", sector)
	}

	if ph := d.Find(`span[itemprop="telephone"], a[href^="tel:"]`).First(); ph.Length() > 0 {
		raw, ok := ph.Attr("content")
		if !ok || raw == "" {
			raw = strings.TrimSpace(ph.Text())
		}
		item.Set("phone", raw)
	}

	if href, ok := d.Find(`a[href^="mailto:"]`).First().Attr("href"); ok {
		item.Set("email", strings.TrimPrefix(href, "mailto:"))
	}

	if href, ok := d.Find(`a[itemprop="url"][href*="http"]`).First().Attr("href"); ok {
		if !strings.Contains(href, "empresite") {
			item.Set("website_url", href)
		}
	}
	return nil
}

// DedupKey keys empresite items by legal name.
func (e *Empresite) DedupKey(item models.RawItem) string {
	return item.Fields["legal_name"]
}

// extractDataLayer evaluates the page's inline analytics scripts and digs
// the CNAE code and sector group out of whatever object they define. Falls
// back to a regex when the script does not evaluate standalone.
func extractDataLayer(d *goquery.Document) (code, sector string, ok bool) {
	var source string
	d.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if _, external := sel.Attr("src"); external {
			return true
		}
		if strings.Contains(sel.Text(), "CNAE") {
			source = sel.Text()
			return false
		}
		return true
	})
	if source == "" {
		return "", "", false
	}

	vm := goja.New()
	vm.Set("window", vm.GlobalObject())
	vm.Set("self", vm.GlobalObject())
	vm.Set("console", map[string]interface{}{
		"log":   func(goja.FunctionCall) goja.Value { return nil },
		"error": func(goja.FunctionCall) goja.Value { return nil },
	})
	if _, err := vm.RunString(source); err == nil {
		for _, key := range vm.GlobalObject().Keys() {
			// The aliases installed above point back at the global object.
			if key == "window" || key == "self" || key == "console" {
				continue
			}
			obj, isMap := vm.Get(key).Export().(map[string]interface{})
			if !isMap {
				continue
			}
			if c, s, found := cnaeFromMap(obj, 0); found {
				return c, s, true
			}
		}
	} else {
		log.Debug().Err(err).Msg("Data-layer script did not evaluate, using regex fallback")
	}

	if m := cnaeDataRe.FindStringSubmatch(source); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

func cnaeFromMap(obj map[string]interface{}, depth int) (string, string, bool) {
	code, okCode := obj["CNAE"].(string)
	if !okCode {
		// One level of nesting is common in data layers. The depth cap also
		// guards against self-referential exported objects.
		if depth >= 2 {
			return "", "", false
		}
		for _, v := range obj {
			if nested, isMap := v.(map[string]interface{}); isMap {
				if c, s, found := cnaeFromMap(nested, depth+1); found {
					return c, s, true
				}
			}
		}
		return "", "", false
	}
	sector, _ := obj["GRUPO_SECTOR"].(string)
	return code, sector, true
}
