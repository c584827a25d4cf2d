// Package portals holds the per-portal crawl strategies: each one bundles a
// scope enumerator, request builder and extractor for one external data
// source. All orchestration (pacing, retries, challenge handling, dedup)
// lives in internal/crawler; nothing here touches those collaborators.
package portals

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/leadharvest/scrape/internal/config"
	"github.com/leadharvest/scrape/internal/crawler"
	"github.com/leadharvest/scrape/internal/normalize"
	"github.com/leadharvest/scrape/pkg/models"
)

// Factory builds a strategy from its portal constants.
type Factory func(pc config.Portal) crawler.Strategy

var registry = map[string]Factory{
	"empresite":        func(pc config.Portal) crawler.Strategy { return NewEmpresite(pc) },
	"europages":        func(pc config.Portal) crawler.Strategy { return NewEuropages(pc) },
	"paginasamarillas": func(pc config.Portal) crawler.Strategy { return NewPaginasAmarillas(pc) },
	"einforma":         func(pc config.Portal) crawler.Strategy { return NewEinforma(pc) },
	"empresia":         func(pc config.Portal) crawler.Strategy { return NewEmpresia(pc) },
	"librebor":         func(pc config.Portal) crawler.Strategy { return NewLibrebor(pc) },
}

// New resolves a portal name to its strategy using the loaded constants.
func New(name string, ps *config.Portals) (crawler.Strategy, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown portal %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	pc, err := ps.Get(name)
	if err != nil {
		return nil, err
	}
	return factory(pc), nil
}

// Names lists the registered portal names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// doc parses a fetch result body for selector-based extraction.
func doc(res models.FetchResult) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(res.Body))
}

// absURL resolves href against base when it is not already absolute.
func absURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(href, "/")
}

// titled renders a region or city name the way records carry it.
func titled(s string) string {
	return normalize.TitleCase(s)
}

// placeFields stamps the run's geography onto an item.
func placeFields(item models.RawItem, region string) {
	item.Set("region", titled(region))
	item.Set("province", titled(region))
	item.Set("city", titled(region))
}
