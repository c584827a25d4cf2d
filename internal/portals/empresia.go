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

const (
	empresiaSearchSel     = `input.ui-autocomplete-input, input[type="search"], input[type="text"]`
	empresiaSuggestionSel = `.ui-autocomplete .ui-menu-item, .ui-autocomplete li`
	empresiaFirstMatchSel = `.ui-autocomplete .ui-menu-item a, .ui-autocomplete li a, .ui-autocomplete li`
)

var (
	empresiaNameRe    = regexp.MustCompile(`Datos de (.+)`)
	empresiaCIFRe     = regexp.MustCompile(`CIF\s*:?\s*([A-Z]\d{7,8})`)
	empresiaCNAERe    = regexp.MustCompile(`CNAE\s+(\d{3,4})\s*[-–]\s*([^\n]+)`)
	empresiaPhoneRe   = regexp.MustCompile(`(\d{9})\s+\d{9}`)
	empresiaEmpRe     = regexp.MustCompile(`[Nn]úmero empleados\s*:?\s*(\d[\d.]*)`)
	empresiaAddrRe    = regexp.MustCompile(`(?i)((?:CALLE|PASEO|AVENIDA|PLAZA|C/|CL |PG )[^\n]+?\([A-Z]+\))`)
	empresiaCityRe    = regexp.MustCompile(`\(([^)]+)\)\s*$`)
	empresiaObjectRe  = regexp.MustCompile(`(?s)Objeto social\s*:?\s*(.+?)(?:\nCNAE|\nCIF|\nFecha)`)
	empresiaPartnerRe = regexp.MustCompile(`empresia|axesor|einforma|infocif|google|facebook`)
)

// Empresia has no listing pages at all: companies are reached by typing a
// query into the homepage autocomplete and following a suggestion. Each
// search term is one scope producing a single "page" of suggestions; every
// suggestion is then re-searched and clicked through to its company page.
type Empresia struct {
	pc   config.Portal
	seen map[string]bool
}

// NewEmpresia builds the strategy from its portal constants.
func NewEmpresia(pc config.Portal) *Empresia {
	return &Empresia{pc: pc, seen: make(map[string]bool)}
}

func (e *Empresia) Name() string { return "empresia" }

func (e *Empresia) SessionKind() session.Kind { return session.KindBrowser }

// MaxPages is 1: one suggestion list per search term.
func (e *Empresia) MaxPages() int { return 1 }

// Scopes iterates the configured search terms.
func (e *Empresia) Scopes(ctx context.Context, cfg models.CrawlConfig) ([]crawler.Scope, error) {
	scopes := make([]crawler.Scope, 0, len(e.pc.SearchTerms))
	for _, term := range e.pc.SearchTerms {
		scopes = append(scopes, crawler.Scope{Label: term, Value: term})
	}
	return scopes, nil
}

// PageRequest is only the navigation target of the interactive fetch.
func (e *Empresia) PageRequest(cfg models.CrawlConfig, scope crawler.Scope, page int) models.PageRequest {
	return models.PageRequest{URL: e.pc.BaseURL}
}

// FetchPage types "<term> <location>" into the homepage autocomplete and
// returns the suggestion texts, one per line.
func (e *Empresia) FetchPage(ctx context.Context, sess session.Session, fetch crawler.Fetcher, cfg models.CrawlConfig, scope crawler.Scope, page int) (models.FetchResult, error) {
	in, ok := sess.(session.Interactive)
	if !ok {
		return models.FetchResult{}, fmt.Errorf("empresia requires an interactive browser session")
	}

	location := cfg.City
	if location == "" {
		location = cfg.Region
	}
	query := scope.Value + " " + strings.ToUpper(location)

	texts, err := e.suggestionsFor(ctx, in, fetch, query)
	if err != nil {
		return models.FetchResult{}, err
	}
	return models.FetchResult{Body: strings.Join(texts, "\n")}, nil
}

// suggestionsFor loads the homepage, types the query and reads the
// autocomplete entries.
func (e *Empresia) suggestionsFor(ctx context.Context, in session.Interactive, fetch crawler.Fetcher, query string) ([]string, error) {
	if _, err := fetch(ctx, models.PageRequest{URL: e.pc.BaseURL}); err != nil {
		return nil, err
	}
	if err := in.Click(ctx, empresiaSearchSel); err != nil {
		return nil, fmt.Errorf("search box not found: %w", err)
	}
	if err := in.Type(ctx, empresiaSearchSel, query); err != nil {
		return nil, err
	}
	if err := in.Sleep(ctx, 3*time.Second); err != nil {
		return nil, err
	}

	raw, err := in.TextAll(ctx, empresiaSuggestionSel)
	if err != nil {
		return nil, err
	}
	var texts []string
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			texts = append(texts, t)
		}
	}
	return texts, nil
}

// ExtractPage turns the suggestion lines into items awaiting the
// interactive detail pass.
func (e *Empresia) ExtractPage(res models.FetchResult, scope crawler.Scope, cfg models.CrawlConfig) (crawler.PageOutcome, error) {
	var items []models.RawItem
	for _, line := range strings.Split(res.Body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		item := models.NewRawItem()
		item.Set("suggestion", line)
		item.DetailURL = e.pc.BaseURL + "#" + line
		items = append(items, item)
	}
	return crawler.PageOutcome{Items: items}, nil
}

// FetchDetail re-searches a suggestion, clicks the first match and returns
// the resulting company page. Suggestions that do not resolve to a company
// page, or that were already visited this run, fail the fetch so the item
// is dropped.
func (e *Empresia) FetchDetail(ctx context.Context, sess session.Session, fetch crawler.Fetcher, item models.RawItem) (models.FetchResult, error) {
	in, ok := sess.(session.Interactive)
	if !ok {
		return models.FetchResult{}, fmt.Errorf("empresia requires an interactive browser session")
	}

	suggestion := item.Fields["suggestion"]
	if r := []rune(suggestion); len(r) > 30 {
		suggestion = string(r[:30])
	}

	if _, err := fetch(ctx, models.PageRequest{URL: e.pc.BaseURL}); err != nil {
		return models.FetchResult{}, err
	}
	if err := in.Click(ctx, empresiaSearchSel); err != nil {
		return models.FetchResult{}, err
	}
	if err := in.Type(ctx, empresiaSearchSel, suggestion); err != nil {
		return models.FetchResult{}, err
	}
	if err := in.Sleep(ctx, 3*time.Second); err != nil {
		return models.FetchResult{}, err
	}
	if err := in.Click(ctx, empresiaFirstMatchSel); err != nil {
		return models.FetchResult{}, fmt.Errorf("no matching suggestion: %w", err)
	}
	if err := in.Sleep(ctx, 3*time.Second); err != nil {
		return models.FetchResult{}, err
	}

	url, err := in.CurrentURL(ctx)
	if err != nil {
		return models.FetchResult{}, err
	}
	if !strings.Contains(url, "/empresa/") {
		return models.FetchResult{}, fmt.Errorf("suggestion did not resolve to a company page: %s", url)
	}
	parts := strings.Split(strings.TrimRight(url, "/"), "/")
	slug := parts[len(parts)-1]
	if e.seen[slug] {
		return models.FetchResult{}, fmt.Errorf("company %s already visited", slug)
	}
	e.seen[slug] = true

	body, err := in.Content(ctx)
	if err != nil {
		return models.FetchResult{}, err
	}
	return models.FetchResult{Body: body, FinalURL: url}, nil
}

// ExtractDetail reads the registry fields off a company page.
func (e *Empresia) ExtractDetail(res models.FetchResult, item *models.RawItem) error {
	d, err := doc(res)
	if err != nil {
		return err
	}
	text := d.Text()

	name := ""
	if m := empresiaNameRe.FindStringSubmatch(text); m != nil {
		name = strings.TrimSpace(m[1])
	}
	if name == "" {
		name = strings.TrimSpace(d.Find("h1").First().Text())
	}
	if name == "" {
		return fmt.Errorf("company page carries no name")
	}
	item.Set("legal_name", name)
	item.Set("source_url", res.FinalURL)

	if m := empresiaCIFRe.FindStringSubmatch(text); m != nil {
		item.Set("cif", m[1])
	}
	if m := empresiaCNAERe.FindStringSubmatch(text); m != nil {
		item.Set("cnae_code", m[1])
		industry := strings.TrimSpace(m[2])
		if r := []rune(industry); len(r) > 256 {
			industry = string(r[:256])
		}
		item.Set("industry", industry)
	}
	if m := empresiaPhoneRe.FindStringSubmatch(text); m != nil {
		item.Set("phone", m[1])
	}
	if m := empresiaEmpRe.FindStringSubmatch(text); m != nil {
		item.Set("employee_count", strings.ReplaceAll(m[1], ".", ""))
	}
	if m := empresiaAddrRe.FindStringSubmatch(text); m != nil {
		addr := strings.TrimSpace(m[1])
		item.Set("address", addr)
		if cm := empresiaCityRe.FindStringSubmatch(addr); cm != nil {
			item.Set("city", titled(cm[1]))
		}
	}
	if m := empresiaObjectRe.FindStringSubmatch(text); m != nil {
		item.Set("summary", strings.TrimSpace(m[1]))
	}

	d.Find(`a[href^="http"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if href == "" || empresiaPartnerRe.MatchString(strings.ToLower(href)) {
			return true
		}
		if strings.Contains(href, "www") || strings.Contains(strings.ToLower(a.Text()), "http") {
			item.Set("website_url", href)
			return false
		}
		return true
	})
	return nil
}

// DedupKey keys by company page URL; suggestion texts collide across terms.
func (e *Empresia) DedupKey(item models.RawItem) string {
	return item.Fields["source_url"]
}
