// internal/portals/empresia_test.go
package portals

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/leadharvest/scrape/internal/config"
	"github.com/leadharvest/scrape/internal/crawler"
	"github.com/leadharvest/scrape/pkg/models"
)

func empresiaTestPortal() config.Portal {
	return config.Portal{
		BaseURL:     "https://empresia.example",
		SearchTerms: []string{"SL", "CONSULTING"},
	}
}

// interactiveStub satisfies session.Interactive with canned page state.
type interactiveStub struct {
	url  string
	body string
}

func (s *interactiveStub) Navigate(ctx context.Context, req models.PageRequest) (models.FetchResult, error) {
	return models.FetchResult{StatusCode: 200, Body: s.body, FinalURL: req.URL}, nil
}
func (s *interactiveStub) Content(ctx context.Context) (string, error) { return s.body, nil }

func (s *interactiveStub) CurrentURL(ctx context.Context) (string, error) { return s.url, nil }

func (s *interactiveStub) Close() error { return nil }

func (s *interactiveStub) Text(ctx context.Context, sel string) (string, error) {
	return "", nil
}

func (s *interactiveStub) TextAll(ctx context.Context, sel string) ([]string, error) {
	return nil, nil
}

func (s *interactiveStub) Click(ctx context.Context, sel string) error { return nil }

func (s *interactiveStub) Type(ctx context.Context, sel, text string) error { return nil }

func (s *interactiveStub) Sleep(ctx context.Context, d time.Duration) error { return nil }

func stubFetcher(res models.FetchResult) crawler.Fetcher {
	return func(ctx context.Context, req models.PageRequest) (models.FetchResult, error) {
		return res, nil
	}
}

func TestEmpresia_ExtractPage_SuggestionLines(t *testing.T) {
	e := NewEmpresia(empresiaTestPortal())

	res := models.FetchResult{Body: "ACME WIDGETS SL\n\n  OTHER CO SA  "}
	out, err := e.ExtractPage(res, crawler.Scope{Value: "SL"}, models.CrawlConfig{})
	if err != nil {
		t.Fatalf("ExtractPage failed: %v", err)
	}
	if len(out.Items) != 2 {
		t.Fatalf("Expected 2 suggestions, got %d", len(out.Items))
	}
	if out.Items[0].Fields["suggestion"] != "ACME WIDGETS SL" {
		t.Errorf("Unexpected suggestion '%s'", out.Items[0].Fields["suggestion"])
	}
	if out.Items[0].DetailURL == "" {
		t.Error("Expected suggestions to carry a detail marker")
	}
	if out.HasNext {
		t.Error("Expected a suggestion list to be a single page")
	}
}

func TestEmpresia_FetchDetail_VisitsOnce(t *testing.T) {
	e := NewEmpresia(empresiaTestPortal())
	sess := &interactiveStub{
		url:  "https://empresia.example/empresa/acme-widgets-sl",
		body: "<html><body><h1>Datos de ACME WIDGETS SL</h1></body></html>",
	}
	fetch := stubFetcher(models.FetchResult{StatusCode: 200})

	item := models.NewRawItem()
	item.Set("suggestion", "ACME WIDGETS SL")

	res, err := e.FetchDetail(context.Background(), sess, fetch, item)
	if err != nil {
		t.Fatalf("FetchDetail failed: %v", err)
	}
	if res.FinalURL != sess.url {
		t.Errorf("Expected the company URL, got '%s'", res.FinalURL)
	}

	// Same slug again is rejected so the item gets dropped, not re-emitted.
	if _, err := e.FetchDetail(context.Background(), sess, fetch, item); err == nil {
		t.Error("Expected a repeat visit to fail")
	}
}

func TestEmpresia_FetchDetail_NonCompanyPage(t *testing.T) {
	e := NewEmpresia(empresiaTestPortal())
	sess := &interactiveStub{url: "https://empresia.example/buscar?q=acme"}
	fetch := stubFetcher(models.FetchResult{StatusCode: 200})

	item := models.NewRawItem()
	item.Set("suggestion", "ACME")

	if _, err := e.FetchDetail(context.Background(), sess, fetch, item); err == nil {
		t.Error("Expected an error when the click does not land on a company page")
	}
}

func TestEmpresia_ExtractDetail(t *testing.T) {
	e := NewEmpresia(empresiaTestPortal())

	body := `<html><body>
<h1>Datos de ACME WIDGETS SL</h1>
<div>CIF: B12345678</div>
<div>CNAE 2822 - Fabricacion de maquinaria</div>
<div>931234567 931234568</div>
<div>Número empleados 25</div>
<div>CALLE MAYOR 1 (BARCELONA)</div>
<div>Objeto social La fabricacion y venta de maquinaria, junto al CIF de sus filiales.</div>
<div>Fecha de constitucion 12/03/2001</div>
<a href="https://www.acme.es">www.acme.es</a>
</body></html>`

	item := models.NewRawItem()
	res := models.FetchResult{StatusCode: 200, Body: body, FinalURL: "https://empresia.example/empresa/acme-widgets-sl"}
	if err := e.ExtractDetail(res, &item); err != nil {
		t.Fatalf("ExtractDetail failed: %v", err)
	}

	if item.Fields["legal_name"] != "ACME WIDGETS SL" {
		t.Errorf("Unexpected name '%s'", item.Fields["legal_name"])
	}
	if item.Fields["cif"] != "B12345678" {
		t.Errorf("Unexpected CIF '%s'", item.Fields["cif"])
	}
	if item.Fields["cnae_code"] != "2822" {
		t.Errorf("Unexpected CNAE '%s'", item.Fields["cnae_code"])
	}
	if item.Fields["industry"] != "Fabricacion de maquinaria" {
		t.Errorf("Unexpected industry '%s'", item.Fields["industry"])
	}
	if item.Fields["phone"] != "931234567" {
		t.Errorf("Expected the first of the doubled phones, got '%s'", item.Fields["phone"])
	}
	if item.Fields["employee_count"] != "25" {
		t.Errorf("Unexpected employee count '%s'", item.Fields["employee_count"])
	}
	if item.Fields["address"] != "CALLE MAYOR 1 (BARCELONA)" {
		t.Errorf("Unexpected address '%s'", item.Fields["address"])
	}
	if item.Fields["city"] != "Barcelona" {
		t.Errorf("Expected city from the address parenthetical, got '%s'", item.Fields["city"])
	}
	if !strings.Contains(item.Fields["summary"], "venta de maquinaria") {
		t.Errorf("Unexpected summary '%s'", item.Fields["summary"])
	}
	// "CIF" mid-sentence must not cut the summary; only a CIF/CNAE/Fecha
	// line ends it.
	if !strings.Contains(item.Fields["summary"], "CIF de sus filiales") {
		t.Errorf("Summary truncated early: '%s'", item.Fields["summary"])
	}
	if strings.Contains(item.Fields["summary"], "Fecha") {
		t.Errorf("Summary ran past the section end: '%s'", item.Fields["summary"])
	}
	if item.Fields["website_url"] != "https://www.acme.es" {
		t.Errorf("Unexpected website '%s'", item.Fields["website_url"])
	}
	if item.Fields["source_url"] != res.FinalURL {
		t.Errorf("Expected source URL from the final location, got '%s'", item.Fields["source_url"])
	}
}
