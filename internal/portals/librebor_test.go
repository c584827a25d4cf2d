// internal/portals/librebor_test.go
package portals

import (
	"testing"

	"github.com/leadharvest/scrape/internal/config"
	"github.com/leadharvest/scrape/internal/crawler"
	"github.com/leadharvest/scrape/pkg/models"
)

func liberborTestPortal() config.Portal {
	return config.Portal{
		BaseURL:   "https://librebor.example",
		Provinces: map[string]string{"BILBAO": "bizkaia"},
	}
}

func TestLibrebor_PageRequest(t *testing.T) {
	l := NewLibrebor(liberborTestPortal())
	req := l.PageRequest(models.CrawlConfig{}, crawler.Scope{Value: "bizkaia"}, 3)

	want := "https://librebor.example/borme/api/v1/empresa/provincia/bizkaia/?page=3"
	if req.URL != want {
		t.Errorf("Expected %s, got %s", want, req.URL)
	}
}

func TestLibrebor_ExtractPage_JSON(t *testing.T) {
	l := NewLibrebor(liberborTestPortal())

	// The browser wraps raw JSON responses in a viewer shell.
	body := `<html><body><pre>{
  "results": [
    {"name": "Acme Widgets SL", "url": "https://librebor.example/borme/empresa/acme", "cif": "B12345678", "cnae": 2822},
    {"name": "Other Co SA", "cnae": "4321"},
    {"name": ""}
  ],
  "next": "https://librebor.example/borme/api/v1/empresa/provincia/bizkaia/?page=2"
}</pre></body></html>`

	out, err := l.ExtractPage(models.FetchResult{StatusCode: 200, Body: body}, crawler.Scope{Value: "bizkaia"}, models.CrawlConfig{Region: "BILBAO"})
	if err != nil {
		t.Fatalf("ExtractPage failed: %v", err)
	}
	if len(out.Items) != 2 {
		t.Fatalf("Expected 2 items (empty name dropped), got %d", len(out.Items))
	}
	if out.Items[0].Fields["cnae_code"] != "2822" {
		t.Errorf("Expected numeric CNAE as string, got '%s'", out.Items[0].Fields["cnae_code"])
	}
	if out.Items[1].Fields["cnae_code"] != "4321" {
		t.Errorf("Expected string CNAE preserved, got '%s'", out.Items[1].Fields["cnae_code"])
	}
	if out.Items[0].Fields["cif"] != "B12345678" {
		t.Errorf("Unexpected CIF '%s'", out.Items[0].Fields["cif"])
	}
	if !out.HasNext {
		t.Error("Expected the API next link to signal another page")
	}
}

func TestLibrebor_ExtractPage_LastJSONPage(t *testing.T) {
	l := NewLibrebor(liberborTestPortal())

	body := `{"results": [{"name": "Acme Widgets SL"}], "next": null}`
	out, err := l.ExtractPage(models.FetchResult{StatusCode: 200, Body: body}, crawler.Scope{Value: "bizkaia"}, models.CrawlConfig{Region: "BILBAO"})
	if err != nil {
		t.Fatalf("ExtractPage failed: %v", err)
	}
	if out.HasNext {
		t.Error("Expected a null next to end the scope")
	}
}

func TestLibrebor_ExtractPage_HTMLFallback(t *testing.T) {
	l := NewLibrebor(liberborTestPortal())

	body := `<html><body>
<a href="/borme/empresa/acme-widgets-sl">ACME</a>
<a href="/borme/empresa/other-co-sa">OTHER</a>
</body></html>`

	out, err := l.ExtractPage(models.FetchResult{StatusCode: 200, Body: body}, crawler.Scope{Value: "bizkaia"}, models.CrawlConfig{Region: "BILBAO"})
	if err != nil {
		t.Fatalf("ExtractPage failed: %v", err)
	}
	if len(out.Items) != 2 {
		t.Fatalf("Expected 2 link items, got %d", len(out.Items))
	}
	if out.Items[0].DetailURL != "https://librebor.example/borme/empresa/acme-widgets-sl" {
		t.Errorf("Unexpected detail URL '%s'", out.Items[0].DetailURL)
	}
	if !out.HasNext {
		t.Error("Expected the fallback to keep paging while links appear")
	}
}

func TestLibrebor_ExtractDetail(t *testing.T) {
	l := NewLibrebor(liberborTestPortal())

	body := `<html><body>
<h1>ACME WIDGETS SL</h1>
<p>CIF: B12345678</p>
<p>CNAE: 2822</p>
</body></html>`

	item := models.NewRawItem()
	if err := l.ExtractDetail(models.FetchResult{StatusCode: 200, Body: body}, &item); err != nil {
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
}
